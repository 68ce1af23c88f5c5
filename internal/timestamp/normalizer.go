package timestamp

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // reporting zones must resolve on hosts without a zoneinfo database
)

// Quality marks whether an instant came from the source string or was substituted.
type Quality int

const (
	QualityParsed Quality = iota
	QualityFallback
)

func (q Quality) String() string {
	if q == QualityFallback {
		return "fallback"
	}
	return "parsed"
}

// MarshalText renders the quality flag as "parsed" or "fallback".
func (q Quality) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

// LocalFields is the reporting-zone breakdown of an instant.
type LocalFields struct {
	Hour    int    `json:"hour"`    // 0-23
	Weekday int    `json:"weekday"` // 0=Monday ... 6=Sunday
	Month   int    `json:"month"`   // 1-12
	Period  string `json:"period"`  // YYYY-MM
}

// Result is the outcome of normalizing one raw timestamp.
type Result struct {
	Instant time.Time
	Local   LocalFields
	Quality Quality
}

// Layouts carrying a numeric offset, in priority order.
var offsetLayouts = []string{
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04 -0700",
	"2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04 -0700",
	time.RFC3339,
}

// Zone-naive layouts; the zone comes from a stripped abbreviation or defaults to UTC.
var naiveLayouts = []string{
	"Mon, 2 Jan 2006 15:04:05",
	"Mon, 2 Jan 2006 15:04",
	"2 Jan 2006 15:04:05",
	"2 Jan 2006 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

var zoneOffsets = map[string]int{
	"UT":   0,
	"UTC":  0,
	"GMT":  0,
	"Z":    0,
	"JST":  9,
	"KST":  9,
	"EST":  -5,
	"EDT":  -4,
	"CST":  -6,
	"CDT":  -5,
	"MST":  -7,
	"MDT":  -6,
	"PST":  -8,
	"PDT":  -7,
	"CET":  1,
	"CEST": 2,
	"BST":  1,
	"AEST": 10,
	"AEDT": 11,
}

var weekdayNames = [7]string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// WeekdayName maps a 0=Monday weekday index to its English name.
func WeekdayName(i int) string {
	if i < 0 || i >= len(weekdayNames) {
		return ""
	}
	return weekdayNames[i]
}

// Normalizer converts raw message timestamps into instants in a fixed reporting zone.
type Normalizer struct {
	Location *time.Location
	Clock    func() time.Time
}

// NewNormalizer returns a Normalizer reporting in loc (UTC when nil).
func NewNormalizer(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{Location: loc, Clock: time.Now}
}

// LoadLocation resolves a reporting zone name. Unknown names yield UTC and an error.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC, fmt.Errorf("load reporting timezone %q: %w", name, err)
	}
	return loc, nil
}

// Format renders an instant in the canonical form Normalize accepts back.
func Format(t time.Time) string {
	return t.Format(time.RFC1123Z)
}

// Normalize parses raw. It never fails: unparsable input yields a fallback result
// stamped with the current clock time.
func (n *Normalizer) Normalize(raw string) Result {
	if t, ok := Parse(raw); ok {
		return n.result(t, QualityParsed)
	}
	return n.fallback()
}

// Parse reads raw as an instant. A numeric offset wins over any zone abbreviation;
// without either the text is taken as UTC. Parenthesised comments such as
// "(GMT+09:00)" are ignored once known abbreviations have been taken from them.
func Parse(raw string) (time.Time, bool) {
	tokens := strings.Fields(raw)
	if len(tokens) == 0 {
		return time.Time{}, false
	}
	tokens, zone := stripZone(tokens)
	text := strings.Join(strings.Fields(stripComments(strings.Join(tokens, " "))), " ")
	if text == "" {
		return time.Time{}, false
	}

	if t, ok := parseFirst(text, offsetLayouts, time.UTC); ok {
		return t, true
	}
	loc := time.UTC
	if zone != nil {
		loc = zone
	}
	return parseFirst(text, naiveLayouts, loc)
}

func (n *Normalizer) fallback() Result {
	now := time.Now
	if n.Clock != nil {
		now = n.Clock
	}
	return n.result(now(), QualityFallback)
}

func (n *Normalizer) result(t time.Time, q Quality) Result {
	loc := n.Location
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return Result{
		Instant: local,
		Local: LocalFields{
			Hour:    local.Hour(),
			Weekday: mondayFirst(local.Weekday()),
			Month:   int(local.Month()),
			Period:  local.Format("2006-01"),
		},
		Quality: q,
	}
}

// stripZone removes the first known zone abbreviation, bare or parenthesised,
// and returns its fixed offset.
func stripZone(tokens []string) ([]string, *time.Location) {
	for i, tok := range tokens {
		name := strings.TrimSuffix(strings.TrimPrefix(tok, "("), ")")
		hours, ok := zoneOffsets[strings.ToUpper(name)]
		if !ok || name != strings.ToUpper(name) {
			continue
		}
		rest := make([]string, 0, len(tokens)-1)
		rest = append(rest, tokens[:i]...)
		rest = append(rest, tokens[i+1:]...)
		return rest, time.FixedZone(name, hours*int(time.Hour/time.Second))
	}
	return tokens, nil
}

// stripComments drops parenthesised text, nested or not. An unbalanced "(" drops
// the rest of the string.
func stripComments(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '(':
			depth++
		case r == ')' && depth > 0:
			depth--
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func parseFirst(text string, layouts []string, loc *time.Location) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, text, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func mondayFirst(d time.Weekday) int {
	return (int(d) + 6) % 7
}
