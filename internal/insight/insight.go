// Package insight turns aggregate statistics into categorized, ranked findings.
package insight

import (
	"context"
	"fmt"

	"github.com/joshsymonds/chronocadence/internal/aggregate"
)

// Category groups insights for presentation.
type Category int

const (
	SendPattern Category = iota
	Engagement
	Content
	Relationship
	ActionPlan
)

var categoryNames = map[Category]string{
	SendPattern:  "send_pattern",
	Engagement:   "engagement",
	Content:      "content",
	Relationship: "relationship",
	ActionPlan:   "action_plan",
}

// Categories lists every category in presentation order.
func Categories() []Category {
	return []Category{SendPattern, Engagement, Content, Relationship, ActionPlan}
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// Title is the human heading for a category.
func (c Category) Title() string {
	switch c {
	case SendPattern:
		return "Send pattern"
	case Engagement:
		return "Engagement"
	case Content:
		return "Content"
	case Relationship:
		return "Relationship"
	case ActionPlan:
		return "Action plan"
	default:
		return c.String()
	}
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	parsed, ok := ParseCategory(string(b))
	if !ok {
		return fmt.Errorf("unknown insight category %q", string(b))
	}
	*c = parsed
	return nil
}

// ParseCategory resolves a category from its wire name.
func ParseCategory(s string) (Category, bool) {
	for c, name := range categoryNames {
		if name == s {
			return c, true
		}
	}
	return 0, false
}

// Insight is one finding. Rank is the 1-based position within its category.
type Insight struct {
	Category Category `json:"category"`
	Text     string   `json:"text"`
	Rank     int      `json:"rank"`
}

// List is an ordered set of insights; generators never return an empty List.
type List []Insight

// ByCategory returns the insights of one category in rank order.
func (l List) ByCategory(c Category) List {
	var out List
	for _, in := range l {
		if in.Category == c {
			out = append(out, in)
		}
	}
	return out
}

// Input carries everything the generators may consult.
type Input struct {
	Bundle   aggregate.Bundle
	Subjects aggregate.SubjectStats
	Cadence  aggregate.CadenceStats
	Domain   string
}

// Generator produces insights for one analysis run.
type Generator interface {
	Generate(ctx context.Context, in Input) List
}

var defaultStatements = []struct {
	category Category
	text     string
}{
	{SendPattern, "Not enough dated messages to describe a sending pattern yet."},
	{Engagement, "Collect more messages before drawing conclusions about subject lines."},
	{Content, "Keep each message focused on one clear purpose."},
	{Relationship, "Reply promptly to keep the correspondence active."},
	{ActionPlan, "Re-run this analysis once more messages have arrived."},
}

// DefaultList is returned when no rule produced a finding.
func DefaultList() List {
	out := make(List, 0, len(defaultStatements))
	for _, st := range defaultStatements {
		out = append(out, Insight{Category: st.category, Text: st.text, Rank: 1})
	}
	return out
}

// builder appends insights and assigns per-category ranks.
type builder struct {
	list  List
	ranks map[Category]int
}

func newBuilder() *builder {
	return &builder{ranks: map[Category]int{}}
}

func (b *builder) add(c Category, format string, args ...any) {
	b.addText(c, fmt.Sprintf(format, args...))
}

func (b *builder) addText(c Category, text string) {
	b.ranks[c]++
	b.list = append(b.list, Insight{Category: c, Text: text, Rank: b.ranks[c]})
}

func (b *builder) result() List {
	if len(b.list) == 0 {
		return DefaultList()
	}
	return b.list
}
