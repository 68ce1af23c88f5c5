package aggregate

import (
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"

	"github.com/joshsymonds/chronocadence/internal/ingest"
	"github.com/joshsymonds/chronocadence/internal/timestamp"
)

const week = 7 * 24 * time.Hour

// SubjectStats summarizes subject lines; placeholder subjects are excluded.
type SubjectStats struct {
	Count         int     `json:"count"`
	AvgLength     float64 `json:"avg_length"`
	QuestionRatio float64 `json:"question_ratio"`
	DigitRatio    float64 `json:"digit_ratio"`
}

// CadenceStats describes how often the correspondent sends.
type CadenceStats struct {
	PerWeek float64       `json:"per_week"`
	Span    time.Duration `json:"span"`
	OK      bool          `json:"ok"`
}

// PeriodCount is the number of records in one YYYY-MM period.
type PeriodCount struct {
	Period string `json:"period"`
	Count  int    `json:"count"`
}

// Subjects computes length and punctuation ratios. Full-width forms are folded first
// so "？" and "１２" count as a question mark and digits.
func Subjects(records []ingest.Record) SubjectStats {
	var st SubjectStats
	var runes, questions, digits int
	for _, r := range records {
		if r.Subject == ingest.SubjectPlaceholder || strings.TrimSpace(r.Subject) == "" {
			continue
		}
		folded := foldSubject(r.Subject)
		st.Count++
		runes += utf8.RuneCountInString(folded)
		if strings.ContainsRune(folded, '?') {
			questions++
		}
		if strings.IndexFunc(folded, unicode.IsDigit) >= 0 {
			digits++
		}
	}
	if st.Count == 0 {
		return st
	}
	st.AvgLength = float64(runes) / float64(st.Count)
	st.QuestionRatio = share(questions, st.Count)
	st.DigitRatio = share(digits, st.Count)
	return st
}

func foldSubject(s string) string {
	out, _, err := transform.String(transform.Chain(norm.NFKC, width.Fold), s)
	if err != nil {
		return s
	}
	return out
}

// Cadence derives records per week from the span of parsed instants. Spans shorter
// than a week count as one week.
func Cadence(records []ingest.Record) CadenceStats {
	var first, last time.Time
	n := 0
	for _, r := range records {
		if r.Quality != timestamp.QualityParsed {
			continue
		}
		if n == 0 || r.Instant.Before(first) {
			first = r.Instant
		}
		if n == 0 || r.Instant.After(last) {
			last = r.Instant
		}
		n++
	}
	if n == 0 {
		return CadenceStats{}
	}
	span := last.Sub(first)
	weeks := float64(span) / float64(week)
	if weeks < 1 {
		weeks = 1
	}
	return CadenceStats{PerWeek: float64(n) / weeks, Span: span, OK: true}
}

// Periods counts records per YYYY-MM, oldest period first.
func Periods(records []ingest.Record) []PeriodCount {
	counts := map[string]int{}
	for _, r := range records {
		if r.Period != "" {
			counts[r.Period]++
		}
	}
	out := make([]PeriodCount, 0, len(counts))
	for p, c := range counts {
		out = append(out, PeriodCount{Period: p, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}

// Recent returns up to n parsed records, newest first. Equal instants keep input
// order. Fallback records carry the run time, not a send time, so they are left out.
func Recent(records []ingest.Record, n int) []ingest.Record {
	sorted := make([]ingest.Record, 0, len(records))
	for _, r := range records {
		if r.Quality == timestamp.QualityParsed {
			sorted = append(sorted, r)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Instant.After(sorted[j].Instant)
	})
	if n >= 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}
