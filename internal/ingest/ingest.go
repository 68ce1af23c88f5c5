// Package ingest maps raw message records onto normalized, timezone-resolved records.
package ingest

import (
	"strings"
	"time"

	"github.com/joshsymonds/chronocadence/internal/timestamp"
)

// SubjectPlaceholder replaces absent or blank subjects.
const SubjectPlaceholder = "(no subject)"

// RawMessage is a message record as supplied by the retrieval layer.
type RawMessage struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Subject   string `json:"subject"`
	From      string `json:"from"`
	To        string `json:"to"`
}

// Record is a normalized message. Records are never mutated after Ingest returns them.
type Record struct {
	ID      string            `json:"id"`
	Instant time.Time         `json:"instant"`
	Quality timestamp.Quality `json:"quality"`
	Hour    int               `json:"hour"`
	Weekday int               `json:"weekday"`
	Month   int               `json:"month"`
	Period  string            `json:"period"`
	Subject string            `json:"subject"`
}

// Normalizer is the timestamp surface the ingestor depends on.
type Normalizer interface {
	Normalize(raw string) timestamp.Result
}

// Ingestor converts raw messages into records.
type Ingestor struct {
	Normalizer Normalizer
}

// New returns an Ingestor backed by n.
func New(n Normalizer) *Ingestor {
	return &Ingestor{Normalizer: n}
}

// Ingest normalizes raws in order. A malformed timestamp degrades that one record to
// fallback quality; it never aborts the batch.
func (in *Ingestor) Ingest(raws []RawMessage) []Record {
	out := make([]Record, 0, len(raws))
	for _, raw := range raws {
		out = append(out, in.record(raw))
	}
	return out
}

func (in *Ingestor) record(raw RawMessage) Record {
	res := in.Normalizer.Normalize(raw.Timestamp)
	subject := strings.TrimSpace(raw.Subject)
	if subject == "" {
		subject = SubjectPlaceholder
	}
	return Record{
		ID:      raw.ID,
		Instant: res.Instant,
		Quality: res.Quality,
		Hour:    res.Local.Hour,
		Weekday: res.Local.Weekday,
		Month:   res.Local.Month,
		Period:  res.Local.Period,
		Subject: subject,
	}
}

// Fallbacks counts records whose instant was substituted.
func Fallbacks(records []Record) int {
	n := 0
	for _, r := range records {
		if r.Quality == timestamp.QualityFallback {
			n++
		}
	}
	return n
}
