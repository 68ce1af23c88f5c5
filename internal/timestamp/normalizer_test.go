package timestamp

import (
	"testing"
	"time"
)

var fixedNow = time.Date(2024, time.March, 4, 12, 30, 0, 0, time.UTC)

func testNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	tokyo, err := LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	n := NewNormalizer(tokyo)
	n.Clock = func() time.Time { return fixedNow }
	return n
}

func TestNormalizeFormats(t *testing.T) {
	want := time.Date(2024, time.October, 1, 0, 30, 0, 0, time.UTC)
	tests := []struct {
		name string
		raw  string
	}{
		{name: "rfc2822 offset", raw: "Tue, 1 Oct 2024 09:30:00 +0900"},
		{name: "rfc2822 negative offset", raw: "Mon, 30 Sep 2024 17:30:00 -0700"},
		{name: "offset with zone comment", raw: "Mon, 30 Sep 2024 17:30:00 -0700 (PDT)"},
		{name: "no weekday", raw: "1 Oct 2024 00:30:00 +0000"},
		{name: "minutes only", raw: "Tue, 1 Oct 2024 00:30 +0000"},
		{name: "abbreviation only", raw: "Mon, 30 Sep 2024 19:30:00 EST"},
		{name: "parenthesised abbreviation", raw: "Tue, 1 Oct 2024 09:30:00 (JST)"},
		{name: "gmt", raw: "Tue, 01 Oct 2024 00:30:00 GMT"},
		{name: "no designator is utc", raw: "Tue, 1 Oct 2024 00:30:00"},
		{name: "extra whitespace", raw: "  Tue,  1 Oct 2024   09:30:00 +0900 "},
		{name: "rfc3339", raw: "2024-10-01T09:30:00+09:00"},
		{name: "offset with gmt comment", raw: "Tue, 1 Oct 2024 09:30:00 +0900 (GMT+09:00)"},
		{name: "offset with multi-word comment", raw: "Tue, 1 Oct 2024 00:30:00 +0000 (Coordinated Universal Time)"},
		{name: "offset with unknown abbreviation", raw: "Tue, 1 Oct 2024 06:00:00 +0530 (IST)"},
		{name: "zulu designator", raw: "2024-10-01 00:30:00 Z"},
	}
	n := testNormalizer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.Normalize(tt.raw)
			if got.Quality != QualityParsed {
				t.Fatalf("expected parsed quality for %q", tt.raw)
			}
			if !got.Instant.Equal(want) {
				t.Fatalf("instant mismatch: got %s want %s", got.Instant, want)
			}
			if got.Local.Hour != 9 || got.Local.Weekday != 1 || got.Local.Month != 10 {
				t.Fatalf("unexpected local fields: %+v", got.Local)
			}
			if got.Local.Period != "2024-10" {
				t.Fatalf("unexpected period: %q", got.Local.Period)
			}
		})
	}
}

func TestNormalizeFallback(t *testing.T) {
	n := testNormalizer(t)
	for _, raw := range []string{"", "   ", "not a date", "Tue, 32 Foo 2024 99:99:99 +0900"} {
		got := n.Normalize(raw)
		if got.Quality != QualityFallback {
			t.Fatalf("expected fallback for %q, got %v", raw, got.Quality)
		}
		if !got.Instant.Equal(fixedNow) {
			t.Fatalf("fallback instant mismatch for %q: %s", raw, got.Instant)
		}
		// 12:30 UTC is 21:30 Monday in Tokyo.
		if got.Local.Hour != 21 || got.Local.Weekday != 0 || got.Local.Period != "2024-03" {
			t.Fatalf("fallback local fields mismatch: %+v", got.Local)
		}
	}
}

func TestParseCommentsOnly(t *testing.T) {
	for _, raw := range []string{"(GMT+09:00)", "(no date) ( here )", "Tue, 1 Oct 2024 (09:30:00 +0900"} {
		if _, ok := Parse(raw); ok {
			t.Fatalf("expected %q not to parse", raw)
		}
	}
}

func TestNormalizeRoundTrip(t *testing.T) {
	n := testNormalizer(t)
	instants := []time.Time{
		time.Date(2023, time.December, 31, 23, 59, 59, 999, time.UTC),
		time.Date(2024, time.February, 29, 4, 5, 6, 0, time.FixedZone("X", -3*3600)),
		fixedNow,
	}
	for _, in := range instants {
		got := n.Normalize(Format(in))
		if got.Quality != QualityParsed {
			t.Fatalf("round trip of %s fell back", in)
		}
		if !got.Instant.Equal(in.Truncate(time.Second)) {
			t.Fatalf("round trip mismatch: got %s want %s", got.Instant, in)
		}
		again := n.Normalize(Format(got.Instant))
		if !again.Instant.Equal(got.Instant) {
			t.Fatalf("second round trip drifted: %s vs %s", again.Instant, got.Instant)
		}
	}
}

func TestNormalizeWeekdayConvention(t *testing.T) {
	n := NewNormalizer(time.UTC)
	// 2024-09-29 is a Sunday.
	got := n.Normalize("Sun, 29 Sep 2024 10:00:00 +0000")
	if got.Local.Weekday != 6 {
		t.Fatalf("expected sunday=6, got %d", got.Local.Weekday)
	}
	if WeekdayName(got.Local.Weekday) != "Sunday" {
		t.Fatalf("unexpected name %q", WeekdayName(got.Local.Weekday))
	}
	if WeekdayName(7) != "" {
		t.Fatalf("out of range weekday should have no name")
	}
}

func TestLoadLocationUnknown(t *testing.T) {
	loc, err := LoadLocation("Mars/Olympus")
	if err == nil {
		t.Fatalf("expected error for unknown zone")
	}
	if loc != time.UTC {
		t.Fatalf("expected utc fallback, got %v", loc)
	}
	loc, err = LoadLocation("")
	if err != nil || loc != time.UTC {
		t.Fatalf("empty name should be utc without error: %v %v", loc, err)
	}
}

func TestQualityText(t *testing.T) {
	b, err := QualityFallback.MarshalText()
	if err != nil || string(b) != "fallback" {
		t.Fatalf("unexpected marshal: %q %v", b, err)
	}
	if QualityParsed.String() != "parsed" {
		t.Fatalf("unexpected string %q", QualityParsed.String())
	}
}
