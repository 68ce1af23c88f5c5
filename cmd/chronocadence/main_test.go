package main

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/joshsymonds/chronocadence/internal/store"
)

func TestRunRequiresSender(t *testing.T) {
	if err := run(cliFlags{}); err == nil || !strings.Contains(err.Error(), "-sender") {
		t.Fatalf("expected missing sender error, got %v", err)
	}
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CADENCE_TIMEZONE", "UTC")
	t.Setenv("CADENCE_INSIGHTS", "rules")
	chdir(t, t.TempDir())

	cfg, err := loadConfig(cliFlags{maxRecords: 20, timezone: "Europe/Paris"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MaxRecords != 20 || cfg.Timezone != "Europe/Paris" {
		t.Fatalf("flags should override config: %+v", cfg)
	}
	if _, err := loadConfig(cliFlags{insights: "magic"}); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestPrintHistory(t *testing.T) {
	var sb strings.Builder
	snaps := []store.Snapshot{{
		GeneratedAt: time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC),
		Total:       12,
		PeakWeekday: 1,
		PeakHour:    9,
		PerWeek:     2.5,
	}}
	if err := printHistory(snaps, &sb); err != nil {
		t.Fatalf("print: %v", err)
	}
	want := "2024-11-01 12:00    12 messages  peak Tuesday 09:00  2.5/week"
	if !strings.Contains(sb.String(), want) {
		t.Fatalf("expected %q in %q", want, sb.String())
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatal(err)
		}
	})
}
