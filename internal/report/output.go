package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joshsymonds/chronocadence/internal/aggregate"
	"github.com/joshsymonds/chronocadence/internal/insight"
	"github.com/joshsymonds/chronocadence/internal/timestamp"
)

const (
	subjectDisplayLimit = 60
	barWidth            = 30
)

// PrintHuman writes a readable report to the provided writer.
func PrintHuman(rep Report, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}
	var builder strings.Builder
	fmt.Fprintf(&builder, "chronocadence: %s (%d messages, %s)\n", rep.Sender, rep.Total, rep.Timezone)
	if rep.Fallbacks > 0 {
		fmt.Fprintf(&builder, "  %d timestamps could not be parsed and use the run time\n", rep.Fallbacks)
	}

	b := rep.Bundle
	if b.Total > 0 {
		builder.WriteString("\nPeaks:\n")
		fmt.Fprintf(&builder, "  %-10s %02d:00 (%d, %.0f%%)\n", "hour", b.PeakHour.Index, b.PeakHour.Count, b.PeakHour.Share*100)
		fmt.Fprintf(&builder, "  %-10s %s (%d, %.0f%%)\n", "weekday",
			timestamp.WeekdayName(b.PeakWeekday.Index), b.PeakWeekday.Count, b.PeakWeekday.Share*100)
		fmt.Fprintf(&builder, "  %-10s %d (%d, %.0f%%)\n", "month", b.PeakMonth.Index+1, b.PeakMonth.Count, b.PeakMonth.Share*100)
		fmt.Fprintf(&builder, "  %-10s %s (%d, %.0f%%)\n", "season",
			aggregate.SeasonName(b.PeakSeason.Index), b.PeakSeason.Count, b.PeakSeason.Share*100)
		fmt.Fprintf(&builder, "\nBusiness hours %.0f%%, weekend %.0f%%, off hours %.0f%%\n",
			b.BusinessHoursShare*100, b.WeekendShare*100, b.OffHoursShare*100)
		if rep.Cadence.OK {
			fmt.Fprintf(&builder, "Cadence: %.1f messages per week\n", rep.Cadence.PerWeek)
		}

		builder.WriteString("\nBy hour:\n")
		for h, n := range b.Hourly {
			if n == 0 {
				continue
			}
			fmt.Fprintf(&builder, "  %02d:00 %4d %s\n", h, n, bar(n, b.PeakHour.Count))
		}
		builder.WriteString("\nBy weekday:\n")
		for d, n := range b.Weekday {
			fmt.Fprintf(&builder, "  %-9s %4d %s\n", timestamp.WeekdayName(d), n, bar(n, b.PeakWeekday.Count))
		}
	}
	if len(rep.Periods) > 0 {
		builder.WriteString("\nBy month:\n")
		for _, p := range rep.Periods {
			fmt.Fprintf(&builder, "  %s %4d\n", p.Period, p.Count)
		}
	}
	if len(rep.Recent) > 0 {
		builder.WriteString("\nRecent:\n")
		for _, r := range rep.Recent {
			fmt.Fprintf(&builder, "  %s  %s\n", r.Instant.Format("2006-01-02 15:04"), truncate(r.Subject, subjectDisplayLimit))
		}
	}

	for _, c := range insight.Categories() {
		items := rep.Insights.ByCategory(c)
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(&builder, "\n%s:\n", c.Title())
		for _, in := range items {
			fmt.Fprintf(&builder, "  %d. %s\n", in.Rank, in.Text)
		}
	}
	if _, err := io.WriteString(w, builder.String()); err != nil {
		return fmt.Errorf("write human report: %w", err)
	}
	return nil
}

// WriteJSON serializes the report to a path relative to the working directory.
func WriteJSON(rep Report, path string) error {
	clean := strings.TrimSpace(path)
	if clean == "" {
		return fmt.Errorf("path must not be empty")
	}
	clean = filepath.Clean(clean)
	if filepath.IsAbs(clean) {
		return fmt.Errorf("output path must be relative, got %s", clean)
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("output path %s escapes working directory", clean)
	}
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determine working directory: %w", err)
	}
	abs := filepath.Join(wd, clean)
	f, err := os.OpenFile(abs, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) // #nosec G304
	if err != nil {
		return fmt.Errorf("create %s: %w", abs, err)
	}
	defer func() { _ = f.Close() }()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if encodeErr := enc.Encode(rep); encodeErr != nil {
		return fmt.Errorf("encode report: %w", encodeErr)
	}
	return nil
}

func bar(n, peak int) string {
	if peak <= 0 || n <= 0 {
		return ""
	}
	width := n * barWidth / peak
	if width == 0 {
		width = 1
	}
	return strings.Repeat("#", width)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
