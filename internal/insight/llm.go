package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joshsymonds/chronocadence/internal/timestamp"
)

// Completer is the language-model surface used by LLMGenerator.
type Completer interface {
	Ask(ctx context.Context, system, prompt string) (string, error)
}

const llmSystemPrompt = `You analyse when and how one correspondent sends email.
Reply with a JSON array only. Each element is {"category": <one of "send_pattern",
"engagement", "content", "relationship", "action_plan">, "text": <one sentence>}.
Write at most three findings per category. Base every finding on the statistics given.`

// LLMGenerator asks a language model for findings. Its output is not deterministic;
// on any failure it returns what Fallback generates instead.
type LLMGenerator struct {
	LLM      Completer
	Fallback Generator
	Logger   *slog.Logger
}

// NewLLMGenerator wires a model-backed generator that degrades to the rule engine.
func NewLLMGenerator(llm Completer, logger *slog.Logger) *LLMGenerator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &LLMGenerator{LLM: llm, Fallback: NewRuleEngine(), Logger: logger}
}

type llmFinding struct {
	Category string `json:"category"`
	Text     string `json:"text"`
}

// Generate implements Generator.
func (g *LLMGenerator) Generate(ctx context.Context, in Input) List {
	if in.Bundle.Total == 0 || g.LLM == nil {
		return g.fallback(ctx, in)
	}
	raw, err := g.LLM.Ask(ctx, llmSystemPrompt, buildPrompt(in))
	if err != nil {
		g.Logger.WarnContext(ctx, "llm insights failed, using rules", slog.Any("error", err))
		return g.fallback(ctx, in)
	}
	list, err := parseFindings(raw)
	if err != nil {
		g.Logger.WarnContext(ctx, "unparsable llm insights, using rules",
			slog.Any("error", err), slog.Int("raw_len", len(raw)))
		return g.fallback(ctx, in)
	}
	g.Logger.InfoContext(ctx, "llm insights generated", slog.Int("count", len(list)))
	return list
}

func (g *LLMGenerator) fallback(ctx context.Context, in Input) List {
	if g.Fallback == nil {
		return DefaultList()
	}
	return g.Fallback.Generate(ctx, in)
}

func buildPrompt(in Input) string {
	b := in.Bundle
	var sb strings.Builder
	fmt.Fprintf(&sb, "Messages analysed: %d\n", b.Total)
	fmt.Fprintf(&sb, "Sender domain: %s\n", in.Domain)
	fmt.Fprintf(&sb, "Peak hour: %02d:00 (%s of messages)\n", b.PeakHour.Index, pct(b.PeakHour.Share))
	fmt.Fprintf(&sb, "Peak weekday: %s (%s)\n",
		timestamp.WeekdayName(b.PeakWeekday.Index), pct(b.PeakWeekday.Share))
	fmt.Fprintf(&sb, "Peak month: %d (%s)\n", b.PeakMonth.Index+1, pct(b.PeakMonth.Share))
	fmt.Fprintf(&sb, "Business hours share: %s\n", pct(b.BusinessHoursShare))
	fmt.Fprintf(&sb, "Weekend share: %s\n", pct(b.WeekendShare))
	fmt.Fprintf(&sb, "Off hours share: %s\n", pct(b.OffHoursShare))
	fmt.Fprintf(&sb, "Hourly counts: %v\n", b.Hourly)
	fmt.Fprintf(&sb, "Weekday counts (Mon..Sun): %v\n", b.Weekday)
	if in.Subjects.Count > 0 {
		fmt.Fprintf(&sb, "Subjects: avg %.0f chars, %s questions, %s with digits\n",
			in.Subjects.AvgLength, pct(in.Subjects.QuestionRatio), pct(in.Subjects.DigitRatio))
	}
	if in.Cadence.OK {
		fmt.Fprintf(&sb, "Messages per week: %.1f\n", in.Cadence.PerWeek)
	}
	return sb.String()
}

// parseFindings accepts a JSON array, optionally wrapped in prose or a code fence,
// and regroups the findings by category.
func parseFindings(raw string) (List, error) {
	start, end := strings.Index(raw, "["), strings.LastIndex(raw, "]")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("no json array in response")
	}
	var findings []llmFinding
	if err := json.Unmarshal([]byte(raw[start:end+1]), &findings); err != nil {
		return nil, fmt.Errorf("decode findings: %w", err)
	}
	grouped := map[Category][]string{}
	for _, f := range findings {
		c, ok := ParseCategory(strings.TrimSpace(f.Category))
		text := strings.TrimSpace(f.Text)
		if !ok || text == "" {
			continue
		}
		grouped[c] = append(grouped[c], text)
	}
	b := newBuilder()
	for _, c := range Categories() {
		for _, text := range grouped[c] {
			b.addText(c, text)
		}
	}
	if len(b.list) == 0 {
		return nil, fmt.Errorf("no usable findings")
	}
	return b.list, nil
}
