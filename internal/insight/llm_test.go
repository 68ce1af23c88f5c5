package insight

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"
)

type fakeCompleter struct {
	reply  string
	err    error
	calls  int
	prompt string
}

func (f *fakeCompleter) Ask(ctx context.Context, system, prompt string) (string, error) {
	_ = ctx
	_ = system
	f.calls++
	f.prompt = prompt
	return f.reply, f.err
}

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLLMGeneratorParsesFindings(t *testing.T) {
	llm := &fakeCompleter{reply: "Here you go:\n```json\n[" +
		`{"category":"action_plan","text":"Reply on Tuesday mornings."},` +
		`{"category":"send_pattern","text":"Mostly sent at 09:00."},` +
		`{"category":"bogus","text":"ignored"},` +
		`{"category":"send_pattern","text":"Rarely on weekends."},` +
		`{"category":"engagement","text":"  "}` +
		"]\n```"}
	gen := NewLLMGenerator(llm, slogDiscard())
	in := Input{Bundle: bundleOf(repeat(4, [3]int{9, 1, 2})...), Domain: "example.com"}

	got := gen.Generate(context.Background(), in)
	want := List{
		{Category: SendPattern, Text: "Mostly sent at 09:00.", Rank: 1},
		{Category: SendPattern, Text: "Rarely on weekends.", Rank: 2},
		{Category: ActionPlan, Text: "Reply on Tuesday mornings.", Rank: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected list: %+v", got)
	}
	if !strings.Contains(llm.prompt, "Peak weekday: Tuesday") || !strings.Contains(llm.prompt, "example.com") {
		t.Fatalf("prompt missing statistics: %s", llm.prompt)
	}
}

func TestLLMGeneratorFallsBackToRules(t *testing.T) {
	in := Input{Bundle: bundleOf(repeat(4, [3]int{9, 1, 2})...)}
	rules := NewRuleEngine().Generate(context.Background(), in)
	tests := []struct {
		name string
		llm  *fakeCompleter
	}{
		{name: "error", llm: &fakeCompleter{err: errors.New("boom")}},
		{name: "no array", llm: &fakeCompleter{reply: "I cannot help with that."}},
		{name: "bad json", llm: &fakeCompleter{reply: "[{\"category\":}]"}},
		{name: "no usable findings", llm: &fakeCompleter{reply: `[{"category":"other","text":"x"}]`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewLLMGenerator(tt.llm, slogDiscard()).Generate(context.Background(), in)
			if !reflect.DeepEqual(got, rules) {
				t.Fatalf("expected rule engine output, got %+v", got)
			}
		})
	}
}

func TestLLMGeneratorSkipsModelForEmptyBundle(t *testing.T) {
	llm := &fakeCompleter{reply: `[{"category":"content","text":"x"}]`}
	got := NewLLMGenerator(llm, slogDiscard()).Generate(context.Background(), Input{})
	if llm.calls != 0 {
		t.Fatalf("model should not be called without data")
	}
	if !reflect.DeepEqual(got, DefaultList()) {
		t.Fatalf("expected default list, got %+v", got)
	}
}

func TestCategoryText(t *testing.T) {
	for _, c := range Categories() {
		b, err := c.MarshalText()
		if err != nil {
			t.Fatalf("marshal %d: %v", c, err)
		}
		var back Category
		if err := back.UnmarshalText(b); err != nil || back != c {
			t.Fatalf("round trip of %s failed: %v", c, err)
		}
	}
	var c Category
	if err := c.UnmarshalText([]byte("nope")); err == nil {
		t.Fatalf("expected error for unknown category")
	}
}
