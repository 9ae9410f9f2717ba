package guardrail

import (
	"strings"
	"testing"

	"rag-context-be/pkg/llm"
	"rag-context-be/pkg/tokenizer"
)

func TestWindowHistoryEmpty(t *testing.T) {
	got := WindowHistory(nil, DefaultGuardrailConfig(), tokenizer.NewHeuristicCounter())
	if len(got.Preserved) != 0 || len(got.Trimmed) != 0 || got.TokenCount != 0 || got.SummaryText != "" {
		t.Errorf("unexpected result for empty history: %+v", got)
	}
}

func TestWindowHistoryAllFit(t *testing.T) {
	cfg := DefaultGuardrailConfig()
	messages := []llm.Message{
		{Role: "user", Content: "what is pgvector"},
		{Role: "assistant", Content: "A Postgres extension for vector search."},
		{Role: "user", Content: "how fast is it"},
	}

	got := WindowHistory(messages, cfg, tokenizer.NewHeuristicCounter())
	if len(got.Preserved) != 3 {
		t.Fatalf("Preserved = %d messages, want 3", len(got.Preserved))
	}
	if len(got.Trimmed) != 0 {
		t.Errorf("Trimmed = %d messages, want 0", len(got.Trimmed))
	}
	if got.SummaryText != "" {
		t.Errorf("SummaryText = %q, want empty when nothing trimmed", got.SummaryText)
	}
	// chronological order survives
	if got.Preserved[0].Content != messages[0].Content || got.Preserved[2].Content != messages[2].Content {
		t.Errorf("Preserved order broken: %+v", got.Preserved)
	}
}

func TestWindowHistoryTrimsOldest(t *testing.T) {
	counter := tokenizer.NewHeuristicCounter()
	cfg := DefaultGuardrailConfig()
	// each message costs 31 tokens with the heuristic counter
	cfg.HistoryTokenBudget = 70
	cfg.Summary.TriggerTokens = 64

	long := strings.Repeat("a", 100)
	messages := []llm.Message{
		{Role: "user", Content: long},
		{Role: "user", Content: long},
		{Role: "user", Content: long},
	}

	got := WindowHistory(messages, cfg, counter)
	if len(got.Preserved) != 2 {
		t.Fatalf("Preserved = %d messages, want 2", len(got.Preserved))
	}
	if len(got.Trimmed) != 1 {
		t.Fatalf("Trimmed = %d messages, want 1", len(got.Trimmed))
	}
	if got.TokenCount > cfg.HistoryTokenBudget {
		t.Errorf("TokenCount = %d exceeds budget %d", got.TokenCount, cfg.HistoryTokenBudget)
	}
	if got.SummaryText == "" {
		t.Error("expected a summary for trimmed turns past the trigger")
	}
}

func TestWindowHistoryNewestAlwaysPreserved(t *testing.T) {
	counter := tokenizer.NewHeuristicCounter()
	cfg := DefaultGuardrailConfig()
	cfg.HistoryTokenBudget = 128

	huge := strings.Repeat("b", 4000)
	messages := []llm.Message{
		{Role: "user", Content: "small question"},
		{Role: "user", Content: huge},
	}

	got := WindowHistory(messages, cfg, counter)
	if len(got.Preserved) == 0 || got.Preserved[len(got.Preserved)-1].Content != huge {
		t.Fatal("newest message must be preserved even over budget")
	}
	if got.TokenCount <= cfg.HistoryTokenBudget {
		t.Errorf("TokenCount = %d, expected over-budget newest to be counted", got.TokenCount)
	}
	for _, msg := range got.Trimmed {
		if msg.Content == huge {
			t.Error("newest message appeared in Trimmed")
		}
	}
}

func TestWindowHistorySummaryDisabled(t *testing.T) {
	cfg := DefaultGuardrailConfig()
	cfg.HistoryTokenBudget = 70
	cfg.Summary.Enabled = false

	long := strings.Repeat("a", 100)
	messages := []llm.Message{
		{Role: "user", Content: long},
		{Role: "user", Content: long},
		{Role: "user", Content: long},
	}

	got := WindowHistory(messages, cfg, tokenizer.NewHeuristicCounter())
	if len(got.Trimmed) == 0 {
		t.Fatal("expected trimming")
	}
	if got.SummaryText != "" {
		t.Errorf("SummaryText = %q, want empty when summarization disabled", got.SummaryText)
	}
}

func TestWindowHistorySummaryBelowTrigger(t *testing.T) {
	cfg := DefaultGuardrailConfig()
	cfg.HistoryTokenBudget = 70
	cfg.Summary.TriggerTokens = 8000

	long := strings.Repeat("a", 100)
	messages := []llm.Message{
		{Role: "user", Content: long},
		{Role: "user", Content: long},
		{Role: "user", Content: long},
	}

	got := WindowHistory(messages, cfg, tokenizer.NewHeuristicCounter())
	if len(got.Trimmed) == 0 {
		t.Fatal("expected trimming")
	}
	if got.SummaryText != "" {
		t.Errorf("SummaryText = %q, want empty below trigger", got.SummaryText)
	}
}

func TestSummarizeTrimmed(t *testing.T) {
	cfg := SummaryConfig{Enabled: true, TriggerTokens: 64, MaxChars: 120, MaxTurns: 2}

	trimmed := []llm.Message{
		{Role: "user", Content: "this oldest turn is beyond max turns and must not appear"},
		{Role: "user", Content: strings.Repeat("q", 300)},
		{Role: "assistant", Content: strings.Repeat("r", 300)},
	}

	got := summarizeTrimmed(trimmed, cfg)

	if len([]rune(got)) > cfg.MaxChars {
		t.Errorf("summary length = %d runes, exceeds MaxChars %d", len([]rune(got)), cfg.MaxChars)
	}
	if strings.Contains(got, "oldest turn") {
		t.Error("turn beyond MaxTurns leaked into summary")
	}
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	if !strings.HasPrefix(lines[0], "U: ") {
		t.Errorf("line 0 = %q, want U: prefix", lines[0])
	}
	if !strings.HasPrefix(lines[1], "A: ") {
		t.Errorf("line 1 = %q, want A: prefix", lines[1])
	}
}
