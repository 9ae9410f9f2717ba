// FILE: pkg/tokenizer/tokenizer.go
// PURPOSE: Token counting and token-bounded truncation for budget checks

package tokenizer

// Counter estimates LLM token usage for a piece of text and can truncate
// text so that it fits a token budget. Count and Truncate must agree:
// Count(Truncate(s, n)) <= n for every s and n.
type Counter interface {
	Count(text string) int
	Truncate(text string, n int) string
}

// runesPerToken is the approximation ratio. Subword tokenizers average
// roughly 4 characters per token on mixed prose; we round up so budgets
// are conservative (we over-count rather than under-count).
const runesPerToken = 4

// HeuristicCounter approximates token counts from rune length.
// It is deliberately model-agnostic: the engine only needs a consistent
// budget yardstick, not exact tokenizer parity.
type HeuristicCounter struct{}

func NewHeuristicCounter() *HeuristicCounter {
	return &HeuristicCounter{}
}

func (c *HeuristicCounter) Count(text string) int {
	n := len([]rune(text))
	if n == 0 {
		return 0
	}
	return (n + runesPerToken - 1) / runesPerToken
}

// Truncate cuts text to at most n tokens worth of runes. Because Count
// rounds up on the same ratio, the returned prefix never counts above n.
func (c *HeuristicCounter) Truncate(text string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(text)
	limit := n * runesPerToken
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
