// FILE: pkg/guardrail/history.go
// PURPOSE: Token-budgeted history windowing with trimmed-turn summarization

package guardrail

import (
	"strings"

	"rag-context-be/internal/constant"
	"rag-context-be/pkg/llm"
	"rag-context-be/pkg/tokenizer"
)

// messageTokenOverhead covers role and separator tokens the chat template
// adds around each message.
const messageTokenOverhead = 4

// summaryMinLineChars is the floor for the per-line character budget when
// rendering the trimmed-turn summary.
const summaryMinLineChars = 32

// HistoryWindowResult describes which prior turns fit the history token
// budget. SummaryText is empty when nothing was trimmed or summarization is
// disabled.
type HistoryWindowResult struct {
	Preserved   []llm.Message
	Trimmed     []llm.Message
	TokenCount  int
	SummaryText string
}

// WindowHistory selects the suffix of messages that fits the history token
// budget, walking backward from the newest message. The newest message is
// always preserved, even if it alone exceeds the budget.
func WindowHistory(messages []llm.Message, cfg GuardrailConfig, counter tokenizer.Counter) HistoryWindowResult {
	if len(messages) == 0 {
		return HistoryWindowResult{}
	}

	budget := cfg.HistoryTokenBudget
	tokensUsed := 0
	totalTokens := 0
	preservedSet := make([]bool, len(messages))

	for i := len(messages) - 1; i >= 0; i-- {
		cost := messageTokenCost(messages[i], counter)
		totalTokens += cost

		if i == len(messages)-1 {
			// Force-include the newest message regardless of cost.
			preservedSet[i] = true
			tokensUsed += cost
			continue
		}
		if tokensUsed+cost <= budget {
			preservedSet[i] = true
			tokensUsed += cost
		}
	}

	result := HistoryWindowResult{TokenCount: tokensUsed}
	for i, msg := range messages {
		if preservedSet[i] {
			result.Preserved = append(result.Preserved, msg)
		} else {
			result.Trimmed = append(result.Trimmed, msg)
		}
	}

	if len(result.Trimmed) > 0 && cfg.Summary.Enabled && totalTokens >= cfg.Summary.TriggerTokens {
		result.SummaryText = summarizeTrimmed(result.Trimmed, cfg.Summary)
	}

	return result
}

func messageTokenCost(msg llm.Message, counter tokenizer.Counter) int {
	return counter.Count(msg.Role+": "+msg.Content) + messageTokenOverhead
}

// summarizeTrimmed renders the most recent trimmed turns as a compact
// "U:"/"A:" transcript, clipped per line and hard-capped at MaxChars.
func summarizeTrimmed(trimmed []llm.Message, cfg SummaryConfig) string {
	turns := trimmed
	if len(turns) > cfg.MaxTurns {
		turns = turns[len(turns)-cfg.MaxTurns:]
	}

	perLine := cfg.MaxChars / len(turns)
	if perLine < summaryMinLineChars {
		perLine = summaryMinLineChars
	}

	lines := make([]string, 0, len(turns))
	for _, msg := range turns {
		prefix := "A: "
		if msg.Role == constant.ChatMessageRoleUser {
			prefix = "U: "
		}
		lines = append(lines, prefix+clipRunes(msg.Content, perLine))
	}

	return clipRunes(strings.Join(lines, "\n"), cfg.MaxChars)
}

func clipRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
