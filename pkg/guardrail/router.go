// FILE: pkg/guardrail/router.go
// PURPOSE: Rule-based intent routing: knowledge, chitchat, or command

package guardrail

import (
	"strings"

	"rag-context-be/internal/constant"
	"rag-context-be/pkg/llm"
)

// Intent is the routing decision for a turn.
type Intent string

const (
	IntentKnowledge Intent = constant.IntentKnowledge
	IntentChitchat  Intent = constant.IntentChitchat
	IntentCommand   Intent = constant.IntentCommand
)

// RoutedQuestion carries the routing decision. Confidence is a fixed
// constant per rule, not a learned score.
type RoutedQuestion struct {
	Question   NormalizedQuestion
	Intent     Intent
	Confidence float64
	Reason     string
}

// stickyLookbackTurns is how many prior user turns the stickiness rule
// inspects for short follow-ups like "thanks" or "ok cool".
const stickyLookbackTurns = 2

// Route classifies a normalized question. Rules run in strict priority
// order; the first match wins.
func Route(q NormalizedQuestion, history []llm.Message, cfg GuardrailConfig) RoutedQuestion {
	// 1. Nothing left after normalization: route to knowledge with low
	// confidence so the caller still gets a grounded-or-hedged answer.
	if q.Canonical == "" {
		return RoutedQuestion{
			Question:   q,
			Intent:     IntentKnowledge,
			Confidence: 0.2,
			Reason:     constant.ReasonEmptyAfterNormalization,
		}
	}

	// 2. Command keywords. Substring matching is intentionally naive (see
	// constant.CommandKeywords); preserved as-is, pinned by tests.
	for _, kw := range constant.CommandKeywords {
		if kw != "" && strings.Contains(q.Canonical, kw) {
			return RoutedQuestion{
				Question:   q,
				Intent:     IntentCommand,
				Confidence: 0.8,
				Reason:     constant.ReasonCommandKeywordDetected,
			}
		}
	}

	// 3. Chitchat prefix rule against the configured keyword list.
	if matchesChitchat(q.Canonical, cfg.ChitchatKeywords) {
		return RoutedQuestion{
			Question:   q,
			Intent:     IntentChitchat,
			Confidence: 0.75,
			Reason:     constant.ReasonChitchatPatternDetected,
		}
	}

	// 4. Stickiness: a short follow-up inherits chitchat from either of the
	// previous two user turns.
	if wordCount(q.Canonical) <= 2 {
		inspected := 0
		for i := len(history) - 1; i >= 0 && inspected < stickyLookbackTurns; i-- {
			if history[i].Role != constant.ChatMessageRoleUser {
				continue
			}
			inspected++
			if matchesChitchat(Canonicalize(history[i].Content), cfg.ChitchatKeywords) {
				return RoutedQuestion{
					Question:   q,
					Intent:     IntentChitchat,
					Confidence: 0.75,
					Reason:     constant.ReasonStickyChitchatContext,
				}
			}
		}
	}

	// 5. Default: retrieval-worthy question.
	return RoutedQuestion{
		Question:   q,
		Intent:     IntentKnowledge,
		Confidence: 0.6,
		Reason:     constant.ReasonDefaultKnowledgeRoute,
	}
}

// matchesChitchat reports whether canonical matches a keyword as a prefix
// with at most two trailing words. "hi there" matches "hi"; "hi can you
// explain transformers" does not.
func matchesChitchat(canonical string, keywords []string) bool {
	if canonical == "" {
		return false
	}
	for _, raw := range keywords {
		kw := Canonicalize(raw)
		if kw == "" {
			continue
		}
		if canonical == kw {
			return true
		}
		if rest, ok := strings.CutPrefix(canonical, kw+" "); ok {
			if wordCount(rest) <= 2 {
				return true
			}
		}
	}
	return false
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
