// FILE: pkg/guardrail/fallback.go
// PURPOSE: Fixed guidance context for non-knowledge intents

package guardrail

// FallbackResult returns the context window for intents that skip retrieval
// entirely. The generation stage always receives some context text, so the
// configured guidance string stands in for retrieved chunks. Insufficient
// is always true: there is nothing to ground an answer on.
func FallbackResult(intent Intent, cfg GuardrailConfig) *ContextWindowResult {
	block := cfg.ChitchatFallback
	if intent == IntentCommand {
		block = cfg.CommandFallback
	}
	return &ContextWindowResult{
		ContextBlock: block,
		Included:     []IncludedChunk{},
		Insufficient: true,
	}
}
