// FILE: pkg/guardrail/config.go
// PURPOSE: Guardrail configuration: defaults, session overlay, sanitization

package guardrail

import (
	"fmt"
	"math"

	"rag-context-be/internal/constant"
)

// RerankMode selects the reranking strategy (§ Reranker).
type RerankMode string

const (
	RerankNone   RerankMode = "none"
	RerankMMR    RerankMode = "mmr"
	RerankCohere RerankMode = "cohere-rerank"
)

// SummaryConfig controls the trimmed-history summary.
type SummaryConfig struct {
	Enabled       bool `json:"enabled"`
	TriggerTokens int  `json:"trigger_tokens"`
	MaxChars      int  `json:"max_chars"`
	MaxTurns      int  `json:"max_turns"`
}

// GuardrailConfig is built fresh per request by merging admin defaults with
// session overrides. Never mutated after construction.
type GuardrailConfig struct {
	SimilarityThreshold float64 `json:"similarity_threshold"`
	TopK                int     `json:"top_k"`
	ContextTokenBudget  int     `json:"context_token_budget"`
	ClipTokens          int     `json:"clip_tokens"`
	HistoryTokenBudget  int     `json:"history_token_budget"`

	Summary SummaryConfig `json:"summary"`

	RerankMode RerankMode `json:"rerank_mode"`

	ChitchatKeywords []string `json:"chitchat_keywords"`
	ChitchatFallback string   `json:"chitchat_fallback"`
	CommandFallback  string   `json:"command_fallback"`

	VerboseSelectionMetrics bool `json:"verbose_selection_metrics"`
}

// Safe-mode ceilings applied when a session requests safe mode.
const (
	safeModeContextTokenCap = 2048
	safeModeHistoryTokenCap = 1024
)

// DefaultGuardrailConfig returns the compiled-in defaults. These also serve
// as the fallback when the config store is unreachable.
func DefaultGuardrailConfig() GuardrailConfig {
	return GuardrailConfig{
		SimilarityThreshold: 0.35,
		TopK:                8,
		ContextTokenBudget:  3072,
		ClipTokens:          512,
		HistoryTokenBudget:  2048,
		Summary: SummaryConfig{
			Enabled:       true,
			TriggerTokens: 256,
			MaxChars:      600,
			MaxTurns:      6,
		},
		RerankMode:       RerankNone,
		ChitchatKeywords: constant.DefaultChitchatKeywords,
		ChitchatFallback: constant.DefaultChitchatFallback,
		CommandFallback:  constant.DefaultCommandFallback,
	}
}

// Sanitization reasons. An audit trail entry, not an error.
const (
	SanitizeInvalidType = "invalid-type"
	SanitizeOutOfRange  = "out-of-range"
	SanitizeRounded     = "rounded"
	SanitizeInvalidEnum = "invalid-enum"
)

// SanitizationChange records one field the sanitizer altered.
type SanitizationChange struct {
	Field  string      `json:"field"`
	From   interface{} `json:"from"`
	To     interface{} `json:"to"`
	Reason string      `json:"reason"`
}

// SessionOverrides are per-session values overlaid onto the admin defaults.
// Numeric overrides arrive as untrusted floats; only finite values are
// applied. SummaryLevel "on"/"off" overrides the admin summary flag.
type SessionOverrides struct {
	SimilarityThreshold *float64
	TopK                *float64
	ContextTokenBudget  *float64
	ClipTokens          *float64
	HistoryTokenBudget  *float64
	SummaryLevel        *string
	RerankMode          *string
	SafeMode            bool
}

// OverridesFromMap decodes an untrusted key/value record (session settings
// row, request body) into SessionOverrides. Values that are present but not
// finite numbers are dropped with an invalid-type audit entry.
func OverridesFromMap(raw map[string]interface{}) (SessionOverrides, []SanitizationChange) {
	var s SessionOverrides
	var changes []SanitizationChange

	num := func(field string, keys ...string) *float64 {
		for _, key := range keys {
			v, ok := raw[key]
			if !ok {
				continue
			}
			f, ok := toFiniteFloat(v)
			if !ok {
				changes = append(changes, SanitizationChange{
					Field:  field,
					From:   v,
					To:     nil,
					Reason: SanitizeInvalidType,
				})
				return nil
			}
			return &f
		}
		return nil
	}

	s.SimilarityThreshold = num("similarityThreshold", "similarity_threshold", "similarityThreshold")
	s.TopK = num("topK", "top_k", "topK")
	s.ContextTokenBudget = num("contextTokenBudget", "context_token_budget", "contextTokenBudget")
	s.ClipTokens = num("clipTokens", "clip_tokens", "clipTokens")
	s.HistoryTokenBudget = num("historyTokenBudget", "history_token_budget", "historyTokenBudget")

	if v, ok := raw["summary_level"]; ok {
		if str, ok := v.(string); ok {
			s.SummaryLevel = &str
		} else {
			changes = append(changes, SanitizationChange{
				Field: "summaryLevel", From: v, To: nil, Reason: SanitizeInvalidType,
			})
		}
	}
	if v, ok := raw["rerank_mode"]; ok {
		if str, ok := v.(string); ok {
			s.RerankMode = &str
		} else {
			changes = append(changes, SanitizationChange{
				Field: "rerankMode", From: v, To: nil, Reason: SanitizeInvalidType,
			})
		}
	}
	if v, ok := raw["safe_mode"]; ok {
		if b, ok := v.(bool); ok {
			s.SafeMode = b
		}
	}

	return s, changes
}

func toFiniteFloat(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Resolve merges admin defaults with session overrides, applies safe-mode
// caps, and sanitizes the result. The returned config is always valid; the
// change list is the audit trail of everything that was adjusted.
func Resolve(defaults GuardrailConfig, session SessionOverrides) (GuardrailConfig, []SanitizationChange) {
	cfg := defaults
	var changes []SanitizationChange

	if session.SimilarityThreshold != nil {
		cfg.SimilarityThreshold = *session.SimilarityThreshold
	}
	cfg.TopK = overlayInt("topK", cfg.TopK, session.TopK, &changes)
	cfg.ContextTokenBudget = overlayInt("contextTokenBudget", cfg.ContextTokenBudget, session.ContextTokenBudget, &changes)
	cfg.ClipTokens = overlayInt("clipTokens", cfg.ClipTokens, session.ClipTokens, &changes)
	cfg.HistoryTokenBudget = overlayInt("historyTokenBudget", cfg.HistoryTokenBudget, session.HistoryTokenBudget, &changes)

	if session.SummaryLevel != nil {
		switch *session.SummaryLevel {
		case "on":
			cfg.Summary.Enabled = true
		case "off":
			cfg.Summary.Enabled = false
		default:
			changes = append(changes, SanitizationChange{
				Field:  "summaryLevel",
				From:   *session.SummaryLevel,
				To:     cfg.Summary.Enabled,
				Reason: SanitizeInvalidEnum,
			})
		}
	}

	if session.RerankMode != nil {
		cfg.RerankMode = RerankMode(*session.RerankMode)
	}

	if session.SafeMode {
		if cfg.ContextTokenBudget > safeModeContextTokenCap {
			cfg.ContextTokenBudget = safeModeContextTokenCap
		}
		if cfg.HistoryTokenBudget > safeModeHistoryTokenCap {
			cfg.HistoryTokenBudget = safeModeHistoryTokenCap
		}
	}

	sanitized, sanChanges := SanitizeChatSettings(cfg)
	return sanitized, append(changes, sanChanges...)
}

// overlayInt applies a session float onto an integral field, rounding to the
// nearest integer and auditing the rounding.
func overlayInt(field string, current int, override *float64, changes *[]SanitizationChange) int {
	if override == nil {
		return current
	}
	rounded := int(math.Round(*override))
	if float64(rounded) != *override {
		*changes = append(*changes, SanitizationChange{
			Field:  field,
			From:   *override,
			To:     rounded,
			Reason: SanitizeRounded,
		})
	}
	return rounded
}

// SanitizeChatSettings clamps every field of a GuardrailConfig into its
// documented range and coerces enums to their nearest valid value. It never
// fails: the output is always a usable config, the change list is the only
// observable side effect. Sanitizing an already-sanitized config yields
// zero changes.
func SanitizeChatSettings(cfg GuardrailConfig) (GuardrailConfig, []SanitizationChange) {
	var changes []SanitizationChange
	def := DefaultGuardrailConfig()
	out := cfg

	out.SimilarityThreshold = sanitizeFloat("similarityThreshold", cfg.SimilarityThreshold, 0, 1, def.SimilarityThreshold, &changes)
	out.TopK = sanitizeInt("topK", cfg.TopK, 1, 50, &changes)
	out.ContextTokenBudget = sanitizeInt("contextTokenBudget", cfg.ContextTokenBudget, 256, 32768, &changes)
	out.ClipTokens = sanitizeInt("clipTokens", cfg.ClipTokens, 64, 4096, &changes)
	out.HistoryTokenBudget = sanitizeInt("historyTokenBudget", cfg.HistoryTokenBudget, 128, 16384, &changes)
	out.Summary.TriggerTokens = sanitizeInt("summary.triggerTokens", cfg.Summary.TriggerTokens, 64, 8192, &changes)
	out.Summary.MaxChars = sanitizeInt("summary.maxChars", cfg.Summary.MaxChars, 80, 4000, &changes)
	out.Summary.MaxTurns = sanitizeInt("summary.maxTurns", cfg.Summary.MaxTurns, 1, 20, &changes)

	switch cfg.RerankMode {
	case RerankNone, RerankMMR, RerankCohere:
	default:
		changes = append(changes, SanitizationChange{
			Field:  "rerankMode",
			From:   string(cfg.RerankMode),
			To:     string(RerankNone),
			Reason: SanitizeInvalidEnum,
		})
		out.RerankMode = RerankNone
	}

	if len(out.ChitchatKeywords) == 0 {
		out.ChitchatKeywords = def.ChitchatKeywords
	}
	if out.ChitchatFallback == "" {
		out.ChitchatFallback = def.ChitchatFallback
	}
	if out.CommandFallback == "" {
		out.CommandFallback = def.CommandFallback
	}

	return out, changes
}

func sanitizeFloat(field string, v, min, max, fallback float64, changes *[]SanitizationChange) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		*changes = append(*changes, SanitizationChange{
			Field: field, From: fmt.Sprintf("%v", v), To: fallback, Reason: SanitizeInvalidType,
		})
		return fallback
	}
	if v < min {
		*changes = append(*changes, SanitizationChange{
			Field: field, From: v, To: min, Reason: SanitizeOutOfRange,
		})
		return min
	}
	if v > max {
		*changes = append(*changes, SanitizationChange{
			Field: field, From: v, To: max, Reason: SanitizeOutOfRange,
		})
		return max
	}
	return v
}

func sanitizeInt(field string, v, min, max int, changes *[]SanitizationChange) int {
	if v < min {
		*changes = append(*changes, SanitizationChange{
			Field: field, From: v, To: min, Reason: SanitizeOutOfRange,
		})
		return min
	}
	if v > max {
		*changes = append(*changes, SanitizationChange{
			Field: field, From: v, To: max, Reason: SanitizeOutOfRange,
		})
		return max
	}
	return v
}
