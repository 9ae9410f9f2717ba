package dto

import (
	"github.com/google/uuid"
)

type MessageDTO struct {
	Role    string `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content" validate:"required"`
}

type BuildContextRequest struct {
	SessionId uuid.UUID    `json:"session_id" validate:"required"`
	PresetId  string       `json:"preset_id,omitempty"`
	Question  string       `json:"question" validate:"required"`
	History   []MessageDTO `json:"history,omitempty" validate:"max=100,dive"`

	// Overrides are per-request guardrail settings. Untrusted; sanitized
	// server-side with an audit trail in the response metadata.
	Overrides map[string]interface{} `json:"overrides,omitempty"`

	DocType     string `json:"doc_type,omitempty"`
	PersonaType string `json:"persona_type,omitempty"`

	Verbose bool `json:"verbose,omitempty"`
}

type SourceDTO struct {
	DocId     string  `json:"doc_id"`
	Title     string  `json:"title,omitempty"`
	SourceUrl string  `json:"source_url,omitempty"`
	Score     float64 `json:"score"`
	Tokens    int     `json:"tokens"`
}

type SelectionMetricsDTO struct {
	InputCount         int `json:"input_count"`
	UniqueBeforeDedupe int `json:"unique_before_dedupe"`
	UniqueAfterDedupe  int `json:"unique_after_dedupe"`
	DroppedByDedupe    int `json:"dropped_by_dedupe"`
	DroppedByQuota     int `json:"dropped_by_quota"`
	UniqueDocuments    int `json:"unique_documents"`
}

type SanitizationChangeDTO struct {
	Field  string      `json:"field"`
	From   interface{} `json:"from"`
	To     interface{} `json:"to"`
	Reason string      `json:"reason"`
}

type GuardrailMetadataDTO struct {
	Intent         string  `json:"intent"`
	Confidence     float64 `json:"confidence"`
	RouteReason    string  `json:"route_reason"`
	RewriteApplied bool    `json:"rewrite_applied"`
	HydeApplied    bool    `json:"hyde_applied"`
	Cached         bool    `json:"cached"`
	ConfigCached   bool    `json:"config_cached"`

	Sanitization []SanitizationChangeDTO `json:"sanitization,omitempty"`
	Metrics      *SelectionMetricsDTO    `json:"metrics,omitempty"`
}

type BuildContextResponse struct {
	Intent             string `json:"intent"`
	NormalizedQuestion string `json:"normalized_question"`
	Language           string `json:"language"`

	ContextBlock string      `json:"context_block"`
	Sources      []SourceDTO `json:"sources,omitempty"`
	TotalTokens  int         `json:"total_tokens"`
	DroppedCount int         `json:"dropped_count"`
	HighestScore float64     `json:"highest_score"`
	Insufficient bool        `json:"insufficient"`
	FallbackText string      `json:"fallback_text,omitempty"`

	History        []MessageDTO `json:"history"`
	HistorySummary string       `json:"history_summary,omitempty"`
	TrimmedTurns   int          `json:"trimmed_turns"`

	EnhancedQuery string `json:"enhanced_query,omitempty"`

	Metadata GuardrailMetadataDTO `json:"metadata"`
}
