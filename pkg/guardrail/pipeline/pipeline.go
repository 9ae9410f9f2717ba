// FILE: pkg/guardrail/pipeline/pipeline.go
// PURPOSE: Orchestrate one request through routing, enhancement,
// retrieval, reranking and context assembly

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"rag-context-be/internal/pkg/logger"
	"rag-context-be/pkg/configstore"
	"rag-context-be/pkg/embedding"
	"rag-context-be/pkg/events"
	"rag-context-be/pkg/guardrail"
	"rag-context-be/pkg/guardrail/enhance"
	"rag-context-be/pkg/guardrail/rerank"
	"rag-context-be/pkg/llm"
	"rag-context-be/pkg/store"
	"rag-context-be/pkg/tokenizer"
	"rag-context-be/pkg/vectorstore"
)

// retrievalOverfetch widens the vector match beyond TopK so dedup and
// reranking have spare candidates to work with.
const retrievalOverfetch = 3

// EventPublisher is the telemetry sink. Publishing is best effort; a
// failed publish never fails the request.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Request is one turn entering the engine.
type Request struct {
	SessionID uuid.UUID
	PresetID  string
	Question  string
	History   []llm.Message

	// Overrides are request-scoped settings overlaid on top of the
	// session's stored overrides. Untrusted, sanitized like any other
	// override source.
	Overrides map[string]interface{}

	Filter vectorstore.Filter

	// Verbose asks for selection metrics in the result regardless of the
	// admin default.
	Verbose bool
}

// Result is everything a caller needs to build the final prompt, plus the
// observability trail.
type Result struct {
	Intent      guardrail.Intent `json:"intent"`
	Confidence  float64          `json:"confidence"`
	RouteReason string           `json:"route_reason"`

	NormalizedQuestion string             `json:"normalized_question"`
	Language           guardrail.Language `json:"language"`

	EnhancedQuery  string `json:"enhanced_query,omitempty"`
	RewriteApplied bool   `json:"rewrite_applied"`
	HydeApplied    bool   `json:"hyde_applied"`

	History        []llm.Message `json:"history"`
	HistorySummary string        `json:"history_summary,omitempty"`
	TrimmedTurns   int           `json:"trimmed_turns"`

	ContextBlock string          `json:"context_block"`
	Sources      []SourceRef     `json:"sources"`
	DroppedCount int             `json:"dropped_count"`
	TotalTokens  int             `json:"total_tokens"`
	HighestScore float64         `json:"highest_score"`
	Insufficient bool            `json:"insufficient"`
	FallbackText string          `json:"fallback_text,omitempty"`

	Metrics *guardrail.SelectionMetrics `json:"metrics,omitempty"`

	SanitizationChanges []guardrail.SanitizationChange `json:"sanitization_changes,omitempty"`
	ConfigFromCache     bool                           `json:"config_from_cache"`
	Cached              bool                           `json:"cached"`
}

// SourceRef identifies one chunk included in the context block.
type SourceRef struct {
	DocID     string  `json:"doc_id"`
	Title     string  `json:"title,omitempty"`
	SourceURL string  `json:"source_url,omitempty"`
	Score     float64 `json:"score"`
	Tokens    int     `json:"tokens"`
}

// Engine wires the pipeline stages together. All collaborators are
// injected; every stage except embedding and vector match is fail-open.
type Engine struct {
	cfgStore  configstore.Store
	embedder  embedding.EmbeddingProvider
	vectors   vectorstore.VectorStore
	enhancer  *enhance.Enhancer
	reranker  *rerank.Reranker
	assembler *guardrail.Assembler
	counter   tokenizer.Counter
	respCache store.ResponseCache
	publisher EventPublisher
	logger    logger.ILogger
}

// NewEngine builds an engine. respCache and publisher may be nil; the
// corresponding stages are skipped.
func NewEngine(
	cfgStore configstore.Store,
	embedder embedding.EmbeddingProvider,
	vectors vectorstore.VectorStore,
	enhancer *enhance.Enhancer,
	reranker *rerank.Reranker,
	counter tokenizer.Counter,
	respCache store.ResponseCache,
	publisher EventPublisher,
	log logger.ILogger,
) *Engine {
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{
		cfgStore:  cfgStore,
		embedder:  embedder,
		vectors:   vectors,
		enhancer:  enhancer,
		reranker:  reranker,
		assembler: guardrail.NewAssembler(counter, log),
		counter:   counter,
		respCache: respCache,
		publisher: publisher,
		logger:    log,
	}
}

// Execute runs one turn through the full pipeline.
func (e *Engine) Execute(ctx context.Context, req Request) (*Result, error) {
	cfg, changes, fromCache := e.resolveConfig(ctx, req)
	if req.Verbose {
		cfg.VerboseSelectionMetrics = true
	}

	question := guardrail.Normalize(req.Question)
	routed := guardrail.Route(question, req.History, cfg)
	window := guardrail.WindowHistory(req.History, cfg, e.counter)

	result := &Result{
		Intent:              routed.Intent,
		Confidence:          routed.Confidence,
		RouteReason:         routed.Reason,
		NormalizedQuestion:  question.Normalized,
		Language:            question.Language,
		History:             window.Preserved,
		HistorySummary:      window.SummaryText,
		TrimmedTurns:        len(window.Trimmed),
		SanitizationChanges: changes,
		ConfigFromCache:     fromCache,
	}

	// Non-knowledge intents never reach retrieval.
	if routed.Intent != guardrail.IntentKnowledge {
		fallback := guardrail.FallbackResult(routed.Intent, cfg)
		result.FallbackText = fallback.ContextBlock
		result.Insufficient = fallback.Insufficient
		e.publish(ctx, events.IntentFallback(req.SessionID.String(), string(routed.Intent), routed.Reason))
		return result, nil
	}

	cacheKey := store.CacheKey(req.PresetID, question.Normalized, cfg.SimilarityThreshold, cfg.TopK, cfg.ContextTokenBudget)
	if cached, ok := e.cacheGet(ctx, cacheKey); ok {
		cached.History = window.Preserved
		cached.HistorySummary = window.SummaryText
		cached.TrimmedTurns = len(window.Trimmed)
		cached.SanitizationChanges = changes
		cached.ConfigFromCache = fromCache
		cached.Cached = true
		e.publish(ctx, events.ContextAssembled(req.SessionID.String(), string(routed.Intent),
			len(cached.Sources), cached.DroppedCount, cached.HighestScore, cached.Insufficient, true))
		return cached, nil
	}

	enhanced := e.enhancer.Enhance(ctx, question.Normalized)
	result.EnhancedQuery = enhanced.Query
	result.RewriteApplied = enhanced.RewriteApplied
	result.HydeApplied = enhanced.HydeApplied

	// HyDE text, when present, replaces the query as the embedding input.
	embedInput := enhanced.Query
	if enhanced.HydeApplied {
		embedInput = enhanced.HydeText
	}

	queryVec, err := e.embedder.Generate(ctx, embedInput, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matchCount := cfg.TopK * retrievalOverfetch
	candidates, err := e.vectors.Match(ctx, queryVec.Values, matchCount, cfg.SimilarityThreshold, req.Filter)
	if err != nil {
		return nil, fmt.Errorf("vector match: %w", err)
	}

	candidates = e.reranker.Rerank(ctx, cfg.RerankMode, queryVec.Values, candidates, matchCount)

	assembled := e.assembler.Assemble(candidates, cfg)
	result.ContextBlock = assembled.ContextBlock
	result.DroppedCount = assembled.DroppedCount
	result.TotalTokens = assembled.TotalTokens
	result.HighestScore = assembled.HighestScore
	result.Insufficient = assembled.Insufficient
	result.Metrics = assembled.Metrics
	for _, chunk := range assembled.Included {
		result.Sources = append(result.Sources, SourceRef{
			DocID:     chunk.Candidate.Metadata.DocID,
			Title:     chunk.Candidate.Metadata.Title,
			SourceURL: chunk.Candidate.Metadata.SourceURL,
			Score:     chunk.Candidate.Score,
			Tokens:    chunk.Tokens,
		})
	}

	e.cacheSet(ctx, cacheKey, result)
	e.publish(ctx, events.ContextAssembled(req.SessionID.String(), string(routed.Intent),
		len(result.Sources), result.DroppedCount, result.HighestScore, result.Insufficient, false))

	return result, nil
}

// resolveConfig merges admin defaults, stored session overrides and
// request-scoped overrides, in that precedence order.
func (e *Engine) resolveConfig(ctx context.Context, req Request) (guardrail.GuardrailConfig, []guardrail.SanitizationChange, bool) {
	defaults, fromCache := e.cfgStore.Defaults(ctx)

	overrides, changes := e.cfgStore.SessionOverrides(ctx, req.SessionID)
	if len(req.Overrides) > 0 {
		reqOverrides, reqChanges := guardrail.OverridesFromMap(req.Overrides)
		overrides = mergeOverrides(overrides, reqOverrides)
		changes = append(changes, reqChanges...)
	}

	cfg, resolveChanges := guardrail.Resolve(defaults, overrides)
	return cfg, append(changes, resolveChanges...), fromCache
}

// mergeOverrides overlays request values onto stored session values.
func mergeOverrides(base, over guardrail.SessionOverrides) guardrail.SessionOverrides {
	if over.SimilarityThreshold != nil {
		base.SimilarityThreshold = over.SimilarityThreshold
	}
	if over.TopK != nil {
		base.TopK = over.TopK
	}
	if over.ContextTokenBudget != nil {
		base.ContextTokenBudget = over.ContextTokenBudget
	}
	if over.ClipTokens != nil {
		base.ClipTokens = over.ClipTokens
	}
	if over.HistoryTokenBudget != nil {
		base.HistoryTokenBudget = over.HistoryTokenBudget
	}
	if over.SummaryLevel != nil {
		base.SummaryLevel = over.SummaryLevel
	}
	if over.RerankMode != nil {
		base.RerankMode = over.RerankMode
	}
	if over.SafeMode {
		base.SafeMode = true
	}
	return base
}

func (e *Engine) cacheGet(ctx context.Context, key string) (*Result, bool) {
	if e.respCache == nil {
		return nil, false
	}
	data, ok := e.respCache.Get(ctx, key)
	if !ok {
		return nil, false
	}
	var cached Result
	if err := json.Unmarshal(data, &cached); err != nil {
		e.logger.Warn("pipeline", "unreadable cached result, treating as miss", map[string]interface{}{
			"key": key,
		})
		return nil, false
	}
	return &cached, true
}

func (e *Engine) cacheSet(ctx context.Context, key string, result *Result) {
	if e.respCache == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	e.respCache.Set(ctx, key, data)
}

func (e *Engine) publish(ctx context.Context, event events.Event) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.Warn("pipeline", "telemetry publish failed", map[string]interface{}{
			"event": event.EventType(),
			"error": err.Error(),
		})
	}
}
