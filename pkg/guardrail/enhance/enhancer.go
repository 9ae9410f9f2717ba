// FILE: pkg/guardrail/enhance/enhancer.go
// PURPOSE: Best-effort query rewriting and hypothetical-document generation

package enhance

import (
	"context"
	"fmt"
	"strings"

	"rag-context-be/internal/constant"
	"rag-context-be/internal/pkg/logger"
	"rag-context-be/pkg/llm"
)

// Mode steers the rewrite toward narrower or broader search terms.
type Mode string

const (
	ModePrecision Mode = "precision"
	ModeRecall    Mode = "recall"
)

// Generation parameters. Both stages want short, deterministic-ish output.
const (
	rewriteTemperature = 0.2
	rewriteMaxTokens   = 64

	hydeTemperature = 0.35
	hydeMaxTokens   = 220
)

// Result summarizes what the enhancer actually did for a turn.
type Result struct {
	Query          string // query to embed: rewritten or original
	RewriteApplied bool
	HydeText       string // empty when HyDE was skipped or failed
	HydeApplied    bool
}

// Enhancer wraps the generation collaborator for the two pre-retrieval
// stages. Every method is fail-open: any provider error degrades to
// pass-through behavior and never fails the request.
type Enhancer struct {
	provider       llm.LLMProvider
	logger         logger.ILogger
	rewriteEnabled bool
	hydeEnabled    bool
	rewriteMode    Mode
}

func NewEnhancer(provider llm.LLMProvider, log logger.ILogger, rewriteEnabled, hydeEnabled bool, mode Mode) *Enhancer {
	if log == nil {
		log = logger.NewNop()
	}
	if mode != ModePrecision && mode != ModeRecall {
		mode = ModePrecision
	}
	return &Enhancer{
		provider:       provider,
		logger:         log,
		rewriteEnabled: rewriteEnabled,
		hydeEnabled:    hydeEnabled,
		rewriteMode:    mode,
	}
}

// Enhance runs the enabled stages for one turn.
func (e *Enhancer) Enhance(ctx context.Context, query string) Result {
	result := Result{Query: query}

	if e.rewriteEnabled {
		if rewritten, ok := e.Rewrite(ctx, query, e.rewriteMode); ok {
			result.Query = rewritten
			result.RewriteApplied = true
		}
	}
	if e.hydeEnabled {
		if passage, ok := e.Hypothetical(ctx, query); ok {
			result.HydeText = passage
			result.HydeApplied = true
		}
	}
	return result
}

// Rewrite asks the generation collaborator to rewrite the query toward the
// given mode. Returns the original query and false on any failure.
func (e *Enhancer) Rewrite(ctx context.Context, query string, mode Mode) (string, bool) {
	if e.provider == nil {
		return query, false
	}

	tmpl := constant.QueryRewritePrecisionPrompt
	if mode == ModeRecall {
		tmpl = constant.QueryRewriteRecallPrompt
	}

	response, err := e.provider.Generate(ctx, fmt.Sprintf(tmpl, query),
		llm.WithTemperature(rewriteTemperature),
		llm.WithMaxTokens(rewriteMaxTokens),
	)
	if err != nil {
		e.logger.Warn("guardrail.enhance", "query rewrite failed, using original query", map[string]interface{}{
			"error": err.Error(),
		})
		return query, false
	}

	rewritten := cleanGeneration(response)
	if rewritten == "" {
		return query, false
	}
	return rewritten, true
}

// Hypothetical synthesizes a short passage that could plausibly answer the
// question, to be embedded in place of the raw query. Returns false on any
// failure; the caller falls back to embedding the original query.
func (e *Enhancer) Hypothetical(ctx context.Context, query string) (string, bool) {
	if e.provider == nil {
		return "", false
	}

	response, err := e.provider.Generate(ctx, fmt.Sprintf(constant.HypotheticalDocumentPrompt, query),
		llm.WithTemperature(hydeTemperature),
		llm.WithMaxTokens(hydeMaxTokens),
	)
	if err != nil {
		e.logger.Warn("guardrail.enhance", "hypothetical document generation failed", map[string]interface{}{
			"error": err.Error(),
		})
		return "", false
	}

	passage := cleanGeneration(response)
	if passage == "" {
		return "", false
	}
	return passage, true
}

// cleanGeneration strips the quoting and fencing small models like to wrap
// short outputs in.
func cleanGeneration(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.Trim(s, `"`)
	return strings.TrimSpace(s)
}
