// FILE: pkg/guardrail/rerank/reranker.go
// PURPOSE: Pluggable candidate reranking: pass-through, MMR, or (declared)
// cohere-rerank

package rerank

import (
	"context"

	"rag-context-be/internal/pkg/logger"
	"rag-context-be/pkg/embedding"
	"rag-context-be/pkg/guardrail"
)

// defaultLambda balances relevance against redundancy in MMR scoring.
const defaultLambda = 0.5

// Reranker reorders and truncates a candidate set. Every mode is fail-open:
// an embedding failure degrades to simple truncation.
type Reranker struct {
	embedder embedding.EmbeddingProvider
	logger   logger.ILogger
	lambda   float64
}

func NewReranker(embedder embedding.EmbeddingProvider, log logger.ILogger) *Reranker {
	if log == nil {
		log = logger.NewNop()
	}
	return &Reranker{
		embedder: embedder,
		logger:   log,
		lambda:   defaultLambda,
	}
}

// Rerank applies the configured strategy. queryVec is the already-computed
// embedding of the retrieval query; only MMR uses it.
func (r *Reranker) Rerank(ctx context.Context, mode guardrail.RerankMode, queryVec []float32, candidates []guardrail.RetrievalCandidate, maxResults int) []guardrail.RetrievalCandidate {
	switch mode {
	case guardrail.RerankMMR:
		return r.rerankMMR(ctx, queryVec, candidates, maxResults)
	case guardrail.RerankCohere:
		// Declared interface, not implemented. Known limitation, not a bug.
		r.logger.Warn("guardrail.rerank", "cohere-rerank is not implemented, falling back to pass-through", nil)
		return truncate(candidates, maxResults)
	default:
		return truncate(candidates, maxResults)
	}
}

// rerankMMR iteratively selects the candidate maximizing
// lambda*sim(candidate, query) - (1-lambda)*max(sim(candidate, selected)).
// Candidate embeddings are computed fresh; any embedding failure falls back
// to truncation with a warning.
func (r *Reranker) rerankMMR(ctx context.Context, queryVec []float32, candidates []guardrail.RetrievalCandidate, maxResults int) []guardrail.RetrievalCandidate {
	if len(candidates) == 0 || maxResults <= 0 {
		return truncate(candidates, maxResults)
	}
	if r.embedder == nil || len(queryVec) == 0 {
		r.logger.Warn("guardrail.rerank", "mmr requested without embeddings, falling back to truncation", nil)
		return truncate(candidates, maxResults)
	}

	vectors := make([][]float32, len(candidates))
	for i, c := range candidates {
		res, err := r.embedder.Generate(ctx, c.ChunkText, embedding.TaskRetrievalDocument)
		if err != nil {
			r.logger.Warn("guardrail.rerank", "candidate embedding failed, falling back to truncation", map[string]interface{}{
				"candidate": i,
				"error":     err.Error(),
			})
			return truncate(candidates, maxResults)
		}
		vectors[i] = res.Values
	}

	querySim := make([]float64, len(candidates))
	for i := range candidates {
		querySim[i] = embedding.CosineSimilarity(vectors[i], queryVec)
	}

	selected := make([]int, 0, maxResults)
	remaining := make(map[int]bool, len(candidates))
	for i := range candidates {
		remaining[i] = true
	}

	for len(selected) < maxResults && len(remaining) > 0 {
		best := -1
		var bestScore float64
		for i := 0; i < len(candidates); i++ {
			if !remaining[i] {
				continue
			}
			redundancy := 0.0
			for _, j := range selected {
				if sim := embedding.CosineSimilarity(vectors[i], vectors[j]); sim > redundancy {
					redundancy = sim
				}
			}
			score := r.lambda*querySim[i] - (1-r.lambda)*redundancy
			if best == -1 || score > bestScore {
				best = i
				bestScore = score
			}
		}
		if best == -1 {
			break
		}
		selected = append(selected, best)
		delete(remaining, best)
	}

	out := make([]guardrail.RetrievalCandidate, len(selected))
	for i, idx := range selected {
		out[i] = candidates[idx]
	}
	return out
}

func truncate(candidates []guardrail.RetrievalCandidate, maxResults int) []guardrail.RetrievalCandidate {
	if maxResults <= 0 || maxResults >= len(candidates) {
		return candidates
	}
	return candidates[:maxResults]
}
