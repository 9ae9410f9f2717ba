// FILE: pkg/guardrail/assembler.go
// PURPOSE: Dedup, quota-balance, token-clip and concatenate ranked
// candidates into the final context block

package guardrail

import (
	"fmt"
	"sort"
	"strings"

	"rag-context-be/internal/pkg/logger"
	"rag-context-be/pkg/tokenizer"
)

const (
	// Chunks shorter than this (after normalization) are never
	// fingerprinted: head/tail keys on short text collide too easily.
	fingerprintMinChars = 80
	fingerprintEdgeLen  = 40

	// MMR-lite penalty subtracted from a candidate's score once its
	// document already has a selected chunk.
	diversityPenalty = 0.15

	quotaStart   = 2
	quotaCeiling = 6

	clipMarker = "…"

	entrySeparator = "\n\n---\n\n"
)

// SelectionMetrics counts how candidates moved through the dedup and quota
// stages. Telemetry only, never control flow.
type SelectionMetrics struct {
	InputCount         int `json:"input_count"`
	UniqueBeforeDedupe int `json:"unique_before_dedupe"`
	UniqueAfterDedupe  int `json:"unique_after_dedupe"`
	DroppedByDedupe    int `json:"dropped_by_dedupe"`
	DroppedByQuota     int `json:"dropped_by_quota"`
	UniqueDocuments    int `json:"unique_documents"`
}

// IncludedChunk is one selected candidate with its clipped text.
type IncludedChunk struct {
	Candidate RetrievalCandidate
	Text      string
	Tokens    int
}

// ContextWindowResult is the assembled context block plus everything the
// caller needs for observability. Insufficient means "do not claim
// grounded knowledge".
type ContextWindowResult struct {
	ContextBlock string
	Included     []IncludedChunk
	DroppedCount int
	TotalTokens  int
	Insufficient bool
	HighestScore float64
	Metrics      *SelectionMetrics
}

// Assembler builds context windows from scored retrieval candidates.
type Assembler struct {
	counter tokenizer.Counter
	logger  logger.ILogger
}

func NewAssembler(counter tokenizer.Counter, log logger.ILogger) *Assembler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Assembler{counter: counter, logger: log}
}

type indexedCandidate struct {
	cand RetrievalCandidate
	idx  int // position in the retrieval batch, for synthetic doc ids
}

// Assemble runs the full selection algorithm: filter, stable sort, dedup,
// quota-escalating greedy selection, token clipping, and concatenation.
func (a *Assembler) Assemble(candidates []RetrievalCandidate, cfg GuardrailConfig) *ContextWindowResult {
	inputCount := len(candidates)

	// 1. Drop candidates that are empty after trimming.
	filtered := make([]indexedCandidate, 0, len(candidates))
	for i, c := range candidates {
		if strings.TrimSpace(c.ChunkText) == "" {
			continue
		}
		filtered = append(filtered, indexedCandidate{cand: c, idx: i})
	}

	// 2. Stable sort descending by score; ties keep retrieval order.
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].cand.Score > filtered[j].cand.Score
	})

	// 3. Fingerprint dedup.
	seen := make(map[string]bool)
	deduped := make([]indexedCandidate, 0, len(filtered))
	droppedByDedupe := 0
	for _, ic := range filtered {
		fp, ok := fingerprint(ic.cand.ChunkText)
		if ok {
			if seen[fp] {
				droppedByDedupe++
				continue
			}
			seen[fp] = true
		}
		deduped = append(deduped, ic)
	}

	highestScore := 0.0
	if len(deduped) > 0 {
		highestScore = deduped[0].cand.Score
	}

	// 4+5. Quota sweep. Each level recomputes selection from scratch; the
	// last pass wins. Escalation stops as soon as a pass fills TopK.
	var sel quotaSelection
	for quota := quotaStart; quota <= quotaCeiling; quota++ {
		sel = selectWithQuota(deduped, quota, cfg, a.counter)
		if len(sel.chunks) >= cfg.TopK {
			break
		}
	}

	a.logger.Debug("guardrail.assembler", "context selection complete", map[string]interface{}{
		"input":             inputCount,
		"deduped":           len(deduped),
		"selected":          len(sel.chunks),
		"dropped_by_dedupe": droppedByDedupe,
		"total_tokens":      sel.totalTokens,
	})

	// 6. Assemble the context block.
	parts := make([]string, 0, len(sel.chunks))
	for i, chunk := range sel.chunks {
		parts = append(parts, entryLabel(i+1, chunk.Candidate.Metadata)+"\n"+chunk.Text)
	}

	// 7. Insufficient is judged against the deduplicated top score, so a
	// high-scoring duplicate still counts.
	insufficient := len(sel.chunks) == 0 || highestScore < cfg.SimilarityThreshold

	result := &ContextWindowResult{
		ContextBlock: strings.Join(parts, entrySeparator),
		Included:     sel.chunks,
		DroppedCount: len(deduped) - len(sel.chunks),
		TotalTokens:  sel.totalTokens,
		Insufficient: insufficient,
		HighestScore: highestScore,
	}

	if cfg.VerboseSelectionMetrics {
		result.Metrics = &SelectionMetrics{
			InputCount:         inputCount,
			UniqueBeforeDedupe: len(filtered),
			UniqueAfterDedupe:  len(deduped),
			DroppedByDedupe:    droppedByDedupe,
			DroppedByQuota:     sel.droppedByQuota,
			UniqueDocuments:    sel.uniqueDocuments,
		}
	}

	return result
}

type quotaSelection struct {
	chunks          []IncludedChunk
	totalTokens     int
	droppedByQuota  int
	uniqueDocuments int
}

// selectWithQuota is a pure pass over the deduplicated candidates at one
// per-document quota level. No state is shared across quota levels, which
// keeps each pass independently testable.
func selectWithQuota(deduped []indexedCandidate, quota int, cfg GuardrailConfig, counter tokenizer.Counter) quotaSelection {
	consumed := make([]bool, len(deduped))
	passFingerprints := make(map[string]bool)
	docCount := make(map[string]int)

	var chunks []IncludedChunk
	totalTokens := 0

	for len(chunks) < cfg.TopK {
		best := -1
		var bestEffective float64
		for i, ic := range deduped {
			if consumed[i] {
				continue
			}
			key := ic.cand.DocKey(ic.idx)
			if docCount[key] >= quota {
				continue
			}
			effective := ic.cand.Score
			if docCount[key] >= 1 {
				effective -= diversityPenalty
			}
			if best == -1 || effective > bestEffective {
				best = i
				bestEffective = effective
			}
		}
		if best == -1 {
			break
		}

		ic := deduped[best]
		consumed[best] = true

		if fp, ok := fingerprint(ic.cand.ChunkText); ok {
			if passFingerprints[fp] {
				continue
			}
			passFingerprints[fp] = true
		}

		text, tokens := clipToTokens(ic.cand.ChunkText, cfg.ClipTokens, counter)
		if totalTokens+tokens > cfg.ContextTokenBudget {
			// Consumed so the loop makes progress, but not added.
			continue
		}

		docCount[ic.cand.DocKey(ic.idx)]++
		chunks = append(chunks, IncludedChunk{Candidate: ic.cand, Text: text, Tokens: tokens})
		totalTokens += tokens
	}

	sel := quotaSelection{chunks: chunks, totalTokens: totalTokens, uniqueDocuments: len(docCount)}
	for i, ic := range deduped {
		if !consumed[i] && docCount[ic.cand.DocKey(ic.idx)] >= quota {
			sel.droppedByQuota++
		}
	}
	return sel
}

// fingerprint returns a cheap near-duplicate key over normalized text:
// length plus head/tail substrings. ok is false for short text, which
// always passes dedup.
func fingerprint(text string) (string, bool) {
	norm := strings.ToLower(strings.Join(strings.Fields(text), " "))
	runes := []rune(norm)
	if len(runes) < fingerprintMinChars {
		return "", false
	}
	head := string(runes[:fingerprintEdgeLen])
	tail := string(runes[len(runes)-fingerprintEdgeLen:])
	return fmt.Sprintf("%d:%s:%s", len(runes), head, tail), true
}

// clipToTokens truncates text to the per-chunk clip budget, appending the
// clip marker when anything was cut. The returned token count is for the
// final text, marker included.
func clipToTokens(text string, clipTokens int, counter tokenizer.Counter) (string, int) {
	clipped := counter.Truncate(text, clipTokens)
	if clipped != text {
		clipped += clipMarker
	}
	return clipped, counter.Count(clipped)
}

// entryLabel renders "(i) <title> (<sourceUrl>)", omitting whichever of
// title/url is absent.
func entryLabel(position int, meta CandidateMetadata) string {
	label := fmt.Sprintf("(%d)", position)
	if meta.Title != "" {
		label += " " + meta.Title
	}
	if meta.SourceURL != "" {
		label += " (" + meta.SourceURL + ")"
	}
	return label
}
