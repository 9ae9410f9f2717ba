// FILE: pkg/guardrail/candidate.go
// PURPOSE: Alias-tolerant ingestion of retrieval candidates

package guardrail

import (
	"fmt"
	"strings"
)

// CandidateMetadata is the canonical metadata shape. All alias resolution
// happens once at ingestion; downstream code never re-inspects alternate
// field names.
type CandidateMetadata struct {
	DocID       string `json:"doc_id,omitempty"`
	SourceURL   string `json:"source_url,omitempty"`
	Title       string `json:"title,omitempty"`
	DocType     string `json:"doc_type,omitempty"`
	PersonaType string `json:"persona_type,omitempty"`
}

// RetrievalCandidate is one scored chunk from the vector store. Treated as
// untrusted/partial: missing fields are defaulted at ingestion.
type RetrievalCandidate struct {
	ChunkText string            `json:"chunk_text"`
	Score     float64           `json:"score"`
	Metadata  CandidateMetadata `json:"metadata"`
}

// NormalizeCandidate maps a loosely-typed candidate record (vector store
// row, JSONB metadata) onto the canonical struct. index is the candidate's
// position in the retrieval batch, used for the synthetic doc placeholder.
func NormalizeCandidate(raw map[string]interface{}, index int) RetrievalCandidate {
	meta, _ := raw["metadata"].(map[string]interface{})

	c := RetrievalCandidate{
		ChunkText: firstString(raw, "chunkText", "chunk_text", "text", "content"),
		Score:     firstFloat(raw, "score", "similarity"),
		Metadata: CandidateMetadata{
			Title:       firstString(meta, "title"),
			DocType:     firstString(meta, "docType", "doc_type", "type"),
			PersonaType: firstString(meta, "personaType", "persona_type"),
			SourceURL:   firstString(meta, "sourceUrl", "source_url", "url"),
		},
	}
	if c.Metadata.Title == "" {
		c.Metadata.Title = firstString(raw, "title")
	}
	if c.Metadata.SourceURL == "" {
		c.Metadata.SourceURL = firstString(raw, "sourceUrl", "source_url")
	}
	c.Metadata.DocID = resolveDocID(raw, meta, c.Metadata.SourceURL, index)
	return c
}

// resolveDocID picks the document identity for quota bookkeeping, in strict
// preference order, falling back to a synthetic per-batch placeholder.
func resolveDocID(raw, meta map[string]interface{}, sourceURL string, index int) string {
	if id := firstString(meta, "docId", "doc_id", "documentId"); id != "" {
		return id
	}
	if id := firstString(raw, "docId", "doc_id", "documentId"); id != "" {
		return id
	}
	if sourceURL != "" {
		return sourceURL
	}
	if url := firstString(meta, "url"); url != "" {
		return url
	}
	return syntheticDocID(index)
}

// DocKey returns the quota-bookkeeping key for an already-normalized
// candidate, synthesizing a placeholder when ingestion left it blank
// (candidates constructed directly in tests or by custom retrievers).
func (c RetrievalCandidate) DocKey(index int) string {
	if c.Metadata.DocID != "" {
		return c.Metadata.DocID
	}
	if c.Metadata.SourceURL != "" {
		return c.Metadata.SourceURL
	}
	return syntheticDocID(index)
}

func syntheticDocID(index int) string {
	return fmt.Sprintf("doc:%d", index)
}

func firstString(m map[string]interface{}, keys ...string) string {
	if m == nil {
		return ""
	}
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return ""
}

func firstFloat(m map[string]interface{}, keys ...string) float64 {
	if m == nil {
		return 0
	}
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if f, ok := toFiniteFloat(v); ok {
				return f
			}
		}
	}
	return 0
}
