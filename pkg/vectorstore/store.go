// FILE: pkg/vectorstore/store.go
// PURPOSE: Vector similarity search contract for the retrieval path

package vectorstore

import (
	"context"

	"rag-context-be/pkg/guardrail"
)

// Filter narrows a match to a subset of the corpus. Zero values mean no
// filtering on that axis.
type Filter struct {
	DocType     string
	PersonaType string
}

// VectorStore returns scored candidates for an embedding. Ordering is NOT
// guaranteed; the context assembler re-sorts. A lookup failure is fatal for
// the current request (there is no retrieval without a match call).
type VectorStore interface {
	Match(ctx context.Context, embedding []float32, matchCount int, similarityFloor float64, filter Filter) ([]guardrail.RetrievalCandidate, error)
}
