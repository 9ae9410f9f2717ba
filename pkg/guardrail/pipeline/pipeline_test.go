package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Generate(context.Context, string, string) (*embedding.Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &embedding.Response{Values: []float32{1, 0, 0}}, nil
}

type fakeVectorStore struct {
	candidates []guardrail.RetrievalCandidate
	err        error
	calls      int
}

func (f *fakeVectorStore) Match(context.Context, []float32, int, float64, vectorstore.Filter) ([]guardrail.RetrievalCandidate, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

type fakePublisher struct {
	published []events.Event
}

func (f *fakePublisher) Publish(_ context.Context, e events.Event) error {
	f.published = append(f.published, e)
	return nil
}

func testCandidates() []guardrail.RetrievalCandidate {
	return []guardrail.RetrievalCandidate{
		{
			ChunkText: strings.Repeat("pgvector stores embeddings in postgres tables. ", 4),
			Score:     0.9,
			Metadata:  guardrail.CandidateMetadata{DocID: "doc-1", Title: "Vector Guide"},
		},
		{
			ChunkText: strings.Repeat("similarity search uses cosine distance operators. ", 4),
			Score:     0.8,
			Metadata:  guardrail.CandidateMetadata{DocID: "doc-2", Title: "Search Guide"},
		},
	}
}

func newTestEngine(vectors *fakeVectorStore, embedder *fakeEmbedder, publisher *fakePublisher) *Engine {
	counter := tokenizer.NewHeuristicCounter()
	// avoid wrapping a nil *fakePublisher in a non-nil interface
	var pub EventPublisher
	if publisher != nil {
		pub = publisher
	}
	return NewEngine(
		configstore.NewStaticStore(guardrail.DefaultGuardrailConfig()),
		embedder,
		vectors,
		enhance.NewEnhancer(nil, nil, false, false, enhance.ModePrecision),
		rerank.NewReranker(nil, nil),
		counter,
		store.NewMemoryCache(time.Minute),
		pub,
		nil,
	)
}

func TestExecuteKnowledgePath(t *testing.T) {
	vectors := &fakeVectorStore{candidates: testCandidates()}
	publisher := &fakePublisher{}
	engine := newTestEngine(vectors, &fakeEmbedder{}, publisher)

	result, err := engine.Execute(context.Background(), Request{
		SessionID: uuid.New(),
		Question:  "How does pgvector similarity search work?",
	})

	require.NoError(t, err)
	assert.Equal(t, guardrail.IntentKnowledge, result.Intent)
	assert.NotEmpty(t, result.ContextBlock)
	assert.Len(t, result.Sources, 2)
	assert.Equal(t, "doc-1", result.Sources[0].DocID)
	assert.False(t, result.Insufficient)
	assert.False(t, result.Cached)
	assert.Equal(t, 1, vectors.calls)

	require.Len(t, publisher.published, 1)
	assert.Equal(t, events.TypeContextAssembled, publisher.published[0].EventType())
}

func TestExecuteChitchatSkipsRetrieval(t *testing.T) {
	vectors := &fakeVectorStore{candidates: testCandidates()}
	embedder := &fakeEmbedder{}
	publisher := &fakePublisher{}
	engine := newTestEngine(vectors, embedder, publisher)

	result, err := engine.Execute(context.Background(), Request{
		SessionID: uuid.New(),
		Question:  "thanks!",
	})

	require.NoError(t, err)
	assert.Equal(t, guardrail.IntentChitchat, result.Intent)
	assert.NotEmpty(t, result.FallbackText)
	assert.Empty(t, result.ContextBlock)
	assert.True(t, result.Insufficient)
	assert.Zero(t, vectors.calls)
	assert.Zero(t, embedder.calls)

	require.Len(t, publisher.published, 1)
	assert.Equal(t, events.TypeIntentFallback, publisher.published[0].EventType())
}

func TestExecuteCommandFallback(t *testing.T) {
	vectors := &fakeVectorStore{}
	engine := newTestEngine(vectors, &fakeEmbedder{}, nil)

	result, err := engine.Execute(context.Background(), Request{
		SessionID: uuid.New(),
		Question:  "sudo rm -rf everything",
	})

	require.NoError(t, err)
	assert.Equal(t, guardrail.IntentCommand, result.Intent)
	assert.NotEmpty(t, result.FallbackText)
	assert.Zero(t, vectors.calls)
}

func TestExecuteCachesKnowledgeResults(t *testing.T) {
	vectors := &fakeVectorStore{candidates: testCandidates()}
	engine := newTestEngine(vectors, &fakeEmbedder{}, nil)

	req := Request{SessionID: uuid.New(), Question: "How does pgvector work?"}

	first, err := engine.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := engine.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.ContextBlock, second.ContextBlock)
	assert.Equal(t, 1, vectors.calls, "second call must be served from cache")
}

func TestExecuteEmbeddingFailureIsFatal(t *testing.T) {
	engine := newTestEngine(&fakeVectorStore{}, &fakeEmbedder{err: errors.New("embedder down")}, nil)

	_, err := engine.Execute(context.Background(), Request{
		SessionID: uuid.New(),
		Question:  "what is a vector index",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed query")
}

func TestExecuteVectorMatchFailureIsFatal(t *testing.T) {
	engine := newTestEngine(&fakeVectorStore{err: errors.New("db down")}, &fakeEmbedder{}, nil)

	_, err := engine.Execute(context.Background(), Request{
		SessionID: uuid.New(),
		Question:  "what is a vector index",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "vector match")
}

func TestExecuteVerboseMetrics(t *testing.T) {
	engine := newTestEngine(&fakeVectorStore{candidates: testCandidates()}, &fakeEmbedder{}, nil)

	result, err := engine.Execute(context.Background(), Request{
		SessionID: uuid.New(),
		Question:  "what is a vector index",
		Verbose:   true,
	})

	require.NoError(t, err)
	require.NotNil(t, result.Metrics)
	assert.Equal(t, 2, result.Metrics.InputCount)
}

func TestExecuteAuditsInvalidOverrides(t *testing.T) {
	engine := newTestEngine(&fakeVectorStore{candidates: testCandidates()}, &fakeEmbedder{}, nil)

	result, err := engine.Execute(context.Background(), Request{
		SessionID: uuid.New(),
		Question:  "what is a vector index",
		Overrides: map[string]interface{}{"top_k": "many"},
	})

	require.NoError(t, err)
	require.NotEmpty(t, result.SanitizationChanges)
	assert.Equal(t, "topK", result.SanitizationChanges[0].Field)
}

func TestExecuteSafeModeCapsBudget(t *testing.T) {
	engine := newTestEngine(&fakeVectorStore{candidates: testCandidates()}, &fakeEmbedder{}, nil)

	result, err := engine.Execute(context.Background(), Request{
		SessionID: uuid.New(),
		Question:  "what is a vector index",
		Overrides: map[string]interface{}{
			"safe_mode":            true,
			"context_token_budget": float64(30000),
		},
	})

	require.NoError(t, err)
	// budget was capped at the safe-mode ceiling before assembly
	assert.LessOrEqual(t, result.TotalTokens, 2048)
}

func TestExecuteHistoryWindowing(t *testing.T) {
	engine := newTestEngine(&fakeVectorStore{candidates: testCandidates()}, &fakeEmbedder{}, nil)

	long := strings.Repeat("previous discussion about embeddings. ", 60)
	req := Request{
		SessionID: uuid.New(),
		Question:  "what did we decide",
		Overrides: map[string]interface{}{"history_token_budget": float64(128)},
	}
	for i := 0; i < 6; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		req.History = append(req.History, llm.Message{Role: role, Content: long})
	}

	result, err := engine.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Less(t, len(result.History), 6, "history must be trimmed to the budget")
	assert.NotZero(t, result.TrimmedTurns)
}
