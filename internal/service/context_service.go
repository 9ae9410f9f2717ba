// FILE: internal/service/context_service.go
// PURPOSE: Map the transport DTOs onto the pipeline engine

package service

import (
	"context"

	"rag-context-be/internal/dto"
	"rag-context-be/pkg/guardrail/pipeline"
	"rag-context-be/pkg/llm"
	"rag-context-be/pkg/vectorstore"
)

type IContextService interface {
	BuildContext(ctx context.Context, req *dto.BuildContextRequest) (*dto.BuildContextResponse, error)
}

type contextService struct {
	engine *pipeline.Engine
}

func NewContextService(engine *pipeline.Engine) IContextService {
	return &contextService{engine: engine}
}

func (s *contextService) BuildContext(ctx context.Context, req *dto.BuildContextRequest) (*dto.BuildContextResponse, error) {
	history := make([]llm.Message, 0, len(req.History))
	for _, msg := range req.History {
		history = append(history, llm.Message{Role: msg.Role, Content: msg.Content})
	}

	result, err := s.engine.Execute(ctx, pipeline.Request{
		SessionID: req.SessionId,
		PresetID:  req.PresetId,
		Question:  req.Question,
		History:   history,
		Overrides: req.Overrides,
		Filter: vectorstore.Filter{
			DocType:     req.DocType,
			PersonaType: req.PersonaType,
		},
		Verbose: req.Verbose,
	})
	if err != nil {
		return nil, err
	}

	return toResponse(result), nil
}

func toResponse(result *pipeline.Result) *dto.BuildContextResponse {
	resp := &dto.BuildContextResponse{
		Intent:             string(result.Intent),
		NormalizedQuestion: result.NormalizedQuestion,
		Language:           string(result.Language),
		ContextBlock:       result.ContextBlock,
		TotalTokens:        result.TotalTokens,
		DroppedCount:       result.DroppedCount,
		HighestScore:       result.HighestScore,
		Insufficient:       result.Insufficient,
		FallbackText:       result.FallbackText,
		HistorySummary:     result.HistorySummary,
		TrimmedTurns:       result.TrimmedTurns,
		EnhancedQuery:      result.EnhancedQuery,
		Metadata: dto.GuardrailMetadataDTO{
			Intent:         string(result.Intent),
			Confidence:     result.Confidence,
			RouteReason:    result.RouteReason,
			RewriteApplied: result.RewriteApplied,
			HydeApplied:    result.HydeApplied,
			Cached:         result.Cached,
			ConfigCached:   result.ConfigFromCache,
		},
	}

	resp.History = make([]dto.MessageDTO, 0, len(result.History))
	for _, msg := range result.History {
		resp.History = append(resp.History, dto.MessageDTO{Role: msg.Role, Content: msg.Content})
	}

	for _, src := range result.Sources {
		resp.Sources = append(resp.Sources, dto.SourceDTO{
			DocId:     src.DocID,
			Title:     src.Title,
			SourceUrl: src.SourceURL,
			Score:     src.Score,
			Tokens:    src.Tokens,
		})
	}

	for _, change := range result.SanitizationChanges {
		resp.Metadata.Sanitization = append(resp.Metadata.Sanitization, dto.SanitizationChangeDTO{
			Field:  change.Field,
			From:   change.From,
			To:     change.To,
			Reason: change.Reason,
		})
	}

	if result.Metrics != nil {
		resp.Metadata.Metrics = &dto.SelectionMetricsDTO{
			InputCount:         result.Metrics.InputCount,
			UniqueBeforeDedupe: result.Metrics.UniqueBeforeDedupe,
			UniqueAfterDedupe:  result.Metrics.UniqueAfterDedupe,
			DroppedByDedupe:    result.Metrics.DroppedByDedupe,
			DroppedByQuota:     result.Metrics.DroppedByQuota,
			UniqueDocuments:    result.Metrics.UniqueDocuments,
		}
	}

	return resp
}
