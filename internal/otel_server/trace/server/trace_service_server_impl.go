package server

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"

	protoTrace "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	"go.opentelemetry.io/proto/otlp/trace/v1"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/langwatch/collector/internal/collector/model"
	"github.com/langwatch/collector/internal/collector/service"
	projectModel "github.com/langwatch/collector/internal/project/model"
	projectService "github.com/langwatch/collector/internal/project/service"
)

const authTokenMetadataKey = "x-auth-token"

const (
	spanTypeAttribute   = "langwatch.span.type"
	vendorAttribute     = "gen_ai.system"
	modelAttribute      = "gen_ai.request.model"
	promptAttribute     = "gen_ai.prompt"
	completionAttribute = "gen_ai.completion"
)

// TraceServiceServerImpl accepts OTLP traces and funnels them through the
// same ingestion pipeline as the HTTP collector endpoint.
type TraceServiceServerImpl struct {
	protoTrace.UnimplementedTraceServiceServer
	collectorService *service.CollectorService
	projectService   projectService.ProjectService
	logger           *zap.Logger
}

func NewTraceServiceServerImpl(
	logger *zap.Logger,
	cs *service.CollectorService,
	ps projectService.ProjectService,
) TraceServiceServerImpl {
	logger.Info("Creating new TraceServiceServerImpl")
	return TraceServiceServerImpl{
		logger:           logger,
		collectorService: cs,
		projectService:   ps,
	}
}

func (tss TraceServiceServerImpl) Export(
	ctx context.Context,
	req *protoTrace.ExportTraceServiceRequest,
) (*protoTrace.ExportTraceServiceResponse, error) {
	project, err := tss.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	spansByTraceId := make(map[string][]model.RawSpan)
	for _, resourceSpan := range req.ResourceSpans {
		for _, scopeSpan := range resourceSpan.ScopeSpans {
			for _, span := range scopeSpan.Spans {
				rawSpan := getRawSpan(span)
				spansByTraceId[rawSpan.TraceId] = append(spansByTraceId[rawSpan.TraceId], rawSpan)
			}
		}
	}

	for traceId, spans := range spansByTraceId {
		request := &model.TraceRequest{
			TraceId: traceId,
			Spans:   spans,
		}
		if err := tss.collectorService.ProcessTraceRequest(ctx, project, request); err != nil {
			var validationError *model.ValidationError
			if errors.As(err, &validationError) {
				tss.logger.Warn(
					"Dropping trace with invalid spans",
					zap.String("trace_id", traceId),
					zap.Error(validationError),
				)
				continue
			}
			tss.logger.Error(
				"Failed to process exported trace",
				zap.String("trace_id", traceId),
				zap.Error(err),
			)
			return nil, status.Error(codes.Internal, "failed to process exported traces")
		}
	}

	return &protoTrace.ExportTraceServiceResponse{}, nil
}

func (tss TraceServiceServerImpl) authenticate(ctx context.Context) (*projectModel.Project, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok || len(md.Get(authTokenMetadataKey)) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing "+authTokenMetadataKey+" metadata")
	}
	apiKey := md.Get(authTokenMetadataKey)[0]
	project, err := tss.projectService.GetProjectByApiKey(ctx, apiKey)
	if err != nil {
		if errors.Is(err, projectService.ErrProjectNotFound) {
			return nil, status.Error(codes.Unauthenticated, "invalid api key")
		}
		tss.logger.Error("Failed to resolve project", zap.Error(err))
		return nil, status.Error(codes.Internal, "failed to resolve project")
	}
	return project, nil
}

func getRawSpan(span *v1.Span) model.RawSpan {
	attributes := getAttributes(span)
	startedAt := int64(span.StartTimeUnixNano / 1e6)
	finishedAt := int64(span.EndTimeUnixNano / 1e6)

	rawSpan := model.RawSpan{
		Type:    getSpanType(attributes),
		Name:    span.Name,
		Id:      hex.EncodeToString(span.SpanId),
		TraceId: hex.EncodeToString(span.TraceId),
		Timestamps: &model.RawSpanTimestamps{
			StartedAt:  &startedAt,
			FinishedAt: &finishedAt,
		},
	}
	if len(span.ParentSpanId) > 0 {
		parentId := hex.EncodeToString(span.ParentSpanId)
		rawSpan.ParentId = &parentId
	}
	if rawSpan.Type == string(model.SpanTypeLLM) {
		rawSpan.Vendor = attributes[vendorAttribute]
		rawSpan.Model = attributes[modelAttribute]
	}
	if prompt, ok := attributes[promptAttribute]; ok {
		rawSpan.Input = textValue(prompt)
	}
	if completion, ok := attributes[completionAttribute]; ok {
		if output := textValue(completion); output != nil {
			rawSpan.Outputs = []model.RawSpanValue{*output}
		}
	}
	if span.Status != nil && span.Status.Code == v1.Status_STATUS_CODE_ERROR {
		rawSpan.Error = &model.SpanError{Message: span.Status.Message}
	}
	if len(attributes) > 0 {
		params := make(map[string]interface{}, len(attributes))
		for key, value := range attributes {
			params[key] = value
		}
		rawSpan.Params = params
	}
	return rawSpan
}

func getSpanType(attributes map[string]string) string {
	if spanType, ok := attributes[spanTypeAttribute]; ok && model.SpanType(spanType).IsValid() {
		return spanType
	}
	if _, ok := attributes[vendorAttribute]; ok {
		return string(model.SpanTypeLLM)
	}
	return string(model.SpanTypeSpan)
}

func getAttributes(span *v1.Span) map[string]string {
	attributes := make(map[string]string)
	for _, attribute := range span.Attributes {
		attributes[attribute.Key] = attribute.Value.GetStringValue()
	}
	return attributes
}

func textValue(text string) *model.RawSpanValue {
	valueJSON, err := json.Marshal(text)
	if err != nil {
		return nil
	}
	return &model.RawSpanValue{
		Type:  string(model.SpanValueTypeText),
		Value: valueJSON,
	}
}
