package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/langwatch/collector/internal/collector/model"
	"github.com/langwatch/collector/internal/collector/service"
	projectService "github.com/langwatch/collector/internal/project/service"
)

// AuthTokenHeader carries the project API key on every ingestion request.
const AuthTokenHeader = "X-Auth-Token"

// CollectorHandler creates the handler for the span ingestion endpoint.
// Ordering matters: the method gate runs before auth, auth before any
// payload validation, and validation before any write.
func CollectorHandler(
	ps projectService.ProjectService,
	cs *service.CollectorService,
	logger *zap.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, ErrorMessageDTO{
				Kind:    "method-not-allowed",
				Message: "only POST is supported",
			}, logger)
			return
		}

		apiKey := r.Header.Get(AuthTokenHeader)
		if apiKey == "" {
			writeError(w, http.StatusUnauthorized, ErrorMessageDTO{
				Kind:    "unauthorized",
				Message: "missing " + AuthTokenHeader + " header",
			}, logger)
			return
		}
		project, err := ps.GetProjectByApiKey(r.Context(), apiKey)
		if err != nil {
			if errors.Is(err, projectService.ErrProjectNotFound) {
				writeError(w, http.StatusUnauthorized, ErrorMessageDTO{
					Kind:    "unauthorized",
					Message: "invalid api key",
				}, logger)
				return
			}
			logger.Error("Error encountered when resolving project", zap.Error(err))
			writeInternalError(w, err, logger)
			return
		}

		var req CollectorRequestDTO
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, ErrorMessageDTO{
				Kind:    "bad-request",
				Message: "invalid request payload",
			}, logger)
			return
		}
		defer func(body io.ReadCloser) {
			if err := body.Close(); err != nil {
				logger.Error("Error encountered when closing request body", zap.Error(err))
			}
		}(r.Body)

		traceRequest, validationErr := mapToTraceRequest(req)
		if validationErr != nil {
			writeValidationError(w, validationErr, logger)
			return
		}

		if err := cs.ProcessTraceRequest(r.Context(), project, traceRequest); err != nil {
			var validationError *model.ValidationError
			switch {
			case errors.As(err, &validationError):
				writeValidationError(w, validationError, logger)
			case errors.Is(err, model.ErrDownstreamTimeout):
				logger.Error("Timed out processing trace request", zap.Error(err))
				writeError(w, http.StatusServiceUnavailable, ErrorMessageDTO{
					Kind:    "downstream-timeout",
					Message: "the request timed out, please retry",
				}, logger)
			default:
				logger.Error("Error encountered when processing trace request", zap.Error(err))
				writeInternalError(w, err, logger)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(CollectorResponseDTO{Status: "ok"}); err != nil {
			logger.Error("Error encountered when encoding response", zap.Error(err))
		}
	}
}

func mapToTraceRequest(req CollectorRequestDTO) (*model.TraceRequest, *model.ValidationError) {
	if len(req.Spans) == 0 {
		return nil, model.NewValidationError(
			model.ValidationKindMissingField,
			"",
			"spans",
			"spans must be a non-empty list",
		)
	}
	spans := make([]model.RawSpan, 0, len(req.Spans))
	for _, rawJSON := range req.Spans {
		rawSpan, err := service.DecodeRawSpan(rawJSON)
		if err != nil {
			var validationError *model.ValidationError
			if errors.As(err, &validationError) {
				return nil, validationError
			}
			return nil, model.NewValidationError(
				model.ValidationKindBadType, "", "spans", err.Error(),
			)
		}
		spans = append(spans, rawSpan)
	}
	return &model.TraceRequest{
		TraceId:    req.TraceId,
		Spans:      spans,
		ThreadId:   req.ThreadId,
		UserId:     req.UserId,
		CustomerId: req.CustomerId,
		Labels:     req.Labels,
	}, nil
}

func writeValidationError(w http.ResponseWriter, validationError *model.ValidationError, logger *zap.Logger) {
	writeError(w, http.StatusBadRequest, ErrorMessageDTO{
		Kind:    string(validationError.Kind),
		Message: validationError.Message,
		SpanId:  validationError.SpanId,
		Field:   validationError.Field,
	}, logger)
}

// writeInternalError hides internal detail from the caller; the wrapped
// error only goes to the logs.
func writeInternalError(w http.ResponseWriter, err error, logger *zap.Logger) {
	writeError(w, http.StatusInternalServerError, ErrorMessageDTO{
		Kind:    "internal",
		Message: "internal server error",
	}, logger)
}

func writeError(w http.ResponseWriter, status int, message ErrorMessageDTO, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponseDTO{Error: message}); err != nil {
		logger.Error("Error encountered when encoding error response", zap.Error(err))
	}
}
