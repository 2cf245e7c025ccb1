package router

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/langwatch/collector/internal/collector/handler"
	"github.com/langwatch/collector/internal/collector/service"
	projectService "github.com/langwatch/collector/internal/project/service"
)

func CreateRouter(
	ps projectService.ProjectService,
	cs *service.CollectorService,
	logger *zap.Logger,
) http.Handler {
	r := mux.NewRouter()

	collectorHandler := handler.CollectorHandler(ps, cs, logger)
	r.Handle("/api/collector", collectorHandler)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}).Methods("GET")

	return r
}
