// Package server implements the folderstore HTTP API: connection entry
// setup, the four file operations, the backup provider surface and the
// operational endpoints (health, metrics, docs).
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/folderstore/folderstore/internal/config"
	ferr "github.com/folderstore/folderstore/internal/errors"
	"github.com/folderstore/folderstore/internal/registry"
	"github.com/folderstore/folderstore/internal/service"
	"github.com/folderstore/folderstore/internal/validate"
)

// Server is the folderstore HTTP server.
type Server struct {
	cfg        *config.Config
	router     chi.Router
	api        huma.API
	reg        *registry.Registry
	dispatcher *service.Dispatcher
	validator  *validate.Validator
	httpServer *http.Server
}

// HealthBody is the JSON body returned by the health check endpoint.
type HealthBody struct {
	Status string `json:"status" example:"ok" doc:"Health status"`
}

// HealthOutput is the Huma output struct for the health check endpoint.
type HealthOutput struct {
	Body HealthBody
}

// New creates a Server wired to the given registry, dispatcher and validator
// and registers all routes.
func New(cfg *config.Config, reg *registry.Registry, dispatcher *service.Dispatcher, validator *validate.Validator) *Server {
	router := chi.NewMux()

	humaConfig := huma.DefaultConfig("folderstore API", "1.0.0")
	humaConfig.DocsPath = "/docs"
	humaConfig.OpenAPIPath = "/openapi"
	api := humachi.New(router, humaConfig)

	s := &Server{
		cfg:        cfg,
		router:     router,
		api:        api,
		reg:        reg,
		dispatcher: dispatcher,
		validator:  validator,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
		return &HealthOutput{Body: HealthBody{Status: "ok"}}, nil
	})

	s.registerEntryRoutes()
	s.registerFileRoutes()
	s.registerBackupRoutes()

	s.router.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

// Handler returns the full middleware-wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.router
	handler = commonHeaders(handler)
	handler = metricsMiddleware(handler)
	return handler
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// statusFor maps a taxonomy kind to an HTTP status code.
func statusFor(kind ferr.Kind) int {
	switch kind {
	case ferr.KindNotFound, ferr.KindEntryNotFound:
		return http.StatusNotFound
	case ferr.KindAlreadyConfigured, ferr.KindIntegrationNotLoaded:
		return http.StatusConflict
	case ferr.KindInvalidCredentials:
		return http.StatusUnauthorized
	case ferr.KindCannotConnect:
		return http.StatusBadGateway
	case ferr.KindUnknown:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// humaError converts a taxonomy error into a Huma status error. Unclassified
// errors never reach clients with their raw text.
func humaError(err error) error {
	var e *ferr.Error
	if ferr.As(err, &e) {
		return huma.NewError(statusFor(e.Kind), e.Error())
	}
	return huma.NewError(http.StatusInternalServerError, "internal error")
}
