// Package api is the echo HTTP surface of the workflow engine: webhook
// intake, direct execution, execution history and the thin CRUD the engine
// needs to be driven end to end.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel/trace"

	"github.com/Harshvardhan-91/APIfyn-backend/internal/engine"
	"github.com/Harshvardhan-91/APIfyn-backend/internal/processors"
	"github.com/Harshvardhan-91/APIfyn-backend/internal/store"
	"github.com/Harshvardhan-91/APIfyn-backend/internal/streaming"
	"github.com/Harshvardhan-91/APIfyn-backend/internal/validation"
)

// Executor runs workflows synchronously.
type Executor interface {
	Execute(ctx context.Context, workflowID string, triggerData map[string]any, opts engine.Options) (*engine.ExecutionResult, error)
	Retry(ctx context.Context, executionID string) (*engine.ExecutionResult, error)
}

// Submitter queues a workflow run in the background.
type Submitter interface {
	Submit(ctx context.Context, task engine.Task) error
}

// Sealer encrypts integration tokens before they are stored.
type Sealer interface {
	Seal(in *store.Integration) error
}

// BlockCatalog lists the registered block types.
type BlockCatalog interface {
	List() []processors.Info
	Count() int
}

// Schedule reports the next cron fire time of a workflow.
type Schedule interface {
	NextRun(wf *store.Workflow, from time.Time) (time.Time, bool)
}

// dispatchStats is implemented by dispatchers that expose pool counters.
type dispatchStats interface {
	Metrics() engine.DispatchMetrics
}

// Deps holds the dependencies for the API server. Hub, Sealer, Blocks,
// Schedule and Logger are optional.
type Deps struct {
	Store      store.Store
	Executor   Executor
	Dispatcher Submitter
	Validator  validation.Validator
	Sealer     Sealer
	Hub        streaming.Hub
	Blocks     BlockCatalog
	Schedule   Schedule
	Logger     *slog.Logger

	// Tracing wraps every request in an otel server span named after
	// ServiceName (default "apifyn"). A nil TracerProvider means the global.
	Tracing        bool
	ServiceName    string
	TracerProvider trace.TracerProvider
}

// Server serves the HTTP API.
type Server struct {
	deps Deps
	echo *echo.Echo
}

// NewServer creates a Server with every route registered.
func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.ServiceName == "" {
		deps.ServiceName = "apifyn"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(deps.Logger)

	e.Use(middleware.Recover())
	if deps.Tracing {
		var opts []otelecho.Option
		if deps.TracerProvider != nil {
			opts = append(opts, otelecho.WithTracerProvider(deps.TracerProvider))
		}
		e.Use(otelecho.Middleware(deps.ServiceName, opts...))
	}
	e.Use(requestLogger(deps.Logger))

	s := &Server{deps: deps, echo: e}
	s.routes()
	return s
}

func (s *Server) routes() {
	e := s.echo
	e.GET("/health", s.Health)
	e.GET("/api/blocks", s.ListBlocks)

	hooks := e.Group("/api/webhooks")
	hooks.POST("/trigger/:workflowId", s.TriggerWebhook)
	hooks.POST("/user/:userId/workflow/:workflowId", s.UserWebhook)
	hooks.POST("/external/:service/:workflowId", s.ExternalWebhook)
	hooks.POST("/test/:workflowId", s.TestWebhook)

	wf := e.Group("/api/workflows")
	wf.POST("", s.CreateWorkflow)
	wf.GET("", s.ListWorkflows)
	wf.GET("/:id", s.GetWorkflow)
	wf.PATCH("/:id/status", s.SetWorkflowStatus)
	wf.DELETE("/:id", s.DeleteWorkflow)
	wf.POST("/:id/execute", s.ExecuteWorkflow)
	wf.GET("/:id/executions", s.ListWorkflowExecutions)
	wf.GET("/:id/diagram", s.WorkflowDiagram)

	ex := e.Group("/api/executions")
	ex.GET("/:id", s.GetExecution)
	ex.POST("/:id/retry", s.RetryExecution)
	ex.GET("/:id/events", s.ExecutionEvents)

	in := e.Group("/api/integrations")
	in.POST("", s.CreateIntegration)
	in.GET("", s.ListIntegrations)
	in.DELETE("/:id", s.DeleteIntegration)
}

// Echo exposes the router so callers can mount extra handlers, such as MCP.
func (s *Server) Echo() *echo.Echo { return s.echo }

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// requestLogger writes one slog line per request.
func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			}
			level := slog.LevelInfo
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
				if v.Status >= http.StatusInternalServerError {
					level = slog.LevelError
				}
			}
			logger.LogAttrs(c.Request().Context(), level, "http request", attrs...)
			return nil
		},
	})
}

// Health reports liveness and, when the dispatcher exposes them, worker
// pool counters.
// (GET /health)
func (s *Server) Health(c echo.Context) error {
	body := map[string]any{
		"status":    "ok",
		"timestamp": timestamp(),
	}
	if d, ok := s.deps.Dispatcher.(dispatchStats); ok {
		body["dispatcher"] = d.Metrics()
	}
	return c.JSON(http.StatusOK, body)
}

// ListBlocks returns the block types a workflow step may use.
// (GET /api/blocks)
func (s *Server) ListBlocks(c echo.Context) error {
	if s.deps.Blocks == nil {
		return c.JSON(http.StatusOK, map[string]any{"blocks": []processors.Info{}, "count": 0})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"blocks": s.deps.Blocks.List(),
		"count":  s.deps.Blocks.Count(),
	})
}
