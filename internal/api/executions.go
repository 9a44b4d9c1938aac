package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Harshvardhan-91/APIfyn-backend/internal/streaming"
	"github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"
)

// GetExecution returns one execution record with its trace.
// (GET /api/executions/:id)
func (s *Server) GetExecution(c echo.Context) error {
	ex, err := s.deps.Store.GetExecution(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ex)
}

// RetryExecution re-runs a terminal execution from scratch as a new
// execution.
// (POST /api/executions/:id/retry)
func (s *Server) RetryExecution(c echo.Context) error {
	result, err := s.deps.Executor.Retry(c.Request().Context(), c.Param("id"))
	return respondRun(c, result, err)
}

// ExecutionEvents streams an execution's events as Server-Sent Events until
// it reaches a terminal state or the client goes away.
// (GET /api/executions/:id/events)
func (s *Server) ExecutionEvents(c echo.Context) error {
	if s.deps.Hub == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "event streaming is disabled")
	}
	ctx := c.Request().Context()
	id := c.Param("id")

	// Subscribe before loading the record so a run finishing in between is
	// still observed.
	ch, cancel, err := s.deps.Hub.Subscribe(ctx, streaming.Filter{ExecutionID: id})
	if err != nil {
		return schema.NewError(schema.ErrCodeExecution, "subscribe failed").WithCause(err)
	}
	defer cancel()

	ex, err := s.deps.Store.GetExecution(ctx, id)
	if err != nil {
		return err
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	// A run that finished before we subscribed gets a single synthetic
	// terminal event.
	if ex.Status.Terminal() {
		return s.writeEvent(c, terminalEvent(ex.ID, ex.WorkflowID, ex.Status, ex.ErrorMessage))
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-ch:
			if !ok {
				return nil
			}
			if err := s.writeEvent(c, event); err != nil {
				return nil
			}
			if event.Type == schema.EventExecutionCompleted || event.Type == schema.EventExecutionFailed {
				return nil
			}
		}
	}
}

func (s *Server) writeEvent(c echo.Context, event streaming.Event) error {
	if err := streaming.WriteSSE(c.Response(), event); err != nil {
		s.deps.Logger.Debug("sse write failed", slog.String("error", err.Error()))
		return err
	}
	c.Response().Flush()
	return nil
}

func terminalEvent(executionID, workflowID string, status schema.ExecutionStatus, errMsg string) streaming.Event {
	ev := streaming.Event{
		ExecutionID: executionID,
		WorkflowID:  workflowID,
		Type:        schema.EventExecutionCompleted,
		Timestamp:   time.Now().UTC(),
		Payload:     map[string]any{"status": status},
	}
	if status == schema.ExecutionFailed {
		ev.Type = schema.EventExecutionFailed
		ev.Payload = map[string]any{"status": status, "error": errMsg}
	}
	return ev
}
