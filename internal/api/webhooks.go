package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Harshvardhan-91/APIfyn-backend/internal/engine"
	"github.com/Harshvardhan-91/APIfyn-backend/internal/store"
	"github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"
)

// triggerResponse acknowledges an accepted webhook. The run itself happens
// in the background.
type triggerResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Service    string `json:"service,omitempty"`
	WorkflowID string `json:"workflowId"`
	UserID     string `json:"userId,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// testResponse carries the result of a synchronous TEST run.
type testResponse struct {
	Success    bool                    `json:"success"`
	Message    string                  `json:"message"`
	Result     *engine.ExecutionResult `json:"result"`
	WorkflowID string                  `json:"workflowId"`
	Timestamp  string                  `json:"timestamp"`
}

// TriggerWebhook starts a workflow from an inbound webhook.
// (POST /api/webhooks/trigger/:workflowId)
func (s *Server) TriggerWebhook(c echo.Context) error {
	workflowID := c.Param("workflowId")
	payload, err := readPayload(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	s.deps.Logger.InfoContext(ctx, "webhook trigger received", slog.String("workflow_id", workflowID))

	wf, err := s.loadTriggerable(ctx, workflowID, "", "Workflow not found")
	if err != nil {
		return err
	}
	if err := s.dispatch(ctx, wf, payload, slog.String("source", "trigger")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, triggerResponse{
		Success:    true,
		Message:    "Workflow triggered successfully",
		WorkflowID: wf.ID,
		Timestamp:  timestamp(),
	})
}

// UserWebhook starts a workflow owned by the user in the path.
// (POST /api/webhooks/user/:userId/workflow/:workflowId)
func (s *Server) UserWebhook(c echo.Context) error {
	userID, workflowID := c.Param("userId"), c.Param("workflowId")
	payload, err := readPayload(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	s.deps.Logger.InfoContext(ctx, "user webhook trigger received",
		slog.String("user_id", userID), slog.String("workflow_id", workflowID))

	wf, err := s.loadTriggerable(ctx, workflowID, userID, "Workflow not found or unauthorized")
	if err != nil {
		return err
	}
	if err := s.dispatch(ctx, wf, payload, slog.String("source", "user"), slog.String("user_id", userID)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, triggerResponse{
		Success:    true,
		Message:    "Workflow triggered successfully",
		WorkflowID: wf.ID,
		UserID:     userID,
		Timestamp:  timestamp(),
	})
}

// ExternalWebhook normalises a third-party payload, then starts the workflow.
// (POST /api/webhooks/external/:service/:workflowId)
func (s *Server) ExternalWebhook(c echo.Context) error {
	service, workflowID := c.Param("service"), c.Param("workflowId")
	payload, err := readPayload(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	s.deps.Logger.InfoContext(ctx, "external webhook trigger received",
		slog.String("service", service), slog.String("workflow_id", workflowID))

	payload = TransformExternal(service, payload)

	wf, err := s.loadTriggerable(ctx, workflowID, "", "Workflow not found")
	if err != nil {
		return err
	}
	if err := s.dispatch(ctx, wf, payload, slog.String("source", "external"), slog.String("service", service)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, triggerResponse{
		Success:    true,
		Message:    "Workflow triggered successfully",
		Service:    service,
		WorkflowID: wf.ID,
		Timestamp:  timestamp(),
	})
}

// TestWebhook runs a workflow synchronously in TEST mode. Inactive workflows
// are allowed.
// (POST /api/webhooks/test/:workflowId)
func (s *Server) TestWebhook(c echo.Context) error {
	workflowID := c.Param("workflowId")
	payload, err := readPayload(c)
	if err != nil {
		return err
	}
	if payload == nil {
		payload = map[string]any{"test": true, "timestamp": timestamp()}
	}
	ctx := c.Request().Context()
	s.deps.Logger.InfoContext(ctx, "test webhook trigger received", slog.String("workflow_id", workflowID))

	result, err := s.deps.Executor.Execute(ctx, workflowID, payload, engine.Options{
		Mode:          schema.ModeTest,
		TriggerSource: schema.SourceTest,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, failure{
			Error: schema.Message(err),
			Code:  schema.ErrorCode(err),
		})
	}
	return c.JSON(http.StatusOK, testResponse{
		Success:    true,
		Message:    "Test workflow executed successfully",
		Result:     result,
		WorkflowID: workflowID,
		Timestamp:  timestamp(),
	})
}

// loadTriggerable fetches an active workflow, optionally checking its owner.
func (s *Server) loadTriggerable(ctx context.Context, workflowID, userID, notFound string) (*store.Workflow, error) {
	wf, err := s.deps.Store.GetWorkflow(ctx, workflowID)
	if schema.IsNotFound(err) || (err == nil && userID != "" && wf.UserID != userID) {
		return nil, echo.NewHTTPError(http.StatusNotFound, notFound)
	}
	if err != nil {
		return nil, err
	}
	if !wf.IsActive {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Workflow is not active")
	}
	return wf, nil
}

// dispatch queues a NORMAL webhook run. The outcome is only logged.
func (s *Server) dispatch(ctx context.Context, wf *store.Workflow, payload map[string]any, attrs ...any) error {
	if payload == nil {
		payload = map[string]any{}
	}
	logger := s.deps.Logger.With(attrs...)
	err := s.deps.Dispatcher.Submit(ctx, engine.Task{
		WorkflowID:  wf.ID,
		TriggerData: payload,
		Options: engine.Options{
			Mode:          schema.ModeNormal,
			TriggerSource: schema.SourceWebhook,
		},
		OnDone: func(res *engine.ExecutionResult, err error) {
			if err != nil {
				logger.Error("webhook-triggered workflow failed",
					slog.String("workflow_id", wf.ID), slog.String("error", schema.Message(err)))
				return
			}
			logger.Info("webhook-triggered workflow completed",
				slog.String("workflow_id", wf.ID),
				slog.String("execution_id", res.ExecutionID),
				slog.Bool("success", res.Success))
		},
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "server is shutting down")
	}
	return nil
}

// TransformExternal reshapes a known third-party webhook payload into the
// trigger data a workflow sees. Unknown services pass through unchanged.
func TransformExternal(service string, data map[string]any) map[string]any {
	if data == nil {
		data = map[string]any{}
	}
	switch strings.ToLower(service) {
	case "typeform":
		return transformTypeform(data)
	case "zapier":
		out := make(map[string]any, len(data)+1)
		for k, v := range data {
			out[k] = v
		}
		out["source"] = "zapier"
		return out
	case "stripe":
		inner, ok := data["data"].(map[string]any)
		if data["type"] != nil && data["type"] != "" && ok {
			return map[string]any{
				"source":     "stripe",
				"event_type": data["type"],
				"event_id":   data["id"],
				"object":     inner["object"],
				"raw_data":   data,
			}
		}
		return map[string]any{"source": "stripe", "raw_data": data}
	case "calendly":
		if ev := data["event"]; ev != nil && ev != "" {
			return map[string]any{
				"source":     "calendly",
				"event_type": ev,
				"payload":    data["payload"],
				"time":       data["time"],
				"raw_data":   data,
			}
		}
		return map[string]any{"source": "calendly", "raw_data": data}
	default:
		return data
	}
}

func transformTypeform(data map[string]any) map[string]any {
	resp, ok := data["form_response"].(map[string]any)
	if !ok {
		return map[string]any{"source": "typeform", "raw_data": data}
	}
	answers := map[string]any{}
	list, _ := resp["answers"].([]any)
	for _, a := range list {
		answer, ok := a.(map[string]any)
		if !ok {
			continue
		}
		answers[answerField(answer)] = answerValue(answer)
	}
	return map[string]any{
		"source":       "typeform",
		"form_id":      resp["form_id"],
		"response_id":  resp["token"],
		"submitted_at": resp["submitted_at"],
		"answers":      answers,
		"raw_data":     data,
	}
}

func answerField(answer map[string]any) string {
	if field, ok := answer["field"].(map[string]any); ok {
		for _, key := range []string{"ref", "id"} {
			if s, ok := field[key].(string); ok && s != "" {
				return s
			}
		}
	}
	return "unknown"
}

// answerValue takes the first set value of text, choice.label, email,
// phone_number and number.
func answerValue(answer map[string]any) any {
	if v := answer["text"]; present(v) {
		return v
	}
	if choice, ok := answer["choice"].(map[string]any); ok && present(choice["label"]) {
		return choice["label"]
	}
	for _, key := range []string{"email", "phone_number"} {
		if v := answer[key]; present(v) {
			return v
		}
	}
	return answer["number"]
}

func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	default:
		return true
	}
}
