package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Harshvardhan-91/APIfyn-backend/internal/diagram"
	"github.com/Harshvardhan-91/APIfyn-backend/internal/engine"
	"github.com/Harshvardhan-91/APIfyn-backend/internal/store"
	"github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"
)

type createWorkflowRequest struct {
	UserID      string                    `json:"user_id"`
	Name        string                    `json:"name"`
	Description string                    `json:"description"`
	Definition  schema.WorkflowDefinition `json:"definition"`
	IsActive    *bool                     `json:"is_active"`
}

type statusRequest struct {
	IsActive *bool `json:"is_active"`
}

// workflowResponse adds the next scheduled fire time to a workflow.
type workflowResponse struct {
	*store.Workflow
	NextRunAt *time.Time `json:"next_run_at,omitempty"`
}

// executeResponse wraps a synchronous run.
type executeResponse struct {
	Success bool                    `json:"success"`
	Result  *engine.ExecutionResult `json:"result,omitempty"`
	Error   string                  `json:"error,omitempty"`
	Code    string                  `json:"code,omitempty"`
}

// CreateWorkflow validates and stores a workflow. New workflows are active
// unless is_active is false.
// (POST /api/workflows)
func (s *Server) CreateWorkflow(c echo.Context) error {
	var req createWorkflowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	if req.UserID == "" || req.Name == "" {
		return schema.NewError(schema.ErrCodeValidation, "user_id and name are required")
	}
	if err := s.deps.Validator.ValidateDefinition(&req.Definition); err != nil {
		return err
	}

	wf := &store.Workflow{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		Name:        req.Name,
		Description: req.Description,
		Definition:  req.Definition,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	if err := s.deps.Store.CreateWorkflow(c.Request().Context(), wf); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, wf)
}

// GetWorkflow returns one workflow.
// (GET /api/workflows/:id)
func (s *Server) GetWorkflow(c echo.Context) error {
	wf, err := s.deps.Store.GetWorkflow(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	resp := workflowResponse{Workflow: wf}
	if s.deps.Schedule != nil {
		if next, ok := s.deps.Schedule.NextRun(wf, time.Now().UTC()); ok {
			resp.NextRunAt = &next
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// ListWorkflows returns a user's workflows.
// (GET /api/workflows?user_id=&limit=&offset=)
func (s *Server) ListWorkflows(c echo.Context) error {
	userID := c.QueryParam("user_id")
	if userID == "" {
		return schema.NewError(schema.ErrCodeValidation, "user_id is required")
	}
	wfs, err := s.deps.Store.ListWorkflows(c.Request().Context(), store.WorkflowFilter{
		UserID: userID,
		Limit:  queryInt(c, "limit", 50),
		Offset: queryInt(c, "offset", 0),
	})
	if err != nil {
		return err
	}
	if wfs == nil {
		wfs = []*store.Workflow{}
	}
	return c.JSON(http.StatusOK, wfs)
}

// SetWorkflowStatus activates or deactivates a workflow.
// (PATCH /api/workflows/:id/status)
func (s *Server) SetWorkflowStatus(c echo.Context) error {
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	if req.IsActive == nil {
		return schema.NewError(schema.ErrCodeValidation, "is_active is required")
	}
	ctx := c.Request().Context()
	id := c.Param("id")
	if err := s.deps.Store.UpdateWorkflow(ctx, id, store.WorkflowUpdate{IsActive: req.IsActive}); err != nil {
		return err
	}
	wf, err := s.deps.Store.GetWorkflow(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, wf)
}

// DeleteWorkflow removes a workflow.
// (DELETE /api/workflows/:id)
func (s *Server) DeleteWorkflow(c echo.Context) error {
	if err := s.deps.Store.DeleteWorkflow(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ExecuteWorkflow runs a workflow synchronously in NORMAL mode.
// (POST /api/workflows/:id/execute)
func (s *Server) ExecuteWorkflow(c echo.Context) error {
	payload, err := readPayload(c)
	if err != nil {
		return err
	}
	if payload == nil {
		payload = map[string]any{}
	}
	result, err := s.deps.Executor.Execute(c.Request().Context(), c.Param("id"), payload, engine.Options{
		Mode:          schema.ModeNormal,
		TriggerSource: schema.SourceManual,
	})
	return respondRun(c, result, err)
}

// ListWorkflowExecutions returns a workflow's executions, newest first.
// (GET /api/workflows/:id/executions)
func (s *Server) ListWorkflowExecutions(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	if _, err := s.deps.Store.GetWorkflow(ctx, id); err != nil {
		return err
	}
	filter := store.ExecutionFilter{
		WorkflowID: id,
		Limit:      queryInt(c, "limit", 50),
		Offset:     queryInt(c, "offset", 0),
	}
	if st := c.QueryParam("status"); st != "" {
		status := schema.ExecutionStatus(st)
		filter.Status = &status
	}
	execs, err := s.deps.Store.ListExecutions(ctx, filter)
	if err != nil {
		return err
	}
	if execs == nil {
		execs = []*store.Execution{}
	}
	return c.JSON(http.StatusOK, execs)
}

// WorkflowDiagram renders the workflow as a Mermaid flowchart. With
// ?executionId= the nodes are coloured by that run's outcome.
// (GET /api/workflows/:id/diagram)
func (s *Server) WorkflowDiagram(c echo.Context) error {
	ctx := c.Request().Context()
	wf, err := s.deps.Store.GetWorkflow(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	var overlay *diagram.Overlay
	if execID := c.QueryParam("executionId"); execID != "" {
		ex, err := s.deps.Store.GetExecution(ctx, execID)
		if err != nil {
			return err
		}
		if ex.WorkflowID != wf.ID {
			return schema.NewErrorf(schema.ErrCodeNotFound, "execution %s not found for workflow %s", execID, wf.ID)
		}
		overlay = diagram.TraceOverlay(ex.StepsExecuted, ex.FailedStep)
	}

	model, err := diagram.Build(wf.Name, &wf.Definition, overlay)
	if err != nil {
		return schema.NewError(schema.ErrCodeInvalidDefinition, err.Error()).WithCause(err)
	}
	return c.String(http.StatusOK, diagram.RenderMermaid(model))
}

// respondRun writes a synchronous run result; failures keep the result so
// callers can see the execution id.
func respondRun(c echo.Context, result *engine.ExecutionResult, err error) error {
	if err != nil {
		return c.JSON(statusFor(schema.ErrorCode(err)), executeResponse{
			Result: result,
			Error:  schema.Message(err),
			Code:   schema.ErrorCode(err),
		})
	}
	return c.JSON(http.StatusOK, executeResponse{Success: true, Result: result})
}
