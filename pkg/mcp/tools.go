package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Harshvardhan-91/APIfyn-backend/internal/diagram"
	"github.com/Harshvardhan-91/APIfyn-backend/internal/engine"
	"github.com/Harshvardhan-91/APIfyn-backend/internal/processors"
	"github.com/Harshvardhan-91/APIfyn-backend/internal/store"
	"github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"
)

// handleExecute runs a workflow, synchronously unless wait is false.
func (s *Server) handleExecute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workflowID, err := req.RequireString("workflow_id")
	if err != nil {
		return mcp.NewToolResultError("workflow_id is required"), nil
	}
	mode := schema.ExecutionMode(req.GetString("mode", string(schema.ModeNormal)))
	if mode != schema.ModeNormal && mode != schema.ModeTest {
		return mcp.NewToolResultError("mode must be NORMAL or TEST"), nil
	}
	triggerData := mcp.ParseStringMap(req, "trigger_data", nil)
	if triggerData == nil {
		triggerData = map[string]any{}
	}
	opts := engine.Options{Mode: mode, TriggerSource: schema.SourceManual}
	if mode == schema.ModeTest {
		opts.TriggerSource = schema.SourceTest
	}

	if !req.GetBool("wait", true) {
		return s.submit(ctx, workflowID, triggerData, opts)
	}

	// A run that started and failed still returns a result naming the
	// execution, so only a missing result is a tool error.
	result, runErr := s.executor.Execute(ctx, workflowID, triggerData, opts)
	if runErr != nil && result == nil {
		return mcp.NewToolResultError(fmt.Sprintf("workflow execution failed: %v", runErr)), nil
	}
	return marshalResult(result)
}

// submit queues the run and pushes its outcome to the calling session.
func (s *Server) submit(ctx context.Context, workflowID string, triggerData map[string]any, opts engine.Options) (*mcp.CallToolResult, error) {
	if s.dispatcher == nil {
		return mcp.NewToolResultError("background execution is not available"), nil
	}
	if _, err := s.store.GetWorkflow(ctx, workflowID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("workflow lookup failed: %v", err)), nil
	}

	var sessionID string
	if session := server.ClientSessionFromContext(ctx); session != nil {
		sessionID = session.SessionID()
	}
	err := s.dispatcher.Submit(ctx, engine.Task{
		WorkflowID:  workflowID,
		TriggerData: triggerData,
		Options:     opts,
		OnDone: func(res *engine.ExecutionResult, err error) {
			if sessionID == "" {
				return
			}
			payload := map[string]any{"workflow_id": workflowID}
			if res != nil {
				payload["execution_id"] = res.ExecutionID
				payload["status"] = res.Status
			}
			if err != nil {
				payload["error"] = schema.Message(err)
			}
			if nErr := s.notifier.Notify(context.Background(), sessionID, payload); nErr != nil {
				s.logger.Warn("mcp notification failed", slog.String("session_id", sessionID), slog.String("error", nErr.Error()))
			}
		},
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to queue workflow: %v", err)), nil
	}
	return marshalResult(map[string]any{
		"queued":      true,
		"workflow_id": workflowID,
	})
}

// handleGetExecution returns one execution record.
func (s *Server) handleGetExecution(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	executionID, err := req.RequireString("execution_id")
	if err != nil {
		return mcp.NewToolResultError("execution_id is required"), nil
	}
	ex, getErr := s.store.GetExecution(ctx, executionID)
	if getErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("execution lookup failed: %v", getErr)), nil
	}
	return marshalResult(ex)
}

// handleListExecutions lists a workflow's executions.
func (s *Server) handleListExecutions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workflowID, err := req.RequireString("workflow_id")
	if err != nil {
		return mcp.NewToolResultError("workflow_id is required"), nil
	}
	filter := store.ExecutionFilter{
		WorkflowID: workflowID,
		Limit:      extractInt(req.GetArguments(), "limit", 20),
	}
	if status := req.GetString("status", ""); status != "" {
		st := schema.ExecutionStatus(status)
		filter.Status = &st
	}
	execs, listErr := s.store.ListExecutions(ctx, filter)
	if listErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", listErr)), nil
	}
	if execs == nil {
		execs = []*store.Execution{}
	}
	return marshalResult(map[string]any{"executions": execs})
}

// handleValidate checks a definition and reports every error and warning.
func (s *Server) handleValidate(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	defRaw := mcp.ParseStringMap(req, "definition", nil)
	if defRaw == nil {
		return mcp.NewToolResultError("definition is required"), nil
	}

	// Marshal then unmarshal the definition to get a proper WorkflowDefinition.
	defBytes, marshalErr := json.Marshal(defRaw)
	if marshalErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid definition: %v", marshalErr)), nil
	}
	var def schema.WorkflowDefinition
	if unmarshalErr := json.Unmarshal(defBytes, &def); unmarshalErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid definition: %v", unmarshalErr)), nil
	}

	result := s.validator.Validate(&def)
	return marshalResult(map[string]any{
		"valid":    result.Valid(),
		"errors":   result.Errors,
		"warnings": result.Warnings,
	})
}

// handleDiagram renders a workflow as Mermaid, optionally with a run overlay.
func (s *Server) handleDiagram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workflowID, err := req.RequireString("workflow_id")
	if err != nil {
		return mcp.NewToolResultError("workflow_id is required"), nil
	}
	wf, wfErr := s.store.GetWorkflow(ctx, workflowID)
	if wfErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("workflow not found: %v", wfErr)), nil
	}

	var overlay *diagram.Overlay
	if execID := req.GetString("execution_id", ""); execID != "" {
		ex, exErr := s.store.GetExecution(ctx, execID)
		if exErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("execution not found: %v", exErr)), nil
		}
		overlay = diagram.TraceOverlay(ex.StepsExecuted, ex.FailedStep)
	}

	model, buildErr := diagram.Build(wf.Name, &wf.Definition, overlay)
	if buildErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("diagram build failed: %v", buildErr)), nil
	}
	return mcp.NewToolResultText(diagram.RenderMermaid(model)), nil
}

// handleListBlocks returns the registered block types.
func (s *Server) handleListBlocks(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.blocks == nil {
		return marshalResult(map[string]any{"blocks": []processors.Info{}, "count": 0})
	}
	return marshalResult(map[string]any{
		"blocks": s.blocks.List(),
		"count":  s.blocks.Count(),
	})
}

// --- Internal helpers ---

// extractInt safely extracts an integer from an arguments map.
func extractInt(args map[string]any, key string, defaultVal int) int {
	if args == nil {
		return defaultVal
	}
	v, ok := args[key]
	if !ok {
		return defaultVal
	}
	switch val := v.(type) {
	case float64:
		return int(val)
	case int:
		return val
	case string:
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
