package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/Harshvardhan-91/APIfyn-backend/internal/expressions"
	"github.com/Harshvardhan-91/APIfyn-backend/internal/logging"
	"github.com/Harshvardhan-91/APIfyn-backend/internal/processors"
	"github.com/Harshvardhan-91/APIfyn-backend/internal/routing"
	"github.com/Harshvardhan-91/APIfyn-backend/internal/store"
	"github.com/Harshvardhan-91/APIfyn-backend/internal/streaming"
	"github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"
)

const instrumentationName = "github.com/Harshvardhan-91/APIfyn-backend/internal/engine"

// Store is the persistence the engine needs.
type Store interface {
	GetWorkflow(ctx context.Context, id string) (*store.Workflow, error)
	CreateExecution(ctx context.Context, exec *store.Execution) error
	GetExecution(ctx context.Context, id string) (*store.Execution, error)
	FinalizeExecution(ctx context.Context, id string, update store.ExecutionUpdate, workflowID string, succeeded bool) error
}

// ProcessorRegistry resolves a blockType to its processor.
type ProcessorRegistry interface {
	Get(blockType string) (processors.Processor, error)
}

// Options describe how an execution was started.
type Options struct {
	Mode          schema.ExecutionMode
	TriggerSource schema.TriggerSource
	RetryOf       string
}

// ExecutionResult is the outcome of Execute and Retry.
type ExecutionResult struct {
	ExecutionID   string                 `json:"executionId"`
	WorkflowID    string                 `json:"workflowId"`
	Success       bool                   `json:"success"`
	Status        schema.ExecutionStatus `json:"status"`
	Output        map[string]any         `json:"output,omitempty"`
	StepsExecuted int                    `json:"stepsExecuted"`
	Trace         []schema.TraceEntry    `json:"trace"`
	Error         string                 `json:"error,omitempty"`
	FailedStep    string                 `json:"failedStep,omitempty"`
	DurationMs    int64                  `json:"durationMs"`
}

// Config holds the engine's collaborators. Hub and Logger are optional.
// Nil providers fall back to the otel globals.
type Config struct {
	Store    Store
	Registry ProcessorRegistry
	Router   *routing.Router
	Hub      streaming.Hub
	Logger   *slog.Logger

	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Engine walks a workflow graph breadth-first from its trigger, running one
// processor per step and threading the merged context through.
type Engine struct {
	store    Store
	registry ProcessorRegistry
	router   *routing.Router
	hub      streaming.Hub
	fsm      *ExecutionFSM
	logger   *slog.Logger

	tracer     trace.Tracer
	executions metric.Int64Counter
	steps      metric.Int64Counter

	now   func() time.Time
	newID func() string
}

// New creates an Engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil || cfg.Registry == nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "engine requires a store and a processor registry")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	router := cfg.Router
	if router == nil {
		r, err := routing.New(logger)
		if err != nil {
			return nil, err
		}
		router = r
	}

	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	mp := cfg.MeterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)
	executions, err := meter.Int64Counter("apifyn.executions",
		metric.WithDescription("Workflow executions by terminal status"))
	if err != nil {
		return nil, fmt.Errorf("create executions counter: %w", err)
	}
	steps, err := meter.Int64Counter("apifyn.steps",
		metric.WithDescription("Processed workflow steps by block type and outcome"))
	if err != nil {
		return nil, fmt.Errorf("create steps counter: %w", err)
	}

	return &Engine{
		store:      cfg.Store,
		registry:   cfg.Registry,
		router:     router,
		hub:        cfg.Hub,
		fsm:        NewExecutionFSM(cfg.Hub),
		logger:     logger,
		tracer:     tp.Tracer(instrumentationName),
		executions: executions,
		steps:      steps,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}, nil
}

// FSM exposes the execution state machine for hook registration.
func (e *Engine) FSM() *ExecutionFSM { return e.fsm }

// Execute runs a workflow against triggerData. A missing or (in NORMAL mode)
// inactive workflow fails before any record is created. Once the record
// exists, every failure marks it FAILED; the result is returned alongside
// the error so callers can report the execution id.
func (e *Engine) Execute(ctx context.Context, workflowID string, triggerData map[string]any, opts Options) (*ExecutionResult, error) {
	if opts.Mode == "" {
		opts.Mode = schema.ModeNormal
	}
	if opts.TriggerSource == "" {
		opts.TriggerSource = schema.SourceManual
		if opts.Mode == schema.ModeTest {
			opts.TriggerSource = schema.SourceTest
		}
	}

	wf, err := e.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if opts.Mode == schema.ModeNormal && !wf.IsActive {
		return nil, schema.NewError(schema.ErrCodeValidation, "workflow is not active").
			WithDetails(map[string]any{"workflow_id": wf.ID})
	}
	return e.run(ctx, wf, triggerData, opts)
}

// Retry re-runs the workflow of a terminal execution from scratch with the
// original input and mode. The new execution has trigger source RETRY and
// points at the original through retry_of.
func (e *Engine) Retry(ctx context.Context, executionID string) (*ExecutionResult, error) {
	prev, err := e.store.GetExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}
	if !prev.Status.Terminal() {
		return nil, schema.NewErrorf(schema.ErrCodeConflict,
			"execution %s is %s and cannot be retried", prev.ID, prev.Status)
	}
	return e.Execute(ctx, prev.WorkflowID, prev.InputData, Options{
		Mode:          prev.Mode,
		TriggerSource: schema.SourceRetry,
		RetryOf:       prev.ID,
	})
}

func (e *Engine) run(ctx context.Context, wf *store.Workflow, triggerData map[string]any, opts Options) (*ExecutionResult, error) {
	ex := &store.Execution{
		ID:            e.newID(),
		WorkflowID:    wf.ID,
		UserID:        wf.UserID,
		Status:        schema.ExecutionRunning,
		Mode:          opts.Mode,
		TriggerSource: opts.TriggerSource,
		RetryOf:       opts.RetryOf,
		InputData:     expressions.Snapshot(triggerData),
		StepsExecuted: []schema.TraceEntry{},
		StartedAt:     e.now(),
	}

	ctx = logging.WithExecutionID(logging.WithWorkflowID(ctx, wf.ID), ex.ID)
	ctx, span := e.tracer.Start(ctx, "workflow.execute", trace.WithAttributes(
		attribute.String("workflow.id", wf.ID),
		attribute.String("execution.id", ex.ID),
		attribute.String("execution.mode", string(opts.Mode)),
		attribute.String("execution.trigger_source", string(opts.TriggerSource)),
	))
	defer span.End()

	if err := e.store.CreateExecution(ctx, ex); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create execution")
		return nil, err
	}
	ref := ExecutionRef{ExecutionID: ex.ID, WorkflowID: wf.ID}
	if err := e.fsm.Transition(ctx, ref, schema.ExecutionPending, schema.ExecutionRunning, nil); err != nil {
		return nil, err
	}
	e.logger.InfoContext(ctx, "execution started",
		slog.String("trigger_source", string(opts.TriggerSource)),
		slog.String("mode", string(opts.Mode)))

	run := &runState{
		data:  expressions.Snapshot(triggerData),
		trace: []schema.TraceEntry{},
	}
	result, err := e.finalize(ctx, wf, ex, run, e.traverse(ctx, wf, ex, run))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, schema.Message(err))
		return result, err
	}
	span.SetStatus(codes.Ok, "")
	return result, nil
}

// runState is the mutable state of one traversal.
type runState struct {
	data  map[string]any
	trace []schema.TraceEntry
}

// traverse performs the FIFO walk. Each step id runs at most once; ids with
// no matching step are skipped.
func (e *Engine) traverse(ctx context.Context, wf *store.Workflow, ex *store.Execution, run *runState) error {
	graph, err := ParseGraph(&wf.Definition)
	if err != nil {
		return err
	}
	if len(graph.Dangling) > 0 {
		e.logger.WarnContext(ctx, "definition has connections to unknown steps",
			slog.Int("count", len(graph.Dangling)))
	}

	queue := []string{graph.Trigger}
	visited := make(map[string]bool, len(graph.Steps))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true

		step, ok := graph.Steps[id]
		if !ok {
			continue
		}
		delta, err := e.runStep(ctx, ex, step, run)
		if err != nil {
			return err
		}
		run.data = expressions.Merge(run.data, delta)
		queue = append(queue, e.router.Next(ctx, &wf.Definition, id, run.data)...)
	}
	return nil
}

func (e *Engine) runStep(ctx context.Context, ex *store.Execution, step *schema.StepDefinition, run *runState) (map[string]any, error) {
	ctx = logging.WithStepID(ctx, step.ID)
	ctx, span := e.tracer.Start(ctx, "workflow.step", trace.WithAttributes(
		attribute.String("step.id", step.ID),
		attribute.String("step.block_type", step.BlockType),
	))
	defer span.End()

	proc, err := e.registry.Get(step.BlockType)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unknown step type")
		return nil, stepError(step.ID, err)
	}

	input := expressions.Snapshot(run.data)
	delta, err := proc.Process(ctx, processors.Input{
		Step:        *step,
		Data:        expressions.Snapshot(run.data),
		WorkflowID:  ex.WorkflowID,
		ExecutionID: ex.ID,
		UserID:      ex.UserID,
	})
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	e.steps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("block_type", step.BlockType),
		attribute.String("outcome", outcome),
	))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, schema.Message(err))
		e.logger.ErrorContext(ctx, "step failed",
			slog.String("block_type", step.BlockType),
			slog.String("error", err.Error()))
		return nil, stepError(step.ID, err)
	}
	if delta == nil {
		delta = map[string]any{}
	}

	entry := schema.TraceEntry{
		StepID:    step.ID,
		Type:      step.BlockType,
		Input:     input,
		Output:    delta,
		Timestamp: e.now().Format(time.RFC3339),
	}
	run.trace = append(run.trace, entry)

	if e.hub != nil {
		_ = e.hub.Publish(context.WithoutCancel(ctx), streaming.Event{
			ExecutionID: ex.ID,
			WorkflowID:  ex.WorkflowID,
			StepID:      step.ID,
			Type:        schema.EventStepCompleted,
			Payload:     map[string]any{"blockType": step.BlockType, "output": delta},
		})
	}
	e.logger.DebugContext(ctx, "step completed", slog.String("block_type", step.BlockType))
	return delta, nil
}

// finalize applies the single terminal update and the counter increment.
// Persisted output and trace are made JSON-safe first. When a SUCCESS write
// is rejected, one FAILED write carrying the persistence error replaces it
// and that error is returned. A traversal error always wins.
func (e *Engine) finalize(ctx context.Context, wf *store.Workflow, ex *store.Execution, run *runState, runErr error) (*ExecutionResult, error) {
	// Detached so an interrupted run is still recorded.
	ctx = context.WithoutCancel(ctx)

	completed := e.now()
	duration := completed.Sub(ex.StartedAt).Milliseconds()
	run.data = expressions.JSONSafeMap(run.data)
	run.trace = jsonSafeTrace(run.trace)
	total := len(run.trace)

	result := &ExecutionResult{
		ExecutionID:   ex.ID,
		WorkflowID:    wf.ID,
		StepsExecuted: total,
		Trace:         run.trace,
		DurationMs:    duration,
	}
	update := store.ExecutionUpdate{
		StepsExecuted: run.trace,
		TotalSteps:    &total,
		CompletedAt:   &completed,
		DurationMs:    &duration,
	}

	if runErr == nil {
		status := schema.ExecutionSuccess
		update.Status = &status
		update.OutputData = run.data
		err := e.store.FinalizeExecution(ctx, ex.ID, update, wf.ID, true)
		if err == nil {
			result.Success = true
			result.Status = status
			result.Output = run.data
			e.completed(ctx, ex, result, map[string]any{"stepsExecuted": total, "durationMs": duration})
			return result, nil
		}
		e.logger.ErrorContext(ctx, "failed to persist execution success", slog.String("error", err.Error()))
		runErr = err
		update.OutputData = nil
	}

	status := schema.ExecutionFailed
	msg := schema.Message(runErr)
	stack := ErrorStack(runErr)
	update.Status = &status
	update.ErrorMessage = &msg
	update.ErrorStack = &stack
	result.Status = status
	result.Error = msg
	if se, ok := schema.AsError(runErr); ok && se.StepID != "" {
		update.FailedStep = &se.StepID
		result.FailedStep = se.StepID
	}
	if _, err := json.Marshal(update.StepsExecuted); err != nil {
		update.StepsExecuted = traceOutline(run.trace)
	}
	if err := e.store.FinalizeExecution(ctx, ex.ID, update, wf.ID, false); err != nil {
		e.logger.ErrorContext(ctx, "failed to persist execution failure", slog.String("error", err.Error()))
	}
	e.completed(ctx, ex, result, map[string]any{"error": msg, "stepsExecuted": total})
	return result, runErr
}

// completed publishes the terminal transition, records the metric and logs.
func (e *Engine) completed(ctx context.Context, ex *store.Execution, result *ExecutionResult, payload map[string]any) {
	ref := ExecutionRef{ExecutionID: ex.ID, WorkflowID: ex.WorkflowID}
	if err := e.fsm.Transition(ctx, ref, schema.ExecutionRunning, result.Status, payload); err != nil {
		e.logger.ErrorContext(ctx, "execution transition rejected", slog.String("error", err.Error()))
	}
	e.executions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", string(result.Status)),
		attribute.String("mode", string(ex.Mode)),
	))

	if result.Success {
		e.logger.InfoContext(ctx, "execution completed",
			slog.Int("steps_executed", result.StepsExecuted),
			slog.Int64("duration_ms", result.DurationMs))
		return
	}
	e.logger.ErrorContext(ctx, "execution failed",
		slog.String("error", result.Error),
		slog.Int("steps_executed", result.StepsExecuted),
		slog.Int64("duration_ms", result.DurationMs))
}

// traceOutline keeps only step ids, types and timestamps.
func traceOutline(trace []schema.TraceEntry) []schema.TraceEntry {
	out := make([]schema.TraceEntry, len(trace))
	for i, entry := range trace {
		out[i] = schema.TraceEntry{StepID: entry.StepID, Type: entry.Type, Timestamp: entry.Timestamp}
	}
	return out
}

func jsonSafeTrace(trace []schema.TraceEntry) []schema.TraceEntry {
	out := make([]schema.TraceEntry, len(trace))
	for i, entry := range trace {
		entry.Input = expressions.JSONSafeMap(entry.Input)
		entry.Output = expressions.JSONSafeMap(entry.Output)
		out[i] = entry
	}
	return out
}

// stepError attaches the step id, wrapping foreign errors as EXECUTION_ERROR.
func stepError(stepID string, err error) error {
	if se, ok := schema.AsError(err); ok {
		if se.StepID == "" {
			se.StepID = stepID
		}
		return se
	}
	return schema.NewError(schema.ErrCodeExecution, err.Error()).WithCause(err).WithStep(stepID)
}

// ErrorStack renders the error chain, one cause per line, with codes and
// the failing step where known.
func ErrorStack(err error) string {
	var lines []string
	for cur := err; cur != nil; cur = errors.Unwrap(cur) {
		lines = append(lines, cur.Error())
	}
	return strings.Join(lines, "\ncaused by: ")
}
