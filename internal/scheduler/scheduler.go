// Package scheduler fires workflows whose trigger is a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Harshvardhan-91/APIfyn-backend/internal/engine"
	"github.com/Harshvardhan-91/APIfyn-backend/internal/store"
	"github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"
)

// ScheduleBlockType is the trigger blockType the scheduler looks for.
const ScheduleBlockType = "schedule-trigger"

const defaultInterval = 60 * time.Second

// WorkflowLister is the store subset the scheduler reads.
type WorkflowLister interface {
	ListWorkflows(ctx context.Context, filter store.WorkflowFilter) ([]*store.Workflow, error)
}

// Submitter queues a background execution. Satisfied by *engine.Dispatcher.
type Submitter interface {
	Submit(ctx context.Context, task engine.Task) error
}

// Scheduler polls active workflows and submits those whose schedule came
// due since the previous check.
type Scheduler struct {
	store     WorkflowLister
	submitter Submitter
	parser    cron.Parser
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex

	lastCheck time.Time // guarded by tick being single-threaded

	inflightMu sync.Mutex
	inflight   map[string]struct{} // workflow IDs with a scheduled run in progress
}

// NewScheduler creates a Scheduler. A non-positive interval means 60s.
func NewScheduler(s WorkflowLister, submitter Submitter, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:     s,
		submitter: submitter,
		parser:    cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		interval:  interval,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		inflight:  make(map[string]struct{}),
	}
}

// Start launches the background loop. Schedules are evaluated from the
// moment Start is called; runs missed while the process was down are not
// replayed.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.done != nil {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already started")
	}
	schedCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.lastCheck = s.now()
	s.mu.Unlock()

	go s.loop(schedCtx)
	s.logger.Info("scheduler started", slog.Duration("interval", s.interval))
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, s.now())
		}
	}
}

// tick submits every scheduled workflow with a fire time in (lastCheck, now].
func (s *Scheduler) tick(ctx context.Context, now time.Time) int {
	since := s.lastCheck
	s.lastCheck = now

	active := true
	workflows, err := s.store.ListWorkflows(ctx, store.WorkflowFilter{IsActive: &active})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list workflows", slog.String("error", err.Error()))
		return 0
	}

	fired := 0
	for _, wf := range workflows {
		sched, ok, err := s.schedule(&wf.Definition)
		if err != nil {
			s.logger.WarnContext(ctx, "invalid cron schedule",
				slog.String("workflow_id", wf.ID),
				slog.String("error", err.Error()))
			continue
		}
		if !ok {
			continue
		}
		due := sched.Next(since)
		if due.After(now) {
			continue
		}
		if !s.tryAcquire(wf.ID) {
			s.logger.InfoContext(ctx, "previous scheduled run still in progress; skipping",
				slog.String("workflow_id", wf.ID))
			continue
		}
		if err := s.submit(ctx, wf.ID, due); err != nil {
			s.release(wf.ID)
			s.logger.ErrorContext(ctx, "failed to submit scheduled run",
				slog.String("workflow_id", wf.ID),
				slog.String("error", err.Error()))
			continue
		}
		fired++
	}
	return fired
}

func (s *Scheduler) submit(ctx context.Context, workflowID string, due time.Time) error {
	s.logger.InfoContext(ctx, "running scheduled workflow",
		slog.String("workflow_id", workflowID),
		slog.Time("scheduled_at", due))
	return s.submitter.Submit(ctx, engine.Task{
		WorkflowID: workflowID,
		TriggerData: map[string]any{
			"trigger":      "schedule",
			"scheduled_at": due.Format(time.RFC3339),
		},
		Options: engine.Options{
			Mode:          schema.ModeNormal,
			TriggerSource: schema.SourceSchedule,
		},
		OnDone: func(*engine.ExecutionResult, error) { s.release(workflowID) },
	})
}

// ScheduleOf returns the cron spec of a definition whose single trigger is
// a schedule-trigger.
func ScheduleOf(def *schema.WorkflowDefinition) (string, bool) {
	triggers := def.TriggerSteps()
	if len(triggers) != 1 || triggers[0].BlockType != ScheduleBlockType {
		return "", false
	}
	spec, _ := triggers[0].Config["schedule"].(string)
	return spec, spec != ""
}

func (s *Scheduler) schedule(def *schema.WorkflowDefinition) (cron.Schedule, bool, error) {
	spec, ok := ScheduleOf(def)
	if !ok {
		return nil, false, nil
	}
	sched, err := s.parser.Parse(spec)
	if err != nil {
		return nil, false, fmt.Errorf("parse cron expression %q: %w", spec, err)
	}
	return sched, true, nil
}

// NextRun reports when the scheduler will next fire wf after from. It
// returns false for inactive workflows, workflows without a schedule
// trigger and unparseable schedules.
func (s *Scheduler) NextRun(wf *store.Workflow, from time.Time) (time.Time, bool) {
	if wf == nil || !wf.IsActive {
		return time.Time{}, false
	}
	sched, ok, err := s.schedule(&wf.Definition)
	if err != nil || !ok {
		return time.Time{}, false
	}
	return sched.Next(from), true
}

// tryAcquire returns true and marks the workflow as in-flight if it is not already running.
func (s *Scheduler) tryAcquire(workflowID string) bool {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	if _, ok := s.inflight[workflowID]; ok {
		return false
	}
	s.inflight[workflowID] = struct{}{}
	return true
}

func (s *Scheduler) release(workflowID string) {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	delete(s.inflight, workflowID)
}

// Stop shuts the loop down. Runs already submitted finish on the dispatcher.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return nil
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil

	s.logger.Info("scheduler stopped")
	return nil
}
