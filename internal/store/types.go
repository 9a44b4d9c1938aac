package store

import (
	"time"

	"github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"
)

// Workflow is a user-owned automation definition plus its run counters.
type Workflow struct {
	ID             string                    `json:"id"`
	UserID         string                    `json:"user_id"`
	Name           string                    `json:"name"`
	Description    string                    `json:"description,omitempty"`
	Definition     schema.WorkflowDefinition `json:"definition"`
	IsActive       bool                      `json:"is_active"`
	TotalRuns      int64                     `json:"total_runs"`
	SuccessfulRuns int64                     `json:"successful_runs"`
	FailedRuns     int64                     `json:"failed_runs"`
	LastExecutedAt *time.Time                `json:"last_executed_at,omitempty"`
	CreatedAt      time.Time                 `json:"created_at"`
	UpdatedAt      time.Time                 `json:"updated_at"`
}

// WorkflowUpdate holds the mutable fields of a workflow. Nil fields are left unchanged.
type WorkflowUpdate struct {
	Name        *string
	Description *string
	Definition  *schema.WorkflowDefinition
	IsActive    *bool
}

// WorkflowFilter narrows ListWorkflows.
type WorkflowFilter struct {
	UserID   string
	IsActive *bool
	Limit    int
	Offset   int
}

// Execution is one run of a workflow.
type Execution struct {
	ID            string                 `json:"id"`
	WorkflowID    string                 `json:"workflow_id"`
	UserID        string                 `json:"user_id"`
	Status        schema.ExecutionStatus `json:"status"`
	Mode          schema.ExecutionMode   `json:"execution_mode"`
	TriggerSource schema.TriggerSource   `json:"trigger_source"`
	RetryOf       string                 `json:"retry_of,omitempty"`
	InputData     map[string]any         `json:"input_data"`
	OutputData    map[string]any         `json:"output_data,omitempty"`
	StepsExecuted []schema.TraceEntry    `json:"steps_executed"`
	TotalSteps    int                    `json:"total_steps"`
	ErrorMessage  string                 `json:"error_message,omitempty"`
	ErrorStack    string                 `json:"error_stack,omitempty"`
	FailedStep    string                 `json:"failed_step,omitempty"`
	StartedAt     time.Time              `json:"started_at"`
	CompletedAt   *time.Time             `json:"completed_at,omitempty"`
	DurationMs    *int64                 `json:"duration_ms,omitempty"`
}

// ExecutionUpdate holds the fields written when an execution changes state.
// Nil fields are left unchanged.
type ExecutionUpdate struct {
	Status        *schema.ExecutionStatus
	OutputData    map[string]any
	StepsExecuted []schema.TraceEntry
	TotalSteps    *int
	ErrorMessage  *string
	ErrorStack    *string
	FailedStep    *string
	CompletedAt   *time.Time
	DurationMs    *int64
}

// ExecutionFilter narrows ListExecutions.
type ExecutionFilter struct {
	WorkflowID string
	UserID     string
	Status     *schema.ExecutionStatus
	Limit      int
	Offset     int
}

// Integration is a stored credential for a third-party service. Tokens are
// persisted as given; callers seal them before writing.
type Integration struct {
	ID           string                 `json:"id"`
	UserID       string                 `json:"user_id"`
	Type         schema.IntegrationType `json:"type"`
	Provider     string                 `json:"provider"`
	AccessToken  string                 `json:"-"`
	RefreshToken string                 `json:"-"`
	Config       map[string]any         `json:"config,omitempty"`
	IsActive     bool                   `json:"is_active"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}
