package store

import "context"

// WorkflowStore persists workflow definitions and their run counters.
type WorkflowStore interface {
	CreateWorkflow(ctx context.Context, wf *Workflow) error
	GetWorkflow(ctx context.Context, id string) (*Workflow, error)
	UpdateWorkflow(ctx context.Context, id string, update WorkflowUpdate) error
	ListWorkflows(ctx context.Context, filter WorkflowFilter) ([]*Workflow, error)
	DeleteWorkflow(ctx context.Context, id string) error
}

// ExecutionStore persists execution records.
type ExecutionStore interface {
	CreateExecution(ctx context.Context, exec *Execution) error
	GetExecution(ctx context.Context, id string) (*Execution, error)
	ListExecutions(ctx context.Context, filter ExecutionFilter) ([]*Execution, error)

	// FinalizeExecution applies the terminal update and bumps total_runs and
	// exactly one of successful_runs / failed_runs, with last_executed_at,
	// in one transaction.
	FinalizeExecution(ctx context.Context, id string, update ExecutionUpdate, workflowID string, succeeded bool) error
}

// IntegrationStore persists third-party credentials.
type IntegrationStore interface {
	CreateIntegration(ctx context.Context, in *Integration) error
	GetIntegration(ctx context.Context, id string) (*Integration, error)
	// FindActiveIntegration returns the most recently created active
	// integration of the given type for a user, or a NOT_FOUND error.
	FindActiveIntegration(ctx context.Context, userID string, typ string) (*Integration, error)
	ListIntegrations(ctx context.Context, userID string) ([]*Integration, error)
	DeleteIntegration(ctx context.Context, id string) error
}

// Store defines the persistence layer contract.
// All implementations must be safe for concurrent use.
type Store interface {
	WorkflowStore
	ExecutionStore
	IntegrationStore

	Migrate(ctx context.Context) error
	Close() error
}
