package schema

// Event type constants published on the execution stream.
const (
	EventExecutionStarted   = "execution_started"
	EventStepCompleted      = "step_completed"
	EventExecutionCompleted = "execution_completed"
	EventExecutionFailed    = "execution_failed"
)

// ExecutionStatus represents the lifecycle state of a workflow execution.
type ExecutionStatus string

const (
	ExecutionPending ExecutionStatus = "PENDING"
	ExecutionRunning ExecutionStatus = "RUNNING"
	ExecutionSuccess ExecutionStatus = "SUCCESS"
	ExecutionFailed  ExecutionStatus = "FAILED"
)

// Terminal reports whether no further transitions are possible.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionSuccess || s == ExecutionFailed
}

// ExecutionMode selects whether activity and quota checks apply.
type ExecutionMode string

const (
	ModeNormal ExecutionMode = "NORMAL"
	ModeTest   ExecutionMode = "TEST"
)

// TriggerSource records what started an execution.
type TriggerSource string

const (
	SourceManual   TriggerSource = "MANUAL"
	SourceWebhook  TriggerSource = "WEBHOOK"
	SourceSchedule TriggerSource = "SCHEDULE"
	SourceTest     TriggerSource = "TEST"
	SourceRetry    TriggerSource = "RETRY"
)

// IntegrationType is the capability an integration credential grants.
type IntegrationType string

const (
	IntegrationEmail  IntegrationType = "EMAIL"
	IntegrationChat   IntegrationType = "CHAT"
	IntegrationSheets IntegrationType = "SHEETS"
	IntegrationHTTP   IntegrationType = "HTTP"
	IntegrationAI     IntegrationType = "AI"
)

// Valid reports whether t is a known integration type.
func (t IntegrationType) Valid() bool {
	switch t {
	case IntegrationEmail, IntegrationChat, IntegrationSheets, IntegrationHTTP, IntegrationAI:
		return true
	}
	return false
}

// TraceEntry is one executed step in an execution's history.
type TraceEntry struct {
	StepID    string         `json:"stepId"`
	Type      string         `json:"type"`
	Input     map[string]any `json:"input"`
	Output    map[string]any `json:"output"`
	Timestamp string         `json:"timestamp"`
}
