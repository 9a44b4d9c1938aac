package schema

// WorkflowDefinition is the graph stored on a workflow: an ordered list of
// steps plus the directed connections between them.
type WorkflowDefinition struct {
	Steps       []StepDefinition `json:"steps" yaml:"steps"`
	Connections []Connection     `json:"connections" yaml:"connections"`
}

// StepDefinition describes a single step in a workflow.
type StepDefinition struct {
	ID          string         `json:"id" yaml:"id"`
	Type        StepKind       `json:"type" yaml:"type"`
	BlockType   string         `json:"blockType" yaml:"blockType"`
	Config      map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
	Position    *Position      `json:"position,omitempty" yaml:"position,omitempty"`
	Connections []string       `json:"connections,omitempty" yaml:"connections,omitempty"` // advisory only
}

// Position is editor metadata; the engine ignores it.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// StepKind enumerates the kinds of steps in a workflow.
type StepKind string

const (
	StepKindTrigger   StepKind = "trigger"
	StepKindAction    StepKind = "action"
	StepKindCondition StepKind = "condition"
	StepKindUtility   StepKind = "utility"
)

// Valid reports whether k is one of the known step kinds.
func (k StepKind) Valid() bool {
	switch k {
	case StepKindTrigger, StepKindAction, StepKindCondition, StepKindUtility:
		return true
	}
	return false
}

// Connection is a directed edge From -> To, optionally guarded by a condition.
type Connection struct {
	From      string               `json:"from" yaml:"from"`
	To        string               `json:"to" yaml:"to"`
	Condition *ConnectionCondition `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// ConnectionCondition guards a connection. Field/Operator/Value compare a
// context field; Expression, when set, is a CEL boolean evaluated instead.
type ConnectionCondition struct {
	Field      string `json:"field,omitempty" yaml:"field,omitempty"`
	Operator   string `json:"operator,omitempty" yaml:"operator,omitempty"`
	Value      any    `json:"value,omitempty" yaml:"value,omitempty"`
	Expression string `json:"expression,omitempty" yaml:"expression,omitempty"`
}

// Router operators.
const (
	OpEquals    = "equals"
	OpNotEquals = "not_equals"
	OpTrue      = "true"
	OpFalse     = "false"
)

// if-condition operators.
const (
	OpContains    = "contains"
	OpGreaterThan = "greater_than"
	OpLessThan    = "less_than"
)

// TriggerSteps returns every step whose kind is trigger.
func (d *WorkflowDefinition) TriggerSteps() []StepDefinition {
	var out []StepDefinition
	for _, s := range d.Steps {
		if s.Type == StepKindTrigger {
			out = append(out, s)
		}
	}
	return out
}

// Step returns the step with the given id.
func (d *WorkflowDefinition) Step(id string) (StepDefinition, bool) {
	for _, s := range d.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return StepDefinition{}, false
}
