// Package diagram renders workflow definitions as Mermaid flowcharts, with
// an optional overlay of which steps an execution ran.
package diagram

import "github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"

// NodeKind classifies a diagram node by its workflow step kind.
type NodeKind string

const (
	NodeKindTrigger   NodeKind = "trigger"
	NodeKindAction    NodeKind = "action"
	NodeKindCondition NodeKind = "condition"
	NodeKindUtility   NodeKind = "utility"
)

// Model is the intermediate representation the renderer consumes.
type Model struct {
	Title string
	Nodes []*Node
	Edges []Edge
}

// Node represents a single step in the diagram.
type Node struct {
	ID        string
	Label     string
	Kind      NodeKind
	Status    string // "", completed, failed or skipped
	Dangling  bool   // referenced by a connection but not defined
	BlockType string
}

// Edge represents a connection between two nodes.
type Edge struct {
	From  string
	To    string
	Label string
}

// Overlay carries execution state drawn on top of the graph.
type Overlay struct {
	Executed   []string // step ids in trace order
	FailedStep string
}

// TraceOverlay builds an Overlay from a persisted execution trace.
func TraceOverlay(trace []schema.TraceEntry, failedStep string) *Overlay {
	ov := &Overlay{FailedStep: failedStep}
	for _, entry := range trace {
		ov.Executed = append(ov.Executed, entry.StepID)
	}
	return ov
}
