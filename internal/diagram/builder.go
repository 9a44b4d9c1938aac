package diagram

import (
	"fmt"

	"github.com/Harshvardhan-91/APIfyn-backend/internal/engine"
	"github.com/Harshvardhan-91/APIfyn-backend/internal/expressions"
	"github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"
)

// Build constructs a Model from a definition. overlay may be nil.
func Build(title string, def *schema.WorkflowDefinition, overlay *Overlay) (*Model, error) {
	g, err := engine.ParseGraph(def)
	if err != nil {
		return nil, fmt.Errorf("diagram: %w", err)
	}

	executed := map[string]bool{}
	if overlay != nil {
		for _, id := range overlay.Executed {
			executed[id] = true
		}
	}

	m := &Model{Title: title}
	for _, id := range g.Order {
		step := g.Steps[id]
		node := &Node{
			ID:        id,
			Label:     fmt.Sprintf("%s: %s", id, step.BlockType),
			Kind:      kindOf(step.Type),
			BlockType: step.BlockType,
		}
		if overlay != nil {
			switch {
			case executed[id]:
				node.Status = "completed"
			case id == overlay.FailedStep:
				node.Status = "failed"
			default:
				node.Status = "skipped"
			}
		}
		m.Nodes = append(m.Nodes, node)
	}

	dangling := map[string]bool{}
	for _, c := range def.Connections {
		m.Edges = append(m.Edges, Edge{From: c.From, To: c.To, Label: EdgeLabel(c.Condition)})
		for _, id := range []string{c.From, c.To} {
			if _, ok := g.Steps[id]; !ok && !dangling[id] {
				dangling[id] = true
				m.Nodes = append(m.Nodes, &Node{ID: id, Label: id + " (missing)", Kind: NodeKindAction, Dangling: true})
			}
		}
	}
	return m, nil
}

// EdgeLabel renders a connection condition as "field operator value", or the
// CEL expression when one is set.
func EdgeLabel(cond *schema.ConnectionCondition) string {
	switch {
	case cond == nil:
		return ""
	case cond.Expression != "":
		return cond.Expression
	case cond.Operator == schema.OpTrue || cond.Operator == schema.OpFalse:
		return fmt.Sprintf("%s %s", cond.Field, cond.Operator)
	default:
		return fmt.Sprintf("%s %s %s", cond.Field, cond.Operator, expressions.Stringify(cond.Value))
	}
}

func kindOf(k schema.StepKind) NodeKind {
	switch k {
	case schema.StepKindTrigger:
		return NodeKindTrigger
	case schema.StepKindCondition:
		return NodeKindCondition
	case schema.StepKindUtility:
		return NodeKindUtility
	default:
		return NodeKindAction
	}
}
