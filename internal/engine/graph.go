package engine

import (
	"fmt"

	"github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"
)

// Graph is the in-memory form of a workflow definition.
type Graph struct {
	Steps map[string]*schema.StepDefinition // step ID → definition
	Order []string                          // definition order
	Out   map[string][]string               // step ID → connection targets, in definition order
	In    map[string][]string               // step ID → connection sources
	// Trigger is the id of the single trigger step.
	Trigger string
	// Dangling lists connections whose endpoints are not steps.
	Dangling []schema.Connection
	// Unreachable lists steps no path from the trigger reaches, in definition order.
	Unreachable []string
	// Cyclic is true when the connections form a cycle. Traversal still
	// terminates because each step runs at most once.
	Cyclic bool
}

// ParseGraph validates a definition and builds its Graph. Empty step lists,
// empty or duplicate ids, and anything other than exactly one trigger are
// INVALID_DEFINITION errors.
func ParseGraph(def *schema.WorkflowDefinition) (*Graph, error) {
	if def == nil || len(def.Steps) == 0 {
		return nil, schema.NewError(schema.ErrCodeInvalidDefinition, "workflow has no steps")
	}

	g := &Graph{
		Steps: make(map[string]*schema.StepDefinition, len(def.Steps)),
		Order: make([]string, 0, len(def.Steps)),
		Out:   make(map[string][]string, len(def.Steps)),
		In:    make(map[string][]string, len(def.Steps)),
	}

	var triggers []string
	for i := range def.Steps {
		step := &def.Steps[i]
		if step.ID == "" {
			return nil, schema.NewError(schema.ErrCodeInvalidDefinition, fmt.Sprintf("step at index %d has empty ID", i))
		}
		if _, exists := g.Steps[step.ID]; exists {
			return nil, schema.NewErrorf(schema.ErrCodeInvalidDefinition, "duplicate step ID: %s", step.ID)
		}
		g.Steps[step.ID] = step
		g.Order = append(g.Order, step.ID)
		if step.Type == schema.StepKindTrigger {
			triggers = append(triggers, step.ID)
		}
	}

	switch len(triggers) {
	case 0:
		return nil, schema.NewError(schema.ErrCodeInvalidDefinition, "No trigger step found in workflow")
	case 1:
		g.Trigger = triggers[0]
	default:
		return nil, schema.NewErrorf(schema.ErrCodeInvalidDefinition,
			"workflow has %d trigger steps, expected exactly one", len(triggers)).
			WithDetails(map[string]any{"triggers": triggers})
	}

	for _, c := range def.Connections {
		_, fromOK := g.Steps[c.From]
		_, toOK := g.Steps[c.To]
		if !fromOK || !toOK {
			g.Dangling = append(g.Dangling, c)
			continue
		}
		g.Out[c.From] = append(g.Out[c.From], c.To)
		g.In[c.To] = append(g.In[c.To], c.From)
	}

	g.Unreachable = g.unreachable()
	g.Cyclic = g.hasCycle()
	return g, nil
}

// unreachable walks every edge from the trigger, ignoring conditions.
func (g *Graph) unreachable() []string {
	seen := map[string]bool{g.Trigger: true}
	queue := []string{g.Trigger}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, next := range g.Out[node] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	var out []string
	for _, id := range g.Order {
		if !seen[id] {
			out = append(out, id)
		}
	}
	return out
}

// hasCycle runs Kahn's algorithm; leftover nodes mean a cycle.
func (g *Graph) hasCycle() bool {
	inDegree := make(map[string]int, len(g.Steps))
	for _, id := range g.Order {
		inDegree[id] = len(g.In[id])
	}
	queue := make([]string, 0)
	for _, id := range g.Order {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	visited := 0
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		visited++
		for _, next := range g.Out[node] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	return visited != len(g.Steps)
}
