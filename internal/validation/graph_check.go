package validation

import (
	"fmt"

	"github.com/Harshvardhan-91/APIfyn-backend/internal/engine"
	"github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"
)

// validateGraph reports steps the trigger can never reach and cycles. Both
// are warnings: traversal visits each step at most once.
func validateGraph(def *schema.WorkflowDefinition) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	g, err := engine.ParseGraph(def)
	if err != nil {
		result.AddError("steps", schema.ErrCodeInvalidDefinition, schema.Message(err))
		return result
	}
	for _, id := range g.Unreachable {
		result.AddStepWarning(id, "steps."+id, CodeUnreachable,
			fmt.Sprintf("step %q is not reachable from trigger %q", id, g.Trigger))
	}
	if g.Cyclic {
		result.AddWarning("connections", CodeCycle, "connections form a cycle; each step still runs at most once")
	}
	return result
}
