package validation

import (
	"fmt"
	"slices"

	"github.com/robfig/cron/v3"

	"github.com/Harshvardhan-91/APIfyn-backend/internal/expressions"
	"github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"
)

// Issue codes specific to semantic checks.
const (
	CodeDuplicateStep     = "DUPLICATE_STEP"
	CodeTriggerCount      = "TRIGGER_COUNT"
	CodeDanglingEdge      = "DANGLING_CONNECTION"
	CodeUnknownOperator   = "UNKNOWN_OPERATOR"
	CodeInvalidExpression = "INVALID_EXPRESSION"
	CodeInvalidSchedule   = "INVALID_SCHEDULE"
	CodeUnreachable       = "UNREACHABLE_STEP"
	CodeCycle             = "CYCLE"
)

var routerOperators = []string{schema.OpEquals, schema.OpNotEquals, schema.OpTrue, schema.OpFalse}

// validateSemantic checks step ids, trigger count, block types, connection
// endpoints, connection conditions and schedule trigger config.
func validateSemantic(def *schema.WorkflowDefinition, lookup BlockLookup, cel *expressions.CELEngine) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	stepIDs := make(map[string]bool, len(def.Steps))
	triggers := 0
	for i, s := range def.Steps {
		if stepIDs[s.ID] {
			result.AddStepError(s.ID, schema.StepPath(i, "id"), CodeDuplicateStep, fmt.Sprintf("duplicate step ID: %s", s.ID))
		}
		stepIDs[s.ID] = true

		if s.Type == schema.StepKindTrigger {
			triggers++
		}
		if lookup != nil && !lookup.Has(s.BlockType) {
			result.AddStepError(s.ID, schema.StepPath(i, "blockType"), schema.ErrCodeUnknownStepType,
				fmt.Sprintf("unknown step type: %s", s.BlockType))
		}
		if s.BlockType == "schedule-trigger" {
			validateSchedule(s, schema.StepPath(i, "config.schedule"), result)
		}
	}

	switch {
	case triggers == 0:
		result.AddError("steps", CodeTriggerCount, "No trigger step found in workflow")
	case triggers > 1:
		result.AddError("steps", CodeTriggerCount,
			fmt.Sprintf("workflow has %d trigger steps, expected exactly one", triggers))
	}

	for i, c := range def.Connections {
		if !stepIDs[c.From] {
			result.AddWarning(schema.ConnectionPath(i, "from"), CodeDanglingEdge,
				fmt.Sprintf("references non-existent step %q", c.From))
		}
		if !stepIDs[c.To] {
			result.AddWarning(schema.ConnectionPath(i, "to"), CodeDanglingEdge,
				fmt.Sprintf("references non-existent step %q", c.To))
		}
		validateCondition(c.Condition, schema.ConnectionPath(i, "condition"), cel, result)
	}
	return result
}

// validateCondition mirrors the router: unknown operators are followed, so
// they only warn. A CEL expression that does not compile is an error.
func validateCondition(cond *schema.ConnectionCondition, path string, cel *expressions.CELEngine, result *schema.ValidationResult) {
	if cond == nil {
		return
	}
	if cond.Expression != "" {
		if cel != nil {
			if err := cel.Compile(cond.Expression); err != nil {
				result.AddError(path+".expression", CodeInvalidExpression, schema.Message(err))
			}
		}
		return
	}
	if !slices.Contains(routerOperators, cond.Operator) {
		result.AddWarning(path+".operator", CodeUnknownOperator,
			fmt.Sprintf("operator %q is not recognised; the connection is always followed", cond.Operator))
	}
}

func validateSchedule(s schema.StepDefinition, path string, result *schema.ValidationResult) {
	spec, _ := s.Config["schedule"].(string)
	if spec == "" {
		result.AddStepError(s.ID, path, CodeInvalidSchedule, "schedule-trigger requires a cron schedule")
		return
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		result.AddStepError(s.ID, path, CodeInvalidSchedule,
			fmt.Sprintf("invalid cron schedule %q: %v", spec, err))
	}
}
