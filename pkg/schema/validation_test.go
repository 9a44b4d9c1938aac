package schema

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationResult_EmptyIsValid(t *testing.T) {
	r := &ValidationResult{}
	assert.True(t, r.Valid())
	assert.Nil(t, r.ToError())
}

func TestValidationResult_WarningsStayValid(t *testing.T) {
	r := &ValidationResult{}
	r.AddWarning("connections[0].to", ErrCodeInvalidDefinition, "dangling connection")

	assert.True(t, r.Valid())
	require.Len(t, r.Warnings, 1)
	assert.Equal(t, SeverityWarning, r.Warnings[0].Severity)
	assert.Nil(t, r.ToError())
}

func TestValidationResult_Merge(t *testing.T) {
	r1 := &ValidationResult{}
	r1.AddError("steps", ErrCodeInvalidDefinition, "err1")
	r2 := &ValidationResult{}
	r2.AddError("steps[1].id", ErrCodeInvalidDefinition, "err2")
	r2.AddWarning("connections", ErrCodeInvalidDefinition, "warn")

	r1.Merge(r2)
	r1.Merge(nil)
	assert.Len(t, r1.Errors, 2)
	assert.Len(t, r1.Warnings, 1)
}

func TestValidationResult_ToError(t *testing.T) {
	r := &ValidationResult{}
	r.AddError("steps", ErrCodeInvalidDefinition, "no trigger step found in workflow")

	err := r.ToError()
	require.Error(t, err)
	se, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, ErrCodeInvalidDefinition, se.Code)
	assert.Equal(t, "no trigger step found in workflow", se.Message)
	assert.Equal(t, 1, se.Details["error_count"])

	r.AddError("steps[2].id", ErrCodeInvalidDefinition, "duplicate step id")
	se, _ = AsError(r.ToError())
	assert.Contains(t, se.Message, "2 errors")
	assert.NotContains(t, se.Details, "invalid_steps")
}

func TestValidationResult_StepIssues(t *testing.T) {
	r := &ValidationResult{}
	r.AddStepError("fetch", StepPath(1, "blockType"), ErrCodeUnknownStepType, "unknown step type: teleport")
	r.AddStepError("fetch", StepPath(1, "id"), ErrCodeInvalidDefinition, "duplicate step ID: fetch")
	r.AddError("steps", ErrCodeInvalidDefinition, "No trigger step found in workflow")
	r.AddStepWarning("orphan", "steps.orphan", ErrCodeInvalidDefinition, "unreachable")

	assert.Equal(t, "steps[1].blockType", r.Errors[0].Path)
	assert.Equal(t, "fetch", r.Errors[0].StepID)
	assert.Equal(t, "orphan", r.Warnings[0].StepID)
	assert.Equal(t, []string{"fetch"}, r.InvalidSteps())

	se, ok := AsError(r.ToError())
	require.True(t, ok)
	assert.Equal(t, "workflow definition has 3 errors", se.Message)
	assert.Equal(t, []string{"fetch"}, se.Details["invalid_steps"])
}

func TestValidationPaths(t *testing.T) {
	assert.Equal(t, "steps[0]", StepPath(0, ""))
	assert.Equal(t, "steps[3].config.schedule", StepPath(3, "config.schedule"))
	assert.Equal(t, "connections[2].condition.expression", ConnectionPath(2, "condition.expression"))
}

func TestError_Format(t *testing.T) {
	err := NewErrorf(ErrCodeIntegration, "Slack error: %s", "channel_not_found").WithStep("notify")
	assert.Equal(t, "[INTEGRATION_ERROR] step notify: Slack error: channel_not_found", err.Error())
	assert.Equal(t, "Slack error: channel_not_found", Message(err))

	plain := NewError(ErrCodeNotFound, "workflow not found")
	assert.Equal(t, "[NOT_FOUND] workflow not found", plain.Error())
}

func TestError_ChainHelpers(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("wrapped: %w", NewError(ErrCodeStore, "update execution").WithCause(cause))

	assert.Equal(t, ErrCodeStore, ErrorCode(err))
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsNotFound(err))
	assert.True(t, IsNotFound(NewError(ErrCodeNotFound, "x")))
	assert.Equal(t, "", ErrorCode(cause))
	assert.Equal(t, "connection reset", Message(cause))
	assert.Equal(t, "", Message(nil))
}

func TestWorkflowDefinition_Lookup(t *testing.T) {
	def := WorkflowDefinition{Steps: []StepDefinition{
		{ID: "t", Type: StepKindTrigger, BlockType: "webhook-trigger"},
		{ID: "a", Type: StepKindAction, BlockType: "logger"},
	}}

	triggers := def.TriggerSteps()
	require.Len(t, triggers, 1)
	assert.Equal(t, "t", triggers[0].ID)

	s, ok := def.Step("a")
	require.True(t, ok)
	assert.Equal(t, "logger", s.BlockType)

	_, ok = def.Step("missing")
	assert.False(t, ok)
	assert.True(t, StepKindUtility.Valid())
	assert.False(t, StepKind("loop").Valid())
}
