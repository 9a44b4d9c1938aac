package validation

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"
)

type mockLookup map[string]bool

func newMockLookup(names ...string) mockLookup {
	m := mockLookup{}
	for _, n := range names {
		m[n] = true
	}
	return m
}

func (m mockLookup) Has(name string) bool { return m[name] }

func validDef() *schema.WorkflowDefinition {
	return &schema.WorkflowDefinition{
		Steps: []schema.StepDefinition{
			{ID: "t", Type: schema.StepKindTrigger, BlockType: "webhook-trigger"},
			{ID: "c", Type: schema.StepKindCondition, BlockType: "if-condition", Config: map[string]any{"field": "status", "operator": "equals", "value": "ok"}},
			{ID: "s", Type: schema.StepKindAction, BlockType: "slack-send", Config: map[string]any{"channel": "#ops"}},
		},
		Connections: []schema.Connection{
			{From: "t", To: "c"},
			{From: "c", To: "s", Condition: &schema.ConnectionCondition{Field: "condition_result", Operator: "true"}},
		},
	}
}

func issueCodes(issues []schema.ValidationIssue) []string {
	codes := make([]string, len(issues))
	for i, is := range issues {
		codes[i] = is.Code
	}
	return codes
}

func TestWorkflowValidator_Valid(t *testing.T) {
	wv, err := NewWorkflowValidator(newMockLookup("webhook-trigger", "if-condition", "slack-send"))
	require.NoError(t, err)

	result := wv.Validate(validDef())
	assert.True(t, result.Valid())
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
	assert.NoError(t, wv.ValidateDefinition(validDef()))
}

func TestWorkflowValidator_NilDef(t *testing.T) {
	wv, err := NewWorkflowValidator(nil)
	require.NoError(t, err)

	result := wv.Validate(nil)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "nil")
}

func TestWorkflowValidator_NilLookupSkipsBlockCheck(t *testing.T) {
	wv, err := NewWorkflowValidator(nil)
	require.NoError(t, err)

	def := validDef()
	def.Steps[2].BlockType = "carrier-pigeon"
	assert.True(t, wv.Validate(def).Valid())
}

func TestWorkflowValidator_UnknownBlockType(t *testing.T) {
	wv, err := NewWorkflowValidator(newMockLookup("webhook-trigger", "if-condition"))
	require.NoError(t, err)

	result := wv.Validate(validDef())
	require.False(t, result.Valid())
	require.Len(t, result.Errors, 1)
	assert.Equal(t, schema.ErrCodeUnknownStepType, result.Errors[0].Code)
	assert.Equal(t, "steps[2].blockType", result.Errors[0].Path)
	assert.Equal(t, "s", result.Errors[0].StepID)
	assert.Equal(t, "unknown step type: slack-send", result.Errors[0].Message)
	assert.Equal(t, []string{"s"}, result.InvalidSteps())
}

func TestWorkflowValidator_StructuralErrors(t *testing.T) {
	wv, err := NewWorkflowValidator(newMockLookup())
	require.NoError(t, err)

	tests := []struct {
		name string
		def  *schema.WorkflowDefinition
	}{
		{"no steps", &schema.WorkflowDefinition{}},
		{"bad kind", &schema.WorkflowDefinition{Steps: []schema.StepDefinition{{ID: "t", Type: "robot", BlockType: "x"}}}},
		{"missing blockType", &schema.WorkflowDefinition{Steps: []schema.StepDefinition{{ID: "t", Type: schema.StepKindTrigger}}}},
		{"empty id", &schema.WorkflowDefinition{Steps: []schema.StepDefinition{{Type: schema.StepKindTrigger, BlockType: "x"}}}},
		{"connection without to", &schema.WorkflowDefinition{
			Steps:       []schema.StepDefinition{{ID: "t", Type: schema.StepKindTrigger, BlockType: "x"}},
			Connections: []schema.Connection{{From: "t"}},
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := wv.Validate(tc.def)
			require.False(t, result.Valid())
			for _, e := range result.Errors {
				// Structural errors short-circuit semantic checks.
				assert.Equal(t, schema.ErrCodeValidation, e.Code)
			}
		})
	}
}

func TestWorkflowValidator_TriggerCount(t *testing.T) {
	wv, err := NewWorkflowValidator(nil)
	require.NoError(t, err)

	def := validDef()
	def.Steps[0].Type = schema.StepKindAction
	result := wv.Validate(def)
	require.False(t, result.Valid())
	assert.Equal(t, "No trigger step found in workflow", result.Errors[0].Message)

	def = validDef()
	def.Steps[1].Type = schema.StepKindTrigger
	result = wv.Validate(def)
	require.False(t, result.Valid())
	assert.Equal(t, "workflow has 2 trigger steps, expected exactly one", result.Errors[0].Message)
}

func TestWorkflowValidator_DuplicateStep(t *testing.T) {
	wv, err := NewWorkflowValidator(nil)
	require.NoError(t, err)

	def := validDef()
	def.Steps[2].ID = "c"
	result := wv.Validate(def)
	require.False(t, result.Valid())
	assert.Contains(t, issueCodes(result.Errors), CodeDuplicateStep)
}

func TestWorkflowValidator_Warnings(t *testing.T) {
	wv, err := NewWorkflowValidator(nil)
	require.NoError(t, err)

	def := validDef()
	def.Steps = append(def.Steps, schema.StepDefinition{ID: "orphan", Type: schema.StepKindUtility, BlockType: "logger"})
	def.Connections = append(def.Connections,
		schema.Connection{From: "s", To: "ghost"},
		schema.Connection{From: "s", To: "c", Condition: &schema.ConnectionCondition{Field: "x", Operator: "maybe"}},
	)

	result := wv.Validate(def)
	assert.True(t, result.Valid(), "warnings do not invalidate: %+v", result.Errors)
	codes := issueCodes(result.Warnings)
	assert.Contains(t, codes, CodeDanglingEdge)
	assert.Contains(t, codes, CodeUnknownOperator)
	assert.Contains(t, codes, CodeUnreachable)
	assert.Contains(t, codes, CodeCycle)
}

func TestWorkflowValidator_Expression(t *testing.T) {
	wv, err := NewWorkflowValidator(nil)
	require.NoError(t, err)

	def := validDef()
	def.Connections[1].Condition = &schema.ConnectionCondition{Expression: `data.condition_result == true`}
	assert.True(t, wv.Validate(def).Valid())

	def.Connections[1].Condition = &schema.ConnectionCondition{Expression: `data.condition_result ==`}
	result := wv.Validate(def)
	require.False(t, result.Valid())
	assert.Equal(t, CodeInvalidExpression, result.Errors[0].Code)
	assert.Equal(t, "connections[1].condition.expression", result.Errors[0].Path)
}

func TestWorkflowValidator_Schedule(t *testing.T) {
	wv, err := NewWorkflowValidator(nil)
	require.NoError(t, err)

	def := validDef()
	def.Steps[0].BlockType = "schedule-trigger"
	def.Steps[0].Config = map[string]any{"schedule": "*/5 * * * *"}
	assert.True(t, wv.Validate(def).Valid())

	def.Steps[0].Config = map[string]any{"schedule": "every tuesday"}
	result := wv.Validate(def)
	require.False(t, result.Valid())
	assert.Equal(t, CodeInvalidSchedule, result.Errors[0].Code)
	assert.Equal(t, "steps[0].config.schedule", result.Errors[0].Path)
	assert.Equal(t, "t", result.Errors[0].StepID)

	def.Steps[0].Config = nil
	result = wv.Validate(def)
	require.False(t, result.Valid())
	assert.Equal(t, "schedule-trigger requires a cron schedule", result.Errors[0].Message)
}

func TestWorkflowValidator_ValidateDefinitionError(t *testing.T) {
	wv, err := NewWorkflowValidator(nil)
	require.NoError(t, err)

	def := validDef()
	def.Steps[0].Type = schema.StepKindAction
	err = wv.ValidateDefinition(def)
	require.Error(t, err)
	se, ok := schema.AsError(err)
	require.True(t, ok)
	assert.Equal(t, schema.ErrCodeInvalidDefinition, se.Code)
	assert.Equal(t, 1, se.Details["error_count"])
}

func TestJSONSchemaValidator_ValidateRaw(t *testing.T) {
	v, err := NewJSONSchemaValidator()
	require.NoError(t, err)

	raw, err := json.Marshal(validDef())
	require.NoError(t, err)
	assert.NoError(t, v.ValidateRaw(raw))

	err = v.ValidateRaw([]byte(`{"steps": "nope"}`))
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeValidation, schema.ErrorCode(err))

	err = v.ValidateRaw([]byte(`{not json`))
	require.Error(t, err)
	assert.Equal(t, "definition is not valid JSON", schema.Message(err))

	// Editor metadata on steps is allowed.
	assert.NoError(t, v.ValidateRaw([]byte(`{"steps":[{"id":"t","type":"trigger","blockType":"webhook-trigger","label":"Start"}]}`)))
}

func TestWorkflowValidator_Concurrent(t *testing.T) {
	wv, err := NewWorkflowValidator(newMockLookup("webhook-trigger", "if-condition", "slack-send"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, wv.Validate(validDef()).Valid())
		}()
	}
	wg.Wait()
}
