package schema

import "fmt"

// ValidationSeverity indicates whether an issue blocks a definition.
type ValidationSeverity string

const (
	SeverityError   ValidationSeverity = "error"
	SeverityWarning ValidationSeverity = "warning"
)

// ValidationIssue is a single problem found in a workflow definition.
// StepID is set when the issue belongs to one step.
type ValidationIssue struct {
	Path     string             `json:"path"`
	StepID   string             `json:"step_id,omitempty"`
	Code     string             `json:"code"`
	Message  string             `json:"message"`
	Severity ValidationSeverity `json:"severity"`
}

// StepPath locates a field of the i-th step, e.g. steps[2].blockType.
func StepPath(i int, field string) string {
	return joinPath(fmt.Sprintf("steps[%d]", i), field)
}

// ConnectionPath locates a field of the i-th connection, e.g.
// connections[0].condition.expression.
func ConnectionPath(i int, field string) string {
	return joinPath(fmt.Sprintf("connections[%d]", i), field)
}

func joinPath(base, field string) string {
	if field == "" {
		return base
	}
	return base + "." + field
}

// ValidationResult aggregates the issues of one validation pass.
type ValidationResult struct {
	Errors   []ValidationIssue `json:"errors,omitempty"`
	Warnings []ValidationIssue `json:"warnings,omitempty"`
}

// Valid returns true if there are no errors. Warnings are acceptable.
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// AddError appends an error-severity issue.
func (r *ValidationResult) AddError(path, code, message string) {
	r.Errors = append(r.Errors, ValidationIssue{
		Path: path, Code: code, Message: message, Severity: SeverityError,
	})
}

// AddWarning appends a warning-severity issue.
func (r *ValidationResult) AddWarning(path, code, message string) {
	r.Warnings = append(r.Warnings, ValidationIssue{
		Path: path, Code: code, Message: message, Severity: SeverityWarning,
	})
}

// AddStepError appends an error attributed to stepID.
func (r *ValidationResult) AddStepError(stepID, path, code, message string) {
	r.Errors = append(r.Errors, ValidationIssue{
		Path: path, StepID: stepID, Code: code, Message: message, Severity: SeverityError,
	})
}

// AddStepWarning appends a warning attributed to stepID.
func (r *ValidationResult) AddStepWarning(stepID, path, code, message string) {
	r.Warnings = append(r.Warnings, ValidationIssue{
		Path: path, StepID: stepID, Code: code, Message: message, Severity: SeverityWarning,
	})
}

// InvalidSteps returns the IDs of steps with at least one error, in the
// order they were first reported.
func (r *ValidationResult) InvalidSteps() []string {
	var ids []string
	seen := make(map[string]bool)
	for _, issue := range r.Errors {
		if issue.StepID == "" || seen[issue.StepID] {
			continue
		}
		seen[issue.StepID] = true
		ids = append(ids, issue.StepID)
	}
	return ids
}

// Merge combines another result into this one.
func (r *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// ToError converts the result to an INVALID_DEFINITION error, or nil if valid.
func (r *ValidationResult) ToError() error {
	if r.Valid() {
		return nil
	}

	msg := r.Errors[0].Message
	if len(r.Errors) > 1 {
		msg = fmt.Sprintf("workflow definition has %d errors", len(r.Errors))
	}

	details := map[string]any{
		"error_count":   len(r.Errors),
		"warning_count": len(r.Warnings),
		"errors":        r.Errors,
		"warnings":      r.Warnings,
	}
	if steps := r.InvalidSteps(); len(steps) > 0 {
		details["invalid_steps"] = steps
	}
	return NewError(ErrCodeInvalidDefinition, msg).WithDetails(details)
}
