// Package validation checks workflow definitions before they are stored or
// executed: JSON Schema structure first, then semantic and graph checks.
package validation

import "github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"

// Validator checks workflow definitions for correctness before execution.
type Validator interface {
	Validate(def *schema.WorkflowDefinition) *schema.ValidationResult
	ValidateDefinition(def *schema.WorkflowDefinition) error
}

// BlockLookup reports whether a blockType has a processor.
type BlockLookup interface {
	Has(blockType string) bool
}
