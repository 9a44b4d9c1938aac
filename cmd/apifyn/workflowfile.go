package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"
)

// workflowFile is the on-disk shape accepted by run, validate and diagram.
// Steps may sit under definition or at the top level.
type workflowFile struct {
	Name        string                     `json:"name"`
	Description string                     `json:"description"`
	Definition  *schema.WorkflowDefinition `json:"definition"`
	Steps       []schema.StepDefinition    `json:"steps"`
	Connections []schema.Connection        `json:"connections"`
	TriggerData map[string]any             `json:"trigger_data"`
}

// readWorkflowFile loads a YAML or JSON workflow file. The YAML document is
// re-encoded as JSON so numbers and maps match what the HTTP API produces.
func readWorkflowFile(path string) (*workflowFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow file: %w", err)
	}
	return parseWorkflowFile(path, raw)
}

func parseWorkflowFile(path string, raw []byte) (*workflowFile, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("parse %s: file is empty", path)
	}
	buf, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	var wf workflowFile
	if err := json.Unmarshal(buf, &wf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if wf.Name == "" {
		base := filepath.Base(path)
		wf.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return &wf, nil
}

func (f *workflowFile) definition() *schema.WorkflowDefinition {
	if f.Definition != nil {
		return f.Definition
	}
	return &schema.WorkflowDefinition{Steps: f.Steps, Connections: f.Connections}
}
