package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Harshvardhan-91/APIfyn-backend/internal/processors"
	"github.com/Harshvardhan-91/APIfyn-backend/internal/validation"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <workflow-file>",
		Short: "Check a workflow file without touching the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := readWorkflowFile(args[0])
			if err != nil {
				return err
			}
			v, err := offlineValidator()
			if err != nil {
				return err
			}
			result := v.Validate(wf.definition())

			out := cmd.OutOrStdout()
			for _, w := range result.Warnings {
				fmt.Fprintf(out, "warning %s: %s (%s)\n", w.Path, w.Message, w.Code)
			}
			for _, e := range result.Errors {
				fmt.Fprintf(out, "error   %s: %s (%s)\n", e.Path, e.Message, e.Code)
			}
			if !result.Valid() {
				return fmt.Errorf("%s: %d validation error(s)", args[0], len(result.Errors))
			}
			fmt.Fprintf(out, "%s: ok\n", args[0])
			return nil
		},
	}
}

// offlineValidator checks block types against the built-in processors. The
// processors are never invoked, so they get no adapter or credentials.
func offlineValidator() (*validation.WorkflowValidator, error) {
	reg, err := processors.NewBuiltinRegistry(processors.Deps{})
	if err != nil {
		return nil, err
	}
	return validation.NewWorkflowValidator(reg)
}
