package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Harshvardhan-91/APIfyn-backend/internal/diagram"
)

func newDiagramCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diagram <workflow-file>",
		Short: "Print a workflow file as a Mermaid flowchart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := readWorkflowFile(args[0])
			if err != nil {
				return err
			}
			model, err := diagram.Build(wf.Name, wf.definition(), nil)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), diagram.RenderMermaid(model))
			return nil
		},
	}
}
