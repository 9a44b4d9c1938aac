package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Harshvardhan-91/APIfyn-backend/internal/engine"
	"github.com/Harshvardhan-91/APIfyn-backend/internal/store"
	"github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"
)

func newRunCmd(load func() (Config, error)) *cobra.Command {
	var (
		userID string
		data   string
	)
	cmd := &cobra.Command{
		Use:   "run <workflow-file>",
		Short: "Store a workflow file and execute it once in TEST mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			wf, err := readWorkflowFile(args[0])
			if err != nil {
				return err
			}
			trigger := wf.TriggerData
			if data != "" {
				if err := json.Unmarshal([]byte(data), &trigger); err != nil {
					return fmt.Errorf("--data is not a JSON object: %w", err)
				}
			}
			if trigger == nil {
				trigger = map[string]any{}
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			def := wf.definition()
			if err := a.validator.ValidateDefinition(def); err != nil {
				return err
			}
			rec := &store.Workflow{
				ID:          uuid.NewString(),
				UserID:      userID,
				Name:        wf.Name,
				Description: wf.Description,
				Definition:  *def,
			}
			if err := a.store.CreateWorkflow(ctx, rec); err != nil {
				return err
			}

			result, runErr := a.engine.Execute(ctx, rec.ID, trigger, engine.Options{
				Mode:          schema.ModeTest,
				TriggerSource: schema.SourceTest,
			})
			if result != nil {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return err
				}
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&userID, "user", "cli", "owner recorded on the stored workflow")
	cmd.Flags().StringVar(&data, "data", "", "trigger data as a JSON object (overrides trigger_data in the file)")
	return cmd
}
