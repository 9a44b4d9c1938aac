// Command apifyn runs the APIfyn workflow engine: the HTTP API with webhook
// intake, the cron scheduler and the MCP endpoint, plus offline tools for
// migrating, running, validating and diagramming workflow files.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "apifyn",
		Short:         "APIfyn workflow execution engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ./config.yaml or ~/.apifyn/config.yaml)")

	load := func() (Config, error) { return loadConfig(configFile) }

	root.AddCommand(
		newServeCmd(load),
		newMigrateCmd(load),
		newRunCmd(load),
		newValidateCmd(),
		newDiagramCmd(),
		newVersionCmd(),
	)
	return root
}
