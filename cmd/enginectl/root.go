// Command enginectl is a diagnostic CLI around the engine core: validating
// a configuration, inspecting the graph a configuration would build, and
// running a synthetic render benchmark without any real plugin or audio
// device attached.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enginectl",
		Short: "Inspect and benchmark the launchcore audio engine",
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file (defaults to built-in + env)")
	cmd.AddCommand(validateCommand(), inspectCommand(), benchCommand())
	return cmd
}

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
