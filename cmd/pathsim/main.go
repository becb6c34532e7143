package main

import (
	stdLog "log"
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile = "config.json"
	schemaFile = "config_schema.json"
)

func main() {
	root := &cobra.Command{
		Use:   "pathsim",
		Short: "A tile-grid pathfinding dispatcher demo and benchmark harness",
	}
	pf := root.PersistentFlags()
	pf.StringVar(&configFile, "config", configFile, "path to the dispatcher config JSON")
	pf.StringVar(&schemaFile, "schema", schemaFile, "path to the config JSON schema")

	root.AddCommand(newRunCmd())
	root.AddCommand(newBenchCmd())
	root.AddCommand(newValidateConfigCmd())

	if err := root.Execute(); err != nil {
		stdLog.Println(err)
		os.Exit(1)
	}
}
