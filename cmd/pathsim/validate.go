package main

import (
	"fmt"

	"github.com/kestrelgames/pathkeeper/pkg/pathfinder"
	"github.com/spf13/cobra"
)

func newValidateConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config",
		Short: "Load and schema-validate the dispatcher config without starting anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := pathfinder.LoadConfig(configFile, schemaFile)
			if err != nil {
				return err
			}
			fmt.Printf("config OK: %s\n", configFile)
			fmt.Printf("  allowDiagonal=%v maxIterations=%d cacheCapacity=%d cacheTtlSeconds=%v maxPathsPerFrame=%d\n",
				cfg.AllowDiagonal, cfg.MaxIterations, cfg.CacheCapacity, cfg.CacheTTLSeconds, cfg.MaxPathsPerFrame)
			return nil
		},
	}
}
