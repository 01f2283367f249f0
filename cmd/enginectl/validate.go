package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/launchcore/engine/internal/config"
)

func validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the engine configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			fmt.Printf("ok: %d tracks, %d scenes, %d fx slots, block=%d @ %dHz\n",
				cfg.TrackCount, cfg.SceneCount, cfg.MaxFxSlots, cfg.MaxBlock, cfg.SampleRate)
			return nil
		},
	}
}
