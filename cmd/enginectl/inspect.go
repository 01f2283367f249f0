package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/launchcore/engine/internal/config"
	"github.com/launchcore/engine/internal/graph"
)

func inspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Build the graph topology the configuration describes and print its node order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			g, err := graph.Build(cfg.TrackCount, cfg.MaxFxSlots, cfg.MaxBlock, config.DefaultEventCapacity)
			if err != nil {
				return err
			}
			for _, id := range g.TopoOrder() {
				n := g.Node(id)
				fmt.Printf("%3d  %-10s track=%-3d fxslot=%-3d\n", n.ID, n.Kind, n.Track, n.FxSlot)
			}
			return nil
		},
	}
}
