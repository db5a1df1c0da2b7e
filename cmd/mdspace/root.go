package main

import (
	"github.com/spf13/cobra"

	"github.com/banshee-data/mdspace/internal/config"
	"github.com/banshee-data/mdspace/internal/monitoring"
	"github.com/banshee-data/mdspace/internal/version"
)

// app carries the state shared by every subcommand.
type app struct {
	configPath string
	quiet      bool
	cfg        *config.EngineConfig
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "mdspace",
		Short:         "Multi-dimensional event and histogram workspaces",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.quiet {
				monitoring.SetLogger(nil)
			}
			if a.configPath == "" {
				a.cfg = config.EmptyEngineConfig()
				return nil
			}
			cfg, err := config.LoadEngineConfig(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "engine config file (.json, .yaml or .yml)")
	root.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "suppress diagnostic logging")

	root.AddCommand(
		a.convertCmd(),
		a.binCmd(),
		a.lineCmd(),
		a.heatmapCmd(),
		a.infoCmd(),
		a.ubCmd(),
		a.serveCmd(),
	)
	return root
}
