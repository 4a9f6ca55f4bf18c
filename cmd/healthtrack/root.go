package main

import (
	"github.com/spf13/cobra"

	"healthtrack/internal/config"
)

var configPath string

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "healthtrack",
		Short:        "healthtrack - a personal daily health log",
		Long:         "healthtrack records weight, sleep, exercise, water, diet, energy, mood and stress per day and charts them over time.",
		Version:      version,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newRecordsCmd())
	cmd.AddCommand(newChartCmd())
	return cmd
}

func loadConfig() (config.Config, error) {
	return config.Load(configPath, nil)
}
