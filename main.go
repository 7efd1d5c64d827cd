// Galapagotchi evolves a population of creatures that learn to walk from their
// home across a journey of destinations.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pthm-cable/galapagotchi/config"
	"github.com/pthm-cable/galapagotchi/logging"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "galapagotchi",
		Short: "Evolve walking creatures across an island journey",
		Long: `galapagotchi runs a generational evolution: creatures start from a home
cell and are ranked by how close they get to the next destination. The best
genome of every generation is kept, and a creature that touches its
destination becomes the seed for the next leg of the journey.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "Path to config.yaml (empty = use defaults)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (empty = use config)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: json or text (empty = use config)")

	rootCmd.AddCommand(
		newRunCmd(),
		newGenomeCmd(),
		newJourneyCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// setup loads the configuration and installs the default logger.
func setup(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	if err := config.Init(path); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := config.Cfg()

	level, _ := cmd.Flags().GetString("log-level")
	if level == "" {
		level = cfg.Logging.Level
	}
	format, _ := cmd.Flags().GetString("log-format")
	if format == "" {
		format = cfg.Logging.Format
	}
	slog.SetDefault(logging.NewLogger(level, format, os.Stdout))
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("galapagotchi version %s\n", version)
		},
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.Cfg().EncodeYAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})
	return cmd
}
