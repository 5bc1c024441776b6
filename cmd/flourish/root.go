package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/flourish/internal/config"
)

var (
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "flourish",
	Short: "Event dispatch and reactive state runtime for bakery retail ops",
	Long: `Flourish hosts the event dispatcher and the shared state store that
back the retail-ops tooling: publish/subscribe with priorities and
middleware, a deep-merging state tree, a TTL cache, and durable user
settings.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg, _ := config.Load()
		level := cfg.LogLevel()
		if verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}
