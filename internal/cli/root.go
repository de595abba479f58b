// Package cli implements the lexgraph command line.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/OFFIS-RIT/lexgraph/internal/util"
	"github.com/OFFIS-RIT/lexgraph/pkg/config"
	"github.com/OFFIS-RIT/lexgraph/pkg/logger"
	"github.com/OFFIS-RIT/lexgraph/pkg/logger/console"
)

// version is set at build time with -ldflags "-X ...cli.version=...".
var version = "dev"

var (
	configPath string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "lexgraph",
	Short: "Build legal knowledge graphs from extracted entities",
	Long: `lexgraph resolves extracted legal entities, discovers relationships,
detects communities, computes analytics and persists the resulting graph.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
			Debug:  debug || util.GetEnvBool("DEBUG", false),
			Writer: cmd.ErrOrStderr(),
		}))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML, TOML or JSON config file (default $LEXGRAPH_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the config file, if any, and overlays the environment.
func loadConfig() (config.Config, error) {
	path := configPath
	if path == "" {
		path = util.GetEnv("LEXGRAPH_CONFIG")
	}
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	return config.ApplyEnv(cfg), nil
}
