package cli

import (
	"encoding/json"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long:  `Prints the defaults merged with the config file and LEXGRAPH_* environment variables.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var showFormat string

const redacted = "<redacted>"

func init() {
	configShowCmd.Flags().StringVarP(&showFormat, "format", "f", "yaml", "Output format: yaml, toml or json")

	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	cmd.Println("Configuration is valid")
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.Store.Neo4jPassword != "" {
		cfg.Store.Neo4jPassword = redacted
	}
	if cfg.Store.DSN != "" {
		cfg.Store.DSN = redacted
	}

	var out []byte
	switch showFormat {
	case "yaml":
		out, err = yaml.Marshal(cfg)
	case "toml":
		out, err = toml.Marshal(cfg)
	case "json":
		out, err = json.MarshalIndent(cfg, "", "  ")
		out = append(out, '\n')
	default:
		return fmt.Errorf("unknown format %q", showFormat)
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
