package commands

import (
	"encoding/json"
	"fmt"

	"github.com/nvr-ai/go-videodiff/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCommand(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect videodiff configuration",
		Long:  `View the effective videodiff configuration and where it is read from.`,
	}

	var format string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long: `Display the configuration after defaults, the config file and VIDEODIFF_*
environment variables are applied.`,
		Example: `  # Show configuration as YAML (default)
  videodiff config show

  # Show configuration as JSON
  videodiff config show --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.v, a.cfgFile)
			if err != nil {
				return errors.Wrap(err, "failed to load config")
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(cfg)
			case "yaml":
				encoder := yaml.NewEncoder(out)
				encoder.SetIndent(2)
				defer encoder.Close()
				return encoder.Encode(cfg)
			default:
				return errors.Errorf("unsupported format: %s (use 'yaml' or 'json')", format)
			}
		},
	}
	showCmd.Flags().StringVarP(&format, "format", "f", "yaml", "output format (yaml or json)")

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfgFile
			if path == "" {
				path = config.DefaultPath()
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}

	configCmd.AddCommand(showCmd, pathCmd)
	return configCmd
}
