package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/poleepo/loaddriver/internal/config"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a run configuration file",
		Long: `Validate a YAML or JSON run configuration against the configuration
schema and print the resolved configuration, defaults included.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")

			cfg, err := config.LoadConfig(path)
			if err != nil {
				return fmt.Errorf("error loading config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to render config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s is valid\n\n", path)
			_, err = out.Write(data)
			return err
		},
	}

	cmd.Flags().StringP("config", "c", "", "Path to a YAML or JSON run configuration")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}
