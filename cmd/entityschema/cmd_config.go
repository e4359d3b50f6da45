package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gihan9a/entityschema/internal/config"
)

func (c *cli) generateConfigCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "generate-config",
		Short: "Write a configuration file holding the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.SaveDefaultConfig(path); err != nil {
				return fmt.Errorf("error generating config file: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration file generated at %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "config-path", "config.yml", "Path where the config file is written")
	return cmd
}
