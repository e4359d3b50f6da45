package main

import (
	"os"

	"github.com/spf13/cobra"

	"gihan9a/entityschema/internal/config"
	"gihan9a/entityschema/internal/logging"
	"gihan9a/entityschema/internal/store"
)

// cli carries the state shared by every subcommand
type cli struct {
	flags config.Flags
	cfg   *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "entityschema",
		Short: "Serve the entity behavior JSON schema of any game version",
		Long: `entityschema replays versioned patches over a baseline entity schema
to produce the schema in effect at a given game version.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logging.Setup(os.Stderr, "info", "text"); err != nil {
				return err
			}
			c.cfg = c.flags.Resolve()
			return logging.Setup(os.Stderr, c.cfg.Log.Level, c.cfg.Log.Format)
		},
	}
	c.flags.Register(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		c.serveCmd(),
		c.resolveCmd(),
		c.diffCmd(),
		c.versionsCmd(),
		c.checkCmd(),
		c.generateConfigCmd(),
	)
	return rootCmd
}

// loadStore reads the configured data directory, or the embedded data when
// none is set
func (c *cli) loadStore() (*store.Store, error) {
	if c.cfg.DataDir != "" {
		return store.LoadDir(c.cfg.DataDir)
	}
	return store.LoadEmbedded()
}
