package cmd

import (
	"github.com/spf13/cobra"

	"blocknotes/internal/log"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

var (
	fConfig   string
	fEnvFile  string
	fLogLevel string
)

func Root() *cobra.Command {
	cmd := cobra.Command{
		Use:           "blocknotes",
		Short:         "Create, edit and store typed content blocks",
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if fLogLevel == "" {
				return nil
			}
			return log.Set(fLogLevel)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			log.Flush()
		},
	}

	pflags := cmd.PersistentFlags()

	pflags.StringVar(&fConfig, "config", "blocknotes.yaml", "Path to the configuration file.")
	pflags.StringVar(&fEnvFile, "env-file", ".env", "Environment file loaded before BLOCKNOTES_* overrides.")
	pflags.StringVar(&fLogLevel, "log-level", "", "Log level (debug, info, warn, error). Defaults to log.level from the config.")

	cmd.AddCommand(typesCmd())
	cmd.AddCommand(createCmd())
	cmd.AddCommand(getCmd())
	cmd.AddCommand(listCmd())
	cmd.AddCommand(setCmd())
	cmd.AddCommand(patchCmd())
	cmd.AddCommand(deleteCmd())
	cmd.AddCommand(linkCmd())
	cmd.AddCommand(uploadImageCmd())
	cmd.AddCommand(importCmd())
	cmd.AddCommand(secretCmd())
	cmd.AddCommand(mcpCmd())

	return &cmd
}
