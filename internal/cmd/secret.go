package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"blocknotes/internal/secret"
)

// secretStore is swapped in tests.
var secretStore = func() secret.Store { return secret.NewKeychainStore() }

func secretCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "secret",
		Short: "Manage credentials referenced as keychain:NAME in the config.",
	}
	cmd.AddCommand(secretSetCmd())
	cmd.AddCommand(secretDeleteCmd())
	return &cmd
}

func secretSetCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "set NAME [VALUE]",
		Short: "Store a secret. The value is read from stdin when omitted.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value string
			if len(args) == 2 {
				value = args[1]
			} else {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read secret: %w", err)
				}
				value = strings.TrimRight(string(data), "\r\n")
			}
			if value == "" {
				return fmt.Errorf("secret %q: empty value", args[0])
			}
			if err := secretStore().Set(args[0], []byte(value)); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "stored %s%s\n", secret.Prefix, args[0])
			return err
		},
	}
	return &cmd
}

func secretDeleteCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:     "delete NAME",
		Aliases: []string{"rm"},
		Short:   "Remove a secret.",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return secretStore().Delete(args[0])
		},
	}
	return &cmd
}
