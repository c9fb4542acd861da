package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"blocknotes/internal/app"
	"blocknotes/internal/block"
	"blocknotes/internal/domain"
)

func typesCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "types",
		Short: "List the block types that can be created.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, t := range domain.AllBlockTypes() {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), t); err != nil {
					return err
				}
			}
			return nil
		},
	}
	return &cmd
}

func createCmd() *cobra.Command {
	var data string

	cmd := cobra.Command{
		Use:   "create TYPE [FIELD=VALUE...]",
		Short: "Create a block and store it.",
		Example: `  blocknotes create heading content=Intro level=2
  blocknotes create list --data '{"items":["a","b"]}'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFields(data, args[1:])
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app.App) error {
				b, err := a.Blocks().Create(cmd.Context(), args[0], fields)
				if err != nil {
					return err
				}
				return printJSON(cmd, b.Unit())
			})
		},
	}

	cmd.Flags().StringVar(&data, "data", "", "Block fields as a JSON object.")

	return &cmd
}

func getCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "get ID",
		Short: "Print a stored block.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				b, err := a.Blocks().Load(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, b.Unit())
			})
		},
	}
	return &cmd
}

func listCmd() *cobra.Command {
	var typ string

	cmd := cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored blocks.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				units, err := a.Blocks().List(cmd.Context())
				if err != nil {
					return err
				}
				out := make([]domain.Unit, 0, len(units))
				for _, u := range units {
					if typ == "" || string(u.Type) == typ {
						out = append(out, u)
					}
				}
				return printJSON(cmd, out)
			})
		},
	}

	cmd.Flags().StringVarP(&typ, "type", "t", "", "Only list blocks of this type.")

	return &cmd
}

func setCmd() *cobra.Command {
	var data string

	cmd := cobra.Command{
		Use:   "set ID [FIELD=VALUE...]",
		Short: "Replace all fields of a block.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFields(data, args[1:])
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app.App) error {
				if _, err := a.Blocks().Replace(cmd.Context(), args[0], fields); err != nil {
					return err
				}
				return printBlock(cmd, a, args[0])
			})
		},
	}

	cmd.Flags().StringVar(&data, "data", "", "Block fields as a JSON object.")

	return &cmd
}

func patchCmd() *cobra.Command {
	var data string

	cmd := cobra.Command{
		Use:   "patch ID [FIELD=VALUE...]",
		Short: "Change some fields of a block.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFields(data, args[1:])
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app.App) error {
				if _, err := a.Blocks().Update(cmd.Context(), args[0], fields); err != nil {
					return err
				}
				return printBlock(cmd, a, args[0])
			})
		},
	}

	cmd.Flags().StringVar(&data, "data", "", "Fields to change as a JSON object.")

	return &cmd
}

func deleteCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:     "delete ID...",
		Aliases: []string{"rm"},
		Short:   "Delete blocks.",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				for _, id := range args {
					if err := a.Blocks().Delete(cmd.Context(), id); err != nil {
						return err
					}
					if _, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	return &cmd
}

func linkCmd() *cobra.Command {
	var draft block.LinkDraft

	cmd := cobra.Command{
		Use:   "link ID",
		Short: "Set the URL and caption of a link block.",
		Long:  "Set the URL and caption of a link block. The block is left as it was unless both are given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				ok, err := a.Blocks().CommitLink(cmd.Context(), args[0], draft)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("link not changed: --url and --caption are both required")
				}
				return printBlock(cmd, a, args[0])
			})
		},
	}

	cmd.Flags().StringVar(&draft.URL, "url", "", "Link target.")
	cmd.Flags().StringVar(&draft.Caption, "caption", "", "Link text.")

	return &cmd
}

func printBlock(cmd *cobra.Command, a *app.App, id string) error {
	b, err := a.Blocks().Get(cmd.Context(), id)
	if err != nil {
		return err
	}
	return printJSON(cmd, b.Unit())
}
