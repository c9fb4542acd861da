package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"blocknotes/internal/app"
)

func uploadImageCmd() *cobra.Command {
	var (
		blockID string
		alt     string
		caption string
	)

	cmd := cobra.Command{
		Use:   "upload-image FILE",
		Short: "Upload an image and create or update an image block.",
		Long: `Upload an image with the configured uploader. Without --block a new image
block is created; with --block the existing image block points at the upload.
Files that are not images are refused before anything is uploaded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}
			return withApp(cmd, func(a *app.App) error {
				if blockID == "" {
					b, err := a.Blocks().CreateImage(cmd.Context(), data, alt, caption)
					if err != nil {
						return err
					}
					return printJSON(cmd, b.Unit())
				}
				if _, err := a.Blocks().AttachImage(cmd.Context(), blockID, data); err != nil {
					return err
				}
				return printBlock(cmd, a, blockID)
			})
		},
	}

	cmd.Flags().StringVar(&blockID, "block", "", "Image block to update instead of creating one.")
	cmd.Flags().StringVar(&alt, "alt", "", "Alternative text for a new block.")
	cmd.Flags().StringVar(&caption, "caption", "", "Caption for a new block.")

	return &cmd
}
