package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewWipeKeysCommand creates the "wipe-keys" command. Destroying the cipher
// key makes every stored credential permanently unreadable, so the command
// refuses to run without --yes.
func NewWipeKeysCommand(root *RootOptions) *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "wipe-keys",
		Short: "Destroy the encryption key (stored credentials become unreadable)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return fmt.Errorf("wipe-keys is irreversible: all stored credentials become unreadable; re-run with --yes to confirm")
			}
			return withApp(root, func(app *App) error {
				if err := app.Keys.ClearKeys(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "encryption key destroyed; previously stored credentials are unreadable")
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&confirmed, "yes", false, "confirm the irreversible key wipe")

	return cmd
}
