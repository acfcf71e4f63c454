package commands

import (
	"github.com/spf13/cobra"
)

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !a.cache.IsAuthenticated() {
				return errNotSignedIn
			}
			env := a.cache.Current()
			printIdentity(cmd.OutOrStdout(), env.Identity, env.ExpiresAt)
			return nil
		},
	}
}
