package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the cached session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if env := a.cache.Current(); env != nil {
				if err := a.client.Logout(ctx, env.Token); err != nil {
					log.Warn().Err(err).Msg("server logout failed, clearing local session")
				}
			}
			if err := a.cache.Invalidate(ctx); err != nil {
				return err
			}

			printSuccess(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}
