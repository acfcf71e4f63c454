package commands

import (
	apperrors "github.com/jrsteele09/member-portal/internal/errors"
	"github.com/spf13/cobra"
)

func newEnterCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "enter <area>",
		Short:     "Check access to a portal area",
		Long:      "Ask the server to admit the session to an area. A denied session is logged out.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"admin", "member"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			env := a.cache.Current()
			if env == nil || !a.cache.IsAuthenticated() {
				return errNotSignedIn
			}

			attrs, err := a.client.Enter(ctx, env.Token, args[0])
			if err != nil {
				if apperrors.Is(err, apperrors.ErrUnauthorizedRole) || apperrors.Is(err, apperrors.ErrSessionExpired) {
					a.invalidate(ctx)
				}
				return err
			}

			printSuccess(cmd.OutOrStdout(), "Access to %s granted for %s", args[0], describe(*attrs))
			return nil
		},
	}
}
