package commands

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newLoginCmd(a *app) *cobra.Command {
	var identifier, secret string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with an operator sigla or a member national id",
		Long: `Sign in and cache the session.

The password is taken from --secret, then PORTALCTL_SECRET, then the first
line of standard input.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if secret == "" {
				secret = a.v.GetString("secret")
			}
			if secret == "" {
				var err error
				if secret, err = readSecret(cmd); err != nil {
					return err
				}
			}

			env, err := a.client.Login(ctx, identifier, secret)
			if err != nil {
				return err
			}
			if err := a.cache.Set(ctx, env); err != nil {
				if logoutErr := a.client.Logout(ctx, env.Token); logoutErr != nil {
					return errors.Join(err, logoutErr)
				}
				return fmt.Errorf("saving session: %w", err)
			}

			printSuccess(cmd.OutOrStdout(), "Signed in as %s", describe(env.Identity))
			return nil
		},
	}

	cmd.Flags().StringVarP(&identifier, "identifier", "i", "", "operator sigla or member national id")
	cmd.Flags().StringVar(&secret, "secret", "", "password")
	_ = cmd.MarkFlagRequired("identifier")
	return cmd
}

func readSecret(cmd *cobra.Command) (string, error) {
	_, _ = fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line == "" && err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return line, nil
}
