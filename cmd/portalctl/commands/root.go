// Package commands contains the portalctl commands
package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jrsteele09/member-portal/client"
	"github.com/jrsteele09/member-portal/internal/logging"
	"github.com/jrsteele09/member-portal/sessioncache"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	appName        = "portalctl"
	envPrefix      = "PORTALCTL"
	defaultServer  = "http://localhost:8080"
	defaultTimeout = 10 * time.Second
)

// app is the state shared by every command of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	verbose bool

	client *client.Client
	store  *sessioncache.FileStore
	cache  *sessioncache.Cache
}

// Execute runs the root command with the process arguments.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree. Before any subcommand runs the cached
// session is reconciled against the server.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "Member portal session CLI",
		Long: `portalctl signs in to the member portal and keeps the session in a local file.

The cached session is checked with the server on every run, so a session
revoked or expired on the server is dropped locally.

Example usage:
  portalctl login -i GER1        # Sign in as an operator (password read from stdin)
  portalctl login -i 12345678900 # Sign in as a member
  portalctl whoami               # Show the signed in identity
  portalctl enter admin          # Check access to the admin area
  portalctl logout               # End the session`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.initConfig(cmd); err != nil {
				return err
			}
			a.cache.Reconcile(cmd.Context(), a.client)
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/portalctl/portalctl.yaml)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	flags.String("server", defaultServer, "portal base URL")
	flags.String("session-file", "", "session cache file (default is $XDG_CONFIG_HOME/portalctl/session.json)")
	flags.Duration("timeout", defaultTimeout, "request timeout")

	_ = a.v.BindPFlag("server", flags.Lookup("server"))
	_ = a.v.BindPFlag("session_file", flags.Lookup("session-file"))
	_ = a.v.BindPFlag("timeout", flags.Lookup("timeout"))

	rootCmd.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newEnterCmd(a),
	)
	return rootCmd
}

// initConfig reads the config file and PORTALCTL_* variables, then builds
// the client and the session cache.
func (a *app) initConfig(cmd *cobra.Command) error {
	level := "warn"
	if a.verbose {
		level = "debug"
	}
	logging.SetupWriter("DEV", level, cmd.ErrOrStderr())

	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	a.v.AutomaticEnv()

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
	} else if dir, err := os.UserConfigDir(); err == nil {
		a.v.SetConfigName(appName)
		a.v.AddConfigPath(filepath.Join(dir, appName))
		if err := a.v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return fmt.Errorf("loading config: %w", err)
			}
		}
	}

	sessionFile := a.v.GetString("session_file")
	if sessionFile == "" {
		path, err := sessioncache.DefaultFilePath(appName)
		if err != nil {
			return fmt.Errorf("session file: %w", err)
		}
		sessionFile = path
	}

	timeout := a.v.GetDuration("timeout")
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	a.client = client.New(a.v.GetString("server"), timeout)
	a.store = sessioncache.NewFileStore(sessionFile)
	a.cache = sessioncache.New(a.store)

	log.Debug().
		Str("server", a.v.GetString("server")).
		Str("session_file", sessionFile).
		Dur("timeout", timeout).
		Str("config", a.v.ConfigFileUsed()).
		Msg("configuration loaded")
	return nil
}

// invalidate drops the cached session. A file that cannot be removed is
// logged; the in-memory session is gone either way.
func (a *app) invalidate(ctx context.Context) {
	if err := a.cache.Invalidate(ctx); err != nil {
		log.Warn().Err(err).Str("session_file", a.store.Path()).Msg("failed to clear cached session")
	}
}
