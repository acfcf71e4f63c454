package commands_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jrsteele09/member-portal/cmd/portalctl/commands"
	apperrors "github.com/jrsteele09/member-portal/internal/errors"
	"github.com/jrsteele09/member-portal/internal/portaltest"
	"github.com/jrsteele09/member-portal/sessioncache"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	portal      *portaltest.Portal
	sessionFile string
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("PORTALCTL_SECRET", "")
	t.Setenv("PORTALCTL_SERVER", "")
	return &testFixture{
		portal:      portaltest.New(t),
		sessionFile: filepath.Join(t.TempDir(), "session.json"),
	}
}

// run executes one portalctl invocation and returns its stdout.
func (f *testFixture) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := commands.NewRootCmd()
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(new(bytes.Buffer))
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--server", f.portal.URL, "--session-file", f.sessionFile}, args...))
	err := root.Execute()
	return out.String(), err
}

func (f *testFixture) cached(t *testing.T) *sessioncache.Envelope {
	t.Helper()
	env, err := sessioncache.NewFileStore(f.sessionFile).Load(context.Background())
	require.NoError(t, err)
	return env
}

func TestRootCmd_Help(t *testing.T) {
	f := setupTestFixture(t)

	out, err := f.run(t, "", "--help")
	require.NoError(t, err)
	for _, name := range []string{"login", "logout", "whoami", "enter"} {
		require.Contains(t, out, name)
	}
}

func TestRootCmd_UnknownCommand(t *testing.T) {
	f := setupTestFixture(t)
	_, err := f.run(t, "", "nonexistent-command")
	require.Error(t, err)
}

func TestLoginWhoamiLogout(t *testing.T) {
	f := setupTestFixture(t)

	out, err := f.run(t, portaltest.AdminSecret+"\n", "login", "-i", "ger1")
	require.NoError(t, err)
	require.Contains(t, out, "Signed in as Gerente Um (GERENTE)")

	env := f.cached(t)
	require.NotNil(t, env)
	require.Equal(t, portaltest.AdminSigla, env.IdentityKey)

	info, err := os.Stat(f.sessionFile)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	out, err = f.run(t, "", "whoami")
	require.NoError(t, err)
	require.Contains(t, out, portaltest.AdminSigla)
	require.Contains(t, out, "GERENTE")

	out, err = f.run(t, "", "logout")
	require.NoError(t, err)
	require.Contains(t, out, "Signed out")
	require.Nil(t, f.cached(t))

	_, err = f.run(t, "", "whoami")
	require.EqualError(t, err, "not signed in, run portalctl login")
}

func TestLogin_SecretFromEnv(t *testing.T) {
	f := setupTestFixture(t)
	t.Setenv("PORTALCTL_SECRET", portaltest.MemberSecret)

	out, err := f.run(t, "", "login", "--identifier", portaltest.NationalID)
	require.NoError(t, err)
	require.Contains(t, out, "Signed in as Maria Associada")

	out, err = f.run(t, "", "whoami")
	require.NoError(t, err)
	require.Contains(t, out, "4163")
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.run(t, "", "login", "-i", portaltest.AdminSigla, "--secret", "wrong")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	require.Nil(t, f.cached(t))

	var buf bytes.Buffer
	commands.PrintError(&buf, err)
	require.Contains(t, buf.String(), apperrors.MsgInvalidCredentials)
}

func TestLogin_RequiresIdentifier(t *testing.T) {
	f := setupTestFixture(t)
	_, err := f.run(t, "secret\n", "login")
	require.Error(t, err)
}

func TestEnter(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.run(t, "", "enter", "admin")
	require.EqualError(t, err, "not signed in, run portalctl login")

	_, err = f.run(t, "", "login", "-i", portaltest.AdminSigla, "--secret", portaltest.AdminSecret)
	require.NoError(t, err)

	out, err := f.run(t, "", "enter", "admin")
	require.NoError(t, err)
	require.Contains(t, out, "Access to admin granted")

	_, err = f.run(t, "", "enter", "nowhere")
	require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
	require.NotNil(t, f.cached(t))
}

func TestEnter_DeniedLogsOut(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.run(t, "", "login", "-i", portaltest.ClerkSigla, "--secret", portaltest.ClerkSecret)
	require.NoError(t, err)

	_, err = f.run(t, "", "enter", "admin")
	require.ErrorIs(t, err, apperrors.ErrUnauthorizedRole)
	require.Nil(t, f.cached(t))
}

func TestReconcile_DropsRevokedSession(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.run(t, "", "login", "-i", portaltest.AdminSigla, "--secret", portaltest.AdminSecret)
	require.NoError(t, err)

	env := f.cached(t)
	require.NoError(t, f.portal.Server.Auth().Logout(context.Background(), env.Token))

	_, err = f.run(t, "", "whoami")
	require.EqualError(t, err, "not signed in, run portalctl login")
	require.Nil(t, f.cached(t))
}

func TestReconcile_ServerUnreachable(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.run(t, "", "login", "-i", portaltest.AdminSigla, "--secret", portaltest.AdminSecret)
	require.NoError(t, err)

	f.portal.Close()

	_, err = f.run(t, "", "whoami")
	require.Error(t, err)
	require.Nil(t, f.cached(t))
}

func TestConfigFile(t *testing.T) {
	f := setupTestFixture(t)

	cfgFile := filepath.Join(t.TempDir(), "portalctl.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("server: "+f.portal.URL+"\nsession_file: "+f.sessionFile+"\n"), 0o600))

	root := commands.NewRootCmd()
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"--config", cfgFile, "login", "-i", portaltest.AdminSigla, "--secret", portaltest.AdminSecret})
	require.NoError(t, root.Execute())
	require.Contains(t, out.String(), "Signed in as")
	require.NotNil(t, f.cached(t))

	root = commands.NewRootCmd()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "whoami"})
	require.ErrorContains(t, root.Execute(), "loading config")
}
