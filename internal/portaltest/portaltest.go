// Package portaltest runs a seeded portal server for tests of packages that
// talk to it over HTTP.
package portaltest

import (
	"context"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/jrsteele09/member-portal/auth"
	"github.com/jrsteele09/member-portal/credentials"
	credentialsfake "github.com/jrsteele09/member-portal/credentials/repofake"
	"github.com/jrsteele09/member-portal/internal/config"
	"github.com/jrsteele09/member-portal/server"
	sessionsfake "github.com/jrsteele09/member-portal/sessions/repofake"
	"github.com/stretchr/testify/require"
)

const (
	AdminSigla   = "GER1"
	AdminSecret  = "gerente-secret"
	ClerkSigla   = "ATD1"
	ClerkSecret  = "clerk-secret"
	NationalID   = "12345678900"
	MemberSecret = "member-secret"
	MembershipID = int64(4163)
)

type testConfig struct {
	config.EnvVars
	config.Cors
	config.Session
	config.Store
	config.Telemetry
}

func (testConfig) GetEnv() string                      { return "TEST" }
func (testConfig) GetCookieSigningKey() []byte         { return []byte("portaltest-cookie-signing-key-32") }
func (testConfig) GetLoginRatePerMinute() int          { return 600 }
func (testConfig) GetLoginBurst() int                  { return 100 }
func (testConfig) GetBootstrapAdminSigla() string      { return "" }
func (testConfig) GetBootstrapAdminRole() string       { return "" }
func (testConfig) GetBootstrapAdminSecret() string     { return "" }
func (testConfig) GetTrustedProxies() []netip.Prefix   { return nil }
func (testConfig) GetSessionLifetime() time.Duration   { return time.Hour }
func (testConfig) GetValidationTimeout() time.Duration { return time.Second }
func (testConfig) GetSingleSessionPerIdentity() bool   { return false }
func (testConfig) GetPrivilegedRoles() []string        { return config.DefaultPrivilegedRoles }

type Portal struct {
	URL      string
	Server   *server.Server
	Sessions *sessionsfake.FakeSessionRepo
	http     *httptest.Server
}

// Close stops the server. Requests made afterwards fail at the transport.
func (p *Portal) Close() {
	p.http.Close()
}

// New starts a portal with a privileged admin, an unprivileged admin and a
// member. The server is closed when the test ends.
func New(t *testing.T) *Portal {
	t.Helper()
	ctx := context.Background()

	admins := credentialsfake.NewFakeAdminRepo()
	memberAccess := credentialsfake.NewFakeMemberAccessRepo()
	members := credentialsfake.NewFakeMemberRepo()
	sessionRepo := sessionsfake.NewFakeSessionRepo()

	for _, a := range []struct{ sigla, name, role, secret string }{
		{AdminSigla, "Gerente Um", "GERENTE", AdminSecret},
		{ClerkSigla, "Atendente Um", "ATENDENTE", ClerkSecret},
	} {
		hash, err := credentials.HashSecret(a.secret)
		require.NoError(t, err)
		require.NoError(t, admins.Upsert(ctx, &credentials.Admin{
			Sigla: a.sigla, Name: a.name, Role: a.role, SecretHash: hash, Active: true,
		}))
	}

	hash, err := credentials.HashSecret(MemberSecret)
	require.NoError(t, err)
	require.NoError(t, memberAccess.Upsert(ctx, &credentials.MemberAccess{
		NationalID: NationalID, SecretHash: hash, MembershipID: MembershipID, DisplayName: "Maria",
	}))
	require.NoError(t, members.Upsert(ctx, &credentials.Member{
		MembershipID: MembershipID, Name: "Maria Associada", Status: credentials.MemberStatusActive,
	}))

	s, err := server.New(testConfig{}, auth.Repos{
		Admins:       admins,
		MemberAccess: memberAccess,
		Members:      members,
		Sessions:     sessionRepo,
	})
	require.NoError(t, err)

	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)

	return &Portal{URL: ts.URL, Server: s, Sessions: sessionRepo, http: ts}
}
