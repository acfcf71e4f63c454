package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/netip"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/member-portal/auth"
	"github.com/jrsteele09/member-portal/credentials"
	credentialsfake "github.com/jrsteele09/member-portal/credentials/repofake"
	"github.com/jrsteele09/member-portal/identity"
	"github.com/jrsteele09/member-portal/internal/config"
	apperrors "github.com/jrsteele09/member-portal/internal/errors"
	"github.com/jrsteele09/member-portal/server"
	"github.com/jrsteele09/member-portal/sessioncache"
	sessionsfake "github.com/jrsteele09/member-portal/sessions/repofake"
	"github.com/stretchr/testify/require"
)

const (
	testAdminSigla   = "GER1"
	testAdminSecret  = "gerente-secret"
	testClerkSigla   = "ATD1"
	testClerkSecret  = "clerk-secret"
	testNationalID   = "12345678900"
	testMemberSecret = "member-secret"
	testMembershipID = int64(4163)
)

// testConfig implements config.Config with fixed values.
type testConfig struct {
	config.EnvVars
	config.Session
	config.Store
	config.Telemetry
	origins        config.AllowedOrigins
	ratePerMinute  int
	burst          int
	bootstrapSigla string
	bootstrapRole  string
	bootstrapPass  string
	trustedProxies []netip.Prefix
}

func (c testConfig) GetEnv() string                           { return "TEST" }
func (c testConfig) GetAllowedOrigins() config.AllowedOrigins { return c.origins }
func (c testConfig) GetAllowedMethods() string                { return "GET, POST, DELETE" }
func (c testConfig) GetAllowedHeaders() string                { return "Content-Type, Authorization" }
func (c testConfig) GetCookieSigningKey() []byte              { return []byte("0123456789abcdef0123456789abcdef") }
func (c testConfig) GetLoginRatePerMinute() int               { return c.ratePerMinute }
func (c testConfig) GetLoginBurst() int                       { return c.burst }
func (c testConfig) GetBootstrapAdminSigla() string           { return c.bootstrapSigla }
func (c testConfig) GetBootstrapAdminRole() string            { return c.bootstrapRole }
func (c testConfig) GetBootstrapAdminSecret() string          { return c.bootstrapPass }
func (c testConfig) GetTrustedProxies() []netip.Prefix        { return c.trustedProxies }
func (c testConfig) GetSessionLifetime() time.Duration        { return time.Hour }
func (c testConfig) GetValidationTimeout() time.Duration      { return time.Second }
func (c testConfig) GetSingleSessionPerIdentity() bool        { return false }
func (c testConfig) GetPrivilegedRoles() []string             { return config.DefaultPrivilegedRoles }

type testFixture struct {
	admins       *credentialsfake.FakeAdminRepo
	memberAccess *credentialsfake.FakeMemberAccessRepo
	sessions     *sessionsfake.FakeSessionRepo
	server       *server.Server
	http         *httptest.Server
}

func defaultTestConfig() testConfig {
	return testConfig{ratePerMinute: 600, burst: 100}
}

func setupTestFixture(t *testing.T, cfg testConfig) *testFixture {
	t.Helper()
	ctx := context.Background()

	admins := credentialsfake.NewFakeAdminRepo()
	memberAccess := credentialsfake.NewFakeMemberAccessRepo()
	members := credentialsfake.NewFakeMemberRepo()
	sessionRepo := sessionsfake.NewFakeSessionRepo()

	seedAdmin(t, admins, testAdminSigla, "Gerente Um", "GERENTE", testAdminSecret)
	seedAdmin(t, admins, testClerkSigla, "Atendente Um", "ATENDENTE", testClerkSecret)

	hash, err := credentials.HashSecret(testMemberSecret)
	require.NoError(t, err)
	require.NoError(t, memberAccess.Upsert(ctx, &credentials.MemberAccess{
		NationalID: testNationalID, SecretHash: hash, MembershipID: testMembershipID, DisplayName: "Maria",
	}))
	require.NoError(t, members.Upsert(ctx, &credentials.Member{
		MembershipID: testMembershipID, Name: "Maria Associada", Status: credentials.MemberStatusActive,
	}))

	s, err := server.New(cfg, auth.Repos{
		Admins:       admins,
		MemberAccess: memberAccess,
		Members:      members,
		Sessions:     sessionRepo,
	})
	require.NoError(t, err)

	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)

	return &testFixture{admins: admins, memberAccess: memberAccess, sessions: sessionRepo, server: s, http: ts}
}

func seedAdmin(t *testing.T, repo *credentialsfake.FakeAdminRepo, sigla, name, role, secret string) {
	t.Helper()
	hash, err := credentials.HashSecret(secret)
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(context.Background(), &credentials.Admin{
		Sigla: sigla, Name: name, Role: role, SecretHash: hash, Active: true,
	}))
}

// browser returns a client that keeps cookies and does not follow redirects.
func (f *testFixture) browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (f *testFixture) login(t *testing.T, c *http.Client, identifier, secret string) *http.Response {
	t.Helper()
	resp, err := c.PostForm(f.http.URL+server.RouteLogin, url.Values{
		"identifier": {identifier},
		"secret":     {secret},
	})
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

func get(t *testing.T, c *http.Client, u string) (*http.Response, string) {
	t.Helper()
	resp, err := c.Get(u)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func loginErrorLocation(msg string) string {
	return server.RouteLogin + "?error=" + url.QueryEscape(msg)
}

func TestAdminLoginAndLogout(t *testing.T) {
	f := setupTestFixture(t, defaultTestConfig())
	c := f.browser(t)

	resp := f.login(t, c, "ger1", testAdminSecret)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, server.RouteAdminDashboard, resp.Header.Get("Location"))

	cookies := resp.Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, sessioncache.DefaultCookieName, cookies[0].Name)
	require.True(t, cookies[0].HttpOnly)

	resp, body := get(t, c, f.http.URL+server.RouteAdminDashboard)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Painel administrativo")
	require.Contains(t, body, "Gerente Um")
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	require.Equal(t, "SAMEORIGIN", resp.Header.Get("X-Frame-Options"))

	resp, _ = get(t, c, f.http.URL+server.RouteLogout)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, server.RouteIndex, resp.Header.Get("Location"))

	resp, _ = get(t, c, f.http.URL+server.RouteAdminDashboard)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, loginErrorLocation(apperrors.MsgSessionExpired), resp.Header.Get("Location"))
}

func TestLogin_FailuresShareOneMessage(t *testing.T) {
	f := setupTestFixture(t, defaultTestConfig())
	c := f.browser(t)

	wrongSecret := f.login(t, c, testAdminSigla, "nope")
	unknownSigla := f.login(t, c, "ZZZ9", "nope")
	unknownMember := f.login(t, c, "98765432100", "nope")

	expected := loginErrorLocation(apperrors.MsgInvalidCredentials)
	require.Equal(t, expected, wrongSecret.Header.Get("Location"))
	require.Equal(t, expected, unknownSigla.Header.Get("Location"))
	require.Equal(t, expected, unknownMember.Header.Get("Location"))
	require.Empty(t, wrongSecret.Cookies())
}

func TestLogin_MissingFields(t *testing.T) {
	f := setupTestFixture(t, defaultTestConfig())
	resp := f.login(t, f.browser(t), testAdminSigla, "")
	require.Equal(t, loginErrorLocation(apperrors.MsgInvalidRequest), resp.Header.Get("Location"))
}

func TestAdminArea_UnprivilegedRoleIsLoggedOut(t *testing.T) {
	f := setupTestFixture(t, defaultTestConfig())
	c := f.browser(t)

	resp := f.login(t, c, testClerkSigla, testClerkSecret)
	require.Equal(t, server.RouteMemberRequests, resp.Header.Get("Location"))

	resp, _ = get(t, c, f.http.URL+server.RouteAdminDashboard)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, loginErrorLocation(apperrors.MsgUnauthorizedRole), resp.Header.Get("Location"))

	resp, _ = get(t, c, f.http.URL+server.RouteMemberRequests)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode, "the denied session no longer admits anywhere")
}

func TestMemberArea(t *testing.T) {
	f := setupTestFixture(t, defaultTestConfig())
	c := f.browser(t)

	resp := f.login(t, c, "123.456.789-00", testMemberSecret)
	require.Equal(t, server.RouteMemberRequests, resp.Header.Get("Location"))

	resp, body := get(t, c, f.http.URL+server.RouteMemberReports)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "4163")
	require.Contains(t, body, "Maria Associada")

	resp, _ = get(t, c, f.http.URL+server.RouteAdminDashboard)
	require.Equal(t, loginErrorLocation(apperrors.MsgUnauthorizedRole), resp.Header.Get("Location"))
}

func TestMemberArea_AdminHasNoMembership(t *testing.T) {
	f := setupTestFixture(t, defaultTestConfig())
	c := f.browser(t)
	f.login(t, c, testAdminSigla, testAdminSecret)

	resp, body := get(t, c, f.http.URL+server.RouteMemberRequests)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Operadores não possuem matrícula")
}

func TestProtectedPage_RevokedServerSide(t *testing.T) {
	f := setupTestFixture(t, defaultTestConfig())
	c := f.browser(t)
	f.login(t, c, testAdminSigla, testAdminSecret)

	n, err := f.server.Auth().RevokeIdentity(context.Background(), identity.NewAdmin(testAdminSigla, "", "GERENTE", ""))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	resp, _ := get(t, c, f.http.URL+server.RouteAdminDashboard)
	require.Equal(t, loginErrorLocation(apperrors.MsgSessionExpired), resp.Header.Get("Location"))
}

func TestProtectedPage_StoreOutageFailsClosed(t *testing.T) {
	f := setupTestFixture(t, defaultTestConfig())
	c := f.browser(t)
	f.login(t, c, testAdminSigla, testAdminSecret)

	f.sessions.FailFinds(context.DeadlineExceeded)
	resp, _ := get(t, c, f.http.URL+server.RouteAdminDashboard)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, loginErrorLocation(apperrors.MsgSessionExpired), resp.Header.Get("Location"))
}

func TestLoginPage(t *testing.T) {
	f := setupTestFixture(t, defaultTestConfig())
	c := f.browser(t)

	resp, body := get(t, c, f.http.URL+server.RouteLogin+"?error=Oops")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `name="identifier"`)
	require.Contains(t, body, "Oops")

	f.login(t, c, testAdminSigla, testAdminSecret)
	resp, _ = get(t, c, f.http.URL+server.RouteLogin)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, server.RouteAdminDashboard, resp.Header.Get("Location"))
}

func TestIndexPage(t *testing.T) {
	f := setupTestFixture(t, defaultTestConfig())
	c := f.browser(t)

	_, body := get(t, c, f.http.URL+"/")
	require.Contains(t, body, `href="/login"`)

	f.login(t, c, testAdminSigla, testAdminSecret)
	_, body = get(t, c, f.http.URL+"/")
	require.Contains(t, body, "Gerente Um")
	require.Contains(t, body, `href="/admin"`)
}

func TestStaticCSS(t *testing.T) {
	f := setupTestFixture(t, defaultTestConfig())
	resp, _ := get(t, f.browser(t), f.http.URL+"/css/portal.css")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/css"))

	resp, _ = get(t, f.browser(t), f.http.URL+"/css/missing.css")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOpsEndpoints(t *testing.T) {
	f := setupTestFixture(t, defaultTestConfig())
	c := f.browser(t)

	resp, body := get(t, c, f.http.URL+server.RouteHealth)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"status":"ok"}`, body)

	f.login(t, c, testAdminSigla, testAdminSecret)
	resp, body = get(t, c, f.http.URL+server.RouteMetrics)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "portal_login_total")
}

func TestRequestID(t *testing.T) {
	f := setupTestFixture(t, defaultTestConfig())

	req, err := http.NewRequest(http.MethodGet, f.http.URL+server.RouteLogin, nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "req-123")
	resp, err := f.browser(t).Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, "req-123", resp.Header.Get("X-Request-ID"))

	resp, _ = get(t, f.browser(t), f.http.URL+server.RouteLogin)
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestBootstrapOperator(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.bootstrapSigla = "root"
	cfg.bootstrapRole = "desenvolvedor"
	cfg.bootstrapPass = "bootstrap-secret"
	f := setupTestFixture(t, cfg)

	admin, err := f.admins.GetBySigla(context.Background(), "ROOT")
	require.NoError(t, err)
	require.Equal(t, "DESENVOLVEDOR", admin.Role)
	require.True(t, admin.Active)

	resp := f.login(t, f.browser(t), "ROOT", "bootstrap-secret")
	require.Equal(t, server.RouteAdminDashboard, resp.Header.Get("Location"))
}

func TestBootstrapOperator_InvalidSigla(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.bootstrapSigla = "not a sigla"
	_, err := server.New(cfg, auth.Repos{
		Admins:       credentialsfake.NewFakeAdminRepo(),
		MemberAccess: credentialsfake.NewFakeMemberAccessRepo(),
		Members:      credentialsfake.NewFakeMemberRepo(),
		Sessions:     sessionsfake.NewFakeSessionRepo(),
	})
	require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
}

func TestPurgeJob_StopsWithContext(t *testing.T) {
	f := setupTestFixture(t, defaultTestConfig())
	ctx, cancel := context.WithCancel(context.Background())

	done := f.server.StartPurgeJob(ctx, 10*time.Millisecond, time.Hour)
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("purge job did not stop")
	}
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}
