package sessioncache_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/member-portal/identity"
	"github.com/jrsteele09/member-portal/sessioncache"
	"github.com/jrsteele09/member-portal/sessions"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

// stubValidator answers from a fixed set of valid tokens and records calls
type stubValidator struct {
	mu    sync.Mutex
	valid map[string]bool
	calls []string
}

func newStubValidator(tokens ...string) *stubValidator {
	v := &stubValidator{valid: make(map[string]bool)}
	for _, t := range tokens {
		v.valid[t] = true
	}
	return v
}

func (v *stubValidator) Validate(_ context.Context, token string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, token)
	return v.valid[token]
}

func (v *stubValidator) revoke(token string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.valid, token)
}

// failingStore fails every Load
type failingStore struct {
	cleared bool
}

func (s *failingStore) Load(context.Context) (*sessioncache.Envelope, error) {
	return nil, errors.New("corrupt")
}
func (s *failingStore) Save(context.Context, *sessioncache.Envelope) error { return nil }
func (s *failingStore) Clear(context.Context) error {
	s.cleared = true
	return nil
}

func memberEnvelope(token string) *sessioncache.Envelope {
	id := identity.NewMember(4163, "Maria Associada")
	return sessioncache.EnvelopeFrom(sessions.New(token, id, testNow, 24*time.Hour), id)
}

func newFileCache(t *testing.T, path string, now time.Time) (*sessioncache.Cache, *sessioncache.FileStore) {
	t.Helper()
	store := sessioncache.NewFileStore(path)
	return sessioncache.New(store, sessioncache.WithNowTime(func() time.Time { return now })), store
}

func TestEnvelopeFrom(t *testing.T) {
	env := memberEnvelope("tok-1")

	require.Equal(t, "tok-1", env.Token)
	require.Equal(t, "#M4163", env.IdentityKey)
	require.Equal(t, testNow.Add(24*time.Hour), env.ExpiresAt)
	require.Equal(t, identity.KindMember, env.Identity.Kind)
	require.Equal(t, identity.RoleAssociate, env.Identity.Role)
	require.NotNil(t, env.Identity.MembershipID)
	require.Equal(t, int64(4163), *env.Identity.MembershipID)

	admin := identity.NewAdmin("GER1", "Gerente", "GERENTE", "SEDE")
	adminEnv := sessioncache.EnvelopeFrom(sessions.New("tok-2", admin, testNow, time.Hour), admin)
	require.Nil(t, adminEnv.Identity.MembershipID)
	require.Equal(t, "SEDE", adminEnv.Identity.OrgUnit)
}

func TestCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")
	v := newStubValidator("tok-1")

	first, _ := newFileCache(t, path, testNow)
	require.NoError(t, first.Set(ctx, memberEnvelope("tok-1")))
	require.True(t, first.IsAuthenticated())

	// restart
	second, _ := newFileCache(t, path, testNow.Add(time.Hour))
	require.False(t, second.IsAuthenticated())
	require.Nil(t, second.Current())

	require.True(t, second.Reconcile(ctx, v))
	require.True(t, second.IsAuthenticated())
	require.Equal(t, first.Current(), second.Current())
	require.Equal(t, []string{"tok-1"}, v.calls)
}

func TestCache_ReconcileRejects(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing stored", func(t *testing.T) {
		c, _ := newFileCache(t, filepath.Join(t.TempDir(), "session.json"), testNow)
		v := newStubValidator()
		require.False(t, c.Reconcile(ctx, v))
		require.Empty(t, v.calls)
	})

	t.Run("locally expired is rejected without a round trip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.json")
		c, store := newFileCache(t, path, testNow.Add(24*time.Hour))
		require.NoError(t, c.Set(ctx, memberEnvelope("tok-1")))

		v := newStubValidator("tok-1")
		require.False(t, c.Reconcile(ctx, v))
		require.Empty(t, v.calls)

		env, err := store.Load(ctx)
		require.NoError(t, err)
		require.Nil(t, env, "expired envelope is removed")
	})

	t.Run("locally fresh still needs the validator", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.json")
		c, store := newFileCache(t, path, testNow)
		require.NoError(t, c.Set(ctx, memberEnvelope("tok-1")))

		v := newStubValidator()
		require.False(t, c.Reconcile(ctx, v))
		require.False(t, c.IsAuthenticated())
		require.Nil(t, c.Current())
		require.Equal(t, []string{"tok-1"}, v.calls)

		env, err := store.Load(ctx)
		require.NoError(t, err)
		require.Nil(t, env)
	})

	t.Run("remote revocation", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.json")
		c, _ := newFileCache(t, path, testNow)
		v := newStubValidator("tok-1")
		require.NoError(t, c.Set(ctx, memberEnvelope("tok-1")))
		require.True(t, c.Reconcile(ctx, v))

		v.revoke("tok-1")
		require.False(t, c.Reconcile(ctx, v))
		require.False(t, c.IsAuthenticated())
	})

	t.Run("cancelled context", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.json")
		c, _ := newFileCache(t, path, testNow)
		require.NoError(t, c.Set(ctx, memberEnvelope("tok-1")))

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		require.False(t, c.Reconcile(cancelled, newStubValidator("tok-1")))
	})

	t.Run("unreadable store", func(t *testing.T) {
		store := &failingStore{}
		c := sessioncache.New(store)
		require.False(t, c.Reconcile(ctx, newStubValidator()))
		require.True(t, store.cleared)
	})
}

func TestCache_SetReplacesAndInvalidateRemoves(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")
	c, store := newFileCache(t, path, testNow)

	require.NoError(t, c.Set(ctx, memberEnvelope("tok-1")))

	admin := identity.NewAdmin("GER1", "Gerente", "GERENTE", "SEDE")
	adminEnv := sessioncache.EnvelopeFrom(sessions.New("tok-2", admin, testNow, time.Hour), admin)
	require.NoError(t, c.Set(ctx, adminEnv))

	stored, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "tok-2", stored.Token)
	require.Nil(t, stored.Identity.MembershipID, "no fields merged from the previous envelope")

	require.NoError(t, c.Invalidate(ctx))
	require.NoError(t, c.Invalidate(ctx))
	require.False(t, c.IsAuthenticated())

	stored, err = store.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, stored)
}

func TestCache_CurrentIsACopy(t *testing.T) {
	ctx := context.Background()
	c, _ := newFileCache(t, filepath.Join(t.TempDir(), "session.json"), testNow)
	require.NoError(t, c.Set(ctx, memberEnvelope("tok-1")))

	cur := c.Current()
	*cur.Identity.MembershipID = 1
	cur.Identity.Role = "GERENTE"

	again := c.Current()
	require.Equal(t, int64(4163), *again.Identity.MembershipID)
	require.Equal(t, identity.RoleAssociate, again.Identity.Role)
}
