package sessioncache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Store persists a single envelope under one key.
type Store interface {
	// Load returns nil, nil when nothing is stored
	Load(ctx context.Context) (*Envelope, error)
	// Save fully replaces the stored envelope
	Save(ctx context.Context, env *Envelope) error
	// Clear removes the stored envelope
	Clear(ctx context.Context) error
}

// Validator is the authoritative session check.
type Validator interface {
	Validate(ctx context.Context, token string) bool
}

// Cache owns the client's current session. It is never the source of truth
// for authentication: only Reconcile, backed by a Validator, marks it
// authenticated after a restart.
type Cache struct {
	mu            sync.Mutex
	store         Store
	current       *Envelope
	authenticated bool
	nowTime       func() time.Time
}

type Option func(*Cache)

// WithNowTime sets the clock used for the local expiry check
func WithNowTime(nowFunc func() time.Time) Option {
	return func(c *Cache) {
		c.nowTime = nowFunc
	}
}

func New(store Store, options ...Option) *Cache {
	c := &Cache{
		store:   store,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Set records a freshly issued session, replacing any previous one.
func (c *Cache) Set(ctx context.Context, env *Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Save(ctx, env); err != nil {
		c.dropLocked(ctx)
		return err
	}
	c.current = env.clone()
	c.authenticated = true
	return nil
}

// Current returns a copy of the cached envelope, or nil.
func (c *Cache) Current() *Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.clone()
}

func (c *Cache) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

// Reconcile loads the stored envelope and confirms it with v. A locally
// expired envelope is rejected without calling v. Anything other than a
// positive answer from v clears the cache.
func (c *Cache) Reconcile(ctx context.Context, v Validator) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	env, err := c.store.Load(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("unreadable session envelope discarded")
		c.dropLocked(ctx)
		return false
	}
	if env == nil {
		c.current = nil
		c.authenticated = false
		return false
	}
	if env.ExpiredAt(c.nowTime()) {
		c.dropLocked(ctx)
		return false
	}
	valid := ctx.Err() == nil && v.Validate(ctx, env.Token)
	if !valid || ctx.Err() != nil {
		c.dropLocked(ctx)
		return false
	}

	c.current = env
	c.authenticated = true
	return true
}

// Invalidate drops the in-memory copy and removes the stored envelope. The
// in-memory state is dropped even if the store cannot be cleared.
func (c *Cache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = nil
	c.authenticated = false
	return c.store.Clear(ctx)
}

func (c *Cache) dropLocked(ctx context.Context) {
	c.current = nil
	c.authenticated = false
	if err := c.store.Clear(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to clear session envelope")
	}
}
