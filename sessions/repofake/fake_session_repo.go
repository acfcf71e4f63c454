package repofake

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/member-portal/identity"
	apperrors "github.com/jrsteele09/member-portal/internal/errors"
	"github.com/jrsteele09/member-portal/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

// FakeSessionRepo is an in-memory session table. Errors can be injected to
// simulate an unavailable backend.
type FakeSessionRepo struct {
	sessions  map[string]*sessions.Session
	insertErr error
	findErr   error
	lock      sync.RWMutex
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		sessions: make(map[string]*sessions.Session),
	}
}

// FailInserts makes every Insert return err until cleared with nil.
func (sr *FakeSessionRepo) FailInserts(err error) {
	sr.lock.Lock()
	defer sr.lock.Unlock()
	sr.insertErr = err
}

// FailFinds makes every FindValid return err until cleared with nil.
func (sr *FakeSessionRepo) FailFinds(err error) {
	sr.lock.Lock()
	defer sr.lock.Unlock()
	sr.findErr = err
}

func (sr *FakeSessionRepo) Insert(_ context.Context, session *sessions.Session) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	if sr.insertErr != nil {
		return sr.insertErr
	}
	copied := *session
	sr.sessions[session.Token] = &copied
	return nil
}

func (sr *FakeSessionRepo) Deactivate(_ context.Context, token string) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	s, ok := sr.sessions[token]
	if !ok {
		return apperrors.ErrNotFound
	}
	s.Active = false
	return nil
}

func (sr *FakeSessionRepo) FindValid(_ context.Context, token string, now time.Time) (*sessions.Session, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	if sr.findErr != nil {
		return nil, sr.findErr
	}
	s, ok := sr.sessions[token]
	if !ok || !s.ValidAt(now) {
		return nil, apperrors.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (sr *FakeSessionRepo) DeactivateByIdentity(_ context.Context, kind identity.Kind, key string) (int64, error) {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	var n int64
	for _, s := range sr.sessions {
		if s.Active && s.Kind == kind && s.Key == key {
			s.Active = false
			n++
		}
	}
	return n, nil
}

func (sr *FakeSessionRepo) PurgeExpired(_ context.Context, before time.Time) (int64, error) {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	var n int64
	for token, s := range sr.sessions {
		if s.ExpiresAt.Before(before) {
			delete(sr.sessions, token)
			n++
		}
	}
	return n, nil
}

// Get returns a copy of the stored row regardless of validity.
func (sr *FakeSessionRepo) Get(token string) (*sessions.Session, bool) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	s, ok := sr.sessions[token]
	if !ok {
		return nil, false
	}
	copied := *s
	return &copied, true
}

// Count returns the number of stored rows.
func (sr *FakeSessionRepo) Count() int {
	sr.lock.RLock()
	defer sr.lock.RUnlock()
	return len(sr.sessions)
}
