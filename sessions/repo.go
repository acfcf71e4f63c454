package sessions

import (
	"context"
	"time"

	"github.com/jrsteele09/member-portal/identity"
)

// Repo defines the session table operations used by the session core.
type Repo interface {
	// Insert stores a new session row
	Insert(ctx context.Context, session *Session) error

	// Deactivate sets the active flag to false. Deactivating an inactive
	// session is a no-op; an unknown token returns errors.ErrNotFound.
	Deactivate(ctx context.Context, token string) error

	// FindValid returns the session only if it is active and expires after now,
	// otherwise errors.ErrNotFound
	FindValid(ctx context.Context, token string, now time.Time) (*Session, error)

	// DeactivateByIdentity deactivates every active session for one identity
	DeactivateByIdentity(ctx context.Context, kind identity.Kind, key string) (int64, error)

	// PurgeExpired deletes sessions that expired before the given time
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}
