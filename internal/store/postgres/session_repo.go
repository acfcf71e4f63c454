package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jrsteele09/member-portal/identity"
	apperrors "github.com/jrsteele09/member-portal/internal/errors"
	"github.com/jrsteele09/member-portal/sessions"
)

const (
	insertSessionQuery = `INSERT INTO sessions (token, identity_kind, identity_key, expires_at, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	deactivateSessionQuery = `UPDATE sessions SET active = FALSE WHERE token = $1`

	selectValidSessionQuery = `SELECT token, identity_kind, identity_key, expires_at, active, created_at
		FROM sessions WHERE token = $1 AND active AND expires_at > $2`

	deactivateIdentityQuery = `UPDATE sessions SET active = FALSE
		WHERE identity_kind = $1 AND identity_key = $2 AND active`

	purgeExpiredQuery = `DELETE FROM sessions WHERE expires_at < $1`
)

var _ sessions.Repo = (*SessionRepo)(nil)

type SessionRepo struct {
	db DBTX
}

func NewSessionRepo(db DBTX) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) Insert(ctx context.Context, s *sessions.Session) error {
	_, err := r.db.Exec(ctx, insertSessionQuery, s.Token, string(s.Kind), s.Key, s.ExpiresAt, s.Active, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("[SessionRepo.Insert] %w", err)
	}
	return nil
}

// Deactivate matches the row whatever its active flag, so repeating it still
// affects one row.
func (r *SessionRepo) Deactivate(ctx context.Context, token string) error {
	tag, err := r.db.Exec(ctx, deactivateSessionQuery, token)
	if err != nil {
		return fmt.Errorf("[SessionRepo.Deactivate] %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *SessionRepo) FindValid(ctx context.Context, token string, now time.Time) (*sessions.Session, error) {
	var (
		s    sessions.Session
		kind string
	)
	err := r.db.QueryRow(ctx, selectValidSessionQuery, token, now).
		Scan(&s.Token, &kind, &s.Key, &s.ExpiresAt, &s.Active, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[SessionRepo.FindValid] %w", err)
	}
	s.Kind = identity.Kind(kind)
	return &s, nil
}

func (r *SessionRepo) DeactivateByIdentity(ctx context.Context, kind identity.Kind, key string) (int64, error) {
	tag, err := r.db.Exec(ctx, deactivateIdentityQuery, string(kind), key)
	if err != nil {
		return 0, fmt.Errorf("[SessionRepo.DeactivateByIdentity] %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *SessionRepo) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, purgeExpiredQuery, before)
	if err != nil {
		return 0, fmt.Errorf("[SessionRepo.PurgeExpired] %w", err)
	}
	return tag.RowsAffected(), nil
}
