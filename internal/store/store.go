// Package store opens the credential and session backends named in the
// configuration and returns them as auth repositories.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/member-portal/auth"
	credfake "github.com/jrsteele09/member-portal/credentials/repofake"
	"github.com/jrsteele09/member-portal/internal/config"
	"github.com/jrsteele09/member-portal/internal/store/postgres"
	"github.com/jrsteele09/member-portal/internal/store/redisstore"
	sessionfake "github.com/jrsteele09/member-portal/sessions/repofake"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Stores bundles the opened repositories with their connections.
type Stores struct {
	Repos   auth.Repos
	closers []func()
}

// Close releases every connection in reverse opening order.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// Open builds the repositories. retention bounds how long Redis keeps
// session hashes past their expiry.
func Open(ctx context.Context, cfg config.StoreConfig, retention time.Duration) (*Stores, error) {
	s := &Stores{}
	var pool *pgxpool.Pool

	needsPostgres := cfg.GetCredentialBackend() == config.BackendPostgres ||
		cfg.GetSessionBackend() == config.BackendPostgres
	if needsPostgres {
		var err error
		pool, err = postgres.NewPool(ctx, cfg.GetDatabaseURL())
		if err != nil {
			return nil, errors.Wrap(err, "[store.Open] postgres")
		}
		s.closers = append(s.closers, pool.Close)
		if err := postgres.Migrate(ctx, pool); err != nil {
			s.Close()
			return nil, errors.Wrap(err, "[store.Open] migrate")
		}
	}

	switch backend := cfg.GetCredentialBackend(); backend {
	case config.BackendMemory:
		s.Repos.Admins = credfake.NewFakeAdminRepo()
		s.Repos.MemberAccess = credfake.NewFakeMemberAccessRepo()
		s.Repos.Members = credfake.NewFakeMemberRepo()
	case config.BackendPostgres:
		s.Repos.Admins = postgres.NewAdminRepo(pool)
		s.Repos.MemberAccess = postgres.NewMemberAccessRepo(pool)
		s.Repos.Members = postgres.NewMemberRepo(pool)
	default:
		s.Close()
		return nil, fmt.Errorf("[store.Open] unsupported credential backend %q", backend)
	}

	switch backend := cfg.GetSessionBackend(); backend {
	case config.BackendMemory:
		s.Repos.Sessions = sessionfake.NewFakeSessionRepo()
	case config.BackendPostgres:
		s.Repos.Sessions = postgres.NewSessionRepo(pool)
	case config.BackendRedis:
		client, err := redisstore.NewClient(ctx, cfg.GetRedisAddr(), cfg.GetRedisPassword())
		if err != nil {
			s.Close()
			return nil, errors.Wrap(err, "[store.Open] redis")
		}
		s.closers = append(s.closers, func() { _ = client.Close() })
		s.Repos.Sessions = redisstore.NewSessionRepo(client, redisstore.WithRetention(retention))
	default:
		s.Close()
		return nil, fmt.Errorf("[store.Open] unsupported session backend %q", backend)
	}

	log.Info().
		Str("credentials", cfg.GetCredentialBackend()).
		Str("sessions", cfg.GetSessionBackend()).
		Msg("stores opened")

	return s, nil
}
