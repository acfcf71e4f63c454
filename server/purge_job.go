package server

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// StartPurgeJob deletes long expired sessions every interval until ctx is
// cancelled. The returned channel is closed when the job has stopped.
func (s *Server) StartPurgeJob(ctx context.Context, interval, retention time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.purgeOnce(ctx, retention)
			}
		}
	}()
	return done
}

func (s *Server) purgeOnce(ctx context.Context, retention time.Duration) {
	n, err := s.auth.PurgeExpired(ctx, retention)
	if err != nil {
		log.Err(err).Msg("session purge failed")
		return
	}
	if n > 0 {
		log.Info().Int64("purged", n).Msg("expired sessions purged")
	}
}
