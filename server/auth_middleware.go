package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/member-portal/auth"
	apperrors "github.com/jrsteele09/member-portal/internal/errors"
	"github.com/jrsteele09/member-portal/internal/logging"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyGrant stores the *auth.Grant of an admitted request
const ContextKeyGrant ContextKey = "grant"

// RequireArea guards server rendered pages. The cookie envelope is first
// reconciled against the session store, then the session is resolved and
// the area policy applied. Any failure clears the cookie and sends the
// browser back to the login page.
func (s *Server) RequireArea(area auth.Area) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			cache := s.cache(w, r)

			if !cache.Reconcile(ctx, s.auth) {
				redirectWithError(w, r, RouteLogin, apperrors.MsgSessionExpired)
				return
			}

			grant, err := s.auth.Enter(ctx, cache.Current().Token, area)
			if err != nil {
				logging.Ctx(ctx).Info().Err(err).Str("area", string(area)).Msg("area entry refused")
				if clearErr := cache.Invalidate(ctx); clearErr != nil {
					logging.Ctx(ctx).Warn().Err(clearErr).Msg("failed to clear session cookie")
				}
				redirectWithError(w, r, RouteLogin, apperrors.UserMessage(err))
				return
			}

			next(w, r.WithContext(context.WithValue(ctx, ContextKeyGrant, grant)))
		}
	}
}

func grantFromContext(ctx context.Context) (*auth.Grant, bool) {
	grant, ok := ctx.Value(ContextKeyGrant).(*auth.Grant)
	return grant, ok && grant != nil
}
