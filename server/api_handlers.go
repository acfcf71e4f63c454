package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jrsteele09/member-portal/auth"
	apperrors "github.com/jrsteele09/member-portal/internal/errors"
	"github.com/jrsteele09/member-portal/internal/logging"
	"github.com/jrsteele09/member-portal/internal/validate"
	"github.com/jrsteele09/member-portal/sessioncache"
)

const maxLoginBodyBytes = 4 << 10

// SessionResponse describes an issued or resolved session.
type SessionResponse struct {
	Token     string                  `json:"token,omitempty"`
	ExpiresAt time.Time               `json:"expires_at"`
	Identity  sessioncache.Attributes `json:"identity"`
}

// AreaResponse is returned when entry to an area is allowed.
type AreaResponse struct {
	Area     auth.Area               `json:"area"`
	Allowed  bool                    `json:"allowed"`
	Identity sessioncache.Attributes `json:"identity"`
}

// APILoginHandler issues a session (POST /api/v1/sessions).
func (s *Server) APILoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req loginRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBodyBytes)).Decode(&req); err != nil {
			writeError(w, apperrors.ErrInvalidRequest)
			return
		}
		if err := s.validate.Struct(req); err != nil {
			resp := ErrorResponse{
				Error:   apperrors.Code(apperrors.ErrInvalidRequest),
				Message: apperrors.MsgInvalidRequest,
			}
			if verr, ok := err.(*validate.ValidationError); ok {
				resp.Fields = verr.Errors
			}
			writeJSON(w, http.StatusBadRequest, resp)
			return
		}

		grant, err := s.auth.Issue(ctx, req.Identifier, req.Secret)
		if err != nil {
			logging.Ctx(ctx).Info().Str("code", apperrors.Code(err)).Msg("api login refused")
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, SessionResponse{
			Token:     grant.Session.Token,
			ExpiresAt: grant.Session.ExpiresAt,
			Identity:  sessioncache.AttributesOf(grant.Identity),
		})
	}
}

// APICurrentSessionHandler validates the bearer token and returns the
// identity it resolves to (GET /api/v1/sessions/current).
func (s *Server) APICurrentSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		grant, err := s.auth.Resolve(r.Context(), bearerToken(r))
		if err != nil {
			writeError(w, unauthenticated(err))
			return
		}
		writeJSON(w, http.StatusOK, SessionResponse{
			ExpiresAt: grant.Session.ExpiresAt,
			Identity:  sessioncache.AttributesOf(grant.Identity),
		})
	}
}

// APILogoutHandler deactivates the bearer token (DELETE /api/v1/sessions/current).
func (s *Server) APILogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.auth.Logout(r.Context(), bearerToken(r)); err != nil {
			logging.Ctx(r.Context()).Error().Err(err).Msg("api logout failed")
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// APIEnterAreaHandler applies the area policy to the bearer token
// (GET /api/v1/areas/{area}). A denied token has been logged out.
func (s *Server) APIEnterAreaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		area, err := auth.ParseArea(r.PathValue("area"))
		if err != nil {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "unknown_area", Message: err.Error()})
			return
		}

		grant, err := s.auth.Enter(r.Context(), bearerToken(r), area)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrUnauthorizedRole) {
				writeError(w, err)
				return
			}
			writeError(w, unauthenticated(err))
			return
		}

		writeJSON(w, http.StatusOK, AreaResponse{
			Area:     area,
			Allowed:  true,
			Identity: sessioncache.AttributesOf(grant.Identity),
		})
	}
}

// unauthenticated maps any resolution failure to ErrSessionExpired.
func unauthenticated(err error) error {
	if apperrors.Is(err, apperrors.ErrSessionExpired) {
		return err
	}
	return apperrors.ErrSessionExpired
}
