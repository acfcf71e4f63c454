package server

import (
	"net/http"

	"github.com/jrsteele09/member-portal/auth"
	"github.com/jrsteele09/member-portal/identity"
	apperrors "github.com/jrsteele09/member-portal/internal/errors"
	"github.com/jrsteele09/member-portal/internal/logging"
	"github.com/jrsteele09/member-portal/sessioncache"
	"github.com/rs/zerolog/log"
)

// LoginPageData contains data for rendering the login page
type LoginPageData struct {
	AppName string
	Error   string
}

// loginRequest is shared by the login form and the JSON API.
type loginRequest struct {
	Identifier string `json:"identifier" validate:"required,max=64"`
	Secret     string `json:"secret" validate:"required,max=128"`
}

// LoginPageUIHandler displays the login page (GET /login)
func (s *Server) LoginPageUIHandler() http.HandlerFunc {
	loginTmpl, err := ParseTemplate("login.html")
	if err != nil {
		panic("Failed to parse login template: " + err.Error())
	}

	return func(w http.ResponseWriter, r *http.Request) {
		cache := s.cache(w, r)
		if cache.Reconcile(r.Context(), s.auth) {
			redirectSuccess(w, r, s.landingRoute(cache.Current().Identity))
			return
		}

		data := LoginPageData{
			AppName: s.config.GetAppName(),
			Error:   r.URL.Query().Get("error"),
		}

		w.Header().Set("Content-Type", contentTypeHTML)
		if err := loginTmpl.Execute(w, data); err != nil {
			log.Err(err).Msg("Failed to render login template")
			http.Error(w, "Failed to render login page", http.StatusInternalServerError)
		}
	}
}

// LoginSubmissionHandler processes the login form submission (POST /login)
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if err := r.ParseForm(); err != nil {
			redirectWithError(w, r, RouteLogin, apperrors.MsgInvalidRequest)
			return
		}

		req := loginRequest{
			Identifier: r.PostFormValue("identifier"),
			Secret:     r.PostFormValue("secret"),
		}
		if err := s.validate.Struct(req); err != nil {
			redirectWithError(w, r, RouteLogin, apperrors.MsgInvalidRequest)
			return
		}

		grant, err := s.auth.Issue(ctx, req.Identifier, req.Secret)
		if err != nil {
			logging.Ctx(ctx).Info().Str("code", apperrors.Code(err)).Msg("login refused")
			redirectWithError(w, r, RouteLogin, apperrors.UserMessage(err))
			return
		}

		env := sessioncache.EnvelopeFrom(grant.Session, grant.Identity)
		if err := s.cache(w, r).Set(ctx, env); err != nil {
			logging.Ctx(ctx).Error().Err(err).Msg("failed to write session cookie")
			if err := s.auth.Logout(ctx, grant.Session.Token); err != nil {
				logging.Ctx(ctx).Warn().Err(err).Msg("failed to revoke unsaved session")
			}
			redirectWithError(w, r, RouteLogin, apperrors.MsgGeneric)
			return
		}

		redirectSuccess(w, r, s.landingRoute(env.Identity))
	}
}

// LogoutHandler ends the server side session and clears the cookie. It
// always lands on the home page.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		store := s.cookies.Store(w, r)

		env, err := store.Load(ctx)
		if err != nil {
			logging.Ctx(ctx).Debug().Err(err).Msg("logout with unreadable session cookie")
		}
		if env != nil {
			if err := s.auth.Logout(ctx, env.Token); err != nil {
				logging.Ctx(ctx).Error().Err(err).Msg("logout failed")
			}
		}

		if err := store.Clear(ctx); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("failed to clear session cookie")
		}
		redirectSuccess(w, r, RouteIndex)
	}
}

// landingRoute picks the first page after login. Administrative identities
// whose role may not enter the back office land on the member pages.
func (s *Server) landingRoute(attrs sessioncache.Attributes) string {
	if attrs.Kind != identity.KindAdmin {
		return RouteMemberRequests
	}
	admin := identity.NewAdmin(attrs.Identifier, attrs.DisplayName, attrs.Role, attrs.OrgUnit)
	if s.auth.Policy().CanEnter(auth.AreaAdmin, admin) {
		return RouteAdminDashboard
	}
	return RouteMemberRequests
}
