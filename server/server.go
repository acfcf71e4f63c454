package server

import (
	"context"
	"fmt"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/jrsteele09/member-portal/auth"
	"github.com/jrsteele09/member-portal/internal/config"
	"github.com/jrsteele09/member-portal/internal/validate"
	"github.com/jrsteele09/member-portal/sessioncache"
	"golang.org/x/time/rate"
)

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	auth     *auth.Service
	repos    auth.Repos
	cookies  *sessioncache.CookieSigner
	validate *validate.Validator
	limiter  *RateLimiter
	nowTime  func() time.Time

	trustedProxies []netip.Prefix
}

func New(cfg config.Config, repos auth.Repos, authOptions ...auth.ServiceOption) (*Server, error) {
	authService, err := auth.NewService(repos, cfg, authOptions...)
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create session service: %w", err)
	}

	cookies, err := sessioncache.NewCookieSigner(sessioncache.DefaultCookieName, cfg.GetCookieSigningKey())
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create cookie signer: %w", err)
	}

	perSecond := rate.Limit(float64(cfg.GetLoginRatePerMinute()) / 60)

	s := &Server{
		env:      cfg.GetEnv(),
		mux:      http.NewServeMux(),
		config:   cfg,
		auth:     authService,
		repos:    repos,
		cookies:  cookies,
		validate: validate.New(),
		limiter:  NewRateLimiter(perSecond, cfg.GetLoginBurst()),
		nowTime:  time.Now,

		trustedProxies: cfg.GetTrustedProxies(),
	}

	if err := s.InitialiseSystem(context.Background()); err != nil {
		return nil, fmt.Errorf("[Server New] failed to initialise the system: %w", err)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

// Auth exposes the session service for background jobs.
func (s *Server) Auth() *auth.Service {
	return s.auth
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// cache builds the per request session cache over the envelope cookie.
func (s *Server) cache(w http.ResponseWriter, r *http.Request) *sessioncache.Cache {
	return sessioncache.New(s.cookies.Store(w, r), sessioncache.WithNowTime(s.nowTime))
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}
