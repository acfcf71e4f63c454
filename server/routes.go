package server

import (
	"net/http"

	"github.com/jrsteele09/member-portal/auth"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteIndex+"{$}", ChainMiddleware(s.IndexHandler(), s.HTMLMiddleWare()...))

	// LOGIN
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginPageUIHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.HTMLMiddleWare(s.LoginRateLimitMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))

	// Protected areas
	s.RegisterRouteHandler("GET "+RouteAdminDashboard, ChainMiddleware(s.AdminDashboardHandler(), s.HTMLMiddleWare(s.RequireArea(auth.AreaAdmin))...))
	s.RegisterRouteHandler("GET "+RouteMemberRequests, ChainMiddleware(s.MemberRequestsHandler(), s.HTMLMiddleWare(s.RequireArea(auth.AreaMember))...))
	s.RegisterRouteHandler("GET "+RouteMemberReports, ChainMiddleware(s.MemberReportsHandler(), s.HTMLMiddleWare(s.RequireArea(auth.AreaMember))...))

	// JSON API
	s.RegisterRouteHandler("POST "+RouteAPISessions, ChainMiddleware(s.APILoginHandler(), s.APIMiddleware(s.LoginRateLimitMiddleware)...))
	s.RegisterRouteHandler("GET "+RouteAPICurrentSession, ChainMiddleware(s.APICurrentSessionHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("DELETE "+RouteAPICurrentSession, ChainMiddleware(s.APILogoutHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAPIArea, ChainMiddleware(s.APIEnterAreaHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("OPTIONS /api/", ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {}, s.APIMiddleware()...))

	// Operations
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
	s.RegisterRouteHandler("GET "+RouteMetrics, promhttp.Handler())

	s.RegisterRouteHandler("GET "+RouteStaticCSS, ChainMiddleware(s.StaticFileHandler("css"), s.HTMLMiddleWare(s.CacheMiddleware)...))
}
