package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteIndex = "/"

	// Login & Logout
	RouteLogin  = "/login"
	RouteLogout = "/logout"

	// Protected areas
	RouteAdminDashboard = "/admin"
	RouteMemberRequests = "/member/requests"
	RouteMemberReports  = "/member/reports"

	// JSON API
	RouteAPISessions       = "/api/v1/sessions"
	RouteAPICurrentSession = "/api/v1/sessions/current"
	RouteAPIArea           = "/api/v1/areas/{area}"

	// Operations
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"

	// Static Asset Routes (patterns)
	RouteStaticCSS = "/css/{file}"
)
