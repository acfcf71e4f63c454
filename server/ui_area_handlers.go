package server

import (
	"html/template"
	"net/http"
	"sort"
	"time"

	"github.com/jrsteele09/member-portal/sessioncache"
	"github.com/rs/zerolog/log"
)

// AreaPageData feeds the protected page templates. Everything identity
// related comes from the grant resolved for this request.
type AreaPageData struct {
	AppName         string
	Section         string
	Identity        sessioncache.Attributes
	ExpiresAt       time.Time
	MembershipID    int64
	HasMembership   bool
	PrivilegedRoles []string
}

func (s *Server) AdminDashboardHandler() http.HandlerFunc {
	return s.areaPage("admin_dashboard.html", "dashboard")
}

func (s *Server) MemberRequestsHandler() http.HandlerFunc {
	return s.areaPage("member_area.html", "requests")
}

func (s *Server) MemberReportsHandler() http.HandlerFunc {
	return s.areaPage("member_area.html", "reports")
}

func (s *Server) areaPage(templateName, section string) http.HandlerFunc {
	tmpl, err := ParseTemplate(templateName)
	if err != nil {
		panic("Failed to parse " + templateName + ": " + err.Error())
	}

	return func(w http.ResponseWriter, r *http.Request) {
		grant, ok := grantFromContext(r.Context())
		if !ok {
			redirectSuccess(w, r, RouteLogin)
			return
		}

		roles := s.auth.Policy().PrivilegedRoles()
		sort.Strings(roles)

		data := AreaPageData{
			AppName:         s.config.GetAppName(),
			Section:         section,
			Identity:        sessioncache.AttributesOf(grant.Identity),
			ExpiresAt:       grant.Session.ExpiresAt,
			PrivilegedRoles: roles,
		}
		data.MembershipID, data.HasMembership = grant.Identity.MembershipID()

		w.Header().Set("Content-Type", contentTypeHTML)
		w.Header().Set("Cache-Control", "no-store")
		renderTemplate(w, tmpl, data)
	}
}

func renderTemplate(w http.ResponseWriter, tmpl *template.Template, data any) {
	if err := tmpl.Execute(w, data); err != nil {
		log.Err(err).Str("template", tmpl.Name()).Msg("Failed to render template")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}
