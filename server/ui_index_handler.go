package server

import (
	"net/http"

	"github.com/jrsteele09/member-portal/sessioncache"
	"github.com/rs/zerolog/log"
)

type IndexPageData struct {
	AppName string
	Session *sessioncache.Envelope // nil when nobody is signed in
}

// IndexHandler renders the home page
func (s *Server) IndexHandler() http.HandlerFunc {
	tmpl, err := ParseTemplate("index.html")
	if err != nil {
		panic("Failed to parse index template: " + err.Error())
	}

	return func(w http.ResponseWriter, r *http.Request) {
		data := IndexPageData{AppName: s.config.GetAppName()}

		cache := s.cache(w, r)
		if cache.Reconcile(r.Context(), s.auth) {
			data.Session = cache.Current()
		}

		w.Header().Set("Content-Type", contentTypeHTML)
		if err := tmpl.Execute(w, data); err != nil {
			log.Err(err).Msg("Failed to render index template")
		}
	}
}
