package config

import (
	"slices"
	"strings"
)

const wildcardOrigin = "*"

// Cors reads the cross origin policy of the JSON API. Browsers on the portal
// itself never need it; it exists for separately hosted front ends.
type Cors struct{}

var _ CorsConfig = Cors{}

// AllowedOrigins is a set of normalized origins.
type AllowedOrigins map[string]struct{}

func NewAllowedOrigins(origins ...string) AllowedOrigins {
	set := make(AllowedOrigins, len(origins))
	for _, o := range origins {
		if o = normalizeOrigin(o); o != "" {
			set[o] = struct{}{}
		}
	}
	return set
}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[normalizeOrigin(origin)]
	return ok
}

// Wildcard reports whether any origin is allowed.
func (a AllowedOrigins) Wildcard() bool {
	_, ok := a[wildcardOrigin]
	return ok
}

func (a AllowedOrigins) String() string {
	origins := make([]string, 0, len(a))
	for o := range a {
		origins = append(origins, o)
	}
	slices.Sort(origins)
	return strings.Join(origins, ", ")
}

func normalizeOrigin(origin string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(origin)), "/")
}

func (Cors) GetAllowedOrigins() AllowedOrigins {
	return NewAllowedOrigins(GetEnvList("CORS_ALLOWED_ORIGINS", nil)...)
}

func (Cors) GetAllowedMethods() string {
	return strings.Join(GetEnvList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "DELETE"}), ", ")
}

func (Cors) GetAllowedHeaders() string {
	return strings.Join(GetEnvList("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}), ", ")
}
