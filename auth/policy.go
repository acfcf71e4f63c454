package auth

import (
	"fmt"

	"github.com/jrsteele09/member-portal/identity"
	apperrors "github.com/jrsteele09/member-portal/internal/errors"
)

// Area is a protected region of the portal.
type Area string

const (
	// AreaAdmin is the administrative back office.
	AreaAdmin Area = "admin"
	// AreaMember covers member facing screens such as requests and reports.
	AreaMember Area = "member"
)

// ParseArea accepts the names of the known areas and rejects anything else
// with ErrInvalidRequest.
func ParseArea(s string) (Area, error) {
	switch Area(s) {
	case AreaAdmin, AreaMember:
		return Area(s), nil
	default:
		return "", fmt.Errorf("[auth ParseArea] unknown area %q: %w", s, apperrors.ErrInvalidRequest)
	}
}

// Policy decides protected area entry from a resolved identity. The role
// literals are configuration; the decision switches on the identity kind.
type Policy struct {
	privileged map[string]struct{}
}

// NewPolicy builds a policy whose admin area admits the given roles. Roles
// are compared after NormalizeRole, and blank entries are ignored.
func NewPolicy(privilegedRoles []string) *Policy {
	p := &Policy{privileged: make(map[string]struct{}, len(privilegedRoles))}
	for _, r := range privilegedRoles {
		if r = identity.NormalizeRole(r); r != "" {
			p.privileged[r] = struct{}{}
		}
	}
	return p
}

// CanEnter reports whether id may enter area.
func (p *Policy) CanEnter(area Area, id identity.Identity) bool {
	if !id.Valid() {
		return false
	}
	switch area {
	case AreaAdmin:
		if id.Kind != identity.KindAdmin {
			return false
		}
		_, ok := p.privileged[identity.NormalizeRole(id.Admin.Role)]
		return ok
	case AreaMember:
		return true
	default:
		return false
	}
}

// PrivilegedRoles lists the configured role literals.
func (p *Policy) PrivilegedRoles() []string {
	roles := make([]string, 0, len(p.privileged))
	for r := range p.privileged {
		roles = append(roles, r)
	}
	return roles
}
