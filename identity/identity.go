package identity

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Kind tags which identity space a session authenticates to.
type Kind string

const (
	KindAdmin  Kind = "admin"
	KindMember Kind = "member"
)

const (
	// RoleAssociate is the fixed role of every member identity.
	RoleAssociate = "ASSOCIATE"

	// MemberKeyPrefix starts every synthesized member key. '#' is outside the
	// sigla alphabet so a member key can never equal an administrative sigla.
	MemberKeyPrefix = "#M"
)

var siglaPattern = regexp.MustCompile(`^[A-Z0-9]{1,16}$`)

// Admin is an administrative operator resolved from the operator credential set.
type Admin struct {
	Sigla   string `json:"sigla"`
	Name    string `json:"name"`
	Role    string `json:"role"`
	OrgUnit string `json:"org_unit,omitempty"`
}

// Member is an association member resolved through a member access credential.
type Member struct {
	MembershipID int64  `json:"membership_id"`
	Name         string `json:"name"`
}

// Identity is exactly one of Admin or Member, selected by Kind.
type Identity struct {
	Kind   Kind    `json:"kind"`
	Admin  *Admin  `json:"admin,omitempty"`
	Member *Member `json:"member,omitempty"`
}

func NewAdmin(sigla, name, role, orgUnit string) Identity {
	return Identity{
		Kind: KindAdmin,
		Admin: &Admin{
			Sigla:   NormalizeSigla(sigla),
			Name:    name,
			Role:    role,
			OrgUnit: orgUnit,
		},
	}
}

func NewMember(membershipID int64, name string) Identity {
	return Identity{
		Kind:   KindMember,
		Member: &Member{MembershipID: membershipID, Name: name},
	}
}

// Valid reports whether the variant tag agrees with the populated payload.
func (i Identity) Valid() bool {
	switch i.Kind {
	case KindAdmin:
		return i.Admin != nil && i.Member == nil && ValidSigla(i.Admin.Sigla)
	case KindMember:
		return i.Member != nil && i.Admin == nil && i.Member.MembershipID > 0
	default:
		return false
	}
}

func (i Identity) IsAdmin() bool {
	return i.Kind == KindAdmin && i.Admin != nil
}

// Key is the identity key stored on a session row.
func (i Identity) Key() string {
	switch {
	case i.Kind == KindAdmin && i.Admin != nil:
		return i.Admin.Sigla
	case i.Kind == KindMember && i.Member != nil:
		return MemberKey(i.Member.MembershipID)
	default:
		return ""
	}
}

func (i Identity) Role() string {
	switch {
	case i.Kind == KindAdmin && i.Admin != nil:
		return i.Admin.Role
	case i.Kind == KindMember && i.Member != nil:
		return RoleAssociate
	default:
		return ""
	}
}

func (i Identity) DisplayName() string {
	switch {
	case i.Kind == KindAdmin && i.Admin != nil:
		return i.Admin.Name
	case i.Kind == KindMember && i.Member != nil:
		return i.Member.Name
	default:
		return ""
	}
}

func (i Identity) OrgUnit() string {
	if i.Kind == KindAdmin && i.Admin != nil {
		return i.Admin.OrgUnit
	}
	return ""
}

// MembershipID returns the membership id of a member identity.
func (i Identity) MembershipID() (int64, bool) {
	if i.Kind == KindMember && i.Member != nil {
		return i.Member.MembershipID, true
	}
	return 0, false
}

func (i Identity) String() string {
	return fmt.Sprintf("%s:%s", i.Kind, i.Key())
}

// MemberKey builds the synthesized identity key for a membership id.
func MemberKey(membershipID int64) string {
	return MemberKeyPrefix + strconv.FormatInt(membershipID, 10)
}

// MembershipIDFromKey parses a key produced by MemberKey.
func MembershipIDFromKey(key string) (int64, error) {
	if !strings.HasPrefix(key, MemberKeyPrefix) {
		return 0, fmt.Errorf("[identity MembershipIDFromKey] %q is not a member key", key)
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(key, MemberKeyPrefix), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("[identity MembershipIDFromKey] %q has an invalid membership id", key)
	}
	return id, nil
}

// NormalizeSigla trims and upper-cases an administrative code.
func NormalizeSigla(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ValidSigla reports whether s is a legal administrative code after normalization.
func ValidSigla(s string) bool {
	return siglaPattern.MatchString(s)
}

// NormalizeNationalID keeps only the digits of a national-id-like identifier.
func NormalizeNationalID(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeRole is the form used when comparing role literals.
func NormalizeRole(role string) string {
	return strings.ToUpper(strings.TrimSpace(role))
}
