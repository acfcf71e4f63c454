package credentials

import (
	"time"

	"github.com/jrsteele09/member-portal/identity"
	"golang.org/x/crypto/bcrypt"
)

// Admin is an administrative operator account.
type Admin struct {
	Sigla      string `json:"sigla"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	OrgUnit    string `json:"org_unit,omitempty"`
	SecretHash string `json:"-"` // bcrypt hash, never serialized
	Active     bool   `json:"active"`
}

// Identity resolves the operator account into an administrative identity.
func (a *Admin) Identity() identity.Identity {
	return identity.NewAdmin(a.Sigla, a.Name, a.Role, a.OrgUnit)
}

// MemberAccess is a member's login credential, created by an operator on the
// member's behalf. There is at most one per national id.
type MemberAccess struct {
	NationalID   string    `json:"national_id"`
	SecretHash   string    `json:"-"`
	MembershipID int64     `json:"membership_id"`
	DisplayName  string    `json:"display_name"`
	CreatedBy    string    `json:"created_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type MemberStatus string

const (
	MemberStatusActive    MemberStatus = "ACTIVE"
	MemberStatusSuspended MemberStatus = "SUSPENDED"
	MemberStatusCancelled MemberStatus = "CANCELLED"
)

// Member is the canonical membership record referenced by MemberAccess.
type Member struct {
	MembershipID int64        `json:"membership_id"`
	Name         string       `json:"name"`
	Status       MemberStatus `json:"status"`
	Email        string       `json:"email,omitempty"`
	Phone        string       `json:"phone,omitempty"`
}

// Identity resolves the member record into a member identity.
func (m *Member) Identity() identity.Identity {
	return identity.NewMember(m.MembershipID, m.Name)
}

// HashSecret returns a salted bcrypt hash of secret.
func HashSecret(secret string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckSecret compares secret with a bcrypt hash in constant time.
func CheckSecret(secret, hash string) bool {
	if hash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	return err == nil
}
