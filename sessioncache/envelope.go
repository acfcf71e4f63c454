package sessioncache

import (
	"time"

	"github.com/jrsteele09/member-portal/identity"
	"github.com/jrsteele09/member-portal/internal/utils"
	"github.com/jrsteele09/member-portal/sessions"
)

// Attributes are the identity fields protected screens display.
type Attributes struct {
	Kind         identity.Kind `json:"kind"`
	Identifier   string        `json:"identifier"`
	DisplayName  string        `json:"display_name"`
	Role         string        `json:"role"`
	OrgUnit      string        `json:"org_unit,omitempty"`
	MembershipID *int64        `json:"membership_id,omitempty"`
}

// Envelope is the locally persisted copy of the last issued session.
type Envelope struct {
	Token       string     `json:"token"`
	IdentityKey string     `json:"identity_key"`
	ExpiresAt   time.Time  `json:"expires_at"`
	Identity    Attributes `json:"identity"`
}

// AttributesOf flattens an identity for display.
func AttributesOf(id identity.Identity) Attributes {
	a := Attributes{
		Kind:        id.Kind,
		Identifier:  id.Key(),
		DisplayName: id.DisplayName(),
		Role:        id.Role(),
		OrgUnit:     id.OrgUnit(),
	}
	if membershipID, ok := id.MembershipID(); ok {
		a.MembershipID = utils.Ptr(membershipID)
	}
	return a
}

// EnvelopeFrom builds the envelope written after a successful login.
func EnvelopeFrom(session *sessions.Session, id identity.Identity) *Envelope {
	return &Envelope{
		Token:       session.Token,
		IdentityKey: session.Key,
		ExpiresAt:   session.ExpiresAt,
		Identity:    AttributesOf(id),
	}
}

// ExpiredAt is the local fast path check. It can only reject.
func (e *Envelope) ExpiredAt(now time.Time) bool {
	return e == nil || e.Token == "" || !now.Before(e.ExpiresAt)
}

func (e *Envelope) clone() *Envelope {
	if e == nil {
		return nil
	}
	c := *e
	c.Identity.MembershipID = utils.ClonePtr(e.Identity.MembershipID)
	return &c
}
