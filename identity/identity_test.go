package identity_test

import (
	"testing"

	"github.com/jrsteele09/member-portal/identity"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestIdentity_Admin(t *testing.T) {
	id := identity.NewAdmin(" ger1 ", "Gerente Um", "Gerente", "DIRETORIA")

	require.True(t, id.Valid())
	require.True(t, id.IsAdmin())
	require.Equal(t, "GER1", id.Key())
	require.Equal(t, "Gerente", id.Role())
	require.Equal(t, "Gerente Um", id.DisplayName())
	require.Equal(t, "DIRETORIA", id.OrgUnit())

	_, ok := id.MembershipID()
	require.False(t, ok)
}

func TestIdentity_Member(t *testing.T) {
	id := identity.NewMember(4163, "Maria Associada")

	require.True(t, id.Valid())
	require.False(t, id.IsAdmin())
	require.Equal(t, identity.MemberKeyPrefix+"4163", id.Key())
	require.Equal(t, identity.RoleAssociate, id.Role())
	require.Empty(t, id.OrgUnit())

	membershipID, ok := id.MembershipID()
	require.True(t, ok)
	require.Equal(t, int64(4163), membershipID)
}

func TestIdentity_Valid(t *testing.T) {
	t.Run("mismatched tag", func(t *testing.T) {
		id := identity.Identity{Kind: identity.KindMember, Admin: &identity.Admin{Sigla: "GER1"}}
		require.False(t, id.Valid())
		require.Empty(t, id.Key())
		require.Empty(t, id.Role())
	})

	t.Run("both payloads", func(t *testing.T) {
		id := identity.NewAdmin("GER1", "", "GERENTE", "")
		id.Member = &identity.Member{MembershipID: 1}
		require.False(t, id.Valid())
	})

	t.Run("unknown kind", func(t *testing.T) {
		require.False(t, identity.Identity{}.Valid())
	})
}

func TestMembershipIDFromKey(t *testing.T) {
	id, err := identity.MembershipIDFromKey("#M4163")
	require.NoError(t, err)
	require.Equal(t, int64(4163), id)

	_, err = identity.MembershipIDFromKey("GER1")
	require.Error(t, err)

	_, err = identity.MembershipIDFromKey("#Mabc")
	require.Error(t, err)
}

func TestNormalizeNationalID(t *testing.T) {
	require.Equal(t, "12345678900", identity.NormalizeNationalID("123.456.789-00"))
	require.Equal(t, "12345678900", identity.NormalizeNationalID(" 12345678900 "))
	require.Empty(t, identity.NormalizeNationalID("abc"))
}

func TestMemberKeyNeverCollidesWithSigla(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		membershipID := rapid.Int64Range(1, 1<<53).Draw(t, "membershipID")
		raw := rapid.StringMatching(`[A-Za-z0-9#]{1,16}`).Draw(t, "sigla")

		key := identity.MemberKey(membershipID)
		if identity.ValidSigla(key) {
			t.Fatalf("member key %q is a legal sigla", key)
		}

		sigla := identity.NormalizeSigla(raw)
		if identity.ValidSigla(sigla) && sigla == key {
			t.Fatalf("sigla %q equals member key", sigla)
		}

		back, err := identity.MembershipIDFromKey(key)
		if err != nil || back != membershipID {
			t.Fatalf("round trip of %d gave %d (%v)", membershipID, back, err)
		}
	})
}

func TestNormalizationIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.String().Draw(t, "s")

		sigla := identity.NormalizeSigla(s)
		if identity.NormalizeSigla(sigla) != sigla {
			t.Fatalf("NormalizeSigla not idempotent for %q", s)
		}

		nid := identity.NormalizeNationalID(s)
		if identity.NormalizeNationalID(nid) != nid {
			t.Fatalf("NormalizeNationalID not idempotent for %q", s)
		}
	})
}
