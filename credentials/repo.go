package credentials

import "context"

// AdminRepo reads and writes administrative operator accounts.
// Lookups return errors.ErrNotFound when nothing matches and
// errors.ErrDataIntegrity when more than one row matches.
type AdminRepo interface {
	GetBySigla(ctx context.Context, sigla string) (*Admin, error)
	Upsert(ctx context.Context, admin *Admin) error
}

// MemberAccessRepo reads and writes member access credentials.
type MemberAccessRepo interface {
	GetByNationalID(ctx context.Context, nationalID string) (*MemberAccess, error)
	// Upsert replaces any existing credential for the same national id
	Upsert(ctx context.Context, access *MemberAccess) error
}

// MemberRepo reads and writes membership records.
type MemberRepo interface {
	GetByMembershipID(ctx context.Context, membershipID int64) (*Member, error)
	Upsert(ctx context.Context, member *Member) error
}
