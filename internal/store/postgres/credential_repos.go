package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jrsteele09/member-portal/credentials"
	apperrors "github.com/jrsteele09/member-portal/internal/errors"
)

const (
	selectAdminBySiglaQuery = `SELECT sigla, name, role, org_unit, secret_hash, active
		FROM admin_operators WHERE sigla = $1 LIMIT 2`

	upsertAdminQuery = `INSERT INTO admin_operators (sigla, name, role, org_unit, secret_hash, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (sigla) DO UPDATE SET
			name = EXCLUDED.name,
			role = EXCLUDED.role,
			org_unit = EXCLUDED.org_unit,
			secret_hash = EXCLUDED.secret_hash,
			active = EXCLUDED.active`

	selectMemberAccessQuery = `SELECT national_id, secret_hash, membership_id, display_name, created_by, created_at
		FROM member_access WHERE national_id = $1 LIMIT 2`

	upsertMemberAccessQuery = `INSERT INTO member_access (national_id, secret_hash, membership_id, display_name, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (national_id) DO UPDATE SET
			secret_hash = EXCLUDED.secret_hash,
			membership_id = EXCLUDED.membership_id,
			display_name = EXCLUDED.display_name,
			created_by = EXCLUDED.created_by,
			created_at = EXCLUDED.created_at`

	selectMemberQuery = `SELECT membership_id, name, status, email, phone
		FROM members WHERE membership_id = $1`

	upsertMemberQuery = `INSERT INTO members (membership_id, name, status, email, phone)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (membership_id) DO UPDATE SET
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone`
)

var (
	_ credentials.AdminRepo        = (*AdminRepo)(nil)
	_ credentials.MemberAccessRepo = (*MemberAccessRepo)(nil)
	_ credentials.MemberRepo       = (*MemberRepo)(nil)
)

type AdminRepo struct {
	db DBTX
}

func NewAdminRepo(db DBTX) *AdminRepo {
	return &AdminRepo{db: db}
}

// GetBySigla fails with ErrDataIntegrity rather than picking one of several rows.
func (r *AdminRepo) GetBySigla(ctx context.Context, sigla string) (*credentials.Admin, error) {
	rows, err := r.db.Query(ctx, selectAdminBySiglaQuery, sigla)
	if err != nil {
		return nil, fmt.Errorf("[AdminRepo.GetBySigla] query: %w", err)
	}
	defer rows.Close()

	var found []*credentials.Admin
	for rows.Next() {
		var a credentials.Admin
		if err := rows.Scan(&a.Sigla, &a.Name, &a.Role, &a.OrgUnit, &a.SecretHash, &a.Active); err != nil {
			return nil, fmt.Errorf("[AdminRepo.GetBySigla] scan: %w", err)
		}
		found = append(found, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("[AdminRepo.GetBySigla] rows: %w", err)
	}

	switch len(found) {
	case 0:
		return nil, apperrors.ErrNotFound
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("[AdminRepo.GetBySigla] sigla %s matched %d rows: %w", sigla, len(found), apperrors.ErrDataIntegrity)
	}
}

func (r *AdminRepo) Upsert(ctx context.Context, a *credentials.Admin) error {
	_, err := r.db.Exec(ctx, upsertAdminQuery, a.Sigla, a.Name, a.Role, a.OrgUnit, a.SecretHash, a.Active)
	if err != nil {
		return fmt.Errorf("[AdminRepo.Upsert] %w", err)
	}
	return nil
}

type MemberAccessRepo struct {
	db DBTX
}

func NewMemberAccessRepo(db DBTX) *MemberAccessRepo {
	return &MemberAccessRepo{db: db}
}

func (r *MemberAccessRepo) GetByNationalID(ctx context.Context, nationalID string) (*credentials.MemberAccess, error) {
	rows, err := r.db.Query(ctx, selectMemberAccessQuery, nationalID)
	if err != nil {
		return nil, fmt.Errorf("[MemberAccessRepo.GetByNationalID] query: %w", err)
	}
	defer rows.Close()

	var found []*credentials.MemberAccess
	for rows.Next() {
		var a credentials.MemberAccess
		if err := rows.Scan(&a.NationalID, &a.SecretHash, &a.MembershipID, &a.DisplayName, &a.CreatedBy, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("[MemberAccessRepo.GetByNationalID] scan: %w", err)
		}
		found = append(found, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("[MemberAccessRepo.GetByNationalID] rows: %w", err)
	}

	switch len(found) {
	case 0:
		return nil, apperrors.ErrNotFound
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("[MemberAccessRepo.GetByNationalID] matched %d rows: %w", len(found), apperrors.ErrDataIntegrity)
	}
}

func (r *MemberAccessRepo) Upsert(ctx context.Context, a *credentials.MemberAccess) error {
	_, err := r.db.Exec(ctx, upsertMemberAccessQuery, a.NationalID, a.SecretHash, a.MembershipID, a.DisplayName, a.CreatedBy, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("[MemberAccessRepo.Upsert] %w", err)
	}
	return nil
}

type MemberRepo struct {
	db DBTX
}

func NewMemberRepo(db DBTX) *MemberRepo {
	return &MemberRepo{db: db}
}

func (r *MemberRepo) GetByMembershipID(ctx context.Context, membershipID int64) (*credentials.Member, error) {
	var (
		m      credentials.Member
		status string
	)
	err := r.db.QueryRow(ctx, selectMemberQuery, membershipID).
		Scan(&m.MembershipID, &m.Name, &status, &m.Email, &m.Phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[MemberRepo.GetByMembershipID] %w", err)
	}
	m.Status = credentials.MemberStatus(status)
	return &m, nil
}

func (r *MemberRepo) Upsert(ctx context.Context, m *credentials.Member) error {
	_, err := r.db.Exec(ctx, upsertMemberQuery, m.MembershipID, m.Name, string(m.Status), m.Email, m.Phone)
	if err != nil {
		return fmt.Errorf("[MemberRepo.Upsert] %w", err)
	}
	return nil
}
