package repofake

import (
	"context"
	"fmt"
	"sync"

	"github.com/jrsteele09/member-portal/credentials"
	apperrors "github.com/jrsteele09/member-portal/internal/errors"
)

var (
	_ credentials.AdminRepo        = (*FakeAdminRepo)(nil)
	_ credentials.MemberAccessRepo = (*FakeMemberAccessRepo)(nil)
	_ credentials.MemberRepo       = (*FakeMemberRepo)(nil)
)

// FakeAdminRepo keeps rows in insertion order so duplicate siglas can be
// seeded with Insert to exercise integrity checks.
type FakeAdminRepo struct {
	admins []*credentials.Admin
	lock   sync.RWMutex
}

func NewFakeAdminRepo() *FakeAdminRepo {
	return &FakeAdminRepo{}
}

func (ar *FakeAdminRepo) GetBySigla(_ context.Context, sigla string) (*credentials.Admin, error) {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	var found *credentials.Admin
	for _, a := range ar.admins {
		if a.Sigla != sigla {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("[FakeAdminRepo.GetBySigla] duplicate sigla %s: %w", sigla, apperrors.ErrDataIntegrity)
		}
		found = a
	}
	if found == nil {
		return nil, apperrors.ErrNotFound
	}
	copied := *found
	return &copied, nil
}

func (ar *FakeAdminRepo) Upsert(_ context.Context, admin *credentials.Admin) error {
	ar.lock.Lock()
	defer ar.lock.Unlock()

	copied := *admin
	for i, a := range ar.admins {
		if a.Sigla == admin.Sigla {
			ar.admins[i] = &copied
			return nil
		}
	}
	ar.admins = append(ar.admins, &copied)
	return nil
}

// Insert appends a row without the uniqueness check.
func (ar *FakeAdminRepo) Insert(admin *credentials.Admin) {
	ar.lock.Lock()
	defer ar.lock.Unlock()

	copied := *admin
	ar.admins = append(ar.admins, &copied)
}

type FakeMemberAccessRepo struct {
	access map[string]*credentials.MemberAccess
	lock   sync.RWMutex
}

func NewFakeMemberAccessRepo() *FakeMemberAccessRepo {
	return &FakeMemberAccessRepo{
		access: make(map[string]*credentials.MemberAccess),
	}
}

func (mr *FakeMemberAccessRepo) GetByNationalID(_ context.Context, nationalID string) (*credentials.MemberAccess, error) {
	mr.lock.RLock()
	defer mr.lock.RUnlock()

	a, ok := mr.access[nationalID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (mr *FakeMemberAccessRepo) Upsert(_ context.Context, access *credentials.MemberAccess) error {
	mr.lock.Lock()
	defer mr.lock.Unlock()

	copied := *access
	mr.access[access.NationalID] = &copied
	return nil
}

type FakeMemberRepo struct {
	members map[int64]*credentials.Member
	lock    sync.RWMutex
}

func NewFakeMemberRepo() *FakeMemberRepo {
	return &FakeMemberRepo{
		members: make(map[int64]*credentials.Member),
	}
}

func (mr *FakeMemberRepo) GetByMembershipID(_ context.Context, membershipID int64) (*credentials.Member, error) {
	mr.lock.RLock()
	defer mr.lock.RUnlock()

	m, ok := mr.members[membershipID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *m
	return &copied, nil
}

func (mr *FakeMemberRepo) Upsert(_ context.Context, member *credentials.Member) error {
	mr.lock.Lock()
	defer mr.lock.Unlock()

	copied := *member
	mr.members[member.MembershipID] = &copied
	return nil
}

// Delete removes a member record, leaving any access credential dangling.
func (mr *FakeMemberRepo) Delete(membershipID int64) {
	mr.lock.Lock()
	defer mr.lock.Unlock()

	delete(mr.members, membershipID)
}
