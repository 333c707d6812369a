package memstore

import (
	"context"

	"github.com/Ksenialiashchuk/test-portal/internal/apperr"
	"github.com/Ksenialiashchuk/test-portal/internal/organization"
	"github.com/google/uuid"
)

// OrganizationStore implements organization.Repository.
type OrganizationStore struct {
	db *DB
}

var _ organization.Repository = (*OrganizationStore)(nil)

func copyOrganization(o *organization.Organization) *organization.Organization {
	c := *o
	c.Manager = nil
	c.Members = nil
	return &c
}

func copyMember(m *organization.Member) *organization.Member {
	c := *m
	c.User = nil
	c.Organization = nil
	return &c
}

// orgByDocumentID must be called with db.mu held.
func (db *DB) orgByDocumentID(documentID string) *organization.Organization {
	for _, o := range db.orgs {
		if o.DocumentID == documentID {
			return o
		}
	}
	return nil
}

// member must be called with db.mu held.
func (db *DB) member(orgID, userID int64) *organization.Member {
	for _, m := range db.members {
		if m.OrganizationID == orgID && m.UserID == userID {
			return m
		}
	}
	return nil
}

func (s *OrganizationStore) Create(ctx context.Context, in organization.CreateInput) (*organization.Organization, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	now := s.db.timestamp()
	o := &organization.Organization{
		ID:          s.db.nextID("organizations"),
		DocumentID:  uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.db.orgs[o.ID] = o
	return copyOrganization(o), nil
}

func (s *OrganizationStore) GetByID(ctx context.Context, id int64) (*organization.Organization, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	o, ok := s.db.orgs[id]
	if !ok {
		return nil, apperr.NotFound("organization not found")
	}
	return copyOrganization(o), nil
}

func (s *OrganizationStore) GetByDocumentID(ctx context.Context, documentID string) (*organization.Organization, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	o := s.db.orgByDocumentID(documentID)
	if o == nil {
		return nil, apperr.NotFound("organization not found")
	}
	return copyOrganization(o), nil
}

func (s *OrganizationStore) List(ctx context.Context) ([]*organization.Organization, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var out []*organization.Organization
	for _, id := range sortedIDs(s.db.orgs) {
		out = append(out, copyOrganization(s.db.orgs[id]))
	}
	return out, nil
}

func (s *OrganizationStore) Update(ctx context.Context, documentID string, in organization.UpdateInput) (*organization.Organization, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	o := s.db.orgByDocumentID(documentID)
	if o == nil {
		return nil, apperr.NotFound("organization not found")
	}
	if in.Name == nil && in.Description == nil {
		return copyOrganization(o), nil
	}
	if in.Name != nil {
		o.Name = *in.Name
	}
	if in.Description != nil {
		o.Description = *in.Description
	}
	o.UpdatedAt = s.db.timestamp()
	return copyOrganization(o), nil
}

// Delete removes the organization with its memberships and detaches its
// missions.
func (s *OrganizationStore) Delete(ctx context.Context, documentID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	o := s.db.orgByDocumentID(documentID)
	if o == nil {
		return apperr.NotFound("organization not found")
	}
	delete(s.db.orgs, o.ID)
	for id, m := range s.db.members {
		if m.OrganizationID == o.ID {
			delete(s.db.members, id)
		}
	}
	for _, m := range s.db.missions {
		if m.OrganizationID != nil && *m.OrganizationID == o.ID {
			m.OrganizationID = nil
		}
	}
	return nil
}

func (s *OrganizationStore) listMembers(match func(*organization.Member) bool) []*organization.Member {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var out []*organization.Member
	for _, id := range sortedIDs(s.db.members) {
		if m := s.db.members[id]; match(m) {
			out = append(out, copyMember(m))
		}
	}
	return out
}

func (s *OrganizationStore) ListMembers(ctx context.Context, orgID int64) ([]*organization.Member, error) {
	return s.listMembers(func(m *organization.Member) bool { return m.OrganizationID == orgID }), nil
}

func (s *OrganizationStore) ListMembershipsByUser(ctx context.Context, userID int64) ([]*organization.Member, error) {
	return s.listMembers(func(m *organization.Member) bool { return m.UserID == userID }), nil
}

func (s *OrganizationStore) GetMember(ctx context.Context, orgID, userID int64) (*organization.Member, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	m := s.db.member(orgID, userID)
	if m == nil {
		return nil, apperr.NotFound("membership not found")
	}
	return copyMember(m), nil
}

func (s *OrganizationStore) AddMember(ctx context.Context, orgID, userID int64, role string) (*organization.Member, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.orgs[orgID]; !ok {
		return nil, apperr.NotFound("organization not found")
	}
	if _, ok := s.db.users[userID]; !ok {
		return nil, apperr.NotFound("user not found")
	}
	if s.db.member(orgID, userID) != nil {
		return nil, apperr.Conflict("membership already exists")
	}
	m := &organization.Member{
		ID:             s.db.nextID("organization_members"),
		OrganizationID: orgID,
		UserID:         userID,
		Role:           role,
		CreatedAt:      s.db.timestamp(),
	}
	s.db.members[m.ID] = m
	return copyMember(m), nil
}

func (s *OrganizationStore) UpdateMemberRole(ctx context.Context, orgID, userID int64, role string) (*organization.Member, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	m := s.db.member(orgID, userID)
	if m == nil {
		return nil, apperr.NotFound("membership not found")
	}
	m.Role = role
	return copyMember(m), nil
}

func (s *OrganizationStore) RemoveMember(ctx context.Context, orgID, userID int64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	m := s.db.member(orgID, userID)
	if m == nil {
		return apperr.NotFound("membership not found")
	}
	delete(s.db.members, m.ID)
	return nil
}
