package store

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Memory is an in-process Store. Data is lost when the process exits.
type Memory struct {
	mu        sync.RWMutex
	users     map[string]User
	emails    map[string]string
	projects  map[string]Project
	members   map[string]map[string]Role
	snapshots map[string][]Snapshot
	now       func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		users:     make(map[string]User),
		emails:    make(map[string]string),
		projects:  make(map[string]Project),
		members:   make(map[string]map[string]Role),
		snapshots: make(map[string][]Snapshot),
		now:       time.Now,
	}
}

func (m *Memory) CreateUser(_ context.Context, u User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[u.ID]; ok {
		return User{}, fmt.Errorf("create user: %w: users_pkey", ErrDuplicate)
	}
	if _, ok := m.emails[u.Email]; ok {
		return User{}, fmt.Errorf("create user: %w: users_email_key", ErrDuplicate)
	}
	u.CreatedAt = m.now()
	m.users[u.ID] = u
	m.emails[u.Email] = u.ID
	return u, nil
}

func (m *Memory) GetUserByID(_ context.Context, id string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return User{}, fmt.Errorf("get user: %w", ErrNotFound)
	}
	return u, nil
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.emails[email]
	if !ok {
		return User{}, fmt.Errorf("get user by email: %w", ErrNotFound)
	}
	return m.users[id], nil
}

func (m *Memory) CreateProject(_ context.Context, p Project) (Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.projects[p.ID]; ok {
		return Project{}, fmt.Errorf("create project: %w", ErrDuplicate)
	}
	if _, ok := m.users[p.OwnerID]; !ok {
		return Project{}, fmt.Errorf("create project: owner: %w", ErrNotFound)
	}
	now := m.now()
	p.CreatedAt, p.UpdatedAt = now, now
	m.projects[p.ID] = p
	return p, nil
}

func (m *Memory) GetProject(_ context.Context, id string) (Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.projects[id]
	if !ok {
		return Project{}, fmt.Errorf("get project: %w", ErrNotFound)
	}
	return p, nil
}

func (m *Memory) ListProjectsForUser(_ context.Context, userID string) ([]Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Project
	for id, members := range m.members {
		if _, ok := members[userID]; ok {
			out = append(out, m.projects[id])
		}
	}
	slices.SortFunc(out, func(a, b Project) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (m *Memory) DeleteProject(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.projects[id]; !ok {
		return fmt.Errorf("delete project: %w", ErrNotFound)
	}
	delete(m.projects, id)
	delete(m.members, id)
	delete(m.snapshots, id)
	return nil
}

func (m *Memory) AddProjectMember(_ context.Context, projectID, userID string, role Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.projects[projectID]; !ok {
		return fmt.Errorf("add member: project: %w", ErrNotFound)
	}
	if _, ok := m.users[userID]; !ok {
		return fmt.Errorf("add member: user: %w", ErrNotFound)
	}
	members := m.members[projectID]
	if members == nil {
		members = make(map[string]Role)
		m.members[projectID] = members
	}
	if _, ok := members[userID]; ok {
		return fmt.Errorf("add member: %w", ErrDuplicate)
	}
	members[userID] = role
	return nil
}

func (m *Memory) GetProjectMember(_ context.Context, projectID, userID string) (Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	role, ok := m.members[projectID][userID]
	if !ok {
		return Member{}, fmt.Errorf("get member: %w", ErrNotFound)
	}
	return m.member(projectID, userID, role), nil
}

func (m *Memory) ListProjectMembers(_ context.Context, projectID string) ([]Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Member
	for userID, role := range m.members[projectID] {
		out = append(out, m.member(projectID, userID, role))
	}
	slices.SortFunc(out, func(a, b Member) int {
		return cmp.Compare(a.DisplayName, b.DisplayName)
	})
	return out, nil
}

func (m *Memory) member(projectID, userID string, role Role) Member {
	u := m.users[userID]
	return Member{
		ProjectID:   projectID,
		UserID:      userID,
		Role:        role,
		DisplayName: u.DisplayName,
		Email:       u.Email,
	}
}

func (m *Memory) RemoveProjectMember(_ context.Context, projectID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.members[projectID][userID]; !ok {
		return fmt.Errorf("remove member: %w", ErrNotFound)
	}
	delete(m.members[projectID], userID)
	return nil
}

func (m *Memory) CreateSnapshot(_ context.Context, id, projectID string, doc json.RawMessage) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.projects[projectID]
	if !ok {
		return Snapshot{}, fmt.Errorf("create snapshot: project: %w", ErrNotFound)
	}
	snaps := m.snapshots[projectID]
	snap := Snapshot{
		ID:        id,
		ProjectID: projectID,
		Version:   int32(len(snaps) + 1),
		Document:  append(json.RawMessage(nil), doc...),
		CreatedAt: m.now(),
	}
	m.snapshots[projectID] = append(snaps, snap)
	p.UpdatedAt = snap.CreatedAt
	m.projects[projectID] = p
	return snap, nil
}

func (m *Memory) GetLatestSnapshot(_ context.Context, projectID string) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snaps := m.snapshots[projectID]
	if len(snaps) == 0 {
		return Snapshot{}, fmt.Errorf("get snapshot: %w", ErrNotFound)
	}
	snap := snaps[len(snaps)-1]
	snap.Document = append(json.RawMessage(nil), snap.Document...)
	return snap, nil
}

var _ Store = (*Memory)(nil)
