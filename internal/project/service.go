// Package project manages projects, their members and the saved drawing
// of each project.
package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/figdraw/figdraw/internal/drawing"
	"github.com/figdraw/figdraw/internal/editor"
	"github.com/figdraw/figdraw/internal/figure"
	"github.com/figdraw/figdraw/internal/store"
	"github.com/figdraw/figdraw/internal/typeid"
)

var (
	ErrNotFound     = errors.New("project not found")
	ErrForbidden    = errors.New("forbidden")
	ErrNotMember    = errors.New("not a project member")
	ErrUserNotFound = errors.New("user not found")
	ErrOwnerRemoval = errors.New("cannot remove project owner")
	ErrAlreadyIn    = errors.New("user is already a member")
)

type Service struct {
	store    store.Store
	defaults drawing.Defaults
}

// NewService returns a project service. New projects start with an empty
// drawing using defaults for new figures.
func NewService(st store.Store, defaults drawing.Defaults) *Service {
	return &Service{store: st, defaults: defaults}
}

type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Member struct {
	UserID      string `json:"userId"`
	Role        string `json:"role"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

func (s *Service) Create(ctx context.Context, name, ownerID string) (*Project, error) {
	p, err := s.store.CreateProject(ctx, store.Project{
		ID:      typeid.NewProjectID(),
		Name:    name,
		OwnerID: ownerID,
	})
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	if err := s.store.AddProjectMember(ctx, p.ID, ownerID, store.RoleOwner); err != nil {
		return nil, fmt.Errorf("add owner as member: %w", err)
	}

	doc, err := s.emptyDocument()
	if err != nil {
		return nil, err
	}
	if _, err := s.store.CreateSnapshot(ctx, typeid.NewSnapshotID(), p.ID, doc); err != nil {
		return nil, fmt.Errorf("create initial snapshot: %w", err)
	}

	return toProject(p), nil
}

func (s *Service) emptyDocument() (json.RawMessage, error) {
	def := s.defaults
	data, err := json.Marshal(editor.Document{Figures: []*figure.Figure{}, Defaults: &def})
	if err != nil {
		return nil, fmt.Errorf("marshal empty document: %w", err)
	}
	return data, nil
}

func (s *Service) Get(ctx context.Context, projectID, userID string) (*Project, error) {
	if err := s.CheckMembership(ctx, projectID, userID); err != nil {
		return nil, err
	}

	p, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return toProject(p), nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Project, error) {
	ps, err := s.store.ListProjectsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	projects := make([]Project, len(ps))
	for i, p := range ps {
		projects[i] = *toProject(p)
	}
	return projects, nil
}

func (s *Service) Delete(ctx context.Context, projectID, userID string) error {
	if _, err := s.ownedProject(ctx, projectID, userID); err != nil {
		return err
	}
	if err := s.store.DeleteProject(ctx, projectID); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

func (s *Service) InviteByEmail(ctx context.Context, projectID, ownerID, inviteeEmail string) error {
	if _, err := s.ownedProject(ctx, projectID, ownerID); err != nil {
		return err
	}

	invitee, err := s.store.GetUserByEmail(ctx, inviteeEmail)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	if err := s.store.AddProjectMember(ctx, projectID, invitee.ID, store.RoleEditor); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return ErrAlreadyIn
		}
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

func (s *Service) ListMembers(ctx context.Context, projectID, userID string) ([]Member, error) {
	if err := s.CheckMembership(ctx, projectID, userID); err != nil {
		return nil, err
	}

	ms, err := s.store.ListProjectMembers(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	members := make([]Member, len(ms))
	for i, m := range ms {
		members[i] = Member{
			UserID:      m.UserID,
			Role:        string(m.Role),
			DisplayName: m.DisplayName,
			Email:       m.Email,
		}
	}
	return members, nil
}

func (s *Service) RemoveMember(ctx context.Context, projectID, ownerID, targetUserID string) error {
	if _, err := s.ownedProject(ctx, projectID, ownerID); err != nil {
		return err
	}
	if targetUserID == ownerID {
		return ErrOwnerRemoval
	}

	if err := s.store.RemoveProjectMember(ctx, projectID, targetUserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}

// GetLatestSnapshot returns the most recently saved drawing document.
func (s *Service) GetLatestSnapshot(ctx context.Context, projectID, userID string) (json.RawMessage, error) {
	if err := s.CheckMembership(ctx, projectID, userID); err != nil {
		return nil, err
	}

	snap, err := s.store.GetLatestSnapshot(ctx, projectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return snap.Document, nil
}

// CheckMembership returns ErrNotMember unless userID belongs to the
// project.
func (s *Service) CheckMembership(ctx context.Context, projectID, userID string) error {
	if _, err := s.store.GetProjectMember(ctx, projectID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotMember
		}
		return fmt.Errorf("check membership: %w", err)
	}
	return nil
}

func (s *Service) getProject(ctx context.Context, projectID string) (store.Project, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Project{}, ErrNotFound
		}
		return store.Project{}, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

func (s *Service) ownedProject(ctx context.Context, projectID, userID string) (store.Project, error) {
	p, err := s.getProject(ctx, projectID)
	if err != nil {
		return store.Project{}, err
	}
	if p.OwnerID != userID {
		return store.Project{}, ErrForbidden
	}
	return p, nil
}

func toProject(p store.Project) *Project {
	return &Project{
		ID:        p.ID,
		Name:      p.Name,
		OwnerID:   p.OwnerID,
		CreatedAt: p.CreatedAt.UTC(),
		UpdatedAt: p.UpdatedAt.UTC(),
	}
}
