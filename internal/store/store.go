// Package store persists users, projects, memberships and drawing
// snapshots. Postgres is the production backend; Memory serves tests and
// single-process development.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("store: not found")
	ErrDuplicate = errors.New("store: already exists")
)

type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	CreatedAt    time.Time
}

type Project struct {
	ID        string
	Name      string
	OwnerID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Member struct {
	ProjectID   string
	UserID      string
	Role        Role
	DisplayName string
	Email       string
}

// Snapshot is one saved version of a project's drawing.
type Snapshot struct {
	ID        string
	ProjectID string
	Version   int32
	Document  json.RawMessage
	CreatedAt time.Time
}

type Store interface {
	CreateUser(ctx context.Context, u User) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)

	CreateProject(ctx context.Context, p Project) (Project, error)
	GetProject(ctx context.Context, id string) (Project, error)
	ListProjectsForUser(ctx context.Context, userID string) ([]Project, error)
	DeleteProject(ctx context.Context, id string) error

	AddProjectMember(ctx context.Context, projectID, userID string, role Role) error
	GetProjectMember(ctx context.Context, projectID, userID string) (Member, error)
	ListProjectMembers(ctx context.Context, projectID string) ([]Member, error)
	RemoveProjectMember(ctx context.Context, projectID, userID string) error

	// CreateSnapshot stores doc as the next version of the project's
	// drawing.
	CreateSnapshot(ctx context.Context, id, projectID string, doc json.RawMessage) (Snapshot, error)
	GetLatestSnapshot(ctx context.Context, projectID string) (Snapshot, error)
}
