package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool connects to Postgres and checks the connection.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Postgres implements Store on a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates missing tables.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const createUser = `INSERT INTO users (id, email, password_hash, display_name)
VALUES ($1, $2, $3, $4)
RETURNING id, email, password_hash, display_name, created_at`

func (p *Postgres) CreateUser(ctx context.Context, u User) (User, error) {
	row := p.pool.QueryRow(ctx, createUser, u.ID, u.Email, u.PasswordHash, u.DisplayName)
	out, err := scanUser(row)
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return out, nil
}

const getUserByID = `SELECT id, email, password_hash, display_name, created_at FROM users WHERE id = $1`

func (p *Postgres) GetUserByID(ctx context.Context, id string) (User, error) {
	u, err := scanUser(p.pool.QueryRow(ctx, getUserByID, id))
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

const getUserByEmail = `SELECT id, email, password_hash, display_name, created_at FROM users WHERE email = $1`

func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (User, error) {
	u, err := scanUser(p.pool.QueryRow(ctx, getUserByEmail, email))
	if err != nil {
		return User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

const createProject = `INSERT INTO projects (id, name, owner_id)
VALUES ($1, $2, $3)
RETURNING id, name, owner_id, created_at, updated_at`

func (p *Postgres) CreateProject(ctx context.Context, proj Project) (Project, error) {
	out, err := scanProject(p.pool.QueryRow(ctx, createProject, proj.ID, proj.Name, proj.OwnerID))
	if err != nil {
		return Project{}, fmt.Errorf("create project: %w", err)
	}
	return out, nil
}

const getProject = `SELECT id, name, owner_id, created_at, updated_at FROM projects WHERE id = $1`

func (p *Postgres) GetProject(ctx context.Context, id string) (Project, error) {
	out, err := scanProject(p.pool.QueryRow(ctx, getProject, id))
	if err != nil {
		return Project{}, fmt.Errorf("get project: %w", err)
	}
	return out, nil
}

const listProjectsForUser = `SELECT p.id, p.name, p.owner_id, p.created_at, p.updated_at
FROM projects p
JOIN project_members m ON m.project_id = p.id
WHERE m.user_id = $1
ORDER BY p.updated_at DESC`

func (p *Postgres) ListProjectsForUser(ctx context.Context, userID string) ([]Project, error) {
	rows, err := p.pool.Query(ctx, listProjectsForUser, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		proj, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("list projects: %w", err)
		}
		out = append(out, proj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return out, nil
}

func (p *Postgres) DeleteProject(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete project: %w", ErrNotFound)
	}
	return nil
}

func (p *Postgres) AddProjectMember(ctx context.Context, projectID, userID string, role Role) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO project_members (project_id, user_id, role) VALUES ($1, $2, $3)`,
		projectID, userID, string(role))
	if err != nil {
		return fmt.Errorf("add member: %w", mapError(err))
	}
	return nil
}

const memberColumns = `SELECT m.project_id, m.user_id, m.role, u.display_name, u.email
FROM project_members m
JOIN users u ON u.id = m.user_id`

func (p *Postgres) GetProjectMember(ctx context.Context, projectID, userID string) (Member, error) {
	m, err := scanMember(p.pool.QueryRow(ctx,
		memberColumns+` WHERE m.project_id = $1 AND m.user_id = $2`, projectID, userID))
	if err != nil {
		return Member{}, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (p *Postgres) ListProjectMembers(ctx context.Context, projectID string) ([]Member, error) {
	rows, err := p.pool.Query(ctx, memberColumns+` WHERE m.project_id = $1 ORDER BY u.display_name`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("list members: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return out, nil
}

func (p *Postgres) RemoveProjectMember(ctx context.Context, projectID, userID string) error {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`, projectID, userID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("remove member: %w", ErrNotFound)
	}
	return nil
}

// The version is computed in the insert so concurrent saves of one
// project conflict on the unique key instead of sharing a version.
const createSnapshot = `INSERT INTO snapshots (id, project_id, version, document)
SELECT $1::text, $2::text, COALESCE(MAX(version), 0) + 1, $3::jsonb FROM snapshots WHERE project_id = $2::text
RETURNING id, project_id, version, document, created_at`

func (p *Postgres) CreateSnapshot(ctx context.Context, id, projectID string, doc json.RawMessage) (Snapshot, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("create snapshot: %w", err)
	}
	defer tx.Rollback(ctx)

	snap, err := scanSnapshot(tx.QueryRow(ctx, createSnapshot, id, projectID, []byte(doc)))
	if err != nil {
		return Snapshot{}, fmt.Errorf("create snapshot: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE projects SET updated_at = now() WHERE id = $1`, projectID); err != nil {
		return Snapshot{}, fmt.Errorf("touch project: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("create snapshot: %w", err)
	}
	return snap, nil
}

const getLatestSnapshot = `SELECT id, project_id, version, document, created_at
FROM snapshots WHERE project_id = $1
ORDER BY version DESC LIMIT 1`

func (p *Postgres) GetLatestSnapshot(ctx context.Context, projectID string) (Snapshot, error) {
	snap, err := scanSnapshot(p.pool.QueryRow(ctx, getLatestSnapshot, projectID))
	if err != nil {
		return Snapshot{}, fmt.Errorf("get snapshot: %w", err)
	}
	return snap, nil
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.CreatedAt)
	return u, mapError(err)
}

func scanProject(row pgx.Row) (Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.Name, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt)
	return p, mapError(err)
}

func scanMember(row pgx.Row) (Member, error) {
	var m Member
	var role string
	err := row.Scan(&m.ProjectID, &m.UserID, &role, &m.DisplayName, &m.Email)
	m.Role = Role(role)
	return m, mapError(err)
}

func scanSnapshot(row pgx.Row) (Snapshot, error) {
	var s Snapshot
	var doc []byte
	err := row.Scan(&s.ID, &s.ProjectID, &s.Version, &doc, &s.CreatedAt)
	s.Document = doc
	return s, mapError(err)
}

// mapError turns driver errors into the package sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

var _ Store = (*Postgres)(nil)
