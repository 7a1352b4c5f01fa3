package collab

import (
	"context"
	"fmt"

	"github.com/figdraw/figdraw/internal/store"
	"github.com/figdraw/figdraw/internal/typeid"
)

// Persistence loads and saves the drawing document of a project.
// LoadDocument returns an error wrapping store.ErrNotFound when the
// project has never been saved.
type Persistence interface {
	LoadDocument(ctx context.Context, projectID string) ([]byte, error)
	SaveDocument(ctx context.Context, projectID string, doc []byte) error
}

// StorePersistence keeps every save as a new snapshot version.
type StorePersistence struct {
	store store.Store
}

func NewStorePersistence(st store.Store) *StorePersistence {
	return &StorePersistence{store: st}
}

func (p *StorePersistence) LoadDocument(ctx context.Context, projectID string) ([]byte, error) {
	snap, err := p.store.GetLatestSnapshot(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	return snap.Document, nil
}

func (p *StorePersistence) SaveDocument(ctx context.Context, projectID string, doc []byte) error {
	if _, err := p.store.CreateSnapshot(ctx, typeid.NewSnapshotID(), projectID, doc); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}
