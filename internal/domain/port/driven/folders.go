package driven

import (
	"context"

	"github.com/ericfisherdev/sitepanel/internal/domain/model"
)

// FolderSearcher finds existing folders whose names resemble name or any of
// its aliases. Returned candidates are unscored. Implementations may fail or
// return an empty slice; callers must tolerate both.
type FolderSearcher interface {
	Search(ctx context.Context, name string, aliases []string) ([]model.FolderCandidate, error)
}

// FolderCreator creates a customer folder with its standard subfolders.
// metadata is stored as folder properties where the backend supports it.
type FolderCreator interface {
	CreateStructured(ctx context.Context, name string, metadata map[string]string) (model.FolderStructure, error)
}
