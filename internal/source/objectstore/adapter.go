package objectstore

import (
	"context"
	"fmt"
	"path"

	"github.com/timmy/fitetl/internal/domain"
	"github.com/timmy/fitetl/internal/logger"
	"github.com/timmy/fitetl/internal/source"
	"github.com/timmy/fitetl/internal/storage"
)

// Adapter implements source.TabularSource for dataset files kept in object storage.
type Adapter struct {
	store  storage.ObjectStorage
	prefix string
	files  source.Files
}

// NewAdapter creates an adapter reading <prefix>/<file> objects.
func NewAdapter(store storage.ObjectStorage, prefix string, files source.Files) *Adapter {
	return &Adapter{store: store, prefix: prefix, files: files}
}

func (a *Adapter) SourceID() string {
	return "objectstore:" + a.prefix
}

// Key returns the object key read for kind.
func (a *Adapter) Key(kind domain.Kind) (string, error) {
	name, ok := a.files[kind]
	if !ok {
		return "", fmt.Errorf("no file configured for %s", kind)
	}
	return path.Join(a.prefix, name), nil
}

func (a *Adapter) Read(ctx context.Context, kind domain.Kind) (*domain.Dataset, error) {
	key, err := a.Key(kind)
	if err != nil {
		return nil, err
	}

	logger.CtxInfo(ctx, "Downloading %s", key)

	body, err := a.store.Download(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", key, err)
	}
	defer body.Close()

	ds, ignored, err := source.Parse(kind, key, body)
	if err != nil {
		return nil, err
	}
	if len(ignored) > 0 {
		logger.CtxWarn(ctx, "Ignoring columns %v in %s", ignored, key)
	}

	logger.CtxInfo(ctx, "Loaded %d records from %s", ds.Len(), key)
	return ds, nil
}
