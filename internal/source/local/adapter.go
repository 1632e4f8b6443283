package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/timmy/fitetl/internal/domain"
	"github.com/timmy/fitetl/internal/logger"
	"github.com/timmy/fitetl/internal/source"
)

// Adapter implements source.TabularSource for files in a local directory.
type Adapter struct {
	basePath string
	files    source.Files
}

// NewAdapter creates a new local file adapter.
// Parameters:
//   - basePath: directory holding the dataset files.
//   - files: file name per dataset kind, relative to basePath.
// Returns:
//   - *Adapter: initialized adapter.
func NewAdapter(basePath string, files source.Files) *Adapter {
	return &Adapter{basePath: basePath, files: files}
}

// SourceID returns the unique identifier for this source.
func (a *Adapter) SourceID() string {
	return "local:" + a.basePath
}

// Path returns the file path read for kind.
func (a *Adapter) Path(kind domain.Kind) (string, error) {
	name, ok := a.files[kind]
	if !ok {
		return "", fmt.Errorf("no file configured for %s", kind)
	}
	return filepath.Join(a.basePath, name), nil
}

// Read loads the kind's file from disk.
func (a *Adapter) Read(ctx context.Context, kind domain.Kind) (*domain.Dataset, error) {
	path, err := a.Path(kind)
	if err != nil {
		return nil, err
	}

	logger.CtxInfo(ctx, "Loading data from %s", filepath.Base(path))

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	ds, ignored, err := source.Parse(kind, path, file)
	if err != nil {
		return nil, err
	}
	if len(ignored) > 0 {
		logger.CtxWarn(ctx, "Ignoring columns %v in %s", ignored, filepath.Base(path))
	}

	logger.CtxInfo(ctx, "Loaded %d records from %s", ds.Len(), filepath.Base(path))
	return ds, nil
}
