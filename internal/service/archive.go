package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"path"

	"github.com/golang/snappy"
	"github.com/timmy/fitetl/internal/domain"
	"github.com/timmy/fitetl/internal/storage"
)

const archiveContentType = "application/x-snappy-framed"

// Archiver keeps a snappy-compressed CSV copy of every loaded dataset in object storage.
type Archiver struct {
	store  storage.ObjectStorage
	prefix string
}

// NewArchiver creates an archiver writing under prefix.
func NewArchiver(store storage.ObjectStorage, prefix string) *Archiver {
	return &Archiver{store: store, prefix: prefix}
}

// Key returns the object key of a dataset archived in batchID.
func (a *Archiver) Key(batchID string, kind domain.Kind) string {
	return path.Join(a.prefix, batchID, string(kind)+".csv.sz")
}

// Archive uploads ds as <prefix>/<batch_id>/<kind>.csv.sz and returns the key.
func (a *Archiver) Archive(ctx context.Context, batchID string, ds *domain.Dataset) (string, error) {
	var buf bytes.Buffer
	if err := EncodeArchive(&buf, ds); err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", ds.Kind, err)
	}

	key := a.Key(batchID, ds.Kind)
	if err := a.store.Upload(ctx, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), archiveContentType); err != nil {
		return "", err
	}
	return key, nil
}

// EncodeArchive writes ds as header plus rows of CSV through a snappy framed stream.
func EncodeArchive(buf *bytes.Buffer, ds *domain.Dataset) error {
	zw := snappy.NewBufferedWriter(buf)
	w := csv.NewWriter(zw)

	if err := w.Write(ds.Columns); err != nil {
		return err
	}
	rec := make([]string, ds.Width())
	for _, row := range ds.Rows {
		for i, v := range row {
			rec[i] = FormatValue(v)
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return zw.Close()
}
