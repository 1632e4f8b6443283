package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"testing"

	"github.com/golang/snappy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/fitetl/internal/domain"
)

func TestArchive(t *testing.T) {
	store := newMemStorage()
	archiver := NewArchiver(store, "archive")

	ds, err := newTestTransformer().Transform(context.Background(), rawDataset(domain.KindWorkoutLogs, 3))
	require.NoError(t, err)

	key, err := archiver.Archive(context.Background(), "20250314_092653", ds)
	require.NoError(t, err)
	assert.Equal(t, "archive/20250314_092653/workout_logs.csv.sz", key)
	assert.Equal(t, archiveContentType, store.types[key])

	body, err := store.Download(context.Background(), key)
	require.NoError(t, err)
	raw, err := io.ReadAll(snappy.NewReader(body))
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(raw)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, ds.Columns, records[0])

	timeCol := ds.ColumnIndex("workout_time")
	assert.Equal(t, "08:00:00", records[1][timeCol])
	assert.Equal(t, ds.Rows[2][ds.ColumnIndex(domain.ColumnRecordHash)], records[3][ds.ColumnIndex(domain.ColumnRecordHash)])
	assert.Equal(t, "2024-01-15", records[1][ds.ColumnIndex("workout_date")])
}
