package objectstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/fitetl/internal/domain"
	"github.com/timmy/fitetl/internal/source"
)

type memStore map[string][]byte

func (m memStore) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	b, err := io.ReadAll(r)
	m[key] = b
	return err
}

func (m memStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	b, ok := m[key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m memStore) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m[key]
	return ok, nil
}

func (m memStore) Delete(ctx context.Context, key string) error {
	delete(m, key)
	return nil
}

func (m memStore) GetURL(key string) string { return "mem://" + key }

func TestAdapterRead(t *testing.T) {
	store := memStore{
		"landing/nutrition_logs.csv": []byte(
			"nutrition_log_id,member_id,log_date,meal_type,food_item,serving_size_g,servings,calories,protein_g,carbs_g,fat_g,fiber_g,sugar_g\n" +
				"N1,M1,2024-04-01,breakfast,oatmeal,40,1,150,5,27,3,4,1\n"),
	}
	a := NewAdapter(store, "landing", source.Files{domain.KindNutritionLogs: "nutrition_logs.csv"})

	key, err := a.Key(domain.KindNutritionLogs)
	require.NoError(t, err)
	assert.Equal(t, "landing/nutrition_logs.csv", key)

	ds, err := a.Read(context.Background(), domain.KindNutritionLogs)
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())
	assert.Equal(t, "oatmeal", ds.Rows[0][ds.ColumnIndex("food_item")])
}

func TestAdapterReadMissingObject(t *testing.T) {
	a := NewAdapter(memStore{}, "landing", source.Files{domain.KindNutritionLogs: "nutrition_logs.csv"})
	_, err := a.Read(context.Background(), domain.KindNutritionLogs)
	assert.ErrorContains(t, err, "NoSuchKey")
}
