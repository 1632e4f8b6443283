package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/fitetl/internal/config"
	"github.com/timmy/fitetl/internal/domain"
	"github.com/timmy/fitetl/internal/logger"
)

func newTestAPIClient(url string) *APINinjasClient {
	return NewAPINinjasClient(
		config.APIConfig{BaseURL: url, APIKey: "test-key", TimeoutSeconds: 5},
		config.ETLConfig{MaxRetries: 2},
		logger.Discard(),
	)
}

func TestFetchExercisesPages(t *testing.T) {
	const available = 23
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/exercises", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "biceps", r.URL.Query().Get("muscle"))

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		var page []map[string]any
		for i := offset; i < available && i < offset+exercisesPageSize; i++ {
			page = append(page, map[string]any{
				"name":       fmt.Sprintf("Curl %d", i),
				"type":       "strength",
				"muscle":     "biceps",
				"difficulty": "beginner",
				"equipments": []string{"dumbbell", "bench"},
			})
		}
		if page == nil {
			page = []map[string]any{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(page)
	}))
	defer srv.Close()

	client := newTestAPIClient(srv.URL)

	all, err := client.FetchExercises(context.Background(), "biceps", 50)
	require.NoError(t, err)
	assert.Len(t, all, available)
	assert.Equal(t, "dumbbell, bench", string(all[0].Equipments))

	capped, err := client.FetchExercises(context.Background(), "biceps", 15)
	require.NoError(t, err)
	assert.Len(t, capped, 15)
}

func TestFetchRetriesThrottling(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"slow down"}`))
			return
		}
		w.Write([]byte(`[{"name":"banana","calories":89.4,"serving_size_g":100}]`))
	}))
	defer srv.Close()

	item, err := newTestAPIClient(srv.URL).LookupNutrition(context.Background(), "banana")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "banana", item.Name)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestFetchNutrition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("query") {
		case "chicken breast":
			w.Write([]byte(`[{"name":"chicken breast","calories":"Only available for premium subscribers.",` +
				`"serving_size_g":"Only available for premium subscribers.","fat_total_g":3.5,"protein_g":"31",` +
				`"sodium_mg":72,"potassium_mg":222,"cholesterol_mg":85,"carbohydrates_total_g":0,"fiber_g":0,"sugar_g":0},` +
				`{"name":"chicken skin","calories":400}]`))
		case "bad request":
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid query"}`))
		default:
			w.Write([]byte(`[]`))
		}
	}))
	defer srv.Close()

	items, err := newTestAPIClient(srv.URL).FetchNutrition(context.Background(), []string{"chicken breast", "unobtainium", "bad request"})
	require.NoError(t, err)
	require.Len(t, items, 1)

	ds := NutritionDataset(items)
	assert.Equal(t, domain.KindNutrition, ds.Kind)
	rec := ds.Record(0)
	assert.Equal(t, "chicken breast", rec["name"])
	assert.Nil(t, rec["calories"])
	assert.Equal(t, "3.5", rec["fat_total_g"])
	assert.Equal(t, "31", rec["protein_g"])
	assert.Equal(t, "0", rec["sugar_g"])

	out, err := newTestTransformer().Transform(context.Background(), ds)
	require.NoError(t, err)
	assert.Equal(t, 31.0, out.Record(0)["protein_g"])
	assert.Equal(t, "chicken breast", out.Record(0)["food_name"])
}

func TestExercisesDatasetDedup(t *testing.T) {
	ds := ExercisesDataset([]Exercise{
		{Name: "Push-up", Type: "strength", Muscle: "chest", Equipment: "body_only"},
		{Name: "Push-up", Type: "strength", Muscle: "triceps"},
		{Name: "Plank", Muscle: "abdominals", Equipments: "none"},
	})

	require.Equal(t, 2, ds.Len())
	first := ds.Record(0)
	assert.Equal(t, "chest", first["muscle"])
	assert.Equal(t, "body_only", first["equipments"])
	assert.Nil(t, first["difficulty"])
	assert.Equal(t, "none", ds.Record(1)["equipments"])
}
