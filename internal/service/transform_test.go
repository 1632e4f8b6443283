package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/fitetl/internal/domain"
)

func newTestTransformer() *Transformer {
	return NewTransformer(NewMetadataEnricher(fixedClock), NewBatchID(fixedNow))
}

func workoutLogsDataset(times ...string) *domain.Dataset {
	schema, _ := domain.SchemaFor(domain.KindWorkoutLogs)
	ds := domain.NewDataset(domain.KindWorkoutLogs, schema.SourceColumns())
	for i, tm := range times {
		ds.Append([]any{
			"W" + string(rune('0'+i)), "M1", "2024-05-01", tm, "Bench Press", "strength", "chest",
			"4", "8", "80.5", "45", "310", "7", nil,
		})
	}
	return ds
}

func TestTransformMembers(t *testing.T) {
	out, err := newTestTransformer().Transform(context.Background(), membersDataset(2))
	require.NoError(t, err)

	schema, _ := domain.SchemaFor(domain.KindMembers)
	assert.Equal(t, append(schema.TargetColumns(), domain.MetadataColumns...), out.Columns)

	rec := out.Record(0)
	assert.Equal(t, int64(36), rec["age"])
	assert.Equal(t, 168.5, rec["height_cm"])
	assert.Equal(t, "2024-01-15", rec["join_date"].(domain.Date).String())
	assert.Equal(t, "MEMBER_SYSTEM", rec[domain.ColumnSourceSystem])
	assert.Equal(t, "20250314_092653", rec[domain.ColumnBatchID])
	assert.Equal(t, fixedNow, rec[domain.ColumnLoadTimestamp])
	assert.Len(t, rec[domain.ColumnRecordHash], 32)
}

func TestTransformExercisesRenames(t *testing.T) {
	schema, _ := domain.SchemaFor(domain.KindExercises)
	ds := domain.NewDataset(domain.KindExercises, schema.SourceColumns())
	ds.Append([]any{"Push-up", "strength", "chest", "beginner", "none", "Lower and push.", nil})

	out, err := newTestTransformer().TransformExercises(context.Background(), ds)
	require.NoError(t, err)

	rec := out.Record(0)
	assert.Equal(t, "Push-up", rec["exercise_name"])
	assert.Equal(t, "chest", rec["muscle_group"])
	assert.Equal(t, "beginner", rec["difficulty_level"])
	assert.Nil(t, rec["safety_info"])
	assert.Equal(t, "API_NINJAS_EXERCISES", rec[domain.ColumnSourceSystem])
	assert.Equal(t, -1, out.ColumnIndex("name"))
}

func TestTransformWorkoutLogsTime(t *testing.T) {
	out, err := newTestTransformer().Transform(context.Background(), workoutLogsDataset("06:30:00", "18:05:59"))
	require.NoError(t, err)

	rec := out.Record(1)
	assert.Equal(t, domain.TimeOfDay{Hour: 18, Minute: 5, Second: 59}, rec["workout_time"])
	assert.Equal(t, int64(4), rec["sets"])
	assert.Equal(t, 80.5, rec["weight_kg"])
}

func TestTransformRejectsInvalidTime(t *testing.T) {
	_, err := newTestTransformer().Transform(context.Background(), workoutLogsDataset("06:30:00", "25:99:00"))
	require.Error(t, err)

	assert.True(t, errors.Is(err, domain.ErrParse))
	var te *domain.TransformError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "workout_time", te.Column)
	assert.Equal(t, 1, te.Row)
	assert.Equal(t, "25:99:00", te.Value)
}

func TestTransformCoercion(t *testing.T) {
	tests := []struct {
		name    string
		age     any
		want    any
		wantErr bool
	}{
		{"integer text", "41", int64(41), false},
		{"whole float text", "41.0", int64(41), false},
		{"padded", " 41 ", int64(41), false},
		{"empty is null", "", nil, false},
		{"decoded float", 41.0, int64(41), false},
		{"fraction", "41.5", nil, true},
		{"word", "forty", nil, true},
		{"beyond int64", "1e20", nil, true},
		{"negative beyond int64", "-1e19", nil, true},
		{"decoded float beyond int64", 1e20, nil, true},
		{"infinity", "Inf", nil, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ds := membersDataset(1)
			ds.Rows[0][4] = tc.age

			out, err := newTestTransformer().TransformMembers(context.Background(), ds)
			if tc.wantErr {
				assert.ErrorIs(t, err, domain.ErrParse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, out.Record(0)["age"])
		})
	}
}

func TestTransformNullInRequiredColumn(t *testing.T) {
	ds := membersDataset(3)
	ds.Rows[2][0] = nil

	_, err := newTestTransformer().Transform(context.Background(), ds)
	var te *domain.TransformError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "member_id", te.Column)
	assert.Equal(t, 2, te.Row)
}

func TestTransformMissingColumn(t *testing.T) {
	ds := domain.NewDataset(domain.KindNutritionLogs, []string{"nutrition_log_id", "member_id"})
	ds.Append([]any{"N1", "M1"})

	_, err := newTestTransformer().Transform(context.Background(), ds)
	var se *domain.SchemaError
	require.True(t, errors.As(err, &se))
	assert.Contains(t, se.Missing, "log_date")
	assert.Equal(t, domain.KindNutritionLogs, se.Kind)
}
