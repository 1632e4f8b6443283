package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/timmy/fitetl/internal/domain"
	"github.com/timmy/fitetl/internal/logger"
)

// Transformer maps raw source datasets onto the staging schema of their kind.
type Transformer struct {
	enricher *MetadataEnricher
	batchID  string
}

// NewTransformer creates a transformer that stamps every record with batchID.
func NewTransformer(enricher *MetadataEnricher, batchID string) *Transformer {
	return &Transformer{enricher: enricher, batchID: batchID}
}

// Transform dispatches to the transform of ds.Kind.
func (t *Transformer) Transform(ctx context.Context, ds *domain.Dataset) (*domain.Dataset, error) {
	switch ds.Kind {
	case domain.KindExercises:
		return t.TransformExercises(ctx, ds)
	case domain.KindNutrition:
		return t.TransformNutrition(ctx, ds)
	case domain.KindMembers:
		return t.TransformMembers(ctx, ds)
	case domain.KindWorkoutLogs:
		return t.TransformWorkoutLogs(ctx, ds)
	case domain.KindNutritionLogs:
		return t.TransformNutritionLogs(ctx, ds)
	case domain.KindMemberEngagement:
		return t.TransformMemberEngagement(ctx, ds)
	}
	return nil, fmt.Errorf("no transform for dataset kind %q", ds.Kind)
}

// TransformExercises renames name/type/muscle/difficulty to their warehouse names.
func (t *Transformer) TransformExercises(ctx context.Context, ds *domain.Dataset) (*domain.Dataset, error) {
	return t.apply(ctx, domain.KindExercises, ds)
}

// TransformNutrition renames name to food_name and coerces nutrient amounts.
func (t *Transformer) TransformNutrition(ctx context.Context, ds *domain.Dataset) (*domain.Dataset, error) {
	return t.apply(ctx, domain.KindNutrition, ds)
}

// TransformMembers coerces join_date to a date.
func (t *Transformer) TransformMembers(ctx context.Context, ds *domain.Dataset) (*domain.Dataset, error) {
	return t.apply(ctx, domain.KindMembers, ds)
}

// TransformWorkoutLogs coerces workout_date to a date and workout_time to a time of day.
func (t *Transformer) TransformWorkoutLogs(ctx context.Context, ds *domain.Dataset) (*domain.Dataset, error) {
	return t.apply(ctx, domain.KindWorkoutLogs, ds)
}

// TransformNutritionLogs coerces log_date to a date.
func (t *Transformer) TransformNutritionLogs(ctx context.Context, ds *domain.Dataset) (*domain.Dataset, error) {
	return t.apply(ctx, domain.KindNutritionLogs, ds)
}

// TransformMemberEngagement coerces record_date to a date.
func (t *Transformer) TransformMemberEngagement(ctx context.Context, ds *domain.Dataset) (*domain.Dataset, error) {
	return t.apply(ctx, domain.KindMemberEngagement, ds)
}

// apply renames columns to their targets, coerces every cell to the descriptor
// type and adds lineage metadata.
func (t *Transformer) apply(ctx context.Context, kind domain.Kind, ds *domain.Dataset) (*domain.Dataset, error) {
	schema, ok := domain.SchemaFor(kind)
	if !ok {
		return nil, fmt.Errorf("no schema for dataset kind %q", kind)
	}

	positions := make([]int, len(schema.Columns))
	var missing []string
	for i, c := range schema.Columns {
		positions[i] = ds.ColumnIndex(c.Source)
		if positions[i] < 0 {
			missing = append(missing, c.Source)
		}
	}
	if len(missing) > 0 {
		return nil, &domain.SchemaError{Kind: kind, Missing: missing}
	}

	out := domain.NewDataset(kind, schema.TargetColumns())
	out.Rows = make([][]any, len(ds.Rows))
	for r, row := range ds.Rows {
		coerced := make([]any, len(schema.Columns))
		for i, c := range schema.Columns {
			v, err := coerce(row[positions[i]], c)
			if err != nil {
				return nil, &domain.TransformError{
					Kind:   kind,
					Column: c.Source,
					Row:    r,
					Value:  FormatValue(row[positions[i]]),
					Err:    err,
				}
			}
			coerced[i] = v
		}
		out.Rows[r] = coerced
	}

	logger.CtxDebug(ctx, "Transformed %d %s rows", out.Len(), kind)
	return t.enricher.AddMetadata(out, kind.SourceSystem(), t.batchID), nil
}

var errNullNotAllowed = errors.New("null in non-nullable column")

func coerce(v any, c domain.Column) (any, error) {
	if v == nil {
		if !c.Nullable {
			return nil, errNullNotAllowed
		}
		return nil, nil
	}

	s, isString := v.(string)
	if !isString {
		return coerceTyped(v, c.Type)
	}

	if c.Type == domain.TypeString {
		return s, nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		if !c.Nullable {
			return nil, errNullNotAllowed
		}
		return nil, nil
	}

	switch c.Type {
	case domain.TypeInteger:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("not an integer")
		}
		return floatToInt(f)
	case domain.TypeFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("not a number")
		}
		return f, nil
	case domain.TypeDate:
		return domain.ParseDate(s)
	case domain.TypeTime:
		return domain.ParseTimeOfDay(s)
	}
	return nil, fmt.Errorf("unknown column type %q", c.Type)
}

// coerceTyped accepts values a source already decoded, when they fit the column.
func coerceTyped(v any, t domain.ColumnType) (any, error) {
	switch val := v.(type) {
	case int64:
		switch t {
		case domain.TypeInteger:
			return val, nil
		case domain.TypeFloat:
			return float64(val), nil
		}
	case float64:
		switch t {
		case domain.TypeFloat:
			return val, nil
		case domain.TypeInteger:
			return floatToInt(val)
		}
	case domain.Date:
		if t == domain.TypeDate {
			return val, nil
		}
	case domain.TimeOfDay:
		if t == domain.TypeTime {
			return val, nil
		}
	}
	if t == domain.TypeString {
		return FormatValue(v), nil
	}
	return nil, fmt.Errorf("unexpected %T for %s column", v, t)
}

// floatToInt converts an integral float that fits in int64.
func floatToInt(f float64) (int64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not an integer")
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("integer out of range")
	}
	return int64(f), nil
}
