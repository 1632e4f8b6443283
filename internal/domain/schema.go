package domain

// ColumnType is the semantic type a column is coerced to before loading.
type ColumnType string

const (
	TypeString  ColumnType = "string"
	TypeInteger ColumnType = "integer"
	TypeFloat   ColumnType = "float"
	TypeDate    ColumnType = "date"
	TypeTime    ColumnType = "time"
)

// Column describes one column of a dataset kind.
type Column struct {
	Source   string     // Column name in the source file
	Target   string     // Column name in the warehouse table
	Type     ColumnType // Semantic type after transformation
	Nullable bool
}

// Schema is the ordered column descriptor of a dataset kind.
type Schema struct {
	Kind    Kind
	Columns []Column
}

// SourceColumns returns the column names expected in the source file, in order.
func (s Schema) SourceColumns() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Source
	}
	return names
}

// TargetColumns returns the warehouse column names, in order.
func (s Schema) TargetColumns() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Target
	}
	return names
}

// Renames returns the source→target column mapping for columns whose name changes.
func (s Schema) Renames() map[string]string {
	m := make(map[string]string)
	for _, c := range s.Columns {
		if c.Source != c.Target {
			m[c.Source] = c.Target
		}
	}
	return m
}

// Metadata columns appended to every load-ready dataset.
const (
	ColumnSourceSystem  = "source_system"
	ColumnLoadTimestamp = "load_timestamp"
	ColumnBatchID       = "batch_id"
	ColumnRecordHash    = "record_hash"
)

// MetadataColumns lists the lineage columns in the order they are appended.
var MetadataColumns = []string{
	ColumnSourceSystem,
	ColumnLoadTimestamp,
	ColumnBatchID,
	ColumnRecordHash,
}

func col(name string, t ColumnType, nullable bool) Column {
	return Column{Source: name, Target: name, Type: t, Nullable: nullable}
}

func renamed(source, target string, t ColumnType, nullable bool) Column {
	return Column{Source: source, Target: target, Type: t, Nullable: nullable}
}

var schemas = map[Kind]Schema{
	KindExercises: {Kind: KindExercises, Columns: []Column{
		renamed("name", "exercise_name", TypeString, false),
		renamed("type", "exercise_type", TypeString, true),
		renamed("muscle", "muscle_group", TypeString, true),
		renamed("difficulty", "difficulty_level", TypeString, true),
		col("equipments", TypeString, true),
		col("instructions", TypeString, true),
		col("safety_info", TypeString, true),
	}},
	KindNutrition: {Kind: KindNutrition, Columns: []Column{
		renamed("name", "food_name", TypeString, false),
		col("calories", TypeFloat, true),
		col("serving_size_g", TypeFloat, true),
		col("fat_total_g", TypeFloat, true),
		col("fat_saturated_g", TypeFloat, true),
		col("protein_g", TypeFloat, true),
		col("sodium_mg", TypeFloat, true),
		col("potassium_mg", TypeFloat, true),
		col("cholesterol_mg", TypeFloat, true),
		col("carbohydrates_total_g", TypeFloat, true),
		col("fiber_g", TypeFloat, true),
		col("sugar_g", TypeFloat, true),
	}},
	KindMembers: {Kind: KindMembers, Columns: []Column{
		col("member_id", TypeString, false),
		col("first_name", TypeString, true),
		col("last_name", TypeString, true),
		col("email", TypeString, true),
		col("age", TypeInteger, true),
		col("gender", TypeString, true),
		col("membership_type", TypeString, true),
		col("membership_status", TypeString, true),
		col("join_date", TypeDate, true),
		col("fitness_goal", TypeString, true),
		col("height_cm", TypeFloat, true),
		col("initial_weight_kg", TypeFloat, true),
	}},
	KindWorkoutLogs: {Kind: KindWorkoutLogs, Columns: []Column{
		col("workout_log_id", TypeString, false),
		col("member_id", TypeString, false),
		col("workout_date", TypeDate, true),
		col("workout_time", TypeTime, true),
		col("exercise_name", TypeString, true),
		col("exercise_type", TypeString, true),
		col("muscle_group", TypeString, true),
		col("sets", TypeInteger, true),
		col("reps", TypeInteger, true),
		col("weight_kg", TypeFloat, true),
		col("duration_minutes", TypeInteger, true),
		col("calories_burned", TypeFloat, true),
		col("difficulty_rating", TypeInteger, true),
		col("notes", TypeString, true),
	}},
	KindNutritionLogs: {Kind: KindNutritionLogs, Columns: []Column{
		col("nutrition_log_id", TypeString, false),
		col("member_id", TypeString, false),
		col("log_date", TypeDate, true),
		col("meal_type", TypeString, true),
		col("food_item", TypeString, true),
		col("serving_size_g", TypeFloat, true),
		col("servings", TypeFloat, true),
		col("calories", TypeFloat, true),
		col("protein_g", TypeFloat, true),
		col("carbs_g", TypeFloat, true),
		col("fat_g", TypeFloat, true),
		col("fiber_g", TypeFloat, true),
		col("sugar_g", TypeFloat, true),
	}},
	KindMemberEngagement: {Kind: KindMemberEngagement, Columns: []Column{
		col("engagement_id", TypeString, false),
		col("member_id", TypeString, false),
		col("record_date", TypeDate, true),
		col("check_ins", TypeInteger, true),
		col("app_logins", TypeInteger, true),
		col("classes_attended", TypeInteger, true),
		col("trainer_sessions", TypeInteger, true),
		col("engagement_score", TypeFloat, true),
	}},
}

// SchemaFor returns the column descriptor for a dataset kind.
// Parameters:
//   - k: dataset kind.
// Returns:
//   - Schema: descriptor of the kind.
//   - bool: false if the kind has no descriptor.
func SchemaFor(k Kind) (Schema, bool) {
	s, ok := schemas[k]
	return s, ok
}
