package domain

import "fmt"

// Kind identifies one of the fixed categories of tabular data loaded by the pipeline.
type Kind string

const (
	KindExercises        Kind = "exercises"
	KindNutrition        Kind = "nutrition"
	KindMembers          Kind = "members"
	KindWorkoutLogs      Kind = "workout_logs"
	KindNutritionLogs    Kind = "nutrition_logs"
	KindMemberEngagement Kind = "member_engagement"
)

// AllKinds lists every dataset kind in processing order.
var AllKinds = []Kind{
	KindExercises,
	KindNutrition,
	KindMembers,
	KindWorkoutLogs,
	KindNutritionLogs,
	KindMemberEngagement,
}

var sourceSystems = map[Kind]string{
	KindExercises:        "API_NINJAS_EXERCISES",
	KindNutrition:        "API_NINJAS_NUTRITION",
	KindMembers:          "MEMBER_SYSTEM",
	KindWorkoutLogs:      "WORKOUT_TRACKING_SYSTEM",
	KindNutritionLogs:    "NUTRITION_TRACKING_SYSTEM",
	KindMemberEngagement: "ENGAGEMENT_TRACKING_SYSTEM",
}

// SourceSystem returns the lineage tag stamped on every record of this kind.
func (k Kind) SourceSystem() string {
	return sourceSystems[k]
}

// Valid reports whether k is one of the known dataset kinds.
func (k Kind) Valid() bool {
	_, ok := sourceSystems[k]
	return ok
}

// ParseKind converts a string into a Kind.
// Parameters:
//   - s: kind name such as "workout_logs".
// Returns:
//   - Kind: parsed kind.
//   - error: non-nil if the name is unknown.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown dataset kind %q", s)
	}
	return k, nil
}
