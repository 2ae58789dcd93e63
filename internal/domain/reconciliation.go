// internal/domain/reconciliation.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MacroComparison is the plan-vs-real tuple for a single macro.
// There is no compliance score at this granularity; compliance is
// calorie-anchored only.
type MacroComparison struct {
	Plan        float64 `bson:"plan" json:"plan"`
	Real        float64 `bson:"real" json:"real"`
	Diff        float64 `bson:"diff" json:"diff"`
	PercentDiff float64 `bson:"percentDiff" json:"percentDiff"`
}

// CalorieComparison extends the macro tuple with the 0-100 compliance
// score anchoring the whole reconciliation.
type CalorieComparison struct {
	Plan        float64 `bson:"plan" json:"plan"`
	Real        float64 `bson:"real" json:"real"`
	Diff        float64 `bson:"diff" json:"diff"`
	PercentDiff float64 `bson:"percentDiff" json:"percentDiff"`
	Compliance  float64 `bson:"compliance" json:"compliance"`
}

// MacroComparisons groups the per-macro tuples.
type MacroComparisons struct {
	Protein MacroComparison `bson:"protein" json:"protein"`
	Carbs   MacroComparison `bson:"carbs" json:"carbs"`
	Fat     MacroComparison `bson:"fat" json:"fat"`
}

// MealSlotComparison compares one canonical slot. Real macros beyond
// calories are zero: tracking apps export per-slot calories only, and
// the degraded macro shape is preserved for downstream consumers.
type MealSlotComparison struct {
	Slot       MealSlot `bson:"slot" json:"slot"`
	Plan       Macros   `bson:"plan" json:"plan"`
	Real       Macros   `bson:"real" json:"real"`
	Diff       Macros   `bson:"diff" json:"diff"`
	Compliance float64  `bson:"compliance" json:"compliance"`
}

// ReconciliationAnalysis holds the generated findings of a comparison.
type ReconciliationAnalysis struct {
	Strengths        []string `bson:"strengths" json:"strengths"`
	ImprovementAreas []string `bson:"improvementAreas" json:"improvementAreas"`
	Recommendations  []string `bson:"recommendations" json:"recommendations"`
	Patterns         []string `bson:"patterns" json:"patterns"`
}

// ReconciliationResult is the generated report comparing a plan to one
// day of logged intake. It is derived data appended to a per-plan
// history so trends can be read across days.
type ReconciliationResult struct {
	ID                 primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	PlanID             primitive.ObjectID     `bson:"planId" json:"planId"`
	ClientID           string                 `bson:"clientId" json:"clientId"`
	Date               string                 `bson:"date" json:"date"`
	CalorieComparison  CalorieComparison      `bson:"calorieComparison" json:"calorieComparison"`
	MacroComparisons   MacroComparisons       `bson:"macroComparisons" json:"macroComparisons"`
	PerMealComparisons []MealSlotComparison   `bson:"perMealComparisons" json:"perMealComparisons"`
	DigestiveSymptoms  []DigestiveSymptom     `bson:"digestiveSymptoms" json:"digestiveSymptoms"`
	Analysis           ReconciliationAnalysis `bson:"analysis" json:"analysis"`
	SourceIntakeID     primitive.ObjectID     `bson:"sourceIntakeId" json:"sourceIntakeId"`
	ArchiveKey         string                 `bson:"archiveKey,omitempty" json:"archiveKey,omitempty"`
	GeneratedAt        time.Time              `bson:"generatedAt" json:"generatedAt"`
}
