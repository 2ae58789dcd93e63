// internal/domain/intake.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SourceApp identifies the tracking app an intake record came from.
// The engine never parses app payloads itself; an external importer
// normalizes them into ImportedIntakeRecord first.
type SourceApp string

const (
	SourceMyFitnessPal SourceApp = "myfitnesspal"
	SourceCronometer   SourceApp = "cronometer"
	SourceFatSecret    SourceApp = "fatsecret"
	SourceLifesum      SourceApp = "lifesum"
	SourceYazio        SourceApp = "yazio"
	SourceOther        SourceApp = "other"
)

// IsValidSourceApp reports whether s is a known tracking app.
func IsValidSourceApp(s SourceApp) bool {
	switch s {
	case SourceMyFitnessPal, SourceCronometer, SourceFatSecret,
		SourceLifesum, SourceYazio, SourceOther:
		return true
	}
	return false
}

// SymptomType is the closed set of digestive symptom categories.
type SymptomType string

const (
	SymptomBloating          SymptomType = "bloating"
	SymptomGas               SymptomType = "gas"
	SymptomHeartburn         SymptomType = "heartburn"
	SymptomNausea            SymptomType = "nausea"
	SymptomAbdominalPain     SymptomType = "abdominal-pain"
	SymptomDiarrhea          SymptomType = "diarrhea"
	SymptomConstipation      SymptomType = "constipation"
	SymptomReflux            SymptomType = "reflux"
	SymptomGeneralDiscomfort SymptomType = "general-discomfort"
	SymptomOtherType         SymptomType = "other"
)

// SymptomIntensity grades a digestive symptom.
type SymptomIntensity string

const (
	IntensityMild     SymptomIntensity = "mild"
	IntensityModerate SymptomIntensity = "moderate"
	IntensitySevere   SymptomIntensity = "severe"
)

// DigestiveSymptom is one client-logged symptom, imported alongside
// intake data and passed through verbatim into reconciliation results.
type DigestiveSymptom struct {
	ID            string           `bson:"id" json:"id"`
	Type          SymptomType      `bson:"type" json:"type"`
	Intensity     SymptomIntensity `bson:"intensity" json:"intensity"`
	Description   string           `bson:"description,omitempty" json:"description,omitempty"`
	TimeOfDay     string           `bson:"timeOfDay,omitempty" json:"timeOfDay,omitempty"`
	RelatedMealID string           `bson:"relatedMealId,omitempty" json:"relatedMealId,omitempty"`
	Date          string           `bson:"date" json:"date"`
}

// ExerciseSession is optional activity data logged alongside intake.
type ExerciseSession struct {
	Kind           string  `bson:"kind" json:"kind"`
	DurationMin    int     `bson:"durationMin" json:"durationMin"`
	CaloriesBurned float64 `bson:"caloriesBurned" json:"caloriesBurned"`
}

// IntakeExtras carries the optional extra data some tracking apps
// export beyond calories and macros.
type IntakeExtras struct {
	HydrationML float64          `bson:"hydrationMl,omitempty" json:"hydrationMl,omitempty"`
	Exercise    *ExerciseSession `bson:"exercise,omitempty" json:"exercise,omitempty"`
	WeightKG    float64          `bson:"weightKg,omitempty" json:"weightKg,omitempty"`
	Notes       string           `bson:"notes,omitempty" json:"notes,omitempty"`
}

// ImportedIntakeRecord is one client-day of externally-logged intake
// data, immutable once imported. Multiple imports for the same date
// append; readers pick the latest by import time.
type ImportedIntakeRecord struct {
	ID                primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	PlanID            primitive.ObjectID   `bson:"planId" json:"planId"`
	ClientID          string               `bson:"clientId" json:"clientId"`
	SourceApp         SourceApp            `bson:"sourceApp" json:"sourceApp"`
	Date              string               `bson:"date" json:"date"` // YYYY-MM-DD
	CaloriesTotal     float64              `bson:"caloriesTotal" json:"caloriesTotal"`
	CaloriesBySlot    map[MealSlot]float64 `bson:"caloriesBySlot,omitempty" json:"caloriesBySlot,omitempty"`
	Macros            *Macros              `bson:"macros,omitempty" json:"macros,omitempty"`
	DigestiveSymptoms []DigestiveSymptom   `bson:"digestiveSymptoms,omitempty" json:"digestiveSymptoms,omitempty"`
	Extras            *IntakeExtras        `bson:"extras,omitempty" json:"extras,omitempty"`
	ImportedAt        time.Time            `bson:"importedAt" json:"importedAt"`
	CreatedAt         time.Time            `bson:"createdAt" json:"createdAt"`
}

// ConsumedMacros returns the record's macro totals. When the source
// app exported no macro breakdown, it falls back to the summed
// per-slot calories with zeroed protein/carbs/fat (degraded mode);
// the declared day total is only used when no slot breakdown exists.
func (r *ImportedIntakeRecord) ConsumedMacros() Macros {
	if r.Macros != nil {
		return *r.Macros
	}
	if len(r.CaloriesBySlot) > 0 {
		var total float64
		for _, calories := range r.CaloriesBySlot {
			total += calories
		}
		return Macros{Calories: total}
	}
	return Macros{Calories: r.CaloriesTotal}
}
