// internal/domain/plan.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MealSlot identifies one of the six canonical meal slots of a day.
type MealSlot string

const (
	SlotBreakfast   MealSlot = "breakfast"
	SlotMidMorning  MealSlot = "mid-morning"
	SlotLunch       MealSlot = "lunch"
	SlotSnack       MealSlot = "snack"
	SlotDinner      MealSlot = "dinner"
	SlotPostWorkout MealSlot = "post-workout"
)

// CanonicalSlots lists the meal slots in day order. Per-slot
// reconciliation iterates this exact set.
var CanonicalSlots = []MealSlot{
	SlotBreakfast,
	SlotMidMorning,
	SlotLunch,
	SlotSnack,
	SlotDinner,
	SlotPostWorkout,
}

// IsValidMealSlot reports whether s is one of the canonical slots.
func IsValidMealSlot(s MealSlot) bool {
	for _, slot := range CanonicalSlots {
		if s == slot {
			return true
		}
	}
	return false
}

// Macros holds the nutritional macro values of a meal or a whole day.
type Macros struct {
	Calories float64 `bson:"calories" json:"calories"`
	Protein  float64 `bson:"protein" json:"protein"`
	Carbs    float64 `bson:"carbs" json:"carbs"`
	Fat      float64 `bson:"fat" json:"fat"`
}

// Add returns the component-wise sum of m and other.
func (m Macros) Add(other Macros) Macros {
	return Macros{
		Calories: m.Calories + other.Calories,
		Protein:  m.Protein + other.Protein,
		Carbs:    m.Carbs + other.Carbs,
		Fat:      m.Fat + other.Fat,
	}
}

// Sub returns the component-wise difference m - other.
func (m Macros) Sub(other Macros) Macros {
	return Macros{
		Calories: m.Calories - other.Calories,
		Protein:  m.Protein - other.Protein,
		Carbs:    m.Carbs - other.Carbs,
		Fat:      m.Fat - other.Fat,
	}
}

// MealEntry is one prescribed meal within a plan, tagged with a slot.
type MealEntry struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name   string             `bson:"name" json:"name"`
	Slot   MealSlot           `bson:"slot" json:"slot"`
	Macros Macros             `bson:"macros" json:"macros"`
}

// Plan is a nutrition prescription owned by a trainer for one client:
// an ordered set of meal entries with macro targets. It is immutable
// except through explicit edits or suggestion-driven changes applied
// by the owner.
type Plan struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID     string             `bson:"ownerId" json:"ownerId"`   // Trainer who owns the plan
	ClientID    string             `bson:"clientId" json:"clientId"` // Client the plan is prescribed for
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Meals       []MealEntry        `bson:"meals" json:"meals"`
	IsActive    bool               `bson:"isActive" json:"isActive"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// TotalMacros sums the macro values of every meal entry in the plan.
func (p *Plan) TotalMacros() Macros {
	var total Macros
	for _, meal := range p.Meals {
		total = total.Add(meal.Macros)
	}
	return total
}

// MacrosForSlot sums the macros of all meals tagged with the given slot.
func (p *Plan) MacrosForSlot(slot MealSlot) Macros {
	var total Macros
	for _, meal := range p.Meals {
		if meal.Slot == slot {
			total = total.Add(meal.Macros)
		}
	}
	return total
}

// IsOwnedBy reports whether the given actor is the plan owner.
func (p *Plan) IsOwnedBy(actorID string) bool {
	return p.OwnerID == actorID
}
