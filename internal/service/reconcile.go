package service

import (
	"alcyxob/diet-collab/internal/domain"
	"errors"
	"fmt"
	"math"
	"time"
)

// --- Error Definitions ---
var (
	ErrPlanHasNoMeals    = errors.New("plan has no meals to reconcile against")
	ErrMissingIntakeData = errors.New("no intake data imported for the requested date")
)

// Calorie deviations beyond this many kcal trigger an over/under
// target finding in the generated analysis.
const calorieDeviationThreshold = 200.0

// clampPercent bounds a compliance score to [0, 100].
func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// percentDiff computes the relative difference of real against plan,
// guarding the zero-plan case.
func percentDiff(plan, diff float64) float64 {
	if plan == 0 {
		return 0
	}
	return diff / plan * 100
}

// calorieCompliance maps a percent difference to the 0-100 score.
func calorieCompliance(pd float64) float64 {
	return clampPercent(100 - math.Abs(pd))
}

// compareMacro builds the plan-vs-real tuple for one macro value.
func compareMacro(plan, real float64) domain.MacroComparison {
	diff := real - plan
	return domain.MacroComparison{
		Plan:        plan,
		Real:        real,
		Diff:        diff,
		PercentDiff: percentDiff(plan, diff),
	}
}

// BuildReconciliation compares a plan snapshot against one day of
// imported intake and produces the full report. Pure apart from the
// caller-supplied generation timestamp: identical inputs yield
// identical numeric results.
func BuildReconciliation(plan *domain.Plan, intake *domain.ImportedIntakeRecord, now time.Time) (*domain.ReconciliationResult, error) {
	if plan == nil || len(plan.Meals) == 0 {
		return nil, ErrPlanHasNoMeals
	}
	if intake == nil {
		return nil, ErrMissingIntakeData
	}

	planMacros := plan.TotalMacros()
	realMacros := intake.ConsumedMacros()

	calDiff := realMacros.Calories - planMacros.Calories
	calPD := percentDiff(planMacros.Calories, calDiff)
	calorieComparison := domain.CalorieComparison{
		Plan:        planMacros.Calories,
		Real:        realMacros.Calories,
		Diff:        calDiff,
		PercentDiff: calPD,
		Compliance:  calorieCompliance(calPD),
	}

	macroComparisons := domain.MacroComparisons{
		Protein: compareMacro(planMacros.Protein, realMacros.Protein),
		Carbs:   compareMacro(planMacros.Carbs, realMacros.Carbs),
		Fat:     compareMacro(planMacros.Fat, realMacros.Fat),
	}

	// Per-slot comparison. Tracking apps only export calories per slot,
	// so the real macro breakdown stays zeroed; consumers rely on this
	// shape.
	perMeal := make([]domain.MealSlotComparison, 0, len(domain.CanonicalSlots))
	for _, slot := range domain.CanonicalSlots {
		slotPlan := plan.MacrosForSlot(slot)
		slotReal := domain.Macros{Calories: intake.CaloriesBySlot[slot]}
		slotDiff := slotReal.Sub(slotPlan)
		slotPD := percentDiff(slotPlan.Calories, slotDiff.Calories)
		perMeal = append(perMeal, domain.MealSlotComparison{
			Slot:       slot,
			Plan:       slotPlan,
			Real:       slotReal,
			Diff:       slotDiff,
			Compliance: calorieCompliance(slotPD),
		})
	}

	symptoms := intake.DigestiveSymptoms
	if symptoms == nil {
		symptoms = []domain.DigestiveSymptom{}
	}

	return &domain.ReconciliationResult{
		PlanID:             plan.ID,
		ClientID:           intake.ClientID,
		Date:               intake.Date,
		CalorieComparison:  calorieComparison,
		MacroComparisons:   macroComparisons,
		PerMealComparisons: perMeal,
		DigestiveSymptoms:  symptoms,
		Analysis:           buildAnalysis(calDiff, symptoms),
		SourceIntakeID:     intake.ID,
		GeneratedAt:        now,
	}, nil
}

// buildAnalysis applies the fixed rule set, in order. Each rule
// appends zero or more findings; the output is fully determined by the
// calorie diff and the symptom count.
func buildAnalysis(calDiff float64, symptoms []domain.DigestiveSymptom) domain.ReconciliationAnalysis {
	analysis := domain.ReconciliationAnalysis{
		Strengths:        []string{},
		ImprovementAreas: []string{},
		Recommendations:  []string{},
		Patterns:         []string{},
	}

	switch {
	case calDiff > calorieDeviationThreshold:
		analysis.ImprovementAreas = append(analysis.ImprovementAreas,
			fmt.Sprintf("Calorie intake was %.0f kcal over the plan target", calDiff))
		analysis.Recommendations = append(analysis.Recommendations,
			"Reduce snack or portion sizes to close the calorie surplus")
	case calDiff < -calorieDeviationThreshold:
		analysis.ImprovementAreas = append(analysis.ImprovementAreas,
			fmt.Sprintf("Calorie intake was %.0f kcal under the plan target", -calDiff))
		analysis.Recommendations = append(analysis.Recommendations,
			"Make sure all planned meals are consumed during the day")
	default:
		analysis.Strengths = append(analysis.Strengths,
			"Calorie adherence is adequate")
	}

	if len(symptoms) > 0 {
		analysis.ImprovementAreas = append(analysis.ImprovementAreas,
			fmt.Sprintf("%d digestive symptom(s) logged on this day", len(symptoms)))
		analysis.Recommendations = append(analysis.Recommendations,
			"Review recently introduced foods for possible intolerances")
	}

	return analysis
}
