package service

import (
	"alcyxob/diet-collab/internal/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testPlan() *domain.Plan {
	return &domain.Plan{
		ID:       primitive.NewObjectID(),
		OwnerID:  ownerID,
		ClientID: "client-1",
		Meals: []domain.MealEntry{
			{Name: "Oats", Slot: domain.SlotBreakfast, Macros: domain.Macros{Calories: 500, Protein: 30, Carbs: 70, Fat: 12}},
			{Name: "Chicken and rice", Slot: domain.SlotLunch, Macros: domain.Macros{Calories: 800, Protein: 70, Carbs: 90, Fat: 24}},
			{Name: "Salmon", Slot: domain.SlotDinner, Macros: domain.Macros{Calories: 700, Protein: 50, Carbs: 40, Fat: 24}},
		},
	}
}

func testIntake(planID primitive.ObjectID, calories float64) *domain.ImportedIntakeRecord {
	return &domain.ImportedIntakeRecord{
		ID:            primitive.NewObjectID(),
		PlanID:        planID,
		ClientID:      "client-1",
		SourceApp:     domain.SourceMyFitnessPal,
		Date:          "2026-03-15",
		CaloriesTotal: calories,
		Macros:        &domain.Macros{Calories: calories, Protein: 140, Carbs: 190, Fat: 55},
	}
}

func TestBuildReconciliation_CalorieNumbers(t *testing.T) {
	plan := testPlan() // totals 2000 kcal
	intake := testIntake(plan.ID, 1850)
	now := time.Date(2026, 3, 16, 8, 0, 0, 0, time.UTC)

	result, err := BuildReconciliation(plan, intake, now)
	require.NoError(t, err)

	cc := result.CalorieComparison
	assert.Equal(t, 2000.0, cc.Plan)
	assert.Equal(t, 1850.0, cc.Real)
	assert.Equal(t, -150.0, cc.Diff)
	assert.InDelta(t, -7.5, cc.PercentDiff, 1e-9)
	assert.InDelta(t, 92.5, cc.Compliance, 1e-9)

	assert.Equal(t, plan.ID, result.PlanID)
	assert.Equal(t, intake.ID, result.SourceIntakeID)
	assert.Equal(t, "2026-03-15", result.Date)
	assert.Equal(t, now, result.GeneratedAt)
}

func TestBuildReconciliation_MacroComparisons(t *testing.T) {
	plan := testPlan() // protein 150, carbs 200, fat 60
	intake := testIntake(plan.ID, 1850)

	result, err := BuildReconciliation(plan, intake, time.Now().UTC())
	require.NoError(t, err)

	mc := result.MacroComparisons
	assert.Equal(t, -10.0, mc.Protein.Diff)
	assert.InDelta(t, -10.0/150.0*100, mc.Protein.PercentDiff, 1e-9)
	assert.Equal(t, -10.0, mc.Carbs.Diff)
	assert.Equal(t, -5.0, mc.Fat.Diff)
}

func TestBuildReconciliation_PerSlot(t *testing.T) {
	plan := testPlan()
	intake := testIntake(plan.ID, 1850)
	intake.CaloriesBySlot = map[domain.MealSlot]float64{
		domain.SlotBreakfast: 450,
		domain.SlotLunch:     800,
		domain.SlotDinner:    600,
	}

	result, err := BuildReconciliation(plan, intake, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, result.PerMealComparisons, len(domain.CanonicalSlots))

	bySlot := make(map[domain.MealSlot]domain.MealSlotComparison)
	for _, c := range result.PerMealComparisons {
		bySlot[c.Slot] = c
	}

	breakfast := bySlot[domain.SlotBreakfast]
	assert.Equal(t, 500.0, breakfast.Plan.Calories)
	assert.Equal(t, 450.0, breakfast.Real.Calories)
	assert.Equal(t, -50.0, breakfast.Diff.Calories)
	assert.InDelta(t, 90.0, breakfast.Compliance, 1e-9)

	lunch := bySlot[domain.SlotLunch]
	assert.InDelta(t, 100.0, lunch.Compliance, 1e-9)

	// Slot-level real macros carry calories only.
	assert.Zero(t, breakfast.Real.Protein)
	assert.Zero(t, breakfast.Real.Carbs)
	assert.Zero(t, breakfast.Real.Fat)

	// Unplanned, untracked slots compare zero against zero.
	snack := bySlot[domain.SlotSnack]
	assert.Zero(t, snack.Plan.Calories)
	assert.Zero(t, snack.Real.Calories)
}

func TestBuildReconciliation_AnalysisOverTarget(t *testing.T) {
	plan := testPlan()
	intake := testIntake(plan.ID, 2350) // +350 kcal

	result, err := BuildReconciliation(plan, intake, time.Now().UTC())
	require.NoError(t, err)

	a := result.Analysis
	assert.Empty(t, a.Strengths)
	require.Len(t, a.ImprovementAreas, 1)
	assert.Contains(t, a.ImprovementAreas[0], "350 kcal over")
	require.Len(t, a.Recommendations, 1)
	assert.Contains(t, a.Recommendations[0], "calorie surplus")
}

func TestBuildReconciliation_AnalysisUnderTarget(t *testing.T) {
	plan := testPlan()
	intake := testIntake(plan.ID, 1600) // -400 kcal

	result, err := BuildReconciliation(plan, intake, time.Now().UTC())
	require.NoError(t, err)

	a := result.Analysis
	require.Len(t, a.ImprovementAreas, 1)
	assert.Contains(t, a.ImprovementAreas[0], "400 kcal under")
	assert.Contains(t, a.Recommendations[0], "planned meals are consumed")
}

func TestBuildReconciliation_AnalysisWithinThreshold(t *testing.T) {
	plan := testPlan()
	// Exactly at the 200 kcal boundary: still adequate.
	intake := testIntake(plan.ID, 2200)

	result, err := BuildReconciliation(plan, intake, time.Now().UTC())
	require.NoError(t, err)

	a := result.Analysis
	require.Len(t, a.Strengths, 1)
	assert.Equal(t, "Calorie adherence is adequate", a.Strengths[0])
	assert.Empty(t, a.ImprovementAreas)
}

func TestBuildReconciliation_AnalysisSymptoms(t *testing.T) {
	plan := testPlan()
	intake := testIntake(plan.ID, 1950)
	intake.DigestiveSymptoms = []domain.DigestiveSymptom{
		{ID: "s1", Type: domain.SymptomBloating, Intensity: "moderate", Date: "2026-03-15"},
		{ID: "s2", Type: domain.SymptomNausea, Intensity: "mild", Date: "2026-03-15"},
	}

	result, err := BuildReconciliation(plan, intake, time.Now().UTC())
	require.NoError(t, err)

	a := result.Analysis
	assert.Len(t, a.Strengths, 1)
	require.Len(t, a.ImprovementAreas, 1)
	assert.Contains(t, a.ImprovementAreas[0], "2 digestive symptom(s)")
	assert.Contains(t, a.Recommendations[0], "intolerances")
	assert.Len(t, result.DigestiveSymptoms, 2)
}

func TestBuildReconciliation_ComplianceBounds(t *testing.T) {
	plan := testPlan()

	// Eating triple the plan cannot push compliance below zero.
	result, err := BuildReconciliation(plan, testIntake(plan.ID, 6000), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.CalorieComparison.Compliance)

	// Perfect adherence caps at 100.
	result, err = BuildReconciliation(plan, testIntake(plan.ID, 2000), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 100.0, result.CalorieComparison.Compliance)
}

func TestBuildReconciliation_DegradedMode(t *testing.T) {
	plan := testPlan()
	intake := testIntake(plan.ID, 1850)
	intake.Macros = nil // calories-only export

	result, err := BuildReconciliation(plan, intake, time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, 1850.0, result.CalorieComparison.Real)
	assert.Equal(t, 0.0, result.MacroComparisons.Protein.Real)
	assert.Equal(t, -150.0, result.MacroComparisons.Protein.Diff)
}

func TestBuildReconciliation_DegradedModeSlotSum(t *testing.T) {
	plan := testPlan()

	// Importer exported per-slot calories only: no macro breakdown and
	// no declared day total. The slot sum is the consumed total.
	intake := &domain.ImportedIntakeRecord{
		ID:        primitive.NewObjectID(),
		PlanID:    plan.ID,
		ClientID:  "client-1",
		SourceApp: domain.SourceCronometer,
		Date:      "2026-03-15",
		CaloriesBySlot: map[domain.MealSlot]float64{
			domain.SlotBreakfast: 500,
			domain.SlotLunch:     700,
			domain.SlotDinner:    600,
		},
	}

	result, err := BuildReconciliation(plan, intake, time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, 1800.0, result.CalorieComparison.Real)
	assert.Equal(t, -200.0, result.CalorieComparison.Diff)
	assert.InDelta(t, 90.0, result.CalorieComparison.Compliance, 1e-9)
}

func TestBuildReconciliation_Deterministic(t *testing.T) {
	plan := testPlan()
	intake := testIntake(plan.ID, 1850)
	now := time.Date(2026, 3, 16, 8, 0, 0, 0, time.UTC)

	first, err := BuildReconciliation(plan, intake, now)
	require.NoError(t, err)
	second, err := BuildReconciliation(plan, intake, now)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuildReconciliation_Errors(t *testing.T) {
	plan := testPlan()

	_, err := BuildReconciliation(&domain.Plan{}, testIntake(primitive.NilObjectID, 1000), time.Now().UTC())
	assert.ErrorIs(t, err, ErrPlanHasNoMeals)

	_, err = BuildReconciliation(nil, testIntake(primitive.NilObjectID, 1000), time.Now().UTC())
	assert.ErrorIs(t, err, ErrPlanHasNoMeals)

	_, err = BuildReconciliation(plan, nil, time.Now().UTC())
	assert.ErrorIs(t, err, ErrMissingIntakeData)
}

func TestPercentDiff_ZeroPlan(t *testing.T) {
	assert.Equal(t, 0.0, percentDiff(0, 500))
	assert.InDelta(t, 25.0, percentDiff(2000, 500), 1e-9)
}
