package service

import (
	"alcyxob/diet-collab/internal/domain"
	"alcyxob/diet-collab/internal/repository"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory fakes for the repository and storage interfaces. Error
// fields, when set, make the corresponding call fail so compensation
// paths can be driven.

type fakePlanRepo struct {
	plans     map[primitive.ObjectID]*domain.Plan
	createErr error
	updateErr error
}

func newFakePlanRepo() *fakePlanRepo {
	return &fakePlanRepo{plans: make(map[primitive.ObjectID]*domain.Plan)}
}

func (f *fakePlanRepo) Create(_ context.Context, plan *domain.Plan) (primitive.ObjectID, error) {
	if f.createErr != nil {
		return primitive.NilObjectID, f.createErr
	}
	id := primitive.NewObjectID()
	stored := *plan
	stored.ID = id
	for i := range stored.Meals {
		if stored.Meals[i].ID.IsZero() {
			stored.Meals[i].ID = primitive.NewObjectID()
		}
	}
	stored.CreatedAt = time.Now().UTC()
	f.plans[id] = &stored
	return id, nil
}

func (f *fakePlanRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Plan, error) {
	plan, ok := f.plans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *plan
	return &copied, nil
}

func (f *fakePlanRepo) GetByOwnerID(_ context.Context, ownerID string) ([]domain.Plan, error) {
	var out []domain.Plan
	for _, p := range f.plans {
		if p.OwnerID == ownerID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePlanRepo) UpdateMeals(_ context.Context, id primitive.ObjectID, meals []domain.MealEntry) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	plan, ok := f.plans[id]
	if !ok {
		return repository.ErrNotFound
	}
	for i := range meals {
		if meals[i].ID.IsZero() {
			meals[i].ID = primitive.NewObjectID()
		}
	}
	plan.Meals = meals
	plan.UpdatedAt = time.Now().UTC()
	return nil
}

type fakeGrantRepo struct {
	grants    map[primitive.ObjectID]*domain.PermissionGrant
	createErr error
	updateErr error
	deleted   []primitive.ObjectID
}

func newFakeGrantRepo() *fakeGrantRepo {
	return &fakeGrantRepo{grants: make(map[primitive.ObjectID]*domain.PermissionGrant)}
}

func (f *fakeGrantRepo) Create(_ context.Context, grant *domain.PermissionGrant) (primitive.ObjectID, error) {
	if f.createErr != nil {
		return primitive.NilObjectID, f.createErr
	}
	id := primitive.NewObjectID()
	stored := *grant
	stored.ID = id
	stored.GrantedAt = time.Now().UTC()
	f.grants[id] = &stored
	return id, nil
}

func (f *fakeGrantRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.PermissionGrant, error) {
	grant, ok := f.grants[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *grant
	return &copied, nil
}

func (f *fakeGrantRepo) GetByPlanAndCollaborator(_ context.Context, planID primitive.ObjectID, collaboratorID string) (*domain.PermissionGrant, error) {
	var latest *domain.PermissionGrant
	for _, g := range f.grants {
		if g.PlanID == planID && g.CollaboratorID == collaboratorID && g.Active {
			if latest == nil || g.GrantedAt.After(latest.GrantedAt) {
				latest = g
			}
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

func (f *fakeGrantRepo) ListActiveByPlan(_ context.Context, planID primitive.ObjectID) ([]domain.PermissionGrant, error) {
	var out []domain.PermissionGrant
	for _, g := range f.grants {
		if g.PlanID == planID && g.Active {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (f *fakeGrantRepo) Update(_ context.Context, grant *domain.PermissionGrant) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.grants[grant.ID]; !ok {
		return repository.ErrNotFound
	}
	stored := *grant
	f.grants[grant.ID] = &stored
	return nil
}

func (f *fakeGrantRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, ok := f.grants[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.grants, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeAuditRepo struct {
	records   []domain.AuditRecord
	appendErr error
}

func (f *fakeAuditRepo) Append(_ context.Context, record *domain.AuditRecord) (primitive.ObjectID, error) {
	if f.appendErr != nil {
		return primitive.NilObjectID, f.appendErr
	}
	id := primitive.NewObjectID()
	stored := *record
	stored.ID = id
	f.records = append(f.records, stored)
	return id, nil
}

func (f *fakeAuditRepo) ListByPlan(_ context.Context, planID primitive.ObjectID) ([]domain.AuditRecord, error) {
	var out []domain.AuditRecord
	for i := len(f.records) - 1; i >= 0; i-- {
		if f.records[i].PlanID == planID {
			out = append(out, f.records[i])
		}
	}
	return out, nil
}

type fakeSuggestionRepo struct {
	suggestions   map[primitive.ObjectID]*domain.Suggestion
	transitionErr error
	deleted       []primitive.ObjectID
}

func newFakeSuggestionRepo() *fakeSuggestionRepo {
	return &fakeSuggestionRepo{suggestions: make(map[primitive.ObjectID]*domain.Suggestion)}
}

func (f *fakeSuggestionRepo) Create(_ context.Context, suggestion *domain.Suggestion) (primitive.ObjectID, error) {
	id := primitive.NewObjectID()
	stored := *suggestion
	stored.ID = id
	stored.CreatedAt = time.Now().UTC()
	f.suggestions[id] = &stored
	return id, nil
}

func (f *fakeSuggestionRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Suggestion, error) {
	s, ok := f.suggestions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (f *fakeSuggestionRepo) ListByPlan(_ context.Context, planID primitive.ObjectID) ([]domain.Suggestion, error) {
	var out []domain.Suggestion
	for _, s := range f.suggestions {
		if s.PlanID == planID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSuggestionRepo) Transition(_ context.Context, suggestion *domain.Suggestion, fromStatus domain.SuggestionStatus) error {
	if f.transitionErr != nil {
		return f.transitionErr
	}
	stored, ok := f.suggestions[suggestion.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Status != fromStatus {
		return repository.ErrPreconditionFailed
	}
	copied := *suggestion
	copied.Comments = stored.Comments
	f.suggestions[suggestion.ID] = &copied
	return nil
}

func (f *fakeSuggestionRepo) AddComment(_ context.Context, suggestionID primitive.ObjectID, comment domain.SuggestionComment) error {
	stored, ok := f.suggestions[suggestionID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Comments = append(stored.Comments, comment)
	return nil
}

func (f *fakeSuggestionRepo) RemoveComment(_ context.Context, suggestionID, commentID primitive.ObjectID) error {
	stored, ok := f.suggestions[suggestionID]
	if !ok {
		return repository.ErrNotFound
	}
	kept := stored.Comments[:0]
	for _, c := range stored.Comments {
		if c.ID != commentID {
			kept = append(kept, c)
		}
	}
	stored.Comments = kept
	return nil
}

func (f *fakeSuggestionRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, ok := f.suggestions[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.suggestions, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeIntakeRepo struct {
	records []domain.ImportedIntakeRecord
}

func (f *fakeIntakeRepo) Create(_ context.Context, record *domain.ImportedIntakeRecord) (primitive.ObjectID, error) {
	id := primitive.NewObjectID()
	stored := *record
	stored.ID = id
	f.records = append(f.records, stored)
	return id, nil
}

func (f *fakeIntakeRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.ImportedIntakeRecord, error) {
	for _, r := range f.records {
		if r.ID == id {
			copied := r
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeIntakeRepo) LatestByPlanAndDate(_ context.Context, planID primitive.ObjectID, date string) (*domain.ImportedIntakeRecord, error) {
	// Records append in import order; the last match wins.
	for i := len(f.records) - 1; i >= 0; i-- {
		if f.records[i].PlanID == planID && f.records[i].Date == date {
			copied := f.records[i]
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeIntakeRepo) ListByPlan(_ context.Context, planID primitive.ObjectID) ([]domain.ImportedIntakeRecord, error) {
	var out []domain.ImportedIntakeRecord
	for _, r := range f.records {
		if r.PlanID == planID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeReconciliationRepo struct {
	results   map[primitive.ObjectID]*domain.ReconciliationResult
	createErr error
}

func newFakeReconciliationRepo() *fakeReconciliationRepo {
	return &fakeReconciliationRepo{results: make(map[primitive.ObjectID]*domain.ReconciliationResult)}
}

func (f *fakeReconciliationRepo) Create(_ context.Context, result *domain.ReconciliationResult) (primitive.ObjectID, error) {
	if f.createErr != nil {
		return primitive.NilObjectID, f.createErr
	}
	id := primitive.NewObjectID()
	stored := *result
	stored.ID = id
	f.results[id] = &stored
	return id, nil
}

func (f *fakeReconciliationRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.ReconciliationResult, error) {
	r, ok := f.results[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *r
	return &copied, nil
}

func (f *fakeReconciliationRepo) ListByPlan(_ context.Context, planID primitive.ObjectID) ([]domain.ReconciliationResult, error) {
	var out []domain.ReconciliationResult
	for _, r := range f.results {
		if r.PlanID == planID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeReconciliationRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, ok := f.results[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.results, id)
	return nil
}

type fakeArchive struct {
	stored    map[string][]byte
	storeErr  error
	deleteErr error
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{stored: make(map[string][]byte)}
}

func (f *fakeArchive) StoreReport(_ context.Context, objectKey string, payload []byte, _ string) error {
	if f.storeErr != nil {
		return f.storeErr
	}
	f.stored[objectKey] = payload
	return nil
}

func (f *fakeArchive) GeneratePresignedDownloadURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	return "https://archive.example.com/" + objectKey, nil
}

func (f *fakeArchive) DeleteObject(_ context.Context, objectKey string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.stored, objectKey)
	return nil
}
