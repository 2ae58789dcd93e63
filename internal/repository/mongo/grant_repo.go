// internal/repository/mongo/grant_repo.go
package mongo

import (
	"alcyxob/diet-collab/internal/domain"
	"alcyxob/diet-collab/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const grantCollectionName = "permission_grants"

// mongoGrantRepository implements repository.GrantRepository
type mongoGrantRepository struct {
	collection *mongo.Collection
}

// NewMongoGrantRepository creates a new permission grant repository.
func NewMongoGrantRepository(db *mongo.Database) repository.GrantRepository {
	return &mongoGrantRepository{
		collection: db.Collection(grantCollectionName),
	}
}

// Create inserts a new permission grant.
func (r *mongoGrantRepository) Create(ctx context.Context, grant *domain.PermissionGrant) (primitive.ObjectID, error) {
	if grant.PlanID == primitive.NilObjectID || grant.CollaboratorID == "" {
		return primitive.NilObjectID, errors.New("grant requires planId and collaboratorId")
	}
	grant.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	grant.GrantedAt = now
	grant.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, grant)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted grant ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single grant by its ID, active or not.
func (r *mongoGrantRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.PermissionGrant, error) {
	var grant domain.PermissionGrant
	filter := bson.M{"_id": id}
	err := r.collection.FindOne(ctx, filter).Decode(&grant)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &grant, nil
}

// GetByPlanAndCollaborator retrieves the active grant for a
// collaborator on a plan.
func (r *mongoGrantRepository) GetByPlanAndCollaborator(ctx context.Context, planID primitive.ObjectID, collaboratorID string) (*domain.PermissionGrant, error) {
	var grant domain.PermissionGrant
	filter := bson.M{
		"planId":         planID,
		"collaboratorId": collaboratorID,
		"active":         true,
	}
	// Newest grant wins when a collaborator was re-granted after a revoke
	findOptions := options.FindOne().SetSort(bson.D{{Key: "grantedAt", Value: -1}})
	err := r.collection.FindOne(ctx, filter, findOptions).Decode(&grant)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &grant, nil
}

// ListActiveByPlan retrieves all active grants for a plan.
func (r *mongoGrantRepository) ListActiveByPlan(ctx context.Context, planID primitive.ObjectID) ([]domain.PermissionGrant, error) {
	var grants []domain.PermissionGrant
	filter := bson.M{"planId": planID, "active": true}
	findOptions := options.Find().SetSort(bson.D{{Key: "grantedAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &grants); err != nil {
		return nil, err
	}
	return grants, nil
}

// Update replaces the mutable fields of a grant. PlanID,
// CollaboratorID, GrantedBy and GrantedAt are never rewritten.
func (r *mongoGrantRepository) Update(ctx context.Context, grant *domain.PermissionGrant) error {
	if grant.ID == primitive.NilObjectID {
		return errors.New("grant ID is required for update")
	}

	filter := bson.M{"_id": grant.ID}
	updateDoc := bson.M{
		"$set": bson.M{
			"collaboratorName":  grant.CollaboratorName,
			"collaboratorEmail": grant.CollaboratorEmail,
			"grantType":         grant.GrantType,
			"capabilities":      grant.Capabilities,
			"restrictions":      grant.Restrictions,
			"active":            grant.Active,
			"validFrom":         grant.ValidFrom,
			"validUntil":        grant.ValidUntil,
			"updatedAt":         time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, updateDoc)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete hard-removes a grant. Only used to compensate a create whose
// audit append failed; normal revocation soft-deletes via Update.
func (r *mongoGrantRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureGrantIndexes creates necessary indexes. Call during startup.
func EnsureGrantIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// Main lookup: the active grant of a collaborator on a plan
			Keys:    bson.D{{Key: "planId", Value: 1}, {Key: "collaboratorId", Value: 1}, {Key: "active", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "planId", Value: 1}, {Key: "active", Value: 1}},
			Options: options.Index(),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
