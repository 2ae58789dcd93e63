// internal/repository/mongo/reconciliation_repo.go
package mongo

import (
	"alcyxob/diet-collab/internal/domain"
	"alcyxob/diet-collab/internal/repository"
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const reconciliationCollectionName = "reconciliation_results"

// mongoReconciliationRepository implements repository.ReconciliationRepository
type mongoReconciliationRepository struct {
	collection *mongo.Collection
}

// NewMongoReconciliationRepository creates a new reconciliation history repository.
func NewMongoReconciliationRepository(db *mongo.Database) repository.ReconciliationRepository {
	return &mongoReconciliationRepository{
		collection: db.Collection(reconciliationCollectionName),
	}
}

// Create appends one generated result to the plan's history. Repeat
// comparisons for the same day append; nothing is overwritten.
func (r *mongoReconciliationRepository) Create(ctx context.Context, result *domain.ReconciliationResult) (primitive.ObjectID, error) {
	if result.PlanID == primitive.NilObjectID || result.Date == "" {
		return primitive.NilObjectID, errors.New("reconciliation result requires planId and date")
	}
	result.ID = primitive.NewObjectID()

	insertResult, err := r.collection.InsertOne(ctx, result)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := insertResult.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted result ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single result by its ID.
func (r *mongoReconciliationRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ReconciliationResult, error) {
	var result domain.ReconciliationResult
	filter := bson.M{"_id": id}
	err := r.collection.FindOne(ctx, filter).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

// ListByPlan retrieves the reconciliation history of a plan, newest first.
func (r *mongoReconciliationRepository) ListByPlan(ctx context.Context, planID primitive.ObjectID) ([]domain.ReconciliationResult, error) {
	var results []domain.ReconciliationResult
	filter := bson.M{"planId": planID}
	findOptions := options.Find().SetSort(bson.D{{Key: "generatedAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// Delete removes a single result from the history.
func (r *mongoReconciliationRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureReconciliationIndexes creates necessary indexes. Call during startup.
func EnsureReconciliationIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "planId", Value: 1}, {Key: "generatedAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "planId", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index(),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
