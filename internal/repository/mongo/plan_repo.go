// internal/repository/mongo/plan_repo.go
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

const planCollectionName = "plans"

// mongoPlanRepository implements repository.PlanRepository
type mongoPlanRepository struct {
	collection *mongo.Collection
}

// NewMongoPlanRepository creates a new plan repository.
func NewMongoPlanRepository(db *mongo.Database) repository.PlanRepository {
	return &mongoPlanRepository{
		collection: db.Collection(planCollectionName),
	}
}

// Create inserts a new nutrition plan.
func (r *mongoPlanRepository) Create(ctx context.Context, plan *domain.Plan) (primitive.ObjectID, error) {
	if plan.OwnerID == "" || plan.ClientID == "" || plan.Name == "" {
		return primitive.NilObjectID, errors.New("plan requires ownerId, clientId, and name")
	}
	plan.ID = primitive.NewObjectID()
	for i := range plan.Meals {
		if plan.Meals[i].ID.IsZero() {
			plan.Meals[i].ID = primitive.NewObjectID()
		}
	}
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, plan)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted plan ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single plan by its ID.
func (r *mongoPlanRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Plan, error) {
	var plan domain.Plan
	filter := bson.M{"_id": id}
	err := r.collection.FindOne(ctx, filter).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// GetByOwnerID retrieves all plans owned by a trainer, newest first.
func (r *mongoPlanRepository) GetByOwnerID(ctx context.Context, ownerID string) ([]domain.Plan, error) {
	var plans []domain.Plan
	filter := bson.M{"ownerId": ownerID}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	// Empty slice when the owner has no plans (not an error)
	return plans, nil
}

// UpdateMeals replaces the plan's meal entries. Ownership checks are
// the service layer's job; this only requires the plan to exist.
func (r *mongoPlanRepository) UpdateMeals(ctx context.Context, id primitive.ObjectID, meals []domain.MealEntry) error {
	if id == primitive.NilObjectID {
		return errors.New("plan ID is required for update")
	}
	for i := range meals {
		if meals[i].ID.IsZero() {
			meals[i].ID = primitive.NewObjectID()
		}
	}

	filter := bson.M{"_id": id}
	updateDoc := bson.M{
		"$set": bson.M{
			"meals":     meals,
			"updatedAt": time.Now().UTC(),
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

// EnsurePlanIndexes creates necessary indexes. Call during startup.
func EnsurePlanIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "ownerId", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "clientId", Value: 1}, {Key: "isActive", Value: 1}},
			Options: options.Index(),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
