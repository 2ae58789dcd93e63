// internal/repository/mongo/intake_repo.go
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

const intakeCollectionName = "intake_records"

// mongoIntakeRepository implements repository.IntakeRepository
type mongoIntakeRepository struct {
	collection *mongo.Collection
}

// NewMongoIntakeRepository creates a new intake record repository.
func NewMongoIntakeRepository(db *mongo.Database) repository.IntakeRepository {
	return &mongoIntakeRepository{
		collection: db.Collection(intakeCollectionName),
	}
}

// Create inserts a new imported intake record. Re-imports for the same
// date append; they never replace earlier records.
func (r *mongoIntakeRepository) Create(ctx context.Context, record *domain.ImportedIntakeRecord) (primitive.ObjectID, error) {
	if record.PlanID == primitive.NilObjectID || record.ClientID == "" || record.Date == "" {
		return primitive.NilObjectID, errors.New("intake record requires planId, clientId, and date")
	}
	record.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	if record.ImportedAt.IsZero() {
		record.ImportedAt = now
	}
	record.CreatedAt = now

	result, err := r.collection.InsertOne(ctx, record)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted intake record ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single intake record by its ID.
func (r *mongoIntakeRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ImportedIntakeRecord, error) {
	var record domain.ImportedIntakeRecord
	filter := bson.M{"_id": id}
	err := r.collection.FindOne(ctx, filter).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// LatestByPlanAndDate retrieves the most recently imported record for
// a plan and day. Later imports win at read time.
func (r *mongoIntakeRepository) LatestByPlanAndDate(ctx context.Context, planID primitive.ObjectID, date string) (*domain.ImportedIntakeRecord, error) {
	var record domain.ImportedIntakeRecord
	filter := bson.M{"planId": planID, "date": date}
	findOptions := options.FindOne().SetSort(bson.D{{Key: "importedAt", Value: -1}})
	err := r.collection.FindOne(ctx, filter, findOptions).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// ListByPlan retrieves all imported records for a plan, newest first.
func (r *mongoIntakeRepository) ListByPlan(ctx context.Context, planID primitive.ObjectID) ([]domain.ImportedIntakeRecord, error) {
	var records []domain.ImportedIntakeRecord
	filter := bson.M{"planId": planID}
	findOptions := options.Find().SetSort(bson.D{{Key: "importedAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// EnsureIntakeIndexes creates necessary indexes. Call during startup.
func EnsureIntakeIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// Main lookup: latest record for a plan and day
			Keys:    bson.D{{Key: "planId", Value: 1}, {Key: "date", Value: 1}, {Key: "importedAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "clientId", Value: 1}},
			Options: options.Index(),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
