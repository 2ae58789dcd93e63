// internal/repository/mongo/audit_repo.go
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

const auditCollectionName = "audit_records"

// mongoAuditRepository implements repository.AuditRepository
type mongoAuditRepository struct {
	collection *mongo.Collection
}

// NewMongoAuditRepository creates a new audit trail repository.
func NewMongoAuditRepository(db *mongo.Database) repository.AuditRepository {
	return &mongoAuditRepository{
		collection: db.Collection(auditCollectionName),
	}
}

// Append inserts one audit record. There are no update or delete
// operations on this collection; the trail is append-only.
func (r *mongoAuditRepository) Append(ctx context.Context, record *domain.AuditRecord) (primitive.ObjectID, error) {
	if record.PlanID == primitive.NilObjectID || record.Action == "" || record.PerformedBy == "" {
		return primitive.NilObjectID, errors.New("audit record requires planId, action, and performedBy")
	}
	record.ID = primitive.NewObjectID()
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	result, err := r.collection.InsertOne(ctx, record)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted audit record ID")
	}
	return insertedID, nil
}

// ListByPlan retrieves the audit history of a plan, newest first.
func (r *mongoAuditRepository) ListByPlan(ctx context.Context, planID primitive.ObjectID) ([]domain.AuditRecord, error) {
	var records []domain.AuditRecord
	filter := bson.M{"planId": planID}
	findOptions := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})

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

// EnsureAuditIndexes creates necessary indexes. Call during startup.
func EnsureAuditIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "planId", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "collaboratorId", Value: 1}},
			Options: options.Index(),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
