// internal/repository/mongo/suggestion_repo.go
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

const suggestionCollectionName = "suggestions"

// mongoSuggestionRepository implements repository.SuggestionRepository
type mongoSuggestionRepository struct {
	collection *mongo.Collection
}

// NewMongoSuggestionRepository creates a new suggestion repository.
func NewMongoSuggestionRepository(db *mongo.Database) repository.SuggestionRepository {
	return &mongoSuggestionRepository{
		collection: db.Collection(suggestionCollectionName),
	}
}

// Create inserts a new suggestion.
func (r *mongoSuggestionRepository) Create(ctx context.Context, suggestion *domain.Suggestion) (primitive.ObjectID, error) {
	if suggestion.PlanID == primitive.NilObjectID || suggestion.CollaboratorID == "" || suggestion.Title == "" {
		return primitive.NilObjectID, errors.New("suggestion requires planId, collaboratorId, and title")
	}
	suggestion.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	suggestion.CreatedAt = now
	suggestion.UpdatedAt = now
	if suggestion.Comments == nil {
		suggestion.Comments = []domain.SuggestionComment{}
	}

	result, err := r.collection.InsertOne(ctx, suggestion)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted suggestion ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single suggestion by its ID.
func (r *mongoSuggestionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Suggestion, error) {
	var suggestion domain.Suggestion
	filter := bson.M{"_id": id}
	err := r.collection.FindOne(ctx, filter).Decode(&suggestion)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &suggestion, nil
}

// ListByPlan retrieves all suggestions for a plan, newest first.
func (r *mongoSuggestionRepository) ListByPlan(ctx context.Context, planID primitive.ObjectID) ([]domain.Suggestion, error) {
	var suggestions []domain.Suggestion
	filter := bson.M{"planId": planID}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &suggestions); err != nil {
		return nil, err
	}
	return suggestions, nil
}

// Transition writes the suggestion's status and decision stamps, but
// only while the stored status still equals fromStatus. Two racing
// transitions on the same suggestion therefore produce exactly one
// winner; the loser gets ErrPreconditionFailed.
func (r *mongoSuggestionRepository) Transition(ctx context.Context, suggestion *domain.Suggestion, fromStatus domain.SuggestionStatus) error {
	if suggestion.ID == primitive.NilObjectID {
		return errors.New("suggestion ID is required for transition")
	}

	filter := bson.M{"_id": suggestion.ID, "status": fromStatus}
	updateDoc := bson.M{
		"$set": bson.M{
			"status":          suggestion.Status,
			"approvedBy":      suggestion.ApprovedBy,
			"approvedByName":  suggestion.ApprovedByName,
			"approvedAt":      suggestion.ApprovedAt,
			"rejectedBy":      suggestion.RejectedBy,
			"rejectedAt":      suggestion.RejectedAt,
			"rejectionReason": suggestion.RejectionReason,
			"appliedBy":       suggestion.AppliedBy,
			"appliedAt":       suggestion.AppliedAt,
			"updatedAt":       time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, updateDoc)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		// Either the suggestion is gone or its status moved under us.
		// Distinguish so the service can report the right failure.
		count, countErr := r.collection.CountDocuments(ctx, bson.M{"_id": suggestion.ID})
		if countErr != nil {
			return countErr
		}
		if count == 0 {
			return repository.ErrNotFound
		}
		return repository.ErrPreconditionFailed
	}
	return nil
}

// AddComment appends one comment to the suggestion's thread. Allowed
// in any status; discussion stays open after resolution.
func (r *mongoSuggestionRepository) AddComment(ctx context.Context, suggestionID primitive.ObjectID, comment domain.SuggestionComment) error {
	filter := bson.M{"_id": suggestionID}
	updateDoc := bson.M{
		"$push": bson.M{"comments": comment},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
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

// RemoveComment pulls one comment out of the thread. Only used to
// compensate an AddComment whose audit append failed.
func (r *mongoSuggestionRepository) RemoveComment(ctx context.Context, suggestionID, commentID primitive.ObjectID) error {
	filter := bson.M{"_id": suggestionID}
	updateDoc := bson.M{
		"$pull": bson.M{"comments": bson.M{"_id": commentID}},
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

// Delete hard-removes a suggestion. Only used to compensate a create
// whose audit append failed.
func (r *mongoSuggestionRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureSuggestionIndexes creates necessary indexes. Call during startup.
func EnsureSuggestionIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "planId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "planId", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "collaboratorId", Value: 1}},
			Options: options.Index(),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
