package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/RishiKendai/graphsim/internal/models"
)

const comparisonsCollection = "comparisons"

type ComparisonsRepository struct {
	mongoRepo *MongoRepository
}

func NewComparisonsRepository(mongoRepo *MongoRepository) *ComparisonsRepository {
	return &ComparisonsRepository{
		mongoRepo: mongoRepo,
	}
}

func (r *ComparisonsRepository) InsertComparison(ctx context.Context, result *models.ComparisonResult) error {
	if err := r.mongoRepo.InsertOne(ctx, comparisonsCollection, result); err != nil {
		return fmt.Errorf("failed to insert comparison: %w", err)
	}
	return nil
}

// GetComparison returns nil, nil when no comparison has the id
func (r *ComparisonsRepository) GetComparison(ctx context.Context, id string) (*models.ComparisonResult, error) {
	var result models.ComparisonResult
	err := r.mongoRepo.FindOne(ctx, comparisonsCollection, bson.M{"_id": id}).Decode(&result)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find comparison: %w", err)
	}
	return &result, nil
}

// RecentComparisons returns up to limit comparisons, newest first
func (r *ComparisonsRepository) RecentComparisons(ctx context.Context, limit int64) ([]models.ComparisonResult, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(limit)

	cursor, err := r.mongoRepo.FindMany(ctx, comparisonsCollection, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list comparisons: %w", err)
	}
	defer cursor.Close(ctx)

	results := make([]models.ComparisonResult, 0)
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode comparisons: %w", err)
	}
	return results, nil
}
