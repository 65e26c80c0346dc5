package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/RishiKendai/graphsim/internal/models"
)

const reportsCollection = "evaluation_reports"

type ReportsRepository struct {
	mongoRepo *MongoRepository
}

func NewReportsRepository(mongoRepo *MongoRepository) *ReportsRepository {
	return &ReportsRepository{
		mongoRepo: mongoRepo,
	}
}

// UpsertReport writes the report keyed by its run id
func (r *ReportsRepository) UpsertReport(ctx context.Context, report *models.EvaluationReport) error {
	if err := r.mongoRepo.ReplaceOne(ctx, reportsCollection, bson.M{"_id": report.RunID}, report); err != nil {
		return fmt.Errorf("failed to upsert evaluation report: %w", err)
	}
	return nil
}

func (r *ReportsRepository) GetReport(ctx context.Context, runID string) (*models.EvaluationReport, error) {
	var report models.EvaluationReport
	err := r.mongoRepo.FindOne(ctx, reportsCollection, bson.M{"_id": runID}).Decode(&report)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find evaluation report: %w", err)
	}
	return &report, nil
}
