// Package mongo provides the MongoDB implementation of the sync-log store.
package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matteobad/badget-sync/internal/domain/synclog"
)

// SyncLogCollectionName is the name of the sync log collection in MongoDB
const SyncLogCollectionName = "sync_runs"

// SyncLogRepository implements the synclog.Repository interface for MongoDB
type SyncLogRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewSyncLogRepository creates a new MongoDB sync log repository
func NewSyncLogRepository(logger *slog.Logger, db *mongo.Database) synclog.Repository {
	return &SyncLogRepository{
		db:     db,
		logger: logger,
	}
}

// Record appends one run entry to the log
func (r *SyncLogRepository) Record(ctx context.Context, entry *synclog.Entry) error {
	collection := r.db.Collection(SyncLogCollectionName)

	if _, err := collection.InsertOne(ctx, entry); err != nil {
		r.logger.Error("Failed to record sync run",
			"organization_id", entry.OrganizationID.String(),
			"kind", string(entry.Kind),
			"error", err)
		return fmt.Errorf("failed to record sync run: %w", err)
	}

	return nil
}

// ListByOrganization returns the organization's most recent runs
func (r *SyncLogRepository) ListByOrganization(ctx context.Context, organizationID uuid.UUID, limit int) ([]*synclog.Entry, error) {
	collection := r.db.Collection(SyncLogCollectionName)

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, bson.M{"organization_id": organizationID}, opts)
	if err != nil {
		r.logger.Error("Failed to list sync runs",
			"organization_id", organizationID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*synclog.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode sync runs: %w", err)
	}

	return entries, nil
}
