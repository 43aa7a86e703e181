package persistence

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"social-scheduler/domain/model"
	"social-scheduler/domain/repository"
	"social-scheduler/infrastructure/logger"
)

const (
	historyDatabase   = "social_scheduler"
	historyCollection = "posting_history"
)

// PostingHistoryRepository archives publish outcomes in MongoDB. A nil client
// turns every method into a no-op so dispatch keeps working without Mongo.
type PostingHistoryRepository struct {
	mongoDb *mongo.Client
}

func NewPostingHistoryRepository(db *mongo.Client) repository.IPostingHistory {
	return &PostingHistoryRepository{mongoDb: db}
}

func (r *PostingHistoryRepository) collection() *mongo.Collection {
	return r.mongoDb.Database(historyDatabase).Collection(historyCollection)
}

func (r *PostingHistoryRepository) Append(ctx context.Context, entry *model.PostingHistoryEntry) error {
	if r.mongoDb == nil {
		logger.GetLogger().Debug("MongoDB client is nil - skipping history append")
		return nil
	}
	if entry.PostedAt.IsZero() {
		entry.PostedAt = time.Now().UTC()
	}
	_, err := r.collection().InsertOne(ctx, entry)
	return err
}

func (r *PostingHistoryRepository) CountByPlatform(ctx context.Context, platform, status string, since time.Time) (int64, error) {
	if r.mongoDb == nil {
		return 0, nil
	}
	filter := bson.D{
		{Key: "platform", Value: platform},
		{Key: "posted_at", Value: bson.D{{Key: "$gte", Value: since}}},
	}
	if status != "" {
		filter = append(filter, bson.E{Key: "status", Value: status})
	}
	return r.collection().CountDocuments(ctx, filter)
}

func (r *PostingHistoryRepository) Recent(ctx context.Context, platform string, limit int) ([]model.PostingHistoryEntry, error) {
	if r.mongoDb == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	filter := bson.D{}
	if platform != "" {
		filter = append(filter, bson.E{Key: "platform", Value: platform})
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "posted_at", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := r.collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer func(cursor *mongo.Cursor, ctx context.Context) {
		if err := cursor.Close(ctx); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while closing cursor")
		}
	}(cursor, ctx)

	var entries []model.PostingHistoryEntry
	for cursor.Next(ctx) {
		var entry model.PostingHistoryEntry
		if err := cursor.Decode(&entry); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while decoding history entry")
			continue
		}
		entries = append(entries, entry)
	}
	return entries, cursor.Err()
}
