package repository

import (
	"context"
	"time"

	"social-scheduler/domain/model"
)

// IPostingHistory archives publish outcomes for analytics. Best effort; the
// dispatch path logs and continues when an append fails.
type IPostingHistory interface {
	Append(ctx context.Context, entry *model.PostingHistoryEntry) error
	CountByPlatform(ctx context.Context, platform, status string, since time.Time) (int64, error)
	Recent(ctx context.Context, platform string, limit int) ([]model.PostingHistoryEntry, error)
}
