package repository

import (
	"context"
	"time"

	"social-scheduler/domain/model"
)

// PostFilter narrows ListPosts results. Zero values mean "no filter".
type PostFilter struct {
	OwnerID  string
	Platform string
	Status   model.PostStatus
	Limit    int
	Offset   int
}

// StatusFields carries the optional columns a status transition may touch.
// Nil pointers leave the column untouched. When From is set the update is
// conditional on the current status, making the transition atomic.
type StatusFields struct {
	From           *model.PostStatus
	Retries        *int
	LastError      *string
	PlatformPostID *string
	NextAttemptAt  *time.Time
	ClearLastError bool
}

// IScheduledPost is the persistence contract for scheduled posts. The store is
// the single source of truth for status; TryClaim must be a single conditional
// update so concurrent dispatchers cannot both claim the same post.
type IScheduledPost interface {
	Create(ctx context.Context, post *model.ScheduledPost) (*model.ScheduledPost, error)
	GetByID(ctx context.Context, id int64) (*model.ScheduledPost, error)
	ListPosts(ctx context.Context, filter PostFilter) ([]*model.ScheduledPost, int64, error)
	// FindDueJobs returns posts in pending/retry whose due time has passed,
	// oldest first, bounded by limit.
	FindDueJobs(ctx context.Context, now time.Time, limit int) ([]*model.ScheduledPost, error)
	// CountDueJobs reports the due backlog without fetching rows.
	CountDueJobs(ctx context.Context, now time.Time) (int64, error)
	// TryClaim atomically moves a pending/retry post to publishing. Returns
	// false when the post was already claimed or is no longer claimable.
	TryClaim(ctx context.Context, id int64, now time.Time) (bool, error)
	// UpdateStatus sets the status plus any fields in extra. Returns false if
	// no row matched.
	UpdateStatus(ctx context.Context, id int64, status model.PostStatus, extra StatusFields) (bool, error)
	BulkUpdateStatus(ctx context.Context, ids []int64, status model.PostStatus) (int64, error)
	// UpdateContent mutates payload/scheduled_time; only legal while the post
	// is editable, enforced with a conditional update.
	UpdateContent(ctx context.Context, post *model.ScheduledPost) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}
