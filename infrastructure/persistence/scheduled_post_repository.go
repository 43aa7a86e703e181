package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"social-scheduler/domain/model"
	"social-scheduler/domain/repository"
)

// ScheduledPostRepository implements scheduled post persistence on PostgreSQL.
type ScheduledPostRepository struct {
	db *sql.DB
}

func NewScheduledPostRepository(db *sql.DB) repository.IScheduledPost {
	return &ScheduledPostRepository{db: db}
}

const scheduledPostColumns = `id, owner_id, platform, payload, scheduled_time, status, retries, last_error, platform_post_id, next_attempt_at, created_at, updated_at`

// A post is due when it is pending and past its scheduled time, or in retry
// and past its computed next attempt time.
const dueCondition = `((status = 'pending' AND scheduled_time <= $1) OR (status = 'retry' AND next_attempt_at IS NOT NULL AND next_attempt_at <= $1))`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanScheduledPost(row rowScanner) (*model.ScheduledPost, error) {
	post := &model.ScheduledPost{}
	var payload []byte
	var lastError, platformPostID sql.NullString
	var nextAttemptAt sql.NullTime
	err := row.Scan(&post.ID, &post.OwnerID, &post.Platform, &payload, &post.ScheduledTime,
		&post.Status, &post.Retries, &lastError, &platformPostID, &nextAttemptAt,
		&post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}
	post.Payload = payload
	if lastError.Valid {
		v := lastError.String
		post.LastError = &v
	}
	if platformPostID.Valid {
		v := platformPostID.String
		post.PlatformPostID = &v
	}
	if nextAttemptAt.Valid {
		v := nextAttemptAt.Time
		post.NextAttemptAt = &v
	}
	return post, nil
}

func (r *ScheduledPostRepository) Create(ctx context.Context, post *model.ScheduledPost) (*model.ScheduledPost, error) {
	now := time.Now().UTC()
	if post.Status == "" {
		post.Status = model.PostStatusPending
	}
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO scheduled_posts (owner_id, platform, payload, scheduled_time, status, retries, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,0,$6,$6)
		 RETURNING `+scheduledPostColumns,
		post.OwnerID, post.Platform, []byte(post.Payload), post.ScheduledTime.UTC(), post.Status, now)
	return scanScheduledPost(row)
}

func (r *ScheduledPostRepository) GetByID(ctx context.Context, id int64) (*model.ScheduledPost, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+scheduledPostColumns+` FROM scheduled_posts WHERE id = $1`, id)
	post, err := scanScheduledPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return post, err
}

func (r *ScheduledPostRepository) ListPosts(ctx context.Context, filter repository.PostFilter) ([]*model.ScheduledPost, int64, error) {
	where := "1=1"
	args := []interface{}{}
	if filter.OwnerID != "" {
		args = append(args, filter.OwnerID)
		where += fmt.Sprintf(" AND owner_id = $%d", len(args))
	}
	if filter.Platform != "" {
		args = append(args, filter.Platform)
		where += fmt.Sprintf(" AND platform = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scheduled_posts WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit)
	limitPos := len(args)
	args = append(args, filter.Offset)
	offsetPos := len(args)

	q := fmt.Sprintf(`SELECT %s FROM scheduled_posts WHERE %s ORDER BY scheduled_time ASC, id ASC LIMIT $%d OFFSET $%d`,
		scheduledPostColumns, where, limitPos, offsetPos)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var posts []*model.ScheduledPost
	for rows.Next() {
		post, err := scanScheduledPost(rows)
		if err != nil {
			return nil, 0, err
		}
		posts = append(posts, post)
	}
	return posts, total, rows.Err()
}

func (r *ScheduledPostRepository) FindDueJobs(ctx context.Context, now time.Time, limit int) ([]*model.ScheduledPost, error) {
	q := `SELECT ` + scheduledPostColumns + ` FROM scheduled_posts WHERE ` + dueCondition + `
		 ORDER BY COALESCE(next_attempt_at, scheduled_time) ASC, id ASC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, q, now.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []*model.ScheduledPost
	for rows.Next() {
		post, err := scanScheduledPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (r *ScheduledPostRepository) CountDueJobs(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM scheduled_posts WHERE `+dueCondition, now.UTC()).Scan(&count)
	return count, err
}

// TryClaim is the concurrency gate: a single conditional UPDATE moves the
// post to publishing only while it is still due, so two dispatchers racing
// for the same post cannot both win.
func (r *ScheduledPostRepository) TryClaim(ctx context.Context, id int64, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE scheduled_posts SET status = 'publishing', updated_at = $2
		 WHERE id = $3 AND `+dueCondition,
		now.UTC(), time.Now().UTC(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *ScheduledPostRepository) UpdateStatus(ctx context.Context, id int64, status model.PostStatus, extra repository.StatusFields) (bool, error) {
	set := "status = $1, updated_at = $2"
	args := []interface{}{status, time.Now().UTC()}
	if extra.Retries != nil {
		args = append(args, *extra.Retries)
		set += fmt.Sprintf(", retries = $%d", len(args))
	}
	if extra.LastError != nil {
		args = append(args, *extra.LastError)
		set += fmt.Sprintf(", last_error = $%d", len(args))
	} else if extra.ClearLastError {
		set += ", last_error = NULL"
	}
	if extra.PlatformPostID != nil {
		args = append(args, *extra.PlatformPostID)
		set += fmt.Sprintf(", platform_post_id = $%d", len(args))
	}
	if extra.NextAttemptAt != nil {
		args = append(args, extra.NextAttemptAt.UTC())
		set += fmt.Sprintf(", next_attempt_at = $%d", len(args))
	} else {
		set += ", next_attempt_at = NULL"
	}

	args = append(args, id)
	q := fmt.Sprintf(`UPDATE scheduled_posts SET %s WHERE id = $%d`, set, len(args))
	if extra.From != nil {
		args = append(args, *extra.From)
		q += fmt.Sprintf(" AND status = $%d", len(args))
	}

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *ScheduledPostRepository) BulkUpdateStatus(ctx context.Context, ids []int64, status model.PostStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE scheduled_posts SET status = $1, updated_at = $2 WHERE id = ANY($3)`,
		status, time.Now().UTC(), pq.Array(ids))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateContent only touches posts still in an editable state; a post claimed
// by a dispatcher in the meantime is left alone and the caller sees false.
func (r *ScheduledPostRepository) UpdateContent(ctx context.Context, post *model.ScheduledPost) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE scheduled_posts SET payload = $1, scheduled_time = $2, updated_at = $3
		 WHERE id = $4 AND status IN ('pending','failed')`,
		[]byte(post.Payload), post.ScheduledTime.UTC(), time.Now().UTC(), post.ID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *ScheduledPostRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM scheduled_posts WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}
