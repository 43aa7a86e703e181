package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"social-scheduler/domain/model"
	"social-scheduler/domain/repository"
)

// ScheduledPostRepositoryMSSQL implements scheduled post persistence for
// SQL Server/Azure SQL using database/sql.
type ScheduledPostRepositoryMSSQL struct{ db *sql.DB }

func NewScheduledPostRepositoryMSSQL(db *sql.DB) repository.IScheduledPost {
	return &ScheduledPostRepositoryMSSQL{db: db}
}

// DB exposes the underlying *sql.DB
func (r *ScheduledPostRepositoryMSSQL) DB() *sql.DB { return r.db }

const scheduledPostColumnsMSSQL = `id, owner_id, platform, payload, scheduled_time, status, retries, last_error, platform_post_id, next_attempt_at, created_at, updated_at`

const dueConditionMSSQL = `((status = 'pending' AND scheduled_time <= @p1) OR (status = 'retry' AND next_attempt_at IS NOT NULL AND next_attempt_at <= @p1))`

func (r *ScheduledPostRepositoryMSSQL) Create(ctx context.Context, post *model.ScheduledPost) (*model.ScheduledPost, error) {
	now := time.Now().UTC()
	if post.Status == "" {
		post.Status = model.PostStatusPending
	}
	q := `INSERT INTO dbo.[scheduled_posts] (owner_id, platform, payload, scheduled_time, status, retries, created_at, updated_at)
OUTPUT INSERTED.id, INSERTED.created_at, INSERTED.updated_at
VALUES (@p1, @p2, @p3, @p4, @p5, 0, @p6, @p6)`
	row := r.db.QueryRowContext(ctx, q, post.OwnerID, post.Platform, []byte(post.Payload), post.ScheduledTime.UTC(), post.Status, now)
	if err := row.Scan(&post.ID, &post.CreatedAt, &post.UpdatedAt); err != nil {
		return nil, err
	}
	post.Retries = 0
	return post, nil
}

func (r *ScheduledPostRepositoryMSSQL) GetByID(ctx context.Context, id int64) (*model.ScheduledPost, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+scheduledPostColumnsMSSQL+` FROM dbo.[scheduled_posts] WHERE id = @p1`, id)
	post, err := scanScheduledPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return post, err
}

func (r *ScheduledPostRepositoryMSSQL) ListPosts(ctx context.Context, filter repository.PostFilter) ([]*model.ScheduledPost, int64, error) {
	where := "1=1"
	args := []interface{}{}
	if filter.OwnerID != "" {
		args = append(args, filter.OwnerID)
		where += fmt.Sprintf(" AND owner_id = @p%d", len(args))
	}
	if filter.Platform != "" {
		args = append(args, filter.Platform)
		where += fmt.Sprintf(" AND platform = @p%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where += fmt.Sprintf(" AND status = @p%d", len(args))
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dbo.[scheduled_posts] WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, filter.Offset)
	offsetPos := len(args)
	args = append(args, limit)
	limitPos := len(args)

	q := fmt.Sprintf(`SELECT %s FROM dbo.[scheduled_posts] WHERE %s ORDER BY scheduled_time ASC, id ASC OFFSET @p%d ROWS FETCH NEXT @p%d ROWS ONLY`,
		scheduledPostColumnsMSSQL, where, offsetPos, limitPos)
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

func (r *ScheduledPostRepositoryMSSQL) FindDueJobs(ctx context.Context, now time.Time, limit int) ([]*model.ScheduledPost, error) {
	q := `SELECT TOP (@p2) ` + scheduledPostColumnsMSSQL + ` FROM dbo.[scheduled_posts]
WHERE ` + dueConditionMSSQL + `
ORDER BY COALESCE(next_attempt_at, scheduled_time) ASC, id ASC`
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

func (r *ScheduledPostRepositoryMSSQL) CountDueJobs(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM dbo.[scheduled_posts] WHERE `+dueConditionMSSQL, now.UTC()).Scan(&count)
	return count, err
}

func (r *ScheduledPostRepositoryMSSQL) TryClaim(ctx context.Context, id int64, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE dbo.[scheduled_posts] SET status = 'publishing', updated_at = @p2 WHERE id = @p3 AND `+dueConditionMSSQL,
		now.UTC(), time.Now().UTC(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *ScheduledPostRepositoryMSSQL) UpdateStatus(ctx context.Context, id int64, status model.PostStatus, extra repository.StatusFields) (bool, error) {
	set := "status = @p1, updated_at = @p2"
	args := []interface{}{string(status), time.Now().UTC()}
	if extra.Retries != nil {
		args = append(args, *extra.Retries)
		set += fmt.Sprintf(", retries = @p%d", len(args))
	}
	if extra.LastError != nil {
		args = append(args, *extra.LastError)
		set += fmt.Sprintf(", last_error = @p%d", len(args))
	} else if extra.ClearLastError {
		set += ", last_error = NULL"
	}
	if extra.PlatformPostID != nil {
		args = append(args, *extra.PlatformPostID)
		set += fmt.Sprintf(", platform_post_id = @p%d", len(args))
	}
	if extra.NextAttemptAt != nil {
		args = append(args, extra.NextAttemptAt.UTC())
		set += fmt.Sprintf(", next_attempt_at = @p%d", len(args))
	} else {
		set += ", next_attempt_at = NULL"
	}

	args = append(args, id)
	q := fmt.Sprintf(`UPDATE dbo.[scheduled_posts] SET %s WHERE id = @p%d`, set, len(args))
	if extra.From != nil {
		args = append(args, string(*extra.From))
		q += fmt.Sprintf(" AND status = @p%d", len(args))
	}

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *ScheduledPostRepositoryMSSQL) BulkUpdateStatus(ctx context.Context, ids []int64, status model.PostStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := []interface{}{string(status), time.Now().UTC()}
	ph := make([]string, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
		ph = append(ph, fmt.Sprintf("@p%d", len(args)))
	}
	q := fmt.Sprintf(`UPDATE dbo.[scheduled_posts] SET status = @p1, updated_at = @p2 WHERE id IN (%s)`, strings.Join(ph, ","))
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *ScheduledPostRepositoryMSSQL) UpdateContent(ctx context.Context, post *model.ScheduledPost) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE dbo.[scheduled_posts] SET payload = @p1, scheduled_time = @p2, updated_at = @p3
WHERE id = @p4 AND status IN ('pending','failed')`,
		[]byte(post.Payload), post.ScheduledTime.UTC(), time.Now().UTC(), post.ID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *ScheduledPostRepositoryMSSQL) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM dbo.[scheduled_posts] WHERE id = @p1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}
