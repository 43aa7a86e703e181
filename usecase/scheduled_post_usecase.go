package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"social-scheduler/domain/dto"
	"social-scheduler/domain/model"
	"social-scheduler/domain/repository"
	"social-scheduler/infrastructure/logger"
)

var (
	ErrPostNotFound        = errors.New("scheduled post not found")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrPostNotEditable     = errors.New("post is not editable in its current status")
	ErrNotOwner            = errors.New("post belongs to another user")
)

const listCacheTTL = 5 * time.Minute

// IScheduledPostUsecase is the surface the API layer consumes.
type IScheduledPostUsecase interface {
	CreateJob(ctx context.Context, ownerID string, req dto.CreatePostRequest) (*model.ScheduledPost, error)
	GetJob(ctx context.Context, id int64) (*model.ScheduledPost, error)
	ListJobs(ctx context.Context, ownerID string, req dto.ListPostsRequest) ([]*model.ScheduledPost, int64, error)
	UpdateJob(ctx context.Context, id int64, ownerID string, req dto.UpdatePostRequest) (*model.ScheduledPost, error)
	DeleteJob(ctx context.Context, id int64, ownerID string) error
	PublishNow(ctx context.Context, id int64, ownerID string) (*model.PublishResult, error)
	CancelJob(ctx context.Context, id int64, ownerID string) (bool, error)
	ProcessPending(ctx context.Context) (SweepResult, error)
	Stats(ctx context.Context) (*dto.SchedulerStatsResponse, error)
	PlatformLimits(ctx context.Context, platform string) (*dto.PlatformLimitsResponse, error)
	RecentHistory(ctx context.Context, platform string, limit int) ([]model.PostingHistoryEntry, error)
	Platforms() []string
	WithBroadcaster(fn func(post *model.ScheduledPost)) IScheduledPostUsecase
	WithHistory(history repository.IPostingHistory) IScheduledPostUsecase
}

type scheduledPostUsecase struct {
	store      repository.IScheduledPost
	sm         *StateMachine
	dispatcher *Dispatcher
	admission  *AdmissionController
	metrics    *PostMetrics
	cache      repository.ISchedulerCache
	allowed    map[string]struct{}
	platforms  []string
	broadcast  func(post *model.ScheduledPost)
	history    repository.IPostingHistory
}

func NewScheduledPostUsecase(
	store repository.IScheduledPost,
	sm *StateMachine,
	dispatcher *Dispatcher,
	admission *AdmissionController,
	metrics *PostMetrics,
	cache repository.ISchedulerCache,
	platforms []string,
) IScheduledPostUsecase {
	allowed := make(map[string]struct{}, len(platforms))
	norm := make([]string, 0, len(platforms))
	for _, p := range platforms {
		p = strings.ToLower(p)
		allowed[p] = struct{}{}
		norm = append(norm, p)
	}
	return &scheduledPostUsecase{
		store:      store,
		sm:         sm,
		dispatcher: dispatcher,
		admission:  admission,
		metrics:    metrics,
		cache:      cache,
		allowed:    allowed,
		platforms:  norm,
	}
}

// WithBroadcaster attaches a status-change callback used by the SSE hub.
func (u *scheduledPostUsecase) WithBroadcaster(fn func(post *model.ScheduledPost)) IScheduledPostUsecase {
	u.broadcast = fn
	return u
}

// WithHistory attaches the posting-history archive. Stats and RecentHistory
// degrade gracefully when it is absent.
func (u *scheduledPostUsecase) WithHistory(history repository.IPostingHistory) IScheduledPostUsecase {
	u.history = history
	return u
}

func (u *scheduledPostUsecase) Platforms() []string { return u.platforms }

func (u *scheduledPostUsecase) CreateJob(ctx context.Context, ownerID string, req dto.CreatePostRequest) (*model.ScheduledPost, error) {
	if ownerID == "" {
		return nil, errors.New("owner id required")
	}
	platform := strings.ToLower(req.Platform)
	if _, ok := u.allowed[platform]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, req.Platform)
	}
	if len(req.Payload) == 0 {
		return nil, errors.New("payload required")
	}
	post := &model.ScheduledPost{
		OwnerID:       ownerID,
		Platform:      platform,
		Payload:       req.Payload,
		ScheduledTime: req.ScheduledTime.UTC(),
		Status:        model.PostStatusPending,
	}
	created, err := u.store.Create(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("creating scheduled post: %w", err)
	}
	u.invalidateListCaches(ctx, ownerID, platform)
	return created, nil
}

func (u *scheduledPostUsecase) GetJob(ctx context.Context, id int64) (*model.ScheduledPost, error) {
	post, err := u.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	return post, nil
}

type cachedList struct {
	Posts []*model.ScheduledPost `json:"posts"`
	Total int64                  `json:"total"`
}

// ListJobs serves read-heavy dashboard queries through the cache; any cache
// problem falls back to the store.
func (u *scheduledPostUsecase) ListJobs(ctx context.Context, ownerID string, req dto.ListPostsRequest) ([]*model.ScheduledPost, int64, error) {
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}
	key := fmt.Sprintf("scheduler:posts:owner=%s:platform=%s:status=%s:limit=%d:offset=%d",
		ownerID, strings.ToLower(req.Platform), strings.ToLower(req.Status), req.Limit, req.Offset)

	if raw, err := u.cache.Get(ctx, key); err == nil && raw != "" {
		var cached cachedList
		if json.Unmarshal([]byte(raw), &cached) == nil {
			return cached.Posts, cached.Total, nil
		}
	}

	posts, total, err := u.store.ListPosts(ctx, repository.PostFilter{
		OwnerID:  ownerID,
		Platform: strings.ToLower(req.Platform),
		Status:   model.PostStatus(strings.ToLower(req.Status)),
		Limit:    req.Limit,
		Offset:   req.Offset,
	})
	if err != nil {
		return nil, 0, err
	}

	if raw, err := json.Marshal(cachedList{Posts: posts, Total: total}); err == nil {
		if err := u.cache.Set(ctx, key, string(raw), listCacheTTL); err != nil {
			logger.GetLogger().WithField("key", key).WithField("error", err).Debug("list cache write skipped")
		}
	}
	return posts, total, nil
}

func (u *scheduledPostUsecase) UpdateJob(ctx context.Context, id int64, ownerID string, req dto.UpdatePostRequest) (*model.ScheduledPost, error) {
	post, err := u.ownedPost(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if !post.Status.Editable() {
		return nil, ErrPostNotEditable
	}
	if len(req.Payload) > 0 {
		post.Payload = req.Payload
	}
	if req.ScheduledTime != nil {
		post.ScheduledTime = req.ScheduledTime.UTC()
	}
	ok, err := u.store.UpdateContent(ctx, post)
	if err != nil {
		return nil, err
	}
	if !ok {
		// lost the race against a dispatcher claim
		return nil, ErrPostNotEditable
	}
	u.invalidateListCaches(ctx, post.OwnerID, post.Platform)
	return post, nil
}

func (u *scheduledPostUsecase) DeleteJob(ctx context.Context, id int64, ownerID string) error {
	post, err := u.ownedPost(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if post.Status == model.PostStatusPublishing {
		return ErrPostNotEditable
	}
	ok, err := u.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPostNotFound
	}
	u.invalidateListCaches(ctx, post.OwnerID, post.Platform)
	return nil
}

// PublishNow skips the scheduled wait but keeps every other guarantee:
// admission, the atomic claim, classification and retry scheduling. Calling
// it on an already published post is a no-op returning the stored result.
func (u *scheduledPostUsecase) PublishNow(ctx context.Context, id int64, ownerID string) (*model.PublishResult, error) {
	post, err := u.ownedPost(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if post.Status == model.PostStatusPublished {
		res := &model.PublishResult{Success: true}
		if post.PlatformPostID != nil {
			res.PlatformPostID = *post.PlatformPostID
		}
		return res, nil
	}
	if post.Status.Terminal() {
		return nil, fmt.Errorf("post %d is %s and cannot be published", id, post.Status)
	}
	result, err := u.dispatcher.RunJob(ctx, post)
	if err != nil {
		return nil, err
	}
	if result == nil {
		// claim lost to a concurrent dispatcher; report the stored state
		return nil, fmt.Errorf("post %d is already being published", id)
	}
	return result, nil
}

func (u *scheduledPostUsecase) CancelJob(ctx context.Context, id int64, ownerID string) (bool, error) {
	post, err := u.ownedPost(ctx, id, ownerID)
	if err != nil {
		return false, err
	}
	ok, err := u.sm.Cancel(ctx, post)
	if err != nil {
		return false, err
	}
	if ok {
		u.invalidateListCaches(ctx, post.OwnerID, post.Platform)
		if u.broadcast != nil {
			u.broadcast(post)
		}
	}
	return ok, nil
}

func (u *scheduledPostUsecase) ProcessPending(ctx context.Context) (SweepResult, error) {
	return u.dispatcher.RunSweep(ctx)
}

func (u *scheduledPostUsecase) Stats(ctx context.Context) (*dto.SchedulerStatsResponse, error) {
	now := time.Now().UTC()
	backlog, err := u.store.CountDueJobs(ctx, now)
	if err != nil {
		return nil, err
	}
	runs, skips, avg := u.metrics.SweepStats(ctx)

	platforms := make(map[string]dto.PlatformStats, len(u.platforms))
	for _, p := range u.platforms {
		published, failed, retries, denied, attempts := u.metrics.PlatformCounters(ctx, p)
		stats := dto.PlatformStats{
			Published: published,
			Failed:    failed,
			Retries:   retries,
			Denied:    denied,
			Attempts:  attempts,
		}
		if total := published + failed; total > 0 {
			stats.SuccessRate = float64(published) / float64(total) * 100
		}
		if u.history != nil {
			archived, err := u.history.CountByPlatform(ctx, p, string(model.PostStatusPublished), now.Add(-24*time.Hour))
			if err != nil {
				logger.GetLogger().WithField("platform", p).WithField("error", err).Debug("history count unavailable")
			} else {
				stats.PublishedLast24h = archived
			}
		}
		platforms[p] = stats
	}

	return &dto.SchedulerStatsResponse{
		Platforms:      platforms,
		SweepAvgMs:     float64(avg.Milliseconds()),
		SweepRuns:      runs,
		SweepSkips:     skips,
		DueBacklog:     backlog,
		GeneratedAtUTC: now,
	}, nil
}

func (u *scheduledPostUsecase) PlatformLimits(ctx context.Context, platform string) (*dto.PlatformLimitsResponse, error) {
	platform = strings.ToLower(platform)
	if _, ok := u.allowed[platform]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platform)
	}
	limit, daily, hourly, canPost := u.admission.Usage(ctx, platform)
	return &dto.PlatformLimitsResponse{
		Platform:  platform,
		Daily:     limit.Daily,
		Hourly:    limit.Hourly,
		DailyUse:  daily,
		HourlyUse: hourly,
		CanPost:   canPost,
	}, nil
}

func (u *scheduledPostUsecase) RecentHistory(ctx context.Context, platform string, limit int) ([]model.PostingHistoryEntry, error) {
	platform = strings.ToLower(platform)
	if _, ok := u.allowed[platform]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platform)
	}
	if u.history == nil {
		return []model.PostingHistoryEntry{}, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	entries, err := u.history.Recent(ctx, platform, limit)
	if err != nil {
		return nil, fmt.Errorf("loading posting history: %w", err)
	}
	if entries == nil {
		entries = []model.PostingHistoryEntry{}
	}
	return entries, nil
}

func (u *scheduledPostUsecase) ownedPost(ctx context.Context, id int64, ownerID string) (*model.ScheduledPost, error) {
	post, err := u.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if ownerID != "" && post.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	return post, nil
}

func (u *scheduledPostUsecase) invalidateListCaches(ctx context.Context, ownerID, platform string) {
	for _, pattern := range []string{
		fmt.Sprintf("scheduler:posts:*owner=%s*", ownerID),
		fmt.Sprintf("scheduler:posts:*platform=%s*", platform),
	} {
		if err := u.cache.DeletePattern(ctx, pattern); err != nil {
			logger.GetLogger().WithField("pattern", pattern).WithField("error", err).Debug("cache invalidation skipped")
		}
	}
}
