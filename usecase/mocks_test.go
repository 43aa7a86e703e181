package usecase

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"social-scheduler/domain/model"
	"social-scheduler/domain/repository"
)

type mockPostStore struct {
	mock.Mock
}

func (m *mockPostStore) Create(ctx context.Context, post *model.ScheduledPost) (*model.ScheduledPost, error) {
	args := m.Called(ctx, post)
	p, _ := args.Get(0).(*model.ScheduledPost)
	return p, args.Error(1)
}

func (m *mockPostStore) GetByID(ctx context.Context, id int64) (*model.ScheduledPost, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*model.ScheduledPost)
	return p, args.Error(1)
}

func (m *mockPostStore) ListPosts(ctx context.Context, filter repository.PostFilter) ([]*model.ScheduledPost, int64, error) {
	args := m.Called(ctx, filter)
	posts, _ := args.Get(0).([]*model.ScheduledPost)
	return posts, int64(args.Int(1)), args.Error(2)
}

func (m *mockPostStore) FindDueJobs(ctx context.Context, now time.Time, limit int) ([]*model.ScheduledPost, error) {
	args := m.Called(ctx, now, limit)
	posts, _ := args.Get(0).([]*model.ScheduledPost)
	return posts, args.Error(1)
}

func (m *mockPostStore) CountDueJobs(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return int64(args.Int(0)), args.Error(1)
}

func (m *mockPostStore) TryClaim(ctx context.Context, id int64, now time.Time) (bool, error) {
	args := m.Called(ctx, id, now)
	return args.Bool(0), args.Error(1)
}

func (m *mockPostStore) UpdateStatus(ctx context.Context, id int64, status model.PostStatus, extra repository.StatusFields) (bool, error) {
	args := m.Called(ctx, id, status, extra)
	return args.Bool(0), args.Error(1)
}

func (m *mockPostStore) BulkUpdateStatus(ctx context.Context, ids []int64, status model.PostStatus) (int64, error) {
	args := m.Called(ctx, ids, status)
	return int64(args.Int(0)), args.Error(1)
}

func (m *mockPostStore) UpdateContent(ctx context.Context, post *model.ScheduledPost) (bool, error) {
	args := m.Called(ctx, post)
	return args.Bool(0), args.Error(1)
}

func (m *mockPostStore) Delete(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// memCache is an in-memory ISchedulerCache. Setting failAll simulates an
// unreachable Redis so fail-open paths can be exercised.
type memCache struct {
	mu        sync.Mutex
	values    map[string]string
	durations map[string][]time.Duration
	failAll   bool
	err       error
}

func newMemCache() *memCache {
	return &memCache{
		values:    map[string]string{},
		durations: map[string][]time.Duration{},
	}
}

func (c *memCache) failure() error {
	if c.failAll {
		if c.err != nil {
			return c.err
		}
		return context.DeadlineExceeded
	}
	return nil
}

func (c *memCache) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if err := c.failure(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	n, _ := strconv.ParseInt(c.values[key], 10, 64)
	n++
	c.values[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (c *memCache) GetInt(ctx context.Context, key string) (int64, error) {
	if err := c.failure(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	if !ok {
		return 0, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func (c *memCache) Get(ctx context.Context, key string) (string, error) {
	if err := c.failure(); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[key], nil
}

func (c *memCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.failure(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

func (c *memCache) DeletePattern(ctx context.Context, pattern string) error {
	return c.failure()
}

func (c *memCache) PushDuration(ctx context.Context, key string, d time.Duration, maxLen int64, ttl time.Duration) error {
	if err := c.failure(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	list := append([]time.Duration{d}, c.durations[key]...)
	if int64(len(list)) > maxLen {
		list = list[:maxLen]
	}
	c.durations[key] = list
	return nil
}

func (c *memCache) RecentDurations(ctx context.Context, key string) ([]time.Duration, error) {
	if err := c.failure(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.durations[key], nil
}

// memHistory is an in-memory IPostingHistory.
type memHistory struct {
	mu      sync.Mutex
	entries []model.PostingHistoryEntry
	err     error
}

func (h *memHistory) Append(ctx context.Context, entry *model.PostingHistoryEntry) error {
	if h.err != nil {
		return h.err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append([]model.PostingHistoryEntry{*entry}, h.entries...)
	return nil
}

func (h *memHistory) CountByPlatform(ctx context.Context, platform, status string, since time.Time) (int64, error) {
	if h.err != nil {
		return 0, h.err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	var n int64
	for _, e := range h.entries {
		if e.Platform == platform && (status == "" || e.Status == status) && !e.PostedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (h *memHistory) Recent(ctx context.Context, platform string, limit int) ([]model.PostingHistoryEntry, error) {
	if h.err != nil {
		return nil, h.err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []model.PostingHistoryEntry
	for _, e := range h.entries {
		if platform == "" || e.Platform == platform {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// stubPublisher returns a fixed result or error for every publish.
type stubPublisher struct {
	platform string
	result   *model.PublishResult
	err      error
	delay    time.Duration
	calls    int
}

func (p *stubPublisher) Platform() string { return p.platform }

func (p *stubPublisher) Publish(ctx context.Context, post *model.ScheduledPost) (*model.PublishResult, error) {
	p.calls++
	if p.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.delay):
		}
	}
	return p.result, p.err
}

type stubRegistry struct {
	pubs map[string]repository.IPublisher
}

func newStubRegistry(pubs ...repository.IPublisher) *stubRegistry {
	r := &stubRegistry{pubs: map[string]repository.IPublisher{}}
	for _, p := range pubs {
		r.pubs[p.Platform()] = p
	}
	return r
}

func (r *stubRegistry) Resolve(platform string) (repository.IPublisher, bool) {
	p, ok := r.pubs[platform]
	return p, ok
}

func (r *stubRegistry) Platforms() []string {
	out := make([]string, 0, len(r.pubs))
	for p := range r.pubs {
		out = append(out, p)
	}
	return out
}

func boolPtr(b bool) *bool { return &b }

func pendingPost(id int64, platform string) *model.ScheduledPost {
	return &model.ScheduledPost{
		ID:            id,
		OwnerID:       "owner-1",
		Platform:      platform,
		Payload:       []byte(`{"text":"hello"}`),
		ScheduledTime: time.Now().Add(-time.Minute).UTC(),
		Status:        model.PostStatusPending,
	}
}
