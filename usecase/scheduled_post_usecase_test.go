package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"social-scheduler/domain/dto"
	"social-scheduler/domain/model"
	"social-scheduler/domain/repository"
)

var testPlatforms = []string{"facebook", "twitter", "instagram", "linkedin", "tiktok", "youtube"}

func newTestUsecase(store *mockPostStore, cache *memCache, registry repository.IPublisherRegistry) IScheduledPostUsecase {
	metrics := NewPostMetrics(cache)
	admission := NewAdmissionController(metrics, nil)
	sm := NewStateMachine(store, 3)
	dispatcher := NewDispatcher(store, sm, admission, registry, metrics, cache, DispatcherConfig{})
	return NewScheduledPostUsecase(store, sm, dispatcher, admission, metrics, cache, testPlatforms)
}

func TestCreateJob(t *testing.T) {
	store := new(mockPostStore)
	uc := newTestUsecase(store, newMemCache(), newStubRegistry())

	when := time.Now().Add(2 * time.Hour)
	store.On("Create", mock.Anything, mock.MatchedBy(func(p *model.ScheduledPost) bool {
		return p.OwnerID == "42" && p.Platform == "twitter" && p.Status == model.PostStatusPending
	})).Return(pendingPost(1, "twitter"), nil)

	created, err := uc.CreateJob(context.Background(), "42", dto.CreatePostRequest{
		Platform:      "Twitter",
		Payload:       json.RawMessage(`{"text":"hello"}`),
		ScheduledTime: when,
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
}

func TestCreateJobUnsupportedPlatform(t *testing.T) {
	store := new(mockPostStore)
	uc := newTestUsecase(store, newMemCache(), newStubRegistry())

	_, err := uc.CreateJob(context.Background(), "42", dto.CreatePostRequest{
		Platform:      "myspace",
		Payload:       json.RawMessage(`{"text":"hello"}`),
		ScheduledTime: time.Now(),
	})
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
	store.AssertNotCalled(t, "Create")
}

func TestCreateJobEmptyPayload(t *testing.T) {
	uc := newTestUsecase(new(mockPostStore), newMemCache(), newStubRegistry())

	_, err := uc.CreateJob(context.Background(), "42", dto.CreatePostRequest{
		Platform:      "twitter",
		ScheduledTime: time.Now(),
	})
	assert.Error(t, err)
}

func TestGetJobNotFound(t *testing.T) {
	store := new(mockPostStore)
	uc := newTestUsecase(store, newMemCache(), newStubRegistry())

	store.On("GetByID", mock.Anything, int64(99)).Return(nil, nil)

	_, err := uc.GetJob(context.Background(), 99)
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestListJobsCachesResult(t *testing.T) {
	store := new(mockPostStore)
	cache := newMemCache()
	uc := newTestUsecase(store, cache, newStubRegistry())

	store.On("ListPosts", mock.Anything, mock.Anything).Return([]*model.ScheduledPost{pendingPost(1, "twitter")}, 1, nil).Once()

	posts, total, err := uc.ListJobs(context.Background(), "42", dto.ListPostsRequest{Platform: "twitter"})
	assert.NoError(t, err)
	assert.Len(t, posts, 1)
	assert.Equal(t, int64(1), total)

	// second call is served from cache; the store mock would fail on a
	// second ListPosts call because of Once()
	posts, total, err = uc.ListJobs(context.Background(), "42", dto.ListPostsRequest{Platform: "twitter"})
	assert.NoError(t, err)
	assert.Len(t, posts, 1)
	assert.Equal(t, int64(1), total)
	store.AssertNumberOfCalls(t, "ListPosts", 1)
}

func TestListJobsCacheDownFallsBack(t *testing.T) {
	store := new(mockPostStore)
	cache := newMemCache()
	cache.failAll = true
	uc := newTestUsecase(store, cache, newStubRegistry())

	store.On("ListPosts", mock.Anything, mock.Anything).Return([]*model.ScheduledPost{pendingPost(1, "twitter")}, 1, nil)

	posts, _, err := uc.ListJobs(context.Background(), "42", dto.ListPostsRequest{})
	assert.NoError(t, err)
	assert.Len(t, posts, 1)
}

func TestUpdateJobNotOwner(t *testing.T) {
	store := new(mockPostStore)
	uc := newTestUsecase(store, newMemCache(), newStubRegistry())

	store.On("GetByID", mock.Anything, int64(1)).Return(pendingPost(1, "twitter"), nil)

	_, err := uc.UpdateJob(context.Background(), 1, "intruder", dto.UpdatePostRequest{})
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestUpdateJobNotEditable(t *testing.T) {
	store := new(mockPostStore)
	uc := newTestUsecase(store, newMemCache(), newStubRegistry())

	post := pendingPost(1, "twitter")
	post.Status = model.PostStatusPublishing
	store.On("GetByID", mock.Anything, int64(1)).Return(post, nil)

	_, err := uc.UpdateJob(context.Background(), 1, "owner-1", dto.UpdatePostRequest{})
	assert.ErrorIs(t, err, ErrPostNotEditable)
}

func TestUpdateJobLostRace(t *testing.T) {
	store := new(mockPostStore)
	uc := newTestUsecase(store, newMemCache(), newStubRegistry())

	store.On("GetByID", mock.Anything, int64(1)).Return(pendingPost(1, "twitter"), nil)
	store.On("UpdateContent", mock.Anything, mock.Anything).Return(false, nil)

	_, err := uc.UpdateJob(context.Background(), 1, "owner-1", dto.UpdatePostRequest{Payload: json.RawMessage(`{"text":"x"}`)})
	assert.ErrorIs(t, err, ErrPostNotEditable)
}

func TestDeleteJobWhilePublishing(t *testing.T) {
	store := new(mockPostStore)
	uc := newTestUsecase(store, newMemCache(), newStubRegistry())

	post := pendingPost(1, "twitter")
	post.Status = model.PostStatusPublishing
	store.On("GetByID", mock.Anything, int64(1)).Return(post, nil)

	err := uc.DeleteJob(context.Background(), 1, "owner-1")
	assert.ErrorIs(t, err, ErrPostNotEditable)
	store.AssertNotCalled(t, "Delete")
}

func TestPublishNowIdempotentOnPublished(t *testing.T) {
	store := new(mockPostStore)
	uc := newTestUsecase(store, newMemCache(), newStubRegistry())

	post := pendingPost(1, "twitter")
	post.Status = model.PostStatusPublished
	externalID := "tw-777"
	post.PlatformPostID = &externalID
	store.On("GetByID", mock.Anything, int64(1)).Return(post, nil)

	result, err := uc.PublishNow(context.Background(), 1, "owner-1")
	assert.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "tw-777", result.PlatformPostID)
	store.AssertNotCalled(t, "TryClaim")
}

func TestPublishNowCancelledPost(t *testing.T) {
	store := new(mockPostStore)
	uc := newTestUsecase(store, newMemCache(), newStubRegistry())

	post := pendingPost(1, "twitter")
	post.Status = model.PostStatusCancelled
	store.On("GetByID", mock.Anything, int64(1)).Return(post, nil)

	_, err := uc.PublishNow(context.Background(), 1, "owner-1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled")
}

func TestPublishNowRunsJob(t *testing.T) {
	store := new(mockPostStore)
	pub := &stubPublisher{platform: "twitter", result: &model.PublishResult{Success: true, PlatformPostID: "tw-1"}}
	uc := newTestUsecase(store, newMemCache(), newStubRegistry(pub))

	store.On("GetByID", mock.Anything, int64(1)).Return(pendingPost(1, "twitter"), nil)
	store.On("TryClaim", mock.Anything, int64(1), mock.Anything).Return(true, nil)
	store.On("UpdateStatus", mock.Anything, int64(1), model.PostStatusPublished, mock.Anything).Return(true, nil)

	result, err := uc.PublishNow(context.Background(), 1, "owner-1")
	assert.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, pub.calls)
}

func TestPublishNowClaimLost(t *testing.T) {
	store := new(mockPostStore)
	uc := newTestUsecase(store, newMemCache(), newStubRegistry())

	store.On("GetByID", mock.Anything, int64(1)).Return(pendingPost(1, "twitter"), nil)
	store.On("TryClaim", mock.Anything, int64(1), mock.Anything).Return(false, nil)

	_, err := uc.PublishNow(context.Background(), 1, "owner-1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already being published")
}

func TestCancelJobBroadcasts(t *testing.T) {
	store := new(mockPostStore)
	var broadcast *model.ScheduledPost
	uc := newTestUsecase(store, newMemCache(), newStubRegistry()).
		WithBroadcaster(func(p *model.ScheduledPost) { broadcast = p })

	store.On("GetByID", mock.Anything, int64(1)).Return(pendingPost(1, "twitter"), nil)
	store.On("UpdateStatus", mock.Anything, int64(1), model.PostStatusCancelled, mock.Anything).Return(true, nil)

	ok, err := uc.CancelJob(context.Background(), 1, "owner-1")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.NotNil(t, broadcast)
	assert.Equal(t, model.PostStatusCancelled, broadcast.Status)
}

func TestPlatformLimits(t *testing.T) {
	store := new(mockPostStore)
	uc := newTestUsecase(store, newMemCache(), newStubRegistry())

	limits, err := uc.PlatformLimits(context.Background(), "YouTube")
	assert.NoError(t, err)
	assert.Equal(t, "youtube", limits.Platform)
	assert.Equal(t, int64(5), limits.Daily)
	assert.Equal(t, int64(1), limits.Hourly)
	assert.True(t, limits.CanPost)

	_, err = uc.PlatformLimits(context.Background(), "myspace")
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
}

func TestStats(t *testing.T) {
	store := new(mockPostStore)
	cache := newMemCache()
	uc := newTestUsecase(store, cache, newStubRegistry())

	cache.values["platform_success:twitter"] = "8"
	cache.values["platform_failures:twitter"] = "2"
	store.On("CountDueJobs", mock.Anything, mock.Anything).Return(5, nil)

	stats, err := uc.Stats(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(5), stats.DueBacklog)
	tw := stats.Platforms["twitter"]
	assert.Equal(t, int64(8), tw.Published)
	assert.Equal(t, int64(2), tw.Failed)
	assert.InDelta(t, 80.0, tw.SuccessRate, 0.01)
}

func TestStatsIncludesArchivedPublishes(t *testing.T) {
	store := new(mockPostStore)
	history := &memHistory{entries: []model.PostingHistoryEntry{
		{PostID: 1, Platform: "twitter", Status: "published", PostedAt: time.Now().Add(-2 * time.Hour)},
		{PostID: 2, Platform: "twitter", Status: "failed", PostedAt: time.Now().Add(-time.Hour)},
		{PostID: 3, Platform: "twitter", Status: "published", PostedAt: time.Now().Add(-48 * time.Hour)},
	}}
	uc := newTestUsecase(store, newMemCache(), newStubRegistry()).WithHistory(history)

	store.On("CountDueJobs", mock.Anything, mock.Anything).Return(0, nil)

	stats, err := uc.Stats(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(1), stats.Platforms["twitter"].PublishedLast24h)
}

func TestRecentHistory(t *testing.T) {
	history := &memHistory{entries: []model.PostingHistoryEntry{
		{PostID: 2, Platform: "twitter", Status: "published"},
		{PostID: 1, Platform: "facebook", Status: "failed"},
	}}
	uc := newTestUsecase(new(mockPostStore), newMemCache(), newStubRegistry()).WithHistory(history)

	entries, err := uc.RecentHistory(context.Background(), "Twitter", 10)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].PostID)

	_, err = uc.RecentHistory(context.Background(), "myspace", 10)
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
}

func TestRecentHistoryWithoutArchive(t *testing.T) {
	uc := newTestUsecase(new(mockPostStore), newMemCache(), newStubRegistry())

	entries, err := uc.RecentHistory(context.Background(), "twitter", 10)
	assert.NoError(t, err)
	assert.Empty(t, entries)
}
