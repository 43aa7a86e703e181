package publisher

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-scheduler/domain/model"
)

type stubTokenRepo struct {
	token *model.OAuthToken
	err   error
}

func (s *stubTokenRepo) GetToken(ctx context.Context, userID, platform string) (*model.OAuthToken, error) {
	return s.token, s.err
}

func (s *stubTokenRepo) UpsertToken(ctx context.Context, t *model.OAuthToken) error { return nil }

func pageToken(page string) *stubTokenRepo {
	return &stubTokenRepo{token: &model.OAuthToken{
		UserID:      "alice",
		AccessToken: "token-123",
		PageID:      &page,
	}}
}

func testPost(platform string, payload string) *model.ScheduledPost {
	return &model.ScheduledPost{
		ID:            42,
		OwnerID:       "alice",
		Platform:      platform,
		Payload:       json.RawMessage(payload),
		ScheduledTime: time.Now(),
		Status:        model.PostStatusPublishing,
	}
}

func TestRegistryResolve(t *testing.T) {
	registry := NewRegistry(
		NewFacebookPublisher(nil),
		NewTwitterPublisher(nil),
	)

	pub, ok := registry.Resolve("Twitter")
	require.True(t, ok)
	assert.Equal(t, model.PlatformTwitter, pub.Platform())

	_, ok = registry.Resolve("myspace")
	assert.False(t, ok)

	assert.Equal(t, []string{"facebook", "twitter"}, registry.Platforms())
}

func TestPayloadMessage(t *testing.T) {
	p := &PostPayload{
		Text: "New release out now",
		Tags: []string{"golang", "#release"},
		Link: "https://example.com/release",
	}
	msg := p.Message()
	assert.Contains(t, msg, "New release out now")
	assert.Contains(t, msg, "#golang #release")
	assert.Contains(t, msg, "https://example.com/release")
}

func TestFacebookPublishSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "/page-1/feed", r.URL.Path)
		assert.Equal(t, "token-123", r.Form.Get("access_token"))
		assert.Contains(t, r.Form.Get("message"), "hello world")
		w.Write([]byte(`{"id":"page-1_777"}`))
	}))
	defer srv.Close()

	pub := NewFacebookPublisher(pageToken("page-1")).(*FacebookPublisher)
	pub.baseURL = srv.URL

	res, err := pub.Publish(context.Background(), testPost("facebook", `{"text":"hello world"}`))
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, "page-1_777", res.PlatformPostID)
}

func TestFacebookPublishRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":32}}`))
	}))
	defer srv.Close()

	pub := NewFacebookPublisher(pageToken("page-1")).(*FacebookPublisher)
	pub.baseURL = srv.URL

	res, err := pub.Publish(context.Background(), testPost("facebook", `{"text":"hello"}`))
	require.NoError(t, err)
	require.False(t, res.Success)
	require.NotNil(t, res.Retryable)
	assert.True(t, *res.Retryable)
	assert.Contains(t, res.Error, "rate limit")
}

func TestFacebookPublishMissingToken(t *testing.T) {
	pub := NewFacebookPublisher(&stubTokenRepo{err: sql.ErrNoRows})

	res, err := pub.Publish(context.Background(), testPost("facebook", `{"text":"hello"}`))
	require.NoError(t, err)
	require.False(t, res.Success)
	require.NotNil(t, res.Retryable)
	assert.False(t, *res.Retryable)
}

func TestFacebookPublishNoPage(t *testing.T) {
	pub := NewFacebookPublisher(&stubTokenRepo{token: &model.OAuthToken{AccessToken: "token-123"}})

	res, err := pub.Publish(context.Background(), testPost("facebook", `{"text":"hello"}`))
	require.NoError(t, err)
	require.False(t, res.Success)
	require.NotNil(t, res.Retryable)
	assert.False(t, *res.Retryable)
	assert.Contains(t, res.Error, "no page linked")
}

func TestTwitterPublishSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/tweets", r.URL.Path)
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"1888"}}`))
	}))
	defer srv.Close()

	pub := NewTwitterPublisher(pageToken("")).(*TwitterPublisher)
	pub.baseURL = srv.URL

	res, err := pub.Publish(context.Background(), testPost("twitter", `{"text":"tweet me"}`))
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, "1888", res.PlatformPostID)
}

func TestTwitterPublishServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	pub := NewTwitterPublisher(pageToken("")).(*TwitterPublisher)
	pub.baseURL = srv.URL

	res, err := pub.Publish(context.Background(), testPost("twitter", `{"text":"tweet"}`))
	require.NoError(t, err)
	require.False(t, res.Success)
	require.NotNil(t, res.Retryable)
	assert.True(t, *res.Retryable)
}

func TestInstagramPublishTwoStep(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.URL.Path)
		switch r.URL.Path {
		case "/ig-1/media":
			w.Write([]byte(`{"id":"container-9"}`))
		case "/ig-1/media_publish":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "container-9", r.Form.Get("creation_id"))
			w.Write([]byte(`{"id":"media-10"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	pub := NewInstagramPublisher(pageToken("ig-1")).(*InstagramPublisher)
	pub.baseURL = srv.URL

	res, err := pub.Publish(context.Background(), testPost("instagram", `{"text":"pic","media_url":"https://cdn.example.com/a.jpg"}`))
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, "media-10", res.PlatformPostID)
	assert.Equal(t, []string{"/ig-1/media", "/ig-1/media_publish"}, calls)
}

func TestInstagramPublishRequiresMedia(t *testing.T) {
	pub := NewInstagramPublisher(pageToken("ig-1"))

	res, err := pub.Publish(context.Background(), testPost("instagram", `{"text":"no media"}`))
	require.NoError(t, err)
	require.False(t, res.Success)
	require.NotNil(t, res.Retryable)
	assert.False(t, *res.Retryable)
}

func TestLinkedInPublishSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/ugcPosts", r.URL.Path)
		assert.Equal(t, "2.0.0", r.Header.Get("X-Restli-Protocol-Version"))
		w.Header().Set("X-RestLi-Id", "urn:li:share:555")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	pub := NewLinkedInPublisher(pageToken("member-1")).(*LinkedInPublisher)
	pub.baseURL = srv.URL

	res, err := pub.Publish(context.Background(), testPost("linkedin", `{"text":"professional update"}`))
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, "urn:li:share:555", res.PlatformPostID)
}

func TestTikTokPublishSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/post/publish/video/init/", r.URL.Path)
		w.Write([]byte(`{"data":{"publish_id":"pub-321"}}`))
	}))
	defer srv.Close()

	pub := NewTikTokPublisher(pageToken("")).(*TikTokPublisher)
	pub.baseURL = srv.URL

	res, err := pub.Publish(context.Background(), testPost("tiktok", `{"text":"clip","media_url":"https://cdn.example.com/v.mp4"}`))
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, "pub-321", res.PlatformPostID)
}

func TestYouTubePublishWithoutClient(t *testing.T) {
	pub := NewYouTubePublisher(nil)

	res, err := pub.Publish(context.Background(), testPost("youtube", `{"video_id":"abc"}`))
	require.NoError(t, err)
	require.False(t, res.Success)
	require.NotNil(t, res.Retryable)
	assert.False(t, *res.Retryable)
}
