package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-scheduler/domain/model"
)

func TestBroadcastPostStatusNonBlocking(t *testing.T) {
	hub := NewPostHub()

	ch := make(chan PostStatusEvent, 1)
	hub.addSubscriber("alice", ch)

	post := &model.ScheduledPost{
		ID:       42,
		OwnerID:  "alice",
		Platform: model.PlatformTwitter,
		Status:   model.PostStatusPublished,
	}

	// Second broadcast overflows the buffered channel and must be dropped
	// instead of blocking the dispatch path.
	hub.BroadcastPostStatus(post)
	hub.BroadcastPostStatus(post)

	evt := <-ch
	assert.Equal(t, int64(42), evt.PostID)
	assert.Equal(t, "published", evt.Status)

	hub.removeSubscriber("alice", ch)
	_, open := <-ch
	require.False(t, open)
}

func TestBroadcastPostStatusUnknownOwner(t *testing.T) {
	hub := NewPostHub()
	// No subscribers registered; must not panic.
	hub.BroadcastPostStatus(&model.ScheduledPost{ID: 1, OwnerID: "nobody"})
	hub.BroadcastPostStatus(nil)
}
