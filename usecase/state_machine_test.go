package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"social-scheduler/domain/model"
	"social-scheduler/domain/repository"
)

func TestTransitionAllowed(t *testing.T) {
	assert.True(t, transitionAllowed(model.PostStatusPending, model.PostStatusPublishing))
	assert.True(t, transitionAllowed(model.PostStatusPending, model.PostStatusCancelled))
	assert.True(t, transitionAllowed(model.PostStatusRetry, model.PostStatusPublishing))
	assert.True(t, transitionAllowed(model.PostStatusPublishing, model.PostStatusPublished))
	assert.True(t, transitionAllowed(model.PostStatusPublishing, model.PostStatusRetry))
	assert.True(t, transitionAllowed(model.PostStatusPublishing, model.PostStatusFailed))
	assert.True(t, transitionAllowed(model.PostStatusFailed, model.PostStatusCancelled))

	// terminal states are sticky
	assert.False(t, transitionAllowed(model.PostStatusPublished, model.PostStatusPending))
	assert.False(t, transitionAllowed(model.PostStatusPublished, model.PostStatusPublishing))
	assert.False(t, transitionAllowed(model.PostStatusCancelled, model.PostStatusPending))
	assert.False(t, transitionAllowed(model.PostStatusCancelled, model.PostStatusPublishing))

	// publishing cannot be cancelled mid-flight
	assert.False(t, transitionAllowed(model.PostStatusPublishing, model.PostStatusCancelled))
	// retry cannot be cancelled directly
	assert.False(t, transitionAllowed(model.PostStatusRetry, model.PostStatusCancelled))
}

func TestMarkPublished(t *testing.T) {
	store := new(mockPostStore)
	sm := NewStateMachine(store, 3)
	post := pendingPost(1, "twitter")
	post.Status = model.PostStatusPublishing

	store.On("UpdateStatus", mock.Anything, int64(1), model.PostStatusPublished, mock.MatchedBy(func(f repository.StatusFields) bool {
		return f.From != nil && *f.From == model.PostStatusPublishing &&
			f.PlatformPostID != nil && *f.PlatformPostID == "tw-1" &&
			f.ClearLastError
	})).Return(true, nil)

	err := sm.MarkPublished(context.Background(), post, "tw-1")
	assert.NoError(t, err)
	assert.Equal(t, model.PostStatusPublished, post.Status)
	assert.Equal(t, "tw-1", *post.PlatformPostID)
	assert.Nil(t, post.LastError)
}

func TestMarkPublishedFromPendingRejected(t *testing.T) {
	store := new(mockPostStore)
	sm := NewStateMachine(store, 3)
	post := pendingPost(1, "twitter")

	err := sm.MarkPublished(context.Background(), post, "tw-1")
	assert.Error(t, err)
	var inv *ErrInvalidTransition
	assert.ErrorAs(t, err, &inv)
	store.AssertNotCalled(t, "UpdateStatus")
}

func TestMarkRetryIncrementsAttempts(t *testing.T) {
	store := new(mockPostStore)
	sm := NewStateMachine(store, 3)
	post := pendingPost(1, "twitter")
	post.Status = model.PostStatusPublishing
	post.Retries = 1
	next := time.Now().Add(2 * time.Minute).UTC()

	store.On("UpdateStatus", mock.Anything, int64(1), model.PostStatusRetry, mock.MatchedBy(func(f repository.StatusFields) bool {
		return f.Retries != nil && *f.Retries == 2 &&
			f.LastError != nil && *f.LastError == "network error" &&
			f.NextAttemptAt != nil && f.NextAttemptAt.Equal(next)
	})).Return(true, nil)

	status, err := sm.MarkRetry(context.Background(), post, "network error", next)
	assert.NoError(t, err)
	assert.Equal(t, model.PostStatusRetry, status)
	assert.Equal(t, 2, post.Retries)
	assert.Equal(t, "network error", *post.LastError)
}

func TestMarkRetryExhaustedBudgetFails(t *testing.T) {
	store := new(mockPostStore)
	sm := NewStateMachine(store, 3)
	post := pendingPost(1, "twitter")
	post.Status = model.PostStatusPublishing
	post.Retries = 3

	store.On("UpdateStatus", mock.Anything, int64(1), model.PostStatusFailed, mock.MatchedBy(func(f repository.StatusFields) bool {
		return f.LastError != nil && *f.LastError == "still broken"
	})).Return(true, nil)

	status, err := sm.MarkRetry(context.Background(), post, "still broken", time.Now().Add(time.Minute))
	assert.NoError(t, err)
	assert.Equal(t, model.PostStatusFailed, status)
	assert.Equal(t, model.PostStatusFailed, post.Status)
	assert.Equal(t, 3, post.Retries)
}

func TestMarkRetryLostRace(t *testing.T) {
	store := new(mockPostStore)
	sm := NewStateMachine(store, 3)
	post := pendingPost(1, "twitter")
	post.Status = model.PostStatusPublishing

	store.On("UpdateStatus", mock.Anything, int64(1), model.PostStatusRetry, mock.Anything).Return(false, nil)

	_, err := sm.MarkRetry(context.Background(), post, "boom", time.Now().Add(time.Minute))
	assert.Error(t, err)
	assert.Equal(t, model.PostStatusPublishing, post.Status)
}

func TestCancel(t *testing.T) {
	store := new(mockPostStore)
	sm := NewStateMachine(store, 3)

	pending := pendingPost(1, "twitter")
	store.On("UpdateStatus", mock.Anything, int64(1), model.PostStatusCancelled, mock.Anything).Return(true, nil)
	ok, err := sm.Cancel(context.Background(), pending)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, model.PostStatusCancelled, pending.Status)

	failed := pendingPost(2, "twitter")
	failed.Status = model.PostStatusFailed
	store.On("UpdateStatus", mock.Anything, int64(2), model.PostStatusCancelled, mock.Anything).Return(true, nil)
	ok, err = sm.Cancel(context.Background(), failed)
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestCancelRejectedWhilePublishing(t *testing.T) {
	store := new(mockPostStore)
	sm := NewStateMachine(store, 3)
	post := pendingPost(1, "twitter")
	post.Status = model.PostStatusPublishing

	ok, err := sm.Cancel(context.Background(), post)
	assert.NoError(t, err)
	assert.False(t, ok)
	store.AssertNotCalled(t, "UpdateStatus")
}

func TestCancelRejectedWhenPublished(t *testing.T) {
	store := new(mockPostStore)
	sm := NewStateMachine(store, 3)
	post := pendingPost(1, "twitter")
	post.Status = model.PostStatusPublished

	ok, err := sm.Cancel(context.Background(), post)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestMaxRetriesDefault(t *testing.T) {
	sm := NewStateMachine(new(mockPostStore), 0)
	assert.Equal(t, 3, sm.MaxRetries())
	sm = NewStateMachine(new(mockPostStore), 5)
	assert.Equal(t, 5, sm.MaxRetries())
}
