package usecase

import (
	"context"
	"fmt"
	"time"

	"social-scheduler/domain/model"
	"social-scheduler/domain/repository"
	"social-scheduler/infrastructure/logger"
)

// ErrInvalidTransition reports a requested transition the lifecycle does not
// permit. Seeing it outside of racing cancel requests indicates a bug.
type ErrInvalidTransition struct {
	From model.PostStatus
	To   model.PostStatus
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

var allowedTransitions = map[model.PostStatus][]model.PostStatus{
	model.PostStatusPending:    {model.PostStatusPublishing, model.PostStatusCancelled},
	model.PostStatusRetry:      {model.PostStatusPublishing},
	model.PostStatusPublishing: {model.PostStatusPublished, model.PostStatusRetry, model.PostStatusFailed},
	model.PostStatusFailed:     {model.PostStatusCancelled},
}

func transitionAllowed(from, to model.PostStatus) bool {
	for _, t := range allowedTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// StateMachine owns the ScheduledPost lifecycle. Every status write goes
// through it; transitions are conditional updates against the store so that
// concurrent dispatchers and API calls cannot race each other into an
// inconsistent state.
type StateMachine struct {
	store      repository.IScheduledPost
	maxRetries int
}

func NewStateMachine(store repository.IScheduledPost, maxRetries int) *StateMachine {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &StateMachine{store: store, maxRetries: maxRetries}
}

func (sm *StateMachine) MaxRetries() int { return sm.maxRetries }

// Claim attempts the pending/retry -> publishing transition. A false return
// means another dispatcher already claimed the post, it is not yet due, or it
// reached a terminal state; callers abort silently in all three cases.
func (sm *StateMachine) Claim(ctx context.Context, id int64, now time.Time) (bool, error) {
	return sm.store.TryClaim(ctx, id, now)
}

// MarkPublished completes a claimed post: sets platform_post_id and clears
// last_error.
func (sm *StateMachine) MarkPublished(ctx context.Context, post *model.ScheduledPost, platformPostID string) error {
	if !transitionAllowed(post.Status, model.PostStatusPublished) {
		return &ErrInvalidTransition{From: post.Status, To: model.PostStatusPublished}
	}
	from := post.Status
	ok, err := sm.store.UpdateStatus(ctx, post.ID, model.PostStatusPublished, repository.StatusFields{
		From:           &from,
		PlatformPostID: &platformPostID,
		ClearLastError: true,
	})
	if err != nil {
		return err
	}
	if !ok {
		return &ErrInvalidTransition{From: post.Status, To: model.PostStatusPublished}
	}
	post.Status = model.PostStatusPublished
	post.PlatformPostID = &platformPostID
	post.LastError = nil
	return nil
}

// MarkRetry schedules another attempt: increments retries, records the error
// and the next-eligible time. When the retry budget is exhausted the post is
// failed instead; the returned status tells the caller which happened.
func (sm *StateMachine) MarkRetry(ctx context.Context, post *model.ScheduledPost, errMsg string, nextAttempt time.Time) (model.PostStatus, error) {
	if post.Retries >= sm.maxRetries {
		if err := sm.MarkFailed(ctx, post, errMsg); err != nil {
			return post.Status, err
		}
		return model.PostStatusFailed, nil
	}
	if !transitionAllowed(post.Status, model.PostStatusRetry) {
		return post.Status, &ErrInvalidTransition{From: post.Status, To: model.PostStatusRetry}
	}
	from := post.Status
	retries := post.Retries + 1
	ok, err := sm.store.UpdateStatus(ctx, post.ID, model.PostStatusRetry, repository.StatusFields{
		From:          &from,
		Retries:       &retries,
		LastError:     &errMsg,
		NextAttemptAt: &nextAttempt,
	})
	if err != nil {
		return post.Status, err
	}
	if !ok {
		return post.Status, &ErrInvalidTransition{From: post.Status, To: model.PostStatusRetry}
	}
	post.Status = model.PostStatusRetry
	post.Retries = retries
	post.LastError = &errMsg
	post.NextAttemptAt = &nextAttempt
	return model.PostStatusRetry, nil
}

// MarkFailed terminates the post with its final error.
func (sm *StateMachine) MarkFailed(ctx context.Context, post *model.ScheduledPost, errMsg string) error {
	if !transitionAllowed(post.Status, model.PostStatusFailed) {
		return &ErrInvalidTransition{From: post.Status, To: model.PostStatusFailed}
	}
	from := post.Status
	ok, err := sm.store.UpdateStatus(ctx, post.ID, model.PostStatusFailed, repository.StatusFields{
		From:      &from,
		LastError: &errMsg,
	})
	if err != nil {
		return err
	}
	if !ok {
		return &ErrInvalidTransition{From: post.Status, To: model.PostStatusFailed}
	}
	post.Status = model.PostStatusFailed
	post.LastError = &errMsg
	return nil
}

// Cancel is user-initiated and only legal from pending or failed. A post in
// publishing must reach a terminal state first.
func (sm *StateMachine) Cancel(ctx context.Context, post *model.ScheduledPost) (bool, error) {
	if !transitionAllowed(post.Status, model.PostStatusCancelled) {
		logger.GetLogger().
			WithField("post_id", post.ID).
			WithField("status", post.Status).
			Warn("cancel rejected: post not in cancellable state")
		return false, nil
	}
	from := post.Status
	ok, err := sm.store.UpdateStatus(ctx, post.ID, model.PostStatusCancelled, repository.StatusFields{From: &from})
	if err != nil {
		return false, err
	}
	if ok {
		post.Status = model.PostStatusCancelled
	}
	return ok, nil
}
