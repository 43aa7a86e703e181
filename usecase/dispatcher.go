package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"social-scheduler/domain/model"
	"social-scheduler/domain/repository"
	"social-scheduler/infrastructure/logger"
	"social-scheduler/infrastructure/worker"
)

// DispatcherConfig bounds a sweep. Zero values fall back to the defaults the
// dispatcher has always run with.
type DispatcherConfig struct {
	BatchSize      int
	PublishTimeout time.Duration
	// QueueHighWater skips a sweep entirely when the due backlog exceeds it.
	QueueHighWater int64
	WorkerCount    int
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 30 * time.Second
	}
	if c.QueueHighWater <= 0 {
		c.QueueHighWater = 1000
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = 4
	}
	return c
}

// SweepResult summarizes one dispatcher run.
type SweepResult struct {
	Found    int
	Skipped  bool
	Duration time.Duration
}

// Dispatcher finds due posts and runs them through admission, publishing,
// classification and retry scheduling. Multiple dispatcher instances may run
// concurrently; the store's conditional claim keeps each post single-owner.
type Dispatcher struct {
	store     repository.IScheduledPost
	sm        *StateMachine
	admission *AdmissionController
	registry  repository.IPublisherRegistry
	metrics   *PostMetrics
	cache     repository.ISchedulerCache
	history   repository.IPostingHistory
	bus       repository.IInvalidationBus
	broadcast func(post *model.ScheduledPost)
	cfg       DispatcherConfig
	now       func() time.Time
}

func NewDispatcher(
	store repository.IScheduledPost,
	sm *StateMachine,
	admission *AdmissionController,
	registry repository.IPublisherRegistry,
	metrics *PostMetrics,
	cache repository.ISchedulerCache,
	cfg DispatcherConfig,
) *Dispatcher {
	return &Dispatcher{
		store:     store,
		sm:        sm,
		admission: admission,
		registry:  registry,
		metrics:   metrics,
		cache:     cache,
		cfg:       cfg.withDefaults(),
		now:       time.Now,
	}
}

// WithHistory attaches the posting-history archive (optional).
func (d *Dispatcher) WithHistory(h repository.IPostingHistory) *Dispatcher {
	d.history = h
	return d
}

// WithInvalidationBus attaches the cross-instance invalidation broadcast
// (optional).
func (d *Dispatcher) WithInvalidationBus(b repository.IInvalidationBus) *Dispatcher {
	d.bus = b
	return d
}

// WithBroadcaster attaches a callback invoked after every status change.
func (d *Dispatcher) WithBroadcaster(fn func(post *model.ScheduledPost)) *Dispatcher {
	d.broadcast = fn
	return d
}

// RunSweep performs one pass: fetch due posts, hand each to the job runner in
// parallel, record the sweep timing. A failure of one job never affects the
// others in the batch.
func (d *Dispatcher) RunSweep(ctx context.Context) (SweepResult, error) {
	lg := logger.GetLogger()
	start := d.now()

	backlog, err := d.store.CountDueJobs(ctx, start)
	if err != nil {
		return SweepResult{}, fmt.Errorf("counting due posts: %w", err)
	}
	if backlog > d.cfg.QueueHighWater {
		lg.WithField("backlog", backlog).WithField("high_water", d.cfg.QueueHighWater).
			Warn("sweep skipped: queue overloaded")
		d.metrics.RecordSweepSkip(ctx)
		return SweepResult{Skipped: true}, nil
	}

	due, err := d.store.FindDueJobs(ctx, start, d.cfg.BatchSize)
	if err != nil {
		return SweepResult{}, fmt.Errorf("fetching due posts: %w", err)
	}

	pool := worker.NewPool(d.cfg.WorkerCount)
	for _, post := range due {
		post := post
		pool.Submit(func() {
			if _, err := d.RunJob(ctx, post); err != nil {
				lg.WithField("post_id", post.ID).WithField("error", err).Warn("job run failed")
			}
		})
	}
	pool.Wait()

	res := SweepResult{Found: len(due), Duration: d.now().Sub(start)}
	d.metrics.RecordSweep(ctx, res.Duration)
	if res.Found > 0 {
		lg.WithField("found", res.Found).WithField("duration", res.Duration.String()).Info("sweep completed")
	}
	return res, nil
}

// RunJob executes one post end to end. The claim is the idempotency guard:
// when another dispatcher got there first the run aborts silently with a nil
// result.
func (d *Dispatcher) RunJob(ctx context.Context, post *model.ScheduledPost) (*model.PublishResult, error) {
	now := d.now()

	claimAt := now
	if post.ScheduledTime.After(claimAt) {
		claimAt = post.ScheduledTime
	}
	if post.NextAttemptAt != nil && post.NextAttemptAt.After(claimAt) {
		claimAt = *post.NextAttemptAt
	}
	claimed, err := d.sm.Claim(ctx, post.ID, claimAt)
	if err != nil {
		return nil, fmt.Errorf("claiming post %d: %w", post.ID, err)
	}
	if !claimed {
		return nil, nil
	}
	post.Status = model.PostStatusPublishing

	if decision := d.admission.Admit(ctx, post.Platform); !decision.Allowed {
		d.metrics.RecordDenied(ctx, post.Platform)
		delay := RetryDelaySeconds(post.Platform, ErrorClassDenied, post.Retries)
		errMsg := "admission denied: " + decision.Reason
		status, err := d.sm.MarkRetry(ctx, post, errMsg, now.Add(time.Duration(delay)*time.Second))
		if err != nil {
			return nil, err
		}
		d.metrics.RecordOutcome(ctx, post.Platform, string(status))
		d.finishJob(ctx, post, 0)
		return &model.PublishResult{Success: false, Error: errMsg}, nil
	}

	d.metrics.RecordAttempt(ctx, post.Platform)

	publisher, ok := d.registry.Resolve(post.Platform)
	if !ok {
		errMsg := fmt.Sprintf("no publisher registered for platform %q", post.Platform)
		if err := d.sm.MarkFailed(ctx, post, errMsg); err != nil {
			return nil, err
		}
		d.metrics.RecordOutcome(ctx, post.Platform, string(model.PostStatusFailed))
		d.metrics.RecordFailure(ctx, post.Platform, ErrorClassOther)
		d.finishJob(ctx, post, 0)
		return &model.PublishResult{Success: false, Error: errMsg}, nil
	}

	start := d.now()
	result := d.publish(ctx, publisher, post)
	elapsed := d.now().Sub(start)

	if result.Success {
		if err := d.sm.MarkPublished(ctx, post, result.PlatformPostID); err != nil {
			return nil, err
		}
		d.metrics.RecordOutcome(ctx, post.Platform, string(model.PostStatusPublished))
		d.metrics.RecordSuccess(ctx, post.Platform)
		d.finishJob(ctx, post, elapsed)
		return result, nil
	}

	class := ClassifyError(result.Error)
	retryable := true
	if result.Retryable != nil {
		// publisher hint wins over string classification
		retryable = *result.Retryable
	}

	if !retryable {
		if err := d.sm.MarkFailed(ctx, post, result.Error); err != nil {
			return nil, err
		}
		d.metrics.RecordOutcome(ctx, post.Platform, string(model.PostStatusFailed))
		d.metrics.RecordFailure(ctx, post.Platform, class)
		d.finishJob(ctx, post, elapsed)
		return result, nil
	}

	delay := RetryDelaySeconds(post.Platform, class, post.Retries)
	status, err := d.sm.MarkRetry(ctx, post, result.Error, now.Add(time.Duration(delay)*time.Second))
	if err != nil {
		return nil, err
	}
	d.metrics.RecordOutcome(ctx, post.Platform, string(status))
	if status == model.PostStatusFailed {
		d.metrics.RecordFailure(ctx, post.Platform, class)
	} else {
		d.metrics.RecordRetry(ctx, post.Platform, class)
	}
	d.finishJob(ctx, post, elapsed)
	return result, nil
}

// publish invokes the platform adapter under the configured timeout. Any
// error or panic from the adapter is folded into a retryable PublishResult so
// it flows through the normal classification path instead of crashing the
// sweep.
func (d *Dispatcher) publish(ctx context.Context, publisher repository.IPublisher, post *model.ScheduledPost) (result *model.PublishResult) {
	pubCtx, cancel := context.WithTimeout(ctx, d.cfg.PublishTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			logger.GetLogger().WithField("post_id", post.ID).WithField("panic", r).
				Error("publisher panicked")
			result = &model.PublishResult{Success: false, Error: fmt.Sprintf("publisher panic: %v", r)}
		}
	}()

	res, err := publisher.Publish(pubCtx, post)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(pubCtx.Err(), context.DeadlineExceeded) {
			return &model.PublishResult{Success: false, Error: "timeout: " + err.Error()}
		}
		return &model.PublishResult{Success: false, Error: err.Error()}
	}
	if res == nil {
		return &model.PublishResult{Success: false, Error: "publisher returned no result"}
	}
	return res
}

// finishJob handles the shared tail of every outcome: archive the attempt,
// drop cached queries that include this owner or platform, notify listeners.
// All best effort.
func (d *Dispatcher) finishJob(ctx context.Context, post *model.ScheduledPost, elapsed time.Duration) {
	lg := logger.GetLogger()

	if d.history != nil {
		entry := &model.PostingHistoryEntry{
			PostID:       post.ID,
			OwnerID:      post.OwnerID,
			Platform:     post.Platform,
			Status:       string(post.Status),
			ErrorMessage: post.LastError,
			Attempt:      post.Retries,
			DurationMs:   elapsed.Milliseconds(),
			PostedAt:     d.now().UTC(),
		}
		if err := d.history.Append(ctx, entry); err != nil {
			lg.WithField("post_id", post.ID).WithField("error", err).Warn("posting history append failed")
		}
	}

	for _, pattern := range []string{
		fmt.Sprintf("scheduler:posts:*owner=%s*", post.OwnerID),
		fmt.Sprintf("scheduler:posts:*platform=%s*", post.Platform),
	} {
		if err := d.cache.DeletePattern(ctx, pattern); err != nil {
			lg.WithField("pattern", pattern).WithField("error", err).Debug("cache invalidation skipped")
		}
		if d.bus != nil {
			if _, err := d.bus.PublishInvalidation(ctx, pattern); err != nil {
				lg.WithField("pattern", pattern).WithField("error", err).Debug("invalidation broadcast skipped")
			}
		}
	}

	if d.broadcast != nil {
		d.broadcast(post)
	}
}
