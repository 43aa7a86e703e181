package model

import (
	"encoding/json"
	"time"
)

// PostStatus is the lifecycle state of a ScheduledPost. Transitions between
// states are owned by usecase.StateMachine; nothing else writes the status
// column directly.
type PostStatus string

const (
	PostStatusPending    PostStatus = "pending"
	PostStatusPublishing PostStatus = "publishing"
	PostStatusPublished  PostStatus = "published"
	PostStatusRetry      PostStatus = "retry"
	PostStatusFailed     PostStatus = "failed"
	PostStatusCancelled  PostStatus = "cancelled"
)

// Terminal reports whether no further transition is accepted from s.
func (s PostStatus) Terminal() bool {
	return s == PostStatusPublished || s == PostStatusFailed || s == PostStatusCancelled
}

// Editable reports whether payload/scheduled_time may still be changed.
func (s PostStatus) Editable() bool {
	return s == PostStatusPending || s == PostStatusFailed
}

// Supported publishing platforms.
const (
	PlatformTwitter   = "twitter"
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
	PlatformLinkedIn  = "linkedin"
	PlatformTikTok    = "tiktok"
	PlatformYouTube   = "youtube"
)

// ScheduledPost is a unit of work: publish this payload to this platform at
// this time.
type ScheduledPost struct {
	ID             int64           `json:"id"`
	OwnerID        string          `json:"owner_id"`
	Platform       string          `json:"platform"`
	Payload        json.RawMessage `json:"payload"`
	ScheduledTime  time.Time       `json:"scheduled_time"`
	Status         PostStatus      `json:"status"`
	Retries        int             `json:"retries"`
	LastError      *string         `json:"last_error,omitempty"`
	PlatformPostID *string         `json:"platform_post_id,omitempty"`
	NextAttemptAt  *time.Time      `json:"next_attempt_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt      time.Time       `json:"updated_at" gorm:"autoUpdateTime;index"`
}

// DueAt reports whether the post is eligible for dispatch at t: pending posts
// go by scheduled_time, retry posts by the computed next attempt time.
func (p *ScheduledPost) DueAt(t time.Time) bool {
	switch p.Status {
	case PostStatusPending:
		return !p.ScheduledTime.After(t)
	case PostStatusRetry:
		return p.NextAttemptAt != nil && !p.NextAttemptAt.After(t)
	default:
		return false
	}
}

// PublishResult is returned by a platform publisher. Retryable is the
// publisher's own hint; when set it takes precedence over error-string
// classification for the retry/fail decision.
type PublishResult struct {
	Success        bool    `json:"success"`
	PlatformPostID string  `json:"platform_post_id,omitempty"`
	Error          string  `json:"error,omitempty"`
	Retryable      *bool   `json:"retryable,omitempty"`
}

// AdmissionDecision is the outcome of asking whether a platform may accept
// another publish attempt right now.
type AdmissionDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}
