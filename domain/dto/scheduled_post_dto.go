package dto

import (
	"encoding/json"
	"time"
)

// CreatePostRequest represents a request to schedule a new post
type CreatePostRequest struct {
	Platform      string          `json:"platform" binding:"required"`
	Payload       json.RawMessage `json:"payload" binding:"required"`
	ScheduledTime time.Time       `json:"scheduled_time" binding:"required"`
}

// UpdatePostRequest mutates payload and/or scheduled_time of an editable post
type UpdatePostRequest struct {
	Payload       json.RawMessage `json:"payload,omitempty"`
	ScheduledTime *time.Time      `json:"scheduled_time,omitempty"`
}

// ListPostsRequest represents filters for listing scheduled posts
type ListPostsRequest struct {
	Platform string `form:"platform"`
	Status   string `form:"status"`
	Limit    int    `form:"limit"`
	Offset   int    `form:"offset"`
}

// PlatformLimitsResponse reports admission ceilings and rolling usage
type PlatformLimitsResponse struct {
	Platform  string `json:"platform"`
	Daily     int64  `json:"daily_limit"`
	Hourly    int64  `json:"hourly_limit"`
	DailyUse  int64  `json:"daily_usage"`
	HourlyUse int64  `json:"hourly_usage"`
	CanPost   bool   `json:"can_post"`
}

// SchedulerStatsResponse aggregates dispatcher and per-platform metrics
type SchedulerStatsResponse struct {
	Platforms      map[string]PlatformStats `json:"platforms"`
	SweepAvgMs     float64                  `json:"sweep_avg_ms"`
	SweepRuns      int64                    `json:"sweep_runs"`
	SweepSkips     int64                    `json:"sweep_skips"`
	DueBacklog     int64                    `json:"due_backlog"`
	GeneratedAtUTC time.Time                `json:"generated_at_utc"`
}

// PlatformStats is the per-platform slice of SchedulerStatsResponse
type PlatformStats struct {
	Published        int64   `json:"published"`
	Failed           int64   `json:"failed"`
	Retries          int64   `json:"retries"`
	Denied           int64   `json:"denied"`
	Attempts         int64   `json:"attempts"`
	SuccessRate      float64 `json:"success_rate"`
	PublishedLast24h int64   `json:"published_last_24h"`
}
