package usecase

import (
	"context"
	"fmt"
	"strings"

	"social-scheduler/domain/model"
	"social-scheduler/infrastructure/logger"
)

// PlatformLimit is the admission ceiling for one platform over the rolling
// daily and hourly windows.
type PlatformLimit struct {
	Daily  int64
	Hourly int64
}

// DefaultPlatformLimits matches the per-platform posting ceilings the
// platforms enforce in practice. Unknown platforms use defaultLimit.
var DefaultPlatformLimits = map[string]PlatformLimit{
	"instagram": {Daily: 25, Hourly: 5},
	"facebook":  {Daily: 50, Hourly: 10},
	"twitter":   {Daily: 300, Hourly: 50},
	"linkedin":  {Daily: 20, Hourly: 3},
	"tiktok":    {Daily: 10, Hourly: 2},
	"youtube":   {Daily: 5, Hourly: 1},
}

var defaultLimit = PlatformLimit{Daily: 10, Hourly: 2}

// AdmissionController throttles publish attempts per platform using the
// rolling attempt counters. It fails open: if the counters cannot be read the
// post is admitted, so cache unavailability never halts publishing.
type AdmissionController struct {
	metrics *PostMetrics
	limits  map[string]PlatformLimit
}

func NewAdmissionController(metrics *PostMetrics, limits map[string]PlatformLimit) *AdmissionController {
	if limits == nil {
		limits = DefaultPlatformLimits
	}
	return &AdmissionController{metrics: metrics, limits: limits}
}

// Limit returns the ceiling applied to platform.
func (a *AdmissionController) Limit(platform string) PlatformLimit {
	if l, ok := a.limits[strings.ToLower(platform)]; ok {
		return l
	}
	return defaultLimit
}

// Admit decides whether platform may accept another publish attempt now.
func (a *AdmissionController) Admit(ctx context.Context, platform string) model.AdmissionDecision {
	limit := a.Limit(platform)

	daily, hourly, err := a.metrics.UsageCounts(ctx, platform)
	if err != nil {
		// fail open: stale or unreachable counters must not block publishing
		logger.GetLogger().WithField("platform", platform).WithField("error", err).
			Warn("admission counters unavailable, admitting")
		return model.AdmissionDecision{Allowed: true}
	}

	if hourly >= limit.Hourly {
		return model.AdmissionDecision{
			Allowed: false,
			Reason:  fmt.Sprintf("hourly posting limit reached (%d/%d)", hourly, limit.Hourly),
		}
	}
	if daily >= limit.Daily {
		return model.AdmissionDecision{
			Allowed: false,
			Reason:  fmt.Sprintf("daily posting limit reached (%d/%d)", daily, limit.Daily),
		}
	}
	return model.AdmissionDecision{Allowed: true}
}

// Usage reports current window usage alongside the ceiling for the limits API.
func (a *AdmissionController) Usage(ctx context.Context, platform string) (limit PlatformLimit, daily, hourly int64, canPost bool) {
	limit = a.Limit(platform)
	daily, hourly, err := a.metrics.UsageCounts(ctx, platform)
	if err != nil {
		return limit, 0, 0, true
	}
	return limit, daily, hourly, daily < limit.Daily && hourly < limit.Hourly
}
