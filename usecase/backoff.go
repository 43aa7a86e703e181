package usecase

import (
	"math"
	"strings"
)

// ErrorClass buckets a publish failure for backoff and metrics purposes.
type ErrorClass string

const (
	ErrorClassRateLimit ErrorClass = "rate_limit"
	ErrorClassQuota     ErrorClass = "quota"
	ErrorClassNetwork   ErrorClass = "network"
	ErrorClassDenied    ErrorClass = "denied"
	ErrorClassOther     ErrorClass = "other"
)

// ClassifyError derives the class from a publisher error message using
// case-insensitive substring matching. This mirrors how the platforms report
// errors today; a renamed error message silently reclassifies, which is a
// known limitation we keep for compatibility.
func ClassifyError(errMsg string) ErrorClass {
	m := strings.ToLower(errMsg)
	switch {
	case strings.Contains(m, "rate limit"):
		return ErrorClassRateLimit
	case strings.Contains(m, "quota"):
		return ErrorClassQuota
	case strings.Contains(m, "network"), strings.Contains(m, "timeout"):
		return ErrorClassNetwork
	default:
		return ErrorClassOther
	}
}

var errorMultipliers = map[ErrorClass]float64{
	ErrorClassRateLimit: 3.0,
	ErrorClassQuota:     2.0,
	ErrorClassNetwork:   0.5,
}

var platformMultipliers = map[string]float64{
	"instagram": 1.5,
	"facebook":  1.2,
	"twitter":   1.0,
	"linkedin":  1.3,
	"tiktok":    1.4,
	"youtube":   2.0, // uploads take longer
}

// RetryDelaySeconds computes the wait before the next attempt. Pure function:
// exponential base (60s, 120s, 240s for attempts 0..2) scaled by error class
// and platform.
func RetryDelaySeconds(platform string, class ErrorClass, attempt int) int {
	base := 60.0 * math.Pow(2, float64(attempt))

	if m, ok := errorMultipliers[class]; ok {
		base *= m
	}

	pm, ok := platformMultipliers[strings.ToLower(platform)]
	if !ok {
		pm = 1.0
	}
	return int(math.Round(base * pm))
}
