package search

import (
	"math"
	"time"
)

// temporalHalfLifeDays is the default decay constant: a session's
// temporal score halves roughly every 21 days under exp(-age/30),
// matching spec §4.F's exp(-age_days/30).
const temporalDecayDays = 30.0

// neutralTemporalScore is returned for a missing or unparseable capture
// time — neither rewarded nor penalized.
const neutralTemporalScore = 0.5

// temporalScore computes exp(-age_days/30) for a session captured at
// capturedAt, relative to now. A zero capturedAt (unset/unparseable) is
// treated as unknown and scores neutrally.
func temporalScore(capturedAt, now time.Time) float64 {
	if capturedAt.IsZero() {
		return neutralTemporalScore
	}
	ageDays := now.Sub(capturedAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Exp(-ageDays / temporalDecayDays)
}
