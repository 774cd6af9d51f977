// Package search is the Search Engine (spec §4.F): it resolves a
// requested search mode against capability availability, runs BM25 and
// (when applicable) dense scoring over the filtered corpus, fuses the two
// per the mode's formula, and returns a ranked, limited result list. Every
// call emits exactly one telemetry event, success or failure.
package search

import (
	"github.com/amancerp/recall/internal/store"
)

// Mode is a requested or resolved search mode.
type Mode string

const (
	ModeAuto     Mode = "auto"
	ModeHybrid   Mode = "hybrid"
	ModeBM25     Mode = "bm25"
	ModeSemantic Mode = "semantic"
	ModeSimple   Mode = "simple"
)

const (
	// DefaultLimit is applied when Options.Limit is zero.
	DefaultLimit = 5
	// MaxLimit is the hard cap on results regardless of the requested limit.
	MaxLimit = 100
)

// Options configures one Search call (spec §4.F).
type Options struct {
	Mode         Mode
	Limit        int
	MinRelevance float64
	Filters      store.ListFilter
}

// clampLimit applies the default-then-hard-cap rule: zero/negative
// becomes DefaultLimit, and anything above MaxLimit is truncated to it.
func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// RankedResult is one scored hit returned from Search.
type RankedResult struct {
	SessionID  string  `json:"session_id"`
	Score      float64 `json:"score"`
	CapturedAt string  `json:"captured_at"`
	Summary    string  `json:"summary"`
}
