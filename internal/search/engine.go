package search

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/amancerp/recall/internal/config"
	"github.com/amancerp/recall/internal/embed"
	"github.com/amancerp/recall/internal/store"
	"github.com/amancerp/recall/internal/telemetry"
)

// Engine is the Search Engine (spec §4.F). It owns no mutable retrieval
// state beyond degradedWarned — corpus, embedder, collector, and config
// are all owned-at-startup handles threaded in at construction.
type Engine struct {
	corpus    *store.CorpusStore
	embedder  *embed.Gateway
	collector *telemetry.Collector
	cfg       *config.Config
	logger    *slog.Logger

	degradedMu     sync.Mutex
	degradedWarned map[string]bool
}

// New constructs an Engine. embedder may be nil, meaning semantic search
// is never available (capability absent at startup, not a load failure).
func New(corpus *store.CorpusStore, embedder *embed.Gateway, collector *telemetry.Collector, cfg *config.Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		corpus:         corpus,
		embedder:       embedder,
		collector:      collector,
		cfg:            cfg,
		logger:         logger,
		degradedWarned: make(map[string]bool),
	}
}

// warnDegradedOnce logs a degradation warning the first time a given
// reason is seen for this Engine's process lifetime, and returns true
// every time regardless (the caller always records the degradation in
// telemetry; only the log line is deduplicated).
func (e *Engine) warnDegradedOnce(reason string) {
	e.degradedMu.Lock()
	defer e.degradedMu.Unlock()
	if e.degradedWarned[reason] {
		return
	}
	e.degradedWarned[reason] = true
	e.logger.Warn("search degraded", slog.String("reason", reason))
}

// resolveMode implements the mode resolution table (spec §4.F).
func resolveMode(requested Mode, denseAvailable bool) (resolved Mode, errType string) {
	switch requested {
	case ModeAuto, ModeHybrid:
		if denseAvailable {
			return ModeHybrid, ""
		}
		return ModeBM25, ""
	case ModeBM25:
		return ModeBM25, ""
	case ModeSemantic:
		if denseAvailable {
			return ModeSemantic, ""
		}
		return "", "semantic_unavailable"
	case ModeSimple:
		return ModeSimple, ""
	default:
		return "", "invalid_mode"
	}
}

// isDenseAvailable reports whether the corpus has an assigned dense
// matrix and the embedder gateway can currently serve encode requests.
func (e *Engine) isDenseAvailable(ctx context.Context) bool {
	if e.embedder == nil {
		return false
	}
	snapshot := e.corpus.LoadSnapshot()
	if snapshot.Dense.Count == 0 || snapshot.Dense.Path == "" {
		return false
	}
	return e.embedder.IsAvailable(ctx)
}

// Search runs one retrieval request end to end: resolve mode, load the
// corpus snapshot, filter, score, fuse, sort, truncate. It never panics
// or returns an error to the caller — all failure is observable only
// through an empty result and a telemetry event with outcome.success=false
// (spec §4.F, §7).
func (e *Engine) Search(ctx context.Context, query string, opts Options) []RankedResult {
	start := time.Now()
	limit := clampLimit(opts.Limit)

	requestedMode := opts.Mode
	if requestedMode == "" {
		requestedMode = Mode(e.cfg.Retrieval.DefaultMode)
	}

	denseAvailable := e.isDenseAvailable(ctx)
	resolvedMode, errType := resolveMode(requestedMode, denseAvailable)

	queryTokens := store.TokenizeQuery(query)
	eventID := e.collector.StartEvent(telemetry.EventSearchCompleted, map[string]any{
		"query": map[string]any{
			"raw_query":    query,
			"query_length": len(query),
		},
		"search_config": map[string]any{
			"mode":          string(requestedMode),
			"mode_resolved": string(resolvedMode),
			"limit":         limit,
			"min_relevance": opts.MinRelevance,
		},
	})

	degraded := false
	results := []RankedResult{}

	defer func() {
		totalMs := float64(time.Since(start).Microseconds()) / 1000.0
		e.collector.UpdateEvent(eventID, map[string]any{
			"performance": map[string]any{
				"total_latency_ms": totalMs,
				"degraded":         degraded,
			},
			"results": resultSummaryFields(results),
		})
		e.collector.EndEvent(eventID, map[string]any{
			"success":    errType == "",
			"error_type": errType,
		})
	}()

	if errType != "" {
		return results
	}

	snapshot := e.corpus.LoadSnapshot()
	indices := filteredIndices(snapshot, opts.Filters)

	if resolvedMode == ModeSimple {
		results = e.searchSimple(snapshot, queryTokens, indices, opts.MinRelevance, limit)
		return results
	}

	bm25Scores := store.ScoreBM25(snapshot, queryTokens, indices)
	bm25n := store.NormalizeMinMax(bm25Scores)
	now := time.Now()

	var densen []float64
	if resolvedMode == ModeHybrid || resolvedMode == ModeSemantic {
		vec, err := e.embedder.Encode(ctx, query)
		if err == nil {
			matrix, loadErr := store.LoadDenseMatrix(snapshot.Dense.Path)
			if loadErr == nil {
				scores, ok := store.ScoreDense(matrix, len(snapshot.Sessions), vec, indices, e.logger)
				if ok {
					densen = scores
				}
			}
		}
		if densen == nil {
			// Dense became unavailable at score time: degrade per the
			// hybrid fusion caveat. Semantic mode has no fallback.
			if resolvedMode == ModeSemantic {
				errType = "semantic_unavailable"
				return results
			}
			degraded = true
			e.warnDegradedOnce("dense_unavailable_at_score_time")
			resolvedMode = ModeBM25
		}
	}

	scored := make([]RankedResult, 0, len(indices))
	for pos, idx := range indices {
		session := &snapshot.Sessions[idx]
		temporal := temporalScore(session.CapturedAt, now)

		var score float64
		switch resolvedMode {
		case ModeHybrid:
			score = fuseHybrid(bm25n[pos], densen[pos], temporal, e.cfg.Retrieval)
		case ModeSemantic:
			score = fuseSemantic(densen[pos])
		default:
			score = fuseBM25Temporal(bm25n[pos], temporal, e.cfg.Retrieval)
		}

		scored = append(scored, RankedResult{
			SessionID:  session.SessionID,
			Score:      score,
			CapturedAt: session.CapturedAt.Format(time.RFC3339),
			Summary:    session.Summary,
		})
	}

	sortResults(scored)
	results = truncate(dropBelow(scored, opts.MinRelevance), limit)
	return results
}

// searchSimple runs the legacy weighted-field scorer, which has no
// temporal blend and ignores dense/bm25 entirely.
func (e *Engine) searchSimple(snapshot store.CorpusIndex, queryTokens []string, indices []int, minRelevance float64, limit int) []RankedResult {
	scored := make([]RankedResult, 0, len(indices))
	for _, idx := range indices {
		session := &snapshot.Sessions[idx]
		score := scoreSimple(queryTokens, session)
		scored = append(scored, RankedResult{
			SessionID:  session.SessionID,
			Score:      score,
			CapturedAt: session.CapturedAt.Format(time.RFC3339),
			Summary:    session.Summary,
		})
	}
	sortResults(scored)
	return truncate(dropBelow(scored, minRelevance), limit)
}

// filteredIndices returns the Sessions indices in snapshot that satisfy
// filter, preserving corpus order.
func filteredIndices(snapshot store.CorpusIndex, filter store.ListFilter) []int {
	indices := make([]int, 0, len(snapshot.Sessions))
	for i := range snapshot.Sessions {
		if filter.Matches(&snapshot.Sessions[i]) {
			indices = append(indices, i)
		}
	}
	return indices
}

// sortResults sorts descending by score, breaking ties by captured_at
// descending then session_id ascending (spec §4.F step 8).
func sortResults(results []RankedResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].CapturedAt != results[j].CapturedAt {
			return results[i].CapturedAt > results[j].CapturedAt
		}
		return results[i].SessionID < results[j].SessionID
	})
}

func dropBelow(results []RankedResult, minRelevance float64) []RankedResult {
	if minRelevance <= 0 {
		return results
	}
	out := make([]RankedResult, 0, len(results))
	for _, r := range results {
		if r.Score >= minRelevance {
			out = append(out, r)
		}
	}
	return out
}

func truncate(results []RankedResult, limit int) []RankedResult {
	if len(results) > limit {
		return results[:limit]
	}
	return results
}

// resultSummaryFields builds the results.* telemetry sub-document (spec's
// ResultData/ScoreStats shape): count, retrieved session ids, and score
// stats bucketed at the 0.7 and 0.4 cutoffs.
func resultSummaryFields(results []RankedResult) map[string]any {
	ids := make([]string, len(results))
	var sum, top, min float64
	high, mid, low := 0, 0, 0
	for i, r := range results {
		ids[i] = r.SessionID
		sum += r.Score
		if i == 0 || r.Score > top {
			top = r.Score
		}
		if i == 0 || r.Score < min {
			min = r.Score
		}
		switch {
		case r.Score >= 0.7:
			high++
		case r.Score >= 0.4:
			mid++
		default:
			low++
		}
	}

	avg := 0.0
	if len(results) > 0 {
		avg = sum / float64(len(results))
	}

	return map[string]any{
		"count":              len(results),
		"retrieved_sessions": ids,
		"scores": map[string]any{
			"top_score": top,
			"avg_score": avg,
			"min_score": min,
			"score_distribution": map[string]any{
				"high": high,
				"mid":  mid,
				"low":  low,
			},
		},
	}
}
