package search

import (
	"strings"

	"github.com/amancerp/recall/internal/config"
	"github.com/amancerp/recall/internal/store"
)

// fuseHybrid combines the BM25 and dense component scores into a single
// lexical-dense score, then blends that against the temporal score using
// the same split the bm25-only formula uses (spec §4.F: "0.5*bm25_n +
// 0.5*dense_n then blend with temporal"). The ambiguous "see below" is
// resolved in DESIGN.md: the combined lexical-dense score plays the role
// "bm25_n" plays in the bm25_temporal formula.
func fuseHybrid(bm25n, densen, temporal float64, w config.RetrievalConfig) float64 {
	combined := w.Hybrid.BM25Weight*bm25n + w.Hybrid.DenseWeight*densen
	return w.BM25Temporal.BM25Weight*combined + w.BM25Temporal.TemporalWeight*temporal
}

// fuseBM25Temporal is the bm25-only formula: 0.7*bm25_n + 0.3*temporal.
func fuseBM25Temporal(bm25n, temporal float64, w config.RetrievalConfig) float64 {
	return w.BM25Temporal.BM25Weight*bm25n + w.BM25Temporal.TemporalWeight*temporal
}

// fuseSemantic is dense-only, with no temporal blend.
func fuseSemantic(densen float64) float64 {
	return densen
}

// simpleFieldWeights are the legacy per-field weights for simple mode
// (spec §4.F): summary counts 3x, topics 2x, files and issue refs 1x
// each.
const (
	simpleSummaryWeight = 3.0
	simpleTopicsWeight  = 2.0
	simpleFilesWeight   = 1.0
	simpleIssuesWeight  = 1.0
)

// scoreSimple is the legacy weighted-field match: for each query token
// present in summary/topics/files_modified/issue_refs, award that
// field's weight, then normalize by the maximum achievable weight (every
// token found in every field). No temporal blend.
func scoreSimple(queryTokens []string, s *store.SessionRecord) float64 {
	if len(queryTokens) == 0 {
		return 0
	}

	summary := strings.ToLower(s.Summary)
	var score float64
	for _, tok := range queryTokens {
		if strings.Contains(summary, tok) {
			score += simpleSummaryWeight
		}
		if containsToken(s.Topics, tok) {
			score += simpleTopicsWeight
		}
		if containsToken(s.FilesModified, tok) {
			score += simpleFilesWeight
		}
		if containsToken(s.IssueRefs, tok) {
			score += simpleIssuesWeight
		}
	}

	maxWeight := float64(len(queryTokens)) * (simpleSummaryWeight + simpleTopicsWeight + simpleFilesWeight + simpleIssuesWeight)
	if maxWeight == 0 {
		return 0
	}
	return score / maxWeight
}

func containsToken(fields []string, tok string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), tok) {
			return true
		}
	}
	return false
}
