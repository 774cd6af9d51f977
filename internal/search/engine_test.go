package search

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amancerp/recall/internal/config"
	"github.com/amancerp/recall/internal/embed"
	"github.com/amancerp/recall/internal/store"
	"github.com/amancerp/recall/internal/telemetry"
)

// fakeEmbedder returns a fixed vector for every text, implementing
// embed.Embedder directly (no hashing/model behavior needed for these
// tests — only the Gateway's lazy-load/availability plumbing matters).
type fakeEmbedder struct {
	vector []float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vector, nil
}
func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}
func (f *fakeEmbedder) Dimensions() int                { return len(f.vector) }
func (f *fakeEmbedder) ModelName() string              { return "fake" }
func (f *fakeEmbedder) Available(context.Context) bool { return true }
func (f *fakeEmbedder) Close() error                   { return nil }

func newFakeGateway(vector []float32) *embed.Gateway {
	return embed.NewGateway(func(ctx context.Context) (embed.Embedder, error) {
		return &fakeEmbedder{vector: vector}, nil
	}, nil)
}

func newTestEngine(t *testing.T, sessions []store.SessionRecord, embedder *embed.Gateway) (*Engine, string) {
	eng, logPath, _ := newTestEngineWithStore(t, sessions, embedder)
	return eng, logPath
}

func newTestEngineWithStore(t *testing.T, sessions []store.SessionRecord, embedder *embed.Gateway) (*Engine, string, *store.CorpusStore) {
	t.Helper()
	dir := t.TempDir()
	corpusPath := filepath.Join(dir, "corpus.json")

	corpusStore, err := store.NewCorpusStore(corpusPath)
	require.NoError(t, err)
	for _, s := range sessions {
		require.NoError(t, corpusStore.Ingest(s))
	}

	logPath := filepath.Join(dir, "telemetry.jsonl")
	writer := telemetry.NewBatchedWriter(logPath, 100, time.Hour)
	collector := telemetry.New(true, writer, nil)

	cfg := config.Defaults()
	eng := New(corpusStore, embedder, collector, cfg, nil)
	return eng, logPath, corpusStore
}

// wireDense writes a dense sidecar with rowCount rows of the given
// dimension and records it against corpusStore, returning the sidecar path.
func wireDense(t *testing.T, corpusStore *store.CorpusStore, dir string, dim, rowCount int) string {
	t.Helper()
	densePath := filepath.Join(dir, "dense.bin")
	rows := make([][]float32, rowCount)
	for i := range rows {
		row := make([]float32, dim)
		row[0] = 1
		rows[i] = row
	}
	require.NoError(t, store.SaveDenseMatrix(densePath, store.DenseMatrix{Dim: dim, Rows: rows}))
	require.NoError(t, corpusStore.SetDense(store.DenseMeta{Model: "fake", Dim: dim, Count: rowCount, Path: densePath}))
	return densePath
}

func mustSession(id string, tokens, topics, files []string, capturedAt time.Time) store.SessionRecord {
	return store.SessionRecord{
		SessionID:     id,
		CapturedAt:    capturedAt,
		Summary:       "",
		Topics:        topics,
		TokenStream:   tokens,
		FilesModified: files,
	}
}

func readTelemetryLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var out []map[string]any
	for _, line := range splitNonEmptyLines(string(data)) {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func splitNonEmptyLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			if i > start {
				lines = append(lines, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

// S1 — Lexical-only, filtered.
func TestSearch_S1_LexicalOnlyRanking(t *testing.T) {
	now := time.Now()
	sessions := []store.SessionRecord{
		mustSession("2026-02-15_s1", []string{"auth", "jwt", "bug"}, nil, nil, now),
		mustSession("2026-02-15_s2", []string{"deploy", "ci"}, nil, nil, now.AddDate(0, 0, -40)),
		mustSession("2026-02-14_s3", []string{"auth", "jwt"}, nil, nil, now.AddDate(0, 0, -1)),
	}
	eng, _ := newTestEngine(t, sessions, nil)

	results := eng.Search(context.Background(), "auth jwt", Options{Mode: ModeBM25, Limit: 5})
	require.Len(t, results, 3)
	assert.Equal(t, "2026-02-15_s1", results[0].SessionID)
	assert.Equal(t, "2026-02-14_s3", results[1].SessionID)
	assert.Equal(t, "2026-02-15_s2", results[2].SessionID)
}

// S3 — Semantic-only unavailable.
func TestSearch_S3_SemanticUnavailableYieldsEmptyAndErrorType(t *testing.T) {
	sessions := []store.SessionRecord{
		mustSession("s1", []string{"auth"}, nil, nil, time.Now()),
	}
	eng, logPath := newTestEngine(t, sessions, nil)

	results := eng.Search(context.Background(), "anything", Options{Mode: ModeSemantic})
	assert.Empty(t, results)

	lines := readTelemetryLines(t, logPath)
	require.Len(t, lines, 1)
	outcome, _ := lines[0]["outcome"].(map[string]any)
	require.NotNil(t, outcome)
	assert.Equal(t, false, outcome["success"])
	assert.Equal(t, "semantic_unavailable", lines[0]["error_type"])
}

// S4 — Filter excludes all.
func TestSearch_S4_FilterExcludesAllYieldsEmptySuccess(t *testing.T) {
	sessions := []store.SessionRecord{
		mustSession("s1", []string{"auth", "jwt", "bug"}, []string{"auth"}, nil, time.Now()),
	}
	eng, logPath := newTestEngine(t, sessions, nil)

	results := eng.Search(context.Background(), "auth", Options{
		Mode:    ModeBM25,
		Filters: store.ListFilter{Topics: []string{"unrelated"}},
	})
	assert.Empty(t, results)

	lines := readTelemetryLines(t, logPath)
	require.Len(t, lines, 1)
	outcome, _ := lines[0]["outcome"].(map[string]any)
	assert.Equal(t, true, outcome["success"])
	resultsField, _ := lines[0]["results"].(map[string]any)
	assert.Equal(t, float64(0), resultsField["count"])
}

func TestSearch_InvalidModeYieldsEmptyAndErrorType(t *testing.T) {
	sessions := []store.SessionRecord{mustSession("s1", []string{"auth"}, nil, nil, time.Now())}
	eng, logPath := newTestEngine(t, sessions, nil)

	results := eng.Search(context.Background(), "auth", Options{Mode: "bogus"})
	assert.Empty(t, results)

	lines := readTelemetryLines(t, logPath)
	require.Len(t, lines, 1)
	assert.Equal(t, "invalid_mode", lines[0]["error_type"])
}

func TestSearch_EmptyCorpusYieldsEmptyResultsSingleEvent(t *testing.T) {
	eng, logPath := newTestEngine(t, nil, nil)
	results := eng.Search(context.Background(), "anything", Options{})
	assert.Empty(t, results)
	lines := readTelemetryLines(t, logPath)
	assert.Len(t, lines, 1)
}

func TestSearch_LimitIsClampedToHardCap(t *testing.T) {
	var sessions []store.SessionRecord
	now := time.Now()
	for i := 0; i < 5; i++ {
		sessions = append(sessions, mustSession(string(rune('a'+i)), []string{"auth"}, nil, nil, now))
	}
	eng, _ := newTestEngine(t, sessions, nil)
	results := eng.Search(context.Background(), "auth", Options{Mode: ModeBM25, Limit: 1000})
	assert.LessOrEqual(t, len(results), MaxLimit)
}

func TestSearch_AutoWithoutDenseResolvesToBM25(t *testing.T) {
	sessions := []store.SessionRecord{
		mustSession("s1", []string{"auth", "jwt"}, nil, nil, time.Now()),
	}
	eng, logPath := newTestEngine(t, sessions, nil)
	results := eng.Search(context.Background(), "auth jwt", Options{Mode: ModeAuto})
	require.Len(t, results, 1)

	lines := readTelemetryLines(t, logPath)
	searchConfig, _ := lines[0]["search_config"].(map[string]any)
	assert.Equal(t, "bm25", searchConfig["mode_resolved"])
}

func TestSearch_SimpleModeScoresWeightedFields(t *testing.T) {
	sessions := []store.SessionRecord{
		{SessionID: "s1", Summary: "fixed the auth bug", CapturedAt: time.Now()},
		{SessionID: "s2", Summary: "unrelated deploy notes", CapturedAt: time.Now()},
	}
	eng, _ := newTestEngine(t, sessions, nil)
	results := eng.Search(context.Background(), "auth", Options{Mode: ModeSimple})
	require.NotEmpty(t, results)
	assert.Equal(t, "s1", results[0].SessionID)
}

func TestSearch_MinRelevanceDropsLowScores(t *testing.T) {
	sessions := []store.SessionRecord{
		{SessionID: "s1", Summary: "fixed the auth bug", CapturedAt: time.Now()},
		{SessionID: "s2", Summary: "completely unrelated", CapturedAt: time.Now()},
	}
	eng, _ := newTestEngine(t, sessions, nil)
	results := eng.Search(context.Background(), "auth", Options{Mode: ModeSimple, MinRelevance: 0.5})
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, 0.5)
	}
}

// S2 — Hybrid dominates: dense is available so auto resolves to hybrid.
func TestSearch_S2_AutoResolvesToHybridWhenDenseAvailable(t *testing.T) {
	now := time.Now()
	sessions := []store.SessionRecord{
		mustSession("r1", []string{"auth", "jwt", "bug"}, nil, nil, now),
		mustSession("r3", []string{"auth", "jwt"}, nil, nil, now.AddDate(0, 0, -1)),
	}
	gateway := newFakeGateway([]float32{1, 0})
	eng, logPath, corpusStore := newTestEngineWithStore(t, sessions, gateway)
	dir := filepath.Dir(logPath)
	wireDense(t, corpusStore, dir, 2, 2)

	results := eng.Search(context.Background(), "authentication token", Options{Mode: ModeAuto})
	require.NotEmpty(t, results)

	lines := readTelemetryLines(t, logPath)
	searchConfig, _ := lines[0]["search_config"].(map[string]any)
	assert.Equal(t, "hybrid", searchConfig["mode_resolved"])
}

// S6 — Degradation path: corpus has more sessions than the dense matrix
// has rows, so semantic scoring is skipped and hybrid degrades to bm25.
func TestSearch_S6_RowCountMismatchDegradesToBM25(t *testing.T) {
	now := time.Now()
	var sessions []store.SessionRecord
	for i := 0; i < 100; i++ {
		sessions = append(sessions, mustSession(string(rune('a'+i%26))+"-"+string(rune('0'+i/26)), []string{"auth"}, nil, nil, now))
	}
	gateway := newFakeGateway([]float32{1, 0})
	eng, logPath, corpusStore := newTestEngineWithStore(t, sessions, gateway)
	dir := filepath.Dir(logPath)
	wireDense(t, corpusStore, dir, 2, 99)

	results := eng.Search(context.Background(), "auth", Options{Mode: ModeHybrid, Limit: 100})
	require.NotEmpty(t, results)

	lines := readTelemetryLines(t, logPath)
	searchConfig, _ := lines[0]["search_config"].(map[string]any)
	assert.Equal(t, "hybrid", searchConfig["mode_resolved"], "requested resolution recorded before score-time degradation")
	perf, _ := lines[0]["performance"].(map[string]any)
	assert.Equal(t, true, perf["degraded"])
}

func TestResolveMode_Table(t *testing.T) {
	cases := []struct {
		requested      Mode
		denseAvailable bool
		wantResolved   Mode
		wantErr        string
	}{
		{ModeAuto, true, ModeHybrid, ""},
		{ModeAuto, false, ModeBM25, ""},
		{ModeHybrid, true, ModeHybrid, ""},
		{ModeHybrid, false, ModeBM25, ""},
		{ModeBM25, true, ModeBM25, ""},
		{ModeBM25, false, ModeBM25, ""},
		{ModeSemantic, true, ModeSemantic, ""},
		{ModeSemantic, false, "", "semantic_unavailable"},
		{ModeSimple, false, ModeSimple, ""},
		{"bogus", true, "", "invalid_mode"},
	}
	for _, c := range cases {
		resolved, errType := resolveMode(c.requested, c.denseAvailable)
		assert.Equal(t, c.wantResolved, resolved, "requested=%s dense=%v", c.requested, c.denseAvailable)
		assert.Equal(t, c.wantErr, errType, "requested=%s dense=%v", c.requested, c.denseAvailable)
	}
}

func TestTemporalScore_MissingCapturedAtIsNeutral(t *testing.T) {
	score := temporalScore(time.Time{}, time.Now())
	assert.Equal(t, 0.5, score)
}

func TestTemporalScore_DecaysWithAge(t *testing.T) {
	now := time.Now()
	recent := temporalScore(now, now)
	old := temporalScore(now.AddDate(0, 0, -60), now)
	assert.Greater(t, recent, old)
}
