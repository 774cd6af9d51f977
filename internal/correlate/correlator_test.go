package correlate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	var content string
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFindRelatedEvents_MatchesByEventIDAndRecallEventID(t *testing.T) {
	dir := t.TempDir()
	telemetryPath := filepath.Join(dir, "recall_analytics.jsonl")
	qualityPath := filepath.Join(dir, "quality_scores.jsonl")

	writeLines(t, telemetryPath,
		`{"event_id":"abc","event_type":"recall_triggered","timestamp":"2026-01-01T00:00:00Z"}`,
		`{"event_id":"other","event_type":"recall_triggered","timestamp":"2026-01-01T00:01:00Z"}`,
	)
	writeLines(t, qualityPath,
		`{"recall_event_id":"abc","score":0.9,"timestamp":"2026-01-01T00:02:00Z"}`,
	)

	c := New()
	related, err := c.FindRelatedEvents("abc", LogSet{
		"recall_analytics": telemetryPath,
		"quality_scores":   qualityPath,
	})
	require.NoError(t, err)
	assert.Len(t, related["recall_analytics"], 1)
	assert.Len(t, related["quality_scores"], 1)
}

func TestFindRelatedEvents_MissingLogIsSkippedNotError(t *testing.T) {
	c := New()
	related, err := c.FindRelatedEvents("abc", LogSet{
		"gone": filepath.Join(t.TempDir(), "does_not_exist.jsonl"),
	})
	require.NoError(t, err)
	assert.Empty(t, related)
}

func TestBuildEventTimeline_SortsChronologicallyAcrossLogs(t *testing.T) {
	dir := t.TempDir()
	telemetryPath := filepath.Join(dir, "recall_analytics.jsonl")
	impactPath := filepath.Join(dir, "context_impact.jsonl")

	writeLines(t, telemetryPath,
		`{"event_id":"abc","event_type":"recall_triggered","timestamp":"2026-01-01T00:05:00Z"}`,
	)
	writeLines(t, impactPath,
		`{"recall_event_id":"abc","event_type":"context_impact","timestamp":"2026-01-01T00:01:00Z"}`,
	)

	c := New()
	timeline, err := c.BuildEventTimeline("abc", LogSet{
		"recall_analytics": telemetryPath,
		"context_impact":   impactPath,
	})
	require.NoError(t, err)
	require.Len(t, timeline, 2)
	assert.Equal(t, "context_impact", timeline[0].SourceLog)
	assert.Equal(t, "recall_analytics", timeline[1].SourceLog)
}

func TestGetEventChain_AssemblesAllThreeStages(t *testing.T) {
	dir := t.TempDir()
	telemetryPath := filepath.Join(dir, "recall_analytics.jsonl")
	impactPath := filepath.Join(dir, "context_impact.jsonl")
	qualityPath := filepath.Join(dir, "quality_scores.jsonl")

	writeLines(t, telemetryPath, `{"event_id":"abc","event_type":"recall_triggered"}`)
	writeLines(t, impactPath, `{"recall_event_id":"abc","impact":"high"}`)
	writeLines(t, qualityPath, `{"recall_event_id":"abc","score":0.8}`)

	c := New()
	chain, err := c.GetEventChain("abc", telemetryPath, impactPath, qualityPath)
	require.NoError(t, err)
	assert.NotNil(t, chain.Telemetry)
	assert.NotNil(t, chain.Impact)
	assert.NotNil(t, chain.Quality)
}

func TestGetEventChain_MissingDerivativeLogsAreOmitted(t *testing.T) {
	dir := t.TempDir()
	telemetryPath := filepath.Join(dir, "recall_analytics.jsonl")
	writeLines(t, telemetryPath, `{"event_id":"abc"}`)

	c := New()
	chain, err := c.GetEventChain("abc", telemetryPath, "", "")
	require.NoError(t, err)
	assert.NotNil(t, chain.Telemetry)
	assert.Nil(t, chain.Impact)
	assert.Nil(t, chain.Quality)
}

func TestFindSessionEvents_FiltersBySessionID(t *testing.T) {
	dir := t.TempDir()
	telemetryPath := filepath.Join(dir, "recall_analytics.jsonl")
	writeLines(t, telemetryPath,
		`{"session_id":"s1","event_type":"a"}`,
		`{"session_id":"s2","event_type":"b"}`,
		`{"session_id":"s1","event_type":"c"}`,
	)

	c := New()
	events, err := c.FindSessionEvents("s1", telemetryPath)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestGetEventCountByType_CountsAndDefaultsUnknown(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recall_analytics.jsonl")
	writeLines(t, path,
		`{"event_type":"recall_triggered"}`,
		`{"event_type":"recall_triggered"}`,
		`{}`,
	)

	c := New()
	counts, err := c.GetEventCountByType(path)
	require.NoError(t, err)
	assert.Equal(t, 2, counts["recall_triggered"])
	assert.Equal(t, 1, counts["unknown"])
}

func TestGetEventCountByType_MissingLogYieldsEmptyMap(t *testing.T) {
	c := New()
	counts, err := c.GetEventCountByType(filepath.Join(t.TempDir(), "missing.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, counts)
}
