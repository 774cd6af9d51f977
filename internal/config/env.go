package config

import (
	"os"
	"strconv"
	"strings"
)

// envOverrides is the static table of RECALL_* environment variables,
// each mapped to a setter that parses its raw string value onto the
// config. Listed in the same order as the dotted keys they override.
var envOverrides = []struct {
	envVar string
	apply  func(c *Config, raw string)
}{
	{"RECALL_TELEMETRY_ENABLED", func(c *Config, raw string) { c.Telemetry.Enabled = parseBoolLoose(raw) }},
	{"RECALL_TELEMETRY_LOG_PATH", func(c *Config, raw string) { c.Telemetry.LogPath = raw }},
	{"RECALL_TELEMETRY_BATCH_SIZE", func(c *Config, raw string) { setInt(&c.Telemetry.BatchSize, raw) }},
	{"RECALL_TELEMETRY_FLUSH_INTERVAL_SEC", func(c *Config, raw string) { setInt(&c.Telemetry.FlushIntervalSec, raw) }},
	{"RECALL_TELEMETRY_PII_REDACTION", func(c *Config, raw string) { c.Telemetry.PIIRedaction = parseBoolLoose(raw) }},

	{"RECALL_RETRIEVAL_DEFAULT_MODE", func(c *Config, raw string) { c.Retrieval.DefaultMode = raw }},
	{"RECALL_RETRIEVAL_DEFAULT_LIMIT", func(c *Config, raw string) { setInt(&c.Retrieval.DefaultLimit, raw) }},
	{"RECALL_RETRIEVAL_TEMPORAL_HALF_LIFE_DAYS", func(c *Config, raw string) { setFloat(&c.Retrieval.TemporalHalfLifeDays, raw) }},
	{"RECALL_RETRIEVAL_BM25_K1", func(c *Config, raw string) { setFloat(&c.Retrieval.BM25.K1, raw) }},
	{"RECALL_RETRIEVAL_BM25_B", func(c *Config, raw string) { setFloat(&c.Retrieval.BM25.B, raw) }},
	{"RECALL_RETRIEVAL_HYBRID_BM25_WEIGHT", func(c *Config, raw string) { setFloat(&c.Retrieval.Hybrid.BM25Weight, raw) }},
	{"RECALL_RETRIEVAL_HYBRID_DENSE_WEIGHT", func(c *Config, raw string) { setFloat(&c.Retrieval.Hybrid.DenseWeight, raw) }},
	{"RECALL_RETRIEVAL_BM25_TEMPORAL_BM25_WEIGHT", func(c *Config, raw string) { setFloat(&c.Retrieval.BM25Temporal.BM25Weight, raw) }},
	{"RECALL_RETRIEVAL_BM25_TEMPORAL_TEMPORAL_WEIGHT", func(c *Config, raw string) { setFloat(&c.Retrieval.BM25Temporal.TemporalWeight, raw) }},

	{"RECALL_REDACTION_ENTROPY_ENABLED", func(c *Config, raw string) { c.Redaction.Entropy.Enabled = parseBoolLoose(raw) }},
	{"RECALL_REDACTION_ENTROPY_MIN_LENGTH", func(c *Config, raw string) { setInt(&c.Redaction.Entropy.MinLength, raw) }},
	{"RECALL_REDACTION_ENTROPY_THRESHOLD", func(c *Config, raw string) { setFloat(&c.Redaction.Entropy.Threshold, raw) }},
	{"RECALL_REDACTION_PATTERNS_PATH", func(c *Config, raw string) { c.Redaction.PatternsPath = raw }},
	{"RECALL_REDACTION_WHITELIST_PATH", func(c *Config, raw string) { c.Redaction.WhitelistPath = raw }},
}

// applyEnvOverrides applies every set RECALL_* environment variable on
// top of c, the highest-priority layer in the resolution order.
func (c *Config) applyEnvOverrides() {
	for _, o := range envOverrides {
		if raw, ok := os.LookupEnv(o.envVar); ok {
			o.apply(c, raw)
		}
	}
}

// parseBoolLoose accepts "true", "1", "yes" (case-insensitive) as true
// and everything else as false, per spec §6.4.
func parseBoolLoose(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

// setInt parses raw as an int and assigns it to dst, leaving dst
// unchanged if raw does not parse. A malformed override is bad input,
// not a crash.
func setInt(dst *int, raw string) {
	if v, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
		*dst = v
	}
}

// setFloat parses raw as a float64 and assigns it to dst, leaving dst
// unchanged if raw does not parse.
func setFloat(dst *float64, raw string) {
	if v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
		*dst = v
	}
}
