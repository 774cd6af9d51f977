// Package config resolves the engine's configuration through three
// layers, lowest priority first: built-in defaults, a JSON file on disk,
// and RECALL_* environment variables. Every section is addressable by a
// dotted key (e.g. "telemetry.batch_size").
package config

import (
	"encoding/json"
	"os"

	recallerrors "github.com/amancerp/recall/internal/errors"
)

// TelemetryConfig configures the Telemetry Collector (spec §4.H, §6.4).
type TelemetryConfig struct {
	Enabled          bool   `json:"enabled"`
	LogPath          string `json:"log_path"`
	BatchSize        int    `json:"batch_size"`
	FlushIntervalSec int    `json:"flush_interval_sec"`
	PIIRedaction     bool   `json:"pii_redaction"`
}

// BM25Params tunes the Okapi BM25 scorer (spec §4.C).
type BM25Params struct {
	K1 float64 `json:"k1"`
	B  float64 `json:"b"`
}

// HybridWeights weights BM25 against dense scores in hybrid mode.
type HybridWeights struct {
	BM25Weight  float64 `json:"bm25_weight"`
	DenseWeight float64 `json:"dense_weight"`
}

// BM25TemporalWeights weights BM25 against the temporal score in
// bm25-only mode.
type BM25TemporalWeights struct {
	BM25Weight     float64 `json:"bm25_weight"`
	TemporalWeight float64 `json:"temporal_weight"`
}

// RetrievalConfig configures the Search Engine (spec §4.F, §6.4).
type RetrievalConfig struct {
	DefaultMode          string              `json:"default_mode"`
	DefaultLimit         int                 `json:"default_limit"`
	TemporalHalfLifeDays float64             `json:"temporal_half_life_days"`
	BM25                 BM25Params          `json:"bm25"`
	Hybrid               HybridWeights       `json:"hybrid"`
	BM25Temporal         BM25TemporalWeights `json:"bm25_temporal"`
}

// EntropyConfig tunes the Redactor's entropy fallback pass.
type EntropyConfig struct {
	Enabled   bool    `json:"enabled"`
	MinLength int     `json:"min_length"`
	Threshold float64 `json:"threshold"`
}

// RedactionConfig configures the Redactor (spec §4.A, §6.4).
type RedactionConfig struct {
	Entropy       EntropyConfig `json:"entropy"`
	PatternsPath  string        `json:"patterns_path"`
	WhitelistPath string        `json:"whitelist_path"`
}

// Config is the fully-resolved configuration document.
type Config struct {
	Telemetry TelemetryConfig `json:"telemetry"`
	Retrieval RetrievalConfig `json:"retrieval"`
	Redaction RedactionConfig `json:"redaction"`
}

// Defaults returns the built-in configuration, the lowest-priority layer
// in the resolution order.
func Defaults() *Config {
	return &Config{
		Telemetry: TelemetryConfig{
			Enabled:          true,
			LogPath:          "recall_telemetry.jsonl",
			BatchSize:        20,
			FlushIntervalSec: 30,
			PIIRedaction:     true,
		},
		Retrieval: RetrievalConfig{
			DefaultMode:          "auto",
			DefaultLimit:         10,
			TemporalHalfLifeDays: 30,
			BM25:                 BM25Params{K1: 1.5, B: 0.75},
			Hybrid:               HybridWeights{BM25Weight: 0.5, DenseWeight: 0.5},
			BM25Temporal:         BM25TemporalWeights{BM25Weight: 0.7, TemporalWeight: 0.3},
		},
		Redaction: RedactionConfig{
			Entropy: EntropyConfig{Enabled: true, MinLength: 16, Threshold: 4.5},
		},
	}
}

// Load resolves a Config by layering defaults, an optional JSON file at
// path, and RECALL_* environment overrides, in that order. A missing
// file is not an error — it simply means the file layer contributes
// nothing.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// mergeFile overlays a JSON file's contents onto cfg. Unmarshaling into
// the already-populated struct leaves any key the file omits at its
// current (default) value, which is what "file overrides defaults"
// means in a layered resolver.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return recallerrors.Wrap(recallerrors.ErrCodeConfigMalformed, err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return recallerrors.Wrap(recallerrors.ErrCodeConfigMalformed, err)
	}
	return nil
}
