// Package main is a thin wiring entrypoint for the recall engine. It is
// not a product surface: the CLI argument surface is out of scope, so it
// takes only a config path, constructs every component, runs one search
// against stdin, and prints the ranked results as JSON.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/amancerp/recall/internal/config"
	recallcontext "github.com/amancerp/recall/internal/context"
	"github.com/amancerp/recall/internal/embed"
	"github.com/amancerp/recall/internal/logging"
	"github.com/amancerp/recall/internal/redact"
	"github.com/amancerp/recall/internal/search"
	"github.com/amancerp/recall/internal/store"
	"github.com/amancerp/recall/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		slog.Error("recall exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "path to a JSON config file (optional; built-in defaults apply otherwise)")
		dataDir    = flag.String("data-dir", ".recall", "directory holding the corpus document, dense sidecar, and telemetry log")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, cleanup, err := logging.Setup(logging.DefaultConfig())
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer cleanup()
	slog.SetDefault(logger)

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	corpus, err := store.NewCorpusStore(filepath.Join(*dataDir, "corpus.json"))
	if err != nil {
		return fmt.Errorf("open corpus store: %w", err)
	}
	defer func() { _ = corpus.Close() }()

	redactor := redact.New(redact.WithEntropyThreshold(cfg.Redaction.Entropy.MinLength, cfg.Redaction.Entropy.Threshold))

	telemetryPath := cfg.Telemetry.LogPath
	if !filepath.IsAbs(telemetryPath) {
		telemetryPath = filepath.Join(*dataDir, telemetryPath)
	}
	flushInterval := time.Duration(cfg.Telemetry.FlushIntervalSec) * time.Second
	writer := telemetry.NewBatchedWriter(telemetryPath, cfg.Telemetry.BatchSize, flushInterval)
	defer func() { _ = writer.Close() }()

	var collectorRedactor telemetry.Redactor
	if cfg.Telemetry.PIIRedaction {
		collectorRedactor = redactAdapter{redactor}
	}
	collector := telemetry.New(cfg.Telemetry.Enabled, writer, collectorRedactor)
	defer func() { _ = collector.Close() }()

	gateway := embed.NewGateway(func(ctx context.Context) (embed.Embedder, error) {
		return embed.NewCachedEmbedderWithDefaults(embed.NewStaticEmbedder()), nil
	}, logger)
	defer func() { _ = gateway.Close() }()

	engine := search.New(corpus, gateway, collector, cfg, logger)
	analyzer := recallcontext.New()

	query, err := readQuery(os.Stdin)
	if err != nil {
		return fmt.Errorf("read query: %w", err)
	}
	if query == "" {
		return fmt.Errorf("empty query on stdin")
	}

	ctx := context.Background()
	analysis := analyzer.Analyze(query)
	results := engine.Search(ctx, analysis.SearchQuery, search.Options{
		Mode:  search.Mode(cfg.Retrieval.DefaultMode),
		Limit: cfg.Retrieval.DefaultLimit,
	})

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// readQuery reads a single newline-terminated query from r, trimming
// surrounding whitespace.
func readQuery(r *os.File) (string, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		return "", scanner.Err()
	}
	return strings.TrimSpace(scanner.Text()), nil
}

// redactAdapter satisfies telemetry.Redactor by discarding the full
// redact.Report down to the minimal finding shape the collector needs.
// It lives here, not in internal/redact, because internal/redact must not
// depend on internal/telemetry (see telemetry.Redactor's doc comment).
type redactAdapter struct {
	inner *redact.Redactor
}

func (a redactAdapter) Redact(text string) (string, []telemetry.RedactionFinding) {
	redacted, report := a.inner.Redact(text)
	findings := make([]telemetry.RedactionFinding, len(report.Findings))
	for i, f := range report.Findings {
		findings[i] = telemetry.RedactionFinding{PatternName: f.PatternName, Category: f.Category}
	}
	return redacted, findings
}
