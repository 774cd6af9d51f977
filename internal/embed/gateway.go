package embed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// LoadFunc constructs the backing Embedder on first use. It is invoked at
// most once per process: a failed load makes the Gateway sticky-false for
// the rest of the process lifetime, matching spec §4.E.
type LoadFunc func(ctx context.Context) (Embedder, error)

// Gateway is the Embedder Gateway (4.E): it exposes IsAvailable/Encode
// without forcing callers to know whether the backing model has loaded
// yet. Loading happens lazily on the first Encode call so plain BM25
// queries never pay the cold-start cost.
type Gateway struct {
	load  LoadFunc
	group singleflight.Group
	log   *slog.Logger

	mu      sync.RWMutex
	inner   Embedder
	loaded  bool
	failed  atomic.Bool
	warnOne sync.Once
}

// NewGateway creates a Gateway around the given loader. logger may be nil,
// in which case slog.Default() is used.
func NewGateway(load LoadFunc, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{load: load, log: logger}
}

// ensureLoaded runs the loader at most once, even under concurrent callers,
// via singleflight. Once failed, it short-circuits without retrying —
// "sticky-false until process restart" per spec.
func (g *Gateway) ensureLoaded(ctx context.Context) (Embedder, bool) {
	if g.failed.Load() {
		return nil, false
	}

	g.mu.RLock()
	if g.loaded {
		inner := g.inner
		g.mu.RUnlock()
		return inner, true
	}
	g.mu.RUnlock()

	result, err, _ := g.group.Do("load", func() (any, error) {
		g.mu.RLock()
		if g.loaded {
			inner := g.inner
			g.mu.RUnlock()
			return inner, nil
		}
		g.mu.RUnlock()

		emb, err := g.load(ctx)
		if err != nil {
			return nil, err
		}

		g.mu.Lock()
		g.inner = emb
		g.loaded = true
		g.mu.Unlock()
		return emb, nil
	})

	if err != nil {
		g.failed.Store(true)
		g.warnOne.Do(func() {
			g.log.Warn("embedder load failed, semantic search disabled for this process",
				slog.String("error", err.Error()))
		})
		return nil, false
	}

	return result.(Embedder), true
}

// IsAvailable reports whether semantic search can currently be served.
// Triggers the lazy load on first call.
func (g *Gateway) IsAvailable(ctx context.Context) bool {
	emb, ok := g.ensureLoaded(ctx)
	if !ok {
		return false
	}
	return emb.Available(ctx)
}

// Encode embeds text into a unit vector. Returns an error (never panics)
// if the model is unavailable or loading failed.
func (g *Gateway) Encode(ctx context.Context, text string) ([]float32, error) {
	emb, ok := g.ensureLoaded(ctx)
	if !ok {
		return nil, fmt.Errorf("embedder unavailable: model failed to load or was never configured")
	}
	return emb.Embed(ctx, text)
}

// EncodeBatch embeds multiple texts in one call, for corpus ingestion.
func (g *Gateway) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	emb, ok := g.ensureLoaded(ctx)
	if !ok {
		return nil, fmt.Errorf("embedder unavailable: model failed to load or was never configured")
	}
	return emb.EmbedBatch(ctx, texts)
}

// Dimensions returns the embedding dimension once loaded, or the package
// default (Dimensions) if the model has not loaded yet — callers that need
// the authoritative value after a confirmed load should prefer the loaded
// Embedder's own Dimensions().
func (g *Gateway) Dimensions() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.loaded {
		return g.inner.Dimensions()
	}
	return Dimensions
}

// Close releases the backing embedder, if loaded.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.loaded {
		return g.inner.Close()
	}
	return nil
}
