package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	recallerrors "github.com/amancerp/recall/internal/errors"
)

// ListFilter narrows CorpusStore.List (and the Search Engine's filter
// step) to sessions matching a path scope, session_id substring, and/or
// topic set membership. All three are AND-ed together; each is skipped
// when left at its zero value.
type ListFilter struct {
	Scope            string
	SessionSubstring string
	Topics           []string
}

// Matches reports whether s satisfies every non-zero field of f.
func (f ListFilter) Matches(s *SessionRecord) bool {
	if f.Scope != "" {
		found := false
		for _, path := range s.FilesModified {
			if strings.HasPrefix(path, f.Scope) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.SessionSubstring != "" && !strings.Contains(s.SessionID, f.SessionSubstring) {
		return false
	}
	if len(f.Topics) > 0 {
		found := false
		for _, t := range f.Topics {
			if s.HasTopic(t) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// CorpusStore is the Corpus Store (spec §4.B): a durable mapping from
// session_id to SessionRecord, persisted as a single JSON document (plus
// a dense-matrix sidecar, see dense.go) with atomic write-and-rename and
// mtime-triggered reload.
type CorpusStore struct {
	path string

	mu       sync.RWMutex
	index    CorpusIndex
	byID     map[string]int
	modTime  time.Time
	watcher  *fsnotify.Watcher
	watchErr error
}

// NewCorpusStore opens (or initializes) a corpus at path. A missing file
// yields an empty corpus per spec's "missing persistent files -> empty
// corpus" failure semantics, not an error.
func NewCorpusStore(path string) (*CorpusStore, error) {
	s := &CorpusStore{
		path: path,
		byID: make(map[string]int),
	}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// WatchForChanges starts an fsnotify watch on the corpus path so readers
// re-read on mtime change in addition to on explicit Reload. The watcher
// runs until Close is called; watch failures are logged by the caller,
// never fatal — the store still works via explicit Reload.
func (s *CorpusStore) WatchForChanges() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create corpus watcher: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch corpus directory: %w", err)
	}

	s.mu.Lock()
	s.watcher = watcher
	s.mu.Unlock()

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(s.path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					_ = s.reload()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.mu.Lock()
				s.watchErr = err
				s.mu.Unlock()
			}
		}
	}()

	return nil
}

// Close stops the change watcher, if running.
func (s *CorpusStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

// Ingest upserts a SessionRecord by SessionID: full replace of tokens and
// embedding row, recomputing BM25Stats from scratch (spec requires an
// atomic snapshot swap on rebuild, which a from-scratch recompute trivially
// satisfies at this corpus size).
func (s *CorpusStore) Ingest(record SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, ok := s.byID[record.SessionID]; ok {
		s.index.Sessions[idx] = record
	} else {
		s.index.Sessions = append([]SessionRecord{record}, s.index.Sessions...)
		s.rebuildIndexLocked()
	}

	s.recomputeBM25Locked()
	s.index.LastUpdated = time.Now().UTC()

	return s.persistLocked()
}

// SetDense records the dense sidecar's metadata (model, dim, row count,
// path) against the corpus index and persists it. Callers are expected to
// have already written the sidecar file itself via SaveDenseMatrix and to
// keep EmbeddingSlot assignments on Sessions in sync with its row order.
func (s *CorpusStore) SetDense(meta DenseMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.index.Dense = meta
	s.index.LastUpdated = time.Now().UTC()
	return s.persistLocked()
}

// LoadSnapshot returns an atomic, internally-consistent copy of the corpus.
func (s *CorpusStore) LoadSnapshot() CorpusIndex {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cloneLocked()
}

// List returns sessions matching filter, newest captured_at first.
func (s *CorpusStore) List(filter ListFilter) []SessionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]SessionRecord, 0, len(s.index.Sessions))
	for i := range s.index.Sessions {
		if filter.Matches(&s.index.Sessions[i]) {
			out = append(out, s.index.Sessions[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CapturedAt.After(out[j].CapturedAt)
	})
	return out
}

// Reload forces a re-read from disk, independent of the mtime watch.
func (s *CorpusStore) Reload() error {
	return s.reload()
}

func (s *CorpusStore) reload() error {
	info, err := os.Stat(s.path)
	if os.IsNotExist(err) {
		s.mu.Lock()
		s.index = CorpusIndex{Sessions: []SessionRecord{}, BM25: BM25Stats{DocFreq: map[string]int{}, IDF: map[string]float64{}}}
		s.byID = make(map[string]int)
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		return recallerrors.Wrap(recallerrors.ErrCodeSnapshotUnreadable, err)
	}

	s.mu.RLock()
	unchanged := !info.ModTime().After(s.modTime) && !s.modTime.IsZero()
	s.mu.RUnlock()
	if unchanged {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return recallerrors.Wrap(recallerrors.ErrCodeSnapshotUnreadable, err)
	}

	var idx CorpusIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return recallerrors.Wrap(recallerrors.ErrCodeIndexMalformed, err)
	}

	s.mu.Lock()
	s.index = idx
	s.modTime = info.ModTime()
	s.rebuildIndexLocked()
	s.mu.Unlock()
	return nil
}

func (s *CorpusStore) rebuildIndexLocked() {
	s.byID = make(map[string]int, len(s.index.Sessions))
	for i, sess := range s.index.Sessions {
		s.byID[sess.SessionID] = i
	}
}

func (s *CorpusStore) cloneLocked() CorpusIndex {
	sessions := make([]SessionRecord, len(s.index.Sessions))
	copy(sessions, s.index.Sessions)

	docLen := make([]int, len(s.index.BM25.DocLen))
	copy(docLen, s.index.BM25.DocLen)

	docFreq := make(map[string]int, len(s.index.BM25.DocFreq))
	for k, v := range s.index.BM25.DocFreq {
		docFreq[k] = v
	}
	idf := make(map[string]float64, len(s.index.BM25.IDF))
	for k, v := range s.index.BM25.IDF {
		idf[k] = v
	}

	return CorpusIndex{
		Version:     s.index.Version,
		LastUpdated: s.index.LastUpdated,
		Sessions:    sessions,
		BM25: BM25Stats{
			DocLen:  docLen,
			AvgDL:   s.index.BM25.AvgDL,
			DocFreq: docFreq,
			IDF:     idf,
		},
		Dense: s.index.Dense,
	}
}

func (s *CorpusStore) persistLocked() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create corpus directory: %w", err)
	}

	data, err := json.MarshalIndent(s.index, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal corpus index: %w", err)
	}

	tmpPath := s.path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open corpus temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write corpus temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("sync corpus temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close corpus temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename corpus file into place: %w", err)
	}

	if info, err := os.Stat(s.path); err == nil {
		s.modTime = info.ModTime()
	}
	return nil
}
