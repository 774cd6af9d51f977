package telemetry

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Redactor is the subset of the Redactor (spec §4.A) the collector needs:
// redact raw query text before it reaches disk. Declared locally to avoid
// an import cycle with internal/redact, which does not depend on
// telemetry.
type Redactor interface {
	Redact(text string) (string, []RedactionFinding)
}

// RedactionFinding mirrors internal/redact.Finding's shape closely enough
// for the collector to log a finding count without importing the redact
// package's full type.
type RedactionFinding struct {
	PatternName string
	Category    string
}

// Collector implements the Telemetry Collector (spec §4.H): event
// lifecycle (start/update/end), a buffered JSONL writer, deep-merge patch
// semantics, and redaction on every query ingress path. Unlike the
// Python original's process-wide singleton, a Collector here is an
// explicitly owned handle constructed once at startup and passed to
// whatever needs it — no global mutable state.
type Collector struct {
	enabled  bool
	writer   *BatchedWriter
	redactor Redactor

	mu      sync.Mutex
	inFlight map[string]*Event
}

// New creates a Collector. If enabled is false, every method is a no-op
// and start_event-equivalents return "" in place of an event id, matching
// spec's "callers must tolerate None identifiers" rule. redactor may be
// nil (no redaction performed).
func New(enabled bool, writer *BatchedWriter, redactor Redactor) *Collector {
	return &Collector{
		enabled:  enabled,
		writer:   writer,
		redactor: redactor,
		inFlight: make(map[string]*Event),
	}
}

// StartEvent registers an in-flight event, redacts any query text found in
// fields, and returns its event id (or "" if telemetry is disabled).
func (c *Collector) StartEvent(eventType string, fields map[string]any) string {
	if !c.enabled {
		return ""
	}

	id := uuid.NewString()
	redacted := c.redactQueryFields(fields)

	event := &Event{
		EventID:   id,
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Fields:    redacted,
	}

	c.mu.Lock()
	c.inFlight[id] = event
	c.mu.Unlock()

	return id
}

// UpdateEvent deep-merges patch into the in-flight event identified by id.
// A missing or empty id is a silent no-op: callers that skipped
// StartEvent (telemetry disabled) must not need a nil check on every call.
func (c *Collector) UpdateEvent(id string, patch map[string]any) {
	if !c.enabled || id == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	event, ok := c.inFlight[id]
	if !ok {
		return
	}
	deepMerge(event.Fields, patch)
}

// EndEvent attaches outcome, appends the event to the write buffer, and
// drops it from the in-flight map.
func (c *Collector) EndEvent(id string, outcome map[string]any) error {
	if !c.enabled || id == "" {
		return nil
	}

	c.mu.Lock()
	event, ok := c.inFlight[id]
	if ok {
		delete(c.inFlight, id)
	}
	c.mu.Unlock()

	if !ok {
		return nil
	}

	if outcome != nil {
		if event.Fields == nil {
			event.Fields = make(map[string]any)
		}
		event.Fields["outcome"] = outcome
	}

	return c.writer.Append(*event)
}

// LogEvent writes a complete, self-contained event immediately — used for
// events with no start/update/end lifecycle.
func (c *Collector) LogEvent(eventType string, fields map[string]any) error {
	if !c.enabled {
		return nil
	}

	event := Event{
		EventID:   uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Fields:    c.redactQueryFields(fields),
	}
	return c.writer.Append(event)
}

// Flush pushes any buffered events to disk.
func (c *Collector) Flush() error {
	if !c.enabled {
		return nil
	}
	return c.writer.Flush()
}

// Close flushes on a best-effort basis. Callers should defer this at
// process shutdown instead of relying on GC finalization.
func (c *Collector) Close() error {
	if !c.enabled {
		return nil
	}
	return c.writer.Close()
}

// redactQueryFields redacts context["query"]["raw_query"] when query is a
// nested map, or context["query"] directly when it is a bare string,
// matching spec §4.H's "the query.raw_query field (or a bare query
// string) is redacted on every ingress path."
func (c *Collector) redactQueryFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	if c.redactor == nil {
		return fields
	}

	query, ok := fields["query"]
	if !ok {
		return fields
	}

	switch q := query.(type) {
	case string:
		redacted, _ := c.redactor.Redact(q)
		fields["query"] = redacted
	case map[string]any:
		if raw, ok := q["raw_query"].(string); ok {
			redacted, _ := c.redactor.Redact(raw)
			q["raw_query"] = redacted
		}
	}
	return fields
}

// deepMerge merges source into target in place, recursing into nested
// map[string]any values; any other value type in source overwrites the
// corresponding target key.
func deepMerge(target, source map[string]any) {
	for k, v := range source {
		if existing, ok := target[k]; ok {
			existingMap, existingIsMap := existing.(map[string]any)
			valueMap, valueIsMap := v.(map[string]any)
			if existingIsMap && valueIsMap {
				deepMerge(existingMap, valueMap)
				continue
			}
		}
		target[k] = v
	}
}
