// Package correlate links related events across the telemetry log and its
// derivative logs (impact analysis, quality scoring), all read-only and
// best-effort: a missing log file is skipped, never an error.
package correlate

import (
	"bufio"
	"encoding/json"
	"os"
	"sort"
)

// TimestampedEvent is one raw JSONL record, annotated with the log it came
// from so a merged timeline can show provenance.
type TimestampedEvent struct {
	Fields    map[string]any `json:"-"`
	SourceLog string         `json:"_source_log"`
}

// MarshalJSON flattens Fields alongside _source_log, mirroring the
// telemetry package's own flattening of its Event type.
func (e TimestampedEvent) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Fields)+1)
	for k, v := range e.Fields {
		out[k] = v
	}
	out["_source_log"] = e.SourceLog
	return json.Marshal(out)
}

func (e TimestampedEvent) timestamp() string {
	return stringField(e.Fields, "timestamp")
}

func stringField(fields map[string]any, key string) string {
	v, ok := fields[key].(string)
	if !ok {
		return ""
	}
	return v
}

// Correlator reads JSONL event logs on demand. It holds no state of its
// own and caches nothing, so every call reflects the log files as they
// currently are on disk.
type Correlator struct{}

// New constructs a Correlator.
func New() *Correlator {
	return &Correlator{}
}

// matches reports whether an event is tied to eventID via either the
// event_id or recall_event_id field — the correlation key every derivative
// log uses to point back at the telemetry event that caused it.
func matches(fields map[string]any, eventID string) bool {
	return stringField(fields, "event_id") == eventID || stringField(fields, "recall_event_id") == eventID
}

// readLog reads every JSONL record in path for which keep returns true.
// A missing file yields an empty, non-error result: logs are scanned
// best-effort, since not every derivative log is guaranteed to exist.
func readLog(path string, keep func(map[string]any) bool) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []map[string]any
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var fields map[string]any
		if err := json.Unmarshal(line, &fields); err != nil {
			continue
		}
		if keep == nil || keep(fields) {
			out = append(out, fields)
		}
	}
	if err := scanner.Err(); err != nil {
		return out, err
	}
	return out, nil
}

// LogSet names the logs a correlation spans, keyed by log name (e.g.
// "recall_analytics") as it would appear from the file's stem.
type LogSet map[string]string

// FindRelatedEvents scans every named log for events whose event_id or
// recall_event_id equals eventID, returning only the logs that had a hit.
func (c *Correlator) FindRelatedEvents(eventID string, logs LogSet) (map[string][]map[string]any, error) {
	related := make(map[string][]map[string]any)
	for name, path := range logs {
		events, err := readLog(path, func(f map[string]any) bool { return matches(f, eventID) })
		if err != nil {
			return nil, err
		}
		if len(events) > 0 {
			related[name] = events
		}
	}
	return related, nil
}

// BuildEventTimeline merges matching events from every named log into one
// chronologically sorted timeline, each event annotated with its source
// log name.
func (c *Correlator) BuildEventTimeline(eventID string, logs LogSet) ([]TimestampedEvent, error) {
	var all []TimestampedEvent
	for name, path := range logs {
		events, err := readLog(path, func(f map[string]any) bool { return matches(f, eventID) })
		if err != nil {
			return nil, err
		}
		for _, e := range events {
			all = append(all, TimestampedEvent{Fields: e, SourceLog: name})
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].timestamp() < all[j].timestamp()
	})
	return all, nil
}

// EventChain is the telemetry -> impact -> quality chain for one root
// event, each stage present only if a matching record was found.
type EventChain struct {
	Telemetry map[string]any
	Impact    map[string]any
	Quality   map[string]any
}

// GetEventChain follows a root telemetry event through its derivative
// impact-analysis and quality-scoring records, if those logs are given
// and contain a matching record.
func (c *Correlator) GetEventChain(eventID, telemetryLog, impactLog, qualityLog string) (EventChain, error) {
	var chain EventChain

	telemetryEvents, err := readLog(telemetryLog, func(f map[string]any) bool {
		return stringField(f, "event_id") == eventID
	})
	if err != nil {
		return chain, err
	}
	if len(telemetryEvents) > 0 {
		chain.Telemetry = telemetryEvents[0]
	}

	if impactLog != "" {
		impactEvents, err := readLog(impactLog, func(f map[string]any) bool {
			return stringField(f, "recall_event_id") == eventID
		})
		if err != nil {
			return chain, err
		}
		if len(impactEvents) > 0 {
			chain.Impact = impactEvents[0]
		}
	}

	if qualityLog != "" {
		qualityEvents, err := readLog(qualityLog, func(f map[string]any) bool {
			return stringField(f, "recall_event_id") == eventID
		})
		if err != nil {
			return chain, err
		}
		if len(qualityEvents) > 0 {
			chain.Quality = qualityEvents[0]
		}
	}

	return chain, nil
}

// FindSessionEvents returns every telemetry event recorded for sessionID.
func (c *Correlator) FindSessionEvents(sessionID, telemetryLog string) ([]map[string]any, error) {
	return readLog(telemetryLog, func(f map[string]any) bool {
		return stringField(f, "session_id") == sessionID
	})
}

// GetEventCountByType returns a histogram of event_type over a log file.
// Records missing event_type are counted under "unknown".
func (c *Correlator) GetEventCountByType(logPath string) (map[string]int, error) {
	events, err := readLog(logPath, nil)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, e := range events {
		t := stringField(e, "event_type")
		if t == "" {
			t = "unknown"
		}
		counts[t]++
	}
	return counts, nil
}
