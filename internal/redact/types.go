// Package redact is the Redactor (spec §4.A): finds and masks secret-shaped
// substrings before any user text reaches a persistent store, including
// the telemetry query field. Detection runs in two passes — an ordered
// regex pattern catalog with whitelist precedence, then a Shannon-entropy
// fallback over whatever the patterns didn't already cover.
package redact

// Finding is one secret detection (spec §3 RedactionFinding).
//
// Invariant: Evidence never contains the full original secret substring;
// for candidates shorter than six characters the evidence is
// "prefix + '***'" with no suffix.
type Finding struct {
	PatternName string `json:"pattern_name"`
	Category    string `json:"category"`
	Confidence  string `json:"confidence"` // "high" or "medium"
	Evidence    string `json:"evidence"`
	LineNumber  int    `json:"line_number"`
	CharStart   int    `json:"char_start"`
	CharEnd     int    `json:"char_end"`
}

// Confidence levels.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
)

// Report summarizes one redact() call.
type Report struct {
	TotalFindings    int       `json:"total_findings"`
	HighConfidence   int       `json:"high_confidence"`
	MediumConfidence int       `json:"medium_confidence"`
	Findings         []Finding `json:"findings"`
	TextLength       int       `json:"text_length"`
}
