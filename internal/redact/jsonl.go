package redact

import (
	"encoding/json"
	"strings"
)

// RedactJSONL redacts secrets from JSONL-formatted transcript data,
// processing each line independently to preserve JSON structure and
// touching only each entry's "content" field (a string, or a list of
// {"text": ...} blocks) — spec's "JSONL-aware redaction touching only
// content fields."
func (r *Redactor) RedactJSONL(jsonlText string) (string, Report) {
	aggregate := Report{TextLength: len(jsonlText)}
	lines := strings.Split(jsonlText, "\n")
	out := make([]string, len(lines))

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			out[i] = line
			continue
		}

		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			redactedLine, lineReport := r.Redact(line)
			out[i] = redactedLine
			mergeReport(&aggregate, lineReport, i+1)
			continue
		}

		switch content := entry["content"].(type) {
		case string:
			if content != "" {
				redactedContent, lineReport := r.Redact(content)
				entry["content"] = redactedContent
				mergeReport(&aggregate, lineReport, i+1)
			}
		case []any:
			for _, blockAny := range content {
				block, ok := blockAny.(map[string]any)
				if !ok {
					continue
				}
				text, ok := block["text"].(string)
				if !ok || text == "" {
					continue
				}
				redactedText, blockReport := r.Redact(text)
				block["text"] = redactedText
				mergeReport(&aggregate, blockReport, i+1)
			}
		}

		encoded, err := json.Marshal(entry)
		if err != nil {
			out[i] = line
			continue
		}
		out[i] = string(encoded)
	}

	return strings.Join(out, "\n"), aggregate
}

func mergeReport(aggregate *Report, lineReport Report, lineNum int) {
	for _, f := range lineReport.Findings {
		f.LineNumber = lineNum
		aggregate.Findings = append(aggregate.Findings, f)
	}
	aggregate.TotalFindings += lineReport.TotalFindings
	aggregate.HighConfidence += lineReport.HighConfidence
	aggregate.MediumConfidence += lineReport.MediumConfidence
}
