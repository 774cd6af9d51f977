package redact

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// entropyConfig tunes the Shannon-entropy fallback pass.
type entropyConfig struct {
	enabled   bool
	minLength int
	threshold float64
}

func defaultEntropyConfig() entropyConfig {
	return entropyConfig{enabled: true, minLength: 16, threshold: 4.5}
}

// Redactor detects and masks secret-shaped substrings. The zero value is
// not usable; construct with New.
type Redactor struct {
	patterns  []pattern
	whitelist []whitelistEntry
	entropy   entropyConfig
}

// Option configures a Redactor at construction time.
type Option func(*Redactor)

// WithPatterns overrides the default pattern catalog.
func WithPatterns(patterns []pattern) Option {
	return func(r *Redactor) { r.patterns = patterns }
}

// WithEntropyThreshold overrides the default entropy fallback threshold
// (bits per character) and minimum candidate length.
func WithEntropyThreshold(minLength int, threshold float64) Option {
	return func(r *Redactor) {
		r.entropy.minLength = minLength
		r.entropy.threshold = threshold
	}
}

// WithEntropyDisabled turns off the entropy fallback pass entirely,
// leaving only the regex pattern catalog.
func WithEntropyDisabled() Option {
	return func(r *Redactor) { r.entropy.enabled = false }
}

// New constructs a Redactor with the default pattern catalog, whitelist,
// and entropy configuration, overridden by any options given.
func New(opts ...Option) *Redactor {
	r := &Redactor{
		patterns:  defaultPatterns(),
		whitelist: defaultWhitelist(),
		entropy:   defaultEntropyConfig(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type detection struct {
	start, end int
	name       string
	category   string
	confidence string
	matchText  string
}

// Redact scans text for secrets, returning the redacted text and a report
// of everything found. Regex detections take priority over entropy
// detections in any overlapping region.
func (r *Redactor) Redact(text string) (string, Report) {
	report := Report{TextLength: len(text)}
	if text == "" {
		return text, report
	}

	regexDetections := r.detectByPatterns(text)
	entropyDetections := r.detectByEntropy(text)

	covered := make(map[int]bool)
	for _, d := range regexDetections {
		for i := d.start; i < d.end; i++ {
			covered[i] = true
		}
	}

	all := append([]detection{}, regexDetections...)
	for _, d := range entropyDetections {
		overlap := false
		for i := d.start; i < d.end; i++ {
			if covered[i] {
				overlap = true
				break
			}
		}
		if !overlap {
			all = append(all, d)
		}
	}

	// Sort descending by start so replacement from end to start never
	// invalidates earlier byte offsets.
	sort.Slice(all, func(i, j int) bool { return all[i].start > all[j].start })

	deduped := make([]detection, 0, len(all))
	coveredUpTo := len(text)
	for _, d := range all {
		if d.end <= coveredUpTo {
			deduped = append(deduped, d)
			coveredUpTo = d.start
		}
	}

	redacted := text
	for _, d := range deduped {
		evidence := truncateEvidence(d.matchText)
		finding := Finding{
			PatternName: d.name,
			Category:    d.category,
			Confidence:  d.confidence,
			Evidence:    evidence,
			CharStart:   d.start,
			CharEnd:     d.end,
		}
		report.Findings = append(report.Findings, finding)
		if d.confidence == ConfidenceHigh {
			report.HighConfidence++
		} else {
			report.MediumConfidence++
		}

		placeholder := fmt.Sprintf("[REDACTED:%s]", d.name)
		redacted = redacted[:d.start] + placeholder + redacted[d.end:]
	}
	report.TotalFindings = len(report.Findings)

	assignLineNumbers(text, report.Findings)
	return redacted, report
}

func (r *Redactor) detectByPatterns(text string) []detection {
	var out []detection
	for _, p := range r.patterns {
		for _, loc := range p.regex.FindAllStringIndex(text, -1) {
			matchText := text[loc[0]:loc[1]]
			if r.isWhitelisted(matchText) {
				continue
			}
			out = append(out, detection{
				start:      loc[0],
				end:        loc[1],
				name:       p.name,
				category:   p.category,
				confidence: p.confidence,
				matchText:  matchText,
			})
		}
	}
	return out
}

func (r *Redactor) detectByEntropy(text string) []detection {
	if !r.entropy.enabled {
		return nil
	}

	var out []detection
	for _, loc := range tokenCandidateRegex.FindAllStringIndex(text, -1) {
		candidate := text[loc[0]:loc[1]]
		if len(candidate) < r.entropy.minLength {
			continue
		}
		if r.isWhitelisted(candidate) {
			continue
		}
		entropy := shannonEntropy(candidate)
		if entropy < r.entropy.threshold {
			continue
		}
		out = append(out, detection{
			start:      loc[0],
			end:        loc[1],
			name:       fmt.Sprintf("High-Entropy String (H=%.2f)", entropy),
			category:   "entropy",
			confidence: ConfidenceMedium,
			matchText:  candidate,
		})
	}
	return out
}

func (r *Redactor) isWhitelisted(matchText string) bool {
	for _, w := range r.whitelist {
		if w.regex.MatchString(matchText) {
			return true
		}
	}
	return false
}

// truncateEvidence shows prefix + "***" + suffix, total length <= 24.
// Candidates shorter than six characters get "prefix + '***'" with no
// suffix, so a two-character secret never yields more signal than it hid.
func truncateEvidence(matchText string) string {
	const maxLen = 24
	if len(matchText) <= 6 {
		prefixLen := 2
		if len(matchText) < prefixLen {
			prefixLen = len(matchText)
		}
		return matchText[:prefixLen] + "***"
	}

	if len(matchText) <= maxLen {
		prefixLen := min(4, len(matchText)/3)
		suffixLen := min(3, len(matchText)/4)
		return matchText[:prefixLen] + "***" + matchText[len(matchText)-suffixLen:]
	}

	prefixLen := min(6, maxLen/3)
	suffixLen := min(4, maxLen/4)
	return matchText[:prefixLen] + "***" + matchText[len(matchText)-suffixLen:]
}

// shannonEntropy computes bits of entropy per character.
func shannonEntropy(text string) float64 {
	if text == "" {
		return 0
	}
	freq := make(map[rune]int)
	for _, r := range text {
		freq[r]++
	}
	length := float64(len(text))
	var entropy float64
	for _, count := range freq {
		p := float64(count) / length
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// assignLineNumbers stamps each finding's LineNumber based on its position
// in the original (pre-redaction) text.
func assignLineNumbers(text string, findings []Finding) {
	lineStarts := []int{0}
	for i, ch := range text {
		if ch == '\n' {
			lineStarts = append(lineStarts, i+1)
		}
	}

	for i := range findings {
		f := &findings[i]
		f.LineNumber = len(lineStarts)
		for lineNum, start := range lineStarts {
			if start > f.CharStart {
				f.LineNumber = lineNum
				break
			}
		}
	}
}

// IsProbablySecret is a convenience check used by callers (e.g. the
// Context Analyzer) that want a cheap yes/no without a full Report.
func (r *Redactor) IsProbablySecret(candidate string) bool {
	if strings.TrimSpace(candidate) == "" {
		return false
	}
	_, report := r.Redact(candidate)
	return report.TotalFindings > 0
}
