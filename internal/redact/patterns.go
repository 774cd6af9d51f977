package redact

import "regexp"

// pattern is one compiled detection rule in the catalog.
type pattern struct {
	name       string
	regex      *regexp.Regexp
	confidence string
	category   string
}

// whitelistEntry excludes a candidate match from detection — known
// false-positive shapes like UUIDs or content hashes that happen to look
// high-entropy or pattern-shaped but are not secrets.
type whitelistEntry struct {
	name  string
	regex *regexp.Regexp
}

// defaultPatterns is the built-in catalog, checked in order. A caller that
// needs project-specific patterns constructs a Redactor with
// WithPatterns instead of editing this list.
func defaultPatterns() []pattern {
	return []pattern{
		{"AWS Access Key", regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`), ConfidenceHigh, "cloud_credential"},
		{"AWS Secret Key", regexp.MustCompile(`\b(?i:aws_secret(?:_access)?_key)\b\s*[:=]\s*["']?([A-Za-z0-9/+=]{40})["']?`), ConfidenceHigh, "cloud_credential"},
		{"GitHub Token", regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,}\b`), ConfidenceHigh, "vcs_credential"},
		{"Slack Token", regexp.MustCompile(`\bxox[baprs]-[A-Za-z0-9-]{10,}\b`), ConfidenceHigh, "chat_credential"},
		{"Stripe API Key", regexp.MustCompile(`\b(?:sk|rk|pk)_(?:live|test)_[A-Za-z0-9]{16,}\b`), ConfidenceHigh, "payment_credential"},
		{"Private Key Header", regexp.MustCompile(`-----BEGIN (?:RSA |EC |OPENSSH |DSA |)PRIVATE KEY-----`), ConfidenceHigh, "crypto_material"},
		{"JSON Web Token", regexp.MustCompile(`\bey[A-Za-z0-9_-]{10,}\.ey[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\b`), ConfidenceHigh, "auth_token"},
		{"Bearer Token", regexp.MustCompile(`(?i:bearer)\s+([A-Za-z0-9._~+/=-]{20,})`), ConfidenceMedium, "auth_token"},
		{"Basic Auth Header", regexp.MustCompile(`(?i:authorization)\s*:\s*(?i:basic)\s+([A-Za-z0-9+/=]{16,})`), ConfidenceMedium, "auth_token"},
		{"Generic API Key Assignment", regexp.MustCompile(`(?i:api[_-]?key|secret|token|password|passwd)\s*[:=]\s*["']([A-Za-z0-9_\-./+]{12,})["']`), ConfidenceMedium, "generic_credential"},
		{"Google API Key", regexp.MustCompile(`\bAIza[0-9A-Za-z_-]{35}\b`), ConfidenceHigh, "cloud_credential"},
	}
}

// defaultWhitelist excludes shapes that are high-entropy-looking but not
// secrets: UUIDs, git commit hashes, and common placeholder text.
func defaultWhitelist() []whitelistEntry {
	return []whitelistEntry{
		{"UUID", regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)},
		{"Hex Hash", regexp.MustCompile(`^[0-9a-fA-F]{32,64}$`)},
		{"Placeholder", regexp.MustCompile(`(?i)^(your[_-]?(api[_-]?)?key|xxxx+|example|placeholder|changeme|redacted)`)},
	}
}

// tokenCandidateRegex finds sequences of alphanumeric + common token
// characters at least 16 chars long, the set the entropy pass scans.
var tokenCandidateRegex = regexp.MustCompile(`[A-Za-z0-9_/+=-]{16,}`)
