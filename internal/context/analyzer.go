// Package context extracts keywords and technical terms from a blob of
// conversational context and synthesizes a short search query from them.
// It has no side effects and holds no persistent state.
package context

import (
	"regexp"
	"sort"
	"strings"

	"github.com/amancerp/recall/internal/store"
)

const (
	defaultMinKeywordLength = 3
	defaultMaxKeywords      = 10
)

// defaultStopWords mirrors the fixed stop-word list used to filter
// keyword candidates. Kept small and literal rather than loaded from a
// corpus, since the set rarely changes and config only needs to be able
// to override it wholesale.
var defaultStopWords = []string{
	"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for",
	"of", "with", "by", "from", "as", "is", "was", "are", "were", "been",
	"be", "have", "has", "had", "do", "does", "did", "will", "would",
	"could", "should", "may", "might", "can", "this", "that", "these",
	"those", "i", "you", "he", "she", "it", "we", "they", "what", "which",
	"who", "when", "where", "why", "how", "all", "each", "every", "both",
	"few", "more", "most", "some", "such", "no", "nor", "not", "only",
	"own", "same", "so", "than", "too", "very", "just", "now", "get",
	"make", "go", "see", "know", "take", "use", "find", "give", "tell",
	"work", "call", "try", "ask", "need", "feel", "become", "leave",
	"put", "mean", "keep", "let", "begin", "seem", "help", "talk",
	"turn", "start", "show", "move", "like", "live", "believe",
	"happen", "write", "sit", "stand", "lose", "pay", "meet", "run",
	"im", "ive", "id", "ill", "youre", "youve", "youd", "youll",
	"hes", "shes", "its", "theyre", "theyve", "theyd",
	"dont", "doesnt", "didnt", "wont", "wouldnt", "couldnt", "shouldnt",
	"cant", "cannot", "isnt", "arent", "wasnt", "werent", "hasnt", "havent",
}

// defaultEcosystemTerms is the fixed allowlist of lowercase ecosystem
// terms folded into the technical-term set regardless of casing.
var defaultEcosystemTerms = []string{
	"python", "javascript", "typescript", "react", "vue", "angular",
	"django", "flask", "fastapi", "node", "npm", "pip", "docker",
	"kubernetes", "aws", "azure", "gcp",
	"api", "rest", "graphql", "sql", "nosql", "database", "redis",
	"mongodb", "postgres", "mysql",
	"git", "github", "gitlab", "ci", "cd", "devops", "testing", "pytest",
	"jest", "unit", "integration",
	"frontend", "backend", "fullstack", "microservice", "serverless", "cloud",
	"security", "authentication", "authorization", "oauth", "jwt", "encryption",
	"performance", "optimization", "scaling", "caching", "monitoring",
}

var (
	acronymRegex   = regexp.MustCompile(`\b[A-Z]{2,5}\b`)
	camelCaseRegex = regexp.MustCompile(`\b[a-z]+[A-Z][a-zA-Z]*\b|\b[A-Z][a-z]+[A-Z][a-zA-Z]*\b`)
	snakeCaseRegex = regexp.MustCompile(`\b[a-z]+_[a-z_]+\b`)
	kebabCaseRegex = regexp.MustCompile(`\b[a-z]+-[a-z-]+\b`)
)

// Analyzer extracts keywords and technical terms from context text. The
// zero value is not usable; construct with New.
type Analyzer struct {
	stopWords      map[string]struct{}
	ecosystemTerms []string
	minKeywordLen  int
	maxKeywords    int
}

// Option configures an Analyzer at construction time.
type Option func(*Analyzer)

// WithStopWords overrides the default stop-word list.
func WithStopWords(stopWords []string) Option {
	return func(a *Analyzer) { a.stopWords = store.BuildStopWordMap(stopWords) }
}

// WithEcosystemTerms overrides the default ecosystem-term allowlist.
func WithEcosystemTerms(terms []string) Option {
	return func(a *Analyzer) { a.ecosystemTerms = terms }
}

// WithKeywordLimits overrides the minimum keyword length and the maximum
// number of keywords kept.
func WithKeywordLimits(minLength, maxKeywords int) Option {
	return func(a *Analyzer) {
		a.minKeywordLen = minLength
		a.maxKeywords = maxKeywords
	}
}

// New constructs an Analyzer with the default stop-word list, ecosystem
// allowlist, and keyword limits, overridden by any options given.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		stopWords:      store.BuildStopWordMap(defaultStopWords),
		ecosystemTerms: defaultEcosystemTerms,
		minKeywordLen:  defaultMinKeywordLength,
		maxKeywords:    defaultMaxKeywords,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Result is the output of Analyze: keywords, technical terms, their
// union, and a synthesized search query.
type Result struct {
	Keywords    []string `json:"keywords"`
	TechTerms   []string `json:"tech_terms"`
	AllTerms    []string `json:"all_terms"`
	SearchQuery string   `json:"search_query"`
}

// Analyze extracts keywords and technical terms from contextText and
// synthesizes a short search query from them. It has no side effects.
func (a *Analyzer) Analyze(contextText string) Result {
	keywords := a.extractKeywords(contextText)
	techTerms := a.extractTechnicalTerms(contextText)

	allTerms := unionDedup(keywords, techTerms)
	searchQuery := synthesizeQuery(techTerms, keywords)

	return Result{
		Keywords:    keywords,
		TechTerms:   techTerms,
		AllTerms:    allTerms,
		SearchQuery: searchQuery,
	}
}

// extractKeywords lowercases text, tokenizes on word boundaries, drops
// stop words and tokens shorter than the configured minimum, and ranks
// what's left by frequency (ties broken by first occurrence).
func (a *Analyzer) extractKeywords(text string) []string {
	tokens := store.TokenizeQuery(text)

	counts := make(map[string]int)
	order := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if len(tok) < a.minKeywordLen {
			continue
		}
		if _, isStop := a.stopWords[tok]; isStop {
			continue
		}
		if counts[tok] == 0 {
			order = append(order, tok)
		}
		counts[tok]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > a.maxKeywords {
		order = order[:a.maxKeywords]
	}
	return order
}

// extractTechnicalTerms finds acronyms, camelCase/PascalCase, snake_case,
// kebab-case, and ecosystem-allowlisted terms in the original-case text.
// The result is deduplicated but otherwise unordered, matching the set
// semantics of the term it is grounded on.
func (a *Analyzer) extractTechnicalTerms(text string) []string {
	seen := make(map[string]struct{})
	var terms []string
	add := func(term string) {
		if term == "" {
			return
		}
		if _, ok := seen[term]; ok {
			return
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}

	for _, m := range acronymRegex.FindAllString(text, -1) {
		add(strings.ToLower(m))
	}
	for _, m := range camelCaseRegex.FindAllString(text, -1) {
		add(strings.ToLower(m))
	}
	for _, m := range snakeCaseRegex.FindAllString(text, -1) {
		add(m)
	}
	for _, m := range kebabCaseRegex.FindAllString(text, -1) {
		add(m)
	}

	lower := strings.ToLower(text)
	for _, term := range a.ecosystemTerms {
		if containsWord(lower, term) {
			add(term)
		}
	}

	return terms
}

// containsWord reports whether term occurs in lower as a whole word.
func containsWord(lower, term string) bool {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(term) + `\b`)
	return re.MatchString(lower)
}

// synthesizeQuery concatenates the top 3 technical terms and top 2
// keywords, space-separated, deduped, preserving the order in which each
// term first appears.
func synthesizeQuery(techTerms, keywords []string) string {
	limit := func(s []string, n int) []string {
		if len(s) > n {
			return s[:n]
		}
		return s
	}

	priority := append(append([]string{}, limit(techTerms, 3)...), limit(keywords, 2)...)

	seen := make(map[string]struct{}, len(priority))
	var parts []string
	for _, term := range priority {
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		parts = append(parts, term)
	}
	return strings.Join(parts, " ")
}

// unionDedup merges two term slices into one, deduping while preserving
// first-occurrence order across both inputs.
func unionDedup(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range [][]string{a, b} {
		for _, term := range s {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			out = append(out, term)
		}
	}
	return out
}
