package clause

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// Categorizer assigns categories and heuristic scores to clause text.
// It holds only read-only configuration.
type Categorizer struct {
	vocab  Vocabulary
	marker *regexp.Regexp
}

var wordPattern = regexp.MustCompile(`\w+`)

// NewCategorizer creates a Categorizer. Empty tables in vocab fall back to
// DefaultVocabulary.
func NewCategorizer(vocab Vocabulary) *Categorizer {
	c := &Categorizer{vocab: vocab.withDefaults()}

	markers := make([]string, 0, len(c.vocab.ExclusionMarkers))
	for _, m := range c.vocab.ExclusionMarkers {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			markers = append(markers, regexp.QuoteMeta(m))
		}
	}
	if len(markers) > 0 {
		// A marker runs to the end of its word, so "exclu" covers "excluded".
		c.marker = regexp.MustCompile(`(?:` + strings.Join(markers, "|") + `)\w*`)
	}
	return c
}

// Vocabulary returns a copy of the active keyword tables.
func (c *Categorizer) Vocabulary() Vocabulary {
	return c.vocab.withDefaults()
}

// Categorize returns the category of text using the ordered keyword scan.
func (c *Categorizer) Categorize(text string) Category {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, c.vocab.Exclusion):
		return CategoryExclusion
	case containsAny(lower, c.vocab.Coverage):
		return CategoryCoverage
	case containsAny(lower, c.vocab.Waiting):
		return CategoryWaitingPeriod
	case containsAny(lower, c.vocab.PreExisting):
		return CategoryPreExisting
	case c.Ambiguity(text) > c.vocab.AmbiguityThreshold:
		return CategoryAmbiguity
	}
	return CategoryGeneral
}

// Analyze categorizes and scores text against disease without the
// disease-specific adjustments.
func (c *Categorizer) Analyze(text, disease string) Analysis {
	return Analysis{
		Category: c.Categorize(text),
		Scores: Scores{
			CoverageDensity: c.CoverageDensity(text, disease),
			ExclusionRisk:   c.ExclusionRisk(text, disease),
			Ambiguity:       c.Ambiguity(text),
		},
	}
}

// AnalyzeForDisease is Analyze with the disease-specific adjustments: score
// boosts when the disease is mentioned and relabelling of General clauses.
func (c *Categorizer) AnalyzeForDisease(text, disease string) Analysis {
	lower := strings.ToLower(text)
	a := c.Analyze(text, disease)

	a.DiseaseMentioned = mentionsDisease(lower, disease)
	a.HasWaitingPeriod = containsAny(lower, c.vocab.Waiting)
	a.HasPreExisting = containsAny(lower, c.vocab.PreExisting)

	if a.DiseaseMentioned {
		a.Scores.CoverageDensity = min(a.Scores.CoverageDensity+10, 100)
		a.Scores.ExclusionRisk = min(a.Scores.ExclusionRisk+5, 100)
	}

	if a.Category == CategoryGeneral {
		switch {
		case a.HasWaitingPeriod:
			a.Category = CategoryWaitingPeriod
		case a.HasPreExisting:
			a.Category = CategoryPreExisting
		}
	}
	return a
}

// CoverageDensity scores how strongly text supports coverage, in [0,100].
func (c *Categorizer) CoverageDensity(text, disease string) int {
	lower := strings.ToLower(text)
	score := 50

	if anyTokenIn(lower, diseaseTokens(disease)) {
		score += 20
	}
	score += min(5*countPresent(lower, c.vocab.Coverage), 20)

	if strings.Contains(lower, "pre-existing") {
		score -= 15
	}
	if strings.Contains(lower, "chronic") &&
		(strings.Contains(lower, "condition") || strings.Contains(lower, "illness")) {
		score += 10
	}
	if strings.Contains(lower, "lifetime") || strings.Contains(lower, "maximum") {
		score -= 5
	}
	if containsAny(lower, c.vocab.PositiveCoverage) {
		score += 10
	}
	return clampInt(score, 0, 100)
}

// ExclusionRisk scores how strongly text excludes coverage, in [0,100].
func (c *Categorizer) ExclusionRisk(text, disease string) int {
	lower := strings.ToLower(text)
	score := 30

	score += min(8*countPresent(lower, c.vocab.Exclusion), 40)

	if c.diseaseNearExclusion(lower, diseaseTokens(disease)) {
		score += 30
	}
	if containsAny(lower, c.vocab.Limitation) {
		score += 15
	}
	if strings.Contains(lower, "not covered") || strings.Contains(lower, "excluded") {
		score += 20
	}
	return clampInt(score, 0, 100)
}

// Ambiguity scores interpretive vagueness of text, one decimal in [1,10].
func (c *Categorizer) Ambiguity(text string) float64 {
	lower := strings.ToLower(text)
	score := 2.0 + 0.5*float64(countPresent(lower, c.vocab.Ambiguity))

	if strings.Contains(lower, "and/or") {
		score += 0.5
	}
	if strings.Contains(lower, "etc") {
		score += 0.3
	}
	if strings.Contains(lower, "such as") && strings.Contains(lower, "including but not limited to") {
		score += 0.7
	}
	if strings.Contains(lower, "at our discretion") {
		score += 1.0
	}

	if avg := meanSentenceLength(text); avg > 30 {
		score += 1.0
	} else if avg > 20 {
		score += 0.5
	}

	score = math.Round(score*10) / 10
	return math.Min(math.Max(score, 1), 10)
}

// diseaseNearExclusion reports whether a disease token appears within the
// configured word window of an exclusion marker, in either order. After a
// marker the token must start a word; before a marker it must end one and
// the marker must start a word.
func (c *Categorizer) diseaseNearExclusion(lower string, tokens []string) bool {
	window := c.vocab.ProximityWindow
	if window <= 0 || len(tokens) == 0 || c.marker == nil {
		return false
	}
	markers := c.marker.FindAllStringIndex(lower, -1)
	if len(markers) == 0 {
		return false
	}

	spans := wordPattern.FindAllStringIndex(lower, -1)
	words := make([]string, len(spans))
	for i, sp := range spans {
		words[i] = lower[sp[0]:sp[1]]
	}
	// wordAt returns the index of the word containing byte offset pos.
	wordAt := func(pos int) int {
		i := sort.Search(len(spans), func(i int) bool { return spans[i][1] > pos })
		if i < len(spans) && spans[i][0] <= pos {
			return i
		}
		return -1
	}

	for _, m := range markers {
		first, last := wordAt(m[0]), wordAt(m[1]-1)
		if first < 0 || last < 0 {
			continue
		}
		for j := last + 1; j < len(words) && j-last-1 <= window; j++ {
			if hasAffix(words[j], tokens, strings.HasPrefix) {
				return true
			}
		}
		if spans[first][0] != m[0] {
			continue
		}
		for k := first - 1; k >= 0 && first-k-1 <= window; k-- {
			if hasAffix(words[k], tokens, strings.HasSuffix) {
				return true
			}
		}
	}
	return false
}

func hasAffix(word string, tokens []string, match func(s, affix string) bool) bool {
	for _, t := range tokens {
		if match(word, t) {
			return true
		}
	}
	return false
}

// diseaseTokens returns the lowercase words of disease longer than three
// characters. Underscores are treated as spaces.
func diseaseTokens(disease string) []string {
	words := strings.Fields(strings.ToLower(strings.ReplaceAll(disease, "_", " ")))
	out := words[:0]
	for _, w := range words {
		if len(w) > 3 {
			out = append(out, w)
		}
	}
	return out
}

func mentionsDisease(lower, disease string) bool {
	name := strings.ToLower(disease)
	if name != "" && strings.Contains(lower, name) {
		return true
	}
	return anyTokenIn(lower, diseaseTokens(disease))
}

func meanSentenceLength(text string) float64 {
	var sentences, words int
	for _, s := range strings.Split(text, ".") {
		if strings.TrimSpace(s) == "" {
			continue
		}
		sentences++
		words += len(strings.Fields(s))
	}
	if sentences == 0 {
		return 0
	}
	return float64(words) / float64(sentences)
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// countPresent counts how many distinct keywords occur in lower.
func countPresent(lower string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			n++
		}
	}
	return n
}

func anyTokenIn(lower string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
