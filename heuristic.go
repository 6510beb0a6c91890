package collector

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/zombar/collector/models"
)

const (
	summaryMaxRunes    = 50
	noContentSummary   = "无标题"
	defaultTag         = "未分类"
	defaultCategory    = "general"
	defaultImportance  = 0.5
	maxKeywords        = 5
	maxTags            = 4
	readingCharsPerMin = 200
)

var (
	// Sentence boundaries for both CJK and latin punctuation.
	sentenceSplitRe = regexp.MustCompile(`[。！？.!?]`)
	// Everything that is not a CJK ideograph, latin alphanumeric or space.
	keywordStripRe = regexp.MustCompile(`[^\p{Han}a-zA-Z0-9\s]`)
)

// HeuristicAnalysis produces a locally computed analysis, used when the LLM
// is not configured, auto-tagging was declined, or the model response was
// unusable. The results are deliberately bland; the point is that capture
// never blocks on AI availability.
func HeuristicAnalysis(content string) models.Analysis {
	return models.Analysis{
		Summary:         heuristicSummary(content),
		Keywords:        heuristicKeywords(content),
		Tags:            []string{defaultTag},
		Sentiment:       0,
		Category:        defaultCategory,
		ImportanceScore: defaultImportance,
		AIUsed:          false,
	}
}

// heuristicSummary returns the first sentence, capped at 50 runes
func heuristicSummary(content string) string {
	for _, sentence := range sentenceSplitRe.Split(content, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		runes := []rune(sentence)
		if len(runes) > summaryMaxRunes {
			return string(runes[:summaryMaxRunes]) + "..."
		}
		return sentence
	}
	return noContentSummary
}

// heuristicKeywords returns the five most frequent tokens in the content.
// Tokens are lowercased, stripped of punctuation and must be at least two
// runes long. Ties keep first-seen order, so the result is deterministic.
func heuristicKeywords(content string) []string {
	normalized := keywordStripRe.ReplaceAllString(strings.ToLower(content), " ")

	counts := make(map[string]int)
	var order []string
	for _, word := range strings.Fields(normalized) {
		if utf8.RuneCountInString(word) < 2 {
			continue
		}
		if counts[word] == 0 {
			order = append(order, word)
		}
		counts[word]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > maxKeywords {
		order = order[:maxKeywords]
	}
	if order == nil {
		order = []string{}
	}
	return order
}

// WordCount counts the runes of a processed text. Counting runes rather
// than space-separated words keeps the number meaningful for CJK content.
func WordCount(s string) int {
	return utf8.RuneCountInString(s)
}

// ReadingTime estimates reading minutes for a given word count, rounding up
func ReadingTime(wordCount int) int {
	return (wordCount + readingCharsPerMin - 1) / readingCharsPerMin
}
