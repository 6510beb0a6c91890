package collector

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/zombar/collector/models"
)

var (
	fenceOpenRe  = regexp.MustCompile("^```(?:json)?\\s*")
	fenceCloseRe = regexp.MustCompile("```\\s*$")
	jsonSpanRe   = regexp.MustCompile(`(?s)\{.*\}`)
)

// rawAnalysis mirrors the JSON shape the model is asked to produce.
// Numeric fields are pointers so a missing field can be told apart from an
// explicit zero.
type rawAnalysis struct {
	Summary         string   `json:"summary"`
	Keywords        []string `json:"keywords"`
	Tags            []string `json:"tags"`
	Sentiment       *float64 `json:"sentiment"`
	Category        string   `json:"category"`
	ImportanceScore *float64 `json:"importance_score"`
	Insights        string   `json:"insights"`
}

// ParseAnalysis normalizes a raw model response into an Analysis. Model
// output is untrusted: it arrives wrapped in prose or markdown fences, with
// fields missing or out of range. Parsing strips fences, locates the
// outermost JSON object, then clamps and defaults every field. When no
// usable JSON can be found the whole thing degrades to HeuristicAnalysis of
// the original content. Normalization is idempotent: feeding a serialized
// Analysis back through produces the same values.
func ParseAnalysis(response, original string) models.Analysis {
	cleaned := strings.TrimSpace(response)
	cleaned = fenceOpenRe.ReplaceAllString(cleaned, "")
	cleaned = fenceCloseRe.ReplaceAllString(cleaned, "")

	span := jsonSpanRe.FindString(cleaned)
	if span == "" {
		return HeuristicAnalysis(original)
	}

	var parsed rawAnalysis
	if err := json.Unmarshal([]byte(span), &parsed); err != nil {
		return HeuristicAnalysis(original)
	}

	analysis := models.Analysis{
		Summary:         strings.TrimSpace(parsed.Summary),
		Keywords:        capList(parsed.Keywords, maxKeywords),
		Tags:            capList(parsed.Tags, maxTags),
		Sentiment:       clamp(valueOr(parsed.Sentiment, 0), -1, 1),
		Category:        strings.TrimSpace(parsed.Category),
		ImportanceScore: clamp(valueOr(parsed.ImportanceScore, defaultImportance), 0, 1),
		Insights:        strings.TrimSpace(parsed.Insights),
		AIUsed:          true,
	}
	if analysis.Summary == "" {
		analysis.Summary = heuristicSummary(original)
	}
	if len(analysis.Tags) == 0 {
		analysis.Tags = []string{defaultTag}
	}
	if analysis.Category == "" {
		analysis.Category = defaultCategory
	}
	return analysis
}

// capList trims entries, drops empties and caps the list at n
func capList(list []string, n int) []string {
	out := make([]string, 0, n)
	for _, item := range list {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
		if len(out) == n {
			break
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
