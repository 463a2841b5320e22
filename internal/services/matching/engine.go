package matching

import (
	"math"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

const (
	ConfidenceLikely   = "likely"
	ConfidencePossible = "possible"

	likelyScore   = 90.0
	possibleScore = 60.0
)

// Suggestion is an expected code that resembles a scanned one.
type Suggestion struct {
	Code       string  `json:"code"`
	Score      float64 `json:"score"`
	Confidence string  `json:"confidence"`
}

// Suggest ranks candidates by similarity to code and keeps those scoring at least
// possibleScore, best first. A limit of zero or less means no limit.
func Suggest(code string, candidates []string, limit int) []Suggestion {
	target := normalizeCode(code)
	if target == "" {
		return nil
	}

	var out []Suggestion
	for _, c := range candidates {
		score := codeSimilarity(target, normalizeCode(c))
		if score < possibleScore {
			continue
		}
		out = append(out, Suggestion{Code: c, Score: score, Confidence: categorize(score)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Code < out[j].Code
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// codeSimilarity is 100 for identical codes and falls linearly with edit distance.
func codeSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	maxLen := math.Max(float64(len([]rune(a))), float64(len([]rune(b))))
	return (1 - float64(dist)/maxLen) * 100
}

func categorize(score float64) string {
	if score >= likelyScore {
		return ConfidenceLikely
	}
	return ConfidencePossible
}

// normalizeCode drops the separators people type inconsistently on asset tags.
func normalizeCode(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "/", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}
