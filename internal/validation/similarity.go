package validation

import (
	"strings"

	"golang.org/x/text/cases"
)

var foldCaser = cases.Fold()

func normalize(value string) string {
	return strings.TrimSpace(foldCaser.String(value))
}

// Similarity scores how alike two titles or labels are. Identical normalized
// strings score 1.0 and an empty side scores 0.0; everything else is Jaccard
// similarity over whitespace-tokenized word sets.
func Similarity(a, b string) float64 {
	na, nb := normalize(a), normalize(b)
	if na == "" || nb == "" {
		return 0.0
	}
	if na == nb {
		return 1.0
	}

	setA := wordSet(na)
	setB := wordSet(nb)

	intersection := 0
	for word := range setA {
		if _, ok := setB[word]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

func wordSet(value string) map[string]struct{} {
	words := strings.Fields(value)
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		set[word] = struct{}{}
	}
	return set
}
