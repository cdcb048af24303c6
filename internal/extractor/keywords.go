package extractor

import (
	"sort"
	"strings"
)

// stopWords are dropped before ranking. The list only needs to cover what
// shows up in portfolio copy, not a full NLP set.
var stopWords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"the", "and", "for", "are", "but", "not", "you", "your", "all",
		"with", "this", "that", "from", "they", "them", "was", "were",
		"have", "has", "had", "can", "will", "into", "its", "our", "out",
		"about", "more", "when", "what", "who", "how", "why", "where",
		"his", "her", "she", "him", "their", "been", "being", "over",
		"some", "such", "than", "then", "these", "those", "there", "here",
		"also", "just", "only", "very", "most", "each", "other", "which",
		"while", "after", "before", "through", "any", "get", "one", "two",
	} {
		stopWords[w] = struct{}{}
	}
}

// keywords reduces the extracted text to a bounded, ordered, deduplicated
// salient set. Weighting is frequency plus position: words in the meta
// description rank highest, words early in the document rank above words
// deep in it. Ties break alphabetically so the output is stable.
func (e *Extractor) keywords(s *Signals) []string {
	type entry struct {
		word  string
		score float64
	}

	scores := map[string]float64{}

	tokens := tokenize(s.Text)
	for i, w := range tokens {
		weight := 1.0
		if i < 50 {
			weight += 1.5 // early in the document
		} else if i < 200 {
			weight += 0.5
		}
		scores[w] += weight
	}

	for _, w := range tokenize(s.Description) {
		scores[w] += 8.0
	}
	for _, w := range tokenize(s.Title) {
		scores[w] += 4.0
	}

	ranked := make([]entry, 0, len(scores))
	for w, sc := range scores {
		ranked = append(ranked, entry{word: w, score: sc})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].word < ranked[j].word
	})

	out := make([]string, 0, e.maxKeywords)
	for _, en := range ranked {
		out = append(out, en.word)
		if len(out) == e.maxKeywords {
			break
		}
	}
	return out
}

func tokenize(text string) []string {
	raw := wordRe.FindAllString(strings.ToLower(text), -1)
	out := make([]string, 0, len(raw))
	for _, w := range raw {
		if len(w) < 3 {
			continue
		}
		if _, skip := stopWords[w]; skip {
			continue
		}
		out = append(out, w)
	}
	return out
}
