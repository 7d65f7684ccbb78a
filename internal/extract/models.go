package extract

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// modelPatterns recognise "<series> <area>" mentions, one pattern per
// naming style. Matching is case-insensitive and the space is optional,
// so "bsc1060" and "BSC 1060" are the same model.
var modelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(ART|ARTPRO|HPS|BSC|PNG|SP)\s*(\d{3,4})\b`),
	regexp.MustCompile(`(?i)\b(Spitfire|Fireball|Surge|Tempo)\s*(\d{3,4})\b`),
}

type modelMatch struct {
	offset  int
	pattern int
	id      string
}

// Models returns the foil models mentioned in text as "SERIES AREA"
// identifiers with the series upper-cased.
//
// Duplicates are collapsed. The result is ordered by the offset of each
// model's first occurrence, so the first element is the model mentioned
// first regardless of which pattern found it.
func Models(text string) []string {
	var matches []modelMatch
	for i, re := range modelPatterns {
		for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
			if !wordBounded(text, loc[0], loc[1]) {
				continue
			}
			series := strings.ToUpper(text[loc[2]:loc[3]])
			area := text[loc[4]:loc[5]]
			matches = append(matches, modelMatch{
				offset:  loc[0],
				pattern: i,
				id:      series + " " + area,
			})
		}
	}

	sort.SliceStable(matches, func(a, b int) bool {
		if matches[a].offset != matches[b].offset {
			return matches[a].offset < matches[b].offset
		}
		return matches[a].pattern < matches[b].pattern
	})

	seen := make(map[string]struct{}, len(matches))
	models := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m.id]; ok {
			continue
		}
		seen[m.id] = struct{}{}
		models = append(models, m.id)
	}
	return models
}

// wordBounded reports whether text[start:end] is not glued to a letter,
// digit or underscore on either side. Go's \b only treats ASCII as word
// characters, so "éART 999" would otherwise match.
func wordBounded(text string, start, end int) bool {
	if start > 0 {
		if r, _ := utf8.DecodeLastRuneInString(text[:start]); isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		if r, _ := utf8.DecodeRuneInString(text[end:]); isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}
