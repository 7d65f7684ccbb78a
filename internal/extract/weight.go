package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// kgToLbs is the conversion factor applied to kilogram weights.
const kgToLbs = 2.2

// weightPatterns are tried in order; the first one that matches anywhere
// in the text wins, even if a later pattern matches earlier in the text.
var weightPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d{2,3})\s*(lbs?|pounds?)`),
	regexp.MustCompile(`(?i)(\d{2,3})\s*kg`),
	regexp.MustCompile(`(?i)I weigh\s*(\d{2,3})`),
	regexp.MustCompile(`(?i)my weight is\s*(\d{2,3})`),
}

// Weight returns the rider weight in pounds, or nil when text does not
// state one. Kilogram values are converted and truncated.
func Weight(text string) *int {
	for _, re := range weightPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(m[0]), "kg") {
			n = int(float64(n) * kgToLbs)
		}
		return &n
	}
	return nil
}
