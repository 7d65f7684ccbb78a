package extract

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/foilscan/internal/model"
)

// Func is the signature of a complete field extraction.
// The collector accepts any Func so extraction can be swapped in tests.
type Func func(text string) model.Fields

// All runs every extractor over text.
func All(text string) model.Fields {
	lower := fold(text)
	return model.Fields{
		Foils:      Models(text),
		Weight:     Weight(text),
		UseCase:    useCaseOf(lower),
		SkillLevel: skillLevelOf(lower),
		Sentiment:  sentimentOf(lower),
	}
}

// fold lower-cases text for keyword matching.
// A Caser keeps state, so a new one is created per call.
func fold(text string) string {
	return cases.Lower(language.Und).String(text)
}
