package extract

import (
	"strings"

	"github.com/nao1215/foilscan/internal/model"
)

// keywordGroup maps a tag to the substrings that select it.
type keywordGroup[T ~string] struct {
	tag      T
	keywords []string
}

// useCaseGroups are in priority order: a post mentioning both wing and
// pump keywords is a wing post.
var useCaseGroups = []keywordGroup[model.UseCase]{
	{model.UseCaseWing, []string{"wing", "winging", "wing foil"}},
	{model.UseCaseProne, []string{"prone", "surf foil", "surfing"}},
	{model.UseCaseSUP, []string{"sup foil", "stand up", "paddl"}},
	{model.UseCaseDownwind, []string{"downwind", "down wind", "dw"}},
	{model.UseCasePump, []string{"pump", "dock start", "dock foil"}},
	{model.UseCaseKite, []string{"kite", "kiting", "kite foil"}},
}

var skillGroups = []keywordGroup[model.SkillLevel]{
	{model.SkillBeginner, []string{"beginner", "new to", "just started", "first time"}},
	{model.SkillIntermediate, []string{"intermediate", "getting better", "progressing"}},
	{model.SkillAdvanced, []string{"advanced", "expert", "experienced", "years of"}},
}

// firstGroup returns the tag of the first group with a keyword contained
// in lower, or the zero value.
func firstGroup[T ~string](lower string, groups []keywordGroup[T]) T {
	for _, g := range groups {
		for _, kw := range g.keywords {
			if strings.Contains(lower, kw) {
				return g.tag
			}
		}
	}
	var zero T
	return zero
}

// UseCase classifies the riding discipline of text, or returns "".
func UseCase(text string) model.UseCase {
	return useCaseOf(fold(text))
}

// SkillLevel classifies the rider experience of text, or returns "".
func SkillLevel(text string) model.SkillLevel {
	return skillLevelOf(fold(text))
}

func useCaseOf(lower string) model.UseCase {
	return firstGroup(lower, useCaseGroups)
}

func skillLevelOf(lower string) model.SkillLevel {
	return firstGroup(lower, skillGroups)
}
