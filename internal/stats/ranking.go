package stats

import (
	"sort"

	"github.com/nao1215/foilscan/internal/model"
)

// Mention is a foil with its mention count.
type Mention struct {
	Foil  string
	Count int
}

// TopMentions returns the n most mentioned foils, most mentioned first.
// Equal counts are ordered by foil name. n <= 0 returns all of them.
func TopMentions(s *model.AggregateStatistics, n int) []Mention {
	if s == nil {
		return nil
	}
	mentions := make([]Mention, 0, len(s.FoilMentions))
	for foil, count := range s.FoilMentions {
		mentions = append(mentions, Mention{Foil: foil, Count: count})
	}
	sort.Slice(mentions, func(i, j int) bool {
		if mentions[i].Count != mentions[j].Count {
			return mentions[i].Count > mentions[j].Count
		}
		return mentions[i].Foil < mentions[j].Foil
	})
	if n > 0 && len(mentions) > n {
		mentions = mentions[:n]
	}
	return mentions
}

// UseCaseCount is the number of model mentions recorded for a use case.
type UseCaseCount struct {
	UseCase model.UseCase
	Count   int
}

// UseCaseCounts returns the use cases that have feedback, ordered by the
// fixed classification priority.
func UseCaseCounts(s *model.AggregateStatistics) []UseCaseCount {
	if s == nil {
		return nil
	}
	order := []model.UseCase{
		model.UseCaseWing, model.UseCaseProne, model.UseCaseSUP,
		model.UseCaseDownwind, model.UseCasePump, model.UseCaseKite,
	}
	var counts []UseCaseCount
	for _, uc := range order {
		if foils, ok := s.UseCaseFeedback[uc]; ok {
			counts = append(counts, UseCaseCount{UseCase: uc, Count: len(foils)})
		}
	}
	return counts
}
