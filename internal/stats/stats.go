package stats

import "github.com/nao1215/foilscan/internal/model"

// Aggregate computes the statistics for posts.
//
// The result depends only on the order of posts, never on map iteration,
// so the same input always produces the same output.
func Aggregate(posts []model.PostRecord) *model.AggregateStatistics {
	s := model.NewAggregateStatistics()
	s.TotalPosts = len(posts)

	for _, post := range posts {
		for _, foil := range post.FoilsMentioned {
			s.FoilMentions[foil]++
		}

		if post.RiderWeight != nil && len(post.FoilsMentioned) > 0 {
			s.WeightRecommendations = append(s.WeightRecommendations, model.WeightRecommendation{
				Weight:    *post.RiderWeight,
				Foil:      post.DesignatedFoil(),
				UseCase:   post.UseCase,
				Sentiment: post.Sentiment,
			})
		}

		if post.UseCase != "" {
			feedback, ok := s.UseCaseFeedback[post.UseCase]
			if !ok {
				feedback = make([]string, 0, len(post.FoilsMentioned))
			}
			s.UseCaseFeedback[post.UseCase] = append(feedback, post.FoilsMentioned...)
		}
	}

	return s
}
