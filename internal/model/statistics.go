package model

// WeightRecommendation correlates a rider weight with the foil the rider
// talked about.
type WeightRecommendation struct {
	Weight    int       `json:"weight"`
	Foil      string    `json:"foil"`
	UseCase   UseCase   `json:"use_case"`
	Sentiment Sentiment `json:"sentiment"`
}

// AggregateStatistics is derived from the full post set of a run.
type AggregateStatistics struct {
	// TotalPosts is the number of qualifying posts.
	TotalPosts int `json:"total_posts"`

	// FoilMentions counts posts mentioning each model.
	FoilMentions map[string]int `json:"foil_mentions"`

	// WeightRecommendations has one entry per post with both a weight and
	// at least one model, in post order.
	WeightRecommendations []WeightRecommendation `json:"weight_recommendations"`

	// UseCaseFeedback lists every model mentioned in posts of each use
	// case. Duplicates are kept since they represent co-occurrence.
	UseCaseFeedback map[UseCase][]string `json:"use_case_feedback"`
}

// NewAggregateStatistics returns empty statistics with non-nil collections
// so that they serialize as {} and [] rather than null.
func NewAggregateStatistics() *AggregateStatistics {
	return &AggregateStatistics{
		FoilMentions:          make(map[string]int),
		WeightRecommendations: make([]WeightRecommendation, 0),
		UseCaseFeedback:       make(map[UseCase][]string),
	}
}
