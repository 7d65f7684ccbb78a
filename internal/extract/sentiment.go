package extract

import (
	"strings"

	"github.com/nao1215/foilscan/internal/model"
)

var (
	positiveWords = []string{"love", "amazing", "perfect", "great", "awesome", "excellent", "best", "fantastic"}
	negativeWords = []string{"hate", "terrible", "worst", "bad", "disappointing", "frustrating"}
)

// Sentiment scores text against the positive and negative word lists.
// Every listed word contained in the text counts once; repeats of the same
// word do not add weight. Ties resolve to neutral.
func Sentiment(text string) model.Sentiment {
	return sentimentOf(fold(text))
}

func sentimentOf(lower string) model.Sentiment {
	pos := countPresent(lower, positiveWords)
	neg := countPresent(lower, negativeWords)
	switch {
	case pos > neg:
		return model.SentimentPositive
	case neg > pos:
		return model.SentimentNegative
	default:
		return model.SentimentNeutral
	}
}

func countPresent(lower string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(lower, w) {
			n++
		}
	}
	return n
}
