package model

import (
	"encoding/json"
	"time"
)

// UseCase is the riding discipline a post talks about.
type UseCase string

// Use cases in classification priority order.
const (
	UseCaseWing     UseCase = "wing"
	UseCaseProne    UseCase = "prone"
	UseCaseSUP      UseCase = "sup"
	UseCaseDownwind UseCase = "downwind"
	UseCasePump     UseCase = "pump"
	UseCaseKite     UseCase = "kite"
)

// MarshalJSON encodes an absent use case as null.
func (u UseCase) MarshalJSON() ([]byte, error) {
	return nullableString(string(u))
}

// SkillLevel is the self-described experience of the poster.
type SkillLevel string

// MarshalJSON encodes an absent skill level as null.
func (s SkillLevel) MarshalJSON() ([]byte, error) {
	return nullableString(string(s))
}

func nullableString(s string) ([]byte, error) {
	if s == "" {
		return []byte("null"), nil
	}
	return json.Marshal(s)
}

// Skill levels in classification priority order.
const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
)

// Sentiment is the polarity of a post.
type Sentiment string

const (
	// SentimentPositive means more positive than negative keywords.
	SentimentPositive Sentiment = "positive"
	// SentimentNegative means more negative than positive keywords.
	SentimentNegative Sentiment = "negative"
	// SentimentNeutral is used for ties, including no keywords at all.
	SentimentNeutral Sentiment = "neutral"
)

// RawContentBlock is the text of one visible post container at one point
// of scroll progress. Blocks are handed to the collector immediately and
// never retained.
type RawContentBlock struct {
	// Text is the visible text of the container.
	Text string

	// Order is the capture order, monotonic within a run.
	Order int

	// Pass is the scroll pass that produced the block.
	Pass int
}

// Fields holds everything the extractors found in one text.
type Fields struct {
	// Foils are model identifiers such as "ART 999", ordered by first
	// position in the text.
	Foils []string

	// Weight is the rider weight in pounds, nil when absent.
	Weight *int

	// UseCase is empty when absent.
	UseCase UseCase

	// SkillLevel is empty when absent.
	SkillLevel SkillLevel

	// Sentiment is always set.
	Sentiment Sentiment
}

// Qualifies reports whether the fields carry enough signal to keep a post.
// Skill level and sentiment alone never qualify.
func (f Fields) Qualifies() bool {
	return len(f.Foils) > 0 || f.Weight != nil || f.UseCase != ""
}

// PostRecord is a qualifying post.
type PostRecord struct {
	// ID is a run-local sequence number starting at 1.
	ID int `json:"id"`

	// TextExcerpt is the leading part of the post text, kept for audit.
	TextExcerpt string `json:"text_excerpt"`

	FoilsMentioned []string   `json:"foils_mentioned"`
	RiderWeight    *int       `json:"rider_weight"`
	UseCase        UseCase    `json:"use_case"`
	SkillLevel     SkillLevel `json:"skill_level"`
	Sentiment      Sentiment  `json:"sentiment"`
	CapturedAt     time.Time  `json:"captured_at"`
}

// DesignatedFoil returns the first mentioned model, or "" when none.
func (p PostRecord) DesignatedFoil() string {
	if len(p.FoilsMentioned) == 0 {
		return ""
	}
	return p.FoilsMentioned[0]
}
