// Package extract turns free-form post text into structured fields.
//
// Five extractors are provided: Models, Weight, UseCase, SkillLevel and
// Sentiment. Each one is a pure function of its input: it never fails,
// returns a zero value when nothing is found, and yields the same result
// for the same text. All combines them into a model.Fields value.
//
// The heuristics are keyword and pattern based. No language understanding
// is attempted.
package extract
