// Package model defines the data structures shared across foilscan.
//
// This package contains the following main types:
//   - SessionCredential: persisted browser cookies for the content surface
//   - RawContentBlock: text captured from one visible post container
//   - PostRecord: a qualifying post with its extracted fields
//   - AggregateStatistics: cross-referenced counts derived from posts
//   - Run and Document: the per-run state and the persisted output document
//   - ProductRecord, Catalog and SpecRecord: vendor catalog data
//
// Models live in their own package so crawler, collector, report and
// database can share them without import cycles. All exported types are
// serializable to JSON.
package model
