// Package collector turns the stream of raw content blocks emitted by the
// discovery engine into qualifying post records.
//
// The collector drops blocks that are too short to be posts, drops blocks
// whose exact text was already seen in the current run, runs the field
// extractors on what remains and keeps only posts carrying a foil mention,
// a rider weight or a use case. Near-duplicates are not detected.
package collector
