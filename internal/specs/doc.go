// Package specs holds the static front wing geometry table and merges it
// into catalog snapshots and mention reports.
package specs
