// Package stats folds the posts of a run into aggregate statistics.
package stats
