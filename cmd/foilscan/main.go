// Package main provides the entry point for the foilscan CLI.
//
// foilscan captures rider posts from a logged-in social feed, extracts the
// foils, weights and use cases they mention, and writes a document for
// the recommendation tooling. It also fetches the manufacturer catalog.
//
// Usage:
//
//	foilscan scan axis-riders
//	foilscan scan https://www.facebook.com/groups/axisfoilriders
//	foilscan catalog -o axis-catalog.json
//
// See --help for all available options.
package main

import "os"

func main() {
	os.Exit(Execute())
}
