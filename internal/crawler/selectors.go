package crawler

import "strings"

// DefaultContainerSelector matches one post container in the feed.
const DefaultContainerSelector = `[role="article"]`

// DefaultLoginMarkers are URL fragments that identify a login or account
// checkpoint page.
var DefaultLoginMarkers = []string{"login", "checkpoint"}

// isLoginSurface reports whether location looks like a login page.
func isLoginSurface(location string, markers []string) bool {
	lower := strings.ToLower(location)
	for _, m := range markers {
		if m != "" && strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}
