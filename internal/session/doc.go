// Package session persists the browser cookies that authenticate foilscan
// against the content surface.
//
// A Store loads the stored credential at the start of a run and overwrites
// it when a manual login produced fresh cookies. Two stores are provided:
// FileStore keeps a JSON cookie array on disk and RedisStore keeps the same
// document under a Redis key, which lets several machines share one login.
package session
