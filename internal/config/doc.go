// Package config provides the configuration of a foilscan invocation.
//
// Config carries the flags that apply to the whole invocation. The
// per-run settings of each target are produced by Config.Resolve, which
// layers the built-in defaults, the optional .foilscan file, a profile,
// the surface and CLI overrides.
package config
