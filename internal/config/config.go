package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/gorhill/cronexpr"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "foilscan"

	// DefaultIterations is the number of scroll passes per run.
	// Fifteen passes load a few days of activity in a busy group.
	DefaultIterations = 15

	// DefaultMinTextLength is the shortest block, in characters, treated as
	// a post. Shorter blocks are buttons, timestamps and reactions.
	DefaultMinTextLength = 50

	// DefaultExcerptLength is how many characters of a post are kept.
	DefaultExcerptLength = 500

	// DefaultMinDelay and DefaultMaxDelay bound the random pause after each
	// scroll. The pause gives the feed time to load more posts.
	DefaultMinDelay = 1500 * time.Millisecond
	DefaultMaxDelay = 3 * time.Second

	// DefaultScrollMin and DefaultScrollMax bound the random scroll distance
	// in pixels.
	DefaultScrollMin = 300
	DefaultScrollMax = 600

	// DefaultSettleDelay is the pause after each navigation.
	DefaultSettleDelay = 3 * time.Second

	// DefaultOperationTimeout bounds a single browser operation.
	// Surface pages are heavy; 60 seconds covers slow first loads.
	DefaultOperationTimeout = 60 * time.Second

	// DefaultContainerSelector matches one post in the feed.
	DefaultContainerSelector = `[role="article"]`

	// DefaultBatchSize is the number of surfaces scanned at once.
	// Each scan runs its own browser, so this stays small.
	DefaultBatchSize = 2

	// DefaultOutputPattern is the path of the run document.
	// {surface} and {date} are replaced per run.
	DefaultOutputPattern = "foilscan-{surface}-{date}.json"

	// DefaultCredentialFile is the name of the cookie file under the XDG
	// config directory.
	DefaultCredentialFile = "session.json"
)

// DefaultLoginMarkers are the URL fragments that identify a login page.
var DefaultLoginMarkers = []string{"login", "checkpoint"}

// Config holds all configuration options for a foilscan invocation.
// It is populated from CLI flags and the optional configuration file and
// passed to the pipeline explicitly.
type Config struct {
	// Targets are surface names from the configuration file or absolute
	// URLs. Each target becomes one run.
	Targets []string

	// Overrides holds the per-surface settings given as CLI flags.
	// Only flags the user changed are set; they win over everything else.
	// Overrides.Profile selects a profile for every target.
	Overrides SurfaceConfig

	// ConfigFilePath is the path to the configuration file.
	// If empty, .foilscan is searched in the current directory and then in
	// the user's home directory.
	ConfigFilePath string

	// File holds the loaded configuration file, or nil when there is none.
	File *File

	// BatchSize is the number of surfaces scanned concurrently.
	BatchSize int

	// OutputPattern is the path of the run document. An empty pattern
	// disables the document file.
	OutputPattern string

	// MarkdownFile, when set, receives a Markdown summary of each run.
	MarkdownFile string

	// JSONReport prints the run document to stdout instead of the summary.
	JSONReport bool

	// MarkdownReport prints the Markdown summary to stdout.
	MarkdownReport bool

	// DBDir is the directory of the run history database.
	// Defaults to the XDG data directory (~/.local/share/foilscan on Linux).
	DBDir string

	// SaveToDB records every run in the history database.
	SaveToDB bool

	// MetricsFile, when set, receives the run metrics in the Prometheus
	// text format after every run.
	MetricsFile string

	// Schedule is a cron expression. When set, the scan repeats on the
	// schedule until interrupted.
	Schedule string

	// Verbose enables debug logging.
	Verbose bool

	// ChromePath overrides the Chrome executable.
	ChromePath string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		BatchSize:     DefaultBatchSize,
		OutputPattern: DefaultOutputPattern,
		DBDir:         XDGDataDir(),
		SaveToDB:      true,
	}
}

// XDGDataDir returns the XDG data directory for foilscan.
// On Linux: ~/.local/share/foilscan
// On macOS: ~/Library/Application Support/foilscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for foilscan.
// On Linux: ~/.config/foilscan
// On macOS: ~/Library/Application Support/foilscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DefaultCredentialPath returns the default cookie file location.
func DefaultCredentialPath() string {
	return filepath.Join(XDGConfigDir(), DefaultCredentialFile)
}

// Validate checks the configuration and every target's resolved settings.
// It returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.Schedule != "" {
		if _, err := cronexpr.Parse(c.Schedule); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
		}
	}
	for _, target := range c.Targets {
		if _, err := c.Resolve(target); err != nil {
			return err
		}
	}
	return nil
}

// Resolve returns the settings for one target.
//
// Settings are layered, later layers winning:
// built-in defaults, the file's defaults, the selected profile, the
// surface, then CLI overrides. The profile is taken from the first of
// Overrides.Profile, the surface and the file's defaults that names one.
func (c *Config) Resolve(target string) (Settings, error) {
	var surface SurfaceConfig
	name := ""
	if IsURL(target) {
		surface = SurfaceConfig{URL: target}
	} else {
		sc, ok := c.surface(target)
		if !ok {
			return Settings{}, fmt.Errorf("%w: %q", ErrUnknownSurface, target)
		}
		surface = sc
		name = target
	}

	var defaults SurfaceConfig
	if c.File != nil {
		defaults = c.File.Defaults
	}

	s := DefaultSettings()
	s.apply(defaults)

	profileName := firstNonEmpty(c.Overrides.Profile, surface.Profile, defaults.Profile)
	if profileName != "" {
		profile, ok := c.profile(profileName)
		if !ok {
			return Settings{}, fmt.Errorf("%w: %q", ErrUnknownProfile, profileName)
		}
		s.apply(profile)
		s.Profile = profileName
	}

	s.apply(surface)
	s.apply(c.Overrides)
	s.Name = name

	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("%s: %w", target, err)
	}
	return s, nil
}

// SurfaceNames returns every surface name known to the configuration,
// built-in surfaces included, in sorted order.
func (c *Config) SurfaceNames() []string {
	seen := make(map[string]bool)
	for name := range builtinSurfaces {
		seen[name] = true
	}
	if c.File != nil {
		for name := range c.File.Surfaces {
			seen[name] = true
		}
	}
	return sortedKeys(seen)
}

func (c *Config) surface(name string) (SurfaceConfig, bool) {
	if c.File != nil {
		if sc, ok := c.File.Surfaces[name]; ok {
			return sc, true
		}
	}
	sc, ok := builtinSurfaces[name]
	return sc, ok
}

func (c *Config) profile(name string) (SurfaceConfig, bool) {
	if c.File != nil {
		if p, ok := c.File.Profiles[name]; ok {
			return p, true
		}
	}
	p, ok := builtinProfiles[name]
	return p, ok
}

// IsURL reports whether target is an http or https URL rather than a
// surface name.
func IsURL(target string) bool {
	lower := strings.ToLower(target)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
