package config

import (
	"net/url"
	"slices"
	"sort"
	"time"
)

// Settings are the resolved options for one run against one surface.
type Settings struct {
	// Name is the surface name, or empty for an ad-hoc URL target.
	Name string

	// Profile is the profile applied, or empty.
	Profile string

	URL               string
	CredentialStore   string
	WarmupURL         string
	ContainerSelector string
	LoginMarkers      []string

	Iterations    int
	MinTextLength int
	ExcerptLength int

	MinDelay         time.Duration
	MaxDelay         time.Duration
	ScrollMin        int
	ScrollMax        int
	SettleDelay      time.Duration
	OperationTimeout time.Duration

	Headless    bool
	Stealth     bool
	ManualLogin bool
	UserAgent   string
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() Settings {
	return Settings{
		CredentialStore:   DefaultCredentialPath(),
		ContainerSelector: DefaultContainerSelector,
		LoginMarkers:      slices.Clone(DefaultLoginMarkers),
		Iterations:        DefaultIterations,
		MinTextLength:     DefaultMinTextLength,
		ExcerptLength:     DefaultExcerptLength,
		MinDelay:          DefaultMinDelay,
		MaxDelay:          DefaultMaxDelay,
		ScrollMin:         DefaultScrollMin,
		ScrollMax:         DefaultScrollMax,
		SettleDelay:       DefaultSettleDelay,
		OperationTimeout:  DefaultOperationTimeout,
		Headless:          true,
		Stealth:           true,
	}
}

// Validate checks the settings and returns the first problem found.
func (s Settings) Validate() error {
	u, err := url.Parse(s.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidURL
	}
	if s.Iterations <= 0 {
		return ErrInvalidIterations
	}
	if s.MinTextLength < 0 {
		return ErrInvalidMinTextLength
	}
	if s.ExcerptLength < 0 {
		return ErrInvalidExcerptLength
	}
	if s.MinDelay < 0 || s.MaxDelay < s.MinDelay || s.SettleDelay < 0 {
		return ErrInvalidDelay
	}
	if s.ScrollMin < 0 || s.ScrollMax < 0 || (s.ScrollMax > 0 && s.ScrollMax < s.ScrollMin) {
		return ErrInvalidScroll
	}
	if s.OperationTimeout <= 0 {
		return ErrInvalidTimeout
	}
	return nil
}

// SurfaceConfig is one layer of settings as written in the configuration
// file or given on the command line. Unset fields leave the lower layer
// untouched; pointers are used where the zero value is meaningful.
type SurfaceConfig struct {
	URL               string   `yaml:"url,omitempty"`
	Profile           string   `yaml:"profile,omitempty"`
	CredentialStore   string   `yaml:"credentialStore,omitempty"`
	WarmupURL         *string  `yaml:"warmupUrl,omitempty"`
	ContainerSelector string   `yaml:"containerSelector,omitempty"`
	LoginMarkers      []string `yaml:"loginMarkers,omitempty"`

	Iterations    int  `yaml:"iterations,omitempty"`
	MinTextLength *int `yaml:"minTextLength,omitempty"`
	ExcerptLength *int `yaml:"excerptLength,omitempty"`

	MinDelay         *time.Duration `yaml:"minDelay,omitempty"`
	MaxDelay         *time.Duration `yaml:"maxDelay,omitempty"`
	ScrollMin        *int           `yaml:"scrollMin,omitempty"`
	ScrollMax        *int           `yaml:"scrollMax,omitempty"`
	SettleDelay      *time.Duration `yaml:"settleDelay,omitempty"`
	OperationTimeout time.Duration  `yaml:"operationTimeout,omitempty"`

	Headless    *bool  `yaml:"headless,omitempty"`
	Stealth     *bool  `yaml:"stealth,omitempty"`
	ManualLogin *bool  `yaml:"manualLogin,omitempty"`
	UserAgent   string `yaml:"userAgent,omitempty"`
}

// File is the layout of the .foilscan configuration file.
type File struct {
	// Defaults apply to every surface.
	Defaults SurfaceConfig `yaml:"defaults,omitempty"`

	// Profiles are named presets. A profile with the name of a built-in
	// profile replaces it.
	Profiles map[string]SurfaceConfig `yaml:"profiles,omitempty"`

	// Surfaces are named scan targets.
	Surfaces map[string]SurfaceConfig `yaml:"surfaces,omitempty"`
}

// apply copies every set field of o onto s.
func (s *Settings) apply(o SurfaceConfig) {
	setString(&s.URL, o.URL)
	setString(&s.CredentialStore, o.CredentialStore)
	setString(&s.ContainerSelector, o.ContainerSelector)
	setString(&s.UserAgent, o.UserAgent)
	if o.WarmupURL != nil {
		s.WarmupURL = *o.WarmupURL
	}
	if len(o.LoginMarkers) > 0 {
		s.LoginMarkers = slices.Clone(o.LoginMarkers)
	}
	if o.Iterations != 0 {
		s.Iterations = o.Iterations
	}
	if o.OperationTimeout != 0 {
		s.OperationTimeout = o.OperationTimeout
	}
	setPtr(&s.MinTextLength, o.MinTextLength)
	setPtr(&s.ExcerptLength, o.ExcerptLength)
	setPtr(&s.MinDelay, o.MinDelay)
	setPtr(&s.MaxDelay, o.MaxDelay)
	setPtr(&s.ScrollMin, o.ScrollMin)
	setPtr(&s.ScrollMax, o.ScrollMax)
	setPtr(&s.SettleDelay, o.SettleDelay)
	setPtr(&s.Headless, o.Headless)
	setPtr(&s.Stealth, o.Stealth)
	setPtr(&s.ManualLogin, o.ManualLogin)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setPtr[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func ptr[T any](v T) *T {
	return &v
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Built-in profiles reproduce the scraper variants the rider team has
// used. The file may redefine any of them.
const (
	// ProfileSmart scrolls in small random steps with random pauses,
	// arriving from the home page like a person would.
	ProfileSmart = "smart"

	// ProfileClassic jumps to the bottom of the feed ten times with fixed
	// pauses and never waits for a manual login.
	ProfileClassic = "classic"

	// ProfileInteractive shows the browser window and waits for a manual
	// login when the session has expired.
	ProfileInteractive = "interactive"

	// ProfileStandalone is the interactive variant without stealth
	// patches, for machines where they break the page.
	ProfileStandalone = "standalone"
)

const (
	homeURL           = "https://www.facebook.com/"
	windowsUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	axisRidersURL     = "https://www.facebook.com/groups/axisfoilriders"
	axisRidersSurface = "axis-riders"
)

var builtinProfiles = map[string]SurfaceConfig{
	ProfileSmart: {
		WarmupURL:   ptr(homeURL),
		Iterations:  15,
		MinDelay:    ptr(1500 * time.Millisecond),
		MaxDelay:    ptr(3 * time.Second),
		ScrollMin:   ptr(300),
		ScrollMax:   ptr(600),
		SettleDelay: ptr(3 * time.Second),
		Headless:    ptr(true),
		Stealth:     ptr(true),
		ManualLogin: ptr(true),
	},
	ProfileClassic: {
		WarmupURL:   ptr(homeURL),
		Iterations:  10,
		MinDelay:    ptr(2 * time.Second),
		MaxDelay:    ptr(2 * time.Second),
		ScrollMin:   ptr(0),
		ScrollMax:   ptr(0),
		SettleDelay: ptr(5 * time.Second),
		Headless:    ptr(true),
		Stealth:     ptr(false),
		ManualLogin: ptr(false),
	},
	ProfileInteractive: {
		WarmupURL:   ptr(""),
		Iterations:  10,
		MinDelay:    ptr(2 * time.Second),
		MaxDelay:    ptr(2 * time.Second),
		ScrollMin:   ptr(0),
		ScrollMax:   ptr(0),
		SettleDelay: ptr(5 * time.Second),
		Headless:    ptr(false),
		Stealth:     ptr(true),
		ManualLogin: ptr(true),
		UserAgent:   windowsUserAgent,
	},
	ProfileStandalone: {
		WarmupURL:   ptr(""),
		Iterations:  10,
		MinDelay:    ptr(2 * time.Second),
		MaxDelay:    ptr(2 * time.Second),
		ScrollMin:   ptr(0),
		ScrollMax:   ptr(0),
		SettleDelay: ptr(3 * time.Second),
		Headless:    ptr(false),
		Stealth:     ptr(false),
		ManualLogin: ptr(true),
	},
}

var builtinSurfaces = map[string]SurfaceConfig{
	axisRidersSurface: {
		URL:     axisRidersURL,
		Profile: ProfileSmart,
	},
}

// ProfileNames returns every profile name known to the configuration,
// built-in profiles included, in sorted order.
func (c *Config) ProfileNames() []string {
	seen := make(map[string]bool)
	for name := range builtinProfiles {
		seen[name] = true
	}
	if c.File != nil {
		for name := range c.File.Profiles {
			seen[name] = true
		}
	}
	return sortedKeys(seen)
}
