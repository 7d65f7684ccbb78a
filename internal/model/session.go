package model

import (
	"encoding/json"
	"log/slog"
)

// Cookie is a single browser cookie.
// The JSON layout matches the cookie export format of common browser
// automation tools so that existing cookie files can be reused as-is.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"` //nolint:tagliatelle // export format
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"sameSite,omitempty"` //nolint:tagliatelle // export format
}

// LogValue implements slog.LogValuer.
// The cookie value is never logged.
func (c Cookie) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("name", c.Name),
		slog.String("domain", c.Domain),
		slog.String("value", "[REDACTED]"),
	)
}

// SessionCredential is the authentication state for the content surface.
//
// Validity is not derived from cookie expiry. The crawler marks a credential
// valid once a navigation using it lands on a non-login page.
type SessionCredential struct {
	// Cookies is the full cookie set applied to the browser.
	Cookies []Cookie

	// Valid reports whether the credential has been observed to work in
	// this run. It is never persisted.
	Valid bool
}

// NewSessionCredential returns a credential holding a copy of cookies.
func NewSessionCredential(cookies []Cookie) *SessionCredential {
	cp := make([]Cookie, len(cookies))
	copy(cp, cookies)
	return &SessionCredential{Cookies: cp}
}

// Empty reports whether the credential carries no cookies.
func (s *SessionCredential) Empty() bool {
	return s == nil || len(s.Cookies) == 0
}

// MarshalJSON encodes the credential as a bare cookie array.
func (s SessionCredential) MarshalJSON() ([]byte, error) {
	cookies := s.Cookies
	if cookies == nil {
		cookies = []Cookie{}
	}
	return json.Marshal(cookies)
}

// UnmarshalJSON decodes a bare cookie array.
func (s *SessionCredential) UnmarshalJSON(data []byte) error {
	var cookies []Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return err
	}
	s.Cookies = cookies
	s.Valid = false
	return nil
}

// LogValue implements slog.LogValuer.
func (s *SessionCredential) LogValue() slog.Value {
	if s == nil {
		return slog.StringValue("<none>")
	}
	return slog.GroupValue(
		slog.Int("cookies", len(s.Cookies)),
		slog.Bool("valid", s.Valid),
	)
}
