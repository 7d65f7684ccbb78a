package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

// TestSecureHandler_SanitizesSensitiveKeys tests that sensitive keys are sanitized.
func TestSecureHandler_SanitizesSensitiveKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		key      string
		value    string
		wantMask bool
	}{
		{name: "cookie key is sanitized", key: "cookie", value: "c_user=100", wantMask: true},
		{name: "Cookie key (uppercase) is sanitized", key: "Cookie", value: "presence=1", wantMask: true},
		{name: "cookies key is sanitized", key: "cookies", value: "[a b]", wantMask: true},
		{name: "session cookie name c_user is sanitized", key: "c_user", value: "100012345", wantMask: true},
		{name: "session cookie name xs is sanitized", key: "xs", value: "12%3Aabc", wantMask: true},
		{name: "session cookie name datr is sanitized", key: "datr", value: "abcdef", wantMask: true},
		{name: "key containing cookie is sanitized", key: "session_cookie_header", value: "x", wantMask: true},
		{name: "token key is sanitized", key: "token", value: "abc", wantMask: true},
		{name: "password key is sanitized", key: "password", value: "hunter2", wantMask: true},
		{name: "credential key is sanitized", key: "credential", value: "loaded", wantMask: true},
		{name: "url key is NOT sanitized", key: "url", value: "https://www.facebook.com/groups/axisfoilriders", wantMask: false},
		{name: "surface key is NOT sanitized", key: "surface", value: "axis-riders", wantMask: false},
		{name: "redis key is NOT sanitized", key: "key", value: "foilscan:session", wantMask: false},
		{name: "use_case key is NOT sanitized", key: "use_case", value: "pump", wantMask: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := slog.New(NewSecureHandler(slog.NewTextHandler(&buf, nil)))
			logger.Info("test", tt.key, tt.value)

			output := buf.String()
			masked := strings.Contains(output, MaskValue)
			if masked != tt.wantMask {
				t.Errorf("masked = %v, want %v (output: %s)", masked, tt.wantMask, output)
			}
			if tt.wantMask && strings.Contains(output, tt.value) {
				t.Errorf("output contains the raw value %q: %s", tt.value, output)
			}
		})
	}
}

// TestSecureHandler_SanitizesSensitiveValues tests pattern-based masking.
func TestSecureHandler_SanitizesSensitiveValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		value    string
		wantMask bool
	}{
		{name: "cookie header", value: "c_user=100012345; xs=12%3Aabc; fr=0xyz", wantMask: true},
		{name: "cookie header with trailing separator", value: "datr=abc; sb=def;", wantMask: true},
		{name: "single session cookie pair", value: "xs=12%3Aabcdef", wantMask: true},
		{name: "bearer token", value: "Bearer abc.def.ghi", wantMask: true},
		{name: "long opaque string", value: strings.Repeat("a1B2", 12), wantMask: true},
		{name: "query-like text is not a cookie header", value: "weight=80kg", wantMask: false},
		{name: "post text", value: "Riding the ART 999 at 80kg, loving it", wantMask: false},
		{name: "url", value: "https://www.facebook.com/login/?next=groups", wantMask: false},
		{name: "run id", value: "0f8fad5b-d9cb-469f-a165-70867728950e", wantMask: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := slog.New(NewSecureHandler(slog.NewTextHandler(&buf, nil)))
			logger.Info("test", "detail", tt.value)

			masked := strings.Contains(buf.String(), MaskValue)
			if masked != tt.wantMask {
				t.Errorf("masked = %v, want %v (output: %s)", masked, tt.wantMask, buf.String())
			}
		})
	}
}

type sessionSummary struct {
	user  string
	token string
}

func (s sessionSummary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("user", s.user),
		slog.String("token", s.token),
	)
}

func TestSecureHandler_ResolvesLogValuer(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(NewSecureHandler(slog.NewTextHandler(&buf, nil)))
	logger.Info("loaded", "summary", sessionSummary{user: "rider", token: "topsecretvalue"})

	output := buf.String()
	if strings.Contains(output, "topsecretvalue") {
		t.Errorf("token leaked through LogValuer: %s", output)
	}
	if !strings.Contains(output, "summary.user=rider") {
		t.Errorf("expected the resolved group in output: %s", output)
	}
}

func TestSecureHandler_Groups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(NewSecureHandler(slog.NewTextHandler(&buf, nil)))
	logger.Info("request",
		slog.Group("browser",
			slog.String("url", "https://www.facebook.com"),
			slog.String("cookie", "c_user=1"),
		),
	)

	output := buf.String()
	if !strings.Contains(output, "browser.url=https://www.facebook.com") {
		t.Errorf("expected url in output: %s", output)
	}
	if !strings.Contains(output, "browser.cookie="+MaskValue) {
		t.Errorf("expected masked cookie in group: %s", output)
	}
}

func TestSecureHandler_WithAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(NewSecureHandler(slog.NewTextHandler(&buf, nil))).
		With("xs", "12%3Aabc", "surface", "axis-riders")
	logger.Info("scroll pass")

	output := buf.String()
	if strings.Contains(output, "12%3Aabc") {
		t.Errorf("With attribute leaked: %s", output)
	}
	if !strings.Contains(output, "surface=axis-riders") {
		t.Errorf("expected surface in output: %s", output)
	}
}

func TestSecureHandler_WithGroup(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(NewSecureHandler(slog.NewTextHandler(&buf, nil))).WithGroup("engine")
	logger.Info("state", "password", "hunter2", "state", "discovering")

	output := buf.String()
	if !strings.Contains(output, "engine.password="+MaskValue) {
		t.Errorf("expected masked grouped attribute: %s", output)
	}
	if !strings.Contains(output, "engine.state=discovering") {
		t.Errorf("expected grouped attribute: %s", output)
	}
}

func TestNewSecureHandler_NilUsesDefault(t *testing.T) {
	t.Parallel()

	h := NewSecureHandler(nil)
	if h.handler == nil {
		t.Fatal("expected a default handler")
	}
}

func TestNewSecureLogger_Levels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		verbose   bool
		level     slog.Level
		wantShown bool
	}{
		{name: "debug hidden by default", verbose: false, level: slog.LevelDebug, wantShown: false},
		{name: "info hidden by default", verbose: false, level: slog.LevelInfo, wantShown: false},
		{name: "warn shown by default", verbose: false, level: slog.LevelWarn, wantShown: true},
		{name: "debug shown when verbose", verbose: true, level: slog.LevelDebug, wantShown: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := NewSecureLogger(&buf, tt.verbose)
			logger.Log(context.Background(), tt.level, "message")

			shown := buf.Len() > 0
			if shown != tt.wantShown {
				t.Errorf("shown = %v, want %v", shown, tt.wantShown)
			}
		})
	}
}

func TestNewSecureJSONLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewSecureJSONLogger(&buf, false)
	logger.Warn("login required", "cookie", "c_user=1", "surface", "axis-riders")

	output := buf.String()
	if !strings.Contains(output, `"cookie":"`+MaskValue+`"`) {
		t.Errorf("expected masked cookie in JSON: %s", output)
	}
	if !strings.Contains(output, `"surface":"axis-riders"`) {
		t.Errorf("expected surface in JSON: %s", output)
	}
}
