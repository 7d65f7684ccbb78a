package model

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

// TestSessionCredentialJSON tests that credentials round-trip as a bare
// cookie array, the format produced by browser automation cookie exports.
func TestSessionCredentialJSON(t *testing.T) {
	t.Parallel()

	t.Run("decodes cookie export", func(t *testing.T) {
		t.Parallel()

		data := `[{"name":"c_user","value":"100","domain":".example.com","path":"/","httpOnly":true,"secure":true,"sameSite":"None"}]`
		var cred SessionCredential
		if err := json.Unmarshal([]byte(data), &cred); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cred.Cookies) != 1 {
			t.Fatalf("expected 1 cookie, got %d", len(cred.Cookies))
		}
		c := cred.Cookies[0]
		if c.Name != "c_user" || !c.HTTPOnly || c.SameSite != "None" {
			t.Errorf("unexpected cookie: %+v", c)
		}
		if cred.Valid {
			t.Error("decoded credential must not be marked valid")
		}
	})

	t.Run("encodes empty credential as empty array", func(t *testing.T) {
		t.Parallel()

		data, err := json.Marshal(SessionCredential{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != "[]" {
			t.Errorf("got %s, expected []", data)
		}
	})

	t.Run("rejects non-array document", func(t *testing.T) {
		t.Parallel()

		var cred SessionCredential
		if err := json.Unmarshal([]byte(`{"cookies":[]}`), &cred); err == nil {
			t.Error("expected error for object document")
		}
	})
}

// TestSessionCredentialEmpty tests the Empty helper.
func TestSessionCredentialEmpty(t *testing.T) {
	t.Parallel()

	var nilCred *SessionCredential
	if !nilCred.Empty() {
		t.Error("nil credential should be empty")
	}
	if !NewSessionCredential(nil).Empty() {
		t.Error("credential without cookies should be empty")
	}
	if NewSessionCredential([]Cookie{{Name: "xs", Value: "v"}}).Empty() {
		t.Error("credential with cookies should not be empty")
	}
}

// TestCookieLogValue tests that cookie values never reach logs.
func TestCookieLogValue(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	logger.Info("cookie", "cookie", Cookie{Name: "xs", Value: "super-secret", Domain: ".example.com"})

	out := buf.String()
	if strings.Contains(out, "super-secret") {
		t.Errorf("cookie value leaked: %s", out)
	}
	if !strings.Contains(out, "xs") {
		t.Errorf("expected cookie name in output: %s", out)
	}
}
