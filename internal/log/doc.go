// Package log provides secure logging built on log/slog.
//
// The SecureHandler masks session secrets before they reach the output:
//   - cookie and session attributes, and the surface's session cookie
//     names (c_user, xs, fr, datr, sb)
//   - values that look like cookie headers or bearer tokens
//   - passwords, tokens and other credentials
//
// Values implementing slog.LogValuer are resolved before they are checked.
// Sensitive values stay masked in verbose mode too, since debug logs from
// scheduled runs are often kept on disk.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("credential loaded", "cookie", "c_user=1; xs=abc")
//	// cookie=***REDACTED***
//	slog.SetDefault(logger)
package log
