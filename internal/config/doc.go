// Package config loads Scholar's settings.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/scholar/config.toml (default)
//  3. If the config file doesn't exist, fall back to defaults
//  4. SCHOLAR_* environment variables override file values
//  5. Empty or out-of-range values fall back to defaults
//
// Nested keys map to environment variables with dots replaced by
// underscores, so features.email is SCHOLAR_FEATURES_EMAIL.
//
// # TOML Format
//
//	api_url = "https://learn.example.edu"
//	username = "ada"
//	poll_seconds = 15
//	request_timeout_seconds = 10
//	requests_per_second = 5
//	log_file = "~/.config/scholar/scholar.log"
//
//	[features]
//	financial_aid = true
//	email = false
//
// Every field is optional for Load. Settings.Validate rejects settings
// without a username, which the dashboard and profile endpoints need.
// requests_per_second = 0 disables client-side rate limiting.
//
// # Error Handling
//
// Load returns errors for path expansion failures, unreadable files and
// TOML parse errors. A missing file is not an error.
//
// Settings is a plain value with no global state; callers pass it to the
// components that need it.
package config
