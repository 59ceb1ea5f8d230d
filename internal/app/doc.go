// Package app provides the orchestration layer for the Scholar application.
//
// # Overview
//
// This package wires configuration, the API client, the resource store, the
// learner controllers and the UI together. It is the composition root: every
// long-lived dependency is created here and handed down.
//
// # Architecture
//
//  1. Load settings from ~/.config/scholar/config.toml and SCHOLAR_* variables
//  2. Load user preferences (theme, last program)
//  3. Open the structured log file; the terminal belongs to the UI
//  4. Create the rate-limited API client
//  5. Create the resource store with the re-authentication hook installed
//  6. Register the learner resources and build the controllers, gated by
//     feature flags
//  7. Load profile, dashboard and catalog concurrently
//  8. Start the background dashboard poller
//  9. Start the TUI and block until the user exits or the context is done
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       ├─────> config.Load()          Settings
//	       ├─────> api.NewClient()        HTTP transport
//	       ├─────> resource.NewStore()    Reducers + sequencing
//	       ├─────> wire()                 Registry, validation, controllers
//	       ├─────> initialLoad()          errgroup fan-out
//	       ├─────> StartPoller()          Background refresh
//	       └─────> ui.Run()               TUI (blocks)
//
//	Store observer ──signal──> UI re-reads controller state
//	Error hook (401) ─────────> UI shows the session banner
//
// # Polling Behavior
//
// The poller refreshes the dashboard and prices as background requests, so
// the UI shows no spinner for them. Failures back off exponentially up to 30
// seconds; after two consecutive failures the UI reports the client as
// offline until a refresh succeeds.
//
// # Error Handling
//
// Fatal errors (returned from Run):
//   - Invalid configuration or missing username
//   - Log file or API client initialization failure
//
// Everything after startup is recoverable: failed requests are recorded in
// the resource state and rendered by the UI, and polling continues.
package app
