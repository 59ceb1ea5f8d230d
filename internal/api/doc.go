// Package api provides the HTTP JSON transport for the learner API and the
// payload types it exchanges.
//
// # Overview
//
// The package has no knowledge of caching or sequencing. It performs one
// round trip per call and reports the outcome; the resource layer decides
// what that outcome means for cached state.
//
//   - client.go: Client, FetchJSON and base URL normalization
//   - errors.go: HTTPError and status helpers
//   - types.go: data structures mirroring the API schema
//
// # Client Usage
//
//	client, err := api.NewClient("https://learn.example.edu", api.Options{
//		Timeout:           10 * time.Second,
//		RequestsPerSecond: 5,
//	})
//	if err != nil {
//		return err
//	}
//	raw, err := client.FetchJSON(ctx, http.MethodGet, "/api/v0/programs/", nil)
//
// # Request Handling
//
// All requests:
//   - Wait on a client-side rate limiter (unlimited when RequestsPerSecond is 0)
//   - Carry Accept: application/json and User-Agent: scholar/0.1
//   - Carry a fresh X-Request-ID so server logs can be correlated
//   - Encode a non-nil body as JSON with Content-Type: application/json
//
// # Error Handling
//
// Non-2xx responses become *HTTPError carrying the status code, the request
// path and, when the server sent a JSON object, its decoded fields (Django
// REST framework style field -> messages). Network failures are wrapped plain
// errors with no status code, so StatusCode(err) returns 0 for them.
//
// Example error messages:
//   - "execute request: dial tcp: connection refused"
//   - "api /api/v0/profiles/ada/ returned status 400"
//
// IsAuthError reports 401 responses.
//
// # URL Construction
//
// NewClient accepts host:port or a full URL; the scheme defaults to http and
// any path, query or fragment on the base is dropped. Paths passed to
// FetchJSON are resolved against that root.
//
// # Thread Safety
//
// Client is safe for concurrent use.
package api
