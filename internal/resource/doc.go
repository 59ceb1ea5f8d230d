// Package resource synchronizes server-owned resources into an in-memory cache.
//
// # Overview
//
// Every screen in Scholar reads server data (profile, dashboard, programs,
// coupons, prices, channels, automatic emails) through this package. A
// resource is described once by a Descriptor and registered with a Store;
// registration yields a Resource whose actions talk to the server and whose
// cache is only ever changed by its reducer.
//
// # Event Protocol
//
// A descriptor with operations {GET, PATCH} named "profile" derives:
//
//	PROFILE_REQUEST_GET    PROFILE_GET_SUCCESS    PROFILE_GET_FAILURE
//	PROFILE_REQUEST_PATCH  PROFILE_PATCH_SUCCESS  PROFILE_PATCH_FAILURE
//	PROFILE_CLEAR
//
// Calling an action dispatches exactly one request event before it returns,
// then exactly one success or failure event from a background goroutine.
// Transport panics are recovered and reported as failures. The returned
// Future resolves with the transformed value or the error.
//
// # Reducer
//
//	idle ──REQUEST──> processing ──SUCCESS──> loaded
//	                       │
//	                       └──────FAILURE──> errored (data kept)
//
// A new request from loaded or errored keeps Data so the UI can show stale
// content under a spinner. POST and PATCH results are merged through
// Descriptor.Merge and never touch GetStatus. CLEAR resets the resource, or a
// single subject of a namespaced resource.
//
// # Sequencing
//
// Overlapping requests for the same resource, subject and operation can
// resolve out of order. The Store numbers each request and only the most
// recently issued one may commit:
//
//	t0  get#1 issued
//	t1  get#2 issued
//	t2  get#2 resolves  -> committed
//	t3  get#1 resolves  -> Stale, delivered to observers, not reduced
//
// The superseded Future resolves with ErrSuperseded. There is no cancel
// primitive: a later request, or a clear, simply voids the earlier one.
//
// # Concurrency Model
//
// Dispatch holds the Store mutex for the whole transition, so reducers run to
// completion one event at a time and the sequence check cannot race. Reads
// through Resource.State take the resource's own read lock and never block on
// network I/O.
//
// # Errors
//
// Failures are recorded on State.Err and the operation status; they do not
// panic and are not otherwise propagated. Callers that care wait on the
// Future. A Store built with WithErrorHook is told about every committed
// failure, which is where re-authentication redirects hang off.
package resource
