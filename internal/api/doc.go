// Package api is the HTTP client for the instrument-control ("SpaceCat")
// API exposed by the imaging PC.
//
// All calls go through one retry/backoff path and a shared circuit breaker,
// so callers see a single failure surface: *api.Error. Failures are expected
// during normal operation (the imaging PC reboots, the sequencer restarts)
// and are non-fatal to the poll engine.
package api
