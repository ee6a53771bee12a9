// Package storage persists the dedup seen-set across restarts.
//
// The engine works fine without it (driver "none"); it just re-learns the
// event history on the next start and may re-announce events older than the
// dedup window.
package storage
