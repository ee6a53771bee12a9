// Package updater is the engine core: the poll cycle that turns raw
// instrument history into chat notifications.
//
// One Orchestrator instance owns all mutable state (seen fingerprints,
// resolved target, image cooldown). Fetches within a cycle run
// concurrently and are joined before processing; a failed category is
// skipped for the cycle, never fatal.
package updater
