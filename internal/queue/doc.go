// Package queue persists pipeline work entries in SQLite and implements the
// atomic claim-or-reclaim that gives the system its mutual-exclusion
// guarantee.
//
// ClaimBatch flips pending (or stale claimed/processing) rows to claimed in a
// single UPDATE with a RETURNING clause, so concurrent workers never receive
// the same row. There are no heartbeats: an abandoned claim becomes
// reclaimable once it is older than the configured stale-after window, and
// any worker's next poll may pick it up.
//
// Treat this package as the single source of truth for queue semantics; when
// adding states or work types, update schema.sql and bump schemaVersion.
package queue
