// Package substrate persists the governed knowledge base in SQLite: raw
// dumps, blocks, context items, relationships, documents, and the append-only
// timeline events consumed by the observability sink.
//
// Snapshot reads are advisory. They feed best-effort duplicate detection and
// are never linearizable with concurrent proposal execution; nothing else in
// the system may treat them as a correctness guarantee.
package substrate
