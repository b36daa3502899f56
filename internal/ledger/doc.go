// Package ledger maintains a tamper-evident audit trail. Every record
// carries a SHA-256 hash of its own content plus the hash of the previous
// record, forming a chain rooted at a fixed genesis value. Editing or
// deleting any historical record breaks the chain for all records after it.
package ledger
