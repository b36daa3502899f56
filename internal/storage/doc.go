// Package storage owns the SQLite connection: pragmas, embedded schema
// migrations, and small shared helpers for query building and transactions.
package storage
