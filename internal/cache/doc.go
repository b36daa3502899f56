// Package cache is a content-addressed result cache over SQLite with TTL
// expiry and least-recently-used eviction. It lets previously computed
// transformations be served without re-calling the external model, and it
// is the fallback source when the model is unreachable.
package cache
