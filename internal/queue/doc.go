// Package queue implements a durable retry queue for text transformations
// that could not complete synchronously. Jobs persist across process
// restarts; a drain pass claims pending jobs one at a time and retries
// each until it succeeds or exhausts its retry budget.
package queue
