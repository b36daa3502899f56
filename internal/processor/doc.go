// Package processor orchestrates one text transformation end to end:
// deny-list check, PII masking, model routing, the external call,
// unmasking, audit logging, and cache fallback when the upstream is
// unavailable. Every failure leaves Process as a structured Failure with
// a machine-readable kind; raw errors never escape to the caller.
package processor
