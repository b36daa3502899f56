// Flowgate is a resilience and integrity gateway for text sent to an
// external LLM.
//
// It masks PII and user-defined sensitive terms before transmission,
// restores them in the response, caches results for outage fallback,
// keeps a durable retry queue for deferred work, and records every
// transformation in a hash-chained audit ledger.
//
// Usage:
//
//	flowgate process "draft text" --intensity 60   # transform now
//	flowgate scan "draft text"                     # detect PII only
//	flowgate queue enqueue "draft text"            # defer work
//	flowgate queue drain                           # process pending jobs
//	flowgate audit verify                          # check ledger integrity
//	flowgate cache warmup texts.txt --levels 30,60 # precompute results
//	flowgate vocab add ProjectTitan                # mask a custom term
package main
