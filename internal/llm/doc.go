// Package llm abstracts the external text-generation API behind the
// Generator interface.
//
// The concrete Gemini client calls the REST generateContent endpoint with
// a shared retry helper: rate-limit responses are retried with exponential
// back-off, everything else fails fast as a typed error. The base URL is a
// struct field so tests can point the client at a local httptest server.
package llm
