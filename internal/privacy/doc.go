// Package privacy detects personally identifying or confidential substrings
// and makes text safe to send to an external model, reversibly.
//
// Detection is a single compiled alternation over all categories, so scan
// cost is linear in the text length regardless of how many categories are
// configured. Masking replaces each detected span with a unique placeholder
// token and records a mapping for later restoration. A separate deny-list
// check gives an unconditional hard block on sensitive keywords.
package privacy
