package processor

import "fmt"

// Failure kinds. Callers branch on these, not on message text.
const (
	KindPIIBlocked        = "pii_blocked"
	KindAPINotConfigured  = "api_not_configured"
	KindSafetyBlocked     = "safety_blocked"
	KindAPIError          = "api_error"
	KindInternalError     = "internal_error"
	KindJobFailedMaxRetry = "job_failed_max_retry"
)

// Failure is the structured error half of a Process outcome. Action is a
// human-readable suggestion for the caller.
type Failure struct {
	Kind    string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action"`
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Result is the success half of a Process outcome.
type Result struct {
	Text      string `json:"result"`
	Model     string `json:"model_used,omitempty"`
	Intensity int    `json:"intensity"`
	FromCache bool   `json:"from_cache"`
}
