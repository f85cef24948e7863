package unlock

import (
	"encoding/json"
	"errors"
	"fmt"
)

type Result int

const (
	ResultUnlocked Result = iota
	ResultAlreadyUnlocked
	ResultRejected
	ResultDeferred
)

func (r Result) String() string {
	switch r {
	case ResultUnlocked:
		return "unlocked"
	case ResultAlreadyUnlocked:
		return "already-unlocked"
	case ResultRejected:
		return "rejected"
	case ResultDeferred:
		return "deferred"
	}
	return "unknown"
}

// Results cross the API as their text names.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "unlocked":
		*r = ResultUnlocked
	case "already-unlocked":
		*r = ResultAlreadyUnlocked
	case "rejected":
		*r = ResultRejected
	case "deferred":
		*r = ResultDeferred
	default:
		return fmt.Errorf("unknown unlock result %q", s)
	}
	return nil
}

const (
	ReasonAuthRequired = "authentication-required"
	ReasonScoreTooLow  = "score-too-low"
	ReasonInvalidID    = "invalid-blog-id"
	ReasonStoreError   = "store-error"
)

// Outcome is the gate's decision for one unlock attempt. Reason is
// empty on the granted results.
type Outcome struct {
	Result Result `json:"result"`
	Reason string `json:"reason,omitempty"`
}

// Granted reports whether the content is accessible after this
// outcome. AlreadyUnlocked is a success, not an error.
func (o Outcome) Granted() bool {
	return o.Result == ResultUnlocked || o.Result == ResultAlreadyUnlocked
}

func (o Outcome) String() string {
	if o.Reason == "" {
		return o.Result.String()
	}
	return o.Result.String() + ": " + o.Reason
}

// Sentinel errors a Store implementation must surface so the gate
// never inspects backend-specific codes.
var (
	// ErrDuplicate means an unlock record for (user, post) already
	// exists. The gate folds it into AlreadyUnlocked.
	ErrDuplicate = errors.New("unlock already recorded")

	// ErrPostNotFound means the post the record would reference does
	// not exist.
	ErrPostNotFound = errors.New("post not found")
)
