package model

import "errors"

// Error taxonomy for the polling engine. Adapters wrap these sentinels so
// callers can decide with errors.Is whether a failure stops the process
// (ErrAuth), skips one record (ErrParse), or drops one notification
// (ErrDevice). Anything else is transient: the cycle is skipped and retried
// on the next interval.
var (
	ErrAuth   = errors.New("github credentials rejected")
	ErrDevice = errors.New("blink(1) device unavailable")
	ErrParse  = errors.New("malformed record")
)
