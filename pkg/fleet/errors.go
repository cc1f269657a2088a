package fleet

import (
	"errors"
	"fmt"
)

// ErrRefreshTimeout means the timeout budget lapsed before the refresh
// reached a terminal status. The refresh may still be progressing on the
// provider side; callers must treat the rollout as unknown, not failed.
var ErrRefreshTimeout = errors.New("refresh did not reach a terminal state within the timeout budget")

// TemplateLookupError means the fleet's boot template could not be
// uniquely resolved. Not retryable; requires operator intervention.
type TemplateLookupError struct {
	FleetID string
	Matches int
	Err     error
}

func (e *TemplateLookupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("boot template lookup for fleet %q failed: %v", e.FleetID, e.Err)
	}
	return fmt.Sprintf("boot template for fleet %q is ambiguous: %d candidates match the naming convention", e.FleetID, e.Matches)
}

func (e *TemplateLookupError) Unwrap() error {
	return e.Err
}

// RefreshStartError means a refresh could not be started, including the
// case where one is already in progress for the fleet.
type RefreshStartError struct {
	FleetID string
	Reason  string
	Err     error
}

func (e *RefreshStartError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot start refresh for fleet %q: %s: %v", e.FleetID, e.Reason, e.Err)
	}
	return fmt.Sprintf("cannot start refresh for fleet %q: %s", e.FleetID, e.Reason)
}

func (e *RefreshStartError) Unwrap() error {
	return e.Err
}
