// Package challenge implements the hold-timer state machine and the
// scoring and progression rules of a pose challenge session.
//
// All transitions are pure: Reduce takes a State and an Event and returns
// the next State without touching the input.
package challenge

import (
	"errors"
	"fmt"
	"time"
)

// DefaultHoldDuration is the hold target a session starts with.
const DefaultHoldDuration = 5 * time.Second

// HoldDurations are the hold targets a user may choose from.
var HoldDurations = []time.Duration{
	3 * time.Second,
	5 * time.Second,
	10 * time.Second,
	15 * time.Second,
	30 * time.Second,
}

// ErrInvalidTarget is returned when a hold target is not one of HoldDurations.
var ErrInvalidTarget = errors.New("invalid hold duration")

// ValidHoldDuration reports whether d is one of HoldDurations.
func ValidHoldDuration(d time.Duration) bool {
	for _, h := range HoldDurations {
		if h == d {
			return true
		}
	}
	return false
}

// HoldSeconds converts a whole number of seconds to a hold target,
// rejecting values outside HoldDurations.
func HoldSeconds(seconds int) (time.Duration, error) {
	d := time.Duration(seconds) * time.Second
	if !ValidHoldDuration(d) {
		return 0, fmt.Errorf("%w: %ds", ErrInvalidTarget, seconds)
	}
	return d, nil
}
