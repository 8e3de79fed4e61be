package sampler

import (
	"errors"
	"fmt"
)

var (
	// ErrInfeasible marks an attempt that could not meet some quota.
	ErrInfeasible = errors.New("sampler: infeasible attempt")
	// ErrExhaustedRetries marks a run in which every attempt was infeasible.
	ErrExhaustedRetries = errors.New("sampler: exhausted retries")
)

// InfeasibleError reports the quota that ended an attempt.
type InfeasibleError struct {
	Attempt int
	Tag     string
	Need    int
	Have    int
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("attempt %d: tag %q needs %d items but only %d are eligible", e.Attempt, e.Tag, e.Need, e.Have)
}

func (e *InfeasibleError) Unwrap() error {
	return ErrInfeasible
}

// ExhaustedError is returned by Sample when no attempt succeeded. MaxTries
// is the configured bound, Last the failure of the final attempt (nil when
// no attempt ran).
type ExhaustedError struct {
	MaxTries int
	Last     *InfeasibleError
}

func (e *ExhaustedError) Error() string {
	msg := fmt.Sprintf("Tried to assemble the test %d times. Increase --max_tries or check the configuration file.", e.MaxTries)
	if e.Last != nil {
		msg += fmt.Sprintf(" (last failure: tag %q needs %d, %d eligible)", e.Last.Tag, e.Last.Need, e.Last.Have)
	}
	return msg
}

func (e *ExhaustedError) Unwrap() error {
	return ErrExhaustedRetries
}
