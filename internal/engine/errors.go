package engine

import "fmt"

// InvalidTransitionError reports a target status outside the closed
// status set.
type InvalidTransitionError struct {
	Status string
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid task status %q", e.Status)
}
