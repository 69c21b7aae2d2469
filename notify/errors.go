package notify

import (
	"errors"
	"fmt"
)

var (
	// ErrServiceInit is matched by errors returned when no session
	// with the notification service could be established.
	ErrServiceInit = errors.New("notification service init failed")
	// ErrDisplay is matched by errors returned when the notification
	// could not be updated or shown.
	ErrDisplay = errors.New("notification display failed")
	// ErrInvalidUrgency is returned for urgencies outside Low..Critical.
	ErrInvalidUrgency = errors.New("invalid urgency")
	// ErrReleased is returned when a released notification is reused.
	ErrReleased = errors.New("notification already released")
)

// Step names the shim step an Error originated from.
type Step string

const (
	StepInit   Step = "init"
	StepUpdate Step = "update"
	StepShow   Step = "show"
)

// Error is returned by Shim.Notify and Shim.Send.
type Error struct {
	// Kind is ErrServiceInit or ErrDisplay.
	Kind error
	Step Step
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v (%s)", e.Kind, e.Step)
	}
	return fmt.Sprintf("%v (%s): %v", e.Kind, e.Step, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// ExitCode maps err to a process status:
// 0 success, 1 service init, 2 update, 3 show, 4 anything else.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ne *Error
	if errors.As(err, &ne) {
		switch ne.Step {
		case StepInit:
			return 1
		case StepUpdate:
			return 2
		case StepShow:
			return 3
		}
	}
	return 4
}
