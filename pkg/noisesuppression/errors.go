package noisesuppression

import (
	"errors"
	"fmt"
	"strings"
)

type Status int32

const (
	StatusSuccess = Status(iota)
	StatusOutOfMemory
	StatusIOError
	StatusInvalidArgument
	StatusStopIteration
	StatusKeyError
	StatusInvalidState
	StatusRuntimeError
	StatusActivationError
	StatusActivationLimitReached
	StatusActivationThrottled
	StatusActivationRefused
	EndOfStatus
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusOutOfMemory:
		return "OUT_OF_MEMORY"
	case StatusIOError:
		return "IO_ERROR"
	case StatusInvalidArgument:
		return "INVALID_ARGUMENT"
	case StatusStopIteration:
		return "STOP_ITERATION"
	case StatusKeyError:
		return "KEY_ERROR"
	case StatusInvalidState:
		return "INVALID_STATE"
	case StatusRuntimeError:
		return "RUNTIME_ERROR"
	case StatusActivationError:
		return "ACTIVATION_ERROR"
	case StatusActivationLimitReached:
		return "ACTIVATION_LIMIT_REACHED"
	case StatusActivationThrottled:
		return "ACTIVATION_THROTTLED"
	case StatusActivationRefused:
		return "ACTIVATION_REFUSED"
	default:
		return fmt.Sprintf("UNKNOWN_STATUS_%d", int32(s))
	}
}

var (
	ErrOutOfMemory            = errors.New("out of memory")
	ErrIO                     = errors.New("I/O error")
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrStopIteration          = errors.New("stop iteration")
	ErrKeyNotFound            = errors.New("key not found")
	ErrInvalidState           = errors.New("invalid state")
	ErrRuntime                = errors.New("runtime error")
	ErrActivation             = errors.New("activation error")
	ErrActivationLimitReached = errors.New("activation limit reached")
	ErrActivationThrottled    = errors.New("activation throttled")
	ErrActivationRefused      = errors.New("activation refused")
)

// Sentinel returns the error kind of the status. Unknown statuses are
// reported as ErrInvalidState; StatusSuccess has no kind and returns nil.
func (s Status) Sentinel() error {
	switch s {
	case StatusSuccess:
		return nil
	case StatusOutOfMemory:
		return ErrOutOfMemory
	case StatusIOError:
		return ErrIO
	case StatusInvalidArgument:
		return ErrInvalidArgument
	case StatusStopIteration:
		return ErrStopIteration
	case StatusKeyError:
		return ErrKeyNotFound
	case StatusInvalidState:
		return ErrInvalidState
	case StatusRuntimeError:
		return ErrRuntime
	case StatusActivationError:
		return ErrActivation
	case StatusActivationLimitReached:
		return ErrActivationLimitReached
	case StatusActivationThrottled:
		return ErrActivationThrottled
	case StatusActivationRefused:
		return ErrActivationRefused
	default:
		return ErrInvalidState
	}
}

// Error is a failure reported by an engine. errors.Is matches it against
// the sentinel of its Status.
type Error struct {
	Status Status
	Op     string

	// MessageStack is the diagnostic trace of the engine, the most specific message last.
	MessageStack []string
}

// NewError returns nil on StatusSuccess.
func NewError(op string, status Status, messageStack []string) error {
	if status == StatusSuccess {
		return nil
	}
	return &Error{
		Status:       status,
		Op:           op,
		MessageStack: messageStack,
	}
}

func (e *Error) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "%s failed with '%s'", e.Op, e.Status)
	if len(e.MessageStack) > 0 {
		buf.WriteString(":")
		for idx, msg := range e.MessageStack {
			fmt.Fprintf(&buf, "\n  [%d] %s", idx, msg)
		}
	}
	return buf.String()
}

func (e *Error) Unwrap() error {
	return e.Status.Sentinel()
}
