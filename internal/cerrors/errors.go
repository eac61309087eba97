// Package cerrors defines the structured error kinds used across the
// pipeline. Registration errors are caller-facing and recoverable; runtime
// errors are internal and surfaced via logs/events; queue errors are
// internal bookkeeping raised by FrameQueue/AudioQueue.
package cerrors

import "fmt"

// Kind is one of the structured error categories the control plane reports.
type Kind string

const (
	// Registration errors — caller-facing, recoverable.
	KindDuplicateID   Kind = "DuplicateId"
	KindUnknownRef    Kind = "UnknownReference"
	KindInvalidScene  Kind = "InvalidScene"
	KindInUse         Kind = "InUse"
	KindDuplicateInput Kind = "DuplicateInput"

	// Runtime errors — internal, surfaced as events/logs.
	KindFrameConversion Kind = "FrameConversion"
	KindDecoderFailure  Kind = "DecoderFailure"
	KindEncoderFailure  Kind = "EncoderFailure"
	KindGPULost         Kind = "GpuLost"

	// Queue errors — internal.
	KindUnknownInput Kind = "UnknownInput"
	KindOldPTS       Kind = "OldPts"
)

// Error is the structured error type returned by registration/update calls
// and carried on internal runtime/queue failures.
type Error struct {
	Kind    Kind
	Message string
	Stack   string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New constructs an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// HTTPStatus maps a Kind to the status code the control plane should return
// for a user-visible failure.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindInUse:
		return 409
	case KindDuplicateID, KindDuplicateInput, KindUnknownRef, KindInvalidScene, KindUnknownInput:
		return 400
	default:
		return 500
	}
}

// IsCallerFacing reports whether this kind is a registration/caller error
// (vs. an internal runtime/queue error).
func (k Kind) IsCallerFacing() bool {
	switch k {
	case KindDuplicateID, KindDuplicateInput, KindUnknownRef, KindInvalidScene, KindInUse:
		return true
	default:
		return false
	}
}
