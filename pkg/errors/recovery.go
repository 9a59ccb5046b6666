// Panic recovery for worker goroutines. A panicking kernel or reduction is
// turned into a PanicError so one bad partition fails the call instead of the
// process.

package errors

import (
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog"
)

// PanicError is a recovered panic.
type PanicError struct {
	// PanicValue is the argument passed to panic.
	PanicValue interface{}

	// StackTrace is captured where the panic was recovered.
	StackTrace string

	// Operation names the recovering call site.
	Operation string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.PanicValue)
}

// String includes the stack trace.
func (e *PanicError) String() string {
	return fmt.Sprintf("panic in %s: %v\nStack trace:\n%s",
		e.Operation, e.PanicValue, e.StackTrace)
}

// MarshalZerologObject adds the panic context to a zerolog event.
func (e *PanicError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Operation).
		Interface("panic", e.PanicValue).
		Str("type", "PanicError")
}

// NewPanicError captures the current stack for panicValue.
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
		Operation:  operation,
	}
}

// Recover converts a panic into an error assigned to *err. Use it with defer:
//
//	func work() (err error) {
//	    defer Recover(&err, "work")
//	    ...
//	}
//
// An error already present in *err is kept as the cause.
func Recover(err *error, operation string) {
	if r := recover(); r != nil {
		if *err != nil {
			*err = Wrapf(*err, "panic in %s: %v", operation, r)
			return
		}
		*err = NewPanicError(operation, r)
	}
}

// SafeExecute executes fn and recovers from any panic, converting it to an error.
func SafeExecute(operation string, fn func() error) (err error) {
	defer Recover(&err, operation)
	return fn()
}
