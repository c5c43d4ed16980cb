// Package errors extends the standard library errors with slog annotations and the source location where
// the error was created.
package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
)

// annotatedError carries a message, optional cause, attributes and the creating call site.
type annotatedError struct {
	msg   string
	err   error
	attrs []slog.Attr
	// source is file:line of the creating call site.
	source string
}

func (e *annotatedError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *annotatedError) Unwrap() error {
	return e.err
}

func frameSource(frame runtime.Frame) string {
	if frame.File == "" {
		return ""
	}
	return frame.File + ":" + strconv.Itoa(frame.Line)
}

// callerSource returns the call site of the exported constructor.
func callerSource() string {
	var pcs [1]uintptr
	// Skip runtime.Callers, callerSource and the constructor.
	if runtime.Callers(3, pcs[:]) == 0 { //nolint:mnd // frames to skip
		return ""
	}
	frame, _ := runtime.CallersFrames(pcs[:]).Next()
	return frameSource(frame)
}

// NewSentinel creates an error meant to be compared with [Is]. It records no source location.
func NewSentinel(msg string) error {
	return errors.New(msg) //nolint:err113 // sentinel constructor
}

// New creates an error annotated with attrs and the caller's source location.
func New(msg string, attrs ...slog.Attr) error {
	return &annotatedError{msg: msg, err: nil, attrs: attrs, source: callerSource()}
}

// Wrap adds msg, attrs and the caller's source location to err.
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	return &annotatedError{msg: msg, err: err, attrs: attrs, source: callerSource()}
}

// DecoratePanic converts a recovered panic value into an error pointing at the panicking line. It
// returns nil when excp is nil.
func DecoratePanic(excp any) error {
	if excp == nil {
		return nil
	}
	if err, ok := excp.(error); ok {
		return &annotatedError{msg: "panic", err: err, attrs: nil, source: panicSource()}
	}
	return &annotatedError{msg: fmt.Sprintf("panic: %v", excp), err: nil, attrs: nil, source: panicSource()}
}

// panicSource finds the first frame outside the runtime below runtime.gopanic.
func panicSource() string {
	pcs := make([]uintptr, 32) //nolint:mnd // deep enough for deferred recover
	n := runtime.Callers(1, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	afterPanic := false
	for {
		frame, more := frames.Next()
		if afterPanic && !strings.HasPrefix(frame.Function, "runtime.") {
			return frameSource(frame)
		}
		if frame.Function == "runtime.gopanic" {
			afterPanic = true
		}
		if !more {
			return ""
		}
	}
}

// SlogError renders err as an "error" group holding the message, the annotations collected from the whole
// error chain and the source location of the innermost annotated error.
func SlogError(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	var (
		annotations []any
		source      string
	)
	walk(err, func(ae *annotatedError) {
		for _, a := range ae.attrs {
			annotations = append(annotations, a)
		}
		if ae.source != "" {
			source = ae.source
		}
	})

	attrs := []any{slog.String("message", err.Error())}
	if len(annotations) > 0 {
		attrs = append(attrs, slog.Group("annotations", annotations...))
	}
	if source != "" {
		attrs = append(attrs, slog.String("source", source))
	}
	return slog.Group("error", attrs...)
}

// walk visits the annotated errors in err's tree, outermost first.
func walk(err error, visit func(*annotatedError)) {
	if err == nil {
		return
	}
	if ae, ok := err.(*annotatedError); ok { //nolint:errorlint // walking the tree manually
		visit(ae)
	}
	switch x := err.(type) { //nolint:errorlint // walking the tree manually
	case interface{ Unwrap() error }:
		walk(x.Unwrap(), visit)
	case interface{ Unwrap() []error }:
		for _, e := range x.Unwrap() {
			walk(e, visit)
		}
	}
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// Join returns an error that wraps the given errors, discarding nils.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
