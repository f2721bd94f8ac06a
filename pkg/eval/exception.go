package eval

import (
	"bytes"
	"fmt"

	"src.strand.sh/pkg/diag"
)

// Exception is a reported error together with the place it happened. It is
// returned by the evaluation methods of Evaler.
type Exception interface {
	error
	diag.Shower
	Reason() error
	StackTrace() *StackTrace
	// This is not strictly necessary, but it makes sure that there is only one
	// implementation of Exception, so that the compiler may de-virtualize this
	// interface.
	isException()
}

// NewException creates a new Exception.
func NewException(reason error, stackTrace *StackTrace) Exception {
	return &exception{reason, stackTrace}
}

type exception struct {
	reason     error
	stackTrace *StackTrace
}

// StackTrace represents a stack trace as a linked list of diag.Context. The
// head is the innermost stack.
type StackTrace struct {
	Head *diag.Context
	Next *StackTrace
}

// Reason returns the Reason field if err is an Exception. Otherwise it returns
// err itself.
func Reason(err error) error {
	if exc, ok := err.(*exception); ok {
		return exc.reason
	}
	return err
}

func (exc *exception) isException() {}

func (exc *exception) Reason() error { return exc.reason }

func (exc *exception) StackTrace() *StackTrace { return exc.stackTrace }

// Unwrap returns the reason, so that errors.As can find it.
func (exc *exception) Unwrap() error { return exc.reason }

// Error returns the message of the cause of the exception.
func (exc *exception) Error() string { return exc.reason.Error() }

// Show shows the exception.
func (exc *exception) Show(indent string) string {
	buf := new(bytes.Buffer)

	var causeDescription string
	if shower, ok := exc.reason.(diag.Shower); ok {
		causeDescription = shower.Show(indent)
	} else {
		causeDescription = "\033[31;1m" + exc.reason.Error() + "\033[m"
	}
	fmt.Fprintf(buf, "Exception: %s", causeDescription)

	if exc.stackTrace != nil {
		buf.WriteString("\n")
		if exc.stackTrace.Next == nil {
			buf.WriteString(exc.stackTrace.Head.ShowCompact(indent))
		} else {
			buf.WriteString(indent + "Traceback:")
			for tb := exc.stackTrace; tb != nil; tb = tb.Next {
				buf.WriteString("\n" + indent + "  ")
				buf.WriteString(tb.Head.Show(indent + "    "))
			}
		}
	}
	return buf.String()
}

// Wraps a reported error into an Exception, recording ctx and the call sites
// of active trampolines. Control signals and existing exceptions are
// returned unchanged.
func (th *Thread) errorp(ctx *diag.Context, err error) error {
	switch err.(type) {
	case nil, Exception, *TailCall, *branchSelected:
		return err
	}
	if err == ErrInterrupted {
		return err
	}
	var st *StackTrace
	for _, caller := range th.callers {
		if caller != nil {
			st = &StackTrace{caller, st}
		}
	}
	if ctx != nil {
		st = &StackTrace{ctx, st}
	}
	return &exception{err, st}
}
