// Package apperr defines the error kinds surfaced by the ledger engines.
//
// Every failure leaving an orchestrator carries exactly one Kind so callers
// can decide between "fix the input", "the record is gone", "try again" and
// "not allowed" without string matching.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindUnavailable
	KindPermission
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindUnavailable:
		return "store_unavailable"
	case KindPermission:
		return "permission"
	}
	return "unknown"
}

// Error is a classified failure. Op names the operation that failed,
// e.g. "toggle bought" or "commit batch".
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinels below, so errors.Is(err, ErrNotFound) works
// through any amount of fmt.Errorf wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrValidation  = &Error{Kind: KindValidation}
	ErrNotFound    = &Error{Kind: KindNotFound}
	ErrUnavailable = &Error{Kind: KindUnavailable}
	ErrPermission  = &Error{Kind: KindPermission}
)

func Validation(op, format string, args ...any) error {
	return &Error{Kind: KindValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(op, entity, id string) error {
	return &Error{Kind: KindNotFound, Op: op, Msg: fmt.Sprintf("%s %q not found", entity, id)}
}

func Unavailable(op string, err error) error {
	return &Error{Kind: KindUnavailable, Op: op, Err: err}
}

func Permission(op string, err error) error {
	return &Error{Kind: KindPermission, Op: op, Err: err}
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
