// Package errors defines the error taxonomy shared by the native modules. Every
// module declares its own sentinel values with New so callers can match them
// with errors.Is and classify them with KindOf.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind groups errors by the reason a transition was rejected.
type Kind uint8

const (
	KindInternal Kind = iota
	KindValidation
	KindState
	KindAuthorization
	KindResource
	KindArithmetic
	KindExternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindState:
		return "state"
	case KindAuthorization:
		return "authorization"
	case KindResource:
		return "resource"
	case KindArithmetic:
		return "arithmetic"
	case KindExternal:
		return "external"
	default:
		return "internal"
	}
}

// Error is a typed module error. Values are compared by identity, so each
// sentinel must be declared once.
type Error struct {
	Module string
	Code   string
	Kind   Kind
}

// New declares a module sentinel error.
func New(module, code string, kind Kind) *Error {
	return &Error{Module: module, Code: code, Kind: kind}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: %s", e.Module, e.Code)
}

// KindOf reports the kind of the first typed error in err's chain. Untyped
// errors (store failures, codec errors) are internal.
func KindOf(err error) Kind {
	var typed *Error
	if stderrors.As(err, &typed) {
		return typed.Kind
	}
	return KindInternal
}

// CodeOf returns the code of the first typed error in err's chain, or the
// empty string.
func CodeOf(err error) string {
	var typed *Error
	if stderrors.As(err, &typed) {
		return typed.Code
	}
	return ""
}

// Is and As are re-exported so packages importing this one under the name
// "errors" keep the standard helpers.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }
