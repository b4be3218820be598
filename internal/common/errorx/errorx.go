package errorx

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind represents the category of a domain error
type Kind string

const (
	KindValidation      Kind = "validation"
	KindUnauthenticated Kind = "unauthenticated"
	KindAuthorization   Kind = "authorization"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindInvalidState    Kind = "invalid_state"
	KindProvider        Kind = "provider"
	KindInternal        Kind = "internal"
)

// Error is a translatable domain error
type Error struct {
	Kind Kind
	// MessageID is the key used for translation lookup
	MessageID string
	// Field names the offending input field for validation errors
	Field string
	// Data holds template parameters for the message
	Data map[string]any
	Err  error
}

// Sentinels usable with errors.Is to match on kind only
var (
	ErrValidation      = &Error{Kind: KindValidation}
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated}
	ErrAuthorization   = &Error{Kind: KindAuthorization}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrConflict        = &Error{Kind: KindConflict}
	ErrInvalidState    = &Error{Kind: KindInvalidState}
	ErrProvider        = &Error{Kind: KindProvider}
)

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.MessageID != "" {
		msg += ": " + e.MessageID
	}
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on kind, and on message ID when the target carries one
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.MessageID == "" || t.MessageID == e.MessageID
}

// WithParam adds a single template parameter to a copy of the error
func (e *Error) WithParam(key string, value any) *Error {
	cp := *e
	cp.Data = make(map[string]any, len(e.Data)+1)
	for k, v := range e.Data {
		cp.Data[k] = v
	}
	cp.Data[key] = value
	return &cp
}

// HTTPStatus maps the error kind to a response status code
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindInvalidState:
		return http.StatusConflict
	case KindProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Validation creates a validation error for a single field
func Validation(field, msgID string) *Error {
	e := &Error{Kind: KindValidation, MessageID: msgID, Field: field}
	if field != "" {
		e.Data = map[string]any{"Field": field}
	}
	return e
}

// Unauthenticated creates an authentication error
func Unauthenticated(msgID string) *Error {
	return &Error{Kind: KindUnauthenticated, MessageID: msgID}
}

// Forbidden creates an authorization error
func Forbidden(msgID string) *Error {
	return &Error{Kind: KindAuthorization, MessageID: msgID}
}

// NotFound creates a not found error for the named resource
func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, MessageID: MsgResourceNotFound, Data: map[string]any{"Resource": resource}}
}

// Conflict creates a storage conflict error for the named resource
func Conflict(resource string, err error) *Error {
	return &Error{Kind: KindConflict, MessageID: MsgConflict, Data: map[string]any{"Resource": resource}, Err: err}
}

// InvalidState creates an invalid state error
func InvalidState(msgID string) *Error {
	return &Error{Kind: KindInvalidState, MessageID: msgID}
}

// Provider wraps a delivery provider failure
func Provider(err error) *Error {
	return &Error{Kind: KindProvider, MessageID: MsgProviderFailed, Err: err}
}

// Internal wraps an unexpected failure
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, MessageID: MsgInternalServer, Err: err}
}

// As returns the domain error in err's chain, or nil
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// KindOf returns the kind of err, or KindInternal for foreign errors
func KindOf(err error) Kind {
	if e := As(err); e != nil {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err is a domain error of the given kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Wrapf annotates err while keeping its domain kind
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
