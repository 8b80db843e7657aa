package domain

import (
	"errors"
	"fmt"
)

// NotFoundError represents a resource that does not exist on the host.
type NotFoundError struct {
	Resource string
	Ref      string
}

func (e *NotFoundError) Error() string {
	if e.Ref == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s not found at ref %s", e.Resource, e.Ref)
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resource, ref string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		Ref:      ref,
	}
}

// IsNotFound checks if an error is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr)
}

// Kind classifies a fatal review error so callers can branch on it.
type Kind int

const (
	KindUnknown Kind = iota
	KindTaskAmbiguous
	KindTaskNotLinked
	KindTaskNotFound
	KindIssueNotFound
	KindParse
	KindValidation
	KindSubmitFailed
	KindThrottled
	KindCompletion
	KindNoGroundTruths
	KindUpstream
)

var kindNames = map[Kind]string{
	KindUnknown:        "unknown",
	KindTaskAmbiguous:  "task ambiguous",
	KindTaskNotLinked:  "task not linked",
	KindTaskNotFound:   "task not found",
	KindIssueNotFound:  "issue not found",
	KindParse:          "parse",
	KindValidation:     "validation",
	KindSubmitFailed:   "submit failed",
	KindThrottled:      "throttled",
	KindCompletion:     "completion",
	KindNoGroundTruths: "no ground truths",
	KindUpstream:       "upstream",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a fatal review error. Data carries the offending value, if any.
type Error struct {
	Kind Kind
	Msg  string
	Data any
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// NewError creates an Error without a cause.
func NewError(kind Kind, msg string, data any) *Error {
	return &Error{Kind: kind, Msg: msg, Data: data}
}

// WrapError creates an Error around cause.
func WrapError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// KindOf returns the Kind of the first Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
