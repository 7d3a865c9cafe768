package catalog

import (
	"errors"
	"fmt"
)

// BuildErrorKind classifies strict-build failures.
type BuildErrorKind int

const (
	DuplicateName BuildErrorKind = iota + 1
	EmptyTab
	Malformed
	InvalidName
)

func (k BuildErrorKind) String() string {
	switch k {
	case DuplicateName:
		return "duplicate name"
	case EmptyTab:
		return "empty tab"
	case Malformed:
		return "malformed definition"
	case InvalidName:
		return "invalid name"
	default:
		return "build error"
	}
}

var (
	ErrDuplicateName = errors.New("duplicate name")
	ErrEmptyTab      = errors.New("empty tab")
	ErrMalformed     = errors.New("malformed definition")
	ErrInvalidName   = errors.New("invalid name")

	ErrTabNotFound  = errors.New("tab not found")
	ErrNodeNotFound = errors.New("node not found")
)

// BuildError is returned by strict builds. errors.Is matches it against the
// sentinel for its kind; Err, when set, is the underlying cause.
type BuildError struct {
	Kind BuildErrorKind
	Tab  string
	Key  string
	Name string
	Err  error
}

func (e *BuildError) Error() string {
	msg := "build catalog: " + e.Kind.String()
	if e.Tab != "" {
		msg += fmt.Sprintf(" in tab %q", e.Tab)
	}
	if e.Key != "" {
		msg += fmt.Sprintf(" at %q", e.Key)
	}
	if e.Name != "" {
		msg += fmt.Sprintf(" (name %q)", e.Name)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BuildError) Unwrap() error { return e.Err }

func (e *BuildError) Is(target error) bool {
	switch target {
	case ErrDuplicateName:
		return e.Kind == DuplicateName
	case ErrEmptyTab:
		return e.Kind == EmptyTab
	case ErrMalformed:
		return e.Kind == Malformed
	case ErrInvalidName:
		return e.Kind == InvalidName
	}
	return false
}
