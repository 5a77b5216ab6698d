package state

import (
	"errors"
	"fmt"
)

// FailureKind distinguishes why a resource failed to load.
type FailureKind string

const (
	KindUnreachable FailureKind = "unreachable"
	KindParse       FailureKind = "parse"
)

var (
	// ErrUnreachable matches LoadErrors whose fetch failed.
	ErrUnreachable = errors.New("resource unreachable")
	// ErrParse matches LoadErrors whose content could not be parsed.
	ErrParse = errors.New("resource parse failure")
)

// LoadError reports a failed fetch or parse of one resource.
type LoadError struct {
	Resource Resource
	Location string
	Kind     FailureKind
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s (%s): %s: %v", e.Resource, e.Location, e.Kind, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is lets errors.Is match the ErrUnreachable / ErrParse sentinels.
func (e *LoadError) Is(target error) bool {
	switch target {
	case ErrUnreachable:
		return e.Kind == KindUnreachable
	case ErrParse:
		return e.Kind == KindParse
	}
	return false
}
