package marker

import (
	"errors"
	"fmt"
)

// Sentinel errors for marker declaration and attachment.
var (
	ErrInvalidName      = errors.New("invalid marker name")
	ErrNoTargets        = errors.New("marker has no attachment points")
	ErrInvalidRetention = errors.New("invalid retention")
	ErrDuplicateMarker  = errors.New("duplicate marker name")
	ErrUndeclared       = errors.New("marker not declared")
	ErrMisattached      = errors.New("marker not allowed on element")
	ErrUnknownElement   = errors.New("unknown element")
	ErrMissingArg       = errors.New("marker requires an argument")
	ErrUnexpectedArg    = errors.New("marker takes no argument")
	ErrConflictingArg   = errors.New("conflicting marker argument")
	ErrBuilderSpent     = errors.New("builder already built")
)

// DefinitionError describes a rejected declaration or attachment.
type DefinitionError struct {
	Marker  string
	Element string
	Err     error
}

func (e *DefinitionError) Error() string {
	switch {
	case e.Element == "":
		return fmt.Sprintf("marker %s: %v", e.Marker, e.Err)
	case e.Marker == "":
		return fmt.Sprintf("element %s: %v", e.Element, e.Err)
	default:
		return fmt.Sprintf("marker %s on %s: %v", e.Marker, e.Element, e.Err)
	}
}

func (e *DefinitionError) Unwrap() error { return e.Err }
