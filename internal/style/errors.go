package style

import "fmt"

// MarshalErrorKind classifies a rejected style descriptor.
type MarshalErrorKind uint8

const (
	// UnrecognizedUnit means a dimension has no unit tag or an unknown one.
	UnrecognizedUnit MarshalErrorKind = iota + 1
	// MissingField means a required key is absent.
	MissingField
	// InvalidValue means a key is present but its value has the wrong
	// shape, an unknown keyword, or a unit the field does not allow.
	InvalidValue
)

func (k MarshalErrorKind) String() string {
	switch k {
	case UnrecognizedUnit:
		return "unrecognized unit"
	case MissingField:
		return "missing field"
	case InvalidValue:
		return "invalid value"
	default:
		return "unknown"
	}
}

// MarshalError occurs when a host style descriptor cannot be encoded.
type MarshalError struct {
	Kind    MarshalErrorKind
	Field   string
	Message string
}

func (e *MarshalError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("style %s at '%s': %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("style %s at '%s'", e.Kind, e.Field)
}

// Is matches another *MarshalError of the same kind, so callers can test
// errors.Is(err, &MarshalError{Kind: MissingField}).
func (e *MarshalError) Is(target error) bool {
	t, ok := target.(*MarshalError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Field == "" || t.Field == e.Field)
}

func unrecognizedUnit(field string, format string, args ...any) *MarshalError {
	return &MarshalError{Kind: UnrecognizedUnit, Field: field, Message: fmt.Sprintf(format, args...)}
}

func invalidValue(field string, format string, args ...any) *MarshalError {
	return &MarshalError{Kind: InvalidValue, Field: field, Message: fmt.Sprintf(format, args...)}
}

func missingField(field string) *MarshalError {
	return &MarshalError{Kind: MissingField, Field: field, Message: "required"}
}
