package controller

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownParameterType = errors.New("controller: unknown parameter type")

// ParameterType is the value type of a controller parameter. The zero value
// is not a valid type.
type ParameterType int

const (
	ParameterFloat ParameterType = iota + 1
	ParameterInt
	ParameterBool
	ParameterTrigger
	// ParameterVector only exists in assets authored for the legacy engine
	// version, which has no triggers.
	ParameterVector
)

func (t ParameterType) String() string {
	switch t {
	case ParameterFloat:
		return "float"
	case ParameterInt:
		return "int"
	case ParameterBool:
		return "bool"
	case ParameterTrigger:
		return "trigger"
	case ParameterVector:
		return "vector"
	default:
		return fmt.Sprintf("ParameterType(%d)", int(t))
	}
}

func (t ParameterType) Valid() bool {
	return t >= ParameterFloat && t <= ParameterVector
}

// ParseParameterType parses the lower-case name produced by String.
func ParseParameterType(s string) (ParameterType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "float":
		return ParameterFloat, nil
	case "int":
		return ParameterInt, nil
	case "bool":
		return ParameterBool, nil
	case "trigger":
		return ParameterTrigger, nil
	case "vector":
		return ParameterVector, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownParameterType, s)
}

func (t ParameterType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownParameterType, int(t))
	}
	return []byte(t.String()), nil
}

func (t *ParameterType) UnmarshalText(b []byte) error {
	v, err := ParseParameterType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
