package record

import (
	"errors"
	"fmt"
	"strconv"
)

var ErrTypeMismatch = errors.New("record: value type mismatch")

// Value is a tagged variant over the four schema types. The tag decides
// which field is meaningful; accessors check it so a value can never be
// read as the wrong type.
type Value struct {
	Type DataType

	i int32
	f float64
	b bool
	s string
}

func IntValue(v int32) Value     { return Value{Type: TypeInt, i: v} }
func FloatValue(v float64) Value { return Value{Type: TypeFloat, f: v} }
func BoolValue(v bool) Value     { return Value{Type: TypeBool, b: v} }
func TextValue(v string) Value   { return Value{Type: TypeString, s: v} }

func (v Value) Int() (int32, error) {
	if v.Type != TypeInt {
		return 0, fmt.Errorf("%w: %s is not INT", ErrTypeMismatch, v.Type)
	}
	return v.i, nil
}

func (v Value) Float() (float64, error) {
	if v.Type != TypeFloat {
		return 0, fmt.Errorf("%w: %s is not FLOAT", ErrTypeMismatch, v.Type)
	}
	return v.f, nil
}

func (v Value) Bool() (bool, error) {
	if v.Type != TypeBool {
		return false, fmt.Errorf("%w: %s is not BOOL", ErrTypeMismatch, v.Type)
	}
	return v.b, nil
}

func (v Value) Text() (string, error) {
	if v.Type != TypeString {
		return "", fmt.Errorf("%w: %s is not STRING", ErrTypeMismatch, v.Type)
	}
	return v.s, nil
}

func (v Value) String() string {
	switch v.Type {
	case TypeInt:
		return strconv.FormatInt(int64(v.i), 10)
	case TypeFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case TypeBool:
		return strconv.FormatBool(v.b)
	case TypeString:
		return v.s
	default:
		return "<invalid>"
	}
}
