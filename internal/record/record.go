package record

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// RID identifies a record as (page number, starting slot index) within a
// heap file.
type RID struct {
	Page int
	Slot int
}

// Record is a fixed-width row buffer laid out exactly as its schema
// dictates: fields in attribute order, each occupying its declared width.
// String fields are zero-padded to their declared length and carry no
// length prefix.
type Record struct {
	ID   RID
	Data []byte
}

// NewRecord allocates a zeroed record buffer sized for the schema.
func NewRecord(s *Schema) *Record {
	return &Record{
		ID:   RID{Page: -1, Slot: -1},
		Data: make([]byte, s.RecordSize()),
	}
}

// Attr reads attribute i out of the record buffer.
func (r *Record) Attr(s *Schema, i int) (Value, error) {
	off, err := s.AttrOffset(i)
	if err != nil {
		return Value{}, err
	}

	a := s.Attrs[i]
	switch a.Type {
	case TypeInt:
		return IntValue(int32(binary.LittleEndian.Uint32(r.Data[off:]))), nil
	case TypeFloat:
		bits := binary.LittleEndian.Uint64(r.Data[off:])
		return FloatValue(math.Float64frombits(bits)), nil
	case TypeBool:
		return BoolValue(r.Data[off] != 0), nil
	case TypeString:
		field := r.Data[off : off+a.Length]
		if n := bytes.IndexByte(field, 0); n >= 0 {
			field = field[:n]
		}
		return TextValue(string(field)), nil
	default:
		return Value{}, fmt.Errorf("record: attribute %d has unknown type", i)
	}
}

// SetAttr writes v into attribute i of the record buffer. The value type
// must match the attribute type, and a string must fit its declared
// length.
func (r *Record) SetAttr(s *Schema, i int, v Value) error {
	off, err := s.AttrOffset(i)
	if err != nil {
		return err
	}

	a := s.Attrs[i]
	if v.Type != a.Type {
		return fmt.Errorf("%w: attribute %q is %s, got %s",
			ErrTypeMismatch, a.Name, a.Type, v.Type)
	}

	switch a.Type {
	case TypeInt:
		binary.LittleEndian.PutUint32(r.Data[off:], uint32(v.i))
	case TypeFloat:
		binary.LittleEndian.PutUint64(r.Data[off:], math.Float64bits(v.f))
	case TypeBool:
		if v.b {
			r.Data[off] = 1
		} else {
			r.Data[off] = 0
		}
	case TypeString:
		if len(v.s) > a.Length {
			return fmt.Errorf("record: string %q exceeds declared length %d of %q",
				v.s, a.Length, a.Name)
		}
		field := r.Data[off : off+a.Length]
		copy(field, v.s)
		for j := len(v.s); j < a.Length; j++ {
			field[j] = 0
		}
	}
	return nil
}
