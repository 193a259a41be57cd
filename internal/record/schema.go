package record

import "errors"

type DataType uint8

const (
	TypeInt DataType = iota
	TypeFloat
	TypeString
	TypeBool
)

// Width returns the number of bytes a field of this type occupies inside
// a record buffer. Strings have no fixed width of their own; their width
// is the declared attribute length.
func (t DataType) Width() int {
	switch t {
	case TypeInt:
		return 4
	case TypeFloat:
		return 8
	case TypeBool:
		return 1
	default:
		return 0
	}
}

func (t DataType) String() string {
	switch t {
	case TypeInt:
		return "INT"
	case TypeFloat:
		return "FLOAT"
	case TypeString:
		return "STRING"
	case TypeBool:
		return "BOOL"
	default:
		return "unknown"
	}
}

var ErrAttrOutOfRange = errors.New("record: attribute index out of range")

// Attribute is one named, typed column of a schema. Length is only
// meaningful for TypeString and gives the exact byte width of the field.
type Attribute struct {
	Name   string
	Type   DataType
	Length int
}

func (a Attribute) width() int {
	if a.Type == TypeString {
		return a.Length
	}
	return a.Type.Width()
}

// Schema is an ordered attribute list plus the indices of the key
// attributes, immutable once built.
type Schema struct {
	Attrs []Attribute
	Keys  []int
}

func (s *Schema) NumAttrs() int { return len(s.Attrs) }

// RecordSize is the total field width of one record, excluding the
// per-slot liveness byte.
func (s *Schema) RecordSize() int {
	size := 0
	for _, a := range s.Attrs {
		size += a.width()
	}
	return size
}

// AttrOffset returns the byte offset of attribute i within a record
// buffer.
func (s *Schema) AttrOffset(i int) (int, error) {
	if i < 0 || i >= len(s.Attrs) {
		return 0, ErrAttrOutOfRange
	}
	off := 0
	for j := 0; j < i; j++ {
		off += s.Attrs[j].width()
	}
	return off, nil
}
