package record

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrMalformedSchema = errors.New("record: malformed schema text")

// Encode serializes a schema to its header text form:
//
//	<N>(name1:T1[len1], name2:T2, ...)(key1, key2, ...)
//
// T is one of I/F/S/B and [len] appears only for string attributes. The
// key list holds attribute names in declared key order.
func Encode(s *Schema) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<%d>(", len(s.Attrs))
	for i, a := range s.Attrs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.Name)
		b.WriteByte(':')
		switch a.Type {
		case TypeInt:
			b.WriteString("I")
		case TypeFloat:
			b.WriteString("F")
		case TypeString:
			fmt.Fprintf(&b, "S[%d]", a.Length)
		case TypeBool:
			b.WriteString("B")
		}
	}
	b.WriteString(")(")
	for i, k := range s.Keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(s.Attrs[k].Name)
	}
	b.WriteString(")")

	return b.String()
}

// Decode is the inverse of Encode.
func Decode(text string) (*Schema, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(text), "<")
	if !ok {
		return nil, fmt.Errorf("%w: missing attribute count", ErrMalformedSchema)
	}
	countStr, rest, ok := strings.Cut(rest, ">")
	if !ok {
		return nil, fmt.Errorf("%w: missing attribute count", ErrMalformedSchema)
	}
	numAttrs, err := strconv.Atoi(countStr)
	if err != nil || numAttrs < 0 {
		return nil, fmt.Errorf("%w: bad attribute count %q", ErrMalformedSchema, countStr)
	}

	attrList, rest, err := parenGroup(rest)
	if err != nil {
		return nil, err
	}
	keyList, _, err := parenGroup(rest)
	if err != nil {
		return nil, err
	}

	s := &Schema{}
	if attrList != "" {
		for _, part := range strings.Split(attrList, ",") {
			attr, err := parseAttr(strings.TrimSpace(part))
			if err != nil {
				return nil, err
			}
			s.Attrs = append(s.Attrs, attr)
		}
	}
	if len(s.Attrs) != numAttrs {
		return nil, fmt.Errorf("%w: declared %d attributes, found %d",
			ErrMalformedSchema, numAttrs, len(s.Attrs))
	}

	if keyList != "" {
		for _, name := range strings.Split(keyList, ",") {
			name = strings.TrimSpace(name)
			idx := -1
			for i, a := range s.Attrs {
				if a.Name == name {
					idx = i
					break
				}
			}
			if idx < 0 {
				return nil, fmt.Errorf("%w: key %q is not an attribute", ErrMalformedSchema, name)
			}
			s.Keys = append(s.Keys, idx)
		}
	}

	return s, nil
}

// parenGroup cuts one leading "(...)" group off text.
func parenGroup(text string) (inner, rest string, err error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "(") {
		return "", "", fmt.Errorf("%w: missing parenthesized list", ErrMalformedSchema)
	}
	inner, rest, ok := strings.Cut(text[1:], ")")
	if !ok {
		return "", "", fmt.Errorf("%w: unterminated parenthesized list", ErrMalformedSchema)
	}
	return inner, rest, nil
}

func parseAttr(part string) (Attribute, error) {
	name, typ, ok := strings.Cut(part, ":")
	if !ok || name == "" {
		return Attribute{}, fmt.Errorf("%w: bad attribute %q", ErrMalformedSchema, part)
	}

	switch {
	case typ == "I":
		return Attribute{Name: name, Type: TypeInt}, nil
	case typ == "F":
		return Attribute{Name: name, Type: TypeFloat}, nil
	case typ == "B":
		return Attribute{Name: name, Type: TypeBool}, nil
	case strings.HasPrefix(typ, "S[") && strings.HasSuffix(typ, "]"):
		length, err := strconv.Atoi(typ[2 : len(typ)-1])
		if err != nil || length <= 0 {
			return Attribute{}, fmt.Errorf("%w: bad string length in %q", ErrMalformedSchema, part)
		}
		return Attribute{Name: name, Type: TypeString, Length: length}, nil
	default:
		return Attribute{}, fmt.Errorf("%w: unknown type tag %q", ErrMalformedSchema, typ)
	}
}
