package message

import (
	"fmt"
	"sort"
)

// MaxFieldWidth is the widest field the accessor can return in a uint64.
const MaxFieldWidth = 64

// MaxBitOffset bounds BitsOffset and field offsets so that
// BitsOffset+Offset+Width fits in an int on every platform.
const MaxBitOffset = 1<<28 - 1

// Field locates one value inside a message: Width bits starting Offset bits
// after the schema's BitsOffset.
type Field struct {
	Offset int `yaml:"offset" json:"offset"`
	Width  int `yaml:"width" json:"width"`
}

// End returns the first bit index past the field, relative to BitsOffset.
func (f Field) End() int {
	return f.Offset + f.Width
}

func (f Field) validate() error {
	if f.Offset < 0 || f.Offset > MaxBitOffset {
		return fmt.Errorf("%w: offset %d outside 0..%d", ErrInvalidField, f.Offset, MaxBitOffset)
	}
	if f.Width < 1 || f.Width > MaxFieldWidth {
		return fmt.Errorf("%w: width %d outside 1..%d", ErrInvalidField, f.Width, MaxFieldWidth)
	}
	return nil
}

// Schema is the bit-block table of one message variant. It is immutable
// once built and may be shared between any number of messages.
type Schema struct {
	name       string
	bitsOffset int
	fields     map[string]Field
}

// NewSchema validates and copies the field table.
func NewSchema(name string, bitsOffset int, fields map[string]Field) (*Schema, error) {
	if bitsOffset < 0 || bitsOffset > MaxBitOffset {
		return nil, fmt.Errorf("schema %q: %w: bits offset %d outside 0..%d", name, ErrInvalidField, bitsOffset, MaxBitOffset)
	}

	copied := make(map[string]Field, len(fields))
	for key, f := range fields {
		if key == "" {
			return nil, fmt.Errorf("schema %q: %w: empty field name", name, ErrInvalidField)
		}
		if err := f.validate(); err != nil {
			return nil, fmt.Errorf("schema %q field %q: %w", name, key, err)
		}
		copied[key] = f
	}

	return &Schema{
		name:       name,
		bitsOffset: bitsOffset,
		fields:     copied,
	}, nil
}

// MustSchema is NewSchema for tables known to be valid at compile time.
func MustSchema(name string, bitsOffset int, fields map[string]Field) *Schema {
	s, err := NewSchema(name, bitsOffset, fields)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the variant name the schema was built for
func (s *Schema) Name() string {
	return s.name
}

// BitsOffset returns the number of bits skipped before field offsets apply
func (s *Schema) BitsOffset() int {
	return s.bitsOffset
}

// Lookup returns the field registered under key
func (s *Schema) Lookup(key string) (Field, bool) {
	f, ok := s.fields[key]
	return f, ok
}

// Len returns the number of fields
func (s *Schema) Len() int {
	return len(s.fields)
}

// Names returns the field names ordered by offset, then name.
func (s *Schema) Names() []string {
	names := make([]string, 0, len(s.fields))
	for key := range s.fields {
		names = append(names, key)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := s.fields[names[i]], s.fields[names[j]]
		if a.Offset != b.Offset {
			return a.Offset < b.Offset
		}
		return names[i] < names[j]
	})
	return names
}

// MinBits returns the smallest buffer size, in bits, that holds every field.
func (s *Schema) MinBits() int {
	end := 0
	for _, f := range s.fields {
		if e := s.bitsOffset + f.End(); e > end {
			end = e
		}
	}
	return end
}
