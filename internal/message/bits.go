package message

// Bit numbering: bit 0 is the most significant bit of byte 0 and indices
// grow left to right across byte boundaries. A range is read as a
// big-endian unsigned integer, so its first bit is the value's MSB.
//
//	byte:    0                 1
//	bit:     0 1 2 3 4 5 6 7   8 9 ...
//	weight:  7 6 5 4 3 2 1 0   7 6 ...   (within each byte)

// readBits assumes the range was bounds-checked by the caller.
func readBits(buf []byte, offset, width int) uint64 {
	var v uint64
	pos, remaining := offset, width
	for remaining > 0 {
		avail := 8 - pos%8 // bits left in this byte, starting at pos
		n := min(avail, remaining)
		shift := avail - n // low-order bits of the byte that belong to the next field
		chunk := (buf[pos/8] >> uint(shift)) & lowMask(n)
		v = v<<uint(n) | uint64(chunk)
		pos += n
		remaining -= n
	}
	return v
}

// writeBits assumes the range was bounds-checked and value fits in width.
func writeBits(buf []byte, offset, width int, value uint64) {
	pos, remaining := offset, width
	for remaining > 0 {
		avail := 8 - pos%8
		n := min(avail, remaining)
		shift := avail - n
		mask := lowMask(n) << uint(shift)
		chunk := byte(value>>uint(remaining-n)) << uint(shift)
		buf[pos/8] = buf[pos/8]&^mask | chunk&mask
		pos += n
		remaining -= n
	}
}

// lowMask returns a byte with the n low-order bits set, 1 <= n <= 8.
func lowMask(n int) byte {
	return byte(uint16(1)<<uint(n) - 1)
}

// fits reports whether value can be stored in width bits.
func fits(value uint64, width int) bool {
	if width >= 64 {
		return true
	}
	return value < uint64(1)<<uint(width)
}

func (m *Message) checkRange(op, field string, offset, width int) error {
	if width < 1 || width > MaxFieldWidth {
		return &FieldError{Op: op, Field: field, Offset: offset, Width: width, Err: ErrInvalidField}
	}
	if offset < 0 || width > m.BitLen()-offset {
		return &FieldError{Op: op, Field: field, Offset: offset, Width: width, Err: ErrOutOfRange}
	}
	return nil
}

// BitAt returns the bit at absolute index i as 0 or 1.
func (m *Message) BitAt(i int) (uint8, error) {
	if i < 0 || i >= m.BitLen() {
		return 0, &FieldError{Op: "bit", Offset: i, Width: 1, Err: ErrOutOfRange}
	}
	return (m.data[i/8] >> uint(7-i%8)) & 1, nil
}

// Bits reads width bits starting at absolute bit offset.
func (m *Message) Bits(offset, width int) (uint64, error) {
	if err := m.checkRange("get", "", offset, width); err != nil {
		return 0, err
	}
	return readBits(m.data, offset, width), nil
}

// SetBits writes value into width bits starting at absolute bit offset.
// On error the buffer is left untouched.
func (m *Message) SetBits(offset, width int, value uint64) error {
	if err := m.checkRange("set", "", offset, width); err != nil {
		return err
	}
	if !fits(value, width) {
		return &FieldError{Op: "set", Offset: offset, Width: width, Err: ErrValueTooLarge}
	}
	writeBits(m.data, offset, width, value)
	return nil
}

// lookup resolves key to an absolute range through the bound schema.
func (m *Message) lookup(op, key string) (Field, error) {
	if m.schema == nil {
		return Field{}, &FieldError{Op: op, Field: key, Err: ErrUnknownField}
	}
	f, ok := m.schema.Lookup(key)
	if !ok {
		return Field{}, &FieldError{Op: op, Field: key, Err: ErrUnknownField}
	}
	return Field{Offset: m.schema.BitsOffset() + f.Offset, Width: f.Width}, nil
}

// Field returns the named field's value.
func (m *Message) Field(key string) (uint64, error) {
	f, err := m.lookup("get", key)
	if err != nil {
		return 0, err
	}
	if err := m.checkRange("get", key, f.Offset, f.Width); err != nil {
		return 0, err
	}
	return readBits(m.data, f.Offset, f.Width), nil
}

// SetField stores value in the named field. Every check runs before the
// first byte is modified, so a failed call leaves the buffer unchanged.
func (m *Message) SetField(key string, value uint64) error {
	f, err := m.lookup("set", key)
	if err != nil {
		return err
	}
	if err := m.checkRange("set", key, f.Offset, f.Width); err != nil {
		return err
	}
	if !fits(value, f.Width) {
		return &FieldError{Op: "set", Field: key, Offset: f.Offset, Width: f.Width, Err: ErrValueTooLarge}
	}
	writeBits(m.data, f.Offset, f.Width, value)
	return nil
}

// Fields decodes every field of the bound schema.
func (m *Message) Fields() (map[string]uint64, error) {
	if m.schema == nil {
		return map[string]uint64{}, nil
	}
	out := make(map[string]uint64, m.schema.Len())
	for _, key := range m.schema.Names() {
		v, err := m.Field(key)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}
