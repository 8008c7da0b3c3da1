package message

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Build allocates a zeroed outbound message of size bytes and writes the
// identity header. Body fields are filled afterwards with SetField.
//
// Example:
//
//	msg, err := message.Build(7, message.PacketTypeCarelink, "123456",
//	    message.MessageTypeButtonPress, schema)
//	if err != nil {
//	    return err
//	}
//	err = msg.SetField("button", 0x04)
func Build(size int, pt PacketType, address string, mt MessageType, schema *Schema) (*Message, error) {
	if size < MinLength {
		return nil, fmt.Errorf("%w: size %d (minimum %d)", ErrInvalidBuffer, size, MinLength)
	}
	addr, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}
	if schema != nil && schema.MinBits() > size*8 {
		return nil, fmt.Errorf("%w: size %d bytes cannot hold schema %q (%d bits)",
			ErrInvalidBuffer, size, schema.Name(), schema.MinBits())
	}

	m := &Message{data: make([]byte, size), schema: schema}
	m.data[packetTypeIndex] = byte(pt)
	copy(m.data[addressBitOffset/8:], addr[:])
	m.data[messageTypeIndex] = byte(mt)
	return m, nil
}

// ParseAddress parses a six-digit hex device address such as "1a2b3c".
func ParseAddress(s string) ([AddressLength]byte, error) {
	var a [AddressLength]byte
	s = strings.TrimSpace(s)
	if len(s) != AddressLength*2 {
		return a, fmt.Errorf("%w: %q (want %d hex digits)", ErrInvalidAddress, s, AddressLength*2)
	}
	if _, err := hex.Decode(a[:], []byte(s)); err != nil {
		return a, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, s, err)
	}
	return a, nil
}
