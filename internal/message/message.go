package message

import (
	"encoding/hex"
	"fmt"
)

// Identity header layout (fixed by the radio protocol)
//
//	[0]     packet type
//	[1-3]   device address (bits 8..31)
//	[4]     message type
//	[5+]    message body
const (
	packetTypeIndex  = 0
	messageTypeIndex = 4
	addressBitOffset = 8
	addressBitWidth  = 24

	// AddressLength is the size of the device address in bytes
	AddressLength = addressBitWidth / 8

	// MinLength is the smallest buffer that carries a full identity header
	MinLength = 5
)

// Message wraps one RF message buffer. The buffer is owned by the Message:
// New copies its input and Data returns a copy, so the only way to change
// the bytes is through SetField and SetBits. A Message is not safe for
// concurrent mutation; hand it from one goroutine to the next instead of
// sharing it.
type Message struct {
	data   []byte
	schema *Schema
}

// New wraps a copy of data. schema may be nil when only the identity
// accessors are needed.
func New(data []byte, schema *Schema) (*Message, error) {
	if len(data) < MinLength {
		return nil, fmt.Errorf("%w: %d bytes (minimum %d)", ErrInvalidBuffer, len(data), MinLength)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return &Message{data: buf, schema: schema}, nil
}

// FromHex decodes a hex string (whitespace ignored) and wraps it.
func FromHex(s string, schema *Schema) (*Message, error) {
	data, err := hex.DecodeString(stripSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBuffer, err)
	}
	return New(data, schema)
}

// PacketType returns the RF framing byte. Check Known on the result to
// tell registered values from unrecognized ones.
func (m *Message) PacketType() PacketType {
	return PacketType(m.data[packetTypeIndex])
}

// MessageType returns the pump command/response byte.
func (m *Message) MessageType() MessageType {
	return MessageType(m.data[messageTypeIndex])
}

// Address returns the device address as six lowercase hex digits.
func (m *Message) Address() string {
	return fmt.Sprintf("%06x", readBits(m.data, addressBitOffset, addressBitWidth))
}

// AddressBytes returns the raw device address.
func (m *Message) AddressBytes() [AddressLength]byte {
	var a [AddressLength]byte
	copy(a[:], m.data[addressBitOffset/8:])
	return a
}

// Data returns a copy of the buffer
func (m *Message) Data() []byte {
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out
}

// Hex returns the buffer as a lowercase hex string
func (m *Message) Hex() string {
	return hex.EncodeToString(m.data)
}

// Len returns the buffer length in bytes
func (m *Message) Len() int {
	return len(m.data)
}

// BitLen returns the buffer length in bits
func (m *Message) BitLen() int {
	return len(m.data) * 8
}

// Schema returns the bound schema, which may be nil
func (m *Message) Schema() *Schema {
	return m.schema
}

// WithSchema returns an independent copy of m bound to schema.
func (m *Message) WithSchema(schema *Schema) *Message {
	return &Message{data: m.Data(), schema: schema}
}

// Clone returns an independent copy of m with the same schema.
func (m *Message) Clone() *Message {
	return m.WithSchema(m.schema)
}

// String returns a short human-readable summary
func (m *Message) String() string {
	variant := "-"
	if m.schema != nil {
		variant = m.schema.Name()
	}
	return fmt.Sprintf("Message{packet=%s (0x%02x), type=%s (0x%02x), address=%s, variant=%s, len=%d}",
		m.PacketType(), byte(m.PacketType()), m.MessageType(), byte(m.MessageType()),
		m.Address(), variant, len(m.data))
}

func stripSpace(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r', ':':
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}
