// Package message implements the bit-field codec for pump RF messages.
//
// Every message exchanged with the pump through the radio bridge is a
// contiguous byte buffer that starts with a fixed identity header:
//
//	[0]     packet type    (Sentry 0xa2, Meter 0xa5, Carelink 0xa7, Sensor 0xa8)
//	[1-3]   device address (rendered as six hex digits)
//	[4]     message type   (PumpStatus 0x04, ButtonPress 0x5b, ...)
//	[5+]    body
//
// The body carries fields of arbitrary bit width that need not be aligned
// to byte boundaries. Each message variant describes them with a Schema,
// a table of name -> (bit offset, bit width), and the Message type reads
// and writes them through a single accessor.
//
// # Bit Ordering
//
// Bit 0 is the most significant bit of byte 0. Indices grow left to right
// across byte boundaries and a range is interpreted as a big-endian
// unsigned integer:
//
//	buffer 0xFF 0x00, offset 6, width 4 -> bits 1 1 | 0 0 -> 0b1100 = 12
//
// # Usage Example - Decoding
//
//	schema := message.MustSchema("button_press", 40, map[string]message.Field{
//	    "button": {Offset: 0, Width: 8},
//	})
//
//	msg, err := message.New(received, schema)
//	if err != nil {
//	    return err // ErrInvalidBuffer
//	}
//	if !msg.PacketType().Known() {
//	    log.Printf("dropping %s", msg.PacketType())
//	}
//	button, err := msg.Field("button")
//
// # Usage Example - Construction
//
//	msg, err := message.Build(7, message.PacketTypeCarelink, "123456",
//	    message.MessageTypeButtonPress, schema)
//	if err != nil {
//	    return err
//	}
//	if err := msg.SetField("button", 0x04); err != nil {
//	    return err // ErrValueTooLarge, ErrOutOfRange or ErrUnknownField
//	}
//	bridge.Send(ctx, msg.Data())
//
// # Error Handling
//
// Unknown packet and message type bytes are not errors: PacketType and
// MessageType return the raw value and Known reports whether it is in the
// registry. Field access errors are *FieldError values wrapping one of
// ErrUnknownField, ErrOutOfRange or ErrValueTooLarge. All checks happen
// before any byte is written, so a failed SetField leaves the buffer
// unchanged.
//
// # Thread Safety
//
// Schemas and the type registry are immutable and safe to share. A Message
// owns its buffer and must be used by one goroutine at a time.
package message
