package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pumpkit/rfmsg/internal/message"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.NotNil(t, c)
	assert.Equal(t, "embedded", c.Source())
	assert.Greater(t, c.Len(), 5)
	assert.Same(t, c, Default(), "default catalog is parsed once")

	for _, v := range c.Variants() {
		assert.GreaterOrEqual(t, v.Length, message.MinLength, v.Name)
		assert.LessOrEqual(t, v.Schema.MinBits(), v.Length*8, v.Name)
		assert.True(t, v.MessageType.Known(), v.Name)
	}
}

func TestLookup(t *testing.T) {
	c := Default()

	v, ok := c.Lookup("Button_Press")
	require.True(t, ok)
	assert.Equal(t, message.MessageTypeButtonPress, v.MessageType)
	assert.Equal(t, message.PacketTypeCarelink, v.PacketType)

	_, ok = c.Lookup("bolus")
	assert.False(t, ok)
}

func TestDecode(t *testing.T) {
	c := Default()

	msg, v, err := c.Decode([]byte{0xa7, 0x12, 0x34, 0x56, 0x5b, 0x04, 0x00})
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "button_press", v.Name)

	button, err := msg.Field("button")
	require.NoError(t, err)
	assert.Equal(t, uint64(4), button)
}

func TestDecode_PacketTypeSelectsVariant(t *testing.T) {
	c := Default()

	_, status, err := c.Decode(make14(0xa2, 0x04))
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, "pump_status", status.Name)

	_, sensor, err := c.Decode(make14(0xa8, 0x04))
	require.NoError(t, err)
	require.NotNil(t, sensor)
	assert.Equal(t, "sensor_reading", sensor.Name)
}

func TestDecode_Unmatched(t *testing.T) {
	c := Default()

	msg, v, err := c.Decode([]byte{0x99, 0x00, 0x00, 0x01, 0xee})
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Nil(t, msg.Schema())
	assert.Equal(t, "000001", msg.Address())

	_, _, err = c.Decode([]byte{0xa7, 0x00})
	assert.ErrorIs(t, err, message.ErrInvalidBuffer)
}

func TestMatch_AnyPacketTypeFallback(t *testing.T) {
	c, err := Parse([]byte(`
variants:
  - name: generic_ack
    message_type: Ack
    fields:
      status: {offset: 0, width: 8}
    bits_offset: 40
  - name: carelink_ack
    message_type: Ack
    packet_type: Carelink
    length: 6
    bits_offset: 40
`))
	require.NoError(t, err)

	v, ok := c.Match(message.PacketTypeCarelink, message.MessageTypeAck)
	require.True(t, ok)
	assert.Equal(t, "carelink_ack", v.Name)

	v, ok = c.Match(message.PacketTypeSentry, message.MessageTypeAck)
	require.True(t, ok)
	assert.Equal(t, "generic_ack", v.Name)
	assert.True(t, v.AnyPacketType())
	assert.Equal(t, 6, v.Length, "length defaults to the smallest buffer holding every field")

	_, ok = c.Match(message.PacketTypeSentry, message.MessageTypePower)
	assert.False(t, ok)

	assert.Len(t, c.ForMessageType(message.MessageTypeAck), 2)
	assert.Empty(t, c.ForMessageType(message.MessageTypePower))
}

func TestBuild(t *testing.T) {
	c := Default()

	msg, err := c.Build("power", "a1b2c3", map[string]uint64{"on": 1, "minutes": 10})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xa7, 0xa1, 0xb2, 0xc3, 0x5d, 0x80, 0x0a, 0x00}, msg.Data())

	_, err = c.Build("power", "a1b2c3", map[string]uint64{"on": 2})
	assert.ErrorIs(t, err, message.ErrValueTooLarge)

	_, err = c.Build("power", "a1b2c3", map[string]uint64{"seconds": 2})
	assert.ErrorIs(t, err, message.ErrUnknownField)

	_, err = c.Build("bolus", "a1b2c3", nil)
	assert.ErrorIs(t, err, ErrUnknownVariant)

	_, err = c.Build("power", "xyz", nil)
	assert.ErrorIs(t, err, message.ErrInvalidAddress)
}

func TestBuild_RequiresPacketType(t *testing.T) {
	c, err := Parse([]byte(`
variants:
  - name: generic_ack
    message_type: "0x06"
    length: 6
`))
	require.NoError(t, err)

	_, err = c.Build("generic_ack", "123456", nil)
	assert.ErrorIs(t, err, ErrNoPacketType)

	v, _ := c.Lookup("generic_ack")
	msg, err := v.Build(message.PacketTypeSentry, "123456", nil)
	require.NoError(t, err)
	assert.Equal(t, message.PacketTypeSentry, msg.PacketType())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not yaml", "variants: [unclosed"},
		{"unknown key", "variants:\n  - name: a\n    message_type: Ack\n    colour: red\n"},
		{"bad version", "version: 7\nvariants: []\n"},
		{"missing name", "variants:\n  - message_type: Ack\n"},
		{"missing message type", "variants:\n  - name: a\n"},
		{"unknown message type", "variants:\n  - name: a\n    message_type: Bolus\n"},
		{"unknown packet type", "variants:\n  - name: a\n    message_type: Ack\n    packet_type: Radio\n"},
		{"zero width", "variants:\n  - name: a\n    message_type: Ack\n    fields:\n      x: {offset: 0, width: 0}\n"},
		{"length too short", "variants:\n  - name: a\n    message_type: Ack\n    length: 5\n    bits_offset: 40\n    fields:\n      x: {offset: 0, width: 8}\n"},
		{"huge field offset", "variants:\n  - name: a\n    message_type: Ack\n    bits_offset: 0\n    fields:\n      f: {offset: 9223372036854775800, width: 16}\n"},
		{"huge bits offset", "variants:\n  - name: a\n    message_type: Ack\n    bits_offset: 9223372036854775800\n"},
		{"huge length", "variants:\n  - name: a\n    message_type: Ack\n    length: 4611686018427387904\n"},
		{"length below header", "variants:\n  - name: a\n    message_type: Ack\n    length: 3\n"},
		{"duplicate name", "variants:\n  - name: a\n    message_type: Ack\n  - name: A\n    message_type: Power\n"},
		{"duplicate route", "variants:\n  - name: a\n    message_type: Ack\n    packet_type: Sentry\n  - name: b\n    message_type: \"0x06\"\n    packet_type: \"0xa2\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.ErrorIs(t, err, ErrInvalidCatalog)
		})
	}
}

func TestLoad(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Same(t, Default(), c)

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\nvariants:\n  - name: ping\n    message_type: DeviceTest\n    packet_type: Carelink\n"), 0o600))

	c, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, c.Source())
	assert.Equal(t, 1, c.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func make14(pt, mt byte) []byte {
	buf := make([]byte, 14)
	buf[0] = pt
	buf[4] = mt
	return buf
}
