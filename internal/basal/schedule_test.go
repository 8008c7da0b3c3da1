package basal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawSchedule(entries ...[3]byte) []byte {
	buf := make([]byte, RawLength)
	for i, e := range entries {
		copy(buf[i*3:], e[:])
	}
	return buf
}

func TestDecode(t *testing.T) {
	// 1.0 U/h from midnight, 1.5 U/h from 06:00, 0.8 U/h from 22:30
	raw := rawSchedule(
		[3]byte{40, 0, 0},
		[3]byte{60, 0, 12},
		[3]byte{32, 0, 45},
	)

	s, err := Decode(raw)
	require.NoError(t, err)
	require.Len(t, s.Entries, 3)

	assert.Equal(t, Entry{Index: 0, Start: 0, Rate: 1.0}, s.Entries[0])
	assert.Equal(t, Entry{Index: 1, Start: 6 * time.Hour, Rate: 1.5}, s.Entries[1])
	assert.Equal(t, Entry{Index: 2, Start: 22*time.Hour + 30*time.Minute, Rate: 0.8}, s.Entries[2])
	assert.Equal(t, "00:00 1.000 U/h, 06:00 1.500 U/h, 22:30 0.800 U/h", s.String())
}

func TestDecode_LittleEndianRate(t *testing.T) {
	s, err := Decode(rawSchedule([3]byte{0x10, 0x01, 0}))
	require.NoError(t, err)
	assert.InDelta(t, 272.0/40, s.Entries[0].Rate, 1e-9)
}

func TestDecode_StopConditions(t *testing.T) {
	tests := []struct {
		name    string
		entries [][3]byte
		want    int
	}{
		{"zero fill ends schedule", [][3]byte{{40, 0, 0}, {20, 0, 2}}, 2},
		{"non-increasing start", [][3]byte{{40, 0, 0}, {20, 0, 4}, {30, 0, 4}, {10, 0, 8}}, 2},
		{"start past midnight", [][3]byte{{40, 0, 0}, {20, 0, 48}}, 1},
		{"last slot of day", [][3]byte{{40, 0, 0}, {20, 0, 47}}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Decode(rawSchedule(tt.entries...))
			require.NoError(t, err)
			assert.Len(t, s.Entries, tt.want)
		})
	}
}

func TestDecode_Empty(t *testing.T) {
	_, err := Decode(nil)
	assert.ErrorIs(t, err, ErrEmptySchedule)

	_, err = Decode([]byte{40, 0})
	assert.ErrorIs(t, err, ErrEmptySchedule)

	_, err = Decode(rawSchedule([3]byte{40, 0, 60}))
	assert.ErrorIs(t, err, ErrEmptySchedule, "first entry outside the day")
}

func TestDecode_FullSchedule(t *testing.T) {
	entries := make([][3]byte, MaxEntries)
	for i := range entries {
		entries[i] = [3]byte{byte(i + 1), 0, byte(i / 2 * 3)}
	}
	// Starts repeat every other entry, so decoding stops at index 1.
	s, err := Decode(rawSchedule(entries...))
	require.NoError(t, err)
	assert.Len(t, s.Entries, 1)

	raw := make([]byte, RawLength)
	for i := 0; i < 48; i++ {
		raw[i*3] = 40
		raw[i*3+2] = byte(i)
	}
	s, err = Decode(raw)
	require.NoError(t, err)
	assert.Len(t, s.Entries, 48)
	assert.InDelta(t, 24.0, s.Total(), 1e-9)
}

func TestDecode_ShortInput(t *testing.T) {
	s, err := Decode([]byte{0x28, 0x00, 0x00, 0x3c, 0x00, 0x0c})
	require.NoError(t, err)
	require.Len(t, s.Entries, 2, "an entry ending at the end of the input is kept")
	assert.Equal(t, 6*time.Hour, s.Entries[1].Start)

	s, err = Decode([]byte{0x28, 0x00, 0x00, 0x3c, 0x00})
	require.NoError(t, err)
	assert.Len(t, s.Entries, 1, "a trailing partial entry is ignored")
}

func TestEncode_RoundTrip(t *testing.T) {
	s := Schedule{Entries: []Entry{
		{Start: 0, Rate: 0.975},
		{Start: 7 * time.Hour, Rate: 1.2},
		{Start: 19*time.Hour + 30*time.Minute, Rate: 0.05},
	}}

	raw, err := s.Encode()
	require.NoError(t, err)
	require.Len(t, raw, RawLength)
	assert.Equal(t, []byte{39, 0, 0, 48, 0, 14, 2, 0, 39}, raw[:9])
	assert.Equal(t, make([]byte, RawLength-9), raw[9:])

	back, err := Decode(raw)
	require.NoError(t, err)
	require.Len(t, back.Entries, 3)
	for i := range s.Entries {
		assert.Equal(t, s.Entries[i].Start, back.Entries[i].Start)
		assert.InDelta(t, s.Entries[i].Rate, back.Entries[i].Rate, 1.0/rateScale)
	}
}

func TestEncode_Clamps(t *testing.T) {
	s := Schedule{Entries: []Entry{
		{Start: -time.Hour, Rate: -1},
		{Start: 200 * time.Hour, Rate: 5000},
	}}

	raw, err := s.Encode()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0xff, 0xff, 0xff}, raw[:6])
}

func TestEncode_TooManyEntries(t *testing.T) {
	_, err := Schedule{Entries: make([]Entry, MaxEntries+1)}.Encode()
	assert.ErrorIs(t, err, ErrTooManyEntries)
}

func TestRateAt(t *testing.T) {
	s := Schedule{Entries: []Entry{
		{Start: 0, Rate: 1.0},
		{Start: 6 * time.Hour, Rate: 1.5},
		{Start: 22 * time.Hour, Rate: 0.8},
	}}

	assert.Equal(t, 1.0, s.RateAt(0))
	assert.Equal(t, 1.0, s.RateAt(5*time.Hour+59*time.Minute))
	assert.Equal(t, 1.5, s.RateAt(6*time.Hour))
	assert.Equal(t, 0.8, s.RateAt(23*time.Hour))
	assert.Equal(t, 1.5, s.RateAt(30*time.Hour), "wraps at midnight")
	assert.Equal(t, 0.8, s.RateAt(-time.Hour))

	assert.InDelta(t, 6*1.0+16*1.5+2*0.8, s.Total(), 1e-9)
}
