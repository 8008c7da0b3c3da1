// Package basal decodes and encodes the pump's raw basal rate schedule.
//
// A schedule is a fixed 192-byte block of 3-byte entries:
//
//	[0-1]  rate, little-endian uint16, in 1/40 U/h
//	[2]    start time, in 30-minute slots after midnight
//
// Unused entries are zero-filled. Decoding stops at the first entry whose
// start time is not after the previous one or falls outside the day.
//
// Input shorter than RawLength is accepted. Every whole 3-byte entry is
// decoded, including one that ends exactly at the end of the input. Readers
// that require a byte past each entry drop that final entry. A full 192-byte block
// decodes the same either way, since at most 48 increasing slots fit in a day.
package basal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	// RawLength is the size of an encoded schedule
	RawLength = 192
	// MaxEntries is the number of entries a schedule can hold
	MaxEntries = RawLength / entryLength

	entryLength = 3
	rateScale   = 40
	slotLength  = 30 * time.Minute
	day         = 24 * time.Hour
)

var (
	// ErrEmptySchedule is returned when no valid entry could be decoded.
	ErrEmptySchedule = errors.New("no basal entries")
	// ErrTooManyEntries is returned when encoding more than MaxEntries entries.
	ErrTooManyEntries = errors.New("too many basal entries")
)

// Entry is one rate segment, active from Start until the next entry.
type Entry struct {
	Index int
	Start time.Duration
	Rate  float64 // U/h
}

// Schedule is an ordered list of entries starting at midnight.
type Schedule struct {
	Entries []Entry
}

// Decode parses a raw schedule. Trailing bytes that do not form a whole
// entry are ignored.
func Decode(raw []byte) (Schedule, error) {
	var entries []Entry
	for i := 0; (i+1)*entryLength <= len(raw); i++ {
		chunk := raw[i*entryLength : (i+1)*entryLength]
		start := time.Duration(chunk[2]) * slotLength
		if start >= day {
			break
		}
		if n := len(entries); n > 0 && entries[n-1].Start >= start {
			break
		}
		entries = append(entries, Entry{
			Index: i,
			Start: start,
			Rate:  float64(binary.LittleEndian.Uint16(chunk[:2])) / rateScale,
		})
	}

	if len(entries) == 0 {
		return Schedule{}, ErrEmptySchedule
	}
	return Schedule{Entries: entries}, nil
}

// Encode renders the schedule into RawLength bytes. Rates are truncated to
// 1/40 U/h and start times to whole slots; both are clamped to what the
// field can hold.
func (s Schedule) Encode() ([]byte, error) {
	if len(s.Entries) > MaxEntries {
		return nil, fmt.Errorf("%w: %d (maximum %d)", ErrTooManyEntries, len(s.Entries), MaxEntries)
	}

	buf := make([]byte, RawLength)
	for i, e := range s.Entries {
		chunk := buf[i*entryLength : (i+1)*entryLength]
		binary.LittleEndian.PutUint16(chunk[:2], clampUint16(e.Rate*rateScale))
		chunk[2] = clampUint8(float64(e.Start / slotLength))
	}
	return buf, nil
}

// RateAt returns the rate active at offset d after midnight.
func (s Schedule) RateAt(d time.Duration) float64 {
	d %= day
	if d < 0 {
		d += day
	}
	rate := 0.0
	for _, e := range s.Entries {
		if e.Start > d {
			break
		}
		rate = e.Rate
	}
	return rate
}

// Total returns the units delivered over a full day.
func (s Schedule) Total() float64 {
	var total float64
	for i, e := range s.Entries {
		end := day
		if i+1 < len(s.Entries) {
			end = s.Entries[i+1].Start
		}
		total += e.Rate * (end - e.Start).Hours()
	}
	return total
}

func (s Schedule) String() string {
	var b strings.Builder
	for i, e := range s.Entries {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %.3f U/h", clock(e.Start), e.Rate)
	}
	return b.String()
}

// clock formats an offset after midnight as HH:MM.
func clock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}

func clampUint16(v float64) uint16 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= math.MaxUint16:
		return math.MaxUint16
	}
	return uint16(v)
}

func clampUint8(v float64) uint8 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= math.MaxUint8:
		return math.MaxUint8
	}
	return uint8(v)
}
