package capture

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"go.uber.org/zap"

	"github.com/pumpkit/rfmsg/internal/logging"
	"github.com/pumpkit/rfmsg/internal/message"
)

// Format selects the on-disk record encoding
type Format string

// Supported formats
const (
	FormatJSONL Format = "jsonl" // one JSON object per line
	FormatCBOR  Format = "cbor"  // RFC 8742 CBOR sequence
)

// Directions recorded in Record.Direction
const (
	DirectionRX = "rx"
	DirectionTX = "tx"
)

// ErrUnknownFormat is returned for format names other than jsonl and cbor.
var ErrUnknownFormat = errors.New("unknown capture format")

// ParseFormat accepts "jsonl" or "cbor" (case-insensitive). Empty means jsonl.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatJSONL, "json":
		return FormatJSONL, nil
	case FormatCBOR:
		return FormatCBOR, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// FileName returns the capture file name for a session started at t.
func FileName(t time.Time, format Format) string {
	return fmt.Sprintf("capture-%s.%s", t.Format("20060102-150405"), format)
}

// Record is one captured packet.
type Record struct {
	Timestamp   time.Time         `json:"timestamp" cbor:"1,keyasint"`
	Source      string            `json:"source" cbor:"2,keyasint"`
	Direction   string            `json:"direction" cbor:"3,keyasint"`
	PacketHex   string            `json:"packet_hex" cbor:"4,keyasint"`
	PacketType  string            `json:"packet_type,omitempty" cbor:"5,keyasint,omitempty"`
	MessageType string            `json:"message_type,omitempty" cbor:"6,keyasint,omitempty"`
	Address     string            `json:"address,omitempty" cbor:"7,keyasint,omitempty"`
	Variant     string            `json:"variant,omitempty" cbor:"8,keyasint,omitempty"`
	Fields      map[string]uint64 `json:"fields,omitempty" cbor:"9,keyasint,omitempty"`
	Error       string            `json:"error,omitempty" cbor:"10,keyasint,omitempty"`
}

// NewRecord describes a decoded message. Field decode failures are kept in
// Error rather than dropping the record.
func NewRecord(at time.Time, source, direction string, msg *message.Message) Record {
	rec := Record{
		Timestamp:   at,
		Source:      source,
		Direction:   direction,
		PacketHex:   msg.Hex(),
		PacketType:  msg.PacketType().String(),
		MessageType: msg.MessageType().String(),
		Address:     msg.Address(),
	}
	if schema := msg.Schema(); schema != nil {
		rec.Variant = schema.Name()
		fields, err := msg.Fields()
		if err != nil {
			rec.Error = err.Error()
		} else if len(fields) > 0 {
			rec.Fields = fields
		}
	}
	return rec
}

// RawRecord describes bytes that could not be wrapped as a message.
func RawRecord(at time.Time, source, direction string, raw []byte, decodeErr error) Record {
	rec := Record{
		Timestamp: at,
		Source:    source,
		Direction: direction,
		PacketHex: fmt.Sprintf("%x", raw),
	}
	if decodeErr != nil {
		rec.Error = decodeErr.Error()
	}
	return rec
}

// Message rebuilds the captured message without a schema.
func (r Record) Message() (*message.Message, error) {
	return message.FromHex(r.PacketHex, nil)
}

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	cborEnc, err = cbor.EncOptions{
		Time: cbor.TimeRFC3339Nano,
		Sort: cbor.SortCanonical,
	}.EncMode()
	if err != nil {
		panic(err)
	}
	cborDec, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Writer appends records to a capture stream. It is safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	out    io.Writer
	closer io.Closer
	format Format
	path   string
	count  int
}

// NewWriter writes records to w. Close does not close w.
func NewWriter(w io.Writer, format Format) *Writer {
	return &Writer{out: w, format: format}
}

// Create opens a new capture file in dir named after now.
func Create(dir string, format Format, now time.Time) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create capture directory: %w", err)
	}
	path := filepath.Join(dir, FileName(now, format))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}

	logging.Info("Capturing packets",
		zap.String("path", path),
		zap.String("format", string(format)),
	)
	return &Writer{out: f, closer: f, format: format, path: path}, nil
}

// Write appends one record.
func (w *Writer) Write(rec Record) error {
	var (
		data []byte
		err  error
	)
	switch w.format {
	case FormatCBOR:
		data, err = cborEnc.Marshal(rec)
	case FormatJSONL:
		data, err = json.Marshal(rec)
		data = append(data, '\n')
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, w.format)
	}
	if err != nil {
		return fmt.Errorf("failed to encode capture record: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.out.Write(data); err != nil {
		return fmt.Errorf("failed to write capture record: %w", err)
	}
	w.count++
	return nil
}

// Path returns the file path, empty for writers built with NewWriter
func (w *Writer) Path() string {
	return w.path
}

// Count returns the number of records written
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Close closes the underlying file, if the writer opened one.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closer == nil {
		return nil
	}
	err := w.closer.Close()
	w.closer = nil
	return err
}

// Reader replays records from a capture stream.
type Reader struct {
	next func(*Record) error
}

// NewReader reads records in the given format from r.
func NewReader(r io.Reader, format Format) (*Reader, error) {
	switch format {
	case FormatJSONL:
		dec := json.NewDecoder(r)
		return &Reader{next: func(rec *Record) error { return dec.Decode(rec) }}, nil
	case FormatCBOR:
		dec := cborDec.NewDecoder(r)
		return &Reader{next: func(rec *Record) error { return dec.Decode(rec) }}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// Next returns the next record, or io.EOF at the end of the stream.
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.next(&rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// ReadFile loads every record of a capture file, inferring the format from
// its extension.
func ReadFile(path string) ([]Record, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}
	defer func() { _ = f.Close() }()

	r, err := NewReader(f, format)
	if err != nil {
		return nil, err
	}
	var out []Record
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("%s: record %d: %w", path, len(out)+1, err)
		}
		out = append(out, rec)
	}
}
