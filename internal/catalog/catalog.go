package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/pumpkit/rfmsg/internal/logging"
	"github.com/pumpkit/rfmsg/internal/message"
)

// CurrentVersion is the catalog document format version
const CurrentVersion = 1

// maxLength keeps length*8 within the schema offset bounds
const maxLength = (message.MaxBitOffset + 1) / 8

//go:embed default.yaml
var defaultYAML []byte

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Catalog errors
var (
	ErrInvalidCatalog  = errors.New("invalid catalog")
	ErrUnknownVariant  = errors.New("unknown variant")
	ErrNoPacketType    = errors.New("variant has no packet type")
	errDuplicateName   = errors.New("duplicate variant name")
	errDuplicateRoute  = errors.New("duplicate message type for packet type")
	errLengthTooShort  = errors.New("length cannot hold fields")
	errMissingName     = errors.New("missing name")
	errMissingMsgType  = errors.New("missing message_type")
	errUnsupportedVers = errors.New("unsupported version")
)

// document is the on-disk YAML shape
type document struct {
	Version  int           `yaml:"version"`
	Variants []variantSpec `yaml:"variants"`
}

type variantSpec struct {
	Name        string                   `yaml:"name"`
	Description string                   `yaml:"description,omitempty"`
	MessageType string                   `yaml:"message_type"`
	PacketType  string                   `yaml:"packet_type,omitempty"`
	Length      int                      `yaml:"length"`
	BitsOffset  int                      `yaml:"bits_offset"`
	Fields      map[string]message.Field `yaml:"fields"`
}

// Variant is one message layout: the identity bytes it applies to and the
// bit-field schema of its body.
type Variant struct {
	Name        string
	Description string
	MessageType message.MessageType
	// PacketType is zero when the variant applies to any framing
	PacketType message.PacketType
	// Length is the outbound buffer size in bytes
	Length int
	Schema *message.Schema
}

// AnyPacketType reports whether the variant matches every packet type.
func (v *Variant) AnyPacketType() bool {
	return v.PacketType == 0
}

type route struct {
	pt message.PacketType
	mt message.MessageType
}

// Catalog is an immutable set of variants. It is safe for concurrent use.
type Catalog struct {
	source   string
	variants []*Variant
	byName   map[string]*Variant
	byRoute  map[route]*Variant
}

// Default returns the embedded starter catalog. It is parsed once.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := parse(defaultYAML, "embedded")
		if err != nil {
			panic(fmt.Sprintf("embedded catalog: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Load reads a catalog file. An empty path returns Default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	c, err := parse(data, path)
	if err != nil {
		return nil, err
	}
	logging.Debug("Catalog loaded",
		zap.String("path", path),
		zap.Int("variants", len(c.variants)),
	)
	return c, nil
}

// Parse builds a catalog from a YAML document.
func Parse(data []byte) (*Catalog, error) {
	return parse(data, "")
}

func parse(data []byte, source string) (*Catalog, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if doc.Version != 0 && doc.Version != CurrentVersion {
		return nil, fmt.Errorf("%w: %w %d", ErrInvalidCatalog, errUnsupportedVers, doc.Version)
	}

	c := &Catalog{
		source:  source,
		byName:  make(map[string]*Variant, len(doc.Variants)),
		byRoute: make(map[route]*Variant, len(doc.Variants)),
	}
	for i, spec := range doc.Variants {
		v, err := spec.build()
		if err != nil {
			return nil, fmt.Errorf("%w: variant %d (%s): %w", ErrInvalidCatalog, i, spec.Name, err)
		}
		key := strings.ToLower(v.Name)
		if _, dup := c.byName[key]; dup {
			return nil, fmt.Errorf("%w: %w %q", ErrInvalidCatalog, errDuplicateName, v.Name)
		}
		r := route{pt: v.PacketType, mt: v.MessageType}
		if other, dup := c.byRoute[r]; dup {
			return nil, fmt.Errorf("%w: %q and %q: %w", ErrInvalidCatalog, other.Name, v.Name, errDuplicateRoute)
		}
		c.byName[key] = v
		c.byRoute[r] = v
		c.variants = append(c.variants, v)
	}
	return c, nil
}

func (s variantSpec) build() (*Variant, error) {
	if strings.TrimSpace(s.Name) == "" {
		return nil, errMissingName
	}
	if s.MessageType == "" {
		return nil, errMissingMsgType
	}
	mt, err := message.ParseMessageType(s.MessageType)
	if err != nil {
		return nil, err
	}

	var pt message.PacketType
	if s.PacketType != "" {
		if pt, err = message.ParsePacketType(s.PacketType); err != nil {
			return nil, err
		}
	}

	schema, err := message.NewSchema(s.Name, s.BitsOffset, s.Fields)
	if err != nil {
		return nil, err
	}

	length := s.Length
	if length == 0 {
		length = (schema.MinBits() + 7) / 8
		if length < message.MinLength {
			length = message.MinLength
		}
	}
	if length < message.MinLength {
		return nil, fmt.Errorf("%w: length %d (minimum %d)", message.ErrInvalidBuffer, length, message.MinLength)
	}
	if length > maxLength {
		return nil, fmt.Errorf("%w: length %d (maximum %d)", message.ErrInvalidBuffer, length, maxLength)
	}
	if schema.MinBits() > length*8 {
		return nil, fmt.Errorf("%w: %d bytes < %d bits", errLengthTooShort, length, schema.MinBits())
	}

	return &Variant{
		Name:        s.Name,
		Description: s.Description,
		MessageType: mt,
		PacketType:  pt,
		Length:      length,
		Schema:      schema,
	}, nil
}

// Source returns the file the catalog was loaded from, "embedded" for the
// default catalog and "" for Parse.
func (c *Catalog) Source() string {
	return c.source
}

// Variants returns every variant in document order.
func (c *Catalog) Variants() []*Variant {
	out := make([]*Variant, len(c.variants))
	copy(out, c.variants)
	return out
}

// Len returns the number of variants
func (c *Catalog) Len() int {
	return len(c.variants)
}

// Lookup finds a variant by name, case-insensitively.
func (c *Catalog) Lookup(name string) (*Variant, bool) {
	v, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	return v, ok
}

// Match returns the variant for an identity pair. A variant bound to the
// exact packet type wins over one that accepts any packet type.
func (c *Catalog) Match(pt message.PacketType, mt message.MessageType) (*Variant, bool) {
	if v, ok := c.byRoute[route{pt: pt, mt: mt}]; ok {
		return v, true
	}
	v, ok := c.byRoute[route{mt: mt}]
	return v, ok
}

// ForMessageType returns every variant registered for mt, sorted by name.
func (c *Catalog) ForMessageType(mt message.MessageType) []*Variant {
	var out []*Variant
	for _, v := range c.variants {
		if v.MessageType == mt {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Decode wraps data and binds the matching variant's schema. When no
// variant matches, the message is returned without a schema and the
// variant is nil; that is not an error.
func (c *Catalog) Decode(data []byte) (*message.Message, *Variant, error) {
	msg, err := message.New(data, nil)
	if err != nil {
		return nil, nil, err
	}
	v, ok := c.Match(msg.PacketType(), msg.MessageType())
	if !ok {
		return msg, nil, nil
	}
	return msg.WithSchema(v.Schema), v, nil
}

// Build allocates an outbound message for the named variant, writes the
// identity header and sets values. Fields missing from values stay zero.
func (c *Catalog) Build(name, address string, values map[string]uint64) (*message.Message, error) {
	v, ok := c.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
	}
	if v.AnyPacketType() {
		return nil, fmt.Errorf("%w: %q", ErrNoPacketType, v.Name)
	}
	return v.Build(v.PacketType, address, values)
}

// Build allocates an outbound message framed with pt. Use it directly for
// variants that accept any packet type.
func (v *Variant) Build(pt message.PacketType, address string, values map[string]uint64) (*message.Message, error) {
	msg, err := message.Build(v.Length, pt, address, v.MessageType, v.Schema)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := msg.SetField(k, values[k]); err != nil {
			return nil, fmt.Errorf("variant %q: %w", v.Name, err)
		}
	}
	return msg, nil
}
