package bridge

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/pumpkit/rfmsg/internal/capture"
	"github.com/pumpkit/rfmsg/internal/catalog"
	"github.com/pumpkit/rfmsg/internal/logging"
	"github.com/pumpkit/rfmsg/internal/message"
)

// Packet is one buffer received from a bridge, decoded against a catalog.
// Message is nil when the buffer was too short to carry an identity
// header; Err says why. Variant is nil when no catalog entry matched.
type Packet struct {
	Received time.Time
	Source   string
	Raw      []byte
	Message  *message.Message
	Variant  *catalog.Variant
	Err      error
}

// VariantName returns the matched variant name or "".
func (p Packet) VariantName() string {
	if p.Variant == nil {
		return ""
	}
	return p.Variant.Name
}

// Record converts the packet for a capture file.
func (p Packet) Record() capture.Record {
	if p.Message == nil {
		return capture.RawRecord(p.Received, p.Source, capture.DirectionRX, p.Raw, p.Err)
	}
	return capture.NewRecord(p.Received, p.Source, capture.DirectionRX, p.Message)
}

// Decode builds a Packet from raw bytes.
func Decode(cat *catalog.Catalog, source string, raw []byte, at time.Time) Packet {
	pkt := Packet{Received: at, Source: source, Raw: raw}
	msg, v, err := cat.Decode(raw)
	if err != nil {
		pkt.Err = err
		return pkt
	}
	pkt.Message = msg
	pkt.Variant = v
	return pkt
}

// Listen receives from b until ctx is done or the bridge closes, calling
// handle for every packet, including ones that failed to decode. It
// returns nil on cancellation or a clean close.
func Listen(ctx context.Context, b Bridge, cat *catalog.Catalog, handle func(Packet)) error {
	source := b.String()
	for {
		raw, err := b.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			if errors.Is(err, ErrClosed) {
				logging.Info("Bridge closed", zap.String("bridge", source), zap.Error(err))
				return nil
			}
			return err
		}

		pkt := Decode(cat, source, raw, time.Now())
		if pkt.Err != nil {
			logging.Warn("Undecodable packet",
				zap.String("bridge", source),
				zap.Error(pkt.Err),
			)
			logging.LogRawBytes("Undecodable packet bytes", raw)
		} else {
			logging.LogPacket(source, capture.DirectionRX, pkt.Message, pkt.VariantName())
		}

		if handle != nil {
			handle(pkt)
		}
	}
}
