// Package bridge connects rfmsg to the radio hardware that actually moves
// RF packets.
//
// Two transports are supported:
//
//   - websocket: ws:// or wss:// endpoints, optionally behind HTTP Basic
//     auth. Binary frames carry raw packets; text frames carry hex.
//   - serial: a UART speaking one hex-encoded packet per line at 8N1.
//
// Both satisfy the Bridge interface. Listen drives a Bridge, decodes each
// packet against a catalog and hands the result to a callback:
//
//	b, err := bridge.Open(ctx, "ws://rfbridge.local:8080/packets", bridge.Options{})
//	if err != nil {
//	    return err
//	}
//	defer b.Close()
//	return bridge.Listen(ctx, b, catalog.Default(), func(p bridge.Packet) {
//	    fmt.Println(p.Message)
//	})
package bridge
