// Package logging provides structured logging for rfmsg.
//
// This package wraps a global zap logger with convenience functions for the
// logging patterns shared by the bridge client, the ingest server and the
// CLI commands.
//
// # Log Levels
//
//   - Debug: hex dumps, websocket frames, HTTP upgrade requests
//   - Info: decoded packets, connections, state changes
//   - Warn: undecodable packets, unknown packet types, dropped connections
//   - Error: startup failures, capture write failures
//
// # Silent By Default
//
// Logging is off unless a level is passed to Initialize or set in
// RFMSG_LOG_LEVEL. Command output goes to stdout; logs go to stderr so they
// never interleave with decoded output that may be piped elsewhere.
//
//	if err := logging.Initialize(logLevel); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// # Packet Logging
//
//	logging.LogPacket("bridge", "rx", msg, variant.Name)
//	logging.LogRawBytes("undecodable frame", raw)
//	logging.LogConnection(remoteAddr, "websocket_upgraded")
package logging
