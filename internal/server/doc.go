// Package server implements the rfmsg ingest server.
//
// Some bridges push packets instead of waiting to be polled. The server
// accepts them on a websocket endpoint (default /packets), optionally over
// TLS and behind HTTP Basic auth. Each message is one RF packet: binary
// frames carry raw bytes, text frames carry hex.
//
// Every packet is decoded against the message catalog, logged, appended to
// the capture store and recorded in the pump registry as last seen through
// the pushing bridge.
//
// # Usage Example
//
//	srv, err := server.New(&server.Config{
//	    Port:    8080,
//	    Capture: writer,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Endpoints
//
//   - GET /packets: websocket upgrade for bridges
//   - GET /healthz: JSON status with connection and packet counts
//
// Start blocks until ctx is cancelled or the process receives SIGINT or
// SIGTERM, then shuts down gracefully: open bridge sessions are closed and
// the registry is saved when a path was configured.
package server
