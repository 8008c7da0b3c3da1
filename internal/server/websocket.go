package server

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/pumpkit/rfmsg/internal/bridge"
	"github.com/pumpkit/rfmsg/internal/logging"
)

// SourcePrefix marks packets pushed to the ingest server in logs and
// capture records.
const SourcePrefix = "push:"

func (s *Server) handlePackets(w http.ResponseWriter, r *http.Request) {
	remoteAddr := r.RemoteAddr
	logging.LogHTTPRequest(remoteAddr, r.Method, r.URL.Path, headerMap(r.Header))

	if !s.authorized(r) {
		w.Header().Set("WWW-Authenticate", `Basic realm="rfmsg"`)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		logging.Warn("Rejected bridge with bad credentials", zap.String("remote_addr", remoteAddr))
		return
	}

	// wg.Add must not race Shutdown's Wait, so it happens under mu
	// while closing is still false.
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error
		logging.Error("Invalid WebSocket upgrade request",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	b := bridge.NewWebSocketBridge(conn, SourcePrefix+remoteAddr)

	// Shutdown may have closed the other sessions while this one upgraded
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		_ = b.Close()
		return
	}
	s.activeConns[remoteAddr] = b
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.activeConns, remoteAddr)
		s.mu.Unlock()
		_ = b.Close()
	}()

	logging.LogConnection(remoteAddr, "websocket_upgraded")

	if err := bridge.Listen(s.baseCtx, b, s.config.Catalog, s.ingest); err != nil {
		logging.Error("WebSocket connection error",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
	}
}

// ingest records one packet. Logging has already happened in bridge.Listen.
func (s *Server) ingest(pkt bridge.Packet) {
	s.packets.Add(1)

	if s.config.Capture != nil {
		if err := s.config.Capture.Write(pkt.Record()); err != nil {
			logging.Error("Failed to write capture record", zap.Error(err))
		}
	}

	if s.config.Registry != nil && pkt.Message != nil && pkt.Message.PacketType().Known() {
		s.config.Registry.UpdatePumpLastSeen(pkt.Message.Address(), pkt.Source, s.now())
	}

	if s.config.OnPacket != nil {
		s.config.OnPacket(pkt)
	}
}

func headerMap(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if k == "Authorization" {
			out[k] = "[redacted]"
			continue
		}
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
