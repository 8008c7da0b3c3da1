package bridge

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pumpkit/rfmsg/internal/logging"
)

const (
	// Time allowed to write a packet to the bridge
	writeWait = 10 * time.Second

	// DefaultHandshakeTimeout bounds the websocket upgrade
	DefaultHandshakeTimeout = 10 * time.Second
)

// WebSocketOptions configures DialWebSocket
type WebSocketOptions struct {
	Username         string
	Password         string
	SkipTLSVerify    bool
	HandshakeTimeout time.Duration
}

// WebSocketBridge talks to a bridge that carries one packet per websocket
// message. Binary messages are raw packets; text messages are hex.
type WebSocketBridge struct {
	url  string
	conn *websocket.Conn

	readMu  sync.Mutex
	writeMu sync.Mutex
}

// DialWebSocket connects to a ws:// or wss:// bridge endpoint. Basic auth
// is sent when both username and password are set.
func DialWebSocket(ctx context.Context, wsURL string, opts WebSocketOptions) (*WebSocketBridge, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	timeout := opts.HandshakeTimeout
	if timeout == 0 {
		timeout = DefaultHandshakeTimeout
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: timeout,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: opts.SkipTLSVerify, //nolint:gosec // opt-in for self-signed bridges
		}
	}

	headers := http.Header{}
	if opts.Username != "" && opts.Password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(opts.Username + ":" + opts.Password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket connection failed: %w", err)
	}

	logging.LogConnection(wsURL, "bridge_connected")
	return NewWebSocketBridge(conn, wsURL), nil
}

// NewWebSocketBridge wraps an established connection, such as one accepted
// by the ingest server.
func NewWebSocketBridge(conn *websocket.Conn, name string) *WebSocketBridge {
	return &WebSocketBridge{url: name, conn: conn}
}

// Receive blocks until the next packet arrives or ctx is done. Control and
// undecodable text frames are skipped.
func (b *WebSocketBridge) Receive(ctx context.Context) ([]byte, error) {
	b.readMu.Lock()
	defer b.readMu.Unlock()

	if dl, ok := ctx.Deadline(); ok {
		_ = b.conn.SetReadDeadline(dl)
	} else {
		_ = b.conn.SetReadDeadline(time.Time{})
	}
	// Unblock ReadMessage when ctx is cancelled
	stop := context.AfterFunc(ctx, func() {
		_ = b.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		messageType, data, err := b.conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
				errors.Is(err, websocket.ErrCloseSent) {
				return nil, ErrClosed
			}
			return nil, fmt.Errorf("%w: %v", ErrClosed, err)
		}
		logging.LogWebSocketMessage(b.url, "received", messageType, data)

		switch messageType {
		case websocket.BinaryMessage:
			return data, nil
		case websocket.TextMessage:
			packet, err := hex.DecodeString(strings.TrimSpace(string(data)))
			if err != nil {
				logging.Warn("Skipping non-hex text message from bridge",
					zap.String("bridge", b.url),
					zap.Error(err),
				)
				continue
			}
			return packet, nil
		}
	}
}

// Send writes packet as one binary message.
func (b *WebSocketBridge) Send(ctx context.Context, packet []byte) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	deadline := time.Now().Add(writeWait)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := b.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}
	if err := b.conn.WriteMessage(websocket.BinaryMessage, packet); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	logging.LogWebSocketMessage(b.url, "sent", websocket.BinaryMessage, packet)
	return nil
}

// Close sends a close frame and closes the connection.
func (b *WebSocketBridge) Close() error {
	b.writeMu.Lock()
	_ = b.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	b.writeMu.Unlock()

	logging.LogConnection(b.url, "bridge_closed")
	return b.conn.Close()
}

func (b *WebSocketBridge) String() string {
	return b.url
}
