package server

import (
	"context"
	"crypto/subtle"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pumpkit/rfmsg/internal/bridge"
	"github.com/pumpkit/rfmsg/internal/capture"
	"github.com/pumpkit/rfmsg/internal/catalog"
	"github.com/pumpkit/rfmsg/internal/config"
	"github.com/pumpkit/rfmsg/internal/logging"
)

const (
	// DefaultPath is where bridges push packets
	DefaultPath = "/packets"

	// DefaultPort for the ingest listener
	DefaultPort = 8080

	// Maximum websocket message accepted from a bridge
	maxMessageSize = 8192

	shutdownTimeout = 10 * time.Second
)

// Config holds the server configuration
type Config struct {
	Host     string
	Port     int
	Path     string // websocket endpoint, DefaultPath when empty
	CertPath string // TLS is enabled when both CertPath and KeyPath are set
	KeyPath  string

	// Basic auth required from bridges when both are set
	Username string
	Password string

	Catalog      *catalog.Catalog // catalog.Default() when nil
	Capture      *capture.Writer  // optional
	Registry     *config.Registry // optional; last-seen is updated per packet
	RegistryPath string           // registry is saved here on shutdown when set

	// OnPacket is called for every packet after it is logged and recorded
	OnPacket func(bridge.Packet)
}

// Server accepts packets pushed by bridges over websocket.
type Server struct {
	config     *Config
	tlsConfig  *tls.Config
	upgrader   websocket.Upgrader
	httpServer *http.Server

	baseCtx context.Context
	cancel  context.CancelFunc

	wg          sync.WaitGroup
	mu          sync.Mutex
	closing     bool // set once by Shutdown; guarded by mu
	activeConns map[string]*bridge.WebSocketBridge
	packets     atomic.Int64
	now         func() time.Time
}

// New creates a new Server instance
func New(cfg *Config) (*Server, error) {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.Default()
	}

	var tlsConfig *tls.Config
	switch {
	case cfg.CertPath != "" && cfg.KeyPath != "":
		var err error
		tlsConfig, err = NewTLSConfig(cfg.CertPath, cfg.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	case cfg.CertPath != "" || cfg.KeyPath != "":
		return nil, fmt.Errorf("TLS needs both a certificate and a key")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		config:    cfg,
		tlsConfig: tlsConfig,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Bridges are not browsers
			CheckOrigin: func(*http.Request) bool { return true },
		},
		baseCtx:     ctx,
		cancel:      cancel,
		activeConns: make(map[string]*bridge.WebSocketBridge),
		now:         time.Now,
	}, nil
}

// Handler returns the HTTP routes: the websocket endpoint and /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.config.Path, s.handlePackets)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// Start listens on Host:Port and serves until ctx is cancelled or SIGINT or
// SIGTERM arrives.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	if s.tlsConfig != nil {
		ln = tls.NewListener(ln, s.tlsConfig)
	}

	logging.Info("Starting rfmsg ingest server",
		zap.String("addr", addr),
		zap.String("path", s.config.Path),
		zap.Any("tls_info", GetTLSInfo(s.tlsConfig)),
	)
	return s.Serve(ctx, ln)
}

// Serve runs the server on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s.mu.Lock()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	logging.Info("Server listening for connections", zap.String("addr", ln.Addr().String()))

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		logging.Info("Shutdown requested, stopping server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown stops accepting connections, closes bridge sessions and saves
// the registry.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	s.mu.Lock()
	s.closing = true
	srv := s.httpServer
	s.mu.Unlock()

	var errs []error
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}

	// Websocket sessions are hijacked and not tracked by http.Server
	s.cancel()
	s.mu.Lock()
	for addr, conn := range s.activeConns {
		logging.Info("Closing active connection", zap.String("remote_addr", addr))
		_ = conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	}

	if s.config.Registry != nil && s.config.RegistryPath != "" {
		if err := s.config.Registry.SaveTo(s.config.RegistryPath); err != nil {
			errs = append(errs, fmt.Errorf("save registry: %w", err))
		}
	}

	logging.Sync()
	return errors.Join(errs...)
}

// GetActiveConnections returns the number of connected bridges
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

// PacketCount returns the number of packets ingested since start
func (s *Server) PacketCount() int64 {
	return s.packets.Load()
}

func (s *Server) authorized(r *http.Request) bool {
	if s.config.Username == "" || s.config.Password == "" {
		return true
	}
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.config.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(s.config.Password)) == 1
	return userOK && passOK
}

type healthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	Packets     int64  `json:"packets"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status:      "ok",
		Connections: s.GetActiveConnections(),
		Packets:     s.PacketCount(),
	})
}
