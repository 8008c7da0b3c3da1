package bridge

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"
)

// PasswordEnvVar holds the bridge password for non-interactive use
const PasswordEnvVar = "RFMSG_BRIDGE_PASSWORD"

// ErrClosed is returned by Receive and Send once the bridge is closed or
// the remote end has gone away.
var ErrClosed = errors.New("bridge closed")

// Bridge moves raw RF buffers between rfmsg and a radio. One Receive call
// returns one complete packet.
type Bridge interface {
	Receive(ctx context.Context) ([]byte, error)
	Send(ctx context.Context, packet []byte) error
	Close() error
	String() string
}

// Options configures Open
type Options struct {
	Username      string
	Password      string
	SkipTLSVerify bool
	BaudRate      int
}

// Open connects to target. ws:// and wss:// URLs dial a websocket bridge;
// serial:///dev/ttyUSB0 or a bare device path opens a serial bridge.
func Open(ctx context.Context, target string, opts Options) (Bridge, error) {
	if target == "" {
		return nil, fmt.Errorf("no bridge specified (use --url or --port)")
	}

	u, err := url.Parse(target)
	if err == nil {
		switch u.Scheme {
		case "ws", "wss":
			return DialWebSocket(ctx, target, WebSocketOptions{
				Username:      opts.Username,
				Password:      opts.Password,
				SkipTLSVerify: opts.SkipTLSVerify,
			})
		case "serial":
			return OpenSerial(u.Path, opts.BaudRate)
		case "":
		default:
			return nil, fmt.Errorf("unsupported bridge scheme: %s (use ws://, wss:// or serial://)", u.Scheme)
		}
	}
	return OpenSerial(target, opts.BaudRate)
}

// GetPassword returns the password from RFMSG_BRIDGE_PASSWORD or prompts on
// the terminal without echo.
func GetPassword() (string, error) {
	if pw := os.Getenv(PasswordEnvVar); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Bridge password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Not a terminal: read a plain line
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}
