package bridge

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/pumpkit/rfmsg/internal/logging"
)

// DefaultBaudRate is used when Options.BaudRate is zero
const DefaultBaudRate = 115200

// Longest line accepted from a serial bridge
const maxLineLength = 4096

type serialResult struct {
	packet []byte
	err    error
}

// SerialBridge reads newline-terminated hex packets from a UART. Blank
// lines and lines starting with '#' are bridge chatter and are skipped.
type SerialBridge struct {
	name string
	rw   io.ReadWriteCloser

	packets chan serialResult
	done    chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// OpenSerial opens portName at 8N1. A zero baud rate means DefaultBaudRate.
func OpenSerial(portName string, baudRate int) (*SerialBridge, error) {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	logging.LogConnection("serial:"+portName, "bridge_connected")
	return NewSerialBridge(port, "serial:"+portName), nil
}

// NewSerialBridge wraps an already open stream. It starts the reader
// goroutine; Close stops it by closing rw.
func NewSerialBridge(rw io.ReadWriteCloser, name string) *SerialBridge {
	b := &SerialBridge{
		name:    name,
		rw:      rw,
		packets: make(chan serialResult),
		done:    make(chan struct{}),
	}
	go b.readLoop()
	return b
}

// ListPorts returns the serial ports present on this machine.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}

func (b *SerialBridge) readLoop() {
	scanner := bufio.NewScanner(b.rw)
	scanner.Buffer(make([]byte, 0, 256), maxLineLength)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		packet, err := hex.DecodeString(line)
		if err != nil {
			logging.Warn("Skipping non-hex line from bridge",
				zap.String("bridge", b.name),
				zap.String("line", line),
			)
			continue
		}
		select {
		case b.packets <- serialResult{packet: packet}:
		case <-b.done:
			return
		}
	}

	err := ErrClosed
	if scanErr := scanner.Err(); scanErr != nil {
		err = fmt.Errorf("%w: %v", ErrClosed, scanErr)
	}
	select {
	case b.packets <- serialResult{err: err}:
	case <-b.done:
	}
	close(b.packets)
}

// Receive returns the next packet or ErrClosed once the stream ends.
func (b *SerialBridge) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-b.done:
		return nil, ErrClosed
	case res, ok := <-b.packets:
		if !ok {
			return nil, ErrClosed
		}
		return res.packet, res.err
	}
}

// Send writes packet as one hex line.
func (b *SerialBridge) Send(ctx context.Context, packet []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-b.done:
		return ErrClosed
	default:
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	line := hex.EncodeToString(packet) + "\n"
	if _, err := io.WriteString(b.rw, line); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	return nil
}

// Close closes the port. It is safe to call more than once.
func (b *SerialBridge) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.done)
		err = b.rw.Close()
		logging.LogConnection(b.name, "bridge_closed")
	})
	return err
}

func (b *SerialBridge) String() string {
	return b.name
}
