package probe

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/itohio/gomohm/pkg/sample"
	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the front-end firmware UART rate.
	DefaultBaudRate = 115200
	// DefaultReadTimeout bounds the wait for one acquisition reply.
	DefaultReadTimeout = time.Second

	// acquireCommand asks the front-end for one acquisition.
	acquireCommand = "A\n"
)

// ErrTimeout is returned when the front-end does not answer in time.
var ErrTimeout = errors.New("acquisition timeout")

// Frame is one acquisition reported by the serial front-end.
type Frame struct {
	Current  int16
	Voltage  int16
	SupplyMV int
}

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial acquires from a front-end MCU on a serial port. The MCU performs one
// acquisition per "A" command and replies with "current,voltage,supply_mv".
type Serial struct {
	port        string
	baudRate    int
	readTimeout time.Duration

	conn      io.ReadWriteCloser
	frames    chan Frame
	mu        sync.RWMutex
	acquireMu sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool

	supplyMV   int
	haveSupply bool
}

// NewSerial creates a front-end on port. Zero values select the defaults.
func NewSerial(port string, baudRate int, readTimeout time.Duration) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if readTimeout == 0 {
		readTimeout = DefaultReadTimeout
	}

	return &Serial{
		port:        port,
		baudRate:    baudRate,
		readTimeout: readTimeout,
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{
			Name:        name,
			Description: name,
		})
	}

	return result, nil
}

// Connect opens the serial port and starts reading replies.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}

	mode := &serial.Mode{
		BaudRate: d.baudRate,
	}

	port, err := serial.Open(d.port, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	d.attach(port)
	return nil
}

// attach starts the reader on an open connection. Caller holds d.mu.
func (d *Serial) attach(conn io.ReadWriteCloser) {
	d.ctx, d.cancel = context.WithCancel(context.Background())
	d.conn = conn
	d.frames = make(chan Frame, 8)
	d.connected = true

	go d.readFrames(d.ctx, conn, d.frames)
}

// Close closes the connection and stops reading.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	d.cancel()

	if d.conn != nil {
		if err := d.conn.Close(); err != nil {
			log.Printf("Error closing serial port: %v", err)
		}
		d.conn = nil
	}

	d.connected = false
	return nil
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// Acquire requests one acquisition and waits for the reply.
func (d *Serial) Acquire() (sample.Differential, error) {
	d.acquireMu.Lock()
	defer d.acquireMu.Unlock()

	d.mu.RLock()
	if !d.connected {
		d.mu.RUnlock()
		return sample.Differential{}, ErrNotConnected
	}
	conn, frames, ctx := d.conn, d.frames, d.ctx
	d.mu.RUnlock()

	// The supply is only valid for the cycle that produced it
	d.mu.Lock()
	d.haveSupply = false
	d.mu.Unlock()

	// Drop replies to requests that already timed out
	for drained := false; !drained; {
		select {
		case <-frames:
		default:
			drained = true
		}
	}

	if _, err := conn.Write([]byte(acquireCommand)); err != nil {
		return sample.Differential{}, fmt.Errorf("failed to send acquire command: %w", err)
	}

	timer := time.NewTimer(d.readTimeout)
	defer timer.Stop()

	select {
	case f, ok := <-frames:
		if !ok {
			return sample.Differential{}, fmt.Errorf("serial port %s closed", d.port)
		}
		d.mu.Lock()
		d.supplyMV = f.SupplyMV
		d.haveSupply = true
		d.mu.Unlock()
		return sample.Differential{
			Timestamp: time.Now(),
			Current:   f.Current,
			Voltage:   f.Voltage,
		}, nil
	case <-timer.C:
		return sample.Differential{}, fmt.Errorf("serial port %s: %w", d.port, ErrTimeout)
	case <-ctx.Done():
		return sample.Differential{}, ErrNotConnected
	}
}

// SupplyMillivolts returns the supply voltage reported with the latest
// acquisition. It fails when that acquisition got no reply.
func (d *Serial) SupplyMillivolts() (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.haveSupply {
		return 0, fmt.Errorf("serial port %s: no supply reading for this acquisition", d.port)
	}
	return d.supplyMV, nil
}

// readFrames reads lines from the connection and parses them into frames.
func (d *Serial) readFrames(ctx context.Context, conn io.Reader, frames chan<- Frame) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic in readFrames: %v", r)
		}
	}()
	defer close(frames)

	scanner := bufio.NewScanner(conn)
	for {
		select {
		case <-ctx.Done():
			return
		default:
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil && ctx.Err() == nil {
					log.Printf("Error reading from serial port: %v", err)
				}
				return
			}

			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			frame, err := parseLine(line)
			if err != nil {
				log.Printf("Failed to parse line '%s': %v", line, err)
				continue
			}

			select {
			case frames <- frame:
			case <-ctx.Done():
				return
			default:
				log.Printf("Frames channel full, dropping frame")
			}
		}
	}
}

// parseLine parses a reply from the front-end.
// Format: current,voltage,supply_mv
// Example: 800,400,3300
func parseLine(line string) (Frame, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 3 {
		return Frame{}, fmt.Errorf("invalid line format: expected 3 comma-separated values, got %d", len(parts))
	}

	current, err := strconv.ParseInt(parts[0], 10, 16)
	if err != nil {
		return Frame{}, fmt.Errorf("invalid current code: %w", err)
	}

	voltage, err := strconv.ParseInt(parts[1], 10, 16)
	if err != nil {
		return Frame{}, fmt.Errorf("invalid voltage code: %w", err)
	}

	supply, err := strconv.ParseUint(parts[2], 10, 16)
	if err != nil {
		return Frame{}, fmt.Errorf("invalid supply: %w", err)
	}

	return Frame{
		Current:  int16(current),
		Voltage:  int16(voltage),
		SupplyMV: int(supply),
	}, nil
}
