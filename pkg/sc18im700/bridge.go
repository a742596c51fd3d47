// Package sc18im700 drives an I2C bus through an NXP SC18IM700 UART-to-I2C bridge.
package sc18im700

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tarm/serial"
)

const (
	cmdStart    byte = 'S'
	cmdStop     byte = 'P'
	cmdReadReg  byte = 'R'
	cmdWriteReg byte = 'W'

	regI2CStat byte = 0x0A

	statOK          byte = 0xF0
	statNackAddress byte = 0xF1
	statNackData    byte = 0xF2
	statTimeout     byte = 0xF8

	// the bridge length byte limits a single read or write
	maxChunk = 0xFF

	DefaultBaud        = 9600
	DefaultReadTimeout = 500 * time.Millisecond
)

var (
	ErrNackAddress = errors.New("bridge reported NACK on address")
	ErrNackData    = errors.New("bridge reported NACK on data")
	ErrTimeout     = errors.New("bridge reported i2c timeout")
	ErrNoResponse  = errors.New("no response from bridge")
)

// Port is the serial side of the bridge, *serial.Port satisfies it
type Port interface {
	io.ReadWriter
	Flush() error
}

type Bridge struct {
	port   Port
	closer io.Closer
	mu     sync.Mutex
}

// Open opens the bridge on a serial device such as /dev/ttyUSB0. baud 0 selects the power-on rate of 9600.
func Open(name string, baud int) (*Bridge, error) {
	if baud == 0 {
		baud = DefaultBaud
	}
	config := &serial.Config{
		Name:        name,
		Baud:        baud,
		Size:        8,
		ReadTimeout: DefaultReadTimeout,
	}
	p, err := serial.OpenPort(config)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port, err: %w", err)
	}
	b := NewBridge(p)
	b.closer = p
	return b, nil
}

// NewBridge wraps an already configured port
func NewBridge(port Port) *Bridge {
	return &Bridge{port: port}
}

// Tx implements hal.Bus. A write followed by a read is sent as one frame with a repeated start,
// then the bridge I2CStat register is checked.
func (obj *Bridge) Tx(addr uint16, w, r []byte) error {
	if addr > 0x7F {
		return fmt.Errorf("invalid 7-bit address 0x%X", addr)
	}
	if len(w) > maxChunk || len(r) > maxChunk {
		return fmt.Errorf("message too long for bridge: write %d, read %d", len(w), len(r))
	}
	if len(w) == 0 && len(r) == 0 {
		return nil
	}
	frame := make([]byte, 0, len(w)+7)
	if len(w) > 0 {
		frame = append(frame, cmdStart, byte(addr<<1), byte(len(w)))
		frame = append(frame, w...)
	}
	if len(r) > 0 {
		frame = append(frame, cmdStart, byte(addr<<1)|1, byte(len(r)))
	}
	frame = append(frame, cmdStop)

	obj.mu.Lock()
	defer obj.mu.Unlock()

	// drop anything left over from an earlier timed out exchange
	err := obj.port.Flush()
	if err != nil {
		return fmt.Errorf("failed to flush serial stream: %w", err)
	}
	_, err = obj.port.Write(frame)
	if err != nil {
		return fmt.Errorf("failed to send frame to bridge: %w", err)
	}
	var readErr error
	if len(r) > 0 {
		readErr = obj.readFull(r)
	}
	status, err := obj.readStatus()
	if err != nil {
		if readErr != nil {
			return readErr
		}
		return err
	}
	err = statusError(status)
	if err != nil {
		return fmt.Errorf("transfer to 0x%02X: %w", addr, err)
	}
	return readErr
}

// WriteRegister sets one of the bridge internal registers, e.g. the I2C clock dividers
func (obj *Bridge) WriteRegister(reg byte, value byte) error {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	_, err := obj.port.Write([]byte{cmdWriteReg, reg, value, cmdStop})
	if err != nil {
		return fmt.Errorf("failed to write bridge register 0x%02X: %w", reg, err)
	}
	return nil
}

// ReadRegister returns one of the bridge internal registers
func (obj *Bridge) ReadRegister(reg byte) (byte, error) {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	return obj.readRegister(reg)
}

func (obj *Bridge) readStatus() (byte, error) {
	return obj.readRegister(regI2CStat)
}

func (obj *Bridge) readRegister(reg byte) (byte, error) {
	_, err := obj.port.Write([]byte{cmdReadReg, reg, cmdStop})
	if err != nil {
		return 0, fmt.Errorf("failed to request bridge register 0x%02X: %w", reg, err)
	}
	buf := make([]byte, 1)
	err = obj.readFull(buf)
	if err != nil {
		return 0, fmt.Errorf("failed to read bridge register 0x%02X: %w", reg, err)
	}
	return buf[0], nil
}

// readFull reads len(buf) bytes; the serial read timeout shows up as an empty read
func (obj *Bridge) readFull(buf []byte) error {
	n := 0
	for n < len(buf) {
		m, err := obj.port.Read(buf[n:])
		n += m
		if m == 0 || err == io.EOF {
			if n == len(buf) {
				return nil
			}
			return fmt.Errorf("got %d of %d bytes: %w", n, len(buf), ErrNoResponse)
		}
		if err != nil {
			return fmt.Errorf("failed to receive data: %w", err)
		}
	}
	return nil
}

func statusError(status byte) error {
	switch status {
	case statOK:
		return nil
	case statNackAddress:
		return ErrNackAddress
	case statNackData:
		return ErrNackData
	case statTimeout:
		return ErrTimeout
	}
	return fmt.Errorf("unknown bridge status 0x%02X", status)
}

func (obj *Bridge) Close() error {
	if obj.closer == nil {
		return nil
	}
	err := obj.closer.Close()
	if err != nil {
		return fmt.Errorf("failed to close serial stream: %w", err)
	}
	return nil
}
