//go:build linux

package rpi

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	i2cRdWr    = 0x0707 // I2C_RDWR ioctl
	i2cFlagRd  = 0x0001 // I2C_M_RD
	maxMsgSize = 0xFFFF
)

// i2cMsg mirrors struct i2c_msg from linux/i2c.h
type i2cMsg struct {
	addr  uint16
	flags uint16
	len   uint16
	buf   uintptr
}

// i2cRdWrData mirrors struct i2c_rdwr_ioctl_data
type i2cRdWrData struct {
	msgs  uintptr
	nmsgs uint32
}

// I2CBus is a Linux i2c-dev adapter. Every Tx is sent as a single I2C_RDWR ioctl,
// so a write followed by a read is joined with a repeated start.
type I2CBus struct {
	path string
	fd   int
	mu   sync.Mutex // one ioctl at a time on this fd
}

// NewI2CBus opens the i2c-dev node, e.g. /dev/i2c-1 on a Raspberry Pi
func NewI2CBus(path string) (*I2CBus, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open i2c bus %s: %w", path, err)
	}
	return &I2CBus{path: path, fd: fd}, nil
}

// NewI2CBusIndex opens /dev/i2c-<index>
func NewI2CBusIndex(index int) (*I2CBus, error) {
	return NewI2CBus(fmt.Sprintf("/dev/i2c-%d", index))
}

func (obj *I2CBus) String() string {
	return obj.path
}

// Tx implements hal.Bus
func (obj *I2CBus) Tx(addr uint16, w, r []byte) error {
	if addr > 0x7F {
		return fmt.Errorf("invalid 7-bit address 0x%X", addr)
	}
	if len(w) > maxMsgSize || len(r) > maxMsgSize {
		return fmt.Errorf("message too long: write %d, read %d", len(w), len(r))
	}
	msgs := make([]i2cMsg, 0, 2)
	if len(w) > 0 {
		msgs = append(msgs, i2cMsg{
			addr: addr,
			len:  uint16(len(w)),
			buf:  uintptr(unsafe.Pointer(&w[0])),
		})
	}
	if len(r) > 0 {
		msgs = append(msgs, i2cMsg{
			addr:  addr,
			flags: i2cFlagRd,
			len:   uint16(len(r)),
			buf:   uintptr(unsafe.Pointer(&r[0])),
		})
	}
	if len(msgs) == 0 {
		return nil
	}
	data := i2cRdWrData{
		msgs:  uintptr(unsafe.Pointer(&msgs[0])),
		nmsgs: uint32(len(msgs)),
	}

	obj.mu.Lock()
	defer obj.mu.Unlock()
	if obj.fd < 0 {
		return fmt.Errorf("i2c bus %s is closed", obj.path)
	}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(obj.fd), i2cRdWr, uintptr(unsafe.Pointer(&data)))
	runtime.KeepAlive(msgs)
	runtime.KeepAlive(w)
	runtime.KeepAlive(r)
	if errno != 0 {
		return fmt.Errorf("i2c transfer to 0x%02X on %s failed: %w", addr, obj.path, errno)
	}
	return nil
}

func (obj *I2CBus) Close() error {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	if obj.fd < 0 {
		return nil
	}
	err := unix.Close(obj.fd)
	obj.fd = -1
	if err != nil {
		return fmt.Errorf("failed to close i2c bus %s: %w", obj.path, err)
	}
	return nil
}
