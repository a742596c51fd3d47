//go:build linux

// Package smbus runs register transactions as SMBus byte-data transfers.
// It fits adapters that only implement the SMBus subset of i2c-dev.
package smbus

import (
	"errors"
	"fmt"
	"sync"

	"github.com/platinasystems/i2c"
)

var ErrUnsupported = errors.New("transaction shape not supported by SMBus byte-data")

type op int

const (
	opReadByte op = iota
	opWriteByte
)

func decode(w, r []byte) (op, error) {
	switch {
	case len(w) == 1 && len(r) == 1:
		return opReadByte, nil
	case len(w) == 2 && len(r) == 0:
		return opWriteByte, nil
	}
	return 0, fmt.Errorf("%d byte write with %d byte read: %w", len(w), len(r), ErrUnsupported)
}

// Bus uses /dev/i2c-<index>, the adapter is opened for every transaction
type Bus struct {
	index int
	mu    sync.Mutex
}

func New(index int) *Bus {
	return &Bus{index: index}
}

func (obj *Bus) String() string {
	return fmt.Sprintf("smbus:%d", obj.index)
}

// Tx implements hal.Bus for register reads (w=[reg], one byte read) and register writes (w=[reg, value])
func (obj *Bus) Tx(addr uint16, w, r []byte) (err error) {
	o, err := decode(w, r)
	if err != nil {
		return err
	}
	var data i2c.SMBusData
	var rw i2c.RW = i2c.Read
	if o == opWriteByte {
		rw = i2c.Write
		data[0] = w[1]
	}

	obj.mu.Lock()
	defer obj.mu.Unlock()

	var bus i2c.Bus
	err = bus.Open(obj.index)
	if err != nil {
		return fmt.Errorf("failed to open smbus %d: %w", obj.index, err)
	}
	defer bus.Close()

	err = bus.ForceSlaveAddress(int(addr))
	if err != nil {
		return fmt.Errorf("failed to select device 0x%02X: %w", addr, err)
	}
	err = bus.Do(rw, w[0], i2c.ByteData, &data)
	if err != nil {
		return fmt.Errorf("smbus transfer to 0x%02X failed: %w", addr, err)
	}
	if o == opReadByte {
		r[0] = data[0]
	}
	return nil
}
