//go:build pico
// +build pico

package pico

import (
	"context"
	"fmt"
	"machine"
	"sync"
	"time"
)

// DefaultFrequency is the IP5306 maximum clock rate
const DefaultFrequency = 400 * machine.KHz

// Bus forwards register transactions to a TinyGo I2C peripheral
type Bus struct {
	i2c *machine.I2C
}

// NewBus configures the peripheral on the given pins. frequency 0 selects DefaultFrequency.
func NewBus(i2c *machine.I2C, sda machine.Pin, scl machine.Pin, frequency uint32) (*Bus, error) {
	if frequency == 0 {
		frequency = DefaultFrequency
	}
	err := i2c.Configure(machine.I2CConfig{
		Frequency: frequency,
		SDA:       sda,
		SCL:       scl,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure i2c: %w", err)
	}
	return &Bus{i2c: i2c}, nil
}

// Tx implements hal.Bus
func (obj *Bus) Tx(addr uint16, w, r []byte) error {
	return obj.i2c.Tx(addr, w, r)
}

// KeyPin drives the IP5306 KEY input, idle high
type KeyPin struct {
	pin   machine.Pin
	press time.Duration
	mu    sync.Mutex
}

func NewKeyPin(pin machine.Pin) *KeyPin {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pin.High()
	return &KeyPin{pin: pin, press: 100 * time.Millisecond}
}

// Wake implements hal.Waker
func (obj *KeyPin) Wake(ctx context.Context) error {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	obj.pin.Low()
	select {
	case <-ctx.Done():
	case <-time.After(obj.press):
	}
	obj.pin.High()
	return ctx.Err()
}
