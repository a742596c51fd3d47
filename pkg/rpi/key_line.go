//go:build linux

package rpi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/gpiod"
)

// DefaultPressDuration is a short KEY press, long enough to wake the chip and too short to toggle the boost output off
const DefaultPressDuration = 100 * time.Millisecond

// KeyLine drives the IP5306 KEY pin. The line idles high and is pulled low for a press.
type KeyLine struct {
	chip  *gpiod.Chip
	line  *gpiod.Line
	press time.Duration
	mu    sync.Mutex
}

// NewKeyLine requests offset on gpioChip (e.g. "gpiochip0", 5.5+ kernel) as an output
func NewKeyLine(gpioChip string, offset int) (*KeyLine, error) {
	c, err := gpiod.NewChip(gpioChip, gpiod.WithConsumer("ip5306-key"))
	if err != nil {
		return nil, fmt.Errorf("failed to create GPIO chip: %w", err)
	}
	line, err := c.RequestLine(offset, gpiod.AsOutput(1))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to request KEY GPIO line: %w", err)
	}
	return &KeyLine{chip: c, line: line, press: DefaultPressDuration}, nil
}

// SetPressDuration changes how long Wake holds the line low
func (obj *KeyLine) SetPressDuration(d time.Duration) {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	obj.press = d
}

// Wake implements hal.Waker. The line is released even when ctx is cancelled mid press.
func (obj *KeyLine) Wake(ctx context.Context) error {
	obj.mu.Lock()
	defer obj.mu.Unlock()

	err := obj.line.SetValue(0)
	if err != nil {
		return fmt.Errorf("failed to press KEY line: %w", err)
	}
	t := time.NewTimer(obj.press)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
	err = obj.line.SetValue(1)
	if err != nil {
		return fmt.Errorf("failed to release KEY line: %w", err)
	}
	return ctx.Err()
}

func (obj *KeyLine) Close() (err error) {
	err = obj.line.Close()
	if err != nil {
		return fmt.Errorf("failed to close KEY line: %w", err)
	}
	err = obj.chip.Close()
	if err != nil {
		return fmt.Errorf("failed to close GPIO chip: %w", err)
	}
	return nil
}
