//go:build linux

package rpi

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestNewI2CBusMissingNode(t *testing.T) {
	_, err := NewI2CBus("/dev/i2c-does-not-exist")
	assert.ErrorContains(t, err, "failed to open i2c bus /dev/i2c-does-not-exist")
}

func TestI2CBusRejectsWideAddress(t *testing.T) {
	b := &I2CBus{path: "/dev/i2c-test", fd: -1}
	err := b.Tx(0x80, []byte{0x00}, nil)
	assert.ErrorContains(t, err, "invalid 7-bit address")
}

func TestI2CBusEmptyTransfer(t *testing.T) {
	b := &I2CBus{path: "/dev/i2c-test", fd: -1}
	assert.NilError(t, b.Tx(0x75, nil, nil))
}

func TestI2CBusClosed(t *testing.T) {
	b := &I2CBus{path: "/dev/i2c-test", fd: -1}
	err := b.Tx(0x75, []byte{0x00}, make([]byte, 1))
	assert.ErrorContains(t, err, "is closed")
	assert.NilError(t, b.Close())
	assert.Equal(t, b.String(), "/dev/i2c-test")
}
