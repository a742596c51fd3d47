package ip5306

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mbalug7/go-ip5306/pkg/mockbus"
	"gotest.tools/v3/assert"
)

func newVerifyDevice(t *testing.T, bus *mockbus.Bus, attempts int) *Device {
	t.Helper()
	dev, err := NewConfigBuilder().
		VerifyAttempts(attempts).
		VerifyBackoff(time.Microsecond, time.Millisecond).
		Build(bus)
	assert.NilError(t, err)
	return dev
}

func TestWriteBitsVerified(t *testing.T) {
	bus := mockbus.New(DefaultAddress)
	bus.Set(DefaultAddress, 0x01, 0x81)
	dev := newVerifyDevice(t, bus, 3)

	assert.NilError(t, dev.WriteBitsVerified(context.Background(), 0x01, 1, 3, 0x5))
	assert.Equal(t, bus.Get(DefaultAddress, 0x01), uint8(0x8B))
	// read, read, write, read back
	assert.Equal(t, bus.Transactions(), 4)
}

func TestWriteBitsVerifiedNoChange(t *testing.T) {
	bus := mockbus.New(DefaultAddress)
	bus.Set(DefaultAddress, 0x01, 0x30)
	dev := newVerifyDevice(t, bus, 3)

	assert.NilError(t, dev.WriteBitsVerified(context.Background(), 0x01, 4, 2, 0x3))
	assert.Equal(t, bus.Writes(), 0)
}

func TestWriteBitsVerifiedRetriesOnInterference(t *testing.T) {
	bus := mockbus.New(DefaultAddress)
	// another master flips bit 7 right before the second read of the first attempt
	bus.SetHook(func(b *mockbus.Bus, txn int) {
		if txn == 2 {
			b.Set(DefaultAddress, 0x02, 0x80)
		}
	})
	dev := newVerifyDevice(t, bus, 3)

	assert.NilError(t, dev.WriteBitsVerified(context.Background(), 0x02, 0, 1, 1))
	// the concurrent change survives
	assert.Equal(t, bus.Get(DefaultAddress, 0x02), uint8(0x81))
}

func TestWriteBitsVerifiedContention(t *testing.T) {
	bus := mockbus.New(DefaultAddress)
	bus.SetHook(func(b *mockbus.Bus, txn int) {
		b.Set(DefaultAddress, 0x03, uint8(txn))
	})
	dev := newVerifyDevice(t, bus, 2)

	err := dev.WriteBitsVerified(context.Background(), 0x03, 7, 1, 1)
	assert.Assert(t, errors.Is(err, ErrContention))
	assert.Equal(t, bus.Writes(), 0)
}

func TestWriteBitsVerifiedBusFailureNotRetried(t *testing.T) {
	bus := mockbus.New(DefaultAddress)
	bus.FailAll(true)
	dev := newVerifyDevice(t, bus, 5)

	err := dev.WriteBitsVerified(context.Background(), 0x03, 0, 1, 1)
	assert.Assert(t, errors.Is(err, ErrNoValue))
	assert.Equal(t, bus.Transactions(), 1)
}

func TestWriteBitsVerifiedContextCancelled(t *testing.T) {
	bus := mockbus.New(DefaultAddress)
	bus.SetHook(func(b *mockbus.Bus, txn int) {
		b.Set(DefaultAddress, 0x04, uint8(txn))
	})
	dev := newVerifyDevice(t, bus, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := dev.WriteBitsVerified(ctx, 0x04, 0, 1, 1)
	assert.Assert(t, errors.Is(err, context.Canceled))
	assert.Equal(t, bus.Transactions(), 2)
}
