package ip5306

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jpillora/backoff"
	"github.com/mazen160/go-random"
	"github.com/mbalug7/go-ip5306/pkg/hal"
	"github.com/sirupsen/logrus"
)

// DefaultAddress is the fixed 7-bit bus address of the IP5306
const DefaultAddress uint16 = 0x75

var errInterfered = errors.New("register value moved")

// Device gives register and bit-field access to one IP5306 on a bus.
// Every call is an independent sequence of single-attempt bus transactions, nothing is cached.
// Device does no locking, callers sharing a bus between goroutines must serialize access.
type Device struct {
	hw     hal.Bus
	addr   uint16
	strict bool
	verify verifyConfig
	log    *logrus.Entry
}

var _ hal.Accessor = (*Device)(nil)

// NewDevice creates a lenient Device on the default address
func NewDevice(bus hal.Bus) (*Device, error) {
	return NewConfigBuilder().Build(bus)
}

// Address returns the 7-bit device address
func (obj *Device) Address() uint16 {
	return obj.addr
}

// Strict reports whether ReadBits and WriteBits surface bus failures
func (obj *Device) Strict() bool {
	return obj.strict
}

// ReadRegister writes the register address, and reads one byte after a repeated start.
// Failure matches ErrNoValue.
func (obj *Device) ReadRegister(reg hal.RegAddress) (uint8, error) {
	l := obj.txLog(opRead, reg)
	buf := make([]byte, 1)
	err := obj.hw.Tx(obj.addr, []byte{reg.ToByte()}, buf)
	if err != nil {
		l.WithError(err).Debug("register read failed")
		return 0, &BusError{Op: opRead, Addr: obj.addr, Reg: reg, Err: err}
	}
	l.WithField("value", fmt.Sprintf("0x%02X", buf[0])).Debug("register read")
	return buf[0], nil
}

// WriteRegister writes the register address followed by value in one transaction.
// Failure matches ErrWriteFailed.
func (obj *Device) WriteRegister(reg hal.RegAddress, value uint8) error {
	l := obj.txLog(opWrite, reg).WithField("value", fmt.Sprintf("0x%02X", value))
	err := obj.hw.Tx(obj.addr, []byte{reg.ToByte(), value}, nil)
	if err != nil {
		l.WithError(err).Debug("register write failed")
		return &BusError{Op: opWrite, Addr: obj.addr, Reg: reg, Err: err}
	}
	l.Debug("register written")
	return nil
}

// ReadBits returns width bits of the register starting at bit start.
// In lenient mode a failed read gives 0 and a nil error, so a zero field and an absent chip look the same.
func (obj *Device) ReadBits(reg hal.RegAddress, start uint8, width uint8) (uint8, error) {
	return obj.ReadField(reg, hal.Field{Start: start, Width: width})
}

// WriteBits stores the low width bits of value at bit start, leaving the other bits as they were read.
// The read and the write are separate transactions, a change made in between is overwritten.
// In lenient mode failures are dropped and the call always returns nil.
func (obj *Device) WriteBits(reg hal.RegAddress, start uint8, width uint8, value uint8) error {
	return obj.WriteField(reg, hal.Field{Start: start, Width: width}, value)
}

func (obj *Device) ReadField(reg hal.RegAddress, f hal.Field) (uint8, error) {
	v, err := obj.ReadRegister(reg)
	if err != nil {
		if obj.strict {
			return 0, err
		}
		obj.log.WithError(err).WithField("field", f.String()).Debug("read bits failed, returning 0")
		return 0, nil
	}
	return f.Extract(v), nil
}

func (obj *Device) WriteField(reg hal.RegAddress, f hal.Field, value uint8) error {
	cur, err := obj.ReadRegister(reg)
	if err != nil {
		return obj.dropUnlessStrict(err, reg, f, "read before write bits failed, nothing written")
	}
	err = obj.WriteRegister(reg, f.Insert(cur, value))
	if err != nil {
		return obj.dropUnlessStrict(err, reg, f, "write bits failed")
	}
	return nil
}

func (obj *Device) dropUnlessStrict(err error, reg hal.RegAddress, f hal.Field, msg string) error {
	if obj.strict {
		return err
	}
	obj.log.WithError(err).WithFields(logrus.Fields{"reg": reg.String(), "field": f.String()}).Debug(msg)
	return nil
}

// WriteBitsVerified is a read-modify-write that detects concurrent changes.
// It reads the register twice before writing and once after; when the values move, it backs off and starts again.
// Bus failures are returned immediately, running out of attempts gives ErrContention.
// It always reports errors, regardless of the strict setting.
func (obj *Device) WriteBitsVerified(ctx context.Context, reg hal.RegAddress, start uint8, width uint8, value uint8) error {
	f := hal.Field{Start: start, Width: width}
	b := &backoff.Backoff{
		Min:    obj.verify.min,
		Max:    obj.verify.max,
		Factor: 2,
		Jitter: false,
	}
	for attempt := 0; attempt < obj.verify.attempts; attempt++ {
		if attempt > 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(b.Duration()):
			}
		}
		err := obj.tryWriteField(reg, f, value)
		if err == nil {
			return nil
		}
		if !errors.Is(err, errInterfered) {
			return err
		}
		obj.log.WithFields(logrus.Fields{"reg": reg.String(), "field": f.String(), "attempt": attempt + 1}).Debug(err.Error())
	}
	return fmt.Errorf("failed to update register %s field %s in %d attempts: %w", reg, f, obj.verify.attempts, ErrContention)
}

func (obj *Device) tryWriteField(reg hal.RegAddress, f hal.Field, value uint8) error {
	cur, err := obj.ReadRegister(reg)
	if err != nil {
		return err
	}
	again, err := obj.ReadRegister(reg)
	if err != nil {
		return err
	}
	if again != cur {
		return fmt.Errorf("%w before write: 0x%02X then 0x%02X", errInterfered, cur, again)
	}
	next := f.Insert(cur, value)
	if next == cur {
		return nil
	}
	err = obj.WriteRegister(reg, next)
	if err != nil {
		return err
	}
	back, err := obj.ReadRegister(reg)
	if err != nil {
		return err
	}
	if back != next {
		return fmt.Errorf("%w after write: wrote 0x%02X, read back 0x%02X", errInterfered, next, back)
	}
	return nil
}

func (obj *Device) txLog(op string, reg hal.RegAddress) *logrus.Entry {
	l := obj.log.WithFields(logrus.Fields{"op": op, "reg": reg.String()})
	if !obj.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		return l
	}
	id, err := random.String(8)
	if err != nil {
		return l
	}
	return l.WithField("txn", id)
}
