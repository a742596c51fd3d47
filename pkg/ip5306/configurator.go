package ip5306

import (
	"fmt"
	"io"
	"time"

	"github.com/mbalug7/go-ip5306/pkg/hal"
	"github.com/sirupsen/logrus"
)

const (
	defaultVerifyAttempts = 3
	defaultVerifyMin      = 2 * time.Millisecond
	defaultVerifyMax      = 50 * time.Millisecond
)

type verifyConfig struct {
	attempts int
	min      time.Duration
	max      time.Duration
}

// ConfigBuilder object that is used to build a Device.
// Only the parameters that differ from the defaults need to be set.
type ConfigBuilder struct {
	addr   uint16
	strict bool
	verify verifyConfig
	log    *logrus.Entry
}

// NewConfigBuilder constructs ConfigBuilder with lenient error handling on DefaultAddress
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		addr: DefaultAddress,
		verify: verifyConfig{
			attempts: defaultVerifyAttempts,
			min:      defaultVerifyMin,
			max:      defaultVerifyMax,
		},
	}
}

// Address set 7-bit device address
func (obj *ConfigBuilder) Address(addr uint16) *ConfigBuilder {
	obj.addr = addr
	return obj
}

// Strict makes ReadBits and WriteBits return bus failures instead of dropping them
func (obj *ConfigBuilder) Strict(strict bool) *ConfigBuilder {
	obj.strict = strict
	return obj
}

// Logger sets the log entry used for transaction debug output, logs are discarded when not set
func (obj *ConfigBuilder) Logger(log *logrus.Entry) *ConfigBuilder {
	obj.log = log
	return obj
}

// VerifyAttempts limits the number of attempts WriteBitsVerified makes
func (obj *ConfigBuilder) VerifyAttempts(n int) *ConfigBuilder {
	obj.verify.attempts = n
	return obj
}

// VerifyBackoff sets the delay range between WriteBitsVerified attempts
func (obj *ConfigBuilder) VerifyBackoff(min time.Duration, max time.Duration) *ConfigBuilder {
	obj.verify.min = min
	obj.verify.max = max
	return obj
}

// Build creates the Device on bus
func (obj *ConfigBuilder) Build(bus hal.Bus) (*Device, error) {
	if bus == nil {
		return nil, fmt.Errorf("bus is required")
	}
	if obj.addr > 0x7F {
		return nil, fmt.Errorf("device address 0x%X does not fit in 7 bits", obj.addr)
	}
	if obj.verify.attempts < 1 {
		return nil, fmt.Errorf("verify attempts must be at least 1, got %d", obj.verify.attempts)
	}
	if obj.verify.min > obj.verify.max {
		return nil, fmt.Errorf("verify backoff min %s is above max %s", obj.verify.min, obj.verify.max)
	}
	log := obj.log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = logrus.NewEntry(l)
	}
	return &Device{
		hw:     bus,
		addr:   obj.addr,
		strict: obj.strict,
		verify: obj.verify,
		log:    log.WithField("device", fmt.Sprintf("ip5306@0x%02X", obj.addr)),
	}, nil
}
