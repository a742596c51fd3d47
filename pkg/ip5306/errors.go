package ip5306

import (
	"errors"
	"fmt"

	"github.com/mbalug7/go-ip5306/pkg/hal"
)

var (
	// ErrNoValue matches every failed register read. It takes the place of a -1 read result.
	ErrNoValue = errors.New("register read returned no value")
	// ErrWriteFailed matches every failed register write
	ErrWriteFailed = errors.New("register write failed")
	// ErrContention is returned by WriteBitsVerified when the register kept changing under it
	ErrContention = errors.New("register changed during read-modify-write")
)

const (
	opRead  = "read"
	opWrite = "write"
)

// BusError is a failed single bus transaction on a register
type BusError struct {
	Op   string
	Addr uint16
	Reg  hal.RegAddress
	Err  error
}

func (obj *BusError) Error() string {
	return fmt.Sprintf("failed to %s register %s on device 0x%02X: %s", obj.Op, obj.Reg, obj.Addr, obj.Err)
}

func (obj *BusError) Unwrap() error {
	return obj.Err
}

func (obj *BusError) Is(target error) bool {
	switch target {
	case ErrNoValue:
		return obj.Op == opRead
	case ErrWriteFailed:
		return obj.Op == opWrite
	}
	return false
}
