package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/mbalug7/go-ip5306/pkg/hal"
	"github.com/mbalug7/go-ip5306/pkg/ip5306"
)

var errUsage = errors.New("invalid arguments")

type command struct {
	dev    *ip5306.Device
	waker  hal.Waker
	verify bool
	out    io.Writer
}

// parseByte accepts decimal, 0x hex, 0b binary and 0o octal numbers up to 255
func parseByte(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("%q is not a byte value: %w", s, errUsage)
	}
	return uint8(v), nil
}

func parseBytes(args []string, n int) ([]uint8, error) {
	if len(args) != n {
		return nil, fmt.Errorf("expected %d arguments, got %d: %w", n, len(args), errUsage)
	}
	vals := make([]uint8, n)
	for i, a := range args {
		v, err := parseByte(a)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

func (obj *command) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command: %w", errUsage)
	}
	name, args := args[0], args[1:]
	switch name {
	case "get":
		v, err := parseBytes(args, 1)
		if err != nil {
			return err
		}
		val, err := obj.dev.ReadRegister(hal.RegAddress(v[0]))
		if err != nil {
			return err
		}
		fmt.Fprintf(obj.out, "0x%02X\n", val)
	case "set":
		v, err := parseBytes(args, 2)
		if err != nil {
			return err
		}
		return obj.dev.WriteRegister(hal.RegAddress(v[0]), v[1])
	case "getbits":
		v, err := parseBytes(args, 3)
		if err != nil {
			return err
		}
		val, err := obj.dev.ReadBits(hal.RegAddress(v[0]), v[1], v[2])
		if err != nil {
			return err
		}
		fmt.Fprintf(obj.out, "0x%02X\n", val)
	case "setbits":
		v, err := parseBytes(args, 4)
		if err != nil {
			return err
		}
		if obj.verify {
			return obj.dev.WriteBitsVerified(ctx, hal.RegAddress(v[0]), v[1], v[2], v[3])
		}
		return obj.dev.WriteBits(hal.RegAddress(v[0]), v[1], v[2], v[3])
	case "dump":
		return obj.dump(ctx)
	case "wake":
		if obj.waker == nil {
			return fmt.Errorf("wake needs a KEY line: %w", errUsage)
		}
		return obj.waker.Wake(ctx)
	default:
		return fmt.Errorf("unknown command %q: %w", name, errUsage)
	}
	return nil
}

// dump prints a 16 column table, registers that fail to read are shown as --
func (obj *command) dump(ctx context.Context) error {
	fmt.Fprint(obj.out, "    ")
	for col := 0; col < 16; col++ {
		fmt.Fprintf(obj.out, " %X ", col)
	}
	fmt.Fprintln(obj.out)
	failed := 0
	for row := 0; row < 256; row += 16 {
		fmt.Fprintf(obj.out, "%02X: ", row)
		for col := 0; col < 16; col++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			val, err := obj.dev.ReadRegister(hal.RegAddress(row + col))
			if err != nil {
				failed++
				fmt.Fprint(obj.out, "-- ")
				continue
			}
			fmt.Fprintf(obj.out, "%02X ", val)
		}
		fmt.Fprintln(obj.out)
	}
	if failed == 256 {
		return fmt.Errorf("no register answered on device 0x%02X: %w", obj.dev.Address(), ip5306.ErrNoValue)
	}
	return nil
}
