//go:build linux

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mbalug7/go-ip5306/pkg/rpi"
	"github.com/mbalug7/go-ip5306/pkg/smbus"
)

func openPlatformBus(kind string, dev string) (*busHandle, error) {
	switch kind {
	case "linux":
		b, err := rpi.NewI2CBus(dev)
		if err != nil {
			return nil, err
		}
		return &busHandle{bus: b, closer: b}, nil
	case "smbus":
		index, err := strconv.Atoi(strings.TrimPrefix(dev, "/dev/i2c-"))
		if err != nil {
			return nil, fmt.Errorf("smbus needs a bus index, got %q", dev)
		}
		return &busHandle{bus: smbus.New(index)}, nil
	}
	return nil, fmt.Errorf("unknown bus backend %q", kind)
}

func openWaker(chip string, line int) (closableWaker, error) {
	if line < 0 {
		return nil, fmt.Errorf("wake needs -key-line")
	}
	k, err := rpi.NewKeyLine(chip, line)
	if err != nil {
		return nil, err
	}
	return k, nil
}
