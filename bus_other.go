//go:build !linux

package main

import (
	"fmt"
)

func openPlatformBus(kind string, dev string) (*busHandle, error) {
	return nil, fmt.Errorf("bus backend %q is only available on linux", kind)
}

func openWaker(chip string, line int) (closableWaker, error) {
	return nil, fmt.Errorf("KEY line control is only available on linux")
}
