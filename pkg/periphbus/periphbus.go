// Package periphbus opens I2C buses through the periph.io host drivers.
// periph buses already implement hal.Bus, so they can be passed straight to ip5306.NewDevice.
package periphbus

import (
	"fmt"

	"github.com/mbalug7/go-ip5306/pkg/hal"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

var _ hal.Bus = (i2c.Bus)(nil)

// Open initializes the host drivers and opens the named bus, an empty name selects the first one found
func Open(name string) (i2c.BusCloser, error) {
	_, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize periph host drivers: %w", err)
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open i2c bus %q: %w", name, err)
	}
	return bus, nil
}

// Names lists the buses registered by the host drivers
func Names() ([]string, error) {
	_, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize periph host drivers: %w", err)
	}
	var names []string
	for _, ref := range i2creg.All() {
		names = append(names, ref.Name)
	}
	return names, nil
}
