package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mbalug7/go-ip5306/pkg/hal"
	"github.com/mbalug7/go-ip5306/pkg/ip5306"
	"github.com/mbalug7/go-ip5306/pkg/logging"
	"github.com/mbalug7/go-ip5306/pkg/mockbus"
	"github.com/mbalug7/go-ip5306/pkg/periphbus"
	"github.com/mbalug7/go-ip5306/pkg/sc18im700"
	"github.com/sirupsen/logrus"
)

const usage = `usage: go-ip5306 [flags] <command>

commands:
  get <reg>                           read a register
  set <reg> <value>                   write a register
  getbits <reg> <start> <width>       read a bit-field
  setbits <reg> <start> <width> <v>   write a bit-field, keeping the other bits
  dump                                read registers 0x00-0xFF
  wake                                press the KEY line

numbers accept 0x and 0b prefixes

flags:
`

func envOr(key string, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

type closableWaker interface {
	io.Closer
	hal.Waker
}

type busHandle struct {
	bus    hal.Bus
	closer io.Closer
}

func openBus(kind string, dev string) (*busHandle, error) {
	switch kind {
	case "periph":
		b, err := periphbus.Open(dev)
		if err != nil {
			return nil, err
		}
		return &busHandle{bus: b, closer: b}, nil
	case "sc18im700":
		b, err := sc18im700.Open(dev, 0)
		if err != nil {
			return nil, err
		}
		return &busHandle{bus: b, closer: b}, nil
	case "mock":
		return &busHandle{bus: mockbus.New(ip5306.DefaultAddress)}, nil
	}
	return openPlatformBus(kind, dev)
}

func main() {
	logging.InitParam()
	busKind := flag.String("bus", envOr("IP5306_BUS", "linux"), "bus backend: linux, smbus, periph, sc18im700 or mock (env IP5306_BUS)")
	dev := flag.String("dev", envOr("IP5306_DEV", "/dev/i2c-1"), "bus device: i2c-dev path, smbus index, periph bus name or serial port (env IP5306_DEV)")
	addr := flag.Uint("addr", uint(ip5306.DefaultAddress), "7-bit device address")
	strict := flag.Bool("strict", false, "report bus failures from getbits and setbits instead of reading 0 and skipping the write")
	verify := flag.Bool("verify", false, "setbits re-reads the register around the write and retries when it changed")
	keyChip := flag.String("key-chip", "gpiochip0", "GPIO chip of the KEY line")
	keyLine := flag.Int("key-line", -1, "GPIO line offset wired to the KEY pin, needed by wake")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	log := logging.GetLogger(logrus.InfoLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h, err := openBus(*busKind, *dev)
	if err != nil {
		log.Fatal(err)
	}
	if h.closer != nil {
		defer func() {
			err := h.closer.Close()
			if err != nil {
				log.Errorf("failed to close bus: %s", err)
			}
		}()
	}

	device, err := ip5306.NewConfigBuilder().
		Address(uint16(*addr)).
		Strict(*strict).
		Logger(log).
		Build(h.bus)
	if err != nil {
		log.Fatal(err)
	}

	cmd := &command{
		dev:    device,
		verify: *verify,
		out:    os.Stdout,
	}
	if flag.NArg() > 0 && flag.Arg(0) == "wake" {
		waker, err := openWaker(*keyChip, *keyLine)
		if err != nil {
			log.Fatal(err)
		}
		defer waker.Close()
		cmd.waker = waker
	}

	err = cmd.run(ctx, flag.Args())
	if err != nil {
		log.Error(err)
		stop()
		os.Exit(1)
	}
}
