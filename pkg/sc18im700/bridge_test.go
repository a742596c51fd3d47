package sc18im700

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/mbalug7/go-ip5306/pkg/ip5306"
	"github.com/mbalug7/go-ip5306/pkg/mockbus"
	"gotest.tools/v3/assert"
)

// fakePort plays the bridge side: it decodes every written command and runs it on a mock bus
type fakePort struct {
	bus    *mockbus.Bus
	out    bytes.Buffer
	regs   [16]byte
	frames [][]byte
}

func newFakePort(bus *mockbus.Bus) *fakePort {
	p := &fakePort{bus: bus}
	p.regs[regI2CStat] = statOK
	return p
}

type segment struct {
	addr uint16
	read bool
	n    int
	data []byte
}

func (obj *fakePort) Write(b []byte) (int, error) {
	obj.frames = append(obj.frames, append([]byte(nil), b...))
	switch b[0] {
	case cmdReadReg:
		obj.out.WriteByte(obj.regs[b[1]])
	case cmdWriteReg:
		obj.regs[b[1]] = b[2]
	case cmdStart:
		obj.runFrame(b)
	}
	return len(b), nil
}

func (obj *fakePort) runFrame(b []byte) {
	var segs []segment
	i := 0
	for b[i] == cmdStart {
		s := segment{addr: uint16(b[i+1] >> 1), read: b[i+1]&1 == 1, n: int(b[i+2])}
		i += 3
		if !s.read {
			s.data = b[i : i+s.n]
			i += s.n
		}
		segs = append(segs, s)
	}
	var w, r []byte
	addr := segs[0].addr
	for _, s := range segs {
		if s.read {
			r = make([]byte, s.n)
		} else {
			w = s.data
		}
	}
	err := obj.bus.Tx(addr, w, r)
	switch {
	case errors.Is(err, mockbus.ErrNack):
		obj.regs[regI2CStat] = statNackAddress
	case err != nil:
		obj.regs[regI2CStat] = statTimeout
	default:
		obj.regs[regI2CStat] = statOK
		obj.out.Write(r)
	}
}

func (obj *fakePort) Read(b []byte) (int, error) {
	if obj.out.Len() == 0 {
		return 0, io.EOF
	}
	return obj.out.Read(b)
}

func (obj *fakePort) Flush() error {
	obj.out.Reset()
	return nil
}

func TestFrames(t *testing.T) {
	port := newFakePort(mockbus.New(0x75))
	b := NewBridge(port)

	assert.NilError(t, b.Tx(0x75, []byte{0x70, 0x12}, nil))
	assert.DeepEqual(t, port.frames[0], []byte{'S', 0xEA, 2, 0x70, 0x12, 'P'})
	assert.DeepEqual(t, port.frames[1], []byte{'R', 0x0A, 'P'})

	r := make([]byte, 1)
	assert.NilError(t, b.Tx(0x75, []byte{0x70}, r))
	assert.DeepEqual(t, port.frames[2], []byte{'S', 0xEA, 1, 0x70, 'S', 0xEB, 1, 'P'})
	assert.Equal(t, r[0], byte(0x12))
}

func TestNackOnAddress(t *testing.T) {
	b := NewBridge(newFakePort(mockbus.New()))
	err := b.Tx(0x75, []byte{0x70}, make([]byte, 1))
	assert.Assert(t, errors.Is(err, ErrNackAddress))

	err = b.Tx(0x75, []byte{0x70, 0x00}, nil)
	assert.Assert(t, errors.Is(err, ErrNackAddress))
}

func TestBusTimeout(t *testing.T) {
	bus := mockbus.New(0x75)
	bus.FailAll(true)
	b := NewBridge(newFakePort(bus))
	err := b.Tx(0x75, []byte{0x70, 0x00}, nil)
	assert.Assert(t, errors.Is(err, ErrTimeout))
}

func TestLimits(t *testing.T) {
	b := NewBridge(newFakePort(mockbus.New(0x75)))
	assert.ErrorContains(t, b.Tx(0x80, []byte{0}, nil), "invalid 7-bit address")
	assert.ErrorContains(t, b.Tx(0x75, make([]byte, 256), nil), "message too long")
	assert.NilError(t, b.Tx(0x75, nil, nil))
	assert.NilError(t, b.Close())
}

func TestInternalRegisters(t *testing.T) {
	b := NewBridge(newFakePort(mockbus.New()))
	assert.NilError(t, b.WriteRegister(0x07, 0x13))
	v, err := b.ReadRegister(0x07)
	assert.NilError(t, err)
	assert.Equal(t, v, byte(0x13))
}

func TestSilentBridge(t *testing.T) {
	b := NewBridge(&silentPort{})
	err := b.Tx(0x75, []byte{0x00}, make([]byte, 1))
	assert.Assert(t, errors.Is(err, ErrNoResponse))
}

type silentPort struct{}

func (silentPort) Write(b []byte) (int, error) { return len(b), nil }
func (silentPort) Read(b []byte) (int, error)  { return 0, nil }
func (silentPort) Flush() error                { return nil }

func TestDeviceThroughBridge(t *testing.T) {
	bus := mockbus.New(ip5306.DefaultAddress)
	dev, err := ip5306.NewConfigBuilder().Strict(true).Build(NewBridge(newFakePort(bus)))
	assert.NilError(t, err)

	assert.NilError(t, dev.WriteBits(0x00, 4, 2, 0b11))
	assert.Equal(t, bus.Get(ip5306.DefaultAddress, 0x00), uint8(0b00110000))
	v, err := dev.ReadBits(0x00, 0, 4)
	assert.NilError(t, err)
	assert.Equal(t, v, uint8(0))
}
