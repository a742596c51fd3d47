package hal

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestFieldMask(t *testing.T) {
	assert.Equal(t, Field{Start: 0, Width: 1}.Mask(), uint8(0x01))
	assert.Equal(t, Field{Start: 3, Width: 3}.Mask(), uint8(0x07))
	assert.Equal(t, Field{Start: 0, Width: 8}.Mask(), uint8(0xFF))
	assert.Equal(t, Field{Start: 0, Width: 0}.Mask(), uint8(0x00))
}

func TestFieldExtractMatchesFormula(t *testing.T) {
	for start := uint8(0); start < 8; start++ {
		for width := uint8(1); start+width <= 8; width++ {
			f := Field{Start: start, Width: width}
			for v := 0; v < 256; v++ {
				want := uint8((v >> start) & ((1 << width) - 1))
				assert.Equal(t, f.Extract(uint8(v)), want, "field %s value 0x%02X", f, v)
			}
		}
	}
}

func TestFieldInsertPreservesOtherBits(t *testing.T) {
	for start := uint8(0); start < 8; start++ {
		for width := uint8(1); start+width <= 8; width++ {
			f := Field{Start: start, Width: width}
			outside := ^(f.Mask() << start)
			for _, cur := range []uint8{0x00, 0xFF, 0xA5, 0x5A} {
				for _, x := range []uint8{0x00, 0x01, 0x03, 0xFF} {
					got := f.Insert(cur, x)
					assert.Equal(t, f.Extract(got), x&f.Mask())
					assert.Equal(t, got&outside, cur&outside)
				}
			}
		}
	}
}

func TestFieldInsertScenario(t *testing.T) {
	f := Field{Start: 4, Width: 2}
	assert.Equal(t, f.Insert(0x00, 0x03), uint8(0x30))
	assert.Equal(t, f.Insert(0xFF, 0x00), uint8(0xCF))
	// value wider than the field is truncated
	assert.Equal(t, f.Insert(0x00, 0x07), uint8(0x30))
}

func TestRegAddressString(t *testing.T) {
	assert.Equal(t, RegAddress(0x77).String(), "0x77")
	assert.Equal(t, RegAddress(0x0A).ToByte(), byte(0x0A))
}
