package hal

import "fmt"

type RegAddress uint8

func (obj RegAddress) ToByte() byte {
	return byte(obj)
}

func (obj RegAddress) String() string {
	return fmt.Sprintf("0x%02X", uint8(obj))
}

// Field describes Width contiguous bits of a register, starting at bit Start.
// Start+Width should not exceed 8. It is not validated, out of range fields are truncated by the masking.
type Field struct {
	Start uint8
	Width uint8
}

// Mask returns the field mask before it is shifted into place
func (obj Field) Mask() uint8 {
	m := 1<<uint(obj.Width) - 1
	return uint8(m)
}

// Extract returns the field value stored in the register value v
func (obj Field) Extract(v uint8) uint8 {
	return (v >> obj.Start) & obj.Mask()
}

// Insert returns cur with the field replaced by the low Width bits of value.
// bits outside the field are preserved
func (obj Field) Insert(cur uint8, value uint8) uint8 {
	mask := obj.Mask()
	cur &^= mask << obj.Start
	return cur | ((value & mask) << obj.Start)
}

func (obj Field) String() string {
	return fmt.Sprintf("[%d:%d]", obj.Start, obj.Width)
}
