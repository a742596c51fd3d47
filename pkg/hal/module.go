package hal

// Accessor interface defines the register level operations exposed by a chip driver
type Accessor interface {
	ReadRegister(reg RegAddress) (uint8, error)
	WriteRegister(reg RegAddress, value uint8) error
	ReadBits(reg RegAddress, start uint8, width uint8) (uint8, error)
	WriteBits(reg RegAddress, start uint8, width uint8, value uint8) error
}
