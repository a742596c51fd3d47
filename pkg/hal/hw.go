package hal

import "context"

// Bus is a two-wire transport able to run one addressed transaction.
// w is written first; when r is not empty the bus issues a repeated start and reads len(r) bytes.
// The bus is released when Tx returns. Implementations must not retry.
type Bus interface {
	Tx(addr uint16, w, r []byte) error
}

// Waker brings a sleeping chip back onto the bus, e.g. by pulsing its KEY pin
type Waker interface {
	Wake(ctx context.Context) error
}
