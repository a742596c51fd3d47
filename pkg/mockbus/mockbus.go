// Package mockbus is an in-memory register file that implements hal.Bus.
// Every device address owns 256 byte wide registers.
package mockbus

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrNack     = errors.New("no acknowledge from device")
	ErrInjected = errors.New("injected bus failure")
)

// Hook is called before every transaction, it can mutate registers to simulate another bus master
type Hook func(bus *Bus, txn int)

type Bus struct {
	mu         sync.Mutex
	devices    map[uint16]*[256]uint8
	failAll    bool
	failWrites bool
	failAt     map[int]bool // transaction numbers that fail, counted from 1
	hook       Hook
	txns       int
	reads      int
	writes     int
}

// New creates a bus with one register file for every given device address
func New(addrs ...uint16) *Bus {
	b := &Bus{
		devices: make(map[uint16]*[256]uint8),
		failAt:  make(map[int]bool),
	}
	for _, a := range addrs {
		b.devices[a] = &[256]uint8{}
	}
	return b
}

// Tx implements hal.Bus. A write of a single byte only moves the register pointer,
// further written bytes are stored to consecutive registers.
func (obj *Bus) Tx(addr uint16, w, r []byte) error {
	obj.mu.Lock()
	hook := obj.hook
	obj.txns++
	txn := obj.txns
	obj.mu.Unlock()

	if hook != nil {
		hook(obj, txn)
	}

	obj.mu.Lock()
	defer obj.mu.Unlock()

	if obj.failAll || obj.failAt[txn] {
		return fmt.Errorf("transaction %d: %w", txn, ErrInjected)
	}
	regs, ok := obj.devices[addr]
	if !ok {
		return fmt.Errorf("address 0x%02X: %w", addr, ErrNack)
	}
	if len(w) == 0 && len(r) == 0 {
		return nil
	}
	var ptr uint8
	if len(w) > 0 {
		ptr = w[0]
		if len(w) > 1 {
			if obj.failWrites {
				return fmt.Errorf("write transaction %d: %w", txn, ErrInjected)
			}
			for _, b := range w[1:] {
				regs[ptr] = b
				ptr++
			}
			obj.writes++
		}
	}
	if len(r) > 0 {
		for i := range r {
			r[i] = regs[ptr]
			ptr++
		}
		obj.reads++
	}
	return nil
}

// Set stores a register value without going through the bus
func (obj *Bus) Set(addr uint16, reg uint8, value uint8) {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	regs, ok := obj.devices[addr]
	if !ok {
		regs = &[256]uint8{}
		obj.devices[addr] = regs
	}
	regs[reg] = value
}

// Get returns a register value without going through the bus
func (obj *Bus) Get(addr uint16, reg uint8) uint8 {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	regs, ok := obj.devices[addr]
	if !ok {
		return 0
	}
	return regs[reg]
}

// FailAll makes every following transaction fail
func (obj *Bus) FailAll(fail bool) {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	obj.failAll = fail
}

// FailWrites makes transactions that store register data fail, reads keep working
func (obj *Bus) FailWrites(fail bool) {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	obj.failWrites = fail
}

// FailTransaction makes the n-th transaction (counted from 1 over the bus lifetime) fail
func (obj *Bus) FailTransaction(n int) {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	obj.failAt[n] = true
}

func (obj *Bus) SetHook(h Hook) {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	obj.hook = h
}

// Reads returns the number of successful read transactions
func (obj *Bus) Reads() int {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	return obj.reads
}

// Writes returns the number of successful register write transactions
func (obj *Bus) Writes() int {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	return obj.writes
}

// Transactions returns the number of attempted transactions, failed ones included
func (obj *Bus) Transactions() int {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	return obj.txns
}
