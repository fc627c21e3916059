//go:build tinygo

package main

import (
	"machine"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// machineBus exposes a TinyGo I2C peripheral as a periph.io bus so the
// ADS1115 driver runs unchanged on the microcontroller.
type machineBus struct {
	i2c *machine.I2C
}

func (b *machineBus) String() string {
	return "I2C0"
}

// Tx implements i2c.Bus.
func (b *machineBus) Tx(addr uint16, w, r []byte) error {
	return b.i2c.Tx(addr, w, r)
}

// SetSpeed implements i2c.Bus.
func (b *machineBus) SetSpeed(f physic.Frequency) error {
	return b.i2c.SetBaudRate(uint32(f / physic.Hertz))
}

var _ i2c.Bus = (*machineBus)(nil)
