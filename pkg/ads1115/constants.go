package ads1115

import "periph.io/x/conn/v3/physic"

// Mux selects the ADC input pair.
type Mux uint16

const (
	Mux0Minus1 Mux = iota << 12
	Mux0Minus3
	Mux1Minus3
	Mux2Minus3
	Mux0
	Mux1
	Mux2
	Mux3
)

const (
	conversionReg uint8 = 0x00
	configReg     uint8 = 0x01
)

const (
	configOS         uint16 = 0x8000 // Start single conversion / conversion done
	configMuxMask    uint16 = 0x7000
	configModeSingle uint16 = 0x0100
	configCompQueOff uint16 = 0x0003
)

// DefaultAddress is the address with ADDR tied to GND.
const DefaultAddress uint16 = 0x48

// PGA settings keyed by full scale range.
var gains = []struct {
	fullScale physic.ElectricPotential
	bits      uint16
}{
	{6144 * physic.MilliVolt, 0x0000},
	{4096 * physic.MilliVolt, 0x0200},
	{2048 * physic.MilliVolt, 0x0400},
	{1024 * physic.MilliVolt, 0x0600},
	{512 * physic.MilliVolt, 0x0800},
	{256 * physic.MilliVolt, 0x0A00},
}

// Data rate settings in samples per second.
var rates = []struct {
	rate physic.Frequency
	bits uint16
}{
	{8 * physic.Hertz, 0x0000},
	{16 * physic.Hertz, 0x0020},
	{32 * physic.Hertz, 0x0040},
	{64 * physic.Hertz, 0x0060},
	{128 * physic.Hertz, 0x0080},
	{250 * physic.Hertz, 0x00A0},
	{475 * physic.Hertz, 0x00C0},
	{860 * physic.Hertz, 0x00E0},
}
