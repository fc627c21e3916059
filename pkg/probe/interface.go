package probe

import (
	"github.com/itohio/gomohm/pkg/ads1115"
	"github.com/itohio/gomohm/pkg/battery"
	"github.com/itohio/gomohm/pkg/sample"
)

// Source acquires one Kelvin probe sample: both differential channel pairs.
// Acquire blocks for the conversion time of the hardware and does not retry.
type Source interface {
	Acquire() (sample.Differential, error)
}

// Device is a Source with a connection lifecycle (real or mocked).
type Device interface {
	Source
	Connect() error
	Close() error
	IsConnected() bool
}

// ADC reads a differential input pair as a signed code.
type ADC interface {
	ReadDifferential(pair ads1115.Mux) (int16, error)
}

// Display is a character display addressed by column and row.
type Display interface {
	Clear() error
	SetCursor(col, row int) error
	Write(text string) error
}

var (
	_ Device = (*Kelvin)(nil)
	_ Device = (*Serial)(nil)
	_ Device = (*Mock)(nil)

	_ battery.SupplyReader = (*Serial)(nil)
	_ battery.SupplyReader = (*Mock)(nil)

	_ ADC = (*ads1115.Dev)(nil)
)
