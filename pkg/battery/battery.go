package battery

import (
	"fmt"
	"math"

	"github.com/itohio/gomohm/pkg/config"
)

// SupplyReader reads the instrument supply voltage in millivolts.
type SupplyReader interface {
	SupplyMillivolts() (int, error)
}

// Status is the battery state of one polling cycle.
type Status struct {
	Volts float64
	Low   bool
}

// Monitor compares the supply voltage against a fixed low limit.
// There is no hysteresis: every check stands on its own.
type Monitor struct {
	reader   SupplyReader
	lowLimit float64
}

// NewMonitor creates a monitor that reports Low below lowLimit volts.
func NewMonitor(reader SupplyReader, lowLimit float64) *Monitor {
	return &Monitor{
		reader:   reader,
		lowLimit: lowLimit,
	}
}

// Check reads the supply once and classifies it.
func (m *Monitor) Check() (Status, error) {
	mv, err := m.reader.SupplyMillivolts()
	if err != nil {
		return Status{}, fmt.Errorf("failed to read supply voltage: %w", err)
	}

	volts := float64(mv) / 1000.0
	return Status{
		Volts: volts,
		Low:   volts < m.lowLimit,
	}, nil
}

// LowLimit returns the configured threshold in volts.
func (m *Monitor) LowLimit() float64 {
	return m.lowLimit
}

// Fixed is a SupplyReader that always reports the same voltage.
type Fixed int

// SupplyMillivolts implements SupplyReader.
func (f Fixed) SupplyMillivolts() (int, error) {
	return int(f), nil
}

// SingleEndedADC reads one ADC input against ground.
type SingleEndedADC interface {
	ReadSingleEnded(channel int) (int16, error)
}

// Divider reads the supply through a resistor divider on a single-ended ADC input.
// Formula: V_in = V_out * ((R1 + R2) / R2)
type Divider struct {
	adc     SingleEndedADC
	channel int
	gain    float64 // mV per LSB
	r1, r2  float64
}

// NewDivider creates a divider reader. gain is the ADC millivolts per LSB.
func NewDivider(adc SingleEndedADC, channel int, gain, r1, r2 float64) *Divider {
	return &Divider{
		adc:     adc,
		channel: channel,
		gain:    gain,
		r1:      r1,
		r2:      r2,
	}
}

// SupplyMillivolts implements SupplyReader.
func (d *Divider) SupplyMillivolts() (int, error) {
	raw, err := d.adc.ReadSingleEnded(d.channel)
	if err != nil {
		return 0, err
	}
	vout := float64(raw) * d.gain
	return int(math.Round(vout * ((d.r1 + d.r2) / d.r2))), nil
}

// NewReader builds the supply reader selected by cfg.Battery.Source.
// device is used for "device" and adc for "adc"; either may be nil when not selected.
func NewReader(cfg *config.Config, adc SingleEndedADC, device SupplyReader, gain float64) (SupplyReader, error) {
	switch cfg.Battery.Source {
	case "fixed":
		return Fixed(cfg.Battery.FixedMillivolts), nil
	case "device":
		if device == nil {
			return nil, fmt.Errorf("battery source %q: probe does not report supply voltage", cfg.Battery.Source)
		}
		return device, nil
	case "adc":
		if adc == nil {
			return nil, fmt.Errorf("battery source %q: no ADC available", cfg.Battery.Source)
		}
		return NewDivider(adc, cfg.Battery.Channel, gain, cfg.Battery.R1, cfg.Battery.R2), nil
	default:
		return nil, fmt.Errorf("unknown battery source %q", cfg.Battery.Source)
	}
}

var (
	_ SupplyReader = Fixed(0)
	_ SupplyReader = (*Divider)(nil)
)
