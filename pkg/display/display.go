// Package display lays out meter readings on a 16x2 character display.
//
//	Row 0: "Res=5.000   ohms"  or "Res Out Of Range"  or "Device Fault"
//	Row 1: "  Low Battery!"    (only when the supply is low)
package display

import (
	"fmt"
	"strconv"

	"github.com/itohio/gomohm/pkg/meter"
	"github.com/itohio/gomohm/pkg/probe"
)

const (
	// MinCols and MinRows are the smallest geometry the layout fits.
	MinCols = 16
	MinRows = 2

	valueCol = 4
	unitCol  = 12
	// valueWidth is the space between the label and the unit.
	valueWidth = unitCol - valueCol

	labelText      = "Res="
	unitText       = "ohms"
	outOfRangeText = "Res Out Of Range"
	faultText      = "Device Fault"
	lowBatteryText = "  Low Battery!"
)

var _ meter.Renderer = (*Screen)(nil)

// Screen renders readings onto a character display.
type Screen struct {
	d probe.Display
}

// New creates a screen on d.
func New(d probe.Display) *Screen {
	return &Screen{d: d}
}

// Render clears the display and draws one reading.
func (s *Screen) Render(r meter.Reading) error {
	if err := s.d.Clear(); err != nil {
		return fmt.Errorf("failed to clear display: %w", err)
	}

	if err := s.resistance(r); err != nil {
		return err
	}

	if r.Battery.Low {
		if err := s.writeAt(0, 1, lowBatteryText); err != nil {
			return err
		}
	}
	return nil
}

func (s *Screen) resistance(r meter.Reading) error {
	if r.Err != nil {
		return s.writeAt(0, 0, faultText)
	}

	value, ok := FormatResistance(r.Resistance)
	if !r.InRange() || !ok {
		return s.writeAt(0, 0, outOfRangeText)
	}

	if err := s.writeAt(0, 0, labelText); err != nil {
		return err
	}
	if err := s.writeAt(valueCol, 0, value); err != nil {
		return err
	}
	return s.writeAt(unitCol, 0, unitText)
}

func (s *Screen) writeAt(col, row int, text string) error {
	if err := s.d.SetCursor(col, row); err != nil {
		return fmt.Errorf("failed to set cursor to %d,%d: %w", col, row, err)
	}
	if err := s.d.Write(text); err != nil {
		return fmt.Errorf("failed to write %q: %w", text, err)
	}
	return nil
}

// FormatResistance renders ohms with three decimals, dropping decimals until
// the value fits between the label and the unit. It reports false when even
// the integer part does not fit.
func FormatResistance(ohms float64) (string, bool) {
	for prec := 3; prec >= 0; prec-- {
		s := strconv.FormatFloat(ohms, 'f', prec, 64)
		if len(s) <= valueWidth {
			return s, true
		}
	}
	return "", false
}
