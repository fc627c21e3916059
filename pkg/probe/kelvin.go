package probe

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/itohio/gomohm/pkg/ads1115"
	"github.com/itohio/gomohm/pkg/sample"
)

// ErrNotConnected is returned when acquiring from a closed device.
var ErrNotConnected = errors.New("not connected")

// Kelvin acquires from an ADC wired as a four-wire probe: the injected current
// flows through a sense resistor on A0-A1 and the unknown resistor is sensed on A2-A3.
type Kelvin struct {
	adc         ADC
	currentPair ads1115.Mux
	voltagePair ads1115.Mux
	mu          sync.RWMutex
	connected   bool
}

// NewKelvin creates a probe on the reference board channel pairs.
func NewKelvin(adc ADC) *Kelvin {
	return &Kelvin{
		adc:         adc,
		currentPair: ads1115.Mux0Minus1,
		voltagePair: ads1115.Mux2Minus3,
	}
}

// Connect marks the probe ready. The ADC is configured when it is created.
func (k *Kelvin) Connect() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.connected {
		return fmt.Errorf("already connected")
	}
	k.connected = true
	return nil
}

// Close marks the probe closed.
func (k *Kelvin) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.connected = false
	return nil
}

// IsConnected returns whether the probe is currently connected.
func (k *Kelvin) IsConnected() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.connected
}

// Acquire reads the sense resistor pair, then the unknown resistor pair.
func (k *Kelvin) Acquire() (sample.Differential, error) {
	if !k.IsConnected() {
		return sample.Differential{}, ErrNotConnected
	}

	// Measure the voltage across the current sense resistor
	cur, err := k.adc.ReadDifferential(k.currentPair)
	if err != nil {
		return sample.Differential{}, fmt.Errorf("failed to read current sense pair: %w", err)
	}

	// Measure the voltage across the unknown resistor
	volt, err := k.adc.ReadDifferential(k.voltagePair)
	if err != nil {
		return sample.Differential{}, fmt.Errorf("failed to read voltage sense pair: %w", err)
	}

	return sample.Differential{
		Timestamp: time.Now(),
		Current:   cur,
		Voltage:   volt,
	}, nil
}
