package meter

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/itohio/gomohm/pkg/battery"
	"github.com/itohio/gomohm/pkg/config"
	"github.com/itohio/gomohm/pkg/filter"
	"github.com/itohio/gomohm/pkg/probe"
	"github.com/itohio/gomohm/pkg/sample"
)

var _ Milliohmmeter = (*Meter)(nil)

// Reading is the outcome of one polling cycle.
type Reading struct {
	Time       time.Time
	Resistance float64   // Median of Samples (ohms)
	Samples    []float64 // Individual estimates in acquisition order
	Current    float64   // Median injected current (mA), NaN on a device fault
	Battery    battery.Status
	Err        error // Device fault; Resistance is NaN
	BatteryErr error // Supply could not be read; Battery is zero
}

// InRange reports whether Resistance is a displayable value. Negative results
// mean an open circuit or a reversed probe; non-finite results come from a
// zero sense current.
func (r Reading) InRange() bool {
	return r.Err == nil && r.Resistance >= 0 && !math.IsInf(r.Resistance, 0) && !math.IsNaN(r.Resistance)
}

// Renderer presents a reading, usually on a character display.
type Renderer interface {
	Render(r Reading) error
}

// Milliohmmeter runs polling cycles and reports readings.
type Milliohmmeter interface {
	Measure() Reading
	Run(ctx context.Context) error
	Last() Reading
	OnUpdate(func(r Reading))
}

// Meter implements Milliohmmeter. One cycle acquires N samples, estimates
// each, takes the median and checks the battery. Cycles never overlap.
type Meter struct {
	source    probe.Source
	estimator *sample.Estimator
	monitor   *battery.Monitor
	renderer  Renderer

	samples     int
	interval    time.Duration
	haltOnFault bool

	mu   sync.RWMutex
	last Reading

	callbacks []func(r Reading)
	cbMu      sync.RWMutex
}

// New creates a meter. renderer may be nil when nothing is attached.
func New(cfg *config.Config, source probe.Source, monitor *battery.Monitor, renderer Renderer) *Meter {
	return &Meter{
		source:      source,
		estimator:   sample.NewEstimatorFromConfig(cfg),
		monitor:     monitor,
		renderer:    renderer,
		samples:     cfg.Measurement.Samples,
		interval:    cfg.Measurement.Interval,
		haltOnFault: cfg.Measurement.HaltOnFault,
		callbacks:   make([]func(r Reading), 0),
	}
}

// Measure runs one polling cycle. A failed acquisition abandons the batch;
// the battery is checked either way.
func (m *Meter) Measure() Reading {
	r := Reading{
		Samples: make([]float64, 0, m.samples),
	}
	currents := make([]float64, 0, m.samples)

	for i := 0; i < m.samples; i++ {
		d, err := m.source.Acquire()
		if err != nil {
			r.Err = fmt.Errorf("sample %d of %d: %w", i+1, m.samples, err)
			break
		}
		r.Samples = append(r.Samples, m.estimator.Estimate(d))
		currents = append(currents, m.estimator.Current(d))
	}

	if r.Err != nil {
		r.Resistance = math.NaN()
		r.Current = math.NaN()
	} else {
		r.Resistance = filter.Median(r.Samples)
		r.Current = filter.Median(currents)
	}

	r.Battery, r.BatteryErr = m.monitor.Check()
	r.Time = time.Now()
	return r
}

// Run measures, renders and notifies forever, sleeping the configured
// interval between cycles. It returns nil when ctx is cancelled, or the
// device fault when halt_on_fault is set.
func (m *Meter) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		r := m.Measure()
		m.publish(r)

		if r.Err != nil {
			log.Printf("Device fault: %v", r.Err)
			if m.haltOnFault {
				return r.Err
			}
		}
		if r.BatteryErr != nil {
			log.Printf("Battery check failed: %v", r.BatteryErr)
		}

		timer.Reset(m.interval)
	}
}

// publish stores, renders and broadcasts a reading.
func (m *Meter) publish(r Reading) {
	m.mu.Lock()
	m.last = r
	m.mu.Unlock()

	if m.renderer != nil {
		if err := m.renderer.Render(r); err != nil {
			log.Printf("Failed to render reading: %v", err)
		}
	}

	m.notifyCallbacks(r)
}

// Last returns the latest published reading.
func (m *Meter) Last() Reading {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// OnUpdate registers a callback invoked after every cycle.
// The callback should return quickly; it delays the next cycle.
func (m *Meter) OnUpdate(callback func(r Reading)) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

// notifyCallbacks invokes all registered callbacks without holding locks.
func (m *Meter) notifyCallbacks(r Reading) {
	m.cbMu.RLock()
	callbacks := make([]func(r Reading), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.cbMu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb(r)
		}
	}
}
