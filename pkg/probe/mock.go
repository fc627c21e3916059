package probe

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/itohio/gomohm/pkg/config"
	"github.com/itohio/gomohm/pkg/sample"
)

// Mock simulates a Kelvin probe for testing and development.
type Mock struct {
	cfg config.MockConfig

	mu        sync.RWMutex
	connected bool
	rng       *rand.Rand
	sleep     func(time.Duration)

	startTime time.Time
	now       func() time.Time
}

// NewMock creates a new mocked probe instance. The configuration is copied,
// later edits to cfg do not reach a running mock.
func NewMock(cfg *config.MockConfig) *Mock {
	if cfg == nil {
		cfg = &config.MockConfig{
			CurrentCode: 800,
			VoltageCode: 400,
			NoiseCodes:  2,
			SpikeRate:   0.1,
			SpikeCodes:  300,
			SupplyMV:    3300,
			Conversion:  31 * time.Millisecond,
		}
	}

	return &Mock{
		cfg:   *cfg,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep: time.Sleep,
		now:   time.Now,
	}
}

// Connect simulates connecting to the probe.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}

	m.connected = true
	m.startTime = m.now()
	return nil
}

// Close stops the mocked probe.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

// IsConnected returns whether the probe is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Acquire simulates two conversions. Each channel gets uniform noise and,
// with probability SpikeRate, an outlier the median filter has to reject.
func (m *Mock) Acquire() (sample.Differential, error) {
	if !m.IsConnected() {
		return sample.Differential{}, ErrNotConnected
	}

	m.sleep(m.cfg.Conversion)
	cur := m.code(m.cfg.CurrentCode)
	m.sleep(m.cfg.Conversion)
	volt := m.code(m.cfg.VoltageCode)

	return sample.Differential{
		Timestamp: m.now(),
		Current:   cur,
		Voltage:   volt,
	}, nil
}

// SupplyMillivolts simulates a battery that droops over time.
func (m *Mock) SupplyMillivolts() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return 0, ErrNotConnected
	}

	minutes := m.now().Sub(m.startTime).Minutes()
	mv := m.cfg.SupplyMV - int(minutes*float64(m.cfg.SupplyDroopMV))
	if mv < 0 {
		mv = 0
	}
	return mv, nil
}

// code returns nominal plus noise, clamped to the int16 code range.
func (m *Mock) code(nominal int16) int16 {
	m.mu.Lock()
	noise := (m.rng.Float64()*2 - 1) * m.cfg.NoiseCodes
	spike := m.cfg.SpikeRate > 0 && m.rng.Float64() < m.cfg.SpikeRate
	sign := 1.0
	if m.rng.Intn(2) == 0 {
		sign = -1.0
	}
	m.mu.Unlock()

	v := float64(nominal) + noise
	if spike {
		v += sign * float64(m.cfg.SpikeCodes)
	}
	return clampCode(v)
}

func clampCode(v float64) int16 {
	v = math.Round(v)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
