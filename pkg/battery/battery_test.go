package battery

import (
	"errors"
	"testing"

	"github.com/itohio/gomohm/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSupply struct {
	mv  int
	err error
}

func (f *fakeSupply) SupplyMillivolts() (int, error) {
	return f.mv, f.err
}

type fakeADC struct {
	channel int
	raw     int16
	err     error
}

func (f *fakeADC) ReadSingleEnded(channel int) (int16, error) {
	f.channel = channel
	return f.raw, f.err
}

func TestMonitor_Check(t *testing.T) {
	tests := []struct {
		name      string
		mv        int
		wantVolts float64
		wantLow   bool
	}{
		{name: "low", mv: 2900, wantVolts: 2.9, wantLow: true},
		{name: "healthy", mv: 3300, wantVolts: 3.3, wantLow: false},
		{name: "exactly at limit is not low", mv: 3000, wantVolts: 3.0, wantLow: false},
		{name: "one millivolt below", mv: 2999, wantVolts: 2.999, wantLow: true},
		{name: "dead", mv: 0, wantVolts: 0, wantLow: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(&fakeSupply{mv: tt.mv}, 3.0)
			st, err := m.Check()
			require.NoError(t, err)
			assert.InDelta(t, tt.wantVolts, st.Volts, 1e-9)
			assert.Equal(t, tt.wantLow, st.Low)
		})
	}
}

func TestMonitor_NoHysteresis(t *testing.T) {
	supply := &fakeSupply{}
	m := NewMonitor(supply, 3.0)

	for i, mv := range []int{2990, 3010, 2990, 3010} {
		supply.mv = mv
		st, err := m.Check()
		require.NoError(t, err)
		assert.Equal(t, mv < 3000, st.Low, "check %d", i)
	}
}

func TestMonitor_ReadError(t *testing.T) {
	boom := errors.New("bus stuck")
	m := NewMonitor(&fakeSupply{err: boom}, 3.0)

	_, err := m.Check()
	assert.ErrorIs(t, err, boom)
}

func TestDivider(t *testing.T) {
	adc := &fakeADC{raw: 13200} // 13200 * 0.125 = 1650mV at the tap
	d := NewDivider(adc, 2, 0.125, 10000, 10000)

	mv, err := d.SupplyMillivolts()
	require.NoError(t, err)
	assert.Equal(t, 3300, mv)
	assert.Equal(t, 2, adc.channel)
}

func TestDivider_NegativeCodeRounds(t *testing.T) {
	// -3 * 0.125 = -0.375mV at the tap, -0.75mV at the battery
	d := NewDivider(&fakeADC{raw: -3}, 2, 0.125, 10000, 10000)

	mv, err := d.SupplyMillivolts()
	require.NoError(t, err)
	assert.Equal(t, -1, mv)
}

func TestNewReader(t *testing.T) {
	cfg := config.Default()

	cfg.Battery.Source = "fixed"
	r, err := NewReader(cfg, nil, nil, 0.125)
	require.NoError(t, err)
	mv, err := r.SupplyMillivolts()
	require.NoError(t, err)
	assert.Equal(t, 3300, mv)

	cfg.Battery.Source = "device"
	_, err = NewReader(cfg, nil, nil, 0.125)
	assert.Error(t, err)
	dev := &fakeSupply{mv: 2800}
	r, err = NewReader(cfg, nil, dev, 0.125)
	require.NoError(t, err)
	assert.Same(t, dev, r)

	cfg.Battery.Source = "adc"
	_, err = NewReader(cfg, nil, nil, 0.125)
	assert.Error(t, err)
	r, err = NewReader(cfg, &fakeADC{raw: 13200}, nil, 0.125)
	require.NoError(t, err)
	assert.IsType(t, &Divider{}, r)
}
