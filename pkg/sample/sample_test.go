package sample

import (
	"math"
	"testing"

	"github.com/itohio/gomohm/pkg/config"
	"github.com/stretchr/testify/assert"
)

func TestGainMultiplier(t *testing.T) {
	tests := []struct {
		fullScale float64
		want      float64
	}{
		{6.144, 0.1875},
		{4.096, 0.125},
		{2.048, 0.0625},
		{1.024, 0.03125},
		{0.512, 0.015625},
		{0.256, 0.0078125},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, GainMultiplier(tt.fullScale), 1e-12, "full scale %g", tt.fullScale)
	}
}

func TestEstimate_ReferenceBoard(t *testing.T) {
	e := NewEstimator(0.125, 10, 1.0)
	d := Differential{Current: 800, Voltage: 400}

	// 800*0.125/10 = 10mA, 400*0.125 = 50mV, 50/10 = 5 ohms
	assert.InDelta(t, 10.0, e.Current(d), 1e-12)
	assert.InDelta(t, 5.0, e.Estimate(d), 1e-12)
}

func TestEstimate_Deterministic(t *testing.T) {
	e := NewEstimator(0.125, 10, 0.97)
	d := Differential{Current: 1234, Voltage: -56}

	first := e.Estimate(d)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, e.Estimate(d))
	}
}

func TestEstimate_CalConstant(t *testing.T) {
	d := Differential{Current: 800, Voltage: 400}

	nominal := NewEstimator(0.125, 10, 1.0).Estimate(d)
	calibrated := NewEstimator(0.125, 10, 2.0).Estimate(d)

	assert.InDelta(t, nominal/2, calibrated, 1e-12)
}

func TestEstimate_NegativeVoltage(t *testing.T) {
	e := NewEstimator(0.125, 10, 1.0)

	r := e.Estimate(Differential{Current: 800, Voltage: -400})
	assert.InDelta(t, -5.0, r, 1e-12)
}

func TestEstimate_ZeroCurrent(t *testing.T) {
	e := NewEstimator(0.125, 10, 1.0)

	assert.NotPanics(t, func() {
		assert.True(t, math.IsInf(e.Estimate(Differential{Current: 0, Voltage: 400}), 1))
		assert.True(t, math.IsInf(e.Estimate(Differential{Current: 0, Voltage: -400}), -1))
		assert.True(t, math.IsNaN(e.Estimate(Differential{Current: 0, Voltage: 0})))
	})
}

func TestNewEstimatorFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Measurement.GainMultiplier = 0
	cfg.ADC.FullScale = 2.048

	e := NewEstimatorFromConfig(cfg)

	// 800*0.0625/10 = 5mA, 400*0.0625 = 25mV
	assert.InDelta(t, 5.0, e.Current(Differential{Current: 800, Voltage: 400}), 1e-12)
	assert.InDelta(t, 5.0, e.Estimate(Differential{Current: 800, Voltage: 400}), 1e-12)
}
