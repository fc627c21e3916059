package sample

import (
	"time"

	"github.com/itohio/gomohm/pkg/config"
)

// FullScaleCodes is the positive code range of a 16-bit signed ADC.
const FullScaleCodes = 32768

// Differential is one acquisition of both Kelvin probe channel pairs.
type Differential struct {
	Timestamp time.Time
	Current   int16 // Code across the current sense resistor (A0-A1)
	Voltage   int16 // Code across the unknown resistor (A2-A3)
}

// Estimator converts a Differential into a resistance using fixed calibration constants.
type Estimator struct {
	gain          float64 // mV per LSB
	senseResistor float64 // ohms
	calConstant   float64
}

// GainMultiplier returns the millivolts per LSB for a PGA full scale range in volts.
// 4.096V at 16 bit gives 0.125mV.
func GainMultiplier(fullScale float64) float64 {
	return fullScale * 1000 / FullScaleCodes
}

// NewEstimator creates an estimator with explicit constants.
func NewEstimator(gainMultiplier, senseResistor, calConstant float64) *Estimator {
	return &Estimator{
		gain:          gainMultiplier,
		senseResistor: senseResistor,
		calConstant:   calConstant,
	}
}

// NewEstimatorFromConfig creates an estimator from the measurement configuration.
// A zero gain multiplier is derived from the ADC full scale range.
func NewEstimatorFromConfig(cfg *config.Config) *Estimator {
	gain := cfg.Measurement.GainMultiplier
	if gain == 0 {
		gain = GainMultiplier(cfg.ADC.FullScale)
	}
	return NewEstimator(gain, cfg.Measurement.SenseResistor, cfg.Measurement.CalConstant)
}

// Estimate returns the resistance of the unknown resistor in ohms.
//
// The current is not checked before dividing: zero current yields ±Inf or NaN
// and a reversed probe yields a negative value. Both are judged by the caller.
func (e *Estimator) Estimate(d Differential) float64 {
	// In millivolts
	vCurRes := float64(d.Current) * e.gain
	vSense := float64(d.Voltage) * e.gain

	current := (vCurRes / e.senseResistor) * e.calConstant
	return vSense / current
}

// Current returns the injected current in milliamps for a Differential.
func (e *Estimator) Current(d Differential) float64 {
	return (float64(d.Current) * e.gain / e.senseResistor) * e.calConstant
}
