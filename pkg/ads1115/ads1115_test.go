package ads1115

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
)

func newTestDev(t *testing.T, bus *i2ctest.Playback, opts *Opts) *Dev {
	t.Helper()
	d, err := New(bus, opts)
	require.NoError(t, err)
	d.sleep = func(time.Duration) {}
	return d
}

func TestNew_Options(t *testing.T) {
	bus := &i2ctest.Playback{DontPanic: true}

	d, err := New(bus, nil)
	require.NoError(t, err)
	// GAIN_ONE | 32 SPS | single shot | comparator off
	assert.Equal(t, uint16(0x0343), d.config)
	assert.Equal(t, 125*physic.MicroVolt, d.LSB())
	assert.Equal(t, time.Second/32, d.ConversionPeriod())
	assert.Equal(t, 4*time.Second/32, d.timeout)

	_, err = New(bus, &Opts{FullScale: 5 * physic.Volt, DataRate: 32 * physic.Hertz})
	assert.Error(t, err)

	_, err = New(bus, &Opts{FullScale: 4096 * physic.MilliVolt, DataRate: 100 * physic.Hertz})
	assert.Error(t, err)

	require.NoError(t, bus.Close())
}

func TestFullScale(t *testing.T) {
	assert.Equal(t, 4096*physic.MilliVolt, FullScale(4.096))
	assert.Equal(t, 256*physic.MilliVolt, FullScale(0.256))
	assert.Equal(t, 6144*physic.MilliVolt, FullScale(6.144))
}

func TestReadDifferential(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			// A0-A1: start conversion, one busy poll, ready, result 800
			{Addr: 0x48, W: []byte{0x01, 0x83, 0x43}},
			{Addr: 0x48, W: []byte{0x01}, R: []byte{0x03, 0x43}},
			{Addr: 0x48, W: []byte{0x01}, R: []byte{0x83, 0x43}},
			{Addr: 0x48, W: []byte{0x00}, R: []byte{0x03, 0x20}},
			// A2-A3: ready on first poll, result -400
			{Addr: 0x48, W: []byte{0x01, 0xB3, 0x43}},
			{Addr: 0x48, W: []byte{0x01}, R: []byte{0xB3, 0x43}},
			{Addr: 0x48, W: []byte{0x00}, R: []byte{0xFE, 0x70}},
		},
		DontPanic: true,
	}
	d := newTestDev(t, bus, nil)

	v, err := d.ReadDifferential(Mux0Minus1)
	require.NoError(t, err)
	assert.Equal(t, int16(800), v)

	v, err = d.ReadDifferential(Mux2Minus3)
	require.NoError(t, err)
	assert.Equal(t, int16(-400), v)

	require.NoError(t, bus.Close())
}

func TestReadDifferential_RejectsSingleEnded(t *testing.T) {
	d := newTestDev(t, &i2ctest.Playback{DontPanic: true}, nil)

	_, err := d.ReadDifferential(Mux2)
	assert.Error(t, err)
}

func TestReadSingleEnded(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			// AIN2 vs GND
			{Addr: 0x49, W: []byte{0x01, 0xE3, 0x43}},
			{Addr: 0x49, W: []byte{0x01}, R: []byte{0xE3, 0x43}},
			{Addr: 0x49, W: []byte{0x00}, R: []byte{0x33, 0x90}},
		},
		DontPanic: true,
	}
	opts := DefaultOptions()
	opts.Address = 0x49
	d := newTestDev(t, bus, opts)

	v, err := d.ReadSingleEnded(2)
	require.NoError(t, err)
	assert.Equal(t, int16(13200), v)

	_, err = d.ReadSingleEnded(4)
	assert.Error(t, err)

	require.NoError(t, bus.Close())
}

func TestRead_ConversionTimeout(t *testing.T) {
	opts := &Opts{
		FullScale:         4096 * physic.MilliVolt,
		DataRate:          860 * physic.Hertz,
		ConversionTimeout: 2 * time.Millisecond,
	}
	busy := i2ctest.IO{Addr: 0x48, W: []byte{0x01}, R: []byte{0x03, 0xE3}}
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x48, W: []byte{0x01, 0x83, 0xE3}},
			busy, busy, busy, busy,
		},
		DontPanic: true,
	}
	d := newTestDev(t, bus, opts)

	_, err := d.ReadDifferential(Mux0Minus1)
	assert.True(t, errors.Is(err, ErrConversionTimeout))

	require.NoError(t, bus.Close())
}

func TestRead_BusError(t *testing.T) {
	// Playback with no ops fails every transaction.
	d := newTestDev(t, &i2ctest.Playback{DontPanic: true}, nil)

	_, err := d.ReadDifferential(Mux0Minus1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ads1115@0x48")
}
