// Package ads1115 drives a Texas Instruments ADS1115 16-bit I²C ADC in
// single-shot mode.
//
// Every read programs the input multiplexer, starts one conversion, waits one
// conversion period and then polls the OS bit until the result is ready.
//
// Datasheet: https://www.ti.com/lit/ds/symlink/ads1115.pdf
package ads1115

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// ErrConversionTimeout is returned when the device never reports a finished conversion.
var ErrConversionTimeout = errors.New("conversion timeout")

// Opts holds the configuration set once at startup.
type Opts struct {
	Address uint16
	// FullScale is the PGA range. 4.096V gives 0.125mV per LSB.
	FullScale physic.ElectricPotential
	// DataRate trades noise for speed. 32 SPS takes ~31ms per conversion.
	DataRate physic.Frequency
	// ConversionTimeout bounds the wait for one conversion. Zero means four periods.
	ConversionTimeout time.Duration
}

// DefaultOptions returns the reference board settings.
func DefaultOptions() *Opts {
	return &Opts{
		Address:   DefaultAddress,
		FullScale: 4096 * physic.MilliVolt,
		DataRate:  32 * physic.Hertz,
	}
}

// FullScale converts a range in volts, as found in configuration files, into
// an exact PGA setting.
func FullScale(volts float64) physic.ElectricPotential {
	return physic.ElectricPotential(math.Round(volts*1000)) * physic.MilliVolt
}

// New configures an ADS1115 on bus. No bus traffic happens until the first read.
func New(bus i2c.Bus, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	addr := opts.Address
	if addr == 0 {
		addr = DefaultAddress
	}

	d := &Dev{
		c:     &i2c.Dev{Bus: bus, Addr: addr},
		opts:  *opts,
		name:  fmt.Sprintf("ads1115@%#x", addr),
		sleep: time.Sleep,
	}

	gainFound := false
	for _, g := range gains {
		if g.fullScale == opts.FullScale {
			d.config |= g.bits
			gainFound = true
			break
		}
	}
	if !gainFound {
		return nil, d.wrap(fmt.Errorf("unsupported full scale range %s", opts.FullScale))
	}

	rateFound := false
	for _, r := range rates {
		if r.rate == opts.DataRate {
			d.config |= r.bits
			d.period = r.rate.Period()
			rateFound = true
			break
		}
	}
	if !rateFound {
		return nil, d.wrap(fmt.Errorf("unsupported data rate %s", opts.DataRate))
	}

	d.config |= configModeSingle | configCompQueOff

	d.timeout = opts.ConversionTimeout
	if d.timeout == 0 {
		d.timeout = 4 * d.period
	}
	d.poll = d.period / 8
	if d.poll < time.Millisecond {
		d.poll = time.Millisecond
	}

	return d, nil
}

// Dev is a handle to an ADS1115.
type Dev struct {
	c       conn.Conn
	opts    Opts
	name    string
	config  uint16 // PGA, data rate, mode and comparator bits
	period  time.Duration
	timeout time.Duration
	poll    time.Duration
	sleep   func(time.Duration)

	mu sync.Mutex
}

func (d *Dev) String() string {
	return fmt.Sprintf("%s{%s}", d.name, d.c)
}

// Halt implements conn.Resource. Single-shot mode powers down by itself.
func (d *Dev) Halt() error {
	return nil
}

// LSB returns the voltage of one code at the configured full scale range.
func (d *Dev) LSB() physic.ElectricPotential {
	return d.opts.FullScale / 32768
}

// ConversionPeriod returns the time one conversion takes.
func (d *Dev) ConversionPeriod() time.Duration {
	return d.period
}

// ReadDifferential converts one of the differential input pairs.
func (d *Dev) ReadDifferential(m Mux) (int16, error) {
	if m > Mux2Minus3 {
		return 0, d.wrap(fmt.Errorf("mux %#04x is not a differential pair", uint16(m)))
	}
	return d.Read(m)
}

// ReadSingleEnded converts input channel 0..3 against ground.
func (d *Dev) ReadSingleEnded(channel int) (int16, error) {
	if channel < 0 || channel > 3 {
		return 0, d.wrap(fmt.Errorf("invalid channel %d", channel))
	}
	return d.Read(Mux0 + Mux(channel)<<12)
}

// Read runs one single-shot conversion on the selected input.
func (d *Dev) Read(m Mux) (int16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cfg := d.config | configOS | (uint16(m) & configMuxMask)
	if err := d.writeReg(configReg, cfg); err != nil {
		return 0, err
	}

	d.sleep(d.period)

	attempts := int(d.timeout/d.poll) + 1
	for i := 0; ; i++ {
		status, err := d.readReg(configReg)
		if err != nil {
			return 0, err
		}
		if status&configOS != 0 {
			break
		}
		if i >= attempts {
			return 0, d.wrap(ErrConversionTimeout)
		}
		d.sleep(d.poll)
	}

	v, err := d.readReg(conversionReg)
	if err != nil {
		return 0, err
	}
	return int16(v), nil
}

func (d *Dev) writeReg(reg uint8, v uint16) error {
	if err := d.c.Tx([]byte{reg, byte(v >> 8), byte(v)}, nil); err != nil {
		return d.wrap(err)
	}
	return nil
}

func (d *Dev) readReg(reg uint8) (uint16, error) {
	var b [2]byte
	if err := d.c.Tx([]byte{reg}, b[:]); err != nil {
		return 0, d.wrap(err)
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

func (d *Dev) wrap(err error) error {
	return fmt.Errorf("%s: %w", strings.ToLower(d.name), err)
}

var _ conn.Resource = &Dev{}
