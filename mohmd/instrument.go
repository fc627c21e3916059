package main

import (
	"errors"
	"fmt"
	"log"

	"github.com/itohio/gomohm/pkg/ads1115"
	"github.com/itohio/gomohm/pkg/battery"
	"github.com/itohio/gomohm/pkg/config"
	"github.com/itohio/gomohm/pkg/lcd"
	"github.com/itohio/gomohm/pkg/probe"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// Probe sources selectable on the command line.
const (
	sourceKelvin = "kelvin"
	sourceSerial = "serial"
	sourceMock   = "mock"
)

// instrument holds the hardware of one running meter.
type instrument struct {
	probe   probe.Device
	supply  battery.SupplyReader
	display *lcd.Dev
	bus     i2c.BusCloser
}

// openInstrument sets up the probe, the supply reader and the LCD. The I2C
// bus is only required for the Kelvin ADC; with the serial or mocked probe a
// missing bus disables the LCD and the supply divider.
func openInstrument(cfg *config.Config, source string) (*instrument, error) {
	inst := &instrument{}

	bus, err := openBus(cfg.I2C.Bus)
	if err != nil {
		if source == sourceKelvin {
			return nil, err
		}
		log.Printf("I2C unavailable, running without LCD: %v", err)
	}
	inst.bus = bus

	var device battery.SupplyReader
	switch source {
	case sourceKelvin:
		adc, err := ads1115.New(bus, adcOptions(cfg, cfg.ADC.Address))
		if err != nil {
			inst.Close()
			return nil, fmt.Errorf("failed to configure ADC: %w", err)
		}
		log.Printf("ADS1115 at 0x%02x: %s per code, %s per conversion", cfg.ADC.Address, adc.LSB(), adc.ConversionPeriod())
		inst.probe = probe.NewKelvin(adc)
	case sourceSerial:
		s := probe.NewSerial(cfg.Serial.Port, cfg.Serial.BaudRate, cfg.Serial.ReadTimeout)
		inst.probe = s
		device = s
	case sourceMock:
		m := probe.NewMock(&cfg.Mock)
		inst.probe = m
		device = m
	default:
		inst.Close()
		return nil, fmt.Errorf("unknown probe source %q", source)
	}

	inst.supply, err = openSupply(cfg, bus, device)
	if err != nil {
		inst.Close()
		return nil, err
	}

	if cfg.Display.Enabled && bus != nil {
		d, err := lcd.New(bus, &lcd.Opts{
			Address: cfg.Display.Address,
			Cols:    cfg.Display.Cols,
			Rows:    cfg.Display.Rows,
		})
		if err != nil {
			inst.Close()
			return nil, fmt.Errorf("failed to initialize LCD: %w", err)
		}
		inst.display = d
	}

	if err := inst.probe.Connect(); err != nil {
		inst.Close()
		return nil, fmt.Errorf("failed to connect probe: %w", err)
	}
	return inst, nil
}

func openBus(name string) (i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize host drivers: %w", err)
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %q: %w", name, err)
	}
	return bus, nil
}

// openSupply builds the battery reader. The divider lives on its own ADS1115.
func openSupply(cfg *config.Config, bus i2c.Bus, device battery.SupplyReader) (battery.SupplyReader, error) {
	var adc battery.SingleEndedADC
	var gain float64
	if cfg.Battery.Source == "adc" {
		if bus == nil {
			if device == nil {
				return nil, errors.New("battery source adc needs the I2C bus")
			}
			log.Printf("Battery divider unavailable, using the probe supply reading")
			return device, nil
		}
		d, err := ads1115.New(bus, adcOptions(cfg, cfg.Battery.ADCAddress))
		if err != nil {
			return nil, fmt.Errorf("failed to configure battery ADC: %w", err)
		}
		adc = d
		gain = millivoltsPerCode(d)
	}
	return battery.NewReader(cfg, adc, device, gain)
}

// millivoltsPerCode converts the ADC resolution to the divider gain.
func millivoltsPerCode(d *ads1115.Dev) float64 {
	return float64(d.LSB()) / float64(physic.MilliVolt)
}

func adcOptions(cfg *config.Config, addr uint16) *ads1115.Opts {
	return &ads1115.Opts{
		Address:           addr,
		FullScale:         ads1115.FullScale(cfg.ADC.FullScale),
		DataRate:          physic.Frequency(cfg.ADC.DataRate) * physic.Hertz,
		ConversionTimeout: cfg.ADC.ConversionTimeout,
	}
}

// Close releases the probe, blanks the LCD and closes the bus.
func (i *instrument) Close() {
	if i.probe != nil {
		if err := i.probe.Close(); err != nil {
			log.Printf("Error closing probe: %v", err)
		}
	}
	if i.display != nil {
		if err := i.display.Halt(); err != nil {
			log.Printf("Error halting LCD: %v", err)
		}
	}
	if i.bus != nil {
		if err := i.bus.Close(); err != nil {
			log.Printf("Error closing I2C bus: %v", err)
		}
	}
}
