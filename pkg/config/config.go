package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the instrument configuration.
type Config struct {
	I2C         I2CConfig         `yaml:"i2c"`
	ADC         ADCConfig         `yaml:"adc"`
	Display     DisplayConfig     `yaml:"display"`
	Serial      SerialConfig      `yaml:"serial"`
	Measurement MeasurementConfig `yaml:"measurement"`
	Battery     BatteryConfig     `yaml:"battery"`
	Mock        MockConfig        `yaml:"mock"`
}

// I2CConfig selects the host I2C bus.
type I2CConfig struct {
	Bus string `yaml:"bus"` // periph bus name, empty for the first bus
}

// ADCConfig contains ADS1115 configuration.
type ADCConfig struct {
	Address           uint16        `yaml:"address"`
	FullScale         float64       `yaml:"full_scale"` // PGA full scale range (V)
	DataRate          int           `yaml:"data_rate"`  // Samples per second
	ConversionTimeout time.Duration `yaml:"conversion_timeout"`
}

// DisplayConfig contains character LCD configuration.
type DisplayConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address uint16 `yaml:"address"`
	Cols    int    `yaml:"cols"`
	Rows    int    `yaml:"rows"`
}

// SerialConfig contains serial front-end configuration.
type SerialConfig struct {
	Port        string        `yaml:"port"`
	BaudRate    int           `yaml:"baud_rate"`
	ReadTimeout time.Duration `yaml:"read_timeout"` // Max wait for one acquisition line
}

// MeasurementConfig contains the calibration constants of the resistance estimator.
type MeasurementConfig struct {
	SenseResistor  float64       `yaml:"sense_resistor"`  // Known sense resistor (ohms)
	CalConstant    float64       `yaml:"cal_constant"`    // Calibrate against a known resistor
	GainMultiplier float64       `yaml:"gain_multiplier"` // mV per LSB, 0 = derive from adc.full_scale
	Samples        int           `yaml:"samples"`         // Readings per median
	Interval       time.Duration `yaml:"interval"`        // Delay between polling cycles
	HaltOnFault    bool          `yaml:"halt_on_fault"`
}

// BatteryConfig contains supply monitoring configuration.
type BatteryConfig struct {
	LowLimit        float64 `yaml:"low_limit"`   // Volts, below this "Low Battery!" is shown
	Source          string  `yaml:"source"`      // "adc", "fixed" or "device"
	ADCAddress      uint16  `yaml:"adc_address"` // ADS1115 holding the divider, separate from the Kelvin ADC
	Channel         int     `yaml:"channel"`     // ADS1115 single-ended channel for "adc"
	R1              float64 `yaml:"r1"`
	R2              float64 `yaml:"r2"`
	FixedMillivolts int     `yaml:"fixed_millivolts"`
}

// MockConfig contains mock probe configuration.
type MockConfig struct {
	CurrentCode   int16         `yaml:"current_code"`    // Code across the sense resistor
	VoltageCode   int16         `yaml:"voltage_code"`    // Code across the unknown resistor
	NoiseCodes    float64       `yaml:"noise_codes"`     // Peak noise in LSB
	SpikeRate     float64       `yaml:"spike_rate"`      // Probability of an outlier per acquisition
	SpikeCodes    int16         `yaml:"spike_codes"`     // Outlier amplitude in LSB
	SupplyMV      int           `yaml:"supply_mv"`       // Simulated supply (mV)
	SupplyDroopMV int           `yaml:"supply_droop_mv"` // Supply drop per minute of operation
	Conversion    time.Duration `yaml:"conversion"`      // Simulated conversion time per channel
}

// Default returns a default configuration matching the reference board.
func Default() *Config {
	return &Config{
		I2C: I2CConfig{
			Bus: "",
		},
		ADC: ADCConfig{
			Address:           0x48,
			FullScale:         4.096, // GAIN_ONE, 1 bit = 0.125mV
			DataRate:          32,    // Slow rate to minimize noise
			ConversionTimeout: 200 * time.Millisecond,
		},
		Display: DisplayConfig{
			Enabled: true,
			Address: 0x27,
			Cols:    16,
			Rows:    2,
		},
		Serial: SerialConfig{
			Port:        "/dev/ttyACM0",
			BaudRate:    115200,
			ReadTimeout: time.Second,
		},
		Measurement: MeasurementConfig{
			SenseResistor:  10.0,
			CalConstant:    1.0,
			GainMultiplier: 0.125,
			Samples:        10,
			Interval:       time.Second,
			HaltOnFault:    false,
		},
		Battery: BatteryConfig{
			LowLimit:        3.0,
			Source:          "adc",
			ADCAddress:      0x49,
			Channel:         2,
			R1:              10000,
			R2:              10000,
			FixedMillivolts: 3300,
		},
		Mock: MockConfig{
			CurrentCode:   800,
			VoltageCode:   400,
			NoiseCodes:    2,
			SpikeRate:     0.1,
			SpikeCodes:    300,
			SupplyMV:      3300,
			SupplyDroopMV: 10,
			Conversion:    31 * time.Millisecond, // 32 SPS
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate rejects values the measurement chain cannot run with.
func (c *Config) Validate() error {
	if c.Measurement.Samples <= 0 {
		return fmt.Errorf("measurement.samples must be positive, got %d", c.Measurement.Samples)
	}
	if c.Measurement.SenseResistor <= 0 {
		return fmt.Errorf("measurement.sense_resistor must be positive, got %g", c.Measurement.SenseResistor)
	}
	switch c.Battery.Source {
	case "adc", "fixed", "device":
	default:
		return fmt.Errorf("battery.source must be adc, fixed or device, got %q", c.Battery.Source)
	}
	if c.Battery.Channel < 0 || c.Battery.Channel > 3 {
		return fmt.Errorf("battery.channel must be 0..3, got %d", c.Battery.Channel)
	}
	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.ADC.Address == 0 {
		c.ADC.Address = def.ADC.Address
	}
	if c.ADC.FullScale == 0 {
		c.ADC.FullScale = def.ADC.FullScale
	}
	if c.ADC.DataRate == 0 {
		c.ADC.DataRate = def.ADC.DataRate
	}
	if c.ADC.ConversionTimeout == 0 {
		c.ADC.ConversionTimeout = def.ADC.ConversionTimeout
	}

	if c.Display.Address == 0 {
		c.Display.Address = def.Display.Address
	}
	if c.Display.Cols == 0 {
		c.Display.Cols = def.Display.Cols
	}
	if c.Display.Rows == 0 {
		c.Display.Rows = def.Display.Rows
	}

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}
	if c.Serial.ReadTimeout == 0 {
		c.Serial.ReadTimeout = def.Serial.ReadTimeout
	}

	if c.Measurement.SenseResistor == 0 {
		c.Measurement.SenseResistor = def.Measurement.SenseResistor
	}
	if c.Measurement.CalConstant == 0 {
		c.Measurement.CalConstant = def.Measurement.CalConstant
	}
	if c.Measurement.Samples == 0 {
		c.Measurement.Samples = def.Measurement.Samples
	}
	if c.Measurement.Interval == 0 {
		c.Measurement.Interval = def.Measurement.Interval
	}

	if c.Battery.LowLimit == 0 {
		c.Battery.LowLimit = def.Battery.LowLimit
	}
	if c.Battery.Source == "" {
		c.Battery.Source = def.Battery.Source
	}
	if c.Battery.ADCAddress == 0 {
		c.Battery.ADCAddress = def.Battery.ADCAddress
	}
	if c.Battery.R1 == 0 {
		c.Battery.R1 = def.Battery.R1
	}
	if c.Battery.R2 == 0 {
		c.Battery.R2 = def.Battery.R2
	}
	if c.Battery.FixedMillivolts == 0 {
		c.Battery.FixedMillivolts = def.Battery.FixedMillivolts
	}

	if c.Mock.SupplyMV == 0 {
		c.Mock.SupplyMV = def.Mock.SupplyMV
	}
	if c.Mock.Conversion == 0 {
		c.Mock.Conversion = def.Mock.Conversion
	}
}
