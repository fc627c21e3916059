package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, uint16(0x48), cfg.ADC.Address)
	assert.Equal(t, 4.096, cfg.ADC.FullScale)
	assert.Equal(t, 32, cfg.ADC.DataRate)
	assert.Equal(t, uint16(0x27), cfg.Display.Address)
	assert.Equal(t, 16, cfg.Display.Cols)
	assert.Equal(t, 2, cfg.Display.Rows)
	assert.Equal(t, 10.0, cfg.Measurement.SenseResistor)
	assert.Equal(t, 1.0, cfg.Measurement.CalConstant)
	assert.Equal(t, 0.125, cfg.Measurement.GainMultiplier)
	assert.Equal(t, 10, cfg.Measurement.Samples)
	assert.Equal(t, time.Second, cfg.Measurement.Interval)
	assert.Equal(t, 3.0, cfg.Battery.LowLimit)
	assert.Equal(t, uint16(0x49), cfg.Battery.ADCAddress)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, 10, cfg.Measurement.Samples)
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
i2c:
  bus: "/dev/i2c-1"

adc:
  address: 0x49
  full_scale: 2.048
  data_rate: 128
  conversion_timeout: 50ms

display:
  enabled: false

measurement:
  sense_resistor: 1.0
  cal_constant: 0.98
  samples: 7
  interval: 500ms
  halt_on_fault: true

battery:
  low_limit: 3.3
  source: fixed
  fixed_millivolts: 3700
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, "/dev/i2c-1", cfg.I2C.Bus)
	assert.Equal(t, uint16(0x49), cfg.ADC.Address)
	assert.Equal(t, 2.048, cfg.ADC.FullScale)
	assert.Equal(t, 128, cfg.ADC.DataRate)
	assert.Equal(t, 50*time.Millisecond, cfg.ADC.ConversionTimeout)
	assert.False(t, cfg.Display.Enabled)
	assert.Equal(t, 1.0, cfg.Measurement.SenseResistor)
	assert.Equal(t, 0.98, cfg.Measurement.CalConstant)
	assert.Equal(t, 7, cfg.Measurement.Samples)
	assert.Equal(t, 500*time.Millisecond, cfg.Measurement.Interval)
	assert.True(t, cfg.Measurement.HaltOnFault)
	assert.Equal(t, 3.3, cfg.Battery.LowLimit)
	assert.Equal(t, "fixed", cfg.Battery.Source)
	assert.Equal(t, 3700, cfg.Battery.FixedMillivolts)
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	_, err = tmpfile.WriteString("invalid: yaml: content: [")
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_PartialYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
serial:
  port: "/dev/ttyUSB1"
measurement:
  samples: 0
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	// Should use defaults for missing fields
	assert.Equal(t, "/dev/ttyUSB1", cfg.Serial.Port)
	assert.Equal(t, 10, cfg.Measurement.Samples)         // zero falls back to default
	assert.Equal(t, 10.0, cfg.Measurement.SenseResistor) // default
	assert.Equal(t, 115200, cfg.Serial.BaudRate)         // default
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "negative samples", yaml: "measurement:\n  samples: -3\n"},
		{name: "negative sense resistor", yaml: "measurement:\n  sense_resistor: -10\n"},
		{name: "unknown battery source", yaml: "battery:\n  source: solar\n"},
		{name: "battery channel out of range", yaml: "battery:\n  channel: 4\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
			require.NoError(t, err)
			defer os.Remove(tmpfile.Name())

			_, err = tmpfile.WriteString(tt.yaml)
			require.NoError(t, err)
			require.NoError(t, tmpfile.Close())

			cfg, err := Load(tmpfile.Name())
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestSave(t *testing.T) {
	cfg := Default()
	cfg.Serial.Port = "/dev/ttyUSB0"
	cfg.Measurement.Samples = 15
	cfg.Measurement.Interval = 250 * time.Millisecond

	tmpfile, err := os.CreateTemp("", "test_save_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	err = cfg.Save(tmpfile.Name())
	require.NoError(t, err)

	// Load it back and verify
	loaded, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", loaded.Serial.Port)
	assert.Equal(t, 15, loaded.Measurement.Samples)
	assert.Equal(t, 250*time.Millisecond, loaded.Measurement.Interval)
}
