//go:build tinygo

package main

import "machine"

const (
	// ADS1115 configuration
	ADS_ADDRESS      = 0x48
	ADS_FULL_SCALE   = 4096 // PGA range in millivolts, 1 bit = 0.125mV
	ADS_DATA_RATE    = 32   // Samples per second, ~31ms per conversion
	I2C_FREQUENCY_HZ = 400000

	// Supply monitor: battery -> R1 -> PIN_SUPPLY_ADC -> R2 -> GND
	ADC_REFERENCE_MV = 3300 // Reference voltage in millivolts (3.3V)
	ADC_RESOLUTION   = 12   // ADC resolution in bits (12-bit = 0-4095)
	SUPPLY_R1        = 10000
	SUPPLY_R2        = 10000

	// I2C pins
	PIN_SDA = machine.SDA_PIN
	PIN_SCL = machine.SCL_PIN

	// ADC pins
	PIN_SUPPLY_ADC = machine.A1

	// Serial configuration
	// One acquisition takes two conversions (~62ms at 32 SPS) and produces
	// "current,voltage,supply_mv\n", at most 19 bytes. Any standard rate keeps up.
	UART_BAUD_RATE = 115200
)
