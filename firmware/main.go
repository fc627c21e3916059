//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"machine"
	"time"

	"github.com/itohio/gomohm/pkg/ads1115"
	"periph.io/x/conn/v3/physic"
)

var (
	adc       *ads1115.Dev
	adcSupply machine.ADC
	uart      = machine.UART0

	// Serial buffer for reading lines
	serialBuffer [8]byte
	serialPos    int
)

func main() {
	machine.I2C0.Configure(machine.I2CConfig{
		Frequency: I2C_FREQUENCY_HZ,
		SDA:       PIN_SDA,
		SCL:       PIN_SCL,
	})

	PIN_SUPPLY_ADC.Configure(machine.PinConfig{Mode: machine.PinInput})
	adcSupply = machine.ADC{Pin: PIN_SUPPLY_ADC}
	adcSupply.Configure(machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: ADC_RESOLUTION,
	})

	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	var err error
	adc, err = ads1115.New(&machineBus{i2c: machine.I2C0}, &ads1115.Opts{
		Address:   ADS_ADDRESS,
		FullScale: ADS_FULL_SCALE * physic.MilliVolt,
		DataRate:  ADS_DATA_RATE * physic.Hertz,
	})
	if err != nil {
		for {
			println("# " + err.Error())
			time.Sleep(time.Second)
		}
	}

	println("# mohm front-end ready")

	for {
		processSerial()
		time.Sleep(time.Millisecond)
	}
}

// processSerial collects a command line. "A" requests one acquisition.
func processSerial() {
	for uart.Buffered() > 0 {
		data, err := uart.ReadByte()
		if err != nil {
			break
		}

		if data == '\n' || data == '\r' {
			if serialPos == 1 && serialBuffer[0] == 'A' {
				acquire()
			}
			serialPos = 0
			continue
		}

		if data == ' ' || data == '\t' {
			continue
		}

		if serialPos < len(serialBuffer) {
			serialBuffer[serialPos] = data
			serialPos++
		}
	}
}

// acquire reads both Kelvin pairs and the supply and prints one reply.
// Output format: "current,voltage,supply_mv\n"
// Example: "800,400,3300\n"
// Failures are reported as comment lines; the host times out on them.
func acquire() {
	// Measure the voltage across the current sense resistor
	cur, err := adc.ReadDifferential(ads1115.Mux0Minus1)
	if err != nil {
		println("# " + err.Error())
		return
	}

	// Measure the voltage across the unknown resistor
	volt, err := adc.ReadDifferential(ads1115.Mux2Minus3)
	if err != nil {
		println("# " + err.Error())
		return
	}

	print(cur)
	print(",")
	print(volt)
	print(",")
	print(readSupplyMillivolts())
	print("\n")
}

// readSupplyMillivolts scales the 16-bit ADC reading through the divider.
func readSupplyMillivolts() uint32 {
	raw := uint32(adcSupply.Get())
	mv := raw * ADC_REFERENCE_MV >> 16
	return mv * (SUPPLY_R1 + SUPPLY_R2) / SUPPLY_R2
}
