// Command mohmd runs the milliohmmeter on a Linux board: an ADS1115 wired to a
// four-wire Kelvin probe and a 16x2 I2C character LCD.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/itohio/gomohm/pkg/battery"
	"github.com/itohio/gomohm/pkg/config"
	"github.com/itohio/gomohm/pkg/display"
	"github.com/itohio/gomohm/pkg/meter"
)

func main() {
	var (
		configFlag  = flag.String("config", "config.yaml", "Configuration file path")
		portFlag    = flag.String("p", "", "Use the serial front-end on this port (e.g., /dev/ttyACM0)")
		mockFlag    = flag.Bool("mock", false, "Use mocked probe instead of the ADS1115")
		busFlag     = flag.String("bus", "", "I2C bus override (e.g., /dev/i2c-1)")
		samplesFlag = flag.Int("samples", -1, "Readings per median (overrides config)")
		noLCDFlag   = flag.Bool("no-lcd", false, "Do not drive the character LCD")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *busFlag != "" {
		cfg.I2C.Bus = *busFlag
	}
	if *samplesFlag >= 0 {
		cfg.Measurement.Samples = *samplesFlag
	}
	if *noLCDFlag {
		cfg.Display.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	source := sourceKelvin
	switch {
	case *mockFlag:
		source = sourceMock
	case *portFlag != "":
		source = sourceSerial
		cfg.Serial.Port = *portFlag
	}

	inst, err := openInstrument(cfg, source)
	if err != nil {
		log.Fatalf("Failed to open instrument: %v", err)
	}
	defer inst.Close()

	var renderer meter.Renderer
	if inst.display != nil {
		cols, rows := inst.display.Size()
		if cols < display.MinCols || rows < display.MinRows {
			log.Printf("LCD is %dx%d, the layout needs %dx%d", cols, rows, display.MinCols, display.MinRows)
		}
		renderer = display.New(inst.display)
	}

	monitor := battery.NewMonitor(inst.supply, cfg.Battery.LowLimit)
	m := meter.New(cfg, inst.probe, monitor, renderer)
	m.OnUpdate(logReading)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Measuring with %s probe, %d samples every %s, low battery below %.2fV",
		source, cfg.Measurement.Samples, cfg.Measurement.Interval, monitor.LowLimit())
	if err := m.Run(ctx); err != nil {
		log.Printf("Measurement stopped: %v", err)
		inst.Close()
		os.Exit(1)
	}
	log.Printf("Shutting down")
}

func logReading(r meter.Reading) {
	if r.Err != nil {
		return
	}

	low := ""
	if r.Battery.Low {
		low = " (low battery)"
	}
	if !r.InRange() {
		log.Printf("Resistance out of range, supply %.2fV%s", r.Battery.Volts, low)
		return
	}
	log.Printf("Resistance %.3f ohms at %.1fmA, supply %.2fV%s", r.Resistance, r.Current, r.Battery.Volts, low)
}
