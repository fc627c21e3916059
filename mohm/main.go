// Command mohm is a desktop milliohmmeter: it drives the serial front-end or
// a mocked probe and shows the instrument LCD together with a trend plot.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/gomohm/pkg/battery"
	"github.com/itohio/gomohm/pkg/config"
	"github.com/itohio/gomohm/pkg/display"
	"github.com/itohio/gomohm/pkg/lcdview"
	"github.com/itohio/gomohm/pkg/meter"
	"github.com/itohio/gomohm/pkg/probe"
)

// trendWindow is the rolling mean length of the trend plot.
const trendWindow = 5

func main() {
	var (
		portFlag   = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag   = flag.Bool("mock", false, "Use mocked probe instead of serial port")
	)
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override serial port if provided via command line
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}

	application := app.NewWithID("com.itohio.gomohm")

	window := application.NewWindow("Milliohmmeter")
	window.Resize(fyne.NewSize(800, 600))
	window.CenterOnScreen()

	state := &appState{
		cfg:        cfg,
		configPath: *configFlag,
		window:     window,
		useMock:    *mockFlag,
		lcd:        lcdview.NewLCD(cfg.Display.Cols, cfg.Display.Rows),
		trend:      lcdview.NewTrend(lcdview.DefaultTrendPoints, trendWindow),
		status:     widget.NewLabel("Disconnected"),
	}

	toolbar := createToolbar(state)

	content := container.NewBorder(
		container.NewVBox(toolbar, container.NewCenter(state.lcd)),
		state.status,
		nil,
		nil,
		state.trend,
	)

	window.SetContent(content)
	window.SetOnClosed(func() {
		state.disconnect()
	})
	window.ShowAndRun()
}

// session is one running measurement loop.
type session struct {
	device probe.Device
	cancel context.CancelFunc
	done   chan struct{} // Closed when the meter loop exits
}

// appState holds the application state.
type appState struct {
	cfg        *config.Config
	configPath string
	window     fyne.Window
	useMock    bool

	lcd        *lcdview.LCD
	trend      *lcdview.Trend
	status     *widget.Label
	connectBtn *widget.Button

	// openDevice overrides the probe selected by useMock
	openDevice func(cfg *config.Config) (probe.Device, battery.SupplyReader)

	mu      sync.Mutex
	session *session
}

// createToolbar creates the application toolbar with Connect and Settings buttons.
func createToolbar(state *appState) fyne.CanvasObject {
	connectBtn := widget.NewButtonWithIcon("Connect", theme.LoginIcon(), func() {
		handleConnect(state)
	})
	state.connectBtn = connectBtn

	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	return container.NewHBox(connectBtn, settingsBtn)
}

func (s *appState) connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil
}

// handleConnect toggles the measurement loop.
func handleConnect(state *appState) {
	if state.connected() {
		state.disconnect()
		state.showDisconnected()
		return
	}

	if err := state.connect(); err != nil {
		dialog.ShowError(err, state.window)
		return
	}
	state.connectBtn.SetText("Disconnect")
	state.connectBtn.SetIcon(theme.LogoutIcon())
}

// showDisconnected resets the connect button and the status line.
func (s *appState) showDisconnected() {
	if s.connectBtn != nil {
		s.connectBtn.SetText("Connect")
		s.connectBtn.SetIcon(theme.LoginIcon())
	}
	s.status.SetText("Disconnected")
}

func (s *appState) newDevice() (probe.Device, battery.SupplyReader) {
	if s.openDevice != nil {
		return s.openDevice(s.cfg)
	}
	if s.useMock {
		m := probe.NewMock(&s.cfg.Mock)
		return m, m
	}
	ser := probe.NewSerial(s.cfg.Serial.Port, s.cfg.Serial.BaudRate, s.cfg.Serial.ReadTimeout)
	return ser, ser
}

// connect opens the probe and starts the meter loop.
func (s *appState) connect() error {
	device, supply := s.newDevice()

	reader, err := desktopSupply(s.cfg, supply)
	if err != nil {
		return err
	}

	if err := device.Connect(); err != nil {
		if s.useMock {
			return fmt.Errorf("failed to connect to mocked probe: %w", err)
		}
		return fmt.Errorf("failed to connect to %s: %w", s.cfg.Serial.Port, err)
	}
	if s.useMock {
		log.Printf("Connected to mocked probe")
	} else {
		log.Printf("Connected to serial port: %s", s.cfg.Serial.Port)
	}

	m := meter.New(s.cfg, device, battery.NewMonitor(reader, s.cfg.Battery.LowLimit), display.New(s.lcd))
	m.OnUpdate(func(r meter.Reading) {
		fyne.Do(func() {
			s.trend.Add(r)
			s.status.SetText(statusText(r))
		})
	})

	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{
		device: device,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()

	go func() {
		defer close(sess.done)
		if err := m.Run(ctx); err != nil {
			log.Printf("Measurement stopped: %v", err)
			s.halted(sess, err)
		}
	}()
	return nil
}

// halted releases a session whose loop stopped on its own. A concurrent
// disconnect owns the session once it has been cleared.
func (s *appState) halted(sess *session, err error) {
	s.mu.Lock()
	owned := s.session == sess
	if owned {
		s.session = nil
	}
	s.mu.Unlock()
	if !owned {
		return
	}

	sess.cancel()
	if cerr := sess.device.Close(); cerr != nil {
		log.Printf("Error closing probe: %v", cerr)
	}
	fyne.Do(func() {
		s.showDisconnected()
		dialog.ShowError(err, s.window)
	})
}

// disconnect stops the meter loop and closes the probe. The loop finishes
// its current cycle first.
func (s *appState) disconnect() {
	s.mu.Lock()
	sess := s.session
	s.session = nil
	s.mu.Unlock()

	if sess == nil {
		return
	}

	sess.cancel()
	// Closing the device unblocks a serial acquisition waiting for a reply
	if err := sess.device.Close(); err != nil {
		log.Printf("Error closing probe: %v", err)
	}
	<-sess.done
	log.Printf("Disconnected")
}

// desktopSupply picks the supply reader. There is no divider ADC on the
// desktop, so "adc" falls back to the supply the probe reports.
func desktopSupply(cfg *config.Config, device battery.SupplyReader) (battery.SupplyReader, error) {
	if cfg.Battery.Source == "adc" {
		return device, nil
	}
	return battery.NewReader(cfg, nil, device, 0)
}

func statusText(r meter.Reading) string {
	ts := r.Time.Format("15:04:05")
	switch {
	case r.Err != nil:
		return fmt.Sprintf("%s  device fault: %v", ts, r.Err)
	case r.BatteryErr != nil:
		return fmt.Sprintf("%s  %d samples, supply unknown: %v", ts, len(r.Samples), r.BatteryErr)
	default:
		return fmt.Sprintf("%s  %d samples, %.1fmA, supply %.2fV", ts, len(r.Samples), r.Current, r.Battery.Volts)
	}
}
