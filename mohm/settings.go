package main

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/gomohm/pkg/config"
	"github.com/itohio/gomohm/pkg/probe"
)

// showSettingsDialog displays a settings dialog with tabs for all configuration options.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createSerialTab(state),
		createMeasurementTab(state),
		createBatteryTab(state),
		createMockTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(600, 450))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(600, 450))
	d.Show()
}

// stageConfig applies edit to a copy of cur and validates the result. cur is
// never modified, so a rejected edit leaves the running configuration intact.
func stageConfig(cur *config.Config, edit func(*config.Config)) (*config.Config, error) {
	next := *cur
	edit(&next)
	if err := next.Validate(); err != nil {
		return nil, err
	}
	return &next, nil
}

// applyConfig stages an edit, saves it and restarts a running measurement so
// the new values take effect. The loop is stopped before state.cfg changes.
func applyConfig(state *appState, edit func(*config.Config)) {
	next, err := stageConfig(state.cfg, edit)
	if err != nil {
		dialog.ShowError(err, state.window)
		return
	}
	if err := next.Save(state.configPath); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
		return
	}

	wasConnected := state.connected()
	if wasConnected {
		state.disconnect()
	}
	*state.cfg = *next
	if !wasConnected {
		return
	}
	if err := state.connect(); err != nil {
		state.showDisconnected()
		dialog.ShowError(err, state.window)
	}
}

// createSerialTab creates the Serial configuration tab.
func createSerialTab(state *appState) *container.TabItem {
	ports, err := probe.Ports()
	portOptions := []string{}
	portMap := make(map[string]string) // Map display name to actual port name

	if err == nil {
		for _, port := range ports {
			displayName := port.Name
			if port.Description != "" && port.Description != port.Name {
				displayName = fmt.Sprintf("%s (%s)", port.Name, port.Description)
			}
			portOptions = append(portOptions, displayName)
			portMap[displayName] = port.Name
		}
	}

	// Add current port if not in list
	currentPort := state.cfg.Serial.Port
	currentDisplay := currentPort
	found := false
	for _, opt := range portOptions {
		if portMap[opt] == currentPort {
			currentDisplay = opt
			found = true
			break
		}
	}
	if !found && currentPort != "" {
		portOptions = append(portOptions, currentPort)
		portMap[currentPort] = currentPort
	}

	portSelect := widget.NewSelect(portOptions, nil)
	if currentDisplay != "" {
		portSelect.SetSelected(currentDisplay)
	}

	baudEntry := widget.NewEntry()
	baudEntry.SetText(strconv.Itoa(state.cfg.Serial.BaudRate))

	timeoutEntry := widget.NewEntry()
	timeoutEntry.SetText(state.cfg.Serial.ReadTimeout.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
			{Text: "Baud Rate", Widget: baudEntry},
			{Text: "Read Timeout", Widget: timeoutEntry},
		},
		OnSubmit: func() {
			applyConfig(state, func(c *config.Config) {
				if portSelect.Selected != "" {
					selectedPort := portMap[portSelect.Selected]
					if selectedPort == "" {
						selectedPort = portSelect.Selected
					}
					c.Serial.Port = selectedPort
				}
				if baud, err := strconv.Atoi(baudEntry.Text); err == nil && baud > 0 {
					c.Serial.BaudRate = baud
				}
				if rt, err := time.ParseDuration(timeoutEntry.Text); err == nil && rt > 0 {
					c.Serial.ReadTimeout = rt
				}
			})
		},
	}

	return container.NewTabItem("Serial", form)
}

// createMeasurementTab creates the Measurement configuration tab.
func createMeasurementTab(state *appState) *container.TabItem {
	senseEntry := widget.NewEntry()
	senseEntry.SetText(strconv.FormatFloat(state.cfg.Measurement.SenseResistor, 'f', -1, 64))

	calEntry := widget.NewEntry()
	calEntry.SetText(strconv.FormatFloat(state.cfg.Measurement.CalConstant, 'f', -1, 64))

	gainEntry := widget.NewEntry()
	gainEntry.SetText(strconv.FormatFloat(state.cfg.Measurement.GainMultiplier, 'f', -1, 64))

	samplesEntry := widget.NewEntry()
	samplesEntry.SetText(strconv.Itoa(state.cfg.Measurement.Samples))

	intervalEntry := widget.NewEntry()
	intervalEntry.SetText(state.cfg.Measurement.Interval.String())

	haltCheck := widget.NewCheck("Stop on device fault", nil)
	haltCheck.SetChecked(state.cfg.Measurement.HaltOnFault)

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Sense Resistor (Ω)", Widget: senseEntry},
			{Text: "Calibration Constant", Widget: calEntry},
			{Text: "Gain (mV/LSB, 0=from ADC range)", Widget: gainEntry},
			{Text: "Samples per Reading", Widget: samplesEntry},
			{Text: "Interval", Widget: intervalEntry},
			{Text: "", Widget: haltCheck},
		},
		OnSubmit: func() {
			applyConfig(state, func(c *config.Config) {
				if v, err := strconv.ParseFloat(senseEntry.Text, 64); err == nil {
					c.Measurement.SenseResistor = v
				}
				if v, err := strconv.ParseFloat(calEntry.Text, 64); err == nil {
					c.Measurement.CalConstant = v
				}
				if v, err := strconv.ParseFloat(gainEntry.Text, 64); err == nil && v >= 0 {
					c.Measurement.GainMultiplier = v
				}
				if v, err := strconv.Atoi(samplesEntry.Text); err == nil {
					c.Measurement.Samples = v
				}
				if v, err := time.ParseDuration(intervalEntry.Text); err == nil && v > 0 {
					c.Measurement.Interval = v
				}
				c.Measurement.HaltOnFault = haltCheck.Checked
			})
		},
	}

	return container.NewTabItem("Measurement", form)
}

// createBatteryTab creates the Battery configuration tab.
func createBatteryTab(state *appState) *container.TabItem {
	limitEntry := widget.NewEntry()
	limitEntry.SetText(strconv.FormatFloat(state.cfg.Battery.LowLimit, 'f', 2, 64))

	sourceSelect := widget.NewSelect([]string{"device", "fixed"}, nil)
	if state.cfg.Battery.Source == "fixed" {
		sourceSelect.SetSelected("fixed")
	} else {
		sourceSelect.SetSelected("device")
	}

	fixedEntry := widget.NewEntry()
	fixedEntry.SetText(strconv.Itoa(state.cfg.Battery.FixedMillivolts))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Low Limit (V)", Widget: limitEntry},
			{Text: "Supply Source", Widget: sourceSelect},
			{Text: "Fixed Supply (mV)", Widget: fixedEntry},
		},
		OnSubmit: func() {
			applyConfig(state, func(c *config.Config) {
				if v, err := strconv.ParseFloat(limitEntry.Text, 64); err == nil && v > 0 {
					c.Battery.LowLimit = v
				}
				if sourceSelect.Selected != "" {
					c.Battery.Source = sourceSelect.Selected
				}
				if v, err := strconv.Atoi(fixedEntry.Text); err == nil && v > 0 {
					c.Battery.FixedMillivolts = v
				}
			})
		},
	}

	return container.NewTabItem("Battery", form)
}

// createMockTab creates the Mock probe configuration tab.
func createMockTab(state *appState) *container.TabItem {
	currentEntry := widget.NewEntry()
	currentEntry.SetText(strconv.Itoa(int(state.cfg.Mock.CurrentCode)))

	voltageEntry := widget.NewEntry()
	voltageEntry.SetText(strconv.Itoa(int(state.cfg.Mock.VoltageCode)))

	noiseEntry := widget.NewEntry()
	noiseEntry.SetText(strconv.FormatFloat(state.cfg.Mock.NoiseCodes, 'f', -1, 64))

	spikeRateEntry := widget.NewEntry()
	spikeRateEntry.SetText(strconv.FormatFloat(state.cfg.Mock.SpikeRate, 'f', -1, 64))

	spikeCodesEntry := widget.NewEntry()
	spikeCodesEntry.SetText(strconv.Itoa(int(state.cfg.Mock.SpikeCodes)))

	supplyEntry := widget.NewEntry()
	supplyEntry.SetText(strconv.Itoa(state.cfg.Mock.SupplyMV))

	droopEntry := widget.NewEntry()
	droopEntry.SetText(strconv.Itoa(state.cfg.Mock.SupplyDroopMV))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Current Code (LSB)", Widget: currentEntry},
			{Text: "Voltage Code (LSB)", Widget: voltageEntry},
			{Text: "Noise (LSB)", Widget: noiseEntry},
			{Text: "Spike Rate", Widget: spikeRateEntry},
			{Text: "Spike Size (LSB)", Widget: spikeCodesEntry},
			{Text: "Supply (mV)", Widget: supplyEntry},
			{Text: "Supply Droop (mV/min)", Widget: droopEntry},
		},
		OnSubmit: func() {
			applyConfig(state, func(c *config.Config) {
				if v, err := strconv.ParseInt(currentEntry.Text, 10, 16); err == nil {
					c.Mock.CurrentCode = int16(v)
				}
				if v, err := strconv.ParseInt(voltageEntry.Text, 10, 16); err == nil {
					c.Mock.VoltageCode = int16(v)
				}
				if v, err := strconv.ParseFloat(noiseEntry.Text, 64); err == nil && v >= 0 {
					c.Mock.NoiseCodes = v
				}
				if v, err := strconv.ParseFloat(spikeRateEntry.Text, 64); err == nil && v >= 0 && v <= 1 {
					c.Mock.SpikeRate = v
				}
				if v, err := strconv.ParseInt(spikeCodesEntry.Text, 10, 16); err == nil {
					c.Mock.SpikeCodes = int16(v)
				}
				if v, err := strconv.Atoi(supplyEntry.Text); err == nil && v >= 0 {
					c.Mock.SupplyMV = v
				}
				if v, err := strconv.Atoi(droopEntry.Text); err == nil && v >= 0 {
					c.Mock.SupplyDroopMV = v
				}
			})
		},
	}

	return container.NewTabItem("Mock", form)
}
