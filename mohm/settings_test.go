package main

import (
	"os"
	"path/filepath"
	"testing"

	"fyne.io/fyne/v2/test"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/gomohm/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageConfig(t *testing.T) {
	cur := config.Default()

	next, err := stageConfig(cur, func(c *config.Config) {
		c.Measurement.Samples = 21
		c.Mock.CurrentCode = 1600
	})
	require.NoError(t, err)
	assert.Equal(t, 21, next.Measurement.Samples)
	assert.Equal(t, int16(1600), next.Mock.CurrentCode)
	assert.Equal(t, 10, cur.Measurement.Samples)
	assert.Equal(t, int16(800), cur.Mock.CurrentCode)
}

func TestStageConfig_InvalidLeavesCurrent(t *testing.T) {
	cur := config.Default()

	_, err := stageConfig(cur, func(c *config.Config) {
		c.Measurement.Samples = 0
	})
	require.Error(t, err)
	assert.Equal(t, 10, cur.Measurement.Samples)
	assert.NoError(t, cur.Validate())
}

func TestApplyConfig(t *testing.T) {
	test.NewTempApp(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	state := &appState{
		cfg:        config.Default(),
		configPath: path,
		window:     test.NewTempWindow(t, widget.NewLabel("")),
		status:     widget.NewLabel("Disconnected"),
	}

	applyConfig(state, func(c *config.Config) { c.Measurement.Samples = 0 })
	assert.Equal(t, 10, state.cfg.Measurement.Samples)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "a rejected edit is not saved")

	applyConfig(state, func(c *config.Config) { c.Measurement.Samples = 5 })
	assert.Equal(t, 5, state.cfg.Measurement.Samples)

	saved, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, saved.Measurement.Samples)
}
