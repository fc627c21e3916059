package lcdview

import (
	"errors"
	"math"
	"testing"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/test"
	"github.com/itohio/gomohm/pkg/battery"
	"github.com/itohio/gomohm/pkg/display"
	"github.com/itohio/gomohm/pkg/meter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLCD(t *testing.T) *LCD {
	t.Helper()
	test.NewTempApp(t)
	l := NewLCD(display.MinCols, display.MinRows)
	l.refresh = func(f func()) { f() }
	return l
}

func rowTexts(t *testing.T, w fyne.Widget) []string {
	t.Helper()
	var rows []string
	for _, o := range test.WidgetRenderer(w).Objects() {
		if txt, ok := o.(*canvas.Text); ok {
			rows = append(rows, txt.Text)
		}
	}
	return rows
}

func TestLCD_RendersScreen(t *testing.T) {
	l := newTestLCD(t)

	err := display.New(l).Render(meter.Reading{
		Resistance: 5.0,
		Battery:    battery.Status{Volts: 2.9, Low: true},
	})
	require.NoError(t, err)

	want := []string{"Res=5.000   ohms", "  Low Battery!  "}
	assert.Equal(t, want, l.Lines())
	assert.Equal(t, want, rowTexts(t, l))
}

func TestLCD_CursorBounds(t *testing.T) {
	l := newTestLCD(t)

	assert.NoError(t, l.SetCursor(15, 1))
	assert.Error(t, l.SetCursor(16, 1))
}

func TestLCD_MinSizeFitsGrid(t *testing.T) {
	l := newTestLCD(t)

	size := test.WidgetRenderer(l).MinSize()
	c := charSize()
	assert.GreaterOrEqual(t, size.Width, 16*c.Width)
	assert.GreaterOrEqual(t, size.Height, 2*c.Height)
}

func reading(at time.Time, ohms float64) meter.Reading {
	return meter.Reading{Time: at, Resistance: ohms}
}

func TestTrend_KeepsLastPoints(t *testing.T) {
	test.NewTempApp(t)
	tr := NewTrend(3, 1)
	start := time.Now()

	for i := 0; i < 5; i++ {
		tr.Add(reading(start.Add(time.Duration(i)*time.Second), float64(i)))
	}

	points := tr.Points()
	require.Len(t, points, 3)
	assert.Equal(t, 2.0, points[0].Resistance)
	assert.Equal(t, 4.0, points[2].Resistance)
}

func TestTrend_GapsForInvalidReadings(t *testing.T) {
	test.NewTempApp(t)
	tr := NewTrend(10, 1)
	now := time.Now()

	tr.Add(reading(now, 5.0))
	tr.Add(reading(now.Add(time.Second), -1))
	tr.Add(meter.Reading{Time: now.Add(2 * time.Second), Resistance: 5.0, Err: errors.New("fault")})

	points := tr.Points()
	require.Len(t, points, 3)
	assert.Equal(t, 5.0, points[0].Resistance)
	assert.True(t, math.IsNaN(points[1].Resistance))
	assert.True(t, math.IsNaN(points[2].Resistance))
}

func TestRollingMean(t *testing.T) {
	nan := math.NaN()
	points := []Point{{Resistance: 1}, {Resistance: 3}, {Resistance: nan}, {Resistance: 5}, {Resistance: nan}, {Resistance: nan}}

	mean := rollingMean(points, 2)

	require.Len(t, mean, len(points))
	assert.Equal(t, 1.0, mean[0])
	assert.Equal(t, 2.0, mean[1])
	assert.Equal(t, 3.0, mean[2])
	assert.Equal(t, 5.0, mean[3])
	assert.Equal(t, 5.0, mean[4])
	assert.True(t, math.IsNaN(mean[5]))
}

func TestTrend_AutoScale(t *testing.T) {
	test.NewTempApp(t)
	tr := NewTrend(10, 1)

	yMin, yMax, xMin, xMax := tr.Range()
	assert.Less(t, yMin, 0.0)
	assert.Greater(t, yMax, 1.0)
	assert.Equal(t, 10*time.Second, xMax.Sub(xMin))

	now := time.Now()
	tr.Add(reading(now, 4.0))
	tr.Add(reading(now.Add(time.Second), 6.0))

	yMin, yMax, _, _ = tr.Range()
	assert.InDelta(t, 3.8, yMin, 1e-9)
	assert.InDelta(t, 6.2, yMax, 1e-9)
}

func TestTrend_FlatDataHasSpan(t *testing.T) {
	test.NewTempApp(t)
	tr := NewTrend(10, 1)
	now := time.Now()
	tr.Add(reading(now, 5.0))
	tr.Add(reading(now.Add(time.Second), 5.0))

	yMin, yMax, _, _ := tr.Range()
	assert.Less(t, yMin, 5.0)
	assert.Greater(t, yMax, 5.0)
}

func TestFormatOhms(t *testing.T) {
	assert.Equal(t, "5.000", formatOhms(5))
	assert.Equal(t, "0.000", formatOhms(0))
	assert.Equal(t, "12.5m", formatOhms(0.0125))
	assert.Equal(t, "1.50k", formatOhms(1500))
	assert.Equal(t, "-2.000", formatOhms(-2))
}
