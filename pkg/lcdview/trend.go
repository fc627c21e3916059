package lcdview

import (
	"image/color"
	"math"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/gomohm/pkg/meter"
)

// DefaultTrendPoints is how many readings the trend keeps.
const DefaultTrendPoints = 120

// Point is one plotted reading.
type Point struct {
	Time       time.Time
	Resistance float64
}

// Trend is a Fyne widget plotting recent resistance readings together with
// their rolling mean. Out of range readings and faults leave gaps.
type Trend struct {
	widget.BaseWidget

	mu        sync.RWMutex
	points    []Point
	maxPoints int
	window    int // Rolling mean length

	// Auto-scaling
	yMin, yMax float64
	xMin, xMax time.Time
}

// NewTrend creates an empty trend keeping maxPoints readings and averaging
// over the last window of them.
func NewTrend(maxPoints, window int) *Trend {
	if maxPoints <= 1 {
		maxPoints = DefaultTrendPoints
	}
	if window <= 0 {
		window = 1
	}
	t := &Trend{
		points:    make([]Point, 0, maxPoints),
		maxPoints: maxPoints,
		window:    window,
	}
	t.ExtendBaseWidget(t)
	t.updateAutoScale()
	return t
}

// Add appends a reading. It should be called on the Fyne main thread,
// e.g. via fyne.Do from a meter callback.
func (t *Trend) Add(r meter.Reading) {
	t.mu.Lock()
	t.add(r)
	t.updateAutoScale()
	t.mu.Unlock()

	t.Refresh()
}

func (t *Trend) add(r meter.Reading) {
	p := Point{Time: r.Time, Resistance: math.NaN()}
	if r.InRange() {
		p.Resistance = r.Resistance
	}
	if len(t.points) == t.maxPoints {
		copy(t.points, t.points[1:])
		t.points = t.points[:len(t.points)-1]
	}
	t.points = append(t.points, p)
}

// Points returns a copy of the plotted readings, oldest first.
func (t *Trend) Points() []Point {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Point, len(t.points))
	copy(out, t.points)
	return out
}

// Mean returns the rolling mean at every point. Gaps are skipped; a point
// with no valid readings in its window is NaN.
func (t *Trend) Mean() []float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return rollingMean(t.points, t.window)
}

func rollingMean(points []Point, window int) []float64 {
	out := make([]float64, len(points))
	for i := range points {
		var sum float64
		var n int
		for j := max(0, i-window+1); j <= i; j++ {
			if !math.IsNaN(points[j].Resistance) {
				sum += points[j].Resistance
				n++
			}
		}
		if n == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(n)
	}
	return out
}

// Range returns the current axis limits.
func (t *Trend) Range() (yMin, yMax float64, xMin, xMax time.Time) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.yMin, t.yMax, t.xMin, t.xMax
}

// updateAutoScale calculates axis ranges from current data.
func (t *Trend) updateAutoScale() {
	valid := false
	for _, p := range t.points {
		if math.IsNaN(p.Resistance) {
			continue
		}
		if !valid {
			t.yMin, t.yMax = p.Resistance, p.Resistance
			valid = true
			continue
		}
		t.yMin = min(t.yMin, p.Resistance)
		t.yMax = max(t.yMax, p.Resistance)
	}
	if !valid {
		t.yMin, t.yMax = 0, 1
	}

	// Add 10% margin
	span := t.yMax - t.yMin
	if span == 0 {
		span = math.Max(math.Abs(t.yMax), 1)
	}
	margin := span * 0.1
	t.yMin -= margin
	t.yMax += margin

	if len(t.points) == 0 {
		t.xMin = time.Now()
		t.xMax = t.xMin.Add(10 * time.Second)
		return
	}
	t.xMin = t.points[0].Time
	t.xMax = t.points[len(t.points)-1].Time
	if t.xMax.Sub(t.xMin) < 10*time.Second {
		t.xMax = t.xMin.Add(10 * time.Second)
	}
}

// CreateRenderer creates the widget renderer.
func (t *Trend) CreateRenderer() fyne.WidgetRenderer {
	background := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255})
	return &trendRenderer{
		trend:      t,
		background: background,
		objects:    []fyne.CanvasObject{background},
	}
}
