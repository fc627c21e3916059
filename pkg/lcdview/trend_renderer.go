package lcdview

import (
	"image/color"
	"math"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
)

var (
	gridColor    = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	labelColor   = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	readingColor = color.RGBA{R: 255, G: 165, B: 0, A: 255}   // Orange
	meanColor    = color.RGBA{R: 100, G: 200, B: 255, A: 255} // Light blue
)

// trendRenderer renders the trend widget.
type trendRenderer struct {
	trend *Trend

	background *canvas.Rectangle
	objects    []fyne.CanvasObject
	lastSize   fyne.Size
}

// MinSize returns the minimum size of the widget.
func (r *trendRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 200)
}

// Layout arranges the widget components.
func (r *trendRenderer) Layout(size fyne.Size) {
	r.background.Resize(size)

	if r.lastSize != size {
		r.lastSize = size
		r.trend.BaseWidget.Refresh()
	}
}

// Refresh rebuilds the plot from the trend data.
func (r *trendRenderer) Refresh() {
	points := r.trend.Points()
	mean := r.trend.Mean()
	yMin, yMax, xMin, xMax := r.trend.Range()

	r.objects = []fyne.CanvasObject{r.background}

	size := r.trend.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	const (
		marginLeft   = float32(70)
		marginRight  = float32(20)
		marginTop    = float32(20)
		marginBottom = float32(30)
	)
	p := plot{
		x:    marginLeft,
		y:    marginTop,
		w:    size.Width - marginLeft - marginRight,
		h:    size.Height - marginTop - marginBottom,
		yMin: yMin,
		yMax: yMax,
		xMin: xMin,
		xMax: xMax,
	}

	r.drawGrid(p)

	values := make([]float64, len(points))
	for i, pt := range points {
		values[i] = pt.Resistance
	}
	r.drawSeries(p, points, values, readingColor, 1.5)
	r.drawSeries(p, points, mean, meanColor, 2.5)
}

// plot maps data coordinates into the plot area.
type plot struct {
	x, y, w, h float32
	yMin, yMax float64
	xMin, xMax time.Time
}

func (p plot) pos(t time.Time, v float64) fyne.Position {
	x := p.x + float32(t.Sub(p.xMin).Seconds()/p.xMax.Sub(p.xMin).Seconds())*p.w
	y := p.y + p.h - float32((v-p.yMin)/(p.yMax-p.yMin))*p.h
	return fyne.NewPos(x, y)
}

// drawGrid draws horizontal resistance lines and vertical time lines.
func (r *trendRenderer) drawGrid(p plot) {
	const numHLines = 6
	for i := range numHLines + 1 {
		y := p.y + float32(i)*p.h/float32(numHLines)
		r.line(fyne.NewPos(p.x, y), fyne.NewPos(p.x+p.w, y), gridColor, 1)

		value := p.yMax - float64(i)*(p.yMax-p.yMin)/float64(numHLines)
		r.label(formatOhms(value), fyne.NewPos(p.x-5, y-6), fyne.TextAlignTrailing)
	}

	const numVLines = 10
	span := p.xMax.Sub(p.xMin)
	for i := range numVLines + 1 {
		x := p.x + float32(i)*p.w/float32(numVLines)
		r.line(fyne.NewPos(x, p.y), fyne.NewPos(x, p.y+p.h), gridColor, 1)

		offset := time.Duration(float64(span) * float64(i) / numVLines)
		r.label(formatSeconds(offset), fyne.NewPos(x-20, p.y+p.h+5), fyne.TextAlignCenter)
	}
}

// drawSeries connects consecutive valid values; NaN breaks the line.
func (r *trendRenderer) drawSeries(p plot, points []Point, values []float64, c color.Color, width float32) {
	for i := 1; i < len(values); i++ {
		if math.IsNaN(values[i-1]) || math.IsNaN(values[i]) {
			continue
		}
		r.line(p.pos(points[i-1].Time, values[i-1]), p.pos(points[i].Time, values[i]), c, width)
	}
}

func (r *trendRenderer) line(from, to fyne.Position, c color.Color, width float32) {
	l := canvas.NewLine(c)
	l.Position1 = from
	l.Position2 = to
	l.StrokeWidth = width
	r.objects = append(r.objects, l)
}

func (r *trendRenderer) label(text string, pos fyne.Position, align fyne.TextAlign) {
	t := canvas.NewText(text, labelColor)
	t.TextSize = 10
	t.Alignment = align
	t.Move(pos)
	r.objects = append(r.objects, t)
}

// Objects returns all canvas objects for rendering.
func (r *trendRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

func (r *trendRenderer) Destroy() {}

func formatOhms(v float64) string {
	switch a := math.Abs(v); {
	case a >= 1000:
		return strconv.FormatFloat(v/1000, 'f', 2, 64) + "k"
	case a >= 1 || a == 0:
		return strconv.FormatFloat(v, 'f', 3, 64)
	default:
		return strconv.FormatFloat(v*1000, 'f', 1, 64) + "m"
	}
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 0, 64) + "s"
}
