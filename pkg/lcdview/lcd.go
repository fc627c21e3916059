// Package lcdview provides Fyne widgets for the desktop instrument: a character
// LCD emulator and a resistance trend plot.
package lcdview

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/gomohm/pkg/display"
	"github.com/itohio/gomohm/pkg/probe"
)

var (
	lcdBackground = color.RGBA{R: 40, G: 70, B: 200, A: 255} // Blue backlight
	lcdForeground = color.RGBA{R: 230, G: 240, B: 255, A: 255}
	lcdCellColor  = color.RGBA{R: 50, G: 82, B: 215, A: 255}
)

const (
	lcdTextSize = 28
	lcdPadding  = 16
)

var _ probe.Display = (*LCD)(nil)

// LCD is a Fyne widget that emulates a character display. It implements
// probe.Display and may be written from any goroutine; redraws are
// scheduled on the Fyne main thread.
type LCD struct {
	widget.BaseWidget

	buf *display.Buffer

	// refresh schedules a redraw. Defaults to fyne.Do.
	refresh func(func())
}

// NewLCD creates a blank cols x rows display.
func NewLCD(cols, rows int) *LCD {
	l := &LCD{
		buf:     display.NewBuffer(cols, rows),
		refresh: fyne.Do,
	}
	l.ExtendBaseWidget(l)
	return l
}

// Clear implements probe.Display.
func (l *LCD) Clear() error {
	if err := l.buf.Clear(); err != nil {
		return err
	}
	l.refresh(l.Refresh)
	return nil
}

// SetCursor implements probe.Display.
func (l *LCD) SetCursor(col, row int) error {
	return l.buf.SetCursor(col, row)
}

// Write implements probe.Display.
func (l *LCD) Write(text string) error {
	if err := l.buf.Write(text); err != nil {
		return err
	}
	l.refresh(l.Refresh)
	return nil
}

// Lines returns the current text of every row.
func (l *LCD) Lines() []string {
	return l.buf.Lines()
}

// CreateRenderer creates the widget renderer.
func (l *LCD) CreateRenderer() fyne.WidgetRenderer {
	cols, rows := l.buf.Size()

	r := &lcdRenderer{
		lcd:        l,
		background: canvas.NewRectangle(lcdBackground),
		rows:       make([]*canvas.Text, rows),
		cells:      make([]*canvas.Rectangle, 0, rows*cols),
	}
	r.background.CornerRadius = 6
	r.objects = append(r.objects, r.background)

	for i := 0; i < rows*cols; i++ {
		cell := canvas.NewRectangle(lcdCellColor)
		r.cells = append(r.cells, cell)
		r.objects = append(r.objects, cell)
	}
	for i := range r.rows {
		t := canvas.NewText("", lcdForeground)
		t.TextSize = lcdTextSize
		t.TextStyle = fyne.TextStyle{Monospace: true}
		r.rows[i] = t
		r.objects = append(r.objects, t)
	}

	r.Refresh()
	return r
}

// lcdRenderer draws a backlit panel with one text object per row.
type lcdRenderer struct {
	lcd *LCD

	background *canvas.Rectangle
	cells      []*canvas.Rectangle
	rows       []*canvas.Text

	objects []fyne.CanvasObject
}

// charSize is the size of one monospace character cell.
func charSize() fyne.Size {
	return fyne.MeasureText("M", lcdTextSize, fyne.TextStyle{Monospace: true})
}

// MinSize returns the panel size for the configured geometry.
func (r *lcdRenderer) MinSize() fyne.Size {
	cols, rows := r.lcd.buf.Size()
	c := charSize()
	return fyne.NewSize(
		c.Width*float32(cols)+2*lcdPadding,
		c.Height*float32(rows)+2*lcdPadding,
	)
}

// Layout centers the character grid in the panel.
func (r *lcdRenderer) Layout(size fyne.Size) {
	r.background.Resize(size)

	cols, rows := r.lcd.buf.Size()
	c := charSize()
	x0 := (size.Width - c.Width*float32(cols)) / 2
	y0 := (size.Height - c.Height*float32(rows)) / 2

	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			cell := r.cells[row*cols+col]
			cell.Move(fyne.NewPos(x0+float32(col)*c.Width+1, y0+float32(row)*c.Height+1))
			cell.Resize(fyne.NewSize(c.Width-2, c.Height-2))
		}
		r.rows[row].Move(fyne.NewPos(x0, y0+float32(row)*c.Height))
	}
}

// Refresh copies the buffer into the row texts.
func (r *lcdRenderer) Refresh() {
	for i, line := range r.lcd.buf.Lines() {
		r.rows[i].Text = line
		r.rows[i].Refresh()
	}
	r.background.Refresh()
}

func (r *lcdRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

func (r *lcdRenderer) Destroy() {}
