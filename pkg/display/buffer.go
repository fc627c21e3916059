package display

import (
	"fmt"
	"strings"
	"sync"

	"github.com/itohio/gomohm/pkg/probe"
)

var _ probe.Display = (*Buffer)(nil)

// Buffer is an in-memory character display. Text past the end of a row is
// dropped like on the HD44780 visible area.
type Buffer struct {
	mu       sync.RWMutex
	cols     int
	rows     int
	cells    [][]byte
	col, row int
}

// NewBuffer creates a blank cols x rows buffer.
func NewBuffer(cols, rows int) *Buffer {
	b := &Buffer{
		cols:  cols,
		rows:  rows,
		cells: make([][]byte, rows),
	}
	for i := range b.cells {
		b.cells[i] = make([]byte, cols)
	}
	b.clear()
	return b
}

// Clear blanks the buffer and homes the cursor.
func (b *Buffer) Clear() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clear()
	return nil
}

func (b *Buffer) clear() {
	for _, row := range b.cells {
		for i := range row {
			row[i] = ' '
		}
	}
	b.col, b.row = 0, 0
}

// SetCursor moves the cursor to col, row.
func (b *Buffer) SetCursor(col, row int) error {
	if col < 0 || col >= b.cols || row < 0 || row >= b.rows {
		return fmt.Errorf("cursor %d,%d outside %dx%d display", col, row, b.cols, b.rows)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.col, b.row = col, row
	return nil
}

// Write puts text at the cursor.
func (b *Buffer) Write(text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := 0; i < len(text); i++ {
		if b.col >= b.cols {
			break
		}
		c := text[i]
		if c < 0x20 || c > 0x7E {
			c = '?'
		}
		b.cells[b.row][b.col] = c
		b.col++
	}
	return nil
}

// Size returns the geometry in characters.
func (b *Buffer) Size() (cols, rows int) {
	return b.cols, b.rows
}

// Lines returns a copy of every row.
func (b *Buffer) Lines() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	lines := make([]string, b.rows)
	for i, row := range b.cells {
		lines[i] = string(row)
	}
	return lines
}

// String returns the rows joined by newlines.
func (b *Buffer) String() string {
	return strings.Join(b.Lines(), "\n")
}
