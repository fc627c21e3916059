// Package lcd drives an HD44780 character display through a PCF8574 I²C
// backpack, the common "LCD 1602 I2C" module.
//
// Backpack wiring: P0=RS, P1=RW, P2=EN, P3=backlight, P4..P7=D4..D7. The
// controller runs in 4-bit mode; each byte is sent as two nibbles, each
// nibble latched by an EN pulse.
package lcd

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
)

const (
	pinRS        byte = 0x01
	pinEN        byte = 0x04
	pinBacklight byte = 0x08
)

const (
	cmdClear       byte = 0x01
	cmdEntryMode   byte = 0x04
	cmdDisplayCtrl byte = 0x08
	cmdFunctionSet byte = 0x20
	cmdSetDDRAM    byte = 0x80

	entryLeft      byte = 0x02
	displayOn      byte = 0x04
	functionTwoRow byte = 0x08
)

// DefaultAddress is the usual PCF8574 backpack address.
const DefaultAddress uint16 = 0x27

var rowOffsets = [4]int{0x00, 0x40, 0x14, 0x54}

// Opts holds the display geometry.
type Opts struct {
	Address uint16
	Cols    int
	Rows    int
}

// DefaultOptions returns a 16x2 display at 0x27.
func DefaultOptions() *Opts {
	return &Opts{
		Address: DefaultAddress,
		Cols:    16,
		Rows:    2,
	}
}

// Dev is a handle to a character display.
type Dev struct {
	c         conn.Conn
	opts      Opts
	name      string
	backlight byte
	sleep     func(time.Duration)

	mu sync.Mutex
}

// New initializes the controller into 4-bit, two line mode with the
// backlight on and the display cleared.
func New(bus i2c.Bus, opts *Opts) (*Dev, error) {
	return newDev(bus, opts, time.Sleep)
}

func newDev(bus i2c.Bus, opts *Opts, sleep func(time.Duration)) (*Dev, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Rows < 1 || opts.Rows > len(rowOffsets) {
		return nil, fmt.Errorf("lcd: invalid row count %d", opts.Rows)
	}
	if opts.Cols < 1 {
		return nil, fmt.Errorf("lcd: invalid column count %d", opts.Cols)
	}

	addr := opts.Address
	if addr == 0 {
		addr = DefaultAddress
	}

	d := &Dev{
		c:         &i2c.Dev{Bus: bus, Addr: addr},
		opts:      *opts,
		name:      fmt.Sprintf("lcd@%#x", addr),
		backlight: pinBacklight,
		sleep:     sleep,
	}

	if err := d.init(); err != nil {
		return nil, d.wrap(err)
	}
	return d, nil
}

func (d *Dev) init() error {
	// Power-on wait, then the datasheet's 8-bit to 4-bit handshake.
	d.sleep(50 * time.Millisecond)
	if err := d.c.Tx([]byte{d.backlight}, nil); err != nil {
		return err
	}
	for _, wait := range []time.Duration{4500 * time.Microsecond, 4500 * time.Microsecond, 150 * time.Microsecond} {
		if err := d.writeNibble(0x30); err != nil {
			return err
		}
		d.sleep(wait)
	}
	if err := d.writeNibble(0x20); err != nil {
		return err
	}

	function := cmdFunctionSet
	if d.opts.Rows > 1 {
		function |= functionTwoRow
	}
	for _, cmd := range []byte{function, cmdDisplayCtrl | displayOn, cmdEntryMode | entryLeft} {
		if err := d.send(cmd, 0); err != nil {
			return err
		}
	}
	return d.clear()
}

func (d *Dev) String() string {
	return fmt.Sprintf("%s{%s}", d.name, d.c)
}

// Halt blanks the display and turns the backlight off.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.backlight = 0
	if err := d.clear(); err != nil {
		return d.wrap(err)
	}
	return nil
}

// Backlight switches the backlight.
func (d *Dev) Backlight(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if on {
		d.backlight = pinBacklight
	} else {
		d.backlight = 0
	}
	if err := d.c.Tx([]byte{d.backlight}, nil); err != nil {
		return d.wrap(err)
	}
	return nil
}

// Clear blanks the display and homes the cursor.
func (d *Dev) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.clear(); err != nil {
		return d.wrap(err)
	}
	return nil
}

// SetCursor moves the cursor to a zero based column and row.
func (d *Dev) SetCursor(col, row int) error {
	if row < 0 || row >= d.opts.Rows {
		return d.wrap(fmt.Errorf("row %d out of range", row))
	}
	if col < 0 || col >= d.opts.Cols {
		return d.wrap(fmt.Errorf("column %d out of range", col))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.send(cmdSetDDRAM|byte(col+rowOffsets[row]), 0); err != nil {
		return d.wrap(err)
	}
	return nil
}

// Write prints text at the cursor. Bytes outside printable ASCII are shown as '?'.
func (d *Dev) Write(text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c < 0x20 || c > 0x7E {
			c = '?'
		}
		if err := d.send(c, pinRS); err != nil {
			return d.wrap(err)
		}
	}
	return nil
}

// Size returns the display geometry as columns and rows.
func (d *Dev) Size() (cols, rows int) {
	return d.opts.Cols, d.opts.Rows
}

func (d *Dev) clear() error {
	if err := d.send(cmdClear, 0); err != nil {
		return err
	}
	// Clear takes up to 1.52ms.
	d.sleep(2 * time.Millisecond)
	return nil
}

// send writes a byte as two nibbles in a single bus transaction. The
// expander latches every byte, so the EN pulse width is one I²C byte time.
func (d *Dev) send(value, mode byte) error {
	hi := value&0xF0 | mode | d.backlight
	lo := value<<4 | mode | d.backlight
	return d.c.Tx([]byte{hi, hi | pinEN, hi, lo, lo | pinEN, lo}, nil)
}

func (d *Dev) writeNibble(nibble byte) error {
	b := nibble&0xF0 | d.backlight
	return d.c.Tx([]byte{b, b | pinEN, b}, nil)
}

func (d *Dev) wrap(err error) error {
	return fmt.Errorf("%s: %w", strings.ToLower(d.name), err)
}

var _ conn.Resource = &Dev{}
