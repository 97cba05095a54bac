// internal/display/display.go
package display

import (
	"fmt"
	"io"
	"sync"
)

// Display is a character-addressed text output. Rows and columns are
// zero-based. Nothing is reported back beyond the write error.
type Display interface {
	WriteAt(row, col int, text string) error
}

// Console emulates a character display on an ANSI terminal by
// positioning the cursor before each write.
type Console struct {
	mu  sync.Mutex
	w   io.Writer
	top int // first terminal line used, 1-based
}

// NewConsole draws rows starting at terminal line top (1-based).
func NewConsole(w io.Writer, top int) *Console {
	if top < 1 {
		top = 1
	}
	return &Console{w: w, top: top}
}

func (c *Console) WriteAt(row, col int, text string) error {
	if row < 0 || col < 0 {
		return fmt.Errorf("display: invalid position %d,%d", row, col)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// save cursor, move, write, restore
	_, err := fmt.Fprintf(c.w, "\x1b7\x1b[%d;%dH%s\x1b8", c.top+row, col+1, text)
	return err
}

// Clear erases the whole terminal.
func (c *Console) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := io.WriteString(c.w, "\x1b[2J")
	return err
}
