package console

import (
	"fmt"
	"io"
	"strings"
)

// Printer writes indented output to an arbitrary writer. Operations share a
// single printer so nested entities render with increasing indentation.
type Printer struct {
	w     io.Writer
	level int
}

// NewPrinter returns a printer writing to w at indentation level zero.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// LevelUp increases the indentation by one step.
func (p *Printer) LevelUp() {
	p.level++
}

// LevelDown decreases the indentation by one step.
func (p *Printer) LevelDown() {
	if p.level > 0 {
		p.level--
	}
}

func (p *Printer) indent() string {
	return strings.Repeat("  ", p.level)
}

// Println writes a line at the current indentation level. Multi-line input
// is indented per line.
func (p *Printer) Println(text string) {
	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			fmt.Fprintln(p.w)
			continue
		}
		fmt.Fprintln(p.w, p.indent()+line)
	}
}

// Printf formats and writes a line at the current indentation level.
func (p *Printer) Printf(format string, args ...any) {
	p.Println(fmt.Sprintf(format, args...))
}

// PrintWarn writes a warning-styled line.
func (p *Printer) PrintWarn(message string) {
	p.Println(FormatWarningMessage(message))
}

// PrintError writes an error-styled line.
func (p *Printer) PrintError(message string) {
	p.Println(FormatErrorMessage(message))
}
