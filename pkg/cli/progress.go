package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// ProgressReporter reports progress through a known number of items.
type ProgressReporter interface {
	Start(total int)
	Step(item string)
	Finish()
	Error(err error)
}

// SimpleProgress draws a single-line bar with the item being processed.
type SimpleProgress struct {
	mu      sync.Mutex
	label   string
	total   int
	current int
	item    string
	writer  io.Writer
}

// NewProgressReporter creates a reporter that writes to w. A nil w writes to
// os.Stderr so progress never mixes with command output.
func NewProgressReporter(w io.Writer, label string) ProgressReporter {
	if w == nil {
		w = os.Stderr
	}
	return &SimpleProgress{
		writer: w,
		label:  label,
	}
}

// Start resets the reporter for total items.
func (p *SimpleProgress) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.current = 0
	p.item = ""
	p.render()
}

// Step marks item as done.
func (p *SimpleProgress) Step(item string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current++
	p.item = item
	p.render()
}

// Finish completes the line.
func (p *SimpleProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = p.total
	p.item = ""
	p.render()
	fmt.Fprintln(p.writer)
}

// Error reports an error and ends the line.
func (p *SimpleProgress) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.writer, "\n✗ Error: %v\n", err)
}

func (p *SimpleProgress) render() {
	if p.total == 0 {
		return
	}

	const barWidth = 30
	filled := min(barWidth*p.current/p.total, barWidth)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	fmt.Fprintf(p.writer, "\r%s: [%s] %d/%d %s", p.label, bar, p.current, p.total, p.item)
}
