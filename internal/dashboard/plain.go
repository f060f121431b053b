package dashboard

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/rileyhilliard/stylesync/internal/snapshot"
	"github.com/rileyhilliard/stylesync/internal/stream"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// PlainPrinter is a stream.Ingester that forwards each snapshot to Next and
// then writes one line describing it. It is used when stdout is not a TTY.
type PlainPrinter struct {
	Out  io.Writer
	Next stream.Ingester
	// LabelFormat formats the receipt time; defaults to 15:04:05.
	LabelFormat string

	mu  sync.Mutex
	now func() time.Time
}

// NewPlainPrinter writes to out and forwards to next, which may be nil.
func NewPlainPrinter(out io.Writer, next stream.Ingester) *PlainPrinter {
	return &PlainPrinter{Out: out, Next: next, now: time.Now}
}

// Ingest forwards s and prints it.
func (p *PlainPrinter) Ingest(s snapshot.MetricSnapshot) {
	if p.Next != nil {
		p.Next.Ingest(s)
	}

	now := time.Now
	if p.now != nil {
		now = p.now
	}
	layout := p.LabelFormat
	if layout == "" {
		layout = "15:04:05"
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.Out, FormatLine(now().Format(layout), s))
}

// FormatLine renders a snapshot as a single uncolored line.
func FormatLine(label string, s snapshot.MetricSnapshot) string {
	return fmt.Sprintf("%s cpu %5.1f%% | mem %5.1f%% (%s available) | disk %5.1f%% (%s free)",
		label,
		s.CPUPercent,
		s.Memory.Percent, formatGB(s.Memory.AvailableBytes),
		s.Disk.Percent, formatGB(s.Disk.FreeBytes),
	)
}
