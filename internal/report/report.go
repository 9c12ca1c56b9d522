// Package report prints frames as plain text tables for non-interactive use.
package report

import (
	"bytes"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rusenback/procmon/internal/model"
	"github.com/rusenback/procmon/internal/rank"
)

// Options controls which rows a Printer shows.
type Options struct {
	Filter     string
	SortKey    rank.SortKey
	Limit      int
	Containers bool
}

// Printer writes one block per frame.
type Printer struct {
	w    io.Writer
	opts Options
}

func NewPrinter(w io.Writer, opts Options) *Printer {
	return &Printer{w: w, opts: opts}
}

// Print renders frame. The block is built in memory and written with a
// single call so interleaved log output never splits a table.
func (p *Printer) Print(frame model.Frame) error {
	var buf bytes.Buffer
	sys := frame.System

	fmt.Fprintf(&buf, "%s  up %s  cpus %d  procs %d\n",
		frame.CapturedAt.Format(time.RFC3339), FormatUptime(sys.Uptime), sys.CPUCount, sys.Entities)
	fmt.Fprintf(&buf, "CPU %5.1f%%  Mem %s / %s (%.1f%%)\n",
		sys.CPUPercent, FormatKb(sys.UsedMemoryKb), FormatKb(sys.TotalMemoryKb), sys.MemoryPercent)
	if frame.Warmup {
		fmt.Fprintln(&buf, "(first sample, utilization follows on the next cycle)")
	}
	buf.WriteString("\n")

	rows := rank.Apply(frame.Records, p.opts.Filter, p.opts.SortKey, p.opts.Limit)
	if len(rows) == 0 {
		if p.opts.Filter != "" {
			fmt.Fprintf(&buf, "No processes matched filter %q\n", p.opts.Filter)
		}
		buf.WriteString("\n")
		_, err := p.w.Write(buf.Bytes())
		return err
	}

	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	if p.opts.Containers {
		fmt.Fprintln(tw, "PID\tNAME\tCPU%\tRSS\tCONTAINER")
	} else {
		fmt.Fprintln(tw, "PID\tNAME\tCPU%\tRSS")
	}
	for _, r := range rows {
		if p.opts.Containers {
			fmt.Fprintf(tw, "%d\t%s\t%.1f\t%s\t%s\n", r.ID, r.Label, r.CPUPercent, FormatKb(r.ResidentMemoryKb), orDash(r.Container))
		} else {
			fmt.Fprintf(tw, "%d\t%s\t%.1f\t%s\n", r.ID, r.Label, r.CPUPercent, FormatKb(r.ResidentMemoryKb))
		}
	}
	tw.Flush()
	buf.WriteString("\n")

	_, err := p.w.Write(buf.Bytes())
	return err
}

// PrintSkipped writes a one-line notice for a cycle that produced no frame.
func (p *Printer) PrintSkipped(err error) error {
	_, werr := fmt.Fprintf(p.w, "sample skipped: %v\n", err)
	return werr
}

// FormatKb renders a kilobyte count with binary units.
func FormatKb(kb uint64) string {
	return humanize.IBytes(kb * 1024)
}

// FormatUptime renders d as "H:MM:SS", prefixed with days when over one day.
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	days := total / 86400
	h := (total % 86400) / 3600
	m := (total % 3600) / 60
	s := total % 60

	switch {
	case days == 1:
		return fmt.Sprintf("1 day, %d:%02d:%02d", h, m, s)
	case days > 1:
		return fmt.Sprintf("%d days, %d:%02d:%02d", days, h, m, s)
	default:
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
