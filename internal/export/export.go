// Package export writes a finished session out as CSV, PNG plot or HTML
// chart. Every file destination is checked with the security package and
// written through an fsutil.FileSystem.
package export

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/banshee-data/step.report/internal/fsutil"
	"github.com/banshee-data/step.report/internal/security"
	"github.com/banshee-data/step.report/internal/session"
	"github.com/banshee-data/step.report/internal/step"
)

// DefaultCSVPath is where the menu writes the step record.
const DefaultCSVPath = "Steps_Record.csv"

// ErrEmptyTrace is returned when there is no signal to draw.
var ErrEmptyTrace = errors.New("export: empty trace")

// Trace is the subset of a session that plots and charts draw.
type Trace struct {
	Title      string
	SampleRate int
	Filtered   []float64
	Steps      step.Records
}

// TraceOf extracts the drawable parts of s.
func TraceOf(s *session.Session) Trace {
	return Trace{
		Title:      fmt.Sprintf("session %s (seed %d)", s.ID, s.Seed),
		SampleRate: s.Config.SampleRate,
		Filtered:   s.Filtered(),
		Steps:      s.Steps(),
	}
}

func (tr Trace) seconds(tick int) float64 {
	return float64(tick) / float64(tr.SampleRate)
}

// markers returns the filtered value at each valid step's maximum tick.
func (tr Trace) markers() [][2]float64 {
	out := make([][2]float64, 0, len(tr.Steps))
	for _, e := range tr.Steps.Valid() {
		if e.MaxTick < 0 || e.MaxTick >= len(tr.Filtered) {
			continue
		}
		out = append(out, [2]float64{tr.seconds(e.MaxTick), tr.Filtered[e.MaxTick]})
	}
	return out
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// writeFile validates path, creates its parent directory and streams the
// output of write into it. It returns the number of bytes written.
func writeFile(fsys fsutil.FileSystem, path string, write func(io.Writer) error) (n int64, err error) {
	if err := security.ValidateExportPath(path); err != nil {
		return 0, fmt.Errorf("export path: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	f, err := fsys.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	cw := &countingWriter{w: f}
	if err := write(cw); err != nil {
		return cw.n, fmt.Errorf("write %s: %w", path, err)
	}
	return cw.n, nil
}
