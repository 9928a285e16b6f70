package export

import (
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/step.report/internal/fsutil"
)

const (
	plotWidth  = 14 * vg.Inch
	plotHeight = 6 * vg.Inch
)

// WritePlot renders the filtered magnitude with a marker at every valid
// step's maximum as a PNG.
func WritePlot(w io.Writer, tr Trace) error {
	if len(tr.Filtered) == 0 || tr.SampleRate <= 0 {
		return ErrEmptyTrace
	}

	p := plot.New()
	p.Title.Text = tr.Title
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Filtered magnitude (g)"
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(tr.Filtered))
	for i, v := range tr.Filtered {
		pts[i] = plotter.XY{X: tr.seconds(i), Y: v}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	line.Width = vg.Points(0.5)
	p.Add(line)
	p.Legend.Add("filtered", line)

	if marks := tr.markers(); len(marks) > 0 {
		stepPts := make(plotter.XYs, len(marks))
		for i, m := range marks {
			stepPts[i] = plotter.XY{X: m[0], Y: m[1]}
		}
		scatter, err := plotter.NewScatter(stepPts)
		if err != nil {
			return err
		}
		scatter.GlyphStyle.Color = color.RGBA{R: 214, G: 39, B: 40, A: 255}
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		scatter.GlyphStyle.Radius = vg.Points(2)
		p.Add(scatter)
		p.Legend.Add("step", scatter)
	}
	p.Legend.Top = true

	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// WritePlotFile renders the plot to path.
func WritePlotFile(fsys fsutil.FileSystem, path string, tr Trace) (int64, error) {
	return writeFile(fsys, path, func(w io.Writer) error {
		return WritePlot(w, tr)
	})
}
