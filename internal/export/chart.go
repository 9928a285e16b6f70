package export

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/step.report/internal/fsutil"
)

// AssetsHost serves the echarts javascript referenced by rendered pages.
const AssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// RenderChart writes an interactive HTML line chart of the filtered signal
// with the valid steps overlaid as a scatter series.
func RenderChart(w io.Writer, tr Trace) error {
	if len(tr.Filtered) == 0 || tr.SampleRate <= 0 {
		return ErrEmptyTrace
	}

	data := make([]opts.LineData, len(tr.Filtered))
	for i, v := range tr.Filtered {
		data[i] = opts.LineData{Value: []interface{}{tr.seconds(i), v}}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Step detection", Width: "100%", Height: "600px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Filtered magnitude", Subtitle: fmt.Sprintf("%s steps=%d", tr.Title, tr.Steps.Total())}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "Time (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "g", Scale: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 10}),
	)
	line.AddSeries("filtered", data, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))

	marks := tr.markers()
	if len(marks) > 0 {
		pts := make([]opts.ScatterData, len(marks))
		for i, m := range marks {
			pts[i] = opts.ScatterData{Value: []interface{}{m[0], m[1]}}
		}
		scatter := charts.NewScatter()
		scatter.AddSeries("steps", pts, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
		line.Overlap(scatter)
	}

	return line.Render(w)
}

// WriteChartFile renders the chart to path.
func WriteChartFile(fsys fsutil.FileSystem, path string, tr Trace) (int64, error) {
	return writeFile(fsys, path, func(w io.Writer) error {
		return RenderChart(w, tr)
	})
}
