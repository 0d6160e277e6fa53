package preview

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/nocap/internal/bvh"
)

// AssetsHost is where the rendered page loads the echarts scripts from.
var AssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// UnknownJointError is returned by RenderChart for a joint name that is not
// in the document's hierarchy.
type UnknownJointError struct {
	Name string
}

func (e *UnknownJointError) Error() string {
	return fmt.Sprintf("unknown joint %q", e.Name)
}

// RenderChart writes an HTML page with one line chart of rotation channels
// per requested joint. An empty joints list charts every joint.
func RenderChart(w io.Writer, doc *bvh.Document, joints []string) error {
	if len(joints) == 0 {
		for _, j := range doc.Hierarchy.Walk() {
			joints = append(joints, j.Name)
		}
	}

	x := make([]string, doc.Frames())
	for i := range x {
		x[i] = strconv.FormatFloat(float64(i)*doc.FrameTime, 'f', 3, 64)
	}
	channels := doc.Hierarchy.RotationOrder().Channels()

	page := components.NewPage()
	page.SetAssetsHost(AssetsHost)
	page.SetPageTitle(fmt.Sprintf("%s motion preview", doc.Hierarchy.Name()))

	for _, name := range joints {
		values, ok := doc.JointChannels(name)
		if !ok {
			return &UnknownJointError{Name: name}
		}

		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "360px", AssetsHost: AssetsHost}),
			charts.WithTitleOpts(opts.Title{Title: name, Subtitle: fmt.Sprintf("frames=%d fps=%.2f", doc.Frames(), 1/doc.FrameTime)}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
			charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
			charts.WithYAxisOpts(opts.YAxis{Min: -180, Max: 180, Name: "deg"}),
			charts.WithXAxisOpts(opts.XAxis{Name: "s"}),
			charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
		)
		line.SetXAxis(x)
		for c, ch := range channels {
			data := make([]opts.LineData, len(values))
			for i, v := range values {
				data[i] = opts.LineData{Value: v[c]}
			}
			line.AddSeries(ch, data, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
		}
		page.AddCharts(line)
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
