// Package preview renders exported motion as PNG plots and HTML charts for
// checking a capture before it goes into a DCC tool.
package preview

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/nocap/internal/bvh"
)

var axisColors = [3]color.Color{
	color.RGBA{R: 214, G: 39, B: 40, A: 255},
	color.RGBA{R: 44, G: 160, B: 44, A: 255},
	color.RGBA{R: 31, G: 119, B: 180, A: 255},
}

// PlotChannels writes one PNG per joint with its three rotation channels
// over time, a root trajectory plot and an overview of rotation magnitude
// for every joint. It returns the written file paths.
func PlotChannels(doc *bvh.Document, dir string) ([]string, error) {
	if doc.Frames() == 0 {
		return nil, fmt.Errorf("no frames to plot")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create plot dir: %w", err)
	}

	var files []string
	channels := doc.Hierarchy.RotationOrder().Channels()
	for _, j := range doc.Hierarchy.Walk() {
		values, _ := doc.JointChannels(j.Name)
		p := plot.New()
		p.Title.Text = fmt.Sprintf("%s - rotation", j.Name)
		p.X.Label.Text = "Time (s)"
		p.Y.Label.Text = "Angle (deg)"
		p.Y.Min, p.Y.Max = -180, 180

		for c := 0; c < 3; c++ {
			pts := make(plotter.XYs, len(values))
			for i, v := range values {
				pts[i] = plotter.XY{X: float64(i) * doc.FrameTime, Y: v[c]}
			}
			line, err := plotter.NewLine(pts)
			if err != nil {
				return files, fmt.Errorf("%s line: %w", j.Name, err)
			}
			line.Color = axisColors[axisIndex(channels[c])]
			line.Width = vg.Points(1)
			p.Add(line)
			p.Legend.Add(channels[c], line)
		}
		placeLegend(p)

		file := filepath.Join(dir, fmt.Sprintf("joint_%s.png", j.Name))
		if err := p.Save(14*vg.Inch, 6*vg.Inch, file); err != nil {
			return files, fmt.Errorf("save %s plot: %w", j.Name, err)
		}
		files = append(files, file)
	}

	file, err := plotTrajectory(doc, dir)
	if err != nil {
		return files, err
	}
	files = append(files, file)

	file, err = plotOverview(doc, dir)
	if err != nil {
		return files, err
	}
	return append(files, file), nil
}

// plotTrajectory draws the root path seen from above.
func plotTrajectory(doc *bvh.Document, dir string) (string, error) {
	p := plot.New()
	p.Title.Text = "Root trajectory (top view)"
	p.X.Label.Text = "X (cm)"
	p.Y.Label.Text = "Z (cm)"

	root := doc.RootPositions()
	pts := make(plotter.XYs, len(root))
	for i, r := range root {
		pts[i] = plotter.XY{X: r[0], Y: r[2]}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return "", fmt.Errorf("trajectory line: %w", err)
	}
	line.Width = vg.Points(1.5)
	p.Add(line)

	file := filepath.Join(dir, "root_trajectory.png")
	if err := p.Save(8*vg.Inch, 8*vg.Inch, file); err != nil {
		return "", fmt.Errorf("save trajectory plot: %w", err)
	}
	return file, nil
}

// plotOverview draws the total rotation angle of every joint on one chart.
func plotOverview(doc *bvh.Document, dir string) (string, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - rotation magnitude", doc.Hierarchy.Name())
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Angle (deg)"

	walk := doc.Hierarchy.Walk()
	colors := generateColors(len(walk))
	for k, j := range walk {
		values, _ := doc.JointChannels(j.Name)
		pts := make(plotter.XYs, len(values))
		for i, v := range values {
			pts[i] = plotter.XY{X: float64(i) * doc.FrameTime, Y: math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return "", fmt.Errorf("%s overview line: %w", j.Name, err)
		}
		line.Color = colors[k]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(j.Name, line)
	}
	placeLegend(p)

	file := filepath.Join(dir, "overview.png")
	if err := p.Save(14*vg.Inch, 8*vg.Inch, file); err != nil {
		return "", fmt.Errorf("save overview plot: %w", err)
	}
	return file, nil
}

func placeLegend(p *plot.Plot) {
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
}

func axisIndex(channel string) int {
	switch {
	case strings.HasPrefix(channel, "X"):
		return 0
	case strings.HasPrefix(channel, "Y"):
		return 1
	default:
		return 2
	}
}

// generateColors returns n evenly spaced hues.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		r, g, b := hslToRGB(float64(i)/float64(n), 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL in [0,1] to 8-bit RGB.
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	if s == 0 {
		v := uint8(l * 255)
		return v, v, v
	}
	q := l + s - l*s
	if l < 0.5 {
		q = l * (1 + s)
	}
	p := 2*l - q
	return uint8(hueToRGB(p, q, h+1.0/3.0) * 255),
		uint8(hueToRGB(p, q, h) * 255),
		uint8(hueToRGB(p, q, h-1.0/3.0) * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
