package viz

import (
	"fmt"
	"image/color"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/bbejczy/polarseg-kitti/internal/semkitti"
)

// SaveBEVPlot draws a top-down view of one labeled scan, one scatter series
// per raw class, and writes it to path as a PNG. Instance bits in labels are
// ignored.
func SaveBEVPlot(cloud semkitti.PointCloud, labels semkitti.PointLabels, lm *semkitti.LabelMap, title, path string) error {
	if len(labels) != len(cloud) {
		return fmt.Errorf("scan has %d points but %d labels", len(cloud), len(labels))
	}

	byClass := make(map[uint32]plotter.XYs)
	for i, pt := range cloud {
		c := semkitti.Semantic(labels[i])
		byClass[c] = append(byClass[c], plotter.XY{X: float64(pt.X), Y: float64(pt.Y)})
	}

	classes := make([]uint32, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"

	palette := classPalette(len(classes))
	for i, c := range classes {
		s, err := plotter.NewScatter(byClass[c])
		if err != nil {
			return fmt.Errorf("class %d: %w", c, err)
		}
		s.GlyphStyle.Color = palette[i]
		s.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(s)

		name := lm.Name(c)
		if name == "" {
			name = fmt.Sprintf("class %d", c)
		}
		p.Legend.Add(name, s)
	}
	p.Legend.Top = true
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	return p.Save(10*vg.Inch, 10*vg.Inch, path)
}

// classPalette spreads n distinct hues around the HSL wheel.
func classPalette(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64
	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}
	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
