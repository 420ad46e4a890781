// Package viz renders evaluation results and BEV scans as charts and images.
// It is used by the results server and the command-line tools; nothing in the
// pipeline itself depends on it.
package viz

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/bbejczy/polarseg-kitti/internal/eval"
)

// IoUBarChart builds a bar chart of per-class IoU percentages. Classes that
// never appeared render as gaps rather than zeros.
func IoUBarChart(res *eval.Result, title, subtitle string) *charts.Bar {
	x := make([]string, 0, len(res.Classes))
	y := make([]opts.BarData, 0, len(res.Classes))
	for _, c := range res.Classes {
		x = append(x, c.Name)
		if math.IsNaN(c.IoU) {
			y = append(y, opts.BarData{Value: "-"})
			continue
		}
		y = append(y, opts.BarData{Value: math.Round(c.IoU*10000) / 100})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "IoU (%)", Min: 0, Max: 100}),
	)
	bar.SetXAxis(x).
		AddSeries("IoU", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

// FormatMeanIoU renders the headline number for titles and logs.
func FormatMeanIoU(res *eval.Result) string {
	if math.IsNaN(res.MeanIoU) {
		return "mIoU n/a"
	}
	return fmt.Sprintf("mIoU %.2f%%", res.MeanIoU*100)
}

// WriteIoUReport renders the per-class chart into w as a standalone HTML page.
func WriteIoUReport(w io.Writer, res *eval.Result, title string) error {
	subtitle := fmt.Sprintf("%s over %d points", FormatMeanIoU(res), res.Points)
	page := components.NewPage()
	page.AddCharts(IoUBarChart(res, title, subtitle))
	return page.Render(w)
}
