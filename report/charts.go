package report

import (
	"bytes"
	"fmt"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"cryptopulse/models"
)

const chartBars = 10

// RenderChart draws the cycle's market picture as a 2x2 PNG panel:
// market caps, 24h movers, 24h volumes and market dominance.
func RenderChart(snapshot []models.AssetSnapshot, results []models.AnalysisResult) ([]byte, error) {
	if len(snapshot) == 0 {
		return nil, fmt.Errorf("no snapshot data to chart")
	}
	groups := models.ByKind(results)

	capPlot, err := marketCapPlot(snapshot)
	if err != nil {
		return nil, err
	}
	moversPlot, err := moversPlot(groups[models.MetricTopGainer], groups[models.MetricTopLoser])
	if err != nil {
		return nil, err
	}
	volumePlot, err := liquidityPlot(groups[models.MetricHighestLiquidity])
	if err != nil {
		return nil, err
	}
	dominancePlot, err := dominancePlot(groups[models.MetricMarketDominance])
	if err != nil {
		return nil, err
	}

	plots := [][]*plot.Plot{
		{capPlot, moversPlot},
		{volumePlot, dominancePlot},
	}

	img := vgimg.New(12*vg.Inch, 8*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: 2,
		Cols: 2,
		PadX: vg.Millimeter * 4,
		PadY: vg.Millimeter * 4,
	}
	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		for j, p := range plots[i] {
			if p != nil {
				p.Draw(canvases[i][j])
			}
		}
	}

	var buf bytes.Buffer
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode chart: %w", err)
	}
	return buf.Bytes(), nil
}

func marketCapPlot(snapshot []models.AssetSnapshot) (*plot.Plot, error) {
	ranked := make([]models.AssetSnapshot, len(snapshot))
	copy(ranked, snapshot)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].MarketCap != ranked[j].MarketCap {
			return ranked[i].MarketCap > ranked[j].MarketCap
		}
		return ranked[i].Symbol < ranked[j].Symbol
	})
	if len(ranked) > chartBars {
		ranked = ranked[:chartBars]
	}

	values := make(plotter.Values, len(ranked))
	labels := make([]string, len(ranked))
	for i, s := range ranked {
		values[i] = s.MarketCap / 1e9
		labels[i] = s.Symbol
	}
	return barPlot("Market Cap (top assets)", "USD billions", values, labels, 0)
}

func moversPlot(gainers, losers []models.AnalysisResult) (*plot.Plot, error) {
	rows := append(append([]models.AnalysisResult{}, gainers...), losers...)
	values := make(plotter.Values, len(rows))
	labels := make([]string, len(rows))
	for i, r := range rows {
		values[i] = r.Value
		labels[i] = r.Symbol
	}
	return barPlot("24h Movers", "% change", values, labels, 1)
}

func liquidityPlot(rows []models.AnalysisResult) (*plot.Plot, error) {
	if len(rows) > chartBars {
		rows = rows[:chartBars]
	}
	values := make(plotter.Values, len(rows))
	labels := make([]string, len(rows))
	for i, r := range rows {
		values[i] = r.Value / 1e9
		labels[i] = r.Symbol
	}
	return barPlot("24h Volume (most liquid)", "USD billions", values, labels, 2)
}

func dominancePlot(rows []models.AnalysisResult) (*plot.Plot, error) {
	if len(rows) > chartBars {
		rows = rows[:chartBars]
	}
	values := make(plotter.Values, len(rows))
	labels := make([]string, len(rows))
	for i, r := range rows {
		values[i] = r.Value * 100
		labels[i] = r.Symbol
	}
	return barPlot("Market Dominance", "% of total cap", values, labels, 3)
}

func barPlot(title, yLabel string, values plotter.Values, labels []string, colorIdx int) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = yLabel
	p.X.Tick.Label.Rotation = -0.6
	p.X.Tick.Label.XAlign = draw.XLeft

	if len(values) > 0 {
		bars, err := plotter.NewBarChart(values, vg.Points(18))
		if err != nil {
			return nil, fmt.Errorf("failed to build bar chart %q: %w", title, err)
		}
		bars.LineStyle.Width = 0
		bars.Color = plotutil.Color(colorIdx)
		p.Add(bars)
		p.NominalX(labels...)
	}
	return p, nil
}
