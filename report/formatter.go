// Package report renders analysis output for delivery: a Markdown text
// report built from persisted rows plus a PNG chart. Formatting never
// recomputes metrics; it presents what the processor stored.
package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"cryptopulse/models"
)

const alertThreshold1h = 10.0

// Reporter bundles the text formatter with the chart renderer.
type Reporter struct {
	*Formatter
}

func NewReporter(topN int) *Reporter {
	return &Reporter{Formatter: NewFormatter(topN)}
}

func (r *Reporter) RenderChart(snapshot []models.AssetSnapshot, results []models.AnalysisResult) ([]byte, error) {
	return RenderChart(snapshot, results)
}

// Formatter turns a snapshot and its analysis rows into report text.
type Formatter struct {
	topN int
}

func NewFormatter(topN int) *Formatter {
	if topN <= 0 {
		topN = 10
	}
	return &Formatter{topN: topN}
}

// BuildReport assembles the full report: overview, top coins by market
// cap, the stored analysis sections and the consistent-trend list.
// Alerts are not part of the report; they travel as their own message.
func (f *Formatter) BuildReport(snapshot []models.AssetSnapshot, results []models.AnalysisResult, at time.Time) string {
	sections := []string{
		fmt.Sprintf("*Crypto Market Report*\n_%s_", at.UTC().Format("2006-01-02 15:04 UTC")),
		f.MarketOverview(snapshot),
		f.TopCoins(snapshot),
		f.DetailedAnalysis(results),
	}
	if trends := f.ConsistentTrends(snapshot); trends != "" {
		sections = append(sections, trends)
	}
	return strings.Join(sections, "\n\n")
}

// MarketOverview summarises the snapshot: totals, mean changes and the
// split between advancing and declining assets.
func (f *Formatter) MarketOverview(snapshot []models.AssetSnapshot) string {
	if len(snapshot) == 0 {
		return "*Market Overview*\nNo data available."
	}

	var sum24h, sum7d float64
	var up, down int
	for _, s := range snapshot {
		sum24h += s.PercentChange24h
		sum7d += s.PercentChange7d
		if s.PercentChange24h > 0 {
			up++
		} else {
			down++
		}
	}
	n := float64(len(snapshot))

	var b strings.Builder
	b.WriteString("*Market Overview*\n")
	fmt.Fprintf(&b, "Assets tracked: %d\n", len(snapshot))
	fmt.Fprintf(&b, "Total market cap: %s\n", formatUSD(models.TotalMarketCap(snapshot)))
	fmt.Fprintf(&b, "Total 24h volume: %s\n", formatUSD(models.TotalVolume24h(snapshot)))
	fmt.Fprintf(&b, "Average 24h change: %+.2f%%\n", sum24h/n)
	fmt.Fprintf(&b, "Average 7d change: %+.2f%%\n", sum7d/n)
	fmt.Fprintf(&b, "Advancing/declining: %d/%d", up, down)
	return b.String()
}

// TopCoins lists the largest assets by market cap.
func (f *Formatter) TopCoins(snapshot []models.AssetSnapshot) string {
	if len(snapshot) == 0 {
		return ""
	}

	ranked := make([]models.AssetSnapshot, len(snapshot))
	copy(ranked, snapshot)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].MarketCap != ranked[j].MarketCap {
			return ranked[i].MarketCap > ranked[j].MarketCap
		}
		return ranked[i].Symbol < ranked[j].Symbol
	})
	if len(ranked) > f.topN {
		ranked = ranked[:f.topN]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*Top %d by Market Cap*\n", len(ranked))
	for i, s := range ranked {
		fmt.Fprintf(&b, "%d. %s: %s (%+.2f%% 24h, cap %s, vol %s)\n",
			i+1, s.Symbol, formatUSD(s.PriceUSD), s.PercentChange24h,
			formatUSD(s.MarketCap), formatUSD(s.Volume24h))
	}
	return strings.TrimRight(b.String(), "\n")
}

// DetailedAnalysis renders the stored analysis rows section by section.
func (f *Formatter) DetailedAnalysis(results []models.AnalysisResult) string {
	if len(results) == 0 {
		return "*Analysis*\nNo analysis available."
	}
	groups := models.ByKind(results)

	var b strings.Builder
	b.WriteString("*Analysis*")

	if rows := groups[models.MetricTopGainer]; len(rows) > 0 {
		b.WriteString("\n\n_Top gainers (24h)_\n")
		writeRankedRows(&b, rows, "%+.2f%%")
	}
	if rows := groups[models.MetricTopLoser]; len(rows) > 0 {
		b.WriteString("\n\n_Top losers (24h)_\n")
		writeRankedRows(&b, rows, "%+.2f%%")
	}
	if rows := groups[models.MetricHighestLiquidity]; len(rows) > 0 {
		b.WriteString("\n\n_Highest liquidity (24h volume)_\n")
		for _, r := range rows {
			rank := 0
			if r.Rank != nil {
				rank = *r.Rank
			}
			fmt.Fprintf(&b, "%d. %s: %s\n", rank, r.Symbol, formatUSD(r.Value))
		}
	}
	if rows := groups[models.MetricVolatility]; len(rows) > 0 {
		b.WriteString("\n\n_Volatility (|24h change|)_\n")
		// Rows arrive ordered by score; only the most volatile few and
		// the market-wide average are worth a chat line.
		shown := 0
		for _, r := range rows {
			if r.Symbol == "" {
				fmt.Fprintf(&b, "Market average: %.2f%%\n", r.Value)
				continue
			}
			if shown >= 5 {
				continue
			}
			fmt.Fprintf(&b, "%s: %.2f%%\n", r.Symbol, r.Value)
			shown++
		}
	}
	if rows := groups[models.MetricMarketDominance]; len(rows) > 0 {
		b.WriteString("\n\n_Market dominance_\n")
		shown := rows
		if len(shown) > f.topN {
			shown = shown[:f.topN]
		}
		for _, r := range shown {
			fmt.Fprintf(&b, "%s: %.2f%%\n", r.Symbol, r.Value*100)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// ConsistentTrends lists assets whose 1h, 24h and 7d changes all point
// the same way, the snapshot's strongest hint of a sustained move. At
// most five assets, largest market cap first.
func (f *Formatter) ConsistentTrends(snapshot []models.AssetSnapshot) string {
	var hits []models.AssetSnapshot
	for _, s := range snapshot {
		allUp := s.PercentChange1h > 0 && s.PercentChange24h > 0 && s.PercentChange7d > 0
		allDown := s.PercentChange1h < 0 && s.PercentChange24h < 0 && s.PercentChange7d < 0
		if allUp || allDown {
			hits = append(hits, s)
		}
	}
	if len(hits) == 0 {
		return ""
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].MarketCap != hits[j].MarketCap {
			return hits[i].MarketCap > hits[j].MarketCap
		}
		return hits[i].Symbol < hits[j].Symbol
	})
	if len(hits) > 5 {
		hits = hits[:5]
	}

	var b strings.Builder
	b.WriteString("*Consistent Trends*\n")
	for _, s := range hits {
		direction := "up"
		if s.PercentChange24h < 0 {
			direction = "down"
		}
		fmt.Fprintf(&b, "%s trending %s: %+.2f%% 1h, %+.2f%% 24h, %+.2f%% 7d\n",
			s.Symbol, direction, s.PercentChange1h, s.PercentChange24h, s.PercentChange7d)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Alerts flags assets that moved more than the 1h threshold in either
// direction since the previous hour.
func (f *Formatter) Alerts(snapshot []models.AssetSnapshot) string {
	var hits []models.AssetSnapshot
	for _, s := range snapshot {
		if math.Abs(s.PercentChange1h) > alertThreshold1h {
			hits = append(hits, s)
		}
	}
	if len(hits) == 0 {
		return ""
	}
	sort.Slice(hits, func(i, j int) bool {
		if math.Abs(hits[i].PercentChange1h) != math.Abs(hits[j].PercentChange1h) {
			return math.Abs(hits[i].PercentChange1h) > math.Abs(hits[j].PercentChange1h)
		}
		return hits[i].Symbol < hits[j].Symbol
	})

	var b strings.Builder
	b.WriteString("*Price Alerts (1h)*\n")
	for _, s := range hits {
		fmt.Fprintf(&b, "%s moved %+.2f%% in the last hour (now %s)\n", s.Symbol, s.PercentChange1h, formatUSD(s.PriceUSD))
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeRankedRows(b *strings.Builder, rows []models.AnalysisResult, valueFormat string) {
	for _, r := range rows {
		rank := 0
		if r.Rank != nil {
			rank = *r.Rank
		}
		fmt.Fprintf(b, "%d. %s: "+valueFormat+"\n", rank, r.Symbol, r.Value)
	}
}

// formatUSD renders a dollar amount with a magnitude suffix so large
// caps stay readable in chat messages.
func formatUSD(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e12:
		return fmt.Sprintf("$%.2fT", v/1e12)
	case abs >= 1e9:
		return fmt.Sprintf("$%.2fB", v/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("$%.2fM", v/1e6)
	case abs >= 1:
		return fmt.Sprintf("$%.2f", v)
	default:
		return fmt.Sprintf("$%.6f", v)
	}
}
