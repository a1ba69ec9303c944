package models

import (
	"time"
)

// MetricKind identifies one of the derived market metrics.
type MetricKind string

const (
	MetricTopGainer        MetricKind = "top_gainer"
	MetricTopLoser         MetricKind = "top_loser"
	MetricHighestLiquidity MetricKind = "highest_liquidity"
	MetricVolatility       MetricKind = "volatility"
	MetricMarketDominance  MetricKind = "market_dominance"
)

// MetricKinds lists all kinds in report order.
var MetricKinds = []MetricKind{
	MetricTopGainer,
	MetricTopLoser,
	MetricHighestLiquidity,
	MetricVolatility,
	MetricMarketDominance,
}

// AnalysisResult is one metric row produced for a cycle. Symbol is empty
// for aggregate rows (market-wide volatility); Rank is nil for unranked
// kinds. Ranked kinds carry a contiguous sequence starting at 1.
// ComputedAt equals the FetchedAt of the snapshot batch the row was
// derived from, so it is monotonically non-decreasing across cycles.
type AnalysisResult struct {
	ID         uint       `json:"-" gorm:"primaryKey"`
	MetricKind MetricKind `json:"metric_kind" gorm:"index;not null;uniqueIndex:idx_metric_symbol_computed"`
	Symbol     string     `json:"symbol" gorm:"uniqueIndex:idx_metric_symbol_computed"`
	Value      float64    `json:"value"`
	Rank       *int       `json:"rank,omitempty"`
	ComputedAt time.Time  `json:"computed_at" gorm:"index;not null;uniqueIndex:idx_metric_symbol_computed"`
}

// ByKind groups results preserving input order within each kind.
func ByKind(results []AnalysisResult) map[MetricKind][]AnalysisResult {
	grouped := make(map[MetricKind][]AnalysisResult)
	for _, r := range results {
		grouped[r.MetricKind] = append(grouped[r.MetricKind], r)
	}
	return grouped
}
