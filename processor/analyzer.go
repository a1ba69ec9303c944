// Package processor turns a cycle's snapshot batch into derived market
// metrics: ranked movers, liquidity, volatility and dominance.
package processor

import (
	"math"
	"sort"
	"time"

	"cryptopulse/logger"
	"cryptopulse/models"
)

// Direction selects the ordering of a movers ranking.
type Direction string

const (
	Gainers Direction = "gainers"
	Losers  Direction = "losers"
)

// DefaultTopN is the ranking depth used by Analyze.
const DefaultTopN = 5

// Analyzer computes the per-cycle AnalysisResult set from a snapshot
// batch. All operations are pure; Analyze is the pipeline entry point.
type Analyzer struct {
	topN int
	log  *logger.Log
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{topN: DefaultTopN, log: logger.GetLogger()}
}

// rankAssets returns a copy of snapshot ordered by key (descending when
// descending is true). Ties are broken by higher market cap first, then
// ascending symbol, so every ranking is a total order.
func rankAssets(snapshot []models.AssetSnapshot, key func(models.AssetSnapshot) float64, descending bool) []models.AssetSnapshot {
	ranked := make([]models.AssetSnapshot, len(snapshot))
	copy(ranked, snapshot)

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]

		ka, kb := key(a), key(b)
		if ka != kb {
			if descending {
				return ka > kb
			}
			return ka < kb
		}

		if a.MarketCap != b.MarketCap {
			return a.MarketCap > b.MarketCap
		}

		return a.Symbol < b.Symbol
	})

	return ranked
}

func clampN(n, size int) int {
	if n < 0 {
		return 0
	}
	if n > size {
		return size
	}
	return n
}

func intPtr(v int) *int {
	return &v
}

func computedAt(snapshot []models.AssetSnapshot) time.Time {
	if len(snapshot) == 0 {
		return time.Time{}
	}
	return snapshot[0].FetchedAt
}

// TopMovers ranks up to n assets by 24h percent change, descending for
// gainers and ascending for losers. An empty snapshot yields an empty
// result, never an error.
func (a *Analyzer) TopMovers(snapshot []models.AssetSnapshot, direction Direction, n int) []models.AnalysisResult {
	if len(snapshot) == 0 {
		return nil
	}

	kind := models.MetricTopGainer
	descending := true
	if direction == Losers {
		kind = models.MetricTopLoser
		descending = false
	}

	ranked := rankAssets(snapshot, func(s models.AssetSnapshot) float64 {
		return s.PercentChange24h
	}, descending)

	at := computedAt(snapshot)
	n = clampN(n, len(ranked))
	results := make([]models.AnalysisResult, 0, n)
	for i := 0; i < n; i++ {
		results = append(results, models.AnalysisResult{
			MetricKind: kind,
			Symbol:     ranked[i].Symbol,
			Value:      ranked[i].PercentChange24h,
			Rank:       intPtr(i + 1),
			ComputedAt: at,
		})
	}
	return results
}

// HighestLiquidity ranks up to n assets by 24h trading volume.
func (a *Analyzer) HighestLiquidity(snapshot []models.AssetSnapshot, n int) []models.AnalysisResult {
	if len(snapshot) == 0 {
		return nil
	}

	ranked := rankAssets(snapshot, func(s models.AssetSnapshot) float64 {
		return s.Volume24h
	}, true)

	at := computedAt(snapshot)
	n = clampN(n, len(ranked))
	results := make([]models.AnalysisResult, 0, n)
	for i := 0; i < n; i++ {
		results = append(results, models.AnalysisResult{
			MetricKind: models.MetricHighestLiquidity,
			Symbol:     ranked[i].Symbol,
			Value:      ranked[i].Volume24h,
			Rank:       intPtr(i + 1),
			ComputedAt: at,
		})
	}
	return results
}

// Volatility reports |24h percent change| per asset as a proxy score,
// plus one aggregate row (empty symbol) carrying the mean across all
// assets. Per-asset rows are ordered by score descending.
func (a *Analyzer) Volatility(snapshot []models.AssetSnapshot) []models.AnalysisResult {
	if len(snapshot) == 0 {
		return nil
	}

	ranked := rankAssets(snapshot, func(s models.AssetSnapshot) float64 {
		return math.Abs(s.PercentChange24h)
	}, true)

	at := computedAt(snapshot)
	results := make([]models.AnalysisResult, 0, len(ranked)+1)
	var sum float64
	for _, asset := range ranked {
		score := math.Abs(asset.PercentChange24h)
		sum += score
		results = append(results, models.AnalysisResult{
			MetricKind: models.MetricVolatility,
			Symbol:     asset.Symbol,
			Value:      score,
			ComputedAt: at,
		})
	}

	results = append(results, models.AnalysisResult{
		MetricKind: models.MetricVolatility,
		Value:      sum / float64(len(ranked)),
		ComputedAt: at,
	})
	return results
}

// MarketDominance reports each asset's share of the snapshot's total
// market cap as a ratio in [0,1]. A zero total yields all zeros rather
// than a division fault; the per-asset values otherwise sum to 1 within
// floating point tolerance. Rows are ordered by market cap descending.
func (a *Analyzer) MarketDominance(snapshot []models.AssetSnapshot) []models.AnalysisResult {
	if len(snapshot) == 0 {
		return nil
	}

	total := models.TotalMarketCap(snapshot)
	ranked := rankAssets(snapshot, func(s models.AssetSnapshot) float64 {
		return s.MarketCap
	}, true)

	at := computedAt(snapshot)
	results := make([]models.AnalysisResult, 0, len(ranked))
	for _, asset := range ranked {
		var share float64
		if total > 0 {
			share = asset.MarketCap / total
		}
		results = append(results, models.AnalysisResult{
			MetricKind: models.MetricMarketDominance,
			Symbol:     asset.Symbol,
			Value:      share,
			ComputedAt: at,
		})
	}
	return results
}

// Analyze assembles the full AnalysisResult set for one cycle: top
// gainers and losers, liquidity ranking, volatility and dominance. All
// rows share a ComputedAt equal to the batch's FetchedAt. An empty
// snapshot produces an empty set.
func (a *Analyzer) Analyze(snapshot []models.AssetSnapshot) []models.AnalysisResult {
	if len(snapshot) == 0 {
		a.log.WithComponent("analyzer").Warn("empty snapshot, skipping analysis")
		return nil
	}

	results := make([]models.AnalysisResult, 0, 3*a.topN+2*len(snapshot)+1)
	results = append(results, a.TopMovers(snapshot, Gainers, a.topN)...)
	results = append(results, a.TopMovers(snapshot, Losers, a.topN)...)
	results = append(results, a.HighestLiquidity(snapshot, a.topN)...)
	results = append(results, a.Volatility(snapshot)...)
	results = append(results, a.MarketDominance(snapshot)...)

	a.log.WithComponent("analyzer").WithFields(logger.Fields{
		"assets":  len(snapshot),
		"results": len(results),
	}).Info("analysis complete")

	return results
}
