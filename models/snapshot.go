package models

import (
	"time"
)

// AssetSnapshot is one asset row from a single fetch cycle. Rows are
// append-only: within a cycle Symbol is unique, across cycles
// (Symbol, FetchedAt) is unique and never overwritten.
type AssetSnapshot struct {
	ID               uint      `json:"-" gorm:"primaryKey"`
	Symbol           string    `json:"symbol" gorm:"index;not null;uniqueIndex:idx_symbol_fetched"`
	Name             string    `json:"name"`
	PriceUSD         float64   `json:"price_usd"`
	PercentChange1h  float64   `json:"percent_change_1h"`
	PercentChange24h float64   `json:"percent_change_24h"`
	PercentChange7d  float64   `json:"percent_change_7d"`
	Volume24h        float64   `json:"volume_24h"`
	MarketCap        float64   `json:"market_cap"`
	FetchedAt        time.Time `json:"fetched_at" gorm:"index;not null;uniqueIndex:idx_symbol_fetched"`
}

// TotalMarketCap sums market cap over the snapshot.
func TotalMarketCap(snapshot []AssetSnapshot) float64 {
	var total float64
	for _, a := range snapshot {
		total += a.MarketCap
	}
	return total
}

// TotalVolume24h sums 24h volume over the snapshot.
func TotalVolume24h(snapshot []AssetSnapshot) float64 {
	var total float64
	for _, a := range snapshot {
		total += a.Volume24h
	}
	return total
}
