package models

// CMCListingsResponse is the wire shape of the CoinMarketCap
// /v1/cryptocurrency/listings/latest endpoint, reduced to the fields
// this system consumes.
type CMCListingsResponse struct {
	Status CMCStatus    `json:"status"`
	Data   []CMCListing `json:"data"`
}

// CMCStatus carries the provider-side error envelope.
type CMCStatus struct {
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// CMCListing is a single asset entry in the listings response.
type CMCListing struct {
	ID     int64            `json:"id"`
	Name   string           `json:"name"`
	Symbol string           `json:"symbol"`
	Quote  map[string]Quote `json:"quote"`
}

// Quote is the per-currency quote block (keyed by "USD").
type Quote struct {
	Price            float64 `json:"price"`
	MarketCap        float64 `json:"market_cap"`
	Volume24h        float64 `json:"volume_24h"`
	PercentChange1h  float64 `json:"percent_change_1h"`
	PercentChange24h float64 `json:"percent_change_24h"`
	PercentChange7d  float64 `json:"percent_change_7d"`
}
