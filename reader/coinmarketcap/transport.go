package coinmarketcap

import "net/http"

// apiKeyTransport injects the CoinMarketCap API key header into every
// outgoing request.
type apiKeyTransport struct {
	apiKey string
	base   http.RoundTripper
}

func (t apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("X-CMC_PRO_API_KEY", t.apiKey)
	req.Header.Set("Accept", "application/json")
	return t.base.RoundTrip(req)
}
