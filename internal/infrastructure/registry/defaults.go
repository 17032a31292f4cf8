package registry

import "geolatency/internal/core/domain"

// builtinNodes places each exchange at the cloud region hosting its matching engine.
var builtinNodes = []domain.Node{
	{Name: "Binance", Lat: 35.6762, Lng: 139.6503, Provider: domain.ProviderAWS, Country: "JP", Region: "ap-northeast-1"},
	{Name: "OKX", Lat: 22.3193, Lng: 114.1694, Provider: domain.ProviderAWS, Country: "HK", Region: "ap-east-1"},
	{Name: "Bybit", Lat: 1.3521, Lng: 103.8198, Provider: domain.ProviderAWS, Country: "SG", Region: "ap-southeast-1"},
	{Name: "Deribit", Lat: 51.5074, Lng: -0.1278, Provider: domain.ProviderGCP, Country: "GB", Region: "europe-west2"},
	{Name: "Coinbase", Lat: 39.0438, Lng: -77.4874, Provider: domain.ProviderAWS, Country: "US", Region: "us-east-1"},
	{Name: "Kraken", Lat: 37.7749, Lng: -122.4194, Provider: domain.ProviderGCP, Country: "US", Region: "us-west1"},
	{Name: "Bitstamp", Lat: 50.1109, Lng: 8.6821, Provider: domain.ProviderAzure, Country: "DE", Region: "germanywestcentral"},
	{Name: "Gemini", Lat: 40.7128, Lng: -74.0060, Provider: domain.ProviderGCP, Country: "US", Region: "us-east4"},
	{Name: "Bitfinex", Lat: 47.3769, Lng: 8.5417, Provider: domain.ProviderAzure, Country: "CH", Region: "switzerlandnorth"},
	{Name: "Upbit", Lat: 37.5665, Lng: 126.9780, Provider: domain.ProviderAzure, Country: "KR", Region: "koreacentral"},
	{Name: "KuCoin", Lat: 1.2903, Lng: 103.8520, Provider: domain.ProviderGCP, Country: "SG", Region: "asia-southeast1"},
}

// Default returns the built-in exchange registry.
func Default() *Registry {
	r, err := New(builtinNodes)
	if err != nil {
		panic("registry: invalid built-in nodes: " + err.Error())
	}
	return r
}
