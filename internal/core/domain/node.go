package domain

import (
	"fmt"
	"strings"

	"geolatency/pkg/geo"
)

type NodeName string

type Provider string

const (
	ProviderAWS   Provider = "AWS"
	ProviderAzure Provider = "Azure"
	ProviderGCP   Provider = "GCP"
)

// Providers lists every supported provider in display order.
var Providers = []Provider{ProviderAWS, ProviderAzure, ProviderGCP}

var providerColors = map[Provider]string{
	ProviderAWS:   "#ff9900",
	ProviderAzure: "#008ad7",
	ProviderGCP:   "#4285f4",
}

// ParseProvider matches a provider name case-insensitively.
func ParseProvider(s string) (Provider, error) {
	for _, p := range Providers {
		if strings.EqualFold(string(p), strings.TrimSpace(s)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidProvider, s)
}

// Color returns the provider's brand color, white for unknown providers.
func (p Provider) Color() string {
	if c, ok := providerColors[p]; ok {
		return c
	}
	return "#ffffff"
}

// Node is a fixed, named location hosting an exchange.
type Node struct {
	Name     NodeName `json:"name" yaml:"name"`
	Lat      float64  `json:"lat" yaml:"lat"`
	Lng      float64  `json:"lng" yaml:"lng"`
	Provider Provider `json:"provider" yaml:"provider"`
	Country  string   `json:"country,omitempty" yaml:"country,omitempty"`
	Region   string   `json:"region,omitempty" yaml:"region,omitempty"`
}

func (n Node) Point() geo.Point {
	return geo.Point{Lat: n.Lat, Lng: n.Lng}
}
