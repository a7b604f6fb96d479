// Package geoip resolves a request origin address to a coarse geographic
// label for the login history.
package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/Majd-Alhourani98/advanced-auth-system/internal/config"
)

// Location is a coarse geographic label.
type Location struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

// Label renders the location for display, empty when nothing was resolved.
func (l Location) Label() string {
	switch {
	case l.City != "" && l.Country != "":
		return l.City + ", " + l.Country
	case l.Country != "":
		return l.Country
	default:
		return l.City
	}
}

// Client looks up locations against an ip-api style JSON endpoint.
type Client struct {
	endpoint string
	enabled  bool
	http     *http.Client
}

// NewClient creates a geolocation client.
func NewClient(cfg config.GeoIPConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Client{
		endpoint: cfg.Endpoint,
		enabled:  cfg.Enabled,
		http:     &http.Client{Timeout: timeout},
	}
}

// Lookup resolves ip to a location. Private and unparseable addresses, a
// disabled client, and upstream failures all yield the zero Location; the
// login flow never depends on a successful lookup.
func (c *Client) Lookup(ctx context.Context, ip string) (Location, error) {
	if !c.enabled || c.endpoint == "" {
		return Location{}, nil
	}

	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.IsLoopback() || parsed.IsPrivate() {
		return Location{}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.endpoint+"/"+url.PathEscape(ip), nil)
	if err != nil {
		return Location{}, fmt.Errorf("building geoip request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("geoip lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("geoip lookup: unexpected status %d", resp.StatusCode)
	}

	var loc Location
	if err := json.NewDecoder(resp.Body).Decode(&loc); err != nil {
		return Location{}, fmt.Errorf("decoding geoip response: %w", err)
	}
	return loc, nil
}
