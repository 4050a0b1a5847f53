// Package geocode resolves coordinates to place names.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/signalsfoundry/orbit-tracker/model"
)

const maxBodyBytes = 1 << 20

// Nominatim is a reverse geocoder backed by an OpenStreetMap Nominatim
// instance. Nominatim's usage policy requires an identifying User-Agent.
type Nominatim struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewNominatim returns a client for baseURL, e.g.
// https://nominatim.openstreetmap.org. A nil client means http.DefaultClient.
func NewNominatim(baseURL, userAgent string, client *http.Client) *Nominatim {
	if client == nil {
		client = http.DefaultClient
	}
	return &Nominatim{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    client,
	}
}

type reverseResponse struct {
	Error   string `json:"error"`
	Address struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
	} `json:"address"`
}

// Resolve implements tracker.PlaceResolver. Positions over open water or
// unnamed land yield ok == false and no error.
func (n *Nominatim) Resolve(ctx context.Context, c model.Coordinates) (string, bool, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(c.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(c.Longitude, 'f', -1, 64))
	q.Set("zoom", "10")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("nominatim: status %d", resp.StatusCode)
	}

	var body reverseResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return "", false, fmt.Errorf("nominatim: decode: %w", err)
	}
	// Nominatim answers {"error":"Unable to geocode"} over the ocean.
	if body.Error != "" {
		return "", false, nil
	}
	for _, name := range []string{body.Address.City, body.Address.Town, body.Address.Village} {
		if name != "" {
			return name, true, nil
		}
	}
	return "", false, nil
}
