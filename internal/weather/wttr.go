// Package weather looks up current conditions for a place.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/signalsfoundry/orbit-tracker/model"
)

// ErrNoConditions is returned when the service answers without a current
// condition block.
var ErrNoConditions = errors.New("no current conditions")

const maxBodyBytes = 4 << 20

// Wttr queries a wttr.in compatible service using its j1 JSON format.
type Wttr struct {
	baseURL string
	units   model.Units
	client  *http.Client
}

// NewWttr returns a client for baseURL reporting in units. A nil client
// means http.DefaultClient.
func NewWttr(baseURL string, units model.Units, client *http.Client) *Wttr {
	if client == nil {
		client = http.DefaultClient
	}
	if units == "" {
		units = model.Metric
	}
	return &Wttr{baseURL: strings.TrimRight(baseURL, "/"), units: units, client: client}
}

type j1Response struct {
	CurrentCondition []struct {
		TempC          string `json:"temp_C"`
		TempF          string `json:"temp_F"`
		FeelsLikeC     string `json:"FeelsLikeC"`
		FeelsLikeF     string `json:"FeelsLikeF"`
		Humidity       string `json:"humidity"`
		WindspeedKmph  string `json:"windspeedKmph"`
		WindspeedMiles string `json:"windspeedMiles"`
		WeatherDesc    []struct {
			Value string `json:"value"`
		} `json:"weatherDesc"`
	} `json:"current_condition"`
}

// Lookup implements tracker.WeatherProvider.
func (w *Wttr) Lookup(ctx context.Context, place string) (model.WeatherSummary, error) {
	endpoint := w.baseURL + "/" + url.PathEscape(place) + "?format=j1"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.WeatherSummary{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return model.WeatherSummary{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return model.WeatherSummary{}, fmt.Errorf("wttr: status %d", resp.StatusCode)
	}

	var body j1Response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return model.WeatherSummary{}, fmt.Errorf("wttr: decode: %w", err)
	}
	if len(body.CurrentCondition) == 0 {
		return model.WeatherSummary{}, ErrNoConditions
	}
	cc := body.CurrentCondition[0]

	temp, feels, wind := cc.TempC, cc.FeelsLikeC, cc.WindspeedKmph
	if w.units == model.Imperial {
		temp, feels, wind = cc.TempF, cc.FeelsLikeF, cc.WindspeedMiles
	}

	var p numberParser
	s := model.WeatherSummary{
		Place:       place,
		Temperature: p.float("temperature", temp),
		FeelsLike:   p.float("feels like", feels),
		HumidityPct: int(p.float("humidity", cc.Humidity)),
		WindSpeed:   p.float("wind speed", wind),
		Units:       w.units,
	}
	if p.err != nil {
		return model.WeatherSummary{}, fmt.Errorf("wttr: %w", p.err)
	}
	if len(cc.WeatherDesc) > 0 {
		s.Description = strings.TrimSpace(cc.WeatherDesc[0].Value)
	}
	return s, nil
}

// numberParser keeps the first parse error so a block of fields can be
// parsed before checking.
type numberParser struct {
	err error
}

func (p *numberParser) float(field, raw string) float64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		p.err = fmt.Errorf("%s %q: %w", field, raw, err)
		return 0
	}
	return v
}
