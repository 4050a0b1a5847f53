package model

import "fmt"

// Units selects the measurement system of a WeatherSummary.
type Units string

const (
	Metric   Units = "metric"
	Imperial Units = "imperial"
)

// WeatherSummary is the current conditions reported for a place.
type WeatherSummary struct {
	Place       string  `json:"place"`
	Description string  `json:"description"`
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feels_like"`
	HumidityPct int     `json:"humidity_pct"`
	WindSpeed   float64 `json:"wind_speed"`
	Units       Units   `json:"units"`
}

func (w WeatherSummary) String() string {
	tempUnit, windUnit := "°C", "km/h"
	if w.Units == Imperial {
		tempUnit, windUnit = "°F", "mph"
	}
	return fmt.Sprintf("%s, %.0f%s (feels like %.0f%s), humidity %d%%, wind %.0f %s",
		w.Description, w.Temperature, tempUnit, w.FeelsLike, tempUnit, w.HumidityPct, w.WindSpeed, windUnit)
}
