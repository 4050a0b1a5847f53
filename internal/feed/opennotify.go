// Package feed provides position sources for the poll loop.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/signalsfoundry/orbit-tracker/model"
)

// ErrMalformedResponse is returned when the feed answers with something
// that is not a usable position report.
var ErrMalformedResponse = errors.New("malformed position response")

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 1 << 20

// OpenNotify polls the Open Notify "iss-now" endpoint.
type OpenNotify struct {
	url    string
	client *http.Client
}

// OpenNotifyOption customises an OpenNotify client.
type OpenNotifyOption func(*OpenNotify)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(c *http.Client) OpenNotifyOption {
	return func(o *OpenNotify) {
		if c != nil {
			o.client = c
		}
	}
}

// NewOpenNotify returns a client for the endpoint at url.
func NewOpenNotify(url string, opts ...OpenNotifyOption) *OpenNotify {
	o := &OpenNotify{url: url, client: http.DefaultClient}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type issNowResponse struct {
	Message   string `json:"message"`
	Timestamp *int64 `json:"timestamp"`
	Position  *struct {
		Latitude  string `json:"latitude"`
		Longitude string `json:"longitude"`
	} `json:"iss_position"`
}

// Fetch implements tracker.PositionProvider. LocalTime is left for the
// caller to stamp.
func (o *OpenNotify) Fetch(ctx context.Context) (model.Sample, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.url, nil)
	if err != nil {
		return model.Sample{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return model.Sample{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.Sample{}, fmt.Errorf("%w: status %d", ErrMalformedResponse, resp.StatusCode)
	}

	var body issNowResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return model.Sample{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return body.sample()
}

func (r issNowResponse) sample() (model.Sample, error) {
	if r.Message != "success" {
		return model.Sample{}, fmt.Errorf("%w: message %q", ErrMalformedResponse, r.Message)
	}
	if r.Timestamp == nil || r.Position == nil {
		return model.Sample{}, fmt.Errorf("%w: missing timestamp or position", ErrMalformedResponse)
	}

	lat, err := strconv.ParseFloat(r.Position.Latitude, 64)
	if err != nil {
		return model.Sample{}, fmt.Errorf("%w: latitude %q", ErrMalformedResponse, r.Position.Latitude)
	}
	lon, err := strconv.ParseFloat(r.Position.Longitude, 64)
	if err != nil {
		return model.Sample{}, fmt.Errorf("%w: longitude %q", ErrMalformedResponse, r.Position.Longitude)
	}
	c := model.Coordinates{Latitude: lat, Longitude: lon}
	if err := c.Validate(); err != nil {
		return model.Sample{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return model.Sample{Coordinates: c, FeedTime: *r.Timestamp}, nil
}
