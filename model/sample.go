package model

import "time"

// Sample is one position report as received by the poller.
//
// FeedTime is the provider's own timestamp, whole epoch seconds. LocalTime is
// read from the poller's clock when the response arrived and keeps
// sub-second precision.
type Sample struct {
	Coordinates Coordinates `json:"coordinates"`
	FeedTime    int64       `json:"feed_time"`
	LocalTime   time.Time   `json:"local_time"`
}
