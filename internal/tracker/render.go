package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/signalsfoundry/orbit-tracker/internal/logging"
	"github.com/signalsfoundry/orbit-tracker/model"
)

// LogSink writes each result as a human-readable log line with the raw
// values attached as fields.
type LogSink struct {
	log logging.Logger
}

// NewLogSink returns a sink writing to log.
func NewLogSink(log logging.Logger) *LogSink {
	if log == nil {
		log = logging.Noop()
	}
	return &LogSink{log: log}
}

// Emit implements Sink.
func (s *LogSink) Emit(ctx context.Context, r model.Result) {
	fields := []logging.Field{
		logging.Uint64("tick", r.Tick),
		logging.Float64("latitude", r.Sample.Coordinates.Latitude),
		logging.Float64("longitude", r.Sample.Coordinates.Longitude),
		logging.Any("feed_time", r.Sample.FeedTime),
	}
	if m := r.Motion; m != nil {
		fields = append(fields,
			logging.Float64("distance_km", m.DistanceKm),
			logging.Any("feed_delta_seconds", m.FeedDeltaSeconds),
			logging.Float64("local_delta_seconds", m.LocalDeltaSeconds),
			logging.String("speed_local", m.LocalSpeed.String()),
		)
		if m.Report == model.SpeedReportFull {
			fields = append(fields,
				logging.Float64("corrected_delta_seconds", m.CorrectedDeltaSeconds),
				logging.Float64("bias_seconds", m.BiasSeconds),
				logging.String("speed_feed", m.FeedSpeed.String()),
				logging.String("speed_corrected", m.CorrectedSpeed.String()),
			)
		}
	}
	s.log.Info(ctx, Render(r), fields...)
}

// TickFailed implements FailureSink.
func (s *LogSink) TickFailed(ctx context.Context, err error) {
	s.log.Warn(ctx, "no position this tick", logging.Err(err))
}

// Render formats r on one line, e.g.
//
//	#2 at (0.0000, 1.0000): 111.19 km in 5 s (feed), 5.20 s (local); 22.24 km/s feed, 21.38 km/s local, 22.15 km/s corrected (bias +0.020 s)
func Render(r model.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%s at %s", humanize.Comma(int64(r.Tick)), r.Sample.Coordinates)

	if m := r.Motion; m != nil {
		fmt.Fprintf(&b, ": %s km in %d s (feed), %.2f s (local); ",
			humanize.CommafWithDigits(m.DistanceKm, 2), m.FeedDeltaSeconds, m.LocalDeltaSeconds)
		if m.Report == model.SpeedReportLocal {
			fmt.Fprintf(&b, "%s local", m.LocalSpeed)
		} else {
			fmt.Fprintf(&b, "%s feed, %s local, %s corrected (bias %+.3f s)",
				m.FeedSpeed, m.LocalSpeed, m.CorrectedSpeed, m.BiasSeconds)
		}
	}

	if r.Place != nil {
		fmt.Fprintf(&b, "; over %s", *r.Place)
		if r.Weather != nil {
			fmt.Fprintf(&b, ": %s", r.Weather)
		}
	}
	return b.String()
}
