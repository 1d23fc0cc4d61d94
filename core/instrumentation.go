package live

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const scopeName = "github.com/lachanso/safebuddy/core"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

var (
	framesSent      = newCounter("safebuddy.live.frames_sent", "Captured audio frames handed to the transport")
	chunksScheduled = newCounter("safebuddy.live.chunks_scheduled", "Model audio chunks scheduled for playback")
	chunksDropped   = newCounter("safebuddy.live.chunks_dropped", "Model audio chunks dropped before playback")
)

func newCounter(name, description string) metric.Int64Counter {
	counter, err := meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		logger.Error("failed to create counter", "name", name, "error", err)
		return noop.Int64Counter{}
	}
	return counter
}
