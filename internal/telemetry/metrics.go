// Package telemetry provides process-wide prometheus counters for the
// pipeline. All record functions are safe to call from hot paths: they are
// plain counter increments with no locks or allocation.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "candlepipe_requests_total",
		Help: "Total upstream HTTP requests completed, by response status code",
	}, []string{"status"})
	transportErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "candlepipe_transport_errors_total",
		Help: "Total upstream requests that failed before a response arrived (DNS, TCP, TLS)",
	})
	decodeErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "candlepipe_decode_errors_total",
		Help: "Total response bodies that could not be decoded as JSON",
	})
	samplesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "candlepipe_samples_total",
		Help: "Total price samples enqueued for aggregation",
	})
	samplesDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "candlepipe_samples_dropped_total",
		Help: "Total price samples dropped because the sample channel was full",
	})
	candlesEmittedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "candlepipe_candles_emitted_total",
		Help: "Total completed candles handed to the storage sink",
	})
	candlesDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "candlepipe_candles_dropped_total",
		Help: "Total completed candles dropped because the candle channel was full",
	})
	storeTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "candlepipe_store_total",
		Help: "Total candles successfully written by the storage sink",
	})
	storeErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "candlepipe_store_errors_total",
		Help: "Total storage writes that failed (the candle is dropped)",
	})
)

func init() {
	// Register eagerly. If no /metrics endpoint is ever exposed, the
	// registration is harmless.
	prometheus.MustRegister(
		requestsTotal, transportErrorsTotal, decodeErrorsTotal,
		samplesTotal, samplesDroppedTotal,
		candlesEmittedTotal, candlesDroppedTotal,
		storeTotal, storeErrorsTotal,
	)
}

// ObserveResponse records one completed upstream request by status code.
func ObserveResponse(status int) {
	requestsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
}

// ObserveTransportError records an upstream request that never produced a response.
func ObserveTransportError() { transportErrorsTotal.Inc() }

// ObserveDecodeError records a body that failed JSON decoding.
func ObserveDecodeError() { decodeErrorsTotal.Inc() }

// ObserveSample records a sample successfully enqueued for aggregation.
func ObserveSample() { samplesTotal.Inc() }

// ObserveSampleDropped records a sample dropped on channel overflow.
func ObserveSampleDropped() { samplesDroppedTotal.Inc() }

// ObserveCandleEmitted records a completed candle handed to the sink channel.
func ObserveCandleEmitted() { candlesEmittedTotal.Inc() }

// ObserveCandleDropped records a completed candle dropped on channel overflow.
func ObserveCandleDropped() { candlesDroppedTotal.Inc() }

// ObserveStore records the outcome of one sink write.
func ObserveStore(err error) {
	if err != nil {
		storeErrorsTotal.Inc()
		return
	}
	storeTotal.Inc()
}

// StartEndpoint exposes /metrics on addr in a background goroutine. Intended
// for deployments that do not already scrape the status API.
func StartEndpoint(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = server.ListenAndServe()
	}()
}
