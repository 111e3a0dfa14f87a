// Copyright 2026 The Candlepipe Authors. All Rights Reserved.
//
// Created: July 2026
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package collector drives a steady request cadence against the rates
// endpoint, decodes each response into a PriceSample and pushes it downstream
// without ever blocking.
//
// When the sample channel is full the sample is dropped and a warning logged.
// This is a deliberate decision: there is no point buffering stale data when
// the pipeline's job is real-time freshness.
package collector

import (
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"candlepipe/internal/lifecycle"
	"candlepipe/internal/model"
	"candlepipe/internal/ratelimit"
	"candlepipe/internal/telemetry"
)

// DefaultRequestPeriod is the pause targeted between requests when the server
// imposes nothing stricter. Values below 500ms risk overwhelming the endpoint.
const DefaultRequestPeriod = 1000 * time.Millisecond

// Collector owns the HTTP client and the rate limiter for one endpoint.
type Collector struct {
	out     chan<- model.PriceSample
	url     string
	period  time.Duration
	client  *http.Client
	limiter ratelimit.Limiter
}

// New creates a collector that polls url and emits samples on out. The
// request period defaults to DefaultRequestPeriod.
func New(url string, out chan<- model.PriceSample) *Collector {
	return &Collector{
		out:    out,
		url:    url,
		period: DefaultRequestPeriod,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// SetRequestPeriod overrides the targeted pause between requests. Use 500ms
// or more to avoid hammering the endpoint.
func (c *Collector) SetRequestPeriod(d time.Duration) {
	c.period = d
}

// Run polls until shutdown is requested, then closes the sample channel and
// sets the shutdown flag itself so downstream stages drain and finish.
func (c *Collector) Run(shutdown *lifecycle.Flag) {
	defer func() {
		close(c.out)
		shutdown.Set()
	}()

	for !shutdown.IsSet() {
		c.poll()
	}
}

// poll performs one request iteration: issue the GET, absorb rate-limit
// headers, forward the decoded sample and sleep out the remaining cadence.
func (c *Collector) poll() {
	c.limiter.Begin()

	// The request is considered issued at this instant. DNS resolution and
	// request building happen later, but their overhead is negligible against
	// a sub-second cadence.
	start := time.Now()

	resp, err := c.client.Get(c.url)
	if err != nil {
		// Transport failure: the iteration ends early, the next tick retries.
		telemetry.ObserveTransportError()
		log.Warn().Err(err).Msg("request failed")
		c.sleepUntil(start.Add(c.period))
		return
	}

	c.limiter.Observe(start, resp)

	next := start.Add(c.period)
	c.limiter.Adjust(&next)

	if resp.StatusCode == http.StatusOK {
		c.forward(resp.Body)
	} else {
		log.Warn().Int("status", resp.StatusCode).Msg("remote endpoint returned non-200 status")
		io.Copy(io.Discard, resp.Body)
	}
	telemetry.ObserveResponse(resp.StatusCode)
	resp.Body.Close()

	c.sleepUntil(next)
}

// forward reads and decodes the body and try-sends the resulting sample.
func (c *Collector) forward(body io.Reader) {
	b, err := io.ReadAll(body)
	if err != nil {
		telemetry.ObserveTransportError()
		log.Warn().Err(err).Msg("could not read response body")
		return
	}

	sample, err := decodeSample(b)
	if err != nil {
		telemetry.ObserveDecodeError()
		log.Error().Err(err).Msg("could not decode response as JSON")
		return
	}

	select {
	case c.out <- sample:
		telemetry.ObserveSample()
	default:
		telemetry.ObserveSampleDropped()
		log.Warn().Msg("backend can not process incoming data fast enough, dropping sample")
	}
}

// sleepUntil pauses until the scheduled next-request time. When the schedule
// is already behind, no sleep happens and the loop catches up best-effort.
func (c *Collector) sleepUntil(next time.Time) {
	d := time.Until(next)
	if d <= 0 {
		return
	}
	// A duration beyond any plausible rate-limit window means the wall clock
	// jumped; fall back to the configured period rather than stalling.
	if d > 24*time.Hour {
		d = c.period
	}
	time.Sleep(d)
}
