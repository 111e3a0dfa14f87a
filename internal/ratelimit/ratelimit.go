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

// Package ratelimit translates server-reported x-ratelimit-* headers plus
// locally-measured request timing into a next-request time that honors the
// published quota without requiring synchronized clocks.
//
// The limiter keeps two windows: cur, built from the in-flight request's
// response, and prev, retained from the request before it. The inter-request
// interval is measured between the two locally-recorded start instants, so
// host-vs-server clock disagreement only affects the shape of the window, not
// the spacing of requests.
package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// Window is what the server told us in the most recent response that carried
// rate-limit headers.
type Window struct {
	// Limit is the number of requests allowed per window.
	Limit uint64

	// Remaining is the number of requests still available in this window.
	Remaining uint64

	// Start is the local time at which the request that produced this
	// information was issued.
	Start time.Time

	// Reset is the server-reported absolute instant at which the window
	// refills.
	Reset time.Time
}

// Limiter holds the rate-limit state for a single polled endpoint. It is not
// safe for concurrent use; the collector owns it exclusively.
type Limiter struct {
	cur  *Window
	prev *Window

	// notBefore is the earliest allowed instant for the next request when the
	// server answered 429 with a Retry-After header. Cleared on Begin.
	notBefore time.Time
}

// Begin starts rate limiting the next request: the current window rotates
// into prev and cur is cleared until Observe sees the response. Must be
// called once per rate-limited request, before it is issued.
func (l *Limiter) Begin() {
	l.prev = l.cur
	l.cur = nil
	l.notBefore = time.Time{}
}

// Reset discards all rate-limit state.
func (l *Limiter) Reset() {
	l.cur = nil
	l.prev = nil
	l.notBefore = time.Time{}
}

// Observe absorbs rate-limit information from an HTTP response. start must be
// the locally-recorded instant at which the request was issued.
//
// If the response carries x-ratelimit-limit, -remaining and -reset headers, a
// window is committed to cur. When cur already exists, fields merge with the
// more-restrictive value winning. Absent or malformed headers leave the
// limiter unchanged. A 429 response's Retry-After header additionally records
// a not-before instant for the next request.
func (l *Limiter) Observe(start time.Time, resp *http.Response) {
	if resp.StatusCode == http.StatusTooManyRequests {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if nb, ok := parseRetryAfter(ra, start); ok {
				l.notBefore = nb
			} else {
				log.Warn().Str("retry_after", ra).Msg("unparsable Retry-After header ignored")
			}
		}
	}

	limit, ok := headerUint(resp.Header, "x-ratelimit-limit")
	if !ok {
		return
	}
	remaining, ok := headerUint(resp.Header, "x-ratelimit-remaining")
	if !ok {
		return
	}
	resetSec, ok := headerUint(resp.Header, "x-ratelimit-reset")
	if !ok {
		return
	}

	w := Window{
		Limit:     limit,
		Remaining: remaining,
		Start:     start,
		Reset:     time.Unix(int64(resetSec), 0),
	}

	// Merge into an existing window only if the new information is stricter.
	if cur := l.cur; cur != nil {
		if cur.Reset.Before(w.Reset) {
			cur.Reset = w.Reset
		}
		if cur.Remaining > w.Remaining {
			cur.Remaining = w.Remaining
		}
		if cur.Limit > w.Limit {
			cur.Limit = w.Limit
		}
		return
	}

	l.cur = &w
}

// Adjust moves next forward as far as the observed quota requires. next
// should arrive holding the configured cadence (request start + period); it
// is never moved earlier.
func (l *Limiter) Adjust(next *time.Time) {
	// A server-mandated Retry-After dominates the configured cadence.
	// Header-driven adjustment below still applies on top.
	if !l.notBefore.IsZero() && l.notBefore.After(*next) {
		*next = l.notBefore
	}

	if l.prev == nil {
		l.adjustFirst(next)
		return
	}

	cur := l.cur
	if cur == nil {
		// The endpoint did not publish rate-limit information for this
		// request; cadence falls back to the configured period.
		log.Error().Msg("no rate limit information loaded, requested rate limiting policy might not be honored properly")
		return
	}

	// A request scheduled after the window reset cannot exceed the quota.
	// This is the normal path for an appropriately configured system.
	if !next.Before(cur.Reset) {
		return
	}

	// Quota exhausted: wait for the next window.
	if cur.Remaining < 1 {
		*next = cur.Reset
		return
	}

	// Measure the interval between our own requests instead of trusting
	// absolute clock values, to minimize the impact of unsynced clocks.
	requestInterval := cur.Start.Sub(l.prev.Start)
	if requestInterval < 0 {
		log.Warn().Msg("clock may have gone backwards, requested rate limiting policy might not be honored properly")
		return
	}

	winDuration := cur.Reset.Sub(cur.Start)
	if winDuration < 0 {
		// The endpoint should never report a reset before the request start
		// unless clocks are far out of sync.
		log.Warn().Msg("host and endpoint clocks are too far out of sync, requested rate limiting policy might not be honored properly")
		return
	}

	allowed := allowedInterval(winDuration, cur.Remaining)

	// Already pacing slower than the remaining budget requires.
	if requestInterval > allowed {
		return
	}

	if spaced := cur.Start.Add(allowed); spaced.After(*next) {
		*next = spaced
	}
}

// adjustFirst handles the very first request, when there is no previous
// request to measure an interval against.
func (l *Limiter) adjustFirst(next *time.Time) {
	cur := l.cur
	if cur == nil {
		log.Error().Msg("no rate limit information loaded, requested rate limiting policy might not be honored properly")
		return
	}

	if !next.Before(cur.Reset) {
		return
	}

	// First request and budget remains: trust the configured cadence.
	if cur.Remaining > 0 {
		return
	}

	// Hitting the limit on the very first request is a bad start. The clamp
	// below leans on the server clock, but there is nothing better to lean on.
	log.Warn().Msg("endpoint rate limit was hit on first request")

	if cur.Reset.After(*next) {
		*next = cur.Reset
	}
}

// allowedInterval floor-divides the window across the remaining budget at
// millisecond precision.
func allowedInterval(window time.Duration, remaining uint64) time.Duration {
	ms := window.Milliseconds() / int64(remaining)
	return time.Duration(ms) * time.Millisecond
}

// headerUint extracts an unsigned integer header value.
func headerUint(h http.Header, name string) (uint64, bool) {
	v := h.Get(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseRetryAfter interprets a Retry-After value as either delta-seconds or
// an HTTP date, returning the not-before instant relative to start.
func parseRetryAfter(v string, start time.Time) (time.Time, bool) {
	if secs, err := strconv.ParseUint(v, 10, 32); err == nil {
		return start.Add(time.Duration(secs) * time.Second), true
	}
	if t, err := http.ParseTime(v); err == nil {
		return t, true
	}
	return time.Time{}, false
}
