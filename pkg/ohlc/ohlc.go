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

// Package ohlc provides the fixed-point OHLC candle type shared by every
// pipeline stage, together with the pure fold operations that build a candle
// out of individual price observations.
//
// All prices are unsigned fixed-point integers with 4 implied decimal places,
// so the real value is price / 10^4. Candle math is limited to min, max and
// assignment; there are no overflow paths for 4-decimal BTC/USD rates.
package ohlc

import (
	"fmt"
	"time"
)

// DefaultDuration is the bar length in seconds for the standard minute candle.
const DefaultDuration uint32 = 60

// Decimals is the number of implied fractional digits in every price field.
const Decimals = 4

// rateScale is 10^Decimals.
const rateScale = 10000

// Candle stores Open-High-Low-Close price information for one time bucket.
//
// Start is the bucket's Unix timestamp in seconds, aligned down to a Duration
// boundary. A zero Start marks the never-initialized sentinel; such a candle
// must not be emitted downstream.
type Candle struct {
	Start    uint64 `json:"start"`
	Open     uint64 `json:"open"`
	High     uint64 `json:"high"`
	Low      uint64 `json:"low"`
	Close    uint64 `json:"close"`
	Duration uint32 `json:"duration"`
}

// Bucket aligns ts down to the nearest duration boundary.
func Bucket(ts uint64, duration uint32) uint64 {
	return ts - ts%uint64(duration)
}

// OpenAt starts a new candle for the given bucket. The first observed rate
// seeds all four price fields.
func OpenAt(bucket uint64, duration uint32, rate uint64) Candle {
	return Candle{
		Start:    bucket,
		Duration: duration,
		Open:     rate,
		High:     rate,
		Low:      rate,
		Close:    rate,
	}
}

// Fold incorporates a later rate belonging to the same bucket. Open stays
// fixed at bucket creation; any rate is considered a close because there is no
// guarantee more data arrives for this bucket.
func (c *Candle) Fold(rate uint64) {
	if rate > c.High {
		c.High = rate
	}
	if rate < c.Low {
		c.Low = rate
	}
	c.Close = rate
}

// Zero reports whether the candle is the never-initialized sentinel.
func (c Candle) Zero() bool {
	return c.Start == 0
}

// Valid reports whether the candle holds a consistent OHLC tuple: the low is
// not above open, close or high, the high is not below open or close, and the
// start is aligned to the duration.
func (c Candle) Valid() bool {
	if c.Duration == 0 || c.Start%uint64(c.Duration) != 0 {
		return false
	}
	if c.Low > c.Open || c.Low > c.Close || c.Low > c.High {
		return false
	}
	if c.High < c.Open || c.High < c.Close {
		return false
	}
	return true
}

// String renders a single human-readable line, used by the display stage and
// the stdout sink.
func (c Candle) String() string {
	return fmt.Sprintf("%s o:%s h:%s l:%s c:%s (%ds)",
		time.Unix(int64(c.Start), 0).UTC().Format(time.RFC3339),
		FormatRate(c.Open), FormatRate(c.High), FormatRate(c.Low), FormatRate(c.Close),
		c.Duration,
	)
}

// FormatRate renders a 4-decimal fixed-point rate as a decimal string.
func FormatRate(rate uint64) string {
	return fmt.Sprintf("%d.%04d", rate/rateScale, rate%rateScale)
}
