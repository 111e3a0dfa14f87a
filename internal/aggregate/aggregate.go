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

// Package aggregate folds the sample stream into fixed-width minute candles.
//
// The stage runs in a single goroutine: it consumes samples, maintains the
// currently-open candle, emits a finished candle whenever the wall-clock
// minute advances, and publishes a snapshot of the in-progress candle for the
// display stage on every sample.
package aggregate

import (
	"github.com/rs/zerolog/log"

	"candlepipe/internal/lifecycle"
	"candlepipe/internal/model"
	"candlepipe/internal/telemetry"
	"candlepipe/pkg/handoff"
	"candlepipe/pkg/ohlc"
)

// Aggregator consumes price samples and produces completed candles.
type Aggregator struct {
	in       <-chan model.PriceSample
	out      chan<- ohlc.Candle
	snapshot *handoff.Slot[ohlc.Candle]

	// OnEmit, when set, observes every completed candle before it is offered
	// to the sink channel. Used to feed the status API's last-completed cell.
	OnEmit func(ohlc.Candle)
}

// New wires an aggregator between the sample channel, the candle channel and
// the display snapshot slot.
func New(in <-chan model.PriceSample, out chan<- ohlc.Candle, snapshot *handoff.Slot[ohlc.Candle]) *Aggregator {
	return &Aggregator{
		in:       in,
		out:      out,
		snapshot: snapshot,
	}
}

// Run folds samples until the upstream channel closes or shutdown is
// requested. The in-progress candle is never emitted on exit: it is
// incomplete by definition. The candle channel is closed on return so the
// sink drains and finishes.
func (a *Aggregator) Run(shutdown *lifecycle.Flag) {
	defer close(a.out)

	var current ohlc.Candle

	for sample := range a.in {
		rate := sample.Rate
		if rate == nil {
			continue
		}

		// The collector is the only producer and always normalizes to four
		// decimals, so this branch is a contract guard, not a code path.
		if sample.Decimal != ohlc.Decimals {
			log.Error().Uint8("decimal", sample.Decimal).Msg("sample with unexpected scale skipped")
			continue
		}

		bucket := ohlc.Bucket(sample.Timestamp, ohlc.DefaultDuration)

		if bucket != current.Start {
			// A new minute started: emit the finished candle and open a new one.
			if !current.Zero() {
				a.emit(current)
			}
			current = ohlc.OpenAt(bucket, ohlc.DefaultDuration, *rate)
		} else {
			current.Fold(*rate)
		}

		snap := current
		a.snapshot.Swap(&snap)

		if shutdown.IsSet() {
			return
		}
	}
}

// emit offers a finished candle to the sink channel without blocking. When
// the sink cannot keep up the candle is dropped: buffering old bars has no
// value in a real-time feed.
func (a *Aggregator) emit(c ohlc.Candle) {
	if a.OnEmit != nil {
		a.OnEmit(c)
	}

	select {
	case a.out <- c:
		telemetry.ObserveCandleEmitted()
	default:
		telemetry.ObserveCandleDropped()
		log.Warn().Msg("storage backend can not keep up with generated data, dropping candle")
	}
}
