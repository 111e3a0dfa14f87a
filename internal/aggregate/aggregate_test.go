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

package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candlepipe/internal/lifecycle"
	"candlepipe/internal/model"
	"candlepipe/pkg/handoff"
	"candlepipe/pkg/ohlc"
)

func sample(ts uint64, rate uint64) model.PriceSample {
	return model.PriceSample{
		Timestamp: ts,
		Base:      model.BTC,
		Quote:     model.USD,
		Rate:      &rate,
		Decimal:   4,
	}
}

// run feeds the given samples through an aggregator and returns the candles
// that reached the sink channel.
func run(t *testing.T, samples []model.PriceSample, capacity int) []ohlc.Candle {
	t.Helper()

	in := make(chan model.PriceSample, len(samples))
	out := make(chan ohlc.Candle, capacity)
	slot := &handoff.Slot[ohlc.Candle]{}

	for _, s := range samples {
		in <- s
	}
	close(in)

	a := New(in, out, slot)
	done := make(chan struct{})
	go func() {
		a.Run(&lifecycle.Flag{})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("aggregator did not finish")
	}

	var got []ohlc.Candle
	for c := range out {
		got = append(got, c)
	}
	return got
}

// TestFirstSampleOpensWithoutEmitting is the literal single-sample scenario:
// one sample opens the candle; nothing is emitted until a later bucket.
func TestFirstSampleOpensWithoutEmitting(t *testing.T) {
	got := run(t, []model.PriceSample{sample(1700000000, 300001234)}, 10)
	assert.Empty(t, got, "the in-progress candle must not be emitted")
}

// TestMinuteRollover is the literal two-samples-then-rollover scenario.
func TestMinuteRollover(t *testing.T) {
	got := run(t, []model.PriceSample{
		sample(1700000001, 10000),
		sample(1700000015, 20000),
		sample(1700000061, 30000),
	}, 10)

	require.Len(t, got, 1)
	c := got[0]
	assert.Equal(t, uint64(1699999980), c.Start)
	assert.Equal(t, uint32(60), c.Duration)
	assert.Equal(t, uint64(10000), c.Open)
	assert.Equal(t, uint64(20000), c.High)
	assert.Equal(t, uint64(10000), c.Low)
	assert.Equal(t, uint64(20000), c.Close)
	assert.True(t, c.Valid())
}

func TestEmittedCandlesSatisfyInvariants(t *testing.T) {
	var samples []model.PriceSample
	rates := []uint64{50000, 70000, 30000, 60000, 40000}
	for i, r := range rates {
		samples = append(samples, sample(1700000000+uint64(i*5), r))
	}
	// Rollover trigger in a later minute.
	samples = append(samples, sample(1700000100, 55000))

	got := run(t, samples, 10)
	require.Len(t, got, 1)
	c := got[0]
	assert.True(t, c.Valid())
	assert.NotZero(t, c.Start)
	assert.Zero(t, c.Start%uint64(c.Duration))
	assert.Equal(t, uint64(50000), c.Open, "open is the first sample")
	assert.Equal(t, uint64(40000), c.Close, "close is the last sample")
	assert.Equal(t, uint64(70000), c.High)
	assert.Equal(t, uint64(30000), c.Low)
}

func TestUnusableSamplesAreSkipped(t *testing.T) {
	got := run(t, []model.PriceSample{
		{Timestamp: 1700000001, Base: model.BTC, Quote: model.USD, Rate: nil, Decimal: 0},
		sample(1700000002, 10000),
		{Timestamp: 1700000003, Base: model.BTC, Quote: model.USD, Rate: nil, Decimal: 0},
		sample(1700000061, 20000),
	}, 10)

	require.Len(t, got, 1)
	assert.Equal(t, uint64(10000), got[0].Open)
	assert.Equal(t, uint64(10000), got[0].Close, "nil-rate samples must not touch the candle")
}

func TestWrongScaleSamplesAreSkipped(t *testing.T) {
	rate := uint64(123)
	odd := model.PriceSample{Timestamp: 1700000005, Base: model.BTC, Quote: model.USD, Rate: &rate, Decimal: 2}

	got := run(t, []model.PriceSample{
		sample(1700000001, 10000),
		odd,
		sample(1700000061, 20000),
	}, 10)

	require.Len(t, got, 1)
	assert.Equal(t, uint64(10000), got[0].Low, "a mis-scaled rate must not contaminate the candle")
}

// TestOverflowDropsWithoutBlocking fills the candle channel and verifies the
// aggregator neither blocks nor panics when emitting one more.
func TestOverflowDropsWithoutBlocking(t *testing.T) {
	var samples []model.PriceSample
	// Three buckets produce two completed candles into a channel of one slot.
	samples = append(samples, sample(1700000001, 10000))
	samples = append(samples, sample(1700000061, 20000))
	samples = append(samples, sample(1700000121, 30000))

	got := run(t, samples, 1)
	require.Len(t, got, 1, "the overflowing candle must be dropped")
	assert.Equal(t, uint64(1699999980), got[0].Start)
}

func TestSnapshotPublishedPerSample(t *testing.T) {
	in := make(chan model.PriceSample, 4)
	out := make(chan ohlc.Candle, 4)
	slot := &handoff.Slot[ohlc.Candle]{}

	a := New(in, out, slot)
	done := make(chan struct{})
	go func() {
		a.Run(&lifecycle.Flag{})
		close(done)
	}()

	in <- sample(1700000001, 10000)
	require.Eventually(t, func() bool { return slot.Load() != nil }, time.Second, time.Millisecond)

	snap := slot.Swap(nil)
	require.NotNil(t, snap)
	assert.Equal(t, uint64(10000), snap.Open)
	assert.Equal(t, uint64(1699999980), snap.Start)

	in <- sample(1700000015, 30000)
	require.Eventually(t, func() bool { return slot.Load() != nil }, time.Second, time.Millisecond)
	snap = slot.Swap(nil)
	require.NotNil(t, snap)
	assert.Equal(t, uint64(30000), snap.High, "snapshot must track the in-progress candle")

	close(in)
	<-done
}

func TestOnEmitObservesCompletedCandles(t *testing.T) {
	in := make(chan model.PriceSample, 4)
	out := make(chan ohlc.Candle, 4)
	slot := &handoff.Slot[ohlc.Candle]{}

	var seen []ohlc.Candle
	a := New(in, out, slot)
	a.OnEmit = func(c ohlc.Candle) { seen = append(seen, c) }

	in <- sample(1700000001, 10000)
	in <- sample(1700000061, 20000)
	close(in)
	a.Run(&lifecycle.Flag{})

	require.Len(t, seen, 1)
	assert.Equal(t, uint64(1699999980), seen[0].Start)
}

func TestRunClosesCandleChannel(t *testing.T) {
	in := make(chan model.PriceSample)
	out := make(chan ohlc.Candle, 1)
	close(in)

	a := New(in, out, &handoff.Slot[ohlc.Candle]{})
	a.Run(&lifecycle.Flag{})

	_, open := <-out
	assert.False(t, open, "the candle channel must close when the aggregator exits")
}
