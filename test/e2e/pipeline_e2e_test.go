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

// Package e2e exercises the whole pipeline against a scripted rates endpoint:
// collector, aggregator, file sink and display wired exactly as in cmd.
package e2e

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candlepipe/internal/aggregate"
	"candlepipe/internal/collector"
	"candlepipe/internal/display"
	"candlepipe/internal/lifecycle"
	"candlepipe/internal/model"
	"candlepipe/internal/storage"
	"candlepipe/pkg/handoff"
	"candlepipe/pkg/ohlc"
)

// scriptedRates serves a fixed sequence of responses, repeating the last one
// once the script runs out.
type scriptedRates struct {
	mu     sync.Mutex
	bodies []string
	i      int
}

func (s *scriptedRates) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	body := s.bodies[s.i]
	if s.i < len(s.bodies)-1 {
		s.i++
	}
	s.mu.Unlock()

	w.Header().Set("x-ratelimit-limit", "500")
	w.Header().Set("x-ratelimit-remaining", "400")
	w.Header().Set("x-ratelimit-reset", fmt.Sprintf("%d", time.Now().Add(time.Minute).Unix()))
	_, _ = w.Write([]byte(body))
}

func body(rate string, tsSec uint64) string {
	return fmt.Sprintf(`{"data":{"rateUsd":"%s"},"timestamp":%d}`, rate, tsSec*1000)
}

func TestPipelineEndToEnd(t *testing.T) {
	endpoint := &scriptedRates{bodies: []string{
		body("1.0000", 1700000001),
		body("2.0000", 1700000015),
		body("0.5000", 1700000030),
		// Next minute: triggers emission of the first candle.
		body("3.0000", 1700000061),
	}}
	srv := httptest.NewServer(endpoint)
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "candles.jsonl")

	shutdown := &lifecycle.Flag{}
	samples := make(chan model.PriceSample, 200)
	candles := make(chan ohlc.Candle, 200)
	snapshot := &handoff.Slot[ohlc.Candle]{}

	coll := collector.New(srv.URL, samples)
	coll.SetRequestPeriod(10 * time.Millisecond)

	agg := aggregate.New(samples, candles, snapshot)

	sink, err := storage.Build("file", candles, storage.Options{FilePath: path})
	require.NoError(t, err)

	term := display.New(snapshot)
	term.SetInterval(20 * time.Millisecond)
	termOut := &syncBuffer{}
	term.SetWriter(termOut)

	var wg sync.WaitGroup
	wg.Add(4)
	go func() { defer wg.Done(); coll.Run(shutdown) }()
	go func() { defer wg.Done(); agg.Run(shutdown) }()
	go func() { defer wg.Done(); sink.Run(shutdown) }()
	go func() { defer wg.Done(); term.Run(shutdown) }()

	// Wait for the first completed candle to land in the log.
	require.Eventually(t, func() bool {
		got, err := storage.ReadAllCandles(path)
		return err == nil && len(got) >= 1
	}, 10*time.Second, 20*time.Millisecond, "no candle was persisted")

	// Interrupt and measure drain latency: every stage must finish within the
	// longest per-stage sleep plus one in-flight round-trip.
	begin := time.Now()
	shutdown.Set()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not drain after shutdown")
	}
	assert.Less(t, time.Since(begin), 2*time.Second)

	got, err := storage.ReadAllCandles(path)
	require.NoError(t, err)
	require.NotEmpty(t, got)

	first := got[0]
	assert.Equal(t, uint64(1699999980), first.Start)
	assert.Equal(t, uint32(60), first.Duration)
	assert.Equal(t, uint64(10000), first.Open)
	assert.Equal(t, uint64(20000), first.High)
	assert.Equal(t, uint64(5000), first.Low)
	assert.Equal(t, uint64(5000), first.Close)
	assert.True(t, first.Valid())

	// The display rendered the in-progress candle at least once.
	assert.Contains(t, termOut.String(), "o:")
}

// TestPipelineIgnoresGarbageBodies drives the decode-failure scenario through
// the full wiring: garbage never corrupts a candle and polling continues.
func TestPipelineIgnoresGarbageBodies(t *testing.T) {
	endpoint := &scriptedRates{bodies: []string{
		"not-json",
		body("1.0000", 1700000001),
		"also-not-json",
		body("2.0000", 1700000061),
	}}
	srv := httptest.NewServer(endpoint)
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "candles.jsonl")

	shutdown := &lifecycle.Flag{}
	samples := make(chan model.PriceSample, 200)
	candles := make(chan ohlc.Candle, 200)

	coll := collector.New(srv.URL, samples)
	coll.SetRequestPeriod(10 * time.Millisecond)
	agg := aggregate.New(samples, candles, &handoff.Slot[ohlc.Candle]{})
	sink, err := storage.Build("file", candles, storage.Options{FilePath: path})
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); coll.Run(shutdown) }()
	go func() { defer wg.Done(); agg.Run(shutdown) }()
	go func() { defer wg.Done(); sink.Run(shutdown) }()

	require.Eventually(t, func() bool {
		got, err := storage.ReadAllCandles(path)
		return err == nil && len(got) >= 1
	}, 10*time.Second, 20*time.Millisecond)

	shutdown.Set()
	wg.Wait()

	got, err := storage.ReadAllCandles(path)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, uint64(10000), got[0].Open)
	assert.Equal(t, uint64(10000), got[0].Close)
	assert.True(t, got[0].Valid())
}

// syncBuffer collects display output safely across goroutines.
type syncBuffer struct {
	mu sync.Mutex
	b  []byte
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.b = append(s.b, p...)
	return len(p), nil
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.b)
}
