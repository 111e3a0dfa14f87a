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

// Package main wires the price-aggregation pipeline:
//
//	collector --samples--> aggregator --candles--> sink
//	                            |
//	                            +-- snapshot --> display
//
// The stages are connected by two bounded channels and one single-slot atomic
// hand-off, and coordinate shutdown through a process-wide cooperative flag.
// An interrupt sets the flag; the collector also sets it on exit so the
// downstream stages drain and finish.
package main

import (
	"flag"
	"fmt"
	"os"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"candlepipe/internal/aggregate"
	"candlepipe/internal/api"
	"candlepipe/internal/collector"
	"candlepipe/internal/config"
	"candlepipe/internal/display"
	"candlepipe/internal/lifecycle"
	"candlepipe/internal/model"
	"candlepipe/internal/storage"
	"candlepipe/internal/telemetry"
	"candlepipe/pkg/handoff"
	"candlepipe/pkg/ohlc"
)

// channelCapacity bounds both inter-stage queues. Producers never block:
// overflow drops the item with a warning, trading completeness for freshness.
const channelCapacity = 200

func main() {
	requestPeriod := flag.Duration("request_period", collector.DefaultRequestPeriod, "Targeted pause between rate requests (500ms or more recommended)")
	sinkName := flag.String("sink", "postgres", "Storage adapter: postgres, stdout, redis or file")
	filePath := flag.String("file_path", "candles.jsonl", "Candle log location for the file adapter")
	displayInterval := flag.Duration("display_interval", display.DefaultInterval, "Terminal refresh cadence")
	apiAddr := flag.String("api_addr", "", "If non-empty, expose the status API (/healthz, /candle, /metrics) on this address")
	metricsAddr := flag.String("metrics_addr", "", "If non-empty, expose a standalone Prometheus /metrics on this address")
	flag.Parse()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("configuration error")
		os.Exit(1)
	}

	shutdown := &lifecycle.Flag{}
	shutdown.SetOnSignal(os.Interrupt, syscall.SIGTERM)

	samples := make(chan model.PriceSample, channelCapacity)
	candles := make(chan ohlc.Candle, channelCapacity)
	snapshot := &handoff.Slot[ohlc.Candle]{}

	// One collector for one symbol. Multi-symbol fan-out would fork one
	// collector per pair here.
	coll := collector.New(fmt.Sprintf("%s/bitcoin", cfg.RatesURL), samples)
	coll.SetRequestPeriod(*requestPeriod)

	agg := aggregate.New(samples, candles, snapshot)

	sink, err := storage.Build(*sinkName, candles, storage.Options{
		PostgresDSN: cfg.DB.DSN(),
		RedisAddr:   cfg.Redis.Addr,
		RedisPrefix: cfg.Redis.Prefix,
		FilePath:    *filePath,
	})
	if err != nil {
		log.Error().Err(err).Msg("configuration error")
		os.Exit(1)
	}

	term := display.New(snapshot)
	term.SetInterval(*displayInterval)

	if *apiAddr != "" {
		statusServer := api.NewServer()
		agg.OnEmit = statusServer.SetLatest
		go func() {
			log.Info().Str("addr", *apiAddr).Msg("status API listening")
			if err := statusServer.ListenAndServe(*apiAddr); err != nil {
				log.Error().Err(err).Msg("status API stopped")
			}
		}()
	}
	if *metricsAddr != "" {
		telemetry.StartEndpoint(*metricsAddr)
	}

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		coll.Run(shutdown)
	}()
	go func() {
		defer wg.Done()
		agg.Run(shutdown)
	}()
	go func() {
		defer wg.Done()
		sink.Run(shutdown)
	}()
	go func() {
		defer wg.Done()
		term.Run(shutdown)
	}()

	wg.Wait()
}
