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

// Package api implements the optional status HTTP server. It exposes a
// health probe, the most recently completed candle and the prometheus
// metrics. It never touches the display snapshot slot: the aggregator feeds
// it through a dedicated last-completed cell, so the single-producer
// single-consumer hand-off stays undisturbed.
package api

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"candlepipe/pkg/ohlc"
)

// Server handles the status HTTP requests.
type Server struct {
	latest atomic.Pointer[ohlc.Candle]
}

// NewServer creates an empty status server. SetLatest feeds it.
func NewServer() *Server {
	return &Server{}
}

// SetLatest records a completed candle as the newest observable one. Safe to
// call from the aggregator goroutine while requests are being served.
func (s *Server) SetLatest(c ohlc.Candle) {
	s.latest.Store(&c)
}

// RegisterRoutes sets up the HTTP routes on the given ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/candle", s.handleCandle)
	mux.Handle("/metrics", promhttp.Handler())
}

// ListenAndServe starts the status server on the specified address.
func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return httpServer.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleCandle returns the last completed candle as JSON, or 204 when no
// candle has completed yet.
func (s *Server) handleCandle(w http.ResponseWriter, _ *http.Request) {
	c := s.latest.Load()
	if c == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(c)
}
