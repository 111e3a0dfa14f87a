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

package storage

import (
	"bufio"
	"encoding/json"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"candlepipe/internal/lifecycle"
	"candlepipe/internal/telemetry"
	"candlepipe/pkg/ohlc"
)

// File is a buffered JSONL sink: one JSON object per line, append-only.
// Flushes periodically to bound data loss on crash.
type File struct {
	rx   <-chan ohlc.Candle
	f    *os.File
	w    *bufio.Writer
	path string

	lastFlush time.Time
}

// NewFile opens (or creates) the file at path in append mode with a buffered
// writer.
func NewFile(rx <-chan ohlc.Candle, path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &File{
		rx:        rx,
		f:         f,
		w:         bufio.NewWriterSize(f, 1<<16),
		path:      path,
		lastFlush: time.Now(),
	}, nil
}

// Run drains the candle channel, then flushes and closes the file. Exits when
// the channel closes or shutdown is requested.
func (s *File) Run(shutdown *lifecycle.Flag) {
	defer func() {
		if err := s.close(); err != nil {
			log.Error().Err(err).Str("path", s.path).Msg("could not close candle log")
		}
	}()

	enc := json.NewEncoder(s.w)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case c, ok := <-s.rx:
			if !ok {
				return
			}
			err := enc.Encode(&c)
			telemetry.ObserveStore(err)
			if err != nil {
				log.Error().Err(err).Uint64("start", c.Start).Msg("file write failed, dropping candle")
			}
		case <-ticker.C:
			// Wakes an idle sink so buffered candles reach the file.
		}

		if time.Since(s.lastFlush) >= time.Second {
			_ = s.w.Flush()
			s.lastFlush = time.Now()
		}

		if shutdown.IsSet() {
			return
		}
	}
}

// close flushes buffered data and closes the underlying file.
func (s *File) close() error {
	if err := s.w.Flush(); err != nil {
		_ = s.f.Close()
		return err
	}
	return s.f.Close()
}

// ReadAllCandles reads an entire JSONL candle log back as a slice. Intended
// for tests and replay tooling.
func ReadAllCandles(path string) ([]ohlc.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []ohlc.Candle
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var c ohlc.Candle
		if err := json.Unmarshal(scanner.Bytes(), &c); err == nil {
			out = append(out, c)
		}
	}
	return out, scanner.Err()
}
