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
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"

	"candlepipe/internal/lifecycle"
	"candlepipe/internal/telemetry"
	"candlepipe/pkg/ohlc"
)

// Stdout is a stateless sink that writes a human-readable line per candle to
// standard output. Useful for local runs and as a reference Sink
// implementation.
type Stdout struct {
	rx <-chan ohlc.Candle
	w  io.Writer
}

// NewStdout creates the sink. Output goes to os.Stdout.
func NewStdout(rx <-chan ohlc.Candle) *Stdout {
	return &Stdout{rx: rx, w: os.Stdout}
}

// Run drains the candle channel. Exits when the channel closes or shutdown is
// requested.
func (s *Stdout) Run(shutdown *lifecycle.Flag) {
	for c := range s.rx {
		_, err := fmt.Fprintln(s.w, c.String())
		telemetry.ObserveStore(err)
		if err != nil {
			log.Error().Err(err).Uint64("start", c.Start).Msg("stdout write failed, dropping candle")
		}

		if shutdown.IsSet() {
			return
		}
	}
}
