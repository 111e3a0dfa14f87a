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

// Package display renders the freshest in-progress candle to the terminal on
// a fixed cadence. The snapshot slot swap is the only synchronization with
// the aggregator; it is atomic and wait-free on both sides.
package display

import (
	"fmt"
	"io"
	"os"
	"time"

	"candlepipe/internal/lifecycle"
	"candlepipe/pkg/handoff"
	"candlepipe/pkg/ohlc"
)

// DefaultInterval is the terminal refresh cadence.
const DefaultInterval = 1000 * time.Millisecond

// Display reads the latest snapshot once per tick and prints one line.
type Display struct {
	slot     *handoff.Slot[ohlc.Candle]
	interval time.Duration
	w        io.Writer
}

// New creates a display reading from slot at the default 1 Hz cadence,
// writing to standard output.
func New(slot *handoff.Slot[ohlc.Candle]) *Display {
	return &Display{
		slot:     slot,
		interval: DefaultInterval,
		w:        os.Stdout,
	}
}

// SetInterval overrides the refresh cadence.
func (d *Display) SetInterval(interval time.Duration) {
	d.interval = interval
}

// SetWriter redirects output, for tests.
func (d *Display) SetWriter(w io.Writer) {
	d.w = w
}

// Run renders until shutdown is requested. Each tick empties the snapshot
// slot; the most recently received candle is rendered on every tick until a
// newer one is published.
func (d *Display) Run(shutdown *lifecycle.Flag) {
	var last *ohlc.Candle

	for !shutdown.IsSet() {
		if got := d.slot.Swap(nil); got != nil {
			last = got
		}

		if last != nil && !last.Zero() {
			fmt.Fprintln(d.w, last.String())
		}

		time.Sleep(d.interval)
	}
}
