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

// Package lifecycle implements the process-wide cooperative shutdown flag.
//
// Every stage polls the flag at the top of its loop and after each unit of
// work. There is no preemption: a stage that is sleeping or waiting on I/O
// observes the flag when it wakes, so shutdown latency is bounded by the
// longest sleep in any stage.
package lifecycle

import (
	"os"
	"os/signal"
	"sync/atomic"
)

// Flag is a many-reader, any-writer shutdown indicator. The zero value means
// "run". Once set it never clears.
type Flag struct {
	v atomic.Uint32
}

// Set flips the flag to the shut-down state. Uses a sequentially consistent
// store so the transition is immediately visible to all readers.
func (f *Flag) Set() {
	f.v.Store(1)
}

// IsSet reports whether shutdown has been requested.
func (f *Flag) IsSet() bool {
	return f.v.Load() != 0
}

// SetOnSignal arranges for the flag to be set when any of the given OS
// signals is delivered. The watcher goroutine exits after the first signal.
func (f *Flag) SetOnSignal(sigs ...os.Signal) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)
	go func() {
		<-ch
		signal.Stop(ch)
		f.Set()
	}()
}
