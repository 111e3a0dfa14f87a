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

// Package storage persists completed candles behind a pluggable Sink.
//
// Every adapter follows the same policy: a write failure is logged and the
// candle dropped, so a slow or unavailable backend can never build unbounded
// lag behind the real-time pipeline. The only buffering is the bounded candle
// channel itself.
package storage

import (
	"candlepipe/internal/lifecycle"
)

// Sink consumes finished candles and writes them to a durable target. Run
// drains the candle channel until it closes or shutdown is requested, checking
// the flag after every processed candle.
type Sink interface {
	Run(shutdown *lifecycle.Flag)
}
