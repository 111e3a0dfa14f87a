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

	"candlepipe/pkg/ohlc"
)

// Options holds the adapter-specific knobs the factory may need.
type Options struct {
	// PostgresDSN is the keyword/value connection string for the postgres
	// adapter.
	PostgresDSN string

	// RedisAddr is the host:port of the redis server.
	RedisAddr string

	// RedisPrefix namespaces the redis keys.
	RedisPrefix string

	// FilePath is the JSONL log location for the file adapter.
	FilePath string
}

// Build constructs a Sink draining rx, selected by name:
//
//   - "postgres" (default): one row per candle in the ohlc table
//   - "stdout": human-readable line per candle
//   - "redis": latest-candle hash plus bounded JSONL history list
//   - "file": buffered JSONL append log
func Build(adapter string, rx <-chan ohlc.Candle, opts Options) (Sink, error) {
	switch adapter {
	case "", "postgres":
		return NewPostgres(rx, opts.PostgresDSN), nil
	case "stdout":
		return NewStdout(rx), nil
	case "redis":
		return NewRedis(rx, NewGoRedisWriter(opts.RedisAddr), opts.RedisPrefix), nil
	case "file":
		if opts.FilePath == "" {
			return nil, fmt.Errorf("file adapter requires a path")
		}
		return NewFile(rx, opts.FilePath)
	default:
		return nil, fmt.Errorf("unknown storage adapter: %s", adapter)
	}
}
