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
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"candlepipe/internal/lifecycle"
	"candlepipe/internal/telemetry"
	"candlepipe/pkg/ohlc"
)

// RedisWriter abstracts the minimal surface we need from a Redis client.
// Implementations may wrap github.com/redis/go-redis/v9 or any equivalent.
type RedisWriter interface {
	HSet(ctx context.Context, key string, values ...interface{}) error
	RPush(ctx context.Context, key string, values ...interface{}) error
	LTrim(ctx context.Context, key string, start, stop int64) error
}

// GoRedisWriter wraps github.com/redis/go-redis/v9 as a RedisWriter. Use
// NewGoRedisWriter with an address like "127.0.0.1:6379".
type GoRedisWriter struct{ c *redis.Client }

func NewGoRedisWriter(addr string) *GoRedisWriter {
	return &GoRedisWriter{c: redis.NewClient(&redis.Options{Addr: addr})}
}

func (g *GoRedisWriter) HSet(ctx context.Context, key string, values ...interface{}) error {
	return g.c.HSet(ctx, key, values...).Err()
}

func (g *GoRedisWriter) RPush(ctx context.Context, key string, values ...interface{}) error {
	return g.c.RPush(ctx, key, values...).Err()
}

func (g *GoRedisWriter) LTrim(ctx context.Context, key string, start, stop int64) error {
	return g.c.LTrim(ctx, key, start, stop).Err()
}

// redisHistoryMax bounds the candle history list so an unattended instance
// cannot grow the key without limit.
const redisHistoryMax = 1000

// Redis keeps the latest completed candle in a hash and a bounded JSON-line
// history in a list, both under a configurable key prefix.
type Redis struct {
	rx     <-chan ohlc.Candle
	client RedisWriter
	prefix string
}

// NewRedis creates a sink writing through the given client. prefix namespaces
// the keys, e.g. "candlepipe" yields candlepipe:latest and candlepipe:candles.
func NewRedis(rx <-chan ohlc.Candle, client RedisWriter, prefix string) *Redis {
	if prefix == "" {
		prefix = "candlepipe"
	}
	return &Redis{rx: rx, client: client, prefix: prefix}
}

// LatestKey returns the hash key holding the most recent candle.
func (r *Redis) LatestKey() string { return fmt.Sprintf("%s:latest", r.prefix) }

// HistoryKey returns the list key holding the bounded candle history.
func (r *Redis) HistoryKey() string { return fmt.Sprintf("%s:candles", r.prefix) }

// Run drains the candle channel. Exits when the channel closes or shutdown is
// requested.
func (r *Redis) Run(shutdown *lifecycle.Flag) {
	for c := range r.rx {
		err := r.write(c)
		telemetry.ObserveStore(err)
		if err != nil {
			log.Error().Err(err).Uint64("start", c.Start).Msg("redis write failed, dropping candle")
		}

		if shutdown.IsSet() {
			return
		}
	}
}

// write updates the latest-candle hash and appends to the trimmed history list.
func (r *Redis) write(c ohlc.Candle) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.client.HSet(ctx, r.LatestKey(),
		"start", c.Start, "open", c.Open, "high", c.High,
		"low", c.Low, "close", c.Close, "duration", c.Duration,
	); err != nil {
		return fmt.Errorf("hset %s: %w", r.LatestKey(), err)
	}

	line, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal candle: %w", err)
	}
	if err := r.client.RPush(ctx, r.HistoryKey(), line); err != nil {
		return fmt.Errorf("rpush %s: %w", r.HistoryKey(), err)
	}
	if err := r.client.LTrim(ctx, r.HistoryKey(), -redisHistoryMax, -1); err != nil {
		return fmt.Errorf("ltrim %s: %w", r.HistoryKey(), err)
	}
	return nil
}
