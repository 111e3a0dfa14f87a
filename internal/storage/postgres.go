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
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"candlepipe/internal/lifecycle"
	"candlepipe/internal/telemetry"
	"candlepipe/pkg/ohlc"
)

// Postgres schema (reference):
//
// CREATE TABLE IF NOT EXISTS ohlc (
//   start    TIMESTAMPTZ NOT NULL,
//   open     BIGINT NOT NULL,
//   high     BIGINT NOT NULL,
//   low      BIGINT NOT NULL,
//   close    BIGINT NOT NULL,
//   duration INT NOT NULL
// );

const insertCandleSQL = `
	insert into ohlc(start, open, high, low, close, duration)
	values(to_timestamp($1::bigint), $2, $3, $4, $5, $6)
`

// Postgres writes one row per completed minute candle.
//
// The connection pool is established lazily on the first candle and retained.
// A connect or insert failure is logged and the candle dropped; the next
// candle triggers a fresh connection attempt.
type Postgres struct {
	rx    <-chan ohlc.Candle
	dsn   string
	pool  *pgxpool.Pool
	count int
}

// NewPostgres creates a sink that connects with the given DSN on first use.
func NewPostgres(rx <-chan ohlc.Candle, dsn string) *Postgres {
	return &Postgres{rx: rx, dsn: dsn}
}

// Run drains the candle channel. Exits when the channel closes or shutdown is
// requested. Closes the pool on return.
func (p *Postgres) Run(shutdown *lifecycle.Flag) {
	defer func() {
		if p.pool != nil {
			p.pool.Close()
		}
	}()

	for c := range p.rx {
		p.count++

		err := p.insert(c)
		telemetry.ObserveStore(err)
		if err != nil {
			log.Error().Err(err).Uint64("start", c.Start).Msg("database insert failed, dropping candle")
		}

		if shutdown.IsSet() {
			return
		}
	}
}

// connectionEnsure opens the pool if it is not active yet.
func (p *Postgres) connectionEnsure(ctx context.Context) error {
	if p.pool != nil {
		return nil
	}

	pool, err := pgxpool.New(ctx, p.dsn)
	if err != nil {
		return fmt.Errorf("could not connect to db: %w", err)
	}
	p.pool = pool
	return nil
}

// insert writes a single candle row.
func (p *Postgres) insert(c ohlc.Candle) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := p.connectionEnsure(ctx); err != nil {
		return err
	}

	_, err := p.pool.Exec(ctx, insertCandleSQL,
		int64(c.Start), int64(c.Open), int64(c.High), int64(c.Low), int64(c.Close), int32(c.Duration),
	)
	return err
}
