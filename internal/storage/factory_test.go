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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candlepipe/pkg/ohlc"
)

func TestBuildSelectsAdapters(t *testing.T) {
	rx := make(chan ohlc.Candle)

	sink, err := Build("stdout", rx, Options{})
	require.NoError(t, err)
	assert.IsType(t, &Stdout{}, sink)

	sink, err = Build("postgres", rx, Options{PostgresDSN: "host='127.0.0.1'"})
	require.NoError(t, err)
	assert.IsType(t, &Postgres{}, sink)

	// The empty selector falls back to postgres.
	sink, err = Build("", rx, Options{})
	require.NoError(t, err)
	assert.IsType(t, &Postgres{}, sink)

	sink, err = Build("redis", rx, Options{RedisAddr: "127.0.0.1:6379"})
	require.NoError(t, err)
	assert.IsType(t, &Redis{}, sink)

	sink, err = Build("file", rx, Options{FilePath: filepath.Join(t.TempDir(), "c.jsonl")})
	require.NoError(t, err)
	assert.IsType(t, &File{}, sink)
}

func TestBuildRejectsUnknownAdapter(t *testing.T) {
	_, err := Build("mongodb", nil, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage adapter")
}

func TestBuildFileRequiresPath(t *testing.T) {
	_, err := Build("file", nil, Options{})
	require.Error(t, err)
}
