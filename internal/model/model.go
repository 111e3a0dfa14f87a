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

// Package model holds the normalized data shapes exchanged between pipeline
// stages. Values are copied across channel boundaries; no stage shares mutable
// references with another.
package model

// Symbol enumerates the currency symbols the service understands.
type Symbol uint8

const (
	BTC Symbol = iota
	USD
)

// String returns the conventional ticker spelling.
func (s Symbol) String() string {
	switch s {
	case BTC:
		return "BTC"
	case USD:
		return "USD"
	default:
		return "UNKNOWN"
	}
}

// PriceSample is one observation of a currency pair.
//
// Rate is a fixed-point integer that must be divided by 10^Decimal to obtain
// the real value. A nil Rate is a first-class unusable-reading marker: the
// body arrived but the rate could not be decoded. The aggregator skips such
// samples.
type PriceSample struct {
	// Timestamp is the remote-reported instant, truncated to Unix seconds.
	Timestamp uint64

	// Base is the first currency of the pair, e.g. BTC in BTC/USD.
	Base Symbol

	// Quote is the second currency of the pair, e.g. USD in BTC/USD.
	Quote Symbol

	// Rate is the fixed-point exchange rate, nil when decoding failed.
	Rate *uint64

	// Decimal is the number of fractional digits encoded in Rate.
	Decimal uint8
}
