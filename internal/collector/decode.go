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

package collector

import (
	"encoding/json"
	"strconv"
	"strings"

	"candlepipe/internal/model"
)

// decodedTicker mirrors the "data" object of the rates endpoint body.
type decodedTicker struct {
	RateUsd string `json:"rateUsd"`
}

// decodedBody mirrors the full response body of the rates endpoint.
type decodedBody struct {
	Data      decodedTicker `json:"data"`
	Timestamp uint64        `json:"timestamp"`
}

// rateDecimals is the fixed scale every decoded sample is normalized to.
const rateDecimals = 4

// decodeSample parses a response body into a PriceSample. A JSON-level
// failure is returned as an error and produces no sample. A rate string that
// cannot be decoded yields a sample with a nil Rate and Decimal 0, the
// first-class unusable-reading marker the aggregator skips.
func decodeSample(body []byte) (model.PriceSample, error) {
	var decoded decodedBody
	if err := json.Unmarshal(body, &decoded); err != nil {
		return model.PriceSample{}, err
	}

	sample := model.PriceSample{
		// The endpoint reports milliseconds; the pipeline works in seconds.
		Timestamp: decoded.Timestamp / 1000,
		Base:      model.BTC,
		Quote:     model.USD,
	}

	if rate, ok := parseRate(decoded.Data.RateUsd); ok {
		sample.Rate = &rate
		sample.Decimal = rateDecimals
	}

	return sample, nil
}

// parseRate converts a decimal string like "30000.1234" into a fixed-point
// integer with exactly four implied fractional digits. Longer fractions are
// truncated, shorter ones are right-padded with zeros. A string without a
// decimal point, or with an unparsable part, is an unusable reading.
func parseRate(s string) (uint64, bool) {
	pos := strings.IndexByte(s, '.')
	if pos < 0 {
		return 0, false
	}

	whole, err := strconv.ParseUint(s[:pos], 10, 64)
	if err != nil {
		return 0, false
	}

	frac := s[pos+1:]
	if frac == "" {
		return 0, false
	}
	if len(frac) > rateDecimals {
		frac = frac[:rateDecimals]
	}
	for len(frac) < rateDecimals {
		frac += "0"
	}

	fracVal, err := strconv.ParseUint(frac, 10, 64)
	if err != nil {
		return 0, false
	}

	return whole*10000 + fracVal, true
}
