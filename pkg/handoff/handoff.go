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

// Package handoff provides a single-slot, wait-free exchange cell for passing
// the freshest value from one producer to one consumer.
//
// The producer swaps a new value in on every publish; the consumer swaps nil
// in on every read. Only the most-recently-published value is observable and
// older values are discarded on swap. The swap is a single atomic pointer
// exchange and never blocks either side.
package handoff

import "sync/atomic"

// Slot is a single-cell atomic hand-off. The zero value is an empty slot and
// ready for use.
type Slot[T any] struct {
	ptr atomic.Pointer[T]
}

// Swap stores v in the slot and returns whatever was there before. A nil v
// empties the slot; a nil return means the slot was empty.
func (s *Slot[T]) Swap(v *T) *T {
	return s.ptr.Swap(v)
}

// Load returns the current occupant without taking ownership. Intended for
// observers that must not disturb the producer/consumer exchange.
func (s *Slot[T]) Load() *T {
	return s.ptr.Load()
}
