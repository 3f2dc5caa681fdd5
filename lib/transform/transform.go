/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * Copyright © 2016, 1&1 Internet SE
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

// Package transform implements the pure numeric operations and the
// stateful growth-speed transform applied to a decoded Value.
package transform

import (
	"fmt"
	"math"
	"time"

	"github.com/alttch/pulr/lib/datatypes"
)

// Multiply returns value * x.
func Multiply(v datatypes.Value, x float64) (float64, error) {
	n, err := numOrParse(v)
	if err != nil {
		return 0, err
	}
	return n * x, nil
}

// Divide returns value / x.
func Divide(v datatypes.Value, x float64) (float64, error) {
	n, err := numOrParse(v)
	if err != nil {
		return 0, err
	}
	return n / x, nil
}

// RoundTo returns round(value * 10^digits) / 10^digits. digits must be in
// [0, 19]; 19 or below is the last representable decimal power before
// float64 precision loss makes the operation meaningless, matching the
// source's round_to panic at digits >= 20.
func RoundTo(v datatypes.Value, digits float64) (float64, error) {
	if digits >= 20 {
		return 0, fmt.Errorf("max round: 19 digits (%v)", digits)
	}
	n, err := numOrParse(v)
	if err != nil {
		return 0, err
	}
	m := math.Pow(10, digits)
	return math.Round(n*m) / m, nil
}

// numOrParse rejects Bool (multiply/divide/round are not defined for it,
// mirroring the source's unimplemented!() on bool) and otherwise performs
// the normal lossy numeric cast, including string parsing.
func numOrParse(v datatypes.Value) (float64, error) {
	if v.Kind == datatypes.KindBool {
		return 0, fmt.Errorf("transform unsupported for value kind %s", v.Kind)
	}
	return v.ToNum()
}

// SpeedState is the per-id_hash state kept by CalcSpeed. It must be owned
// exclusively by the decode-worker goroutine that calls CalcSpeed — see
// Design Notes in SPEC_FULL.md on thread-local caches.
type SpeedState map[uint64]speedEntry

type speedEntry struct {
	value float64
	last  time.Time
}

// NewSpeedState constructs an empty speed table.
func NewSpeedState() SpeedState { return make(SpeedState) }

// CalcSpeed computes a rate of change with wrap-around, as described in
// spec §4.1. Returns (speed, true, nil) when a value was produced,
// (0, false, nil) when the minimum interval has not yet elapsed (state is
// left untouched), and a non-nil error for String/Bool values.
func CalcSpeed(v datatypes.Value, idHash uint64, minIntervalSeconds float64, now time.Time, state SpeedState) (float64, bool, error) {
	if v.Kind == datatypes.KindString || v.Kind == datatypes.KindBool {
		return 0, false, fmt.Errorf("unable to calculate speed for value kind %s", v.Kind)
	}
	value, err := v.ToNum()
	if err != nil {
		return 0, false, err
	}
	maxVal, err := v.MaxValue()
	if err != nil {
		return 0, false, err
	}

	prev, ok := state[idHash]
	if !ok {
		state[idHash] = speedEntry{value: value, last: now}
		return 0, true, nil
	}

	elapsed := now.Sub(prev.last).Seconds()
	if elapsed < minIntervalSeconds {
		return 0, false, nil
	}

	var delta float64
	if value >= prev.value {
		delta = value - prev.value
	} else {
		delta = maxVal - prev.value + value
	}
	state[idHash] = speedEntry{value: value, last: now}
	return delta / elapsed, true, nil
}
