/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * Copyright © 2016, 1&1 Internet SE
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

package transform

import (
	"math"
	"testing"
	"time"

	"github.com/alttch/pulr/lib/datatypes"
)

func TestRoundToPrecision(t *testing.T) {
	for d := 0; d <= 19; d++ {
		got, err := RoundTo(datatypes.NewReal64(1.23456789), float64(d))
		if err != nil {
			t.Fatalf("RoundTo digits=%d: unexpected error: %v", d, err)
		}
		if math.Abs(got-1.23456789) > 0.5*math.Pow(10, -float64(d)) {
			t.Errorf("RoundTo digits=%d: |%v - 1.23456789| exceeds 0.5e-%d", d, got, d)
		}
	}
}

func TestRoundToRejectsHighDigits(t *testing.T) {
	if _, err := RoundTo(datatypes.NewReal64(1), 20); err == nil {
		t.Fatal("expected error for round digits >= 20")
	}
}

func TestMultiplyDivide(t *testing.T) {
	if got, _ := Multiply(datatypes.NewUint16(4), 2.5); got != 10 {
		t.Errorf("Multiply = %v, want 10", got)
	}
	if got, _ := Divide(datatypes.NewUint16(10), 4); got != 2.5 {
		t.Errorf("Divide = %v, want 2.5", got)
	}
}

func TestCalcSpeedFirstObservation(t *testing.T) {
	state := NewSpeedState()
	speed, ok, err := CalcSpeed(datatypes.NewUint32(5), 42, 1, time.Now(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || speed != 0 {
		t.Errorf("first observation: got (%v, %v), want (0, true)", speed, ok)
	}
}

func TestCalcSpeedWrap(t *testing.T) {
	state := NewSpeedState()
	start := time.Now()
	maxVal, _ := datatypes.NewUint8(0).MaxValue()
	prev := datatypes.NewUint8(uint8(maxVal) - 1)

	if _, _, err := CalcSpeed(prev, 7, 0, start, state); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	curr := datatypes.NewUint8(2)
	speed, ok, err := CalcSpeed(curr, 7, 0, start.Add(time.Second), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected wrap observation to produce a value")
	}
	want := maxVal - (maxVal - 1) + 2
	if speed != want {
		t.Errorf("wrap speed = %v, want %v", speed, want)
	}
}

func TestCalcSpeedBelowMinInterval(t *testing.T) {
	state := NewSpeedState()
	start := time.Now()
	if _, _, err := CalcSpeed(datatypes.NewUint32(1), 9, 10, start, state); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, ok, err := CalcSpeed(datatypes.NewUint32(2), 9, 10, start.Add(time.Second), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected no observation before min_interval elapses")
	}
}

func TestCalcSpeedRejectsStringAndBool(t *testing.T) {
	state := NewSpeedState()
	if _, _, err := CalcSpeed(datatypes.NewString("x"), 1, 0, time.Now(), state); err == nil {
		t.Error("expected error for string value")
	}
	if _, _, err := CalcSpeed(datatypes.NewBool(true), 1, 0, time.Now(), state); err == nil {
		t.Error("expected error for bool value")
	}
}
