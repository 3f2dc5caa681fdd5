/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * Copyright © 2016, 1&1 Internet SE
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

package datatypes

import (
	"math"
	"testing"
)

func TestValueToNum(t *testing.T) {
	cases := []struct {
		v    Value
		want float64
	}{
		{NewBit(true), 1},
		{NewBit(false), 0},
		{NewBool(true), 1},
		{NewUint16(42), 42},
		{NewInt32(-7), -7},
		{NewReal32(1.5), 1.5},
		{NewString("3.25"), 3.25},
	}
	for _, c := range cases {
		got, err := c.v.ToNum()
		if err != nil {
			t.Fatalf("ToNum(%v): unexpected error: %v", c.v, err)
		}
		if got != c.want {
			t.Errorf("ToNum(%v) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestValueToNumUnparsableString(t *testing.T) {
	if _, err := NewString("not-a-number").ToNum(); err == nil {
		t.Fatal("expected error parsing non-numeric string")
	}
}

func TestValueToBool(t *testing.T) {
	if b, _ := NewBit(true).ToBool(); !b {
		t.Error("bit true should cast to bool true")
	}
	if b, _ := NewUint8(0).ToBool(); b {
		t.Error("zero should cast to bool false")
	}
	if b, _ := NewUint8(5).ToBool(); !b {
		t.Error("nonzero should cast to bool true")
	}
}

func TestValueStringBitVsBool(t *testing.T) {
	if s := NewBit(true).String(); s != "1" {
		t.Errorf("bit true should render \"1\", got %q", s)
	}
	if s := NewBool(true).String(); s != "true" {
		t.Errorf("bool true should render \"true\", got %q", s)
	}
}

func TestValueMaxValue(t *testing.T) {
	max, err := NewUint8(0).MaxValue()
	if err != nil || max != math.MaxUint8 {
		t.Fatalf("MaxValue(uint8) = %v, %v; want %v, nil", max, err, math.MaxUint8)
	}
	if _, err := NewString("x").MaxValue(); err == nil {
		t.Fatal("expected error for MaxValue on string")
	}
}

func TestValueStringCanonicalRoundTrip(t *testing.T) {
	cases := map[Value]string{
		NewUint32(4294967295): "4294967295",
		NewInt64(-1):          "-1",
		NewReal64(2.5):        "2.5",
	}
	for v, want := range cases {
		if got := v.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
