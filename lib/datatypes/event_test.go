/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * Copyright © 2016, 1&1 Internet SE
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

package datatypes

import "testing"

func TestStableHashIsPureFunctionOfID(t *testing.T) {
	a := NewEvent("sensor.a", NewUint16(1), nil, EventTime{}, OutputFlags{})
	b := NewEvent("sensor.a", NewUint16(99), nil, EventTime{}, OutputFlags{})
	if a.IDHash != b.IDHash {
		t.Errorf("id_hash differs for identical ids: %d != %d", a.IDHash, b.IDHash)
	}
	c := NewEvent("sensor.b", NewUint16(1), nil, EventTime{}, OutputFlags{})
	if a.IDHash == c.IDHash {
		t.Error("id_hash collided for different ids (not guaranteed impossible, but suspicious for this test fixture)")
	}
}

func TestParseTimeFormat(t *testing.T) {
	cases := map[string]TimeFormat{
		"":         TimeOmit,
		"raw":      TimeRaw,
		"rfc3339":  TimeRFC3339,
		"timestamp": TimeRaw,
	}
	for in, want := range cases {
		got, err := ParseTimeFormat(in)
		if err != nil {
			t.Fatalf("ParseTimeFormat(%q): unexpected error: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseTimeFormat(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseTimeFormat("bogus"); err == nil {
		t.Fatal("expected error for unknown time format")
	}
}
