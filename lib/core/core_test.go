/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * Copyright © 2016, 1&1 Internet SE
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

package core

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/alttch/pulr/lib/datatypes"
	"github.com/alttch/pulr/lib/output"
)

func newTestCore(buf *bytes.Buffer, eventTimeout time.Duration) *Core {
	sink := output.New(buf, output.FormatNDJSON)
	return New(sink, datatypes.TimeOmit, datatypes.OutputFlags{}, eventTimeout)
}

func TestOutputChangeSuppression(t *testing.T) {
	var buf bytes.Buffer
	c := newTestCore(&buf, 0)

	values := []datatypes.Value{
		datatypes.NewUint16(1),
		datatypes.NewUint16(1),
		datatypes.NewUint16(2),
		datatypes.NewUint16(2),
		datatypes.NewUint16(1),
	}
	for _, v := range values {
		ev := c.CreateEvent("sensor.a", v, nil, c.CreateEventTime())
		if err := c.Output(ev); err != nil {
			t.Fatalf("Output: unexpected error: %v", err)
		}
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d emitted lines, want 3 for sequence 1,1,2,2,1", len(lines))
	}
}

func TestOutputCalcSpeedDropsUntilMinIntervalElapses(t *testing.T) {
	var buf bytes.Buffer
	c := newTestCore(&buf, 0)

	transforms := datatypes.TransformList{
		{Func: datatypes.FuncCalcSpeed, Args: []float64{10}},
	}

	ev1 := c.CreateEvent("counter.a", datatypes.NewUint32(1), transforms, c.CreateEventTime())
	if err := c.Output(ev1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := buf.String(), `{"id":"counter.a","value":0}`+"\n"; got != want {
		t.Fatalf("first CalcSpeed observation = %q, want %q (speed 0)", got, want)
	}
	buf.Reset()

	ev2 := c.CreateEvent("counter.a", datatypes.NewUint32(5), transforms, c.CreateEventTime())
	if err := c.Output(ev2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("CalcSpeed observation before min interval elapses must not emit, got %q", buf.String())
	}
}

func TestOutputMultiplyAndRoundTo(t *testing.T) {
	var buf bytes.Buffer
	c := newTestCore(&buf, 0)

	transforms := datatypes.TransformList{
		{Func: datatypes.FuncMultiply, Args: []float64{2}},
		{Func: datatypes.FuncRoundTo, Args: []float64{1}},
	}
	ev := c.CreateEvent("a", datatypes.NewReal64(1.27), transforms, c.CreateEventTime())
	if err := c.Output(ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"id":"a","value":2.5}` + "\n"
	if got := buf.String(); got != want {
		t.Errorf("Output = %q, want %q", got, want)
	}
}

func TestEventTimeoutTracking(t *testing.T) {
	var buf bytes.Buffer
	c := newTestCore(&buf, time.Millisecond)

	ev := c.CreateEvent("a", datatypes.NewUint16(1), nil, c.CreateEventTime())
	if err := c.Output(ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.IsEventTimeout() {
		t.Error("should not be timed out immediately after an emission")
	}
	time.Sleep(5 * time.Millisecond)
	if !c.IsEventTimeout() {
		t.Error("should report timeout once SinceEvent exceeds the configured timeout")
	}
}

func TestEventTimeoutDisabledWhenZero(t *testing.T) {
	var buf bytes.Buffer
	c := newTestCore(&buf, 0)
	time.Sleep(2 * time.Millisecond)
	if c.IsEventTimeout() {
		t.Error("IsEventTimeout must always be false when event-timeout tracking is disabled")
	}
}

func TestClearEventCacheForcesReEmit(t *testing.T) {
	var buf bytes.Buffer
	c := newTestCore(&buf, 0)

	ev := c.CreateEvent("a", datatypes.NewUint16(1), nil, c.CreateEventTime())
	c.Output(ev)
	buf.Reset()

	ev2 := c.CreateEvent("a", datatypes.NewUint16(1), nil, c.CreateEventTime())
	if err := c.Output(ev2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatal("unchanged value should be suppressed before Clear")
	}

	c.ClearEventCache()
	ev3 := c.CreateEvent("a", datatypes.NewUint16(1), nil, c.CreateEventTime())
	if err := c.Output(ev3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("after ClearEventCache, the same value must re-emit")
	}
}

func TestEmitBeacon(t *testing.T) {
	var buf bytes.Buffer
	c := newTestCore(&buf, 0)
	if err := c.EmitBeacon(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != "\n" {
		t.Errorf("EmitBeacon = %q, want a single blank line", buf.String())
	}
}
