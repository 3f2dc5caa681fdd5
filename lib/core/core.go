/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * Copyright © 2016, 1&1 Internet SE
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

// Package core wires the change cache, the speed-transform state, the
// event-timeout timer, and the output sink into the single pipeline a
// decode worker drives per spec §4.3 and §4.8.
package core

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Sirupsen/logrus"
	metrics "github.com/rcrowley/go-metrics"

	"github.com/alttch/pulr/lib/cache"
	"github.com/alttch/pulr/lib/datatypes"
	"github.com/alttch/pulr/lib/output"
	"github.com/alttch/pulr/lib/transform"
)

// Registry is the process-wide meter registry, named and populated the way
// the teacher's lib/cyclone.Cyclone registers its /metrics/*.per.second
// meters — kept internal bookkeeping (no HTTP exposition) per SPEC_FULL.md.
var Registry = metrics.NewRegistry()

var (
	decodedMeter     = metrics.GetOrRegisterMeter(`/pulr/datapoints.decoded.per.second`, Registry)
	emittedMeter     = metrics.GetOrRegisterMeter(`/pulr/events.emitted.per.second`, Registry)
	suppressedMeter  = metrics.GetOrRegisterMeter(`/pulr/events.suppressed.per.second`, Registry)
	overrunMeter     = metrics.GetOrRegisterMeter(`/pulr/sweeps.overrun.per.second`, Registry)
)

// MarkDecoded records one successfully decoded datapoint, called by each
// protocol decode worker before building the Event.
func MarkDecoded() { decodedMeter.Mark(1) }

// MarkOverrun records one sweep-loop overrun, called from the scheduler's
// interval.Loop.Sleep callback.
func MarkOverrun() { overrunMeter.Mark(1) }

// Core is owned exclusively by one decode-worker goroutine; its cache and
// speed maps are plain, unsynchronized state (Design Notes: thread-local).
// lastEmit is the one field read from the scheduler goroutine, hence the
// atomic.Pointer — it holds a monotonic time.Time, never round-tripped
// through UnixNano()/time.Unix(), so event-timeout detection can't be
// fooled by a wall-clock step (NTP, manual clock change), matching the
// source's use of std::time::Instant for this timer.
type Core struct {
	cache    *cache.Cache
	speed    transform.SpeedState
	sink     *output.Sink
	timeFmt  datatypes.TimeFormat
	flags    datatypes.OutputFlags

	eventTimeoutNanos int64 // 0 disables the feature
	lastEmit          atomic.Pointer[time.Time]
}

// New constructs a Core. eventTimeout of 0 disables event-timeout tracking.
func New(sink *output.Sink, timeFmt datatypes.TimeFormat, flags datatypes.OutputFlags, eventTimeout time.Duration) *Core {
	c := &Core{
		cache:             cache.New(),
		speed:             transform.NewSpeedState(),
		sink:              sink,
		timeFmt:           timeFmt,
		flags:             flags,
		eventTimeoutNanos: int64(eventTimeout),
	}
	now := time.Now()
	c.lastEmit.Store(&now)
	return c
}

// CreateEventTime captures call_time immediately before a device read, per
// spec §4.6 step 2a.
func (c *Core) CreateEventTime() datatypes.EventTime {
	return datatypes.NewEventTime(c.timeFmt)
}

// CreateEvent builds an Event from a decoded value and its transform
// chain, tagged with the shared call_time and the Core's output flags.
func (c *Core) CreateEvent(id string, value datatypes.Value, transforms datatypes.TransformList, t datatypes.EventTime) datatypes.Event {
	return datatypes.NewEvent(id, value, transforms, t, c.flags)
}

// Output recurses over the event's transform chain, computes the
// canonical string of the final value, and dispatches through the change
// cache to the sink. At most one line is written. A CalcSpeed step that
// returns "not yet" (elapsed < min_interval) silently drops the whole
// emission, matching the source's Option::None short-circuit.
func (c *Core) Output(ev datatypes.Event) error {
	final := ev.Value
	now := ev.Time.Monotonic()

	for _, step := range ev.Transforms {
		switch step.Func {
		case datatypes.FuncMultiply:
			n, err := transform.Multiply(final, arg(step, 0))
			if err != nil {
				return err
			}
			final = datatypes.NewReal64(n)
		case datatypes.FuncDivide:
			n, err := transform.Divide(final, arg(step, 0))
			if err != nil {
				return err
			}
			final = datatypes.NewReal64(n)
		case datatypes.FuncRoundTo:
			n, err := transform.RoundTo(final, arg(step, 0))
			if err != nil {
				return err
			}
			final = datatypes.NewReal64(n)
		case datatypes.FuncCalcSpeed:
			n, ok, err := transform.CalcSpeed(final, ev.IDHash, arg(step, 0), now, c.speed)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			final = datatypes.NewReal64(n)
		default:
			return fmt.Errorf("unhandled transform function %d", step.Func)
		}
	}

	rendered := final.String()
	if !c.cache.Check(ev.IDHash, rendered) {
		suppressedMeter.Mark(1)
		return nil
	}
	emittedMeter.Mark(1)

	if c.eventTimeoutNanos > 0 {
		c.lastEmit.Store(&now)
	}

	return c.sink.Write(output.Record{
		ID:   ev.ID,
		Val:  final,
		Time: ev.Time.String(),
	})
}

func arg(t datatypes.TransformTask, i int) float64 {
	if i >= len(t.Args) {
		return 0
	}
	return t.Args[i]
}

// SinceEvent reports the duration since the most recently emitted event.
func (c *Core) SinceEvent() time.Duration {
	return time.Since(*c.lastEmit.Load())
}

// IsEventTimeout reports whether event-timeout tracking is enabled and the
// time since the last emitted event exceeds the configured timeout.
func (c *Core) IsEventTimeout() bool {
	if c.eventTimeoutNanos <= 0 {
		return false
	}
	return c.SinceEvent() > time.Duration(c.eventTimeoutNanos)
}

// ClearEventCache empties the change cache, forcing the next sweep's
// values to re-emit unconditionally (the "resend" control message).
func (c *Core) ClearEventCache() {
	c.cache.Clear()
}

// EmitBeacon writes the format-specific heartbeat line through the Core's
// sink.
func (c *Core) EmitBeacon() error {
	return c.sink.Beacon()
}

// LogMetricsSnapshot writes the current meter rates to the debug log, the
// only exposition these meters get (no HTTP server, per SPEC_FULL.md).
func LogMetricsSnapshot() {
	logrus.Debugf("metrics: decoded=%.2f/s emitted=%.2f/s suppressed=%.2f/s overrun=%.2f/s",
		decodedMeter.Rate1(), emittedMeter.Rate1(), suppressedMeter.Rate1(), overrunMeter.Rate1())
}
