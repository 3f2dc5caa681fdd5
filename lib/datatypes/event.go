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
	"hash/fnv"
	"strconv"
	"time"
)

// TimeFormat selects how an EventTime renders in output.
type TimeFormat int

const (
	// TimeOmit drops the time field entirely.
	TimeOmit TimeFormat = iota
	// TimeRaw renders seconds.fraction since the Unix epoch.
	TimeRaw
	// TimeRFC3339 renders RFC3339 in the local timezone.
	TimeRFC3339
)

// ParseTimeFormat maps a config string to a TimeFormat. Unknown values are a
// fatal configuration error (spec §7).
func ParseTimeFormat(s string) (TimeFormat, error) {
	switch s {
	case "":
		return TimeOmit, nil
	case "rfc3339":
		return TimeRFC3339, nil
	case "raw", "timestamp":
		return TimeRaw, nil
	default:
		return TimeOmit, &unknownTimeFormatError{s}
	}
}

type unknownTimeFormatError struct{ s string }

func (e *unknownTimeFormatError) Error() string {
	return "unknown time format: " + e.s
}

// EventTime is a wall-clock/monotonic instant pair captured together,
// immediately before a device read. The monotonic reading carried by Wall
// feeds only the speed transform and the event-timeout timer; the wall
// clock part is used only for formatting.
type EventTime struct {
	Wall       time.Time
	Format     TimeFormat
}

// NewEventTime captures "now" in both wall and monotonic form. time.Now()
// in Go carries a monotonic reading alongside the wall clock, so a single
// call serves both purposes (Design Notes: capture both at pull start).
func NewEventTime(format TimeFormat) EventTime {
	return EventTime{Wall: time.Now(), Format: format}
}

// Monotonic returns the monotonic instant usable for duration arithmetic
// (time.Time.Sub strips the monotonic reading once either operand is
// stripped of it; callers should always feed the Wall field straight into
// Sub rather than through any serialization round-trip).
func (t EventTime) Monotonic() time.Time { return t.Wall }

// AsSeconds renders the wall clock as seconds.fraction since the epoch.
func (t EventTime) AsSeconds() float64 {
	return float64(t.Wall.UnixNano()) / 1e9
}

// String renders the time per its configured format; empty string when
// TimeOmit.
func (t EventTime) String() string {
	switch t.Format {
	case TimeRaw:
		return strconv.FormatFloat(t.AsSeconds(), 'f', -1, 64)
	case TimeRFC3339:
		return t.Wall.Local().Format(time.RFC3339)
	default:
		return ""
	}
}

// OutputFlags carries per-event output-shape toggles.
type OutputFlags struct {
	// JSONShort emits {<id>: value} instead of {id, value} in ndjson.
	JSONShort bool
}

// StableHash is a pure function of id: two events built from the same id
// produce identical hashes (spec §8). fnv-1a is the corpus's stand-in for
// the source's DefaultHasher — no third-party hashing library is wired to
// any component in the example pack.
func StableHash(id string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return h.Sum64()
}

// Event is an ephemeral, single-sweep decoded datapoint: an id, its value,
// a shared event time, a transform chain, and output flags. Constructed by
// a decode worker, consumed once by Core.Output, then discarded.
type Event struct {
	ID         string
	IDHash     uint64
	Value      Value
	Time       EventTime
	Transforms TransformList
	Flags      OutputFlags
}

// NewEvent builds an Event, computing id_hash once at construction.
func NewEvent(id string, value Value, transforms TransformList, t EventTime, flags OutputFlags) Event {
	return Event{
		ID:         id,
		IDHash:     StableHash(id),
		Value:      value,
		Time:       t,
		Transforms: transforms,
		Flags:      flags,
	}
}
