/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * Copyright © 2016, 1&1 Internet SE
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

// Package interval implements the drift-free sweep pacer and the silent-
// pipe heartbeat, per spec §4.5.
package interval

import (
	"fmt"
	"time"
)

// Loop is a drift-free periodic pacer: Sleep blocks until the next
// scheduled instant, then advances by one interval. On overrun it re-bases
// to now+interval exactly once, rather than trying to catch up.
type Loop struct {
	interval time.Duration
	next     time.Time
}

// NewLoop constructs a Loop whose first Sleep call blocks until one
// interval after construction (next is set to now+interval).
func NewLoop(interval time.Duration) *Loop {
	return &Loop{interval: interval, next: time.Now().Add(interval)}
}

// Sleep blocks until the loop's next scheduled instant and advances it by
// one interval. Returns true when the call was on-time, false when the
// loop had already overrun on entry, in which case a warning is returned
// via the onOverrun callback argument (nil-safe) instead of being logged
// directly, so callers can route it through their own logger.
func (l *Loop) Sleep(onOverrun func(msg string)) bool {
	now := time.Now()
	if now.After(l.next) {
		overshoot := now.Sub(l.next)
		if onOverrun != nil {
			onOverrun(fmt.Sprintf("loop timeout (%s + %s)", l.interval, overshoot))
		}
		l.next = now.Add(l.interval)
		return false
	}
	time.Sleep(l.next.Sub(now))
	l.next = l.next.Add(l.interval)
	return true
}

// Next reports the loop's currently scheduled next instant.
func (l *Loop) Next() time.Time { return l.next }
