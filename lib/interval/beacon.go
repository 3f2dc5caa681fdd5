/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * Copyright © 2016, 1&1 Internet SE
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

package interval

import "time"

// Beacon emits a heartbeat at most once per Ping call, skipping forward
// past any number of missed intervals rather than flooding the sink with
// one emission per missed tick.
type Beacon struct {
	interval time.Duration
	next     time.Time
}

// NewBeacon constructs a Beacon. A zero interval disables it; callers
// should skip calling Ping entirely when the beacon is unconfigured.
func NewBeacon(interval time.Duration) *Beacon {
	return &Beacon{interval: interval, next: time.Now().Add(interval)}
}

// Ping reports whether the beacon should fire on this call, and advances
// its schedule by whole intervals until back in the future — so a beacon
// silent for N*interval fires exactly once on the next Ping, not N times.
func (b *Beacon) Ping(now time.Time) bool {
	if b.interval <= 0 || now.Before(b.next) {
		return false
	}
	for !now.Before(b.next) {
		b.next = b.next.Add(b.interval)
	}
	return true
}
