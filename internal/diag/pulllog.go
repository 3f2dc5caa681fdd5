/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * Copyright © 2016, 1&1 Internet SE
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

// Package diag implements the optional per-pull timing log dumped when a
// sweep overruns its interval and PULR_VERBOSE_WARNINGS is set, per
// spec §4.6 step 5 and C10.
package diag

import (
	"fmt"
	"strings"
	"time"
)

// PullLog accumulates one timing entry per PullSpec for a single sweep.
type PullLog struct {
	entries []entry
}

type entry struct {
	id      string
	started time.Time
	elapsed time.Duration
	done    bool
}

// New returns an empty PullLog, ready for one sweep's worth of entries.
func New() *PullLog {
	return &PullLog{}
}

// Start records the beginning of a pull identified by id, returning its
// index for the matching Done call.
func (p *PullLog) Start(id string) int {
	p.entries = append(p.entries, entry{id: id, started: time.Now()})
	return len(p.entries) - 1
}

// Done marks the pull at idx as completed, recording its elapsed time.
func (p *PullLog) Done(idx int) {
	if idx < 0 || idx >= len(p.entries) {
		return
	}
	p.entries[idx].elapsed = time.Since(p.entries[idx].started)
	p.entries[idx].done = true
}

// Summary renders the accumulated entries as "Time spent: <id>: <ms> ms, ...",
// per spec §4.6 step 5's literal format.
func (p *PullLog) Summary() string {
	var b strings.Builder
	b.WriteString("Time spent: ")
	for i, e := range p.entries {
		if i > 0 {
			b.WriteString(", ")
		}
		if e.done {
			fmt.Fprintf(&b, "%s: %d ms", e.id, e.elapsed.Milliseconds())
		} else {
			fmt.Fprintf(&b, "%s: incomplete", e.id)
		}
	}
	return b.String()
}

// Reset empties the log for reuse on the next sweep.
func (p *PullLog) Reset() {
	p.entries = p.entries[:0]
}
