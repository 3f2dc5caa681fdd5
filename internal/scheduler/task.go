/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * Copyright © 2016, 1&1 Internet SE
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

// Package scheduler implements the pull scheduler's main-thread sweep
// loop (§4.6) and the unbounded FIFO handoff to the decode worker (§4.7,
// §5).
package scheduler

import "github.com/alttch/pulr/lib/datatypes"

// TaskCmd tags a TaskResult's control meaning, per Design Notes'
// recommended tagged-struct modeling of the source's message enum.
type TaskCmd int

const (
	CmdProcess TaskCmd = iota
	CmdClearCache
	CmdTerminate
)

// TaskResult is one message sent from the scheduler to the decode worker.
// Data is nil for CmdClearCache/CmdTerminate.
type TaskResult struct {
	Cmd    TaskCmd
	Data   interface{}
	WorkID int
	Time   datatypes.EventTime
}

// NewUnboundedChan returns the send and receive ends of an unbounded FIFO:
// a goroutine-backed slice queue between two regular channels, so the
// scheduler never blocks on a slow decode worker (spec §5's back-pressure
// note: "the channel is unbounded; B must keep up, memory grows until the
// next sweep otherwise"). Closing the send end drains any buffered
// messages before closing the receive end.
func NewUnboundedChan() (chan<- TaskResult, <-chan TaskResult) {
	in := make(chan TaskResult)
	out := make(chan TaskResult)

	go func() {
		defer close(out)
		var queue []TaskResult
		src := in
		for {
			if len(queue) == 0 {
				if src == nil {
					return
				}
				v, ok := <-src
				if !ok {
					src = nil
					continue
				}
				queue = append(queue, v)
				continue
			}
			select {
			case v, ok := <-src:
				if !ok {
					src = nil
					continue
				}
				queue = append(queue, v)
			case out <- queue[0]:
				queue = queue[1:]
			}
		}
	}()

	return in, out
}
