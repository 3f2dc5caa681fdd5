/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * Copyright © 2016, 1&1 Internet SE
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/Sirupsen/logrus"

	"github.com/alttch/pulr/internal/config"
	"github.com/alttch/pulr/internal/diag"
	"github.com/alttch/pulr/lib/core"
	"github.com/alttch/pulr/lib/interval"
)

// Reader issues one blocking device read per pull spec. Implemented by
// each internal/proto/* package; returns the protocol's raw payload
// shape (a Modbus word array, an EnIP tag handle, a decoded SNMP varbind
// map) as an opaque interface{} that only the matching decode worker
// interprets.
type Reader interface {
	ReadPull(ctx context.Context, p config.Pull) (interface{}, error)
}

// Scheduler drives the main-thread sweep loop described in spec §4.6. It
// owns the IntervalLoop and Beacon pacers and the one Core instance used
// to observe IsEventTimeout; it does not decode — that happens on the
// receiving end of the channel returned by NewUnboundedChan.
type Scheduler struct {
	Loop            *interval.Loop
	Beacon          *interval.Beacon
	Core            *core.Core
	Resend          time.Duration
	LoopMode        bool
	VerboseWarnings bool

	resendNext time.Time
}

// New constructs a Scheduler ready to Run.
func New(loopInterval time.Duration, beaconInterval time.Duration, c *core.Core, resend time.Duration, loopMode, verbose bool) *Scheduler {
	s := &Scheduler{
		Loop:            interval.NewLoop(loopInterval),
		Core:            c,
		Resend:          resend,
		LoopMode:        loopMode,
		VerboseWarnings: verbose,
	}
	if beaconInterval > 0 {
		s.Beacon = interval.NewBeacon(beaconInterval)
	}
	if resend > 0 {
		s.resendNext = time.Now().Add(resend)
	}
	return s
}

// pullKey names a pull entry for diagnostics purposes; falls back to its
// sweep index when the spec carries no stable identifier of its own.
func pullKey(p config.Pull, i int) string {
	switch {
	case p.Reg != "":
		return p.Reg
	case p.Tag != "":
		return p.Tag
	case len(p.OIDs) > 0:
		return p.OIDs[0]
	default:
		return fmt.Sprintf("pull[%d]", i)
	}
}

// Run executes sweeps until ctx is cancelled, event-timeout fires, or
// loop mode is disabled (single sweep), implementing the five steps of
// spec §4.6 in order. Any reader error is fatal and returned to the
// caller, which maps it to logrus.Fatal per spec §7.
func (s *Scheduler) Run(ctx context.Context, pulls []config.Pull, reader Reader, out chan<- TaskResult) error {
	pullLog := diag.New()

	for {
		select {
		case <-ctx.Done():
			out <- TaskResult{Cmd: CmdTerminate}
			return nil
		default:
		}

		// Step 1: resend tick.
		now := time.Now()
		if s.Resend > 0 && !now.Before(s.resendNext) {
			out <- TaskResult{Cmd: CmdClearCache}
			for !now.Before(s.resendNext) {
				s.resendNext = s.resendNext.Add(s.Resend)
			}
		}

		// Step 2: one read per pull spec, in order.
		pullLog.Reset()
		for i, p := range pulls {
			callTime := s.Core.CreateEventTime()
			idx := pullLog.Start(pullKey(p, i))
			raw, err := reader.ReadPull(ctx, p)
			if err != nil {
				return fmt.Errorf("pull %s: %w", pullKey(p, i), err)
			}
			pullLog.Done(idx)
			out <- TaskResult{Cmd: CmdProcess, Data: raw, WorkID: i, Time: callTime}
		}

		// Step 3: stop after one sweep unless looping, or on event-timeout.
		if !s.LoopMode || s.Core.IsEventTimeout() {
			out <- TaskResult{Cmd: CmdTerminate}
			return nil
		}

		// Step 4: beacon.
		if s.Beacon != nil && s.Beacon.Ping(time.Now()) {
			if err := s.Core.EmitBeacon(); err != nil {
				return fmt.Errorf("beacon write: %w", err)
			}
		}

		// Step 5: pace to next interval, reporting overrun.
		s.Loop.Sleep(func(msg string) {
			core.MarkOverrun()
			logrus.Warn(msg)
			if s.VerboseWarnings {
				logrus.Warn(pullLog.Summary())
				core.LogMetricsSnapshot()
			}
		})
	}
}
