/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * Copyright © 2016, 1&1 Internet SE
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

package modbus

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/alttch/pulr/internal/config"
	"github.com/alttch/pulr/internal/scheduler"
	"github.com/alttch/pulr/lib/core"
	"github.com/alttch/pulr/lib/datatypes"
)

// ErrOutOfBounds is returned, verbatim per spec §4.7/§7, whenever a decode
// offset falls outside the word array a pull actually returned.
var ErrOutOfBounds = errors.New("data out of bounds")

// Reader implements scheduler.Reader for a connected Modbus client.
type Reader struct {
	client      Client
	defaultUnit uint8
}

// NewReader wraps a connected Client.
func NewReader(client Client, defaultUnit uint8) *Reader {
	return &Reader{client: client, defaultUnit: defaultUnit}
}

// ReadPull implements scheduler.Reader. It returns the raw word array
// (including the 0/1-per-bit expansion for coil/discrete reads) as an
// interface{}, per spec §4.7.
func (r *Reader) ReadPull(_ context.Context, p config.Pull) (interface{}, error) {
	pull, err := ParsePull(p, r.defaultUnit)
	if err != nil {
		return nil, err
	}
	return r.client.ReadWords(pull.RegType, pull.Addr, pull.Count, pull.Unit)
}

// Decoder consumes TaskResults produced by a Reader on the scheduler's
// channel, decoding each word array per the pull's Process list and
// emitting through Core.Output. Pulls is indexed by TaskResult.WorkID,
// matching the order the scheduler issued reads in.
type Decoder struct {
	Pulls []Pull
	Core  *core.Core
}

// Run drains in until a CmdTerminate message (or the channel closes),
// dispatching CmdClearCache/CmdProcess per spec §4.7.
func (d *Decoder) Run(in <-chan scheduler.TaskResult) error {
	for msg := range in {
		switch msg.Cmd {
		case scheduler.CmdTerminate:
			return nil
		case scheduler.CmdClearCache:
			d.Core.ClearEventCache()
		case scheduler.CmdProcess:
			words, ok := msg.Data.([]uint16)
			if !ok {
				return fmt.Errorf("modbus decode: unexpected payload type %T", msg.Data)
			}
			if msg.WorkID < 0 || msg.WorkID >= len(d.Pulls) {
				return fmt.Errorf("modbus decode: work id %d out of range", msg.WorkID)
			}
			if err := d.decode(d.Pulls[msg.WorkID], words, msg); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Decoder) decode(pull Pull, words []uint16, msg scheduler.TaskResult) error {
	for _, dp := range pull.Process {
		value, err := decodeOne(words, dp)
		if err != nil {
			return err
		}
		core.MarkDecoded()
		ev := d.Core.CreateEvent(dp.SetID, value, dp.Transforms, msg.Time)
		if err := d.Core.Output(ev); err != nil {
			return err
		}
	}
	return nil
}

func decodeOne(words []uint16, dp DataProcessInfo) (datatypes.Value, error) {
	off := int(dp.Offset.Offset)

	switch dp.Type {
	case datatypes.GenBit:
		if off >= len(words) {
			return datatypes.Value{}, ErrOutOfBounds
		}
		bit := uint8(0)
		if dp.Offset.Bit != nil {
			bit = *dp.Offset.Bit
		}
		return datatypes.NewBit(words[off]&(1<<bit) != 0), nil

	case datatypes.GenUint8, datatypes.GenInt8:
		if off >= len(words) {
			return datatypes.Value{}, ErrOutOfBounds
		}
		b := byte(words[off])
		if dp.Type == datatypes.GenUint8 {
			return datatypes.NewUint8(b), nil
		}
		return datatypes.NewInt8(int8(b)), nil

	case datatypes.GenUint16:
		if off >= len(words) {
			return datatypes.Value{}, ErrOutOfBounds
		}
		return datatypes.NewUint16(words[off]), nil

	case datatypes.GenInt16:
		if off >= len(words) {
			return datatypes.Value{}, ErrOutOfBounds
		}
		return datatypes.NewInt16(int16(words[off])), nil

	case datatypes.GenUint32:
		if off+1 >= len(words) {
			return datatypes.Value{}, ErrOutOfBounds
		}
		return datatypes.NewUint32(uint32(words[off])<<16 | uint32(words[off+1])), nil

	case datatypes.GenInt32:
		if off+1 >= len(words) {
			return datatypes.Value{}, ErrOutOfBounds
		}
		return datatypes.NewInt32(int32(uint32(words[off])<<16 | uint32(words[off+1]))), nil

	case datatypes.GenUint64:
		if off+3 >= len(words) {
			return datatypes.Value{}, ErrOutOfBounds
		}
		return datatypes.NewUint64(words64(words, off)), nil

	case datatypes.GenInt64:
		if off+3 >= len(words) {
			return datatypes.Value{}, ErrOutOfBounds
		}
		return datatypes.NewInt64(int64(words64(words, off))), nil

	case datatypes.GenReal32:
		if off+1 >= len(words) {
			return datatypes.Value{}, ErrOutOfBounds
		}
		// Historical Modbus float convention: word-swapped relative to
		// the U32 layout (spec §4.7/§8).
		bits := uint32(words[off+1])<<16 | uint32(words[off])
		return datatypes.NewReal32(math.Float32frombits(bits)), nil

	case datatypes.GenReal64:
		if off+3 >= len(words) {
			return datatypes.Value{}, ErrOutOfBounds
		}
		return datatypes.NewReal64(math.Float64frombits(words64(words, off))), nil

	default:
		return datatypes.Value{}, fmt.Errorf("unhandled modbus data type %s", dp.Type)
	}
}

// words64 lays out four consecutive registers MSB-first across words, per
// spec §8: [hi(w0), lo(w0), hi(w1), lo(w1), hi(w2), lo(w2), hi(w3), lo(w3)]
// read big-endian.
func words64(words []uint16, off int) uint64 {
	return uint64(words[off])<<48 | uint64(words[off+1])<<32 | uint64(words[off+2])<<16 | uint64(words[off+3])
}
