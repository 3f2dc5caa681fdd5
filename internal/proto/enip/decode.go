/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * Copyright © 2016, 1&1 Internet SE
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

package enip

import (
	"fmt"

	"github.com/libplctag/libplctag-go/libplctag"

	"github.com/alttch/pulr/internal/scheduler"
	"github.com/alttch/pulr/lib/core"
	"github.com/alttch/pulr/lib/datatypes"
)

// tagReader is the subset of *libplctag.Tag's typed getters readValue
// needs, narrowed to an interface so the dispatch/bit-offset logic below
// can be exercised without a live PLC connection.
type tagReader interface {
	GetBitValue(offset int) (bool, error)
	GetUint8Value(offset int) (uint8, error)
	GetInt8Value(offset int) (int8, error)
	GetUint16Value(offset int) (uint16, error)
	GetInt16Value(offset int) (int16, error)
	GetUint32Value(offset int) (uint32, error)
	GetInt32Value(offset int) (int32, error)
	GetUint64Value(offset int) (uint64, error)
	GetInt64Value(offset int) (int64, error)
	GetFloat32Value(offset int) (float32, error)
	GetFloat64Value(offset int) (float64, error)
}

// Decoder consumes TaskResults carrying a *libplctag.Tag handle, reading
// each configured offset through the typed getter matching its GenDataType.
type Decoder struct {
	Pulls []Pull
	Core  *core.Core
}

// Run drains in until CmdTerminate, per spec §4.7.
func (d *Decoder) Run(in <-chan scheduler.TaskResult) error {
	for msg := range in {
		switch msg.Cmd {
		case scheduler.CmdTerminate:
			return nil
		case scheduler.CmdClearCache:
			d.Core.ClearEventCache()
		case scheduler.CmdProcess:
			tag, ok := msg.Data.(*libplctag.Tag)
			if !ok {
				return fmt.Errorf("enip decode: unexpected payload type %T", msg.Data)
			}
			if msg.WorkID < 0 || msg.WorkID >= len(d.Pulls) {
				return fmt.Errorf("enip decode: work id %d out of range", msg.WorkID)
			}
			if err := d.decode(d.Pulls[msg.WorkID], tag, msg); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Decoder) decode(pull Pull, tag *libplctag.Tag, msg scheduler.TaskResult) error {
	for _, dp := range pull.Process {
		value, err := readValue(tag, dp)
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

func readValue(tag tagReader, dp DataProcessInfo) (datatypes.Value, error) {
	off := int(dp.Offset)

	switch dp.Type {
	case datatypes.GenBit:
		bitIdx := uint8(0)
		if dp.Bit != nil {
			bitIdx = *dp.Bit
		}
		v, err := tag.GetBitValue(off*8 + int(bitIdx))
		if err != nil {
			return datatypes.Value{}, fmt.Errorf("enip get bit at %d: %w", off, err)
		}
		return datatypes.NewBit(v), nil
	case datatypes.GenUint8:
		v, err := tag.GetUint8Value(off)
		return datatypes.NewUint8(v), wrapGetErr(err, dp.Type, off)
	case datatypes.GenInt8:
		v, err := tag.GetInt8Value(off)
		return datatypes.NewInt8(v), wrapGetErr(err, dp.Type, off)
	case datatypes.GenUint16:
		v, err := tag.GetUint16Value(off)
		return datatypes.NewUint16(v), wrapGetErr(err, dp.Type, off)
	case datatypes.GenInt16:
		v, err := tag.GetInt16Value(off)
		return datatypes.NewInt16(v), wrapGetErr(err, dp.Type, off)
	case datatypes.GenUint32:
		v, err := tag.GetUint32Value(off)
		return datatypes.NewUint32(v), wrapGetErr(err, dp.Type, off)
	case datatypes.GenInt32:
		v, err := tag.GetInt32Value(off)
		return datatypes.NewInt32(v), wrapGetErr(err, dp.Type, off)
	case datatypes.GenUint64:
		v, err := tag.GetUint64Value(off)
		return datatypes.NewUint64(v), wrapGetErr(err, dp.Type, off)
	case datatypes.GenInt64:
		v, err := tag.GetInt64Value(off)
		return datatypes.NewInt64(v), wrapGetErr(err, dp.Type, off)
	case datatypes.GenReal32:
		v, err := tag.GetFloat32Value(off)
		return datatypes.NewReal32(v), wrapGetErr(err, dp.Type, off)
	case datatypes.GenReal64:
		v, err := tag.GetFloat64Value(off)
		return datatypes.NewReal64(v), wrapGetErr(err, dp.Type, off)
	default:
		return datatypes.Value{}, fmt.Errorf("unhandled enip data type %s", dp.Type)
	}
}

func wrapGetErr(err error, tp datatypes.GenDataType, off int) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("enip get %s at %d: %w", tp, off, err)
}
