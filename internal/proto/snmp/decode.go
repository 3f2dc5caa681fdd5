/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * Copyright © 2016, 1&1 Internet SE
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

package snmp

import (
	"fmt"

	"github.com/Sirupsen/logrus"
	"github.com/gosnmp/gosnmp"

	"github.com/alttch/pulr/internal/scheduler"
	"github.com/alttch/pulr/lib/core"
	"github.com/alttch/pulr/lib/datatypes"
)

// Decoder consumes TaskResults carrying a map[string]gosnmp.SnmpPDU,
// matching each configured OID against the response varbinds.
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
			vars, ok := msg.Data.(map[string]gosnmp.SnmpPDU)
			if !ok {
				return fmt.Errorf("snmp decode: unexpected payload type %T", msg.Data)
			}
			if msg.WorkID < 0 || msg.WorkID >= len(d.Pulls) {
				return fmt.Errorf("snmp decode: work id %d out of range", msg.WorkID)
			}
			if err := d.decode(d.Pulls[msg.WorkID], vars, msg); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Decoder) decode(pull Pull, vars map[string]gosnmp.SnmpPDU, msg scheduler.TaskResult) error {
	for _, dp := range pull.Process {
		pdu, ok := vars[dp.OID]
		if !ok {
			d.debugf("oid %s missing from response", dp.OID)
			continue
		}
		value, ok := decodeVarbind(pdu)
		if !ok {
			d.debugf("oid %s is Null/unavailable (type %v)", dp.OID, pdu.Type)
			continue
		}
		core.MarkDecoded()
		id := dp.SetID
		if id == "" {
			id = dp.OID
		}
		ev := d.Core.CreateEvent(id, value, dp.Transforms, msg.Time)
		if err := d.Core.Output(ev); err != nil {
			return err
		}
	}
	return nil
}

// decodeVarbind maps a gosnmp PDU to the protocol-agnostic Value set
// described by spec §4.7 ({Bool, U32, I64, U64, String}); the second
// return is false for Null/NoSuchObject/NoSuchInstance/EndOfMibView.
func decodeVarbind(pdu gosnmp.SnmpPDU) (datatypes.Value, bool) {
	switch pdu.Type {
	case gosnmp.Boolean:
		v, _ := pdu.Value.(int)
		return datatypes.NewBool(v != 0), true
	case gosnmp.Counter32, gosnmp.Gauge32, gosnmp.TimeTicks, gosnmp.Uinteger32:
		return datatypes.NewUint32(uint32(gosnmp.ToBigInt(pdu.Value).Uint64())), true
	case gosnmp.Integer:
		return datatypes.NewInt64(gosnmp.ToBigInt(pdu.Value).Int64()), true
	case gosnmp.Counter64:
		return datatypes.NewUint64(gosnmp.ToBigInt(pdu.Value).Uint64()), true
	case gosnmp.OctetString:
		b, _ := pdu.Value.([]byte)
		return datatypes.NewString(string(b)), true
	case gosnmp.IPAddress:
		s, _ := pdu.Value.(string)
		return datatypes.NewString(s), true
	case gosnmp.ObjectIdentifier:
		s, _ := pdu.Value.(string)
		return datatypes.NewString(s), true
	case gosnmp.Null, gosnmp.NoSuchObject, gosnmp.NoSuchInstance, gosnmp.EndOfMibView:
		return datatypes.Value{}, false
	default:
		return datatypes.Value{}, false
	}
}

func (d *Decoder) debugf(format string, args ...interface{}) {
	logrus.Debugf(format, args...)
}
