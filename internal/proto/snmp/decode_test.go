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
	"testing"

	"github.com/gosnmp/gosnmp"
)

func TestDecodeVarbindCounter(t *testing.T) {
	v, ok := decodeVarbind(gosnmp.SnmpPDU{Type: gosnmp.Counter32, Value: 42})
	if !ok || v.U32 != 42 {
		t.Errorf("decodeVarbind(Counter32) = (%v, %v), want (U32=42, true)", v, ok)
	}
}

func TestDecodeVarbindInteger(t *testing.T) {
	v, ok := decodeVarbind(gosnmp.SnmpPDU{Type: gosnmp.Integer, Value: -7})
	if !ok || v.I64 != -7 {
		t.Errorf("decodeVarbind(Integer) = (%v, %v), want (I64=-7, true)", v, ok)
	}
}

func TestDecodeVarbindOctetString(t *testing.T) {
	v, ok := decodeVarbind(gosnmp.SnmpPDU{Type: gosnmp.OctetString, Value: []byte("hello")})
	if !ok || v.Str != "hello" {
		t.Errorf("decodeVarbind(OctetString) = (%v, %v), want (Str=hello, true)", v, ok)
	}
}

func TestDecodeVarbindNullIsSkipped(t *testing.T) {
	if _, ok := decodeVarbind(gosnmp.SnmpPDU{Type: gosnmp.Null}); ok {
		t.Error("Null varbind should report ok=false")
	}
	if _, ok := decodeVarbind(gosnmp.SnmpPDU{Type: gosnmp.NoSuchInstance}); ok {
		t.Error("NoSuchInstance varbind should report ok=false")
	}
}

func TestDecodeVarbindBoolean(t *testing.T) {
	v, ok := decodeVarbind(gosnmp.SnmpPDU{Type: gosnmp.Boolean, Value: 1})
	if !ok || v.Boolv != true {
		t.Errorf("decodeVarbind(Boolean) = (%v, %v), want (Boolv=true, true)", v, ok)
	}
}
