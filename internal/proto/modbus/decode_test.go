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
	"math"
	"testing"

	"github.com/alttch/pulr/lib/datatypes"
)

func dp(tp datatypes.GenDataType, offset uint32, bit *uint8) DataProcessInfo {
	return DataProcessInfo{Offset: datatypes.DataOffset{Offset: offset, Bit: bit}, Type: tp}
}

func TestDecodeOneUint32BigEndianAcrossWords(t *testing.T) {
	words := []uint16{0x1234, 0x5678}
	v, err := decodeOne(words, dp(datatypes.GenUint32, 0, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.U32 != 0x12345678 {
		t.Errorf("U32 = %#x, want 0x12345678", v.U32)
	}
}

func TestDecodeOneReal32WordSwapped(t *testing.T) {
	bits := math.Float32bits(3.5)
	hi := uint16(bits >> 16)
	lo := uint16(bits)
	// Word-swapped layout: low word first, high word second.
	words := []uint16{lo, hi}
	v, err := decodeOne(words, dp(datatypes.GenReal32, 0, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.R32 != 3.5 {
		t.Errorf("R32 = %v, want 3.5", v.R32)
	}
}

func TestDecodeOneUint64MSBFirst(t *testing.T) {
	words := []uint16{0x0001, 0x0002, 0x0003, 0x0004}
	v, err := decodeOne(words, dp(datatypes.GenUint64, 0, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := uint64(0x0001000200030004)
	if v.U64 != want {
		t.Errorf("U64 = %#x, want %#x", v.U64, want)
	}
}

func TestDecodeOneInt64MSBFirst(t *testing.T) {
	words := []uint16{0xFFFF, 0xFFFF, 0xFFFF, 0xFFFF}
	v, err := decodeOne(words, dp(datatypes.GenInt64, 0, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.I64 != -1 {
		t.Errorf("I64 = %v, want -1", v.I64)
	}
}

func TestDecodeOneBitWithinWord(t *testing.T) {
	bit := uint8(3)
	words := []uint16{0b1000}
	v, err := decodeOne(words, dp(datatypes.GenBit, 0, &bit))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.Bit {
		t.Error("bit 3 of 0b1000 should be set")
	}
}

func TestDecodeOneOutOfBoundsIsFatal(t *testing.T) {
	words := []uint16{0x0001}
	if _, err := decodeOne(words, dp(datatypes.GenUint32, 0, nil)); err != ErrOutOfBounds {
		t.Errorf("got err=%v, want ErrOutOfBounds", err)
	}
	if _, err := decodeOne(words, dp(datatypes.GenUint16, 5, nil)); err != ErrOutOfBounds {
		t.Errorf("got err=%v, want ErrOutOfBounds", err)
	}
}

func TestParseRegSpec(t *testing.T) {
	rt, addr, err := ParseRegSpec("h100")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rt != Holding || addr != 100 {
		t.Errorf("ParseRegSpec(h100) = (%v, %v), want (Holding, 100)", rt, addr)
	}
	if _, _, err := ParseRegSpec("x5"); err == nil {
		t.Error("expected error for unknown register letter")
	}
	if _, _, err := ParseRegSpec(""); err == nil {
		t.Error("expected error for empty register spec")
	}
}
