/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * Copyright © 2016, 1&1 Internet SE
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

package datatypes

import (
	"fmt"
	"strconv"
	"strings"
)

// GenDataType is the protocol-agnostic decode type named by a
// DataProcessInfo entry.
type GenDataType int

const (
	GenBit GenDataType = iota
	GenInt8
	GenUint8
	GenInt16
	GenUint16
	GenInt32
	GenUint32
	GenInt64
	GenUint64
	GenReal32
	GenReal64
)

func (t GenDataType) String() string {
	switch t {
	case GenBit:
		return "Bit"
	case GenInt8:
		return "Int8"
	case GenUint8:
		return "Uint8"
	case GenInt16:
		return "Int16"
	case GenUint16:
		return "Uint16"
	case GenInt32:
		return "Int32"
	case GenUint32:
		return "Uint32"
	case GenInt64:
		return "Int64"
	case GenUint64:
		return "Uint64"
	case GenReal32:
		return "Real32"
	case GenReal64:
		return "Real64"
	default:
		return "Unknown"
	}
}

// ParseGenDataType maps a config "type:" string to a GenDataType. Default
// when the config field is absent is "word" (Uint16). Unknown names are a
// fatal configuration error.
func ParseGenDataType(s string) (GenDataType, error) {
	switch strings.ToLower(s) {
	case "bit":
		return GenBit, nil
	case "uint8", "byte":
		return GenUint8, nil
	case "int8", "sint8":
		return GenInt8, nil
	case "uint16", "word":
		return GenUint16, nil
	case "int16", "sint16":
		return GenInt16, nil
	case "uint32", "dword":
		return GenUint32, nil
	case "int32", "sint32":
		return GenInt32, nil
	case "uint64", "qword":
		return GenUint64, nil
	case "int64", "sint64":
		return GenInt64, nil
	case "real32", "real", "float32", "float":
		return GenReal32, nil
	case "real64", "float64":
		return GenReal64, nil
	default:
		return 0, fmt.Errorf("unsupported data type: %s", s)
	}
}

// DataOffset is the parsed form of a "[=]<n>[+<n>...][/<bit>]" offset
// string, per spec §3.
type DataOffset struct {
	Offset uint32
	Bit    *uint8
}

// ParseDataOffset parses the offset syntax. base is the pull's register
// base address, subtracted when the string carries the "=" absolute-address
// prefix.
//
//	ParseDataOffset("=100/3", 96) -> {offset:4, bit:3}
//	ParseDataOffset("10+2", 0)    -> {offset:12, bit:nil}
func ParseDataOffset(s string, base uint32) (DataOffset, error) {
	parts := strings.SplitN(s, "/", 2)
	sum := parts[0]
	var bit *uint8
	if len(parts) == 2 {
		b, err := strconv.ParseUint(parts[1], 10, 8)
		if err != nil {
			return DataOffset{}, fmt.Errorf("malformed bit index in offset %q: %w", s, err)
		}
		b8 := uint8(b)
		bit = &b8
	}
	absolute := strings.HasPrefix(sum, "=")
	if absolute {
		sum = sum[1:]
	}
	v, err := safeParseSum(sum)
	if err != nil {
		return DataOffset{}, fmt.Errorf("malformed offset %q: %w", s, err)
	}
	if absolute {
		if v < base {
			return DataOffset{}, fmt.Errorf("absolute offset %d is below pull base %d", v, base)
		}
		v -= base
	}
	return DataOffset{Offset: v, Bit: bit}, nil
}

// safeParseSum parses a "+"-separated sequence of additive integers.
func safeParseSum(s string) (uint32, error) {
	var total uint64
	for _, part := range strings.Split(s, "+") {
		n, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("unable to parse number from %q: %w", s, err)
		}
		total += n
	}
	return uint32(total), nil
}
