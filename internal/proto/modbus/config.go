/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * Copyright © 2016, 1&1 Internet SE
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

// Package modbus implements the Modbus TCP/UDP reader and decode worker,
// grounded on github.com/goburrow/modbus for TCP framing and a small
// hand-rolled MBAP encoder/decoder for UDP, which goburrow/modbus does
// not support.
package modbus

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/alttch/pulr/internal/config"
	"github.com/alttch/pulr/lib/datatypes"
)

const defaultPort = "502"

// RegisterType tags which of the four Modbus object spaces a Pull reads.
type RegisterType int

const (
	Holding RegisterType = iota
	Input
	Coil
	Discrete
)

// ParseRegSpec splits a "[hidc]<addr>" string into its register type and
// numeric address, per spec §6.
func ParseRegSpec(s string) (RegisterType, uint16, error) {
	if len(s) < 2 {
		return 0, 0, fmt.Errorf("malformed register spec: %q", s)
	}
	var rt RegisterType
	switch s[0] {
	case 'h':
		rt = Holding
	case 'i':
		rt = Input
	case 'd':
		rt = Discrete
	case 'c':
		rt = Coil
	default:
		return 0, 0, fmt.Errorf("unknown register letter: %q", s[:1])
	}
	addr, err := strconv.ParseUint(s[1:], 10, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed register address in %q: %w", s, err)
	}
	return rt, uint16(addr), nil
}

// DataProcessInfo is the parsed, protocol-typed form of one Process entry.
type DataProcessInfo struct {
	Offset     datatypes.DataOffset
	Type       datatypes.GenDataType
	SetID      string
	Transforms datatypes.TransformList
}

// Pull is the parsed, protocol-typed form of one config.Pull entry.
type Pull struct {
	RegType RegisterType
	Addr    uint16
	Count   uint16
	Unit    uint8
	Process []DataProcessInfo
}

// ParsePull converts a raw config.Pull plus the proto-level default unit
// into a typed Pull. Any error here belongs to spec §7's config-error
// class.
func ParsePull(p config.Pull, defaultUnit uint8) (Pull, error) {
	rt, addr, err := ParseRegSpec(p.Reg)
	if err != nil {
		return Pull{}, err
	}
	unit := defaultUnit
	if p.Unit != nil {
		unit = *p.Unit
	}
	procs := make([]DataProcessInfo, 0, len(p.Process))
	for _, raw := range p.Process {
		dp, err := parseProcess(raw, uint32(addr))
		if err != nil {
			return Pull{}, err
		}
		procs = append(procs, dp)
	}
	return Pull{RegType: rt, Addr: addr, Count: uint16(p.Count), Unit: unit, Process: procs}, nil
}

func parseProcess(raw config.Process, base uint32) (DataProcessInfo, error) {
	off, err := datatypes.ParseDataOffset(raw.Offset, base)
	if err != nil {
		return DataProcessInfo{}, err
	}
	typeName := raw.Type
	if typeName == "" {
		typeName = "word"
	}
	tp, err := datatypes.ParseGenDataType(typeName)
	if err != nil {
		return DataProcessInfo{}, err
	}
	tl := make(datatypes.TransformList, 0, len(raw.Transform))
	for _, t := range raw.Transform {
		fn, err := datatypes.ParseTransformFunc(t.Func)
		if err != nil {
			return DataProcessInfo{}, err
		}
		tl = append(tl, datatypes.TransformTask{Func: fn, Args: t.Args})
	}
	return DataProcessInfo{Offset: off, Type: tp, SetID: raw.SetID, Transforms: tl}, nil
}

// splitHostPort appends defaultPort when source carries no explicit port,
// per spec §6's "<host>[:<port>]" source syntax.
func splitHostPort(source string) (string, string, error) {
	if strings.Contains(source, ":") {
		host, port, err := net.SplitHostPort(source)
		if err != nil {
			return "", "", fmt.Errorf("malformed proto source %q: %w", source, err)
		}
		return host, port, nil
	}
	return source, defaultPort, nil
}
