/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * Copyright © 2016, 1&1 Internet SE
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

// Package snmp implements the SNMPv2c reader and decode worker on top of
// github.com/gosnmp/gosnmp, grounded on the GetNext/GetBulk/varbind-parse
// split shown by kazuyuki114-snmp_collector's decoder in other_examples/.
package snmp

import (
	"strings"

	"github.com/alttch/pulr/internal/config"
	"github.com/alttch/pulr/lib/datatypes"
)

const defaultPort = 161

// DataProcessInfo is the parsed, protocol-typed form of one Process entry.
// SetID is empty when the config omits "set-id", in which case the
// matched OID string itself becomes the event id, per spec §4.7.
type DataProcessInfo struct {
	OID   string
	SetID string

	Transforms datatypes.TransformList
}

// Pull is the parsed, protocol-typed form of one config.Pull entry.
type Pull struct {
	OIDs      []string
	NonRepeat uint8
	MaxRepeat uint32
	Process   []DataProcessInfo
}

// NormalizeOID strips a leading dot and rewrites a leading "iso." to "1.",
// matching how OIDs are stored for lookup per spec §4.7.
func NormalizeOID(oid string) string {
	oid = strings.TrimPrefix(oid, ".")
	if strings.HasPrefix(oid, "iso.") {
		oid = "1." + strings.TrimPrefix(oid, "iso.")
	}
	return oid
}

// ParsePull converts a raw config.Pull into a typed Pull. non-repeat
// defaults to 0, max-repeat to 1, matching the source's SNMPPull
// defaults.
func ParsePull(p config.Pull) (Pull, error) {
	oids := make([]string, len(p.OIDs))
	for i, o := range p.OIDs {
		oids[i] = NormalizeOID(o)
	}
	maxRepeat := p.MaxRepeat
	if maxRepeat == 0 {
		maxRepeat = 1
	}
	procs := make([]DataProcessInfo, 0, len(p.Process))
	for _, raw := range p.Process {
		dp, err := parseProcess(raw)
		if err != nil {
			return Pull{}, err
		}
		procs = append(procs, dp)
	}
	return Pull{
		OIDs:      oids,
		NonRepeat: uint8(p.NonRepeat),
		MaxRepeat: uint32(maxRepeat),
		Process:   procs,
	}, nil
}

func parseProcess(raw config.Process) (DataProcessInfo, error) {
	tl := make(datatypes.TransformList, 0, len(raw.Transform))
	for _, t := range raw.Transform {
		fn, err := datatypes.ParseTransformFunc(t.Func)
		if err != nil {
			return DataProcessInfo{}, err
		}
		tl = append(tl, datatypes.TransformTask{Func: fn, Args: t.Args})
	}
	return DataProcessInfo{
		OID:        NormalizeOID(raw.OID),
		SetID:      raw.SetID,
		Transforms: tl,
	}, nil
}

// useGetBulk reports whether a pull should use GetBulk (multi-OID, or
// max-repeat > 1) rather than GetNext (single-OID pulls), per spec §6.
func useGetBulk(p Pull) bool {
	return len(p.OIDs) > 1 || p.MaxRepeat > 1
}
