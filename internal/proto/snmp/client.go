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
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/alttch/pulr/internal/config"
)

// SplitHostPort parses a "proto.source" string, appending the SNMP
// default port 161 when absent.
func SplitHostPort(source string) (string, int, error) {
	if !strings.Contains(source, ":") {
		return source, defaultPort, nil
	}
	host, portStr, err := net.SplitHostPort(source)
	if err != nil {
		return "", 0, fmt.Errorf("malformed proto source %q: %w", source, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("malformed proto port in %q: %w", source, err)
	}
	return host, port, nil
}

// Reader implements scheduler.Reader over a single gosnmp session shared
// across all pulls, dispatching GetNext or GetBulk per spec §6. The
// returned raw payload is a map[string]gosnmp.SnmpPDU keyed by the
// response varbind's own OID string — which, per the documented GetNext
// quirk, may not equal the requested OID (spec §4.7, preserved rather
// than fixed; see DESIGN.md).
type Reader struct {
	sess *gosnmp.GoSNMP
}

// NewReader connects an SNMPv2c session to host:port with the given
// community string and I/O timeout. A connect failure is fatal per
// spec §7.
func NewReader(host string, port int, community string, timeout time.Duration) (*Reader, error) {
	sess := &gosnmp.GoSNMP{
		Target:    host,
		Port:      uint16(port),
		Community: community,
		Version:   gosnmp.Version2c,
		Timeout:   timeout,
		Retries:   1,
	}
	if err := sess.Connect(); err != nil {
		return nil, fmt.Errorf("snmp connect %s:%d: %w", host, port, err)
	}
	return &Reader{sess: sess}, nil
}

// ReadPull implements scheduler.Reader.
func (r *Reader) ReadPull(_ context.Context, p config.Pull) (interface{}, error) {
	pull, err := ParsePull(p)
	if err != nil {
		return nil, err
	}

	var pkt *gosnmp.SnmpPacket
	if useGetBulk(pull) {
		pkt, err = r.sess.GetBulk(pull.OIDs, pull.NonRepeat, pull.MaxRepeat)
	} else {
		pkt, err = r.sess.GetNext(pull.OIDs)
	}
	if err != nil {
		return nil, fmt.Errorf("snmp get error: %w", err)
	}

	out := make(map[string]gosnmp.SnmpPDU, len(pkt.Variables))
	for _, v := range pkt.Variables {
		out[NormalizeOID(v.Name)] = v
	}
	return out, nil
}

// Close closes the underlying SNMP session.
func (r *Reader) Close() error { return r.sess.Conn.Close() }
