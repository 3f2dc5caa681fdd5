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
	"encoding/binary"
	"fmt"
	"net"
	"time"
)

// UDPClient speaks Modbus/TCP-over-UDP: the same MBAP-framed ADU, sent as
// a single UDP datagram, no TCP framing needed. goburrow/modbus has no
// UDP transport, so this is a small hand-rolled encoder/decoder grounded
// on the same MBAP layout goburrow/modbus uses for TCP and on the
// source's UdpClient/TcpClient pair in ppmodbus.rs.
type UDPClient struct {
	conn    net.Conn
	timeout time.Duration
	trID    uint16
}

const (
	fnReadCoils             = 1
	fnReadDiscreteInputs    = 2
	fnReadHoldingRegisters  = 3
	fnReadInputRegisters    = 4
	mbapHeaderLen           = 7
)

// NewUDPClient binds an ephemeral local UDP socket and targets host:port.
// A bind/resolve failure is fatal per spec §7.
func NewUDPClient(host, port string, timeout time.Duration) (*UDPClient, error) {
	conn, err := net.DialTimeout("udp", net.JoinHostPort(host, port), timeout)
	if err != nil {
		return nil, fmt.Errorf("modbus/udp dial %s:%s: %w", host, port, err)
	}
	return &UDPClient{conn: conn, timeout: timeout, trID: 1}, nil
}

// ReadWords implements Client.
func (c *UDPClient) ReadWords(rt RegisterType, addr, count uint16, unit uint8) ([]uint16, error) {
	var fn byte
	switch rt {
	case Holding:
		fn = fnReadHoldingRegisters
	case Input:
		fn = fnReadInputRegisters
	case Coil:
		fn = fnReadCoils
	case Discrete:
		fn = fnReadDiscreteInputs
	default:
		return nil, fmt.Errorf("unhandled modbus register type %d", rt)
	}

	req := c.buildRequest(unit, fn, addr, count)

	c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	if _, err := c.conn.Write(req); err != nil {
		return nil, fmt.Errorf("modbus/udp write: %w", err)
	}

	resp := make([]byte, 260)
	c.conn.SetReadDeadline(time.Now().Add(c.timeout))
	n, err := c.conn.Read(resp)
	if err != nil {
		return nil, fmt.Errorf("modbus/udp read: %w", err)
	}
	data, err := parseResponse(resp[:n], fn)
	if err != nil {
		return nil, err
	}

	switch rt {
	case Coil, Discrete:
		return bitsToWords(data, count), nil
	default:
		return bytesToWords(data), nil
	}
}

// Close implements Client.
func (c *UDPClient) Close() error { return c.conn.Close() }

func (c *UDPClient) buildRequest(unit uint8, fn byte, addr, count uint16) []byte {
	pdu := make([]byte, 5)
	pdu[0] = fn
	binary.BigEndian.PutUint16(pdu[1:3], addr)
	binary.BigEndian.PutUint16(pdu[3:5], count)

	adu := make([]byte, mbapHeaderLen+len(pdu))
	binary.BigEndian.PutUint16(adu[0:2], c.trID)
	binary.BigEndian.PutUint16(adu[2:4], 0) // protocol id, always 0
	binary.BigEndian.PutUint16(adu[4:6], uint16(len(pdu)+1))
	adu[6] = unit
	copy(adu[7:], pdu)

	if c.trID == 0xFFFF {
		c.trID = 0
	} else {
		c.trID++
	}
	return adu
}

func parseResponse(adu []byte, wantFn byte) ([]byte, error) {
	if len(adu) < mbapHeaderLen+1 {
		return nil, fmt.Errorf("modbus/udp: short response (%d bytes)", len(adu))
	}
	pdu := adu[mbapHeaderLen:]
	fn := pdu[0]
	if fn == wantFn|0x80 {
		code := byte(0)
		if len(pdu) > 1 {
			code = pdu[1]
		}
		return nil, fmt.Errorf("modbus/udp: exception response, code %d", code)
	}
	if fn != wantFn {
		return nil, fmt.Errorf("modbus/udp: unexpected function code %d (want %d)", fn, wantFn)
	}
	if len(pdu) < 2 {
		return nil, fmt.Errorf("modbus/udp: truncated PDU")
	}
	byteCount := int(pdu[1])
	if len(pdu) < 2+byteCount {
		return nil, fmt.Errorf("modbus/udp: truncated PDU data")
	}
	return pdu[2 : 2+byteCount], nil
}
