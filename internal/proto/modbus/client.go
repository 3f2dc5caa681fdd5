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

	gomodbus "github.com/goburrow/modbus"
)

// Client reads one register range and returns it as a word array —
// coils/discretes are expanded to one word (0 or 1) per bit, matching the
// source's "need to read coil data as Vec<u16>" adapter.
type Client interface {
	ReadWords(rt RegisterType, addr, count uint16, unit uint8) ([]uint16, error)
	Close() error
}

// --- TCP, via github.com/goburrow/modbus -----------------------------------

// TCPClient wraps goburrow/modbus's TCP client, switching SlaveId per call
// since a pull may override the proto-level default unit.
type TCPClient struct {
	handler *gomodbus.TCPClientHandler
	client  gomodbus.Client
}

// NewTCPClient dials a Modbus/TCP server at host:port with the given I/O
// timeout. A connect failure is fatal per spec §7.
func NewTCPClient(host, port string, timeout time.Duration) (*TCPClient, error) {
	handler := gomodbus.NewTCPClientHandler(net.JoinHostPort(host, port))
	handler.Timeout = timeout
	if err := handler.Connect(); err != nil {
		return nil, fmt.Errorf("modbus/tcp connect %s:%s: %w", host, port, err)
	}
	return &TCPClient{handler: handler, client: gomodbus.NewClient(handler)}, nil
}

// ReadWords implements Client.
func (c *TCPClient) ReadWords(rt RegisterType, addr, count uint16, unit uint8) ([]uint16, error) {
	c.handler.SlaveId = unit
	switch rt {
	case Holding:
		b, err := c.client.ReadHoldingRegisters(addr, count)
		if err != nil {
			return nil, err
		}
		return bytesToWords(b), nil
	case Input:
		b, err := c.client.ReadInputRegisters(addr, count)
		if err != nil {
			return nil, err
		}
		return bytesToWords(b), nil
	case Coil:
		b, err := c.client.ReadCoils(addr, count)
		if err != nil {
			return nil, err
		}
		return bitsToWords(b, count), nil
	case Discrete:
		b, err := c.client.ReadDiscreteInputs(addr, count)
		if err != nil {
			return nil, err
		}
		return bitsToWords(b, count), nil
	default:
		return nil, fmt.Errorf("unhandled modbus register type %d", rt)
	}
}

// Close implements Client.
func (c *TCPClient) Close() error { return c.handler.Close() }

func bytesToWords(b []byte) []uint16 {
	words := make([]uint16, len(b)/2)
	for i := range words {
		words[i] = binary.BigEndian.Uint16(b[i*2 : i*2+2])
	}
	return words
}

func bitsToWords(b []byte, count uint16) []uint16 {
	words := make([]uint16, count)
	for i := range words {
		byteIdx := i / 8
		bitIdx := uint(i % 8)
		if byteIdx < len(b) && b[byteIdx]&(1<<bitIdx) != 0 {
			words[i] = 1
		}
	}
	return words
}
