/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * Copyright © 2016, 1&1 Internet SE
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

package main

import (
	"fmt"
	"net"
	"strings"

	"github.com/Sirupsen/logrus"

	"github.com/alttch/pulr/internal/config"
	"github.com/alttch/pulr/internal/proto/enip"
	"github.com/alttch/pulr/internal/proto/modbus"
	"github.com/alttch/pulr/internal/proto/snmp"
	"github.com/alttch/pulr/internal/scheduler"
	"github.com/alttch/pulr/lib/core"
)

// splitHostPortDefault parses a "host[:port]" source string, appending
// defaultPort when absent.
func splitHostPortDefault(source, defaultPort string) (string, string, error) {
	if !strings.Contains(source, ":") {
		return source, defaultPort, nil
	}
	return net.SplitHostPort(source)
}

// decodeRunner runs a protocol's Decoder against the scheduler's receive
// channel until it drains, returning any decode/transform error.
type decodeRunner func(*core.Core, <-chan scheduler.TaskResult) error

// buildProtocol constructs the protocol-specific Reader and decodeRunner,
// dispatching on proto.name per spec §6. Connect failures are fatal
// per spec §7.
func buildProtocol(cfg *config.Config) (scheduler.Reader, decodeRunner, error) {
	switch cfg.Proto.Name {
	case "modbus/tcp", "modbus/udp":
		return buildModbus(cfg)
	case "enip/ab_eip":
		return buildEnip(cfg)
	case "snmp":
		return buildSNMP(cfg)
	default:
		return nil, nil, fmt.Errorf("unknown proto name: %q", cfg.Proto.Name)
	}
}

func buildModbus(cfg *config.Config) (scheduler.Reader, decodeRunner, error) {
	host, port, err := splitModbusSource(cfg.Proto.Source)
	if err != nil {
		return nil, nil, err
	}

	var client modbus.Client
	if cfg.Proto.Name == "modbus/udp" {
		client, err = modbus.NewUDPClient(host, port, cfg.Timeout)
	} else {
		client, err = modbus.NewTCPClient(host, port, cfg.Timeout)
	}
	if err != nil {
		return nil, nil, err
	}

	defaultUnit := uint8(0)
	if cfg.Proto.Unit != nil {
		defaultUnit = *cfg.Proto.Unit
	}

	pulls := make([]modbus.Pull, len(cfg.Pull))
	for i, p := range cfg.Pull {
		pull, err := modbus.ParsePull(p, defaultUnit)
		if err != nil {
			return nil, nil, err
		}
		pulls[i] = pull
	}

	reader := modbus.NewReader(client, defaultUnit)
	runner := func(eng *core.Core, out <-chan scheduler.TaskResult) error {
		dec := &modbus.Decoder{Pulls: pulls, Core: eng}
		return dec.Run(out)
	}
	return reader, runner, nil
}

func splitModbusSource(source string) (string, string, error) {
	host, port, err := splitHostPortDefault(source, "502")
	if err != nil {
		return "", "", fmt.Errorf("malformed proto source %q: %w", source, err)
	}
	return host, port, nil
}

func buildEnip(cfg *config.Config) (scheduler.Reader, decodeRunner, error) {
	host, port, err := enip.SplitHostPort(cfg.Proto.Source)
	if err != nil {
		return nil, nil, err
	}

	pulls := make([]enip.Pull, len(cfg.Pull))
	for i, p := range cfg.Pull {
		pull, err := enip.ParsePull(p, host, port, cfg.Proto.Path, cfg.Proto.CPU)
		if err != nil {
			return nil, nil, err
		}
		pulls[i] = pull
	}

	reader := enip.NewReader(host, port, cfg.Proto.Path, cfg.Proto.CPU, cfg.Timeout)
	runner := func(eng *core.Core, out <-chan scheduler.TaskResult) error {
		dec := &enip.Decoder{Pulls: pulls, Core: eng}
		defer reader.Close()
		return dec.Run(out)
	}
	return reader, runner, nil
}

func buildSNMP(cfg *config.Config) (scheduler.Reader, decodeRunner, error) {
	host, port, err := snmp.SplitHostPort(cfg.Proto.Source)
	if err != nil {
		return nil, nil, err
	}
	community := cfg.Proto.Community
	if community == "" {
		community = "public"
	}

	reader, err := snmp.NewReader(host, port, community, cfg.Timeout)
	if err != nil {
		return nil, nil, err
	}

	pulls := make([]snmp.Pull, len(cfg.Pull))
	for i, p := range cfg.Pull {
		pull, err := snmp.ParsePull(p)
		if err != nil {
			return nil, nil, err
		}
		pulls[i] = pull
	}

	runner := func(eng *core.Core, out <-chan scheduler.TaskResult) error {
		dec := &snmp.Decoder{Pulls: pulls, Core: eng}
		defer func() {
			if err := reader.Close(); err != nil {
				logrus.WithError(err).Warn("pulr: closing snmp session")
			}
		}()
		return dec.Run(out)
	}
	return reader, runner, nil
}
