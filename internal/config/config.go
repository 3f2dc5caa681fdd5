/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * Copyright © 2016, 1&1 Internet SE
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

// Package config loads and validates the YAML pull-configuration tree
// described by spec §6, using gopkg.in/yaml.v3 — the only YAML library
// referenced anywhere in the example pack.
package config

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alttch/pulr/lib/datatypes"
	"github.com/alttch/pulr/lib/output"
)

// SupportedVersion is the only accepted "version:" value.
const SupportedVersion = 2

// Transform is the raw YAML shape of one transform step.
type Transform struct {
	Func string    `yaml:"func"`
	Args []float64 `yaml:"args"`
}

// Process is the raw YAML shape of one DataProcessInfo entry, shared by
// all three protocol families (not every field applies to every family).
type Process struct {
	Offset    string      `yaml:"offset"`
	Type      string      `yaml:"type"`
	SetID     string      `yaml:"set-id"`
	OID       string      `yaml:"oid"`
	Transform []Transform `yaml:"transform"`
}

// Pull is the raw YAML shape of one pull entry; fields are protocol-
// specific and left zero when not applicable.
type Pull struct {
	// Modbus
	Reg  string `yaml:"reg"`
	Unit *uint8 `yaml:"unit"`

	// EnIP
	Tag string `yaml:"tag"`
	Size uint32 `yaml:"size"`

	// SNMP
	OIDs       []string `yaml:"oid"`
	NonRepeat  int      `yaml:"non-repeat"`
	MaxRepeat  int      `yaml:"max-repeat"`

	// Shared
	Count   uint32    `yaml:"count"`
	Process []Process `yaml:"process"`
}

// Proto is the raw YAML shape of the "proto:" block.
type Proto struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"`

	// modbus
	Unit *uint8 `yaml:"unit"`

	// enip
	Path string `yaml:"path"`
	CPU  string `yaml:"cpu"`

	// snmp
	Version   int    `yaml:"version"`
	Community string `yaml:"community"`
}

// Raw is the direct unmarshal target of the top-level YAML document.
type Raw struct {
	Version      int      `yaml:"version"`
	Timeout      float64  `yaml:"timeout"`
	EventTimeout float64  `yaml:"event-timeout"`
	Beacon       *float64 `yaml:"beacon"`
	Freq         float64  `yaml:"freq"`
	Resend       float64 `yaml:"resend"`
	Output       string  `yaml:"output"`
	TimeFormat   string  `yaml:"time-format"`
	Proto        Proto   `yaml:"proto"`
	Pull         []Pull  `yaml:"pull"`
}

// Config is the validated, typed configuration used by the rest of the
// program. It keeps the raw Pull/Process/Transform entries as-is (parsed
// lazily by each protocol package, since their meaning is protocol-
// specific) but resolves every protocol-agnostic field eagerly.
type Config struct {
	Timeout      time.Duration
	EventTimeout time.Duration
	Beacon       time.Duration
	Freq         float64
	Resend       time.Duration
	Output       output.Format
	TimeFormat   datatypes.TimeFormat
	Proto        Proto
	Pull         []Pull
}

// Load reads and validates a full configuration document from r. Every
// error returned here belongs to spec §7's "Config errors" fatal class;
// callers are expected to treat a non-nil error as fatal.
func Load(r io.Reader) (*Config, error) {
	var raw Raw
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return fromRaw(raw)
}

func fromRaw(raw Raw) (*Config, error) {
	if raw.Version != SupportedVersion {
		return nil, fmt.Errorf("unsupported config version: %d (want %d)", raw.Version, SupportedVersion)
	}

	timeout := raw.Timeout
	if timeout == 0 {
		timeout = 5.0
	}

	// *float64, like Proto.Unit, so an absent "beacon:" key (default 2.0)
	// is distinguishable from an explicit "beacon: 0" (heartbeat disabled).
	beacon := 2.0
	if raw.Beacon != nil {
		beacon = *raw.Beacon
	}

	switch raw.Proto.Name {
	case "modbus/tcp", "modbus/udp", "enip/ab_eip", "snmp":
	default:
		return nil, fmt.Errorf("unknown proto name: %q", raw.Proto.Name)
	}

	if raw.Proto.Name == "snmp" {
		version := raw.Proto.Version
		if version == 0 {
			version = 2
		}
		if version != 2 {
			return nil, fmt.Errorf("unsupported SNMP version: %d", version)
		}
	}

	format, err := output.ParseFormat(raw.Output)
	if err != nil {
		return nil, err
	}

	timeFmt, err := datatypes.ParseTimeFormat(raw.TimeFormat)
	if err != nil {
		return nil, err
	}

	return &Config{
		Timeout:      durationOf(timeout),
		EventTimeout: durationOf(raw.EventTimeout),
		Beacon:       durationOf(beacon),
		Freq:         raw.Freq,
		Resend:       durationOf(raw.Resend),
		Output:       format,
		TimeFormat:   timeFmt,
		Proto:        raw.Proto,
		Pull:         raw.Pull,
	}, nil
}

func durationOf(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
