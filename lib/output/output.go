/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * Copyright © 2016, 1&1 Internet SE
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

// Package output implements the five textual event-serialization formats
// and the heartbeat beacon line, written to a line-buffered stdout.
package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/alttch/pulr/lib/datatypes"
)

// Format tags a Sink's serialization shape.
type Format int

const (
	FormatPlain Format = iota
	FormatCSV
	FormatNDJSON
	FormatNDJSONShort
	FormatEVADatapuller
)

// ParseFormat maps an "output:" config string to a Format. Unknown values
// are a fatal configuration error (spec §7).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "stdout", "text", "plain", "-":
		return FormatPlain, nil
	case "csv":
		return FormatCSV, nil
	case "ndjson", "json":
		return FormatNDJSON, nil
	case "ndjson/short", "json/short", "ndjson/s", "json/s":
		return FormatNDJSONShort, nil
	case "eva/datapuller", "eva":
		return FormatEVADatapuller, nil
	default:
		return 0, fmt.Errorf("unknown output type: %s", s)
	}
}

// Record is the final, post-transform shape a Sink renders: an id, its
// value (still carrying its Kind, so the JSON renderer can quote by type
// rather than guessing from a rendered string), and an optional rendered
// time (empty when the configured TimeFormat is Omit).
type Record struct {
	ID    string
	Val   datatypes.Value
	Time  string
}

// Sink writes Records and beacon lines to an underlying writer, one line
// per call, flushed immediately — matching the teacher's direct per-call
// write style rather than deferred/batched flushing.
type Sink struct {
	w      *bufio.Writer
	format Format
}

// New constructs a Sink. w is typically os.Stdout.
func New(w io.Writer, format Format) *Sink {
	return &Sink{w: bufio.NewWriter(w), format: format}
}

// Write renders and flushes one Record, per §4.4.
func (s *Sink) Write(r Record) error {
	var line string
	switch s.format {
	case FormatPlain:
		line = renderPlain(r)
	case FormatCSV:
		line = renderCSV(r)
	case FormatNDJSON:
		l, err := renderJSON(r, false)
		if err != nil {
			return err
		}
		line = l
	case FormatNDJSONShort:
		l, err := renderJSON(r, true)
		if err != nil {
			return err
		}
		line = l
	case FormatEVADatapuller:
		line = renderEVA(r)
	default:
		return fmt.Errorf("unhandled output format %d", s.format)
	}
	if _, err := s.w.WriteString(line); err != nil {
		return err
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return err
	}
	return s.w.Flush()
}

// Beacon writes a single blank line, flushed, regardless of format.
func (s *Sink) Beacon() error {
	if err := s.w.WriteByte('\n'); err != nil {
		return err
	}
	return s.w.Flush()
}

func renderPlain(r Record) string {
	if r.Time == "" {
		return fmt.Sprintf("%s %s", r.ID, r.Val.String())
	}
	return fmt.Sprintf("%s %s %s", r.Time, r.ID, r.Val.String())
}

func renderCSV(r Record) string {
	return fmt.Sprintf("%s;%s;%s", r.Time, r.ID, r.Val.String())
}

// wireValue adapts a datatypes.Value to encoding/json by quoting per Kind
// instead of re-parsing an already-rendered string: a KindString "007"
// stays a quoted string and keeps its leading zero, where sniffing the
// text would have misread it as the number 7.
type wireValue datatypes.Value

func (w wireValue) MarshalJSON() ([]byte, error) {
	v := datatypes.Value(w)
	switch v.Kind {
	case datatypes.KindBit:
		if v.Bit {
			return []byte("1"), nil
		}
		return []byte("0"), nil
	case datatypes.KindBool:
		return json.Marshal(v.Boolv)
	case datatypes.KindString:
		return json.Marshal(v.Str)
	case datatypes.KindInt8:
		return json.Marshal(v.I8)
	case datatypes.KindUint8:
		return json.Marshal(v.U8)
	case datatypes.KindInt16:
		return json.Marshal(v.I16)
	case datatypes.KindUint16:
		return json.Marshal(v.U16)
	case datatypes.KindInt32:
		return json.Marshal(v.I32)
	case datatypes.KindUint32:
		return json.Marshal(v.U32)
	case datatypes.KindInt64:
		return json.Marshal(v.I64)
	case datatypes.KindUint64:
		return json.Marshal(v.U64)
	case datatypes.KindReal32:
		return json.Marshal(v.R32)
	case datatypes.KindReal64:
		return json.Marshal(v.R64)
	default:
		return nil, fmt.Errorf("unhandled value kind %s", v.Kind)
	}
}

// jsonRecord is the private wire shape for the full {"id":...,"value":...}
// ndjson line; Value's quoting is delegated to wireValue.MarshalJSON.
type jsonRecord struct {
	ID    string    `json:"id"`
	Value wireValue `json:"value"`
	Time  string    `json:"time,omitempty"`
}

// jsonShortRecord is the private wire shape for the {<id>: value} short
// form, whose dynamic key can't be expressed as a static struct tag.
type jsonShortRecord struct {
	id  string
	val wireValue
}

func (s jsonShortRecord) MarshalJSON() ([]byte, error) {
	valBytes, err := s.val.MarshalJSON()
	if err != nil {
		return nil, err
	}
	keyBytes, err := json.Marshal(s.id)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	b.WriteByte('{')
	b.Write(keyBytes)
	b.WriteByte(':')
	b.Write(valBytes)
	b.WriteByte('}')
	return []byte(b.String()), nil
}

func renderJSON(r Record, short bool) (string, error) {
	if short {
		b, err := json.Marshal(jsonShortRecord{id: r.ID, val: wireValue(r.Val)})
		return string(b), err
	}
	b, err := json.Marshal(jsonRecord{ID: r.ID, Value: wireValue(r.Val), Time: r.Time})
	return string(b), err
}

func renderEVA(r Record) string {
	value := r.Val.String()
	switch {
	case strings.HasSuffix(r.ID, ".value"):
		return fmt.Sprintf("%s u None %s", strings.TrimSuffix(r.ID, ".value"), value)
	case strings.HasSuffix(r.ID, ".status"):
		return fmt.Sprintf("%s u %s", strings.TrimSuffix(r.ID, ".status"), value)
	default:
		return fmt.Sprintf("%s u None %s", r.ID, value)
	}
}
