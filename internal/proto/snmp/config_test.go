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
	"testing"

	"github.com/alttch/pulr/internal/config"
)

func TestNormalizeOID(t *testing.T) {
	cases := map[string]string{
		".1.3.6.1.2.1.1.1.0": "1.3.6.1.2.1.1.1.0",
		"iso.3.6.1.2.1.1.1.0": "1.3.6.1.2.1.1.1.0",
		"1.3.6.1.2.1.1.1.0":  "1.3.6.1.2.1.1.1.0",
	}
	for in, want := range cases {
		if got := NormalizeOID(in); got != want {
			t.Errorf("NormalizeOID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUseGetBulkDispatch(t *testing.T) {
	single := Pull{OIDs: []string{"1.1"}, MaxRepeat: 1}
	if useGetBulk(single) {
		t.Error("single OID with max-repeat 1 should use GetNext")
	}
	multi := Pull{OIDs: []string{"1.1", "1.2"}, MaxRepeat: 1}
	if !useGetBulk(multi) {
		t.Error("multiple OIDs should use GetBulk")
	}
	repeat := Pull{OIDs: []string{"1.1"}, MaxRepeat: 5}
	if !useGetBulk(repeat) {
		t.Error("max-repeat > 1 should use GetBulk")
	}
}

func TestParsePullDefaultsMaxRepeat(t *testing.T) {
	p, err := ParsePull(config.Pull{OIDs: []string{".1.2.3"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.MaxRepeat != 1 {
		t.Errorf("MaxRepeat default = %d, want 1", p.MaxRepeat)
	}
	if p.OIDs[0] != "1.2.3" {
		t.Errorf("OIDs[0] = %q, want normalized \"1.2.3\"", p.OIDs[0])
	}
}
