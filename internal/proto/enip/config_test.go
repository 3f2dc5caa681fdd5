/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * Copyright © 2016, 1&1 Internet SE
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

package enip

import (
	"testing"

	"github.com/alttch/pulr/internal/config"
)

func TestBuildPath(t *testing.T) {
	got := BuildPath("192.0.2.1", 44818, "1,0", "LGX", "N7:0", 2, 10)
	want := "protocol=ab_eip&gateway=192.0.2.1:44818&path=1,0&cpu=LGX&elem_size=2&elem_count=10&name=N7:0"
	if got != want {
		t.Errorf("BuildPath = %q, want %q", got, want)
	}
}

func TestBuildPathOmitsElemCountWhenZero(t *testing.T) {
	got := BuildPath("h", 1, "p", "c", "tag", 4, 0)
	if got != "protocol=ab_eip&gateway=h:1&path=p&cpu=c&elem_size=4&name=tag" {
		t.Errorf("BuildPath without count = %q", got)
	}
}

func TestParsePullComputesStablePathHash(t *testing.T) {
	p := config.Pull{Tag: "N7:0", Count: 1}
	a, err := ParsePull(p, "h", 1, "1,0", "LGX")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := ParsePull(p, "h", 1, "1,0", "LGX")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.PathHash != b.PathHash {
		t.Error("identical pull config should produce identical path hash")
	}
}

func TestParsePullDefaultsSizeToOne(t *testing.T) {
	p := config.Pull{Tag: "N7:0"}
	a, err := ParsePull(p, "h", 1, "path", "cpu")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Path == "" {
		t.Fatal("expected a built path")
	}
	want := BuildPath("h", 1, "path", "cpu", "N7:0", 1, 0)
	if a.Path != want {
		t.Errorf("Path = %q, want %q", a.Path, want)
	}
}
