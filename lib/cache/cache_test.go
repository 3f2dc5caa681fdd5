/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * Copyright © 2016, 1&1 Internet SE
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

package cache

import "testing"

func TestCheckSuppressesRepeats(t *testing.T) {
	c := New()
	seq := []string{"1", "1", "2", "2", "1"}
	var changed int
	for _, v := range seq {
		if c.Check(1, v) {
			changed++
		}
	}
	if changed != 3 {
		t.Errorf("changed = %d, want 3 (per spec: 1,1,2,2,1 -> three emissions)", changed)
	}
}

func TestCheckFirstSeenIsAlwaysChanged(t *testing.T) {
	c := New()
	if !c.Check(42, "anything") {
		t.Error("first Check for a hash must report changed")
	}
}

func TestCheckIsolatesHashes(t *testing.T) {
	c := New()
	c.Check(1, "a")
	if !c.Check(2, "a") {
		t.Error("distinct hash with same rendered value must still report changed")
	}
}

func TestClearForcesReEmit(t *testing.T) {
	c := New()
	c.Check(1, "x")
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", c.Len())
	}
	if !c.Check(1, "x") {
		t.Error("after Clear, same value must report changed again")
	}
}

func TestLen(t *testing.T) {
	c := New()
	c.Check(1, "a")
	c.Check(2, "b")
	c.Check(1, "a2")
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}
