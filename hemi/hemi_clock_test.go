// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Clock tests.

package hemi

import (
	"testing"
	"time"
)

func TestClockWriteHTTPDate(t *testing.T) {
	buf := make([]byte, 64)
	n := clockWriteHTTPDate(buf, time.Unix(784111777, 0))
	if s := string(buf[:n]); s != "Sun, 06 Nov 1994 08:49:37 GMT" {
		t.Errorf("date=%q", s)
	}
	if s := clockHTTPDate(784111777); s != "Sun, 06 Nov 1994 08:49:37 GMT" {
		t.Errorf("date=%q", s)
	}
}

func TestClockParseHTTPDate(t *testing.T) {
	tests := []struct {
		date   string
		expect int64
		ok     bool
	}{
		{"Sun, 06 Nov 1994 08:49:37 GMT", 784111777, true},
		{"Sunday, 06-Nov-94 08:49:37 GMT", 784111777, true},
		{"Sun Nov  6 08:49:37 1994", 784111777, true},
		{"Sun, 06 Nov 1994 08:49:37", 0, false},
		{"yesterday", 0, false},
		{"", 0, false},
	}
	for idx, test := range tests {
		unixTime, ok := clockParseHTTPDate([]byte(test.date))
		if ok != test.ok || unixTime != test.expect {
			t.Errorf("#%d: got=(%d,%v) expect=(%d,%v)", idx, unixTime, ok, test.expect, test.ok)
		}
	}
}

func TestClockCache(t *testing.T) {
	var c clock
	c.update(time.Unix(784111777, 0))
	if s := c.date(); s != "Sun, 06 Nov 1994 08:49:37 GMT" {
		t.Errorf("date=%q", s)
	}
}
