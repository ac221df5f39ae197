// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Mplex tests.

package hemi

import (
	"os"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// checkRings verifies every real handle is in exactly one ring and that timer entries imply WAIT.
func checkRings(t *testing.T, m *mplex) {
	t.Helper()
	seen := make(map[int32]int8)
	for head := int32(mplexFree); head <= mplexReady; head++ {
		for id := m.handles[head].next; id != head; id = m.handles[id].next {
			if _, ok := seen[id]; ok {
				t.Fatalf("handle %d is in two rings", id)
			}
			if m.handles[id].state != int8(head) {
				t.Fatalf("handle %d state=%d ring=%d", id, m.handles[id].state, head)
			}
			seen[id] = int8(head)
		}
	}
	if len(seen) != len(m.handles)-mplexFirstID {
		t.Fatalf("rings hold %d handles, expect %d", len(seen), len(m.handles)-mplexFirstID)
	}
	for i, id := range m.timers.ids {
		h := &m.handles[id]
		if h.heapIndex != i || h.state != mplexWait || h.deadline == 0 {
			t.Fatalf("bad timer entry %d for handle %d", i, id)
		}
	}
}

func readyIDs(m *mplex) []int32 {
	var ids []int32
	for id := m.first(); id != m.end(); id = m.next(id) {
		ids = append(ids, id)
	}
	return ids
}

func TestMplexTimers(t *testing.T) {
	now := int64(1000)
	m := new(mplex)
	m.nowMsec = func() int64 { return now }
	m.init(4)
	checkRings(t, m)

	a, err := m.addTimer(1500, 10)
	if err != nil {
		t.Fatalf("addTimer: %v", err)
	}
	b, _ := m.addTimer(1200, 11)
	c, _ := m.addTimer(900, 12) // already expired
	checkRings(t, m)
	if ids := readyIDs(m); len(ids) != 1 || ids[0] != c {
		t.Fatalf("ready=%v", ids)
	}
	if m.events(c) != mplexTimer || m.owner(c) != 12 {
		t.Errorf("events=%d owner=%d", m.events(c), m.owner(c))
	}
	if d := m.waitTimeout(time.Second); d != 0 {
		t.Errorf("waitTimeout with ready handles=%v", d)
	}
	m.cancelTimer(c)
	checkRings(t, m)
	if !m.empty() {
		t.Fatal("cancelled timer is still ready")
	}
	if d := m.waitTimeout(time.Second); d != 200*time.Millisecond {
		t.Errorf("waitTimeout=%v", d)
	}

	now = 1300
	m.runTimers()
	checkRings(t, m)
	if ids := readyIDs(m); len(ids) != 1 || ids[0] != b {
		t.Fatalf("ready=%v", ids)
	}
	m.resetTimer(2000, a)
	now = 1600
	m.runTimers()
	if ids := readyIDs(m); len(ids) != 1 {
		t.Fatalf("reset timer fired early: %v", ids)
	}
	now = 2000
	m.runTimers()
	if ids := readyIDs(m); len(ids) != 2 || ids[1] != a {
		t.Fatalf("ready=%v", ids)
	}
	checkRings(t, m)

	m.addTimer(5000, 13)
	if _, err := m.addTimer(5000, 14); err != errNoHandle {
		t.Errorf("expect errNoHandle, got %v", err)
	}
	for _, id := range []int32{0, 1, 2, 100} {
		if err := m.resetTimer(5000, id); err != errBadHandle {
			t.Errorf("id=%d: expect errBadHandle, got %v", id, err)
		}
	}
}

func TestMplexPipe(t *testing.T) {
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer unix.Close(p[0])
	defer unix.Close(p[1])

	m, err := newMplex(4)
	if err != nil {
		t.Fatalf("newMplex: %v", err)
	}
	defer m.close()

	rid, err := m.add(mplexRead|mplexEdge, p[0], 7)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	checkRings(t, m)
	if n, err := m.wait(10 * time.Millisecond); err != nil || n != 0 || !m.empty() {
		t.Fatalf("wait on idle pipe: n=%d err=%v", n, err)
	}
	unix.Write(p[1], []byte("hello"))
	if n, err := m.wait(time.Second); err != nil || n != 1 {
		t.Fatalf("wait: n=%d err=%v", n, err)
	}
	if ids := readyIDs(m); len(ids) != 1 || ids[0] != rid || m.events(rid) != mplexRead || m.fd(rid) != p[0] {
		t.Fatalf("ready=%v", ids)
	}
	buf := make([]byte, 16)
	if n, _ := unix.Read(p[0], buf); n != 5 {
		t.Errorf("read n=%d", n)
	}
	if _, err := unix.Read(p[0], buf); err != unix.EAGAIN {
		t.Errorf("expect EAGAIN, got %v", err)
	}
	m.drop(mplexRead, rid)
	checkRings(t, m)
	if !m.empty() {
		t.Fatal("dropped handle is still ready")
	}

	wid, err := m.add(mplexWrite|mplexEdge, p[1], 8)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	m.wait(time.Second)
	if ids := readyIDs(m); len(ids) != 1 || ids[0] != wid {
		t.Fatalf("ready=%v", ids)
	}
	if err := m.modify(0, wid); err != nil {
		t.Fatalf("modify: %v", err)
	}
	if !m.empty() {
		t.Fatal("paused handle is ready")
	}
	m.modify(mplexWrite, wid)
	if ids := readyIDs(m); len(ids) != 1 || ids[0] != wid {
		t.Fatalf("resumed handle is not ready: %v", ids)
	}
	checkRings(t, m)

	if err := m.remove(rid); err != nil {
		t.Errorf("remove: %v", err)
	}
	if err := m.remove(rid); err != errBadHandle {
		t.Errorf("double remove: %v", err)
	}
	checkRings(t, m)
}

func TestMplexRegularFile(t *testing.T) {
	file, err := os.CreateTemp(t.TempDir(), "mplex")
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	m, err := newMplex(2)
	if err != nil {
		t.Fatalf("newMplex: %v", err)
	}
	defer m.close()

	id, err := m.add(mplexRead|mplexEdge, int(file.Fd()), 3)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if m.handles[id].evPermit {
		t.Fatal("regular file should not be pollable")
	}
	if ids := readyIDs(m); len(ids) != 1 || ids[0] != id || m.events(id) != mplexRead {
		t.Fatalf("regular file is not ready: %v", ids)
	}
	if n, err := m.wait(0); err != nil || n != 1 {
		t.Fatalf("wait with a regular file: n=%d err=%v", n, err)
	}
	tid, err := m.addTimer(m.nowMsec()-1, 4)
	if err != nil {
		t.Fatalf("addTimer: %v", err)
	}
	if n, err := m.wait(0); err != nil || n != 2 {
		t.Fatalf("wait with an expired timer: n=%d err=%v", n, err)
	}
	if err := m.remove(tid); err != nil {
		t.Errorf("remove timer: %v", err)
	}
	m.drop(mplexRead, id)
	if m.empty() {
		t.Fatal("regular file must stay ready")
	}
	if err := m.remove(id); err != nil {
		t.Errorf("remove: %v", err)
	}
	checkRings(t, m)
}

func TestMplexTimerOnSocket(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	m, err := newMplex(2)
	if err != nil {
		t.Fatalf("newMplex: %v", err)
	}
	defer m.close()
	id, _ := m.add(mplexRead|mplexEdge, fds[0], 1)
	m.resetTimer(time.Now().UnixMilli()+30, id)
	checkRings(t, m)
	begin := time.Now()
	m.wait(5 * time.Second) // capped by the deadline
	if elapsed := time.Since(begin); elapsed > 2*time.Second {
		t.Fatalf("wait is not capped by deadline: %v", elapsed)
	}
	for m.empty() && time.Since(begin) < 2*time.Second {
		m.wait(50 * time.Millisecond)
	}
	if m.events(id)&mplexTimer == 0 {
		t.Fatal("timer did not fire")
	}
	checkRings(t, m)
}
