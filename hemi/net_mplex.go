// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Readiness multiplexer. Handles live in a fixed arena and are linked into FREE, WAIT, and READY rings by index.

package hemi

import (
	"container/heap"
	"errors"
	"time"
)

const ( // mplex events
	mplexRead  = 0x1
	mplexWrite = 0x2
	mplexTimer = 0x4
	mplexEdge  = 0x8 // register edge-triggered
)

const ( // mplex rings. ring heads are also the state of a handle
	mplexFree  = 0
	mplexWait  = 1
	mplexReady = 2

	mplexFirstID = 3 // ids of real handles start here
)

var (
	errBadHandle = errors.New("mplex: bad handle")
	errNoHandle  = errors.New("mplex: no free handle")
)

// mplexHandle is a slot in the arena.
type mplexHandle struct {
	id        int32
	prev      int32
	next      int32
	state     int8   // mplexFree, mplexWait, mplexReady
	evPermit  bool   // false if the fd cannot be polled (regular files)
	fd        int    // -1 for timers
	owner     int32  // who owns this handle
	evMask    uint32 // wanted events
	events    uint32 // got events
	deadline  int64  // unix milliseconds. 0 means no timer
	heapIndex int    // index in timer heap, -1 if not in heap
}

// mplex is the multiplexer. It is used by only one goroutine.
type mplex struct {
	handles []mplexHandle
	timers  mplexTimers
	poller  mplexPoller // platform specific
	nowMsec func() int64
}

func (m *mplex) init(size int) {
	m.handles = make([]mplexHandle, mplexFirstID+size)
	for i := range m.handles {
		h := &m.handles[i]
		h.id, h.prev, h.next = int32(i), int32(i), int32(i)
		h.fd, h.heapIndex = -1, -1
	}
	for i := mplexFirstID; i < len(m.handles); i++ {
		m.ringInsert(mplexFree, int32(i))
	}
	m.timers.m = m
	m.timers.ids = make([]int32, 0, size)
	if m.nowMsec == nil {
		m.nowMsec = func() int64 { return time.Now().UnixMilli() }
	}
}

// ringInsert appends id to the tail of ring head.
func (m *mplex) ringInsert(head int32, id int32) {
	h, r := &m.handles[id], &m.handles[head]
	h.prev, h.next = r.prev, head
	m.handles[r.prev].next = id
	r.prev = id
	h.state = int8(head)
}
func (m *mplex) ringErase(id int32) {
	h := &m.handles[id]
	m.handles[h.prev].next = h.next
	m.handles[h.next].prev = h.prev
	h.prev, h.next = id, id
}
func (m *mplex) ringEmpty(head int32) bool { return m.handles[head].next == head }
func (m *mplex) ringLen(head int32) int {
	n := 0
	for id := m.handles[head].next; id != head; id = m.handles[id].next {
		n++
	}
	return n
}

// setState moves handle id into ring state. A handle is in the timer heap iff it is waiting with a deadline.
func (m *mplex) setState(id int32, state int8) {
	h := &m.handles[id]
	if h.state != state {
		m.ringErase(id)
		m.ringInsert(int32(state), id)
	}
	m.syncTimer(id)
}
func (m *mplex) syncTimer(id int32) {
	h := &m.handles[id]
	inHeap := h.heapIndex >= 0
	if want := h.state == mplexWait && h.deadline != 0; want && !inHeap {
		heap.Push(&m.timers, id)
	} else if !want && inHeap {
		heap.Remove(&m.timers, h.heapIndex)
	} else if want && inHeap {
		heap.Fix(&m.timers, h.heapIndex)
	}
}

func (m *mplex) rangeCheck(id int32) error {
	if id < mplexFirstID || int(id) >= len(m.handles) || m.handles[id].state == mplexFree {
		return errBadHandle
	}
	return nil
}

// takeFree takes a handle from FREE ring.
func (m *mplex) takeFree() (int32, error) {
	if m.ringEmpty(mplexFree) {
		return -1, errNoHandle
	}
	return m.handles[mplexFree].next, nil
}

// addTimer adds a handle that only has a timer.
func (m *mplex) addTimer(deadline int64, owner int32) (int32, error) {
	id, err := m.takeFree()
	if err != nil {
		return -1, err
	}
	h := &m.handles[id]
	h.evPermit, h.fd, h.owner = false, -1, owner
	h.evMask, h.events = mplexTimer, 0
	h.deadline = deadline
	if deadline <= m.nowMsec() {
		h.events = mplexTimer
		m.setState(id, mplexReady)
	} else {
		m.setState(id, mplexWait)
	}
	return id, nil
}

// resetTimer sets a new deadline for handle id.
func (m *mplex) resetTimer(deadline int64, id int32) error {
	if err := m.rangeCheck(id); err != nil {
		return err
	}
	h := &m.handles[id]
	h.evMask |= mplexTimer
	h.events &^= mplexTimer
	h.deadline = deadline
	if deadline <= m.nowMsec() {
		h.events |= mplexTimer
		m.setState(id, mplexReady)
	} else {
		m.syncTimer(id)
	}
	return nil
}

// cancelTimer removes the deadline of handle id.
func (m *mplex) cancelTimer(id int32) error {
	if err := m.rangeCheck(id); err != nil {
		return err
	}
	h := &m.handles[id]
	h.deadline = 0
	h.evMask &^= mplexTimer
	h.events &^= mplexTimer
	m.syncTimer(id)
	if h.state == mplexReady && h.events&h.evMask == 0 {
		m.setState(id, mplexWait)
	}
	return nil
}

// runTimers fires expired timers.
func (m *mplex) runTimers() {
	now := m.nowMsec()
	for len(m.timers.ids) > 0 {
		id := m.timers.ids[0]
		h := &m.handles[id]
		if h.deadline > now {
			break
		}
		heap.Pop(&m.timers)
		h.events |= mplexTimer
		m.setState(id, mplexReady)
	}
}

// waitTimeout caps timeout to the earliest deadline. It is zero if some handle is ready.
func (m *mplex) waitTimeout(timeout time.Duration) time.Duration {
	if !m.ringEmpty(mplexReady) {
		return 0
	}
	if len(m.timers.ids) > 0 {
		left := time.Duration(m.handles[m.timers.ids[0]].deadline-m.nowMsec()) * time.Millisecond
		if left < 0 {
			left = 0
		}
		if timeout < 0 || left < timeout {
			timeout = left
		}
	}
	return timeout
}

// gotEvents records events reported by the poller.
func (m *mplex) gotEvents(id int32, events uint32) {
	if id < mplexFirstID || int(id) >= len(m.handles) {
		return
	}
	h := &m.handles[id]
	if h.state == mplexFree {
		return
	}
	h.events |= events
	if h.state == mplexWait && h.evMask&h.events != 0 {
		m.setState(id, mplexReady)
	}
}

func (m *mplex) empty() bool            { return m.ringEmpty(mplexReady) }
func (m *mplex) first() int32           { return m.handles[mplexReady].next }
func (m *mplex) next(id int32) int32    { return m.handles[id].next }
func (m *mplex) end() int32             { return mplexReady }
func (m *mplex) fd(id int32) int        { return m.handles[id].fd }
func (m *mplex) owner(id int32) int32   { return m.handles[id].owner }
func (m *mplex) events(id int32) uint32 { return m.handles[id].events & m.handles[id].evMask }

// mplexTimers is a heap of handle ids ordered by (deadline, id).
type mplexTimers struct {
	m   *mplex
	ids []int32
}

func (t *mplexTimers) Len() int { return len(t.ids) }
func (t *mplexTimers) Less(i, j int) bool {
	a, b := &t.m.handles[t.ids[i]], &t.m.handles[t.ids[j]]
	if a.deadline != b.deadline {
		return a.deadline < b.deadline
	}
	return a.id < b.id
}
func (t *mplexTimers) Swap(i, j int) {
	t.ids[i], t.ids[j] = t.ids[j], t.ids[i]
	t.m.handles[t.ids[i]].heapIndex = i
	t.m.handles[t.ids[j]].heapIndex = j
}
func (t *mplexTimers) Push(x any) {
	id := x.(int32)
	t.m.handles[id].heapIndex = len(t.ids)
	t.ids = append(t.ids, id)
}
func (t *mplexTimers) Pop() any {
	n := len(t.ids) - 1
	id := t.ids[n]
	t.ids = t.ids[:n]
	t.m.handles[id].heapIndex = -1
	return id
}
