// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Epoll backend of mplex.

package hemi

import (
	"time"

	"golang.org/x/sys/unix"
)

// mplexPoller
type mplexPoller struct {
	epollFd int
	evset   []unix.EpollEvent
}

// newMplex creates an mplex with size handles.
func newMplex(size int) (*mplex, error) {
	epollFd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	m := new(mplex)
	m.init(size)
	m.poller.epollFd = epollFd
	m.poller.evset = make([]unix.EpollEvent, size)
	return m, nil
}

func (m *mplex) close() error { return unix.Close(m.poller.epollFd) }

func mplexEpollEvents(mask uint32) uint32 {
	var events uint32
	if mask&mplexRead != 0 {
		events |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if mask&mplexWrite != 0 {
		events |= unix.EPOLLOUT
	}
	if mask&mplexEdge != 0 {
		events |= unix.EPOLLET
	}
	return events
}

// add registers fd with wanted events in mask. Descriptors that epoll refuses with EPERM (regular files) are always ready.
func (m *mplex) add(mask uint32, fd int, owner int32) (int32, error) {
	if fd < 0 {
		return -1, unix.EBADF
	}
	id, err := m.takeFree()
	if err != nil {
		return -1, err
	}
	ev := unix.EpollEvent{Events: mplexEpollEvents(mask), Fd: id}
	evPermit := true
	if err := unix.EpollCtl(m.poller.epollFd, unix.EPOLL_CTL_ADD, fd, &ev); err == unix.EPERM {
		evPermit = false
	} else if err != nil {
		return -1, err
	}
	h := &m.handles[id]
	h.evPermit, h.fd, h.owner = evPermit, fd, owner
	h.deadline = 0
	h.evMask = mask & (mplexRead | mplexWrite)
	if evPermit {
		h.events = 0
		m.setState(id, mplexWait)
	} else {
		h.events = h.evMask
		m.setState(id, mplexReady)
	}
	return id, nil
}

// modify replaces the wanted events of handle id. An empty mask keeps the registration but reports nothing.
func (m *mplex) modify(mask uint32, id int32) error {
	if err := m.rangeCheck(id); err != nil {
		return err
	}
	h := &m.handles[id]
	h.evMask = h.evMask&mplexTimer | mask&(mplexRead|mplexWrite)
	if h.evPermit {
		ev := unix.EpollEvent{Events: mplexEpollEvents(mask), Fd: id}
		if err := unix.EpollCtl(m.poller.epollFd, unix.EPOLL_CTL_MOD, h.fd, &ev); err != nil {
			return err
		}
	} else {
		h.events = h.events&mplexTimer | mask&(mplexRead|mplexWrite)
	}
	if h.evMask&h.events != 0 {
		m.setState(id, mplexReady)
	} else {
		m.setState(id, mplexWait)
	}
	return nil
}

// drop clears got events of handle id. The handle waits again if nothing it wants is left.
func (m *mplex) drop(mask uint32, id int32) error {
	if err := m.rangeCheck(id); err != nil {
		return err
	}
	h := &m.handles[id]
	if h.evPermit {
		h.events &^= mask
	}
	if h.state == mplexReady && h.events&h.evMask == 0 {
		m.setState(id, mplexWait)
	}
	return nil
}

// remove unregisters handle id and returns it to FREE ring. The fd is not closed.
func (m *mplex) remove(id int32) error {
	if err := m.rangeCheck(id); err != nil {
		return err
	}
	h := &m.handles[id]
	var err error
	if h.evPermit {
		err = unix.EpollCtl(m.poller.epollFd, unix.EPOLL_CTL_DEL, h.fd, nil)
	}
	h.deadline = 0
	h.evPermit, h.fd, h.owner = false, -1, 0
	h.evMask, h.events = 0, 0
	m.setState(id, mplexFree)
	return err
}

// wait fires expired timers, then waits at most timeout for events. A negative timeout waits until some event comes.
// It returns the number of handles in READY ring, including those made ready by timers.
func (m *mplex) wait(timeout time.Duration) (int, error) {
	m.runTimers()
	timeout = m.waitTimeout(timeout)
	msec := -1
	if timeout >= 0 {
		msec = int((timeout + time.Millisecond - 1) / time.Millisecond)
	}
	n, err := unix.EpollWait(m.poller.epollFd, m.poller.evset, msec)
	if err == unix.EINTR {
		m.runTimers()
		return m.ringLen(mplexReady), nil
	}
	if err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		ev := &m.poller.evset[i]
		var events uint32
		if ev.Events&(unix.EPOLLIN|unix.EPOLLRDHUP) != 0 {
			events |= mplexRead
		}
		if ev.Events&unix.EPOLLOUT != 0 {
			events |= mplexWrite
		}
		if ev.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 { // let read or write see the error
			events |= mplexRead | mplexWrite
		}
		m.gotEvents(ev.Fd, events)
	}
	m.runTimers()
	return m.ringLen(mplexReady), nil
}
