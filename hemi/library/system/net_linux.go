// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Net for Linux. All functions work on raw file descriptors.

package system

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

func SetReuseAddr(fd int) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
}

// SetBuffered corks or uncorks a TCP socket.
func SetBuffered(fd int, buffered bool) error {
	value := 0
	if buffered {
		value = 1
	}
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_CORK, value)
}

// Sendfile copies at most count bytes from the current offset of file to sock.
func Sendfile(sock int, file int, count int) (int, error) {
	return unix.Sendfile(sock, file, nil, count)
}

// ShutdownWrite half-closes the write side of sock.
func ShutdownWrite(sock int) error { return unix.Shutdown(sock, unix.SHUT_WR) }

// NewEventfd creates a non-blocking eventfd used to wake up a poller.
func NewEventfd() (int, error) {
	return unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
}

// NotifyEventfd adds one to the counter of eventfd.
func NotifyEventfd(fd int) error {
	var one [8]byte
	binary.NativeEndian.PutUint64(one[:], 1)
	_, err := unix.Write(fd, one[:])
	if err == unix.EAGAIN { // counter is saturated, it's already readable
		err = nil
	}
	return err
}

// DrainEventfd resets the counter of eventfd and returns its value.
func DrainEventfd(fd int) (uint64, error) {
	var value [8]byte
	if _, err := unix.Read(fd, value[:]); err != nil {
		return 0, err
	}
	return binary.NativeEndian.Uint64(value[:]), nil
}
