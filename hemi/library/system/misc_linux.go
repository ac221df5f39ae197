// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Misc types and functions for Linux.

package system

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Check reports whether the system can run the server: epoll and eventfd must be usable.
func Check() bool {
	epollFd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return false
	}
	unix.Close(epollFd)
	eventFd, err := NewEventfd()
	if err != nil {
		return false
	}
	unix.Close(eventFd)
	return true
}

// Advise prints advice about system limits that affect the server.
func Advise(maxConns int32) {
	var limit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &limit); err != nil {
		fmt.Println("cannot get RLIMIT_NOFILE:", err.Error())
		return
	}
	fmt.Printf("open files: soft=%d hard=%d\n", limit.Cur, limit.Max)
	if need := uint64(maxConns)*2 + 16; limit.Cur < need {
		fmt.Printf("soft limit of open files is lower than %d, consider raising it with ulimit -n\n", need)
	}
}
