// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// TCPX gate. A gate is a non-blocking listening socket polled by the reactor.

package hemi

import (
	"net"
	"strconv"

	"github.com/diogin/tinox/hemi/library/system"

	"golang.org/x/sys/unix"
)

// tcpxGate
type tcpxGate struct {
	// States
	address string // like ":10080", "127.0.0.1:0"
	backlog int    // listen backlog
	fd      int    // the listening socket, -1 if not opened
}

func (g *tcpxGate) onNew(address string, backlog int32) {
	g.address = address
	g.backlog = int(backlog)
	g.fd = -1
}

// Open binds and listens on the address of gate.
func (g *tcpxGate) Open() error {
	tcpAddr, err := net.ResolveTCPAddr("tcp", g.address)
	if err != nil {
		return err
	}
	var (
		domain   int
		sockaddr unix.Sockaddr
	)
	if ip4 := tcpAddr.IP.To4(); ip4 != nil || tcpAddr.IP == nil {
		sa4 := &unix.SockaddrInet4{Port: tcpAddr.Port}
		if ip4 != nil {
			copy(sa4.Addr[:], ip4)
		}
		domain, sockaddr = unix.AF_INET, sa4
	} else {
		sa6 := &unix.SockaddrInet6{Port: tcpAddr.Port}
		copy(sa6.Addr[:], tcpAddr.IP.To16())
		domain, sockaddr = unix.AF_INET6, sa6
	}
	fd, err := unix.Socket(domain, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return err
	}
	if err := system.SetReuseAddr(fd); err != nil {
		unix.Close(fd)
		return err
	}
	if err := unix.Bind(fd, sockaddr); err != nil {
		unix.Close(fd)
		return err
	}
	if err := unix.Listen(fd, g.backlog); err != nil {
		unix.Close(fd)
		return err
	}
	g.fd = fd
	if DebugLevel() >= 1 {
		Printf("tcpxGate address=%s opened!\n", g.Address())
	}
	return nil
}

// Shut closes the listening socket.
func (g *tcpxGate) Shut() error {
	if g.fd < 0 {
		return nil
	}
	err := unix.Close(g.fd)
	g.fd = -1
	return err
}

// Address returns the bound address, which has the real port if the configured port is 0.
func (g *tcpxGate) Address() string {
	if g.fd >= 0 {
		if sockaddr, err := unix.Getsockname(g.fd); err == nil {
			if address := tcpxSockaddrString(sockaddr); address != "" {
				return address
			}
		}
	}
	return g.address
}

// accept accepts a connection as a non-blocking socket.
func (g *tcpxGate) accept() (fd int, remoteAddr string, err error) {
	fd, sockaddr, err := unix.Accept4(g.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		return -1, "", err
	}
	return fd, tcpxSockaddrHost(sockaddr), nil
}

// tcpxSockaddrHost returns the IP of sockaddr.
func tcpxSockaddrHost(sockaddr unix.Sockaddr) string {
	switch sa := sockaddr.(type) {
	case *unix.SockaddrInet4:
		return net.IP(sa.Addr[:]).String()
	case *unix.SockaddrInet6:
		return net.IP(sa.Addr[:]).String()
	case *unix.SockaddrUnix:
		return "unix"
	}
	return "-"
}

// tcpxSockaddrString returns the "ip:port" form of sockaddr.
func tcpxSockaddrString(sockaddr unix.Sockaddr) string {
	switch sa := sockaddr.(type) {
	case *unix.SockaddrInet4:
		return net.JoinHostPort(net.IP(sa.Addr[:]).String(), strconv.Itoa(sa.Port))
	case *unix.SockaddrInet6:
		return net.JoinHostPort(net.IP(sa.Addr[:]).String(), strconv.Itoa(sa.Port))
	}
	return ""
}
