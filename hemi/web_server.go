// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// HTTP server. One goroutine runs the reactor which owns the multiplexer, the gate, and all connections.

package hemi

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/diogin/tinox/hemi/library/system"

	"golang.org/x/sys/unix"
)

const ( // owners of handles other than conns
	ownerTick = -1
	ownerGate = -2
)

// sendfileCap is the most bytes sent by one sendfile call.
const sendfileCap = 4 * _4K

// HTTPServer
type HTTPServer struct {
	// Parent
	Component_
	// Mixins
	_accessLogger_
	_errorLogger_
	// Assocs
	webapp *Webapp      // the only webapp
	tick   *tickCronjob // wakes the reactor periodically
	// States
	address              string        // listen address
	backlog              int32         // listen backlog
	maxConns             int32         // max number of concurrent conns
	idleTimeout          time.Duration // a conn is closed if no io happens in this duration
	maxRequestFields     int32         // max number of fields in a request head
	maxRequestFieldSize  int32         // max size of a field in a request head
	maxKeepaliveRequests int32         // max number of requests served by a conn
	bufferSize           int32         // size of input and output buffer of a conn
	serverName           string        // value of server field
	clock                clock         // cached time
	gate                 tcpxGate      // the listening socket
	mplex                *mplex        // the multiplexer
	conns                []server1Conn // [0] and [1] are heads of free ring and busy ring
	numConns             int32         // number of busy conns
	tickLock             sync.Mutex    // protects tickFd from being closed while notified
	tickFd               int           // eventfd notified by tick cronjob
	tickHandle           int32         // handle of tickFd
	gateHandle           int32         // handle of gate
	gatePaused           bool          // gate is paused because no conn is free
	shutting             atomic.Bool   // Shutdown() is called
}

func (s *HTTPServer) onCreate(name string, props map[string]Value) {
	s.MakeComp(name, props)
	s.tickFd = -1
	s.tickHandle, s.gateHandle = -1, -1
	s.webapp = new(Webapp)
	s.webapp.onCreate(name, s)
	s.tick = new(tickCronjob)
	s.tick.onCreate("tick", s)
}

func (s *HTTPServer) OnConfigure() {
	s._accessLogger_.onConfigure(s)
	s._errorLogger_.onConfigure(s)

	// .address
	s.ConfigureString("address", &s.address, func(value string) error {
		if value != "" {
			return nil
		}
		return errors.New(".address has an invalid value")
	}, ":10080")

	// .backlog
	s.ConfigureInt32("backlog", &s.backlog, func(value int32) error {
		if value > 0 {
			return nil
		}
		return errors.New(".backlog has an invalid value")
	}, 10)

	// .maxConns
	s.ConfigureInt32("maxConns", &s.maxConns, func(value int32) error {
		if value > 0 && value <= _1M {
			return nil
		}
		return errors.New(".maxConns has an invalid value")
	}, 10)

	// .idleTimeout
	s.ConfigureDuration("idleTimeout", &s.idleTimeout, func(value time.Duration) error {
		if value >= time.Millisecond {
			return nil
		}
		return errors.New(".idleTimeout has an invalid value")
	}, 60*time.Second)

	// .maxRequestFields
	s.ConfigureInt32("maxRequestFields", &s.maxRequestFields, func(value int32) error {
		if value > 0 {
			return nil
		}
		return errors.New(".maxRequestFields has an invalid value")
	}, 100)

	// .maxRequestFieldSize
	s.ConfigureInt32("maxRequestFieldSize", &s.maxRequestFieldSize, func(value int32) error {
		if value > 0 && value <= _64K1 {
			return nil
		}
		return errors.New(".maxRequestFieldSize has an invalid value")
	}, 8190)

	// .maxKeepaliveRequests
	s.ConfigureInt32("maxKeepaliveRequests", &s.maxKeepaliveRequests, func(value int32) error {
		if value > 0 {
			return nil
		}
		return errors.New(".maxKeepaliveRequests has an invalid value")
	}, 5)

	// .bufferSize
	s.ConfigureInt32("bufferSize", &s.bufferSize, func(value int32) error {
		if value >= _1K && value <= _1M {
			return nil
		}
		return errors.New(".bufferSize has an invalid value")
	}, _4K)

	// .serverName
	s.ConfigureString("serverName", &s.serverName, func(value string) error {
		if value != "" {
			return nil
		}
		return errors.New(".serverName has an invalid value")
	}, "tinox")

	s.webapp.onConfigure()
	s.tick.onConfigure()
}
func (s *HTTPServer) OnPrepare() {
	s._accessLogger_.onPrepare(s)
	s._errorLogger_.onPrepare(s)
	s.webapp.onPrepare()
	s.tick.onPrepare()
}

func (s *HTTPServer) Address() string { return s.gate.Address() }
func (s *HTTPServer) Webapp() *Webapp { return s.webapp }

// deadline returns the deadline of a conn which does io now.
func (s *HTTPServer) deadline() int64 {
	return s.mplex.nowMsec() + s.idleTimeout.Milliseconds()
}

// Open creates the multiplexer, the tick eventfd, and the gate, and registers them.
func (s *HTTPServer) Open() error {
	mplex, err := newMplex(int(s.maxConns) + 2) // conns, the gate, and the tick
	if err != nil {
		return err
	}
	s.mplex = mplex
	tickFd, err := system.NewEventfd()
	if err != nil {
		s.closeAll()
		return err
	}
	s.tickLock.Lock()
	s.tickFd = tickFd
	s.tickLock.Unlock()
	if s.tickHandle, err = s.mplex.add(mplexRead|mplexEdge, s.tickFd, ownerTick); err != nil {
		s.closeAll()
		return err
	}
	s.gate.onNew(s.address, s.backlog)
	if err := s.gate.Open(); err != nil {
		s.closeAll()
		return err
	}
	if s.gateHandle, err = s.mplex.add(mplexRead|mplexEdge, s.gate.fd, ownerGate); err != nil {
		s.closeAll()
		return err
	}
	s.prepareConns()
	return nil
}

// prepareConns creates the conn pool. All conns are in the free ring.
func (s *HTTPServer) prepareConns() {
	s.conns = make([]server1Conn, connFirstID+s.maxConns)
	for i := range s.conns {
		conn := &s.conns[i]
		conn.id, conn.prev, conn.next = int32(i), int32(i), int32(i)
	}
	for i := connFirstID; i < len(s.conns); i++ {
		s.conns[i].onCreate(int32(i), s)
		s.connInsert(connFree, int32(i))
	}
	s.numConns = 0
	s.clock.update(time.Now())
}

// Serve runs the reactor until Shutdown is called.
func (s *HTTPServer) Serve() error { // runner
	if s.mplex == nil {
		return errors.New("server is not opened")
	}
	go s.tick.Schedule()
	s.logInfo("serving on " + s.Address())
	if DebugLevel() >= 1 {
		Printf("httpServer=%s serving on %s\n", s.Name(), s.Address())
	}
	for !s.shutting.Load() {
		if err := s.react(-1); err != nil {
			s.logError("wait", err)
			break
		}
	}
	close(s.tick.ShutChan) // notifies tick.Schedule()
	<-s.tick.done
	for id := s.conns[connBusy].next; id != connBusy; {
		next := s.conns[id].next
		s.closeConn(&s.conns[id])
		id = next
	}
	s.closeAll()
	s.logInfo("shut down")
	if DebugLevel() >= 1 {
		Printf("httpServer=%s done\n", s.Name())
	}
	s.closeErrorLog()
	s.CloseLog()
	return nil
}

// react waits at most timeout for events and handles all ready handles once.
func (s *HTTPServer) react(timeout time.Duration) error {
	mplex := s.mplex
	if _, err := mplex.wait(timeout); err != nil {
		return err
	}
	for id := mplex.first(); id != mplex.end(); {
		next := mplex.next(id) // id may leave ready ring
		switch owner := mplex.owner(id); owner {
		case ownerTick:
			s.onTick()
		case ownerGate:
			s.onAccept()
		default:
			conn := &s.conns[owner]
			if !conn.onEvents(mplex.events(id)) {
				s.closeConn(conn)
			}
		}
		id = next
	}
	return nil
}

// Shutdown asks the reactor to exit. It can be called from any goroutine.
func (s *HTTPServer) Shutdown() {
	if s.shutting.Swap(true) {
		return
	}
	s.tickLock.Lock()
	if s.tickFd >= 0 {
		system.NotifyEventfd(s.tickFd)
	}
	s.tickLock.Unlock()
}

func (s *HTTPServer) closeAll() {
	if s.gateHandle >= 0 {
		s.mplex.remove(s.gateHandle)
		s.gateHandle = -1
	}
	s.gate.Shut()
	if s.tickHandle >= 0 {
		s.mplex.remove(s.tickHandle)
		s.tickHandle = -1
	}
	s.tickLock.Lock()
	if s.tickFd >= 0 {
		unix.Close(s.tickFd)
		s.tickFd = -1
	}
	s.tickLock.Unlock()
	if s.mplex != nil {
		s.mplex.close()
		s.mplex = nil
	}
}

// onTick drains the tick eventfd. Expired timers are fired by mplex.wait().
func (s *HTTPServer) onTick() {
	for {
		if _, err := system.DrainEventfd(s.tickFd); err != nil {
			break
		}
	}
	s.mplex.drop(mplexRead, s.tickHandle)
}

// onAccept accepts connections until the backlog is empty or no conn is free.
func (s *HTTPServer) onAccept() {
	for {
		if s.connEmpty(connFree) {
			s.pauseGate()
			return
		}
		fd, remoteAddr, err := s.gate.accept()
		if err != nil {
			switch err {
			case unix.EINTR, unix.ECONNABORTED:
				continue
			case unix.EAGAIN:
			default:
				s.logError("accept", err)
			}
			s.mplex.drop(mplexRead, s.gateHandle)
			return
		}
		conn, err := s.openConn(fd, remoteAddr)
		if err != nil {
			s.logError("accept", err)
			unix.Close(fd)
			continue
		}
		if DebugLevel() >= 2 {
			Printf("conn=%d accepted from %s, numConns=%d\n", conn.id, remoteAddr, s.numConns)
		}
	}
}

// openConn moves a free conn to the busy ring and lets it serve the non-blocking socket fd.
func (s *HTTPServer) openConn(fd int, remoteAddr string) (*server1Conn, error) {
	id := s.conns[connFree].next
	if id == connFree {
		return nil, errors.New("no free conn")
	}
	conn := &s.conns[id]
	if err := conn.onAccept(fd, remoteAddr); err != nil {
		return nil, err
	}
	s.connErase(id)
	s.connInsert(connBusy, id)
	s.numConns++
	return conn, nil
}

// closeConn closes conn and puts it back to the free ring.
func (s *HTTPServer) closeConn(conn *server1Conn) {
	if DebugLevel() >= 2 {
		Printf("conn=%d closed\n", conn.id)
	}
	conn.onClose()
	s.connErase(conn.id)
	s.connInsert(connFree, conn.id)
	s.numConns--
	if s.gatePaused {
		s.resumeGate()
	}
}

func (s *HTTPServer) pauseGate() {
	if err := s.mplex.modify(mplexEdge, s.gateHandle); err != nil {
		s.logError("pause", err)
	}
	s.gatePaused = true
}
func (s *HTTPServer) resumeGate() {
	if err := s.mplex.modify(mplexRead|mplexEdge, s.gateHandle); err != nil {
		s.logError("resume", err)
	}
	s.gatePaused = false
}

// connInsert appends id to the tail of ring head.
func (s *HTTPServer) connInsert(head int32, id int32) {
	c, r := &s.conns[id], &s.conns[head]
	c.prev, c.next = r.prev, head
	s.conns[r.prev].next = id
	r.prev = id
	c.state = int8(head)
}

// connErase removes id from its ring.
func (s *HTTPServer) connErase(id int32) {
	c := &s.conns[id]
	s.conns[c.prev].next = c.next
	s.conns[c.next].prev = c.prev
	c.prev, c.next = id, id
}

func (s *HTTPServer) connEmpty(head int32) bool { return s.conns[head].next == head }

func absPath(path string) string { return system.AbsPath(BaseDir(), path) }
