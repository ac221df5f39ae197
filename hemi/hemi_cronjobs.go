// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Cronjobs are background tasks that are scheduled to run periodically.

package hemi

import (
	"errors"
	"time"

	"github.com/diogin/tinox/hemi/library/system"
)

// Cronjob component
type Cronjob interface {
	// Imports
	Component
	// Methods
	Schedule() // runner
}

// Cronjob_ is the parent for all cronjobs.
type Cronjob_ struct {
	// Parent
	Component_
	// Assocs
	server *HTTPServer // the server to which the cronjob belongs
	// States
	done chan struct{} // closed when Schedule() returns
}

func (j *Cronjob_) OnCreate(name string, server *HTTPServer) {
	j.MakeComp(name, server.props)
	j.server = server
	j.done = make(chan struct{})
}

func (j *Cronjob_) Server() *HTTPServer { return j.server }

// tickCronjob refreshes the clock of server and wakes its reactor so expired timers are fired.
type tickCronjob struct {
	// Parent
	Cronjob_
	// States
	interval time.Duration
}

func (j *tickCronjob) onCreate(name string, server *HTTPServer) {
	j.Cronjob_.OnCreate(name, server)
}

func (j *tickCronjob) onConfigure() {
	// .tickInterval
	j.ConfigureDuration("tickInterval", &j.interval, func(value time.Duration) error {
		if value >= time.Millisecond {
			return nil
		}
		return errors.New(".tickInterval has an invalid value")
	}, time.Second)
}
func (j *tickCronjob) onPrepare() {
}

func (j *tickCronjob) Schedule() { // runner
	j.LoopRun(j.interval, func(now time.Time) {
		j.server.clock.update(now)
		if err := system.NotifyEventfd(j.server.tickFd); err != nil && DebugLevel() >= 1 {
			Printf("tick: %v\n", err)
		}
	})
	if DebugLevel() >= 2 {
		Printf("tickCronjob=%s done\n", j.Name())
	}
	close(j.done)
}
