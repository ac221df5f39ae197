// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// A simple logger which appends lines to a file.

package simple

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	. "github.com/diogin/tinox/hemi"
	"github.com/diogin/tinox/hemi/library/system"
)

func init() {
	RegisterLogger("simple", func(logConfig *LogConfig) Logger {
		l, err := newSimpleLogger(logConfig)
		if err != nil {
			if DebugLevel() >= 1 {
				Printf("simple logger: %v\n", err)
			}
			return nil
		}
		return l
	})
}

// simpleLogger implements Logger. Lines are written by its saver goroutine.
// Logf never blocks: lines that do not fit in the queue are dropped and counted.
type simpleLogger struct {
	file    *os.File
	queue   chan string   // lines to write. closed by Close()
	done    chan struct{} // closed when saver() returns
	dropped atomic.Int64  // lines dropped since last report
}

func newSimpleLogger(logConfig *LogConfig) (*simpleLogger, error) {
	if logConfig.Target == "" {
		return nil, errors.New("no target")
	}
	target := system.AbsPath(BaseDir(), logConfig.Target)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	l := new(simpleLogger)
	l.file = file
	l.queue = make(chan string, 256)
	l.done = make(chan struct{})
	go l.saver(int(logConfig.BufLen))
	return l, nil
}

func (l *simpleLogger) Logf(f string, v ...any) {
	s := fmt.Sprintf(f, v...)
	if s == "" {
		return
	}
	select {
	case l.queue <- s:
	default: // saver is behind
		l.dropped.Add(1)
	}
}

// Close flushes pending lines and closes the file. Logf must not be called after Close.
func (l *simpleLogger) Close() {
	close(l.queue)
	<-l.done
}

func (l *simpleLogger) saver(bufLen int) { // runner
	writer := bufio.NewWriterSize(l.file, bufLen)
	for s := range l.queue {
		writer.WriteString(s)
		if len(l.queue) == 0 { // idle, so flush
			l.reportDropped(writer)
			writer.Flush()
		}
	}
	l.reportDropped(writer)
	writer.Flush()
	l.file.Close()
	close(l.done)
}

func (l *simpleLogger) reportDropped(writer *bufio.Writer) {
	if n := l.dropped.Swap(0); n > 0 {
		fmt.Fprintf(writer, "[simple] %d lines dropped\n", n)
	}
}
