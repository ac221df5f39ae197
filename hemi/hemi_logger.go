// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Loggers write access logs and error logs.

package hemi

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// Logger
type Logger interface {
	Logf(f string, v ...any)
	Close()
}

// LogConfig
type LogConfig struct {
	Target string // "/path/to/file.log", ...
	BufLen int32  // size of log buffer
}

var loggerCreators = xsync.NewMapOf[string, func(logConfig *LogConfig) Logger]() // indexed by loggerSign

func RegisterLogger(loggerSign string, create func(logConfig *LogConfig) Logger) {
	if _, loaded := loggerCreators.LoadOrStore(loggerSign, create); loaded {
		BugExitln("logger conflicts")
	}
}
func loggerRegistered(loggerSign string) bool {
	_, ok := loggerCreators.Load(loggerSign)
	return ok
}
func createLogger(loggerSign string, logConfig *LogConfig) Logger {
	if create, ok := loggerCreators.Load(loggerSign); ok {
		return create(logConfig)
	}
	return nil
}

func init() {
	RegisterLogger("noop", func(logConfig *LogConfig) Logger {
		return noopLogger{}
	})
	RegisterLogger("console", func(logConfig *LogConfig) Logger {
		return new(consoleLogger)
	})
}

// noopLogger
type noopLogger struct{}

func (noopLogger) Logf(f string, v ...any) {}

func (noopLogger) Close() {}

// consoleLogger writes lines to stdout.
type consoleLogger struct {
	lock sync.Mutex
}

func (l *consoleLogger) Logf(f string, v ...any) {
	l.lock.Lock()
	fmt.Fprintf(os.Stdout, f, v...)
	l.lock.Unlock()
}

func (l *consoleLogger) Close() {}

// _errorLogger_ is a mixin.
type _errorLogger_ struct { // for HTTPServer
	// States
	useErrorLogger string    // "console", "simple", ...
	errorLogConfig LogConfig // used to configure error logger
	errorLogger    Logger    // the logger
}

func (l *_errorLogger_) onConfigure(comp Component) {
	// .useErrorLogger
	comp.ConfigureString("useErrorLogger", &l.useErrorLogger, func(value string) error {
		if loggerRegistered(value) {
			return nil
		}
		return errors.New(".useErrorLogger has an unknown value")
	}, "console")

	// .errorLogConfig
	_configureLogConfig(comp, "errorLogConfig", &l.errorLogConfig)
}
func (l *_errorLogger_) onPrepare(comp Component) {
	logger := createLogger(l.useErrorLogger, &l.errorLogConfig)
	if logger == nil {
		UseExitln("cannot create error logger")
	}
	l.errorLogger = logger
}

// logError writes "[Mon Jan _2 15:04:05 2006] [error] what: err".
func (l *_errorLogger_) logError(what string, err error) {
	l.errorLogger.Logf("[%s] [error] %s: %v\n", clockErrorTime(time.Now()), what, err)
}

// logInfo writes "[Mon Jan _2 15:04:05 2006] [info] what".
func (l *_errorLogger_) logInfo(what string) {
	l.errorLogger.Logf("[%s] [info] %s\n", clockErrorTime(time.Now()), what)
}

func (l *_errorLogger_) closeErrorLog() { l.errorLogger.Close() }

func _configureLogConfig(comp Component, name string, logConfig *LogConfig) {
	v, ok := comp.Find(name)
	if !ok {
		logConfig.BufLen = _4K
		return
	}
	vLogConfig, ok := v.Dict()
	if !ok {
		UseExitln("." + name + " must be a dict")
	}
	// target
	vTarget, ok := vLogConfig["target"]
	if !ok {
		UseExitln("target is required in ." + name)
	}
	if target, ok := vTarget.String(); ok {
		logConfig.Target = target
	} else {
		UseExitln("target in ." + name + " must be a string")
	}
	// bufLen
	if vBufLen, ok := vLogConfig["bufLen"]; ok {
		if bufLen, ok := vBufLen.Int32(); ok && bufLen >= _1K {
			logConfig.BufLen = bufLen
		} else {
			UseExitln("invalid bufLen in ." + name)
		}
	} else {
		logConfig.BufLen = _4K
	}
}
