// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Basic elements of the engine.

package hemi

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const Version = "0.1.0"

var (
	_debugLevel atomic.Int32
	_baseDir    atomic.Value // directory that relative paths are resolved against
	_baseOnce   sync.Once    // protects _baseDir
)

func DebugLevel() int32 { return _debugLevel.Load() }
func BaseDir() string {
	if dir, ok := _baseDir.Load().(string); ok {
		return dir
	}
	return "."
}

func SetDebugLevel(level int32) { _debugLevel.Store(level) }
func SetBaseDir(dir string) { // only once!
	_baseOnce.Do(func() {
		_baseDir.Store(dir)
	})
}

// ServerFromText creates an HTTP server from config text.
func ServerFromText(configText string) (*HTTPServer, error) {
	var c configurator
	if err := c.parse(configText); err != nil {
		return nil, err
	}
	server := new(HTTPServer)
	server.onCreate("http", c.props)
	server.OnConfigure()
	server.OnPrepare()
	return server, nil
}

// ServerFromFile creates an HTTP server from a config file. An empty configFile gives a server with defaults.
func ServerFromFile(configFile string) (*HTTPServer, error) {
	if configFile == "" {
		return ServerFromText("")
	}
	text, err := os.ReadFile(configFile)
	if err != nil {
		return nil, err
	}
	return ServerFromText(string(text))
}

const ( // exit codes
	CodeBug = 20
	CodeUse = 21
	CodeEnv = 22
)

func BugExitln(v ...any)          { _exitln(CodeBug, "[BUG] ", v...) }
func BugExitf(f string, v ...any) { _exitf(CodeBug, "[BUG] ", f, v...) }

func UseExitln(v ...any)          { _exitln(CodeUse, "[USE] ", v...) }
func UseExitf(f string, v ...any) { _exitf(CodeUse, "[USE] ", f, v...) }

func EnvExitln(v ...any)          { _exitln(CodeEnv, "[ENV] ", v...) }
func EnvExitf(f string, v ...any) { _exitf(CodeEnv, "[ENV] ", f, v...) }

func _exitln(exitCode int, prefix string, v ...any) {
	fmt.Fprint(os.Stderr, prefix)
	fmt.Fprintln(os.Stderr, v...)
	os.Exit(exitCode)
}
func _exitf(exitCode int, prefix, f string, v ...any) {
	fmt.Fprintf(os.Stderr, prefix+f, v...)
	os.Exit(exitCode)
}

var _stdoutLock sync.Mutex

// Printf writes debug output to stdout, prefixed with a timestamp.
func Printf(f string, v ...any) {
	_stdoutLock.Lock()
	fmt.Fprintf(os.Stdout, "[%s] ", time.Now().Format("2006-01-02 15:04:05.000"))
	fmt.Fprintf(os.Stdout, f, v...)
	_stdoutLock.Unlock()
}
func Println(v ...any) {
	_stdoutLock.Lock()
	fmt.Fprintf(os.Stdout, "[%s] ", time.Now().Format("2006-01-02 15:04:05.000"))
	fmt.Fprintln(os.Stdout, v...)
	_stdoutLock.Unlock()
}
