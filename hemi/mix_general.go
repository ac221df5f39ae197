// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// General types and elements for net and web.

package hemi

import (
	"errors"
	"sync"
)

// _accessLogger_ is a mixin.
type _accessLogger_ struct { // for HTTPServer
	// States
	useLogger string    // "noop", "console", "simple", ...
	logConfig LogConfig // used to configure logger
	logger    Logger    // the logger
}

func (l *_accessLogger_) onConfigure(comp Component) {
	// .useLogger
	comp.ConfigureString("useLogger", &l.useLogger, func(value string) error {
		if loggerRegistered(value) {
			return nil
		}
		return errors.New(".useLogger has an unknown value")
	}, "console")

	// .logConfig
	_configureLogConfig(comp, "logConfig", &l.logConfig)
}
func (l *_accessLogger_) onPrepare(comp Component) {
	logger := createLogger(l.useLogger, &l.logConfig)
	if logger == nil {
		UseExitln("cannot create logger")
	}
	l.logger = logger
}

func (l *_accessLogger_) Logf(f string, v ...any) { l.logger.Logf(f, v...) }

func (l *_accessLogger_) CloseLog() { l.logger.Close() }

const ( // units
	K = 1 << 10
	M = 1 << 20
	G = 1 << 30
)

const ( // sizes
	_1K   = 1 * K    // mostly used by stock buffers
	_4K   = 4 * K    // mostly used by pooled buffers
	_16K  = 16 * K   // mostly used by pooled buffers
	_64K1 = 64*K - 1 // mostly used by pooled buffers

	_1M  = 1 * M
	_2G1 = 2*G - 1 // suitable for max int32 [-2147483648, 2147483647]
)

var ( // pools
	pool4K   sync.Pool
	pool16K  sync.Pool
	pool64K1 sync.Pool
)

func Get4K() []byte   { return getNK(&pool4K, _4K) }
func Get16K() []byte  { return getNK(&pool16K, _16K) }
func Get64K1() []byte { return getNK(&pool64K1, _64K1) }
func GetNK(n int64) []byte {
	if n <= _4K {
		return getNK(&pool4K, _4K)
	} else if n <= _16K {
		return getNK(&pool16K, _16K)
	} else { // n > _16K
		return getNK(&pool64K1, _64K1)
	}
}
func getNK(pool *sync.Pool, size int) []byte {
	if x := pool.Get(); x != nil {
		return x.([]byte)
	}
	return make([]byte, size)
}
func PutNK(p []byte) {
	switch cap(p) {
	case _4K:
		pool4K.Put(p[:_4K])
	case _16K:
		pool16K.Put(p[:_16K])
	case _64K1:
		pool64K1.Put(p[:_64K1])
	default:
		BugExitln("bad buffer")
	}
}

// i64ToDec writes a non-negative i64 into dec in decimal and returns the number of bytes written.
func i64ToDec(i64 int64, dec []byte) int {
	if len(dec) < 19 { // 19 bytes are enough to hold a positive int64
		BugExitln("dec is too small")
	}
	if i64 < 0 {
		BugExitln("negative numbers are not supported")
	}
	n := 1
	for i := i64; i >= 10; i /= 10 {
		n++
	}
	for j := n - 1; j >= 0; j-- {
		dec[j] = byte(i64%10) + '0'
		i64 /= 10
	}
	return n
}

// i64ToHex writes a non-negative i64 into hex in lower-case hexadecimal and returns the number of bytes written.
func i64ToHex(i64 int64, hex []byte) int {
	if len(hex) < 16 {
		BugExitln("hex is too small")
	}
	if i64 < 0 {
		BugExitln("negative numbers are not supported")
	}
	n := 1
	for i := i64; i >= 16; i >>= 4 {
		n++
	}
	for j := n - 1; j >= 0; j-- {
		hex[j] = hexDigits[i64&0xf]
		i64 >>= 4
	}
	return n
}

const hexDigits = "0123456789abcdef"

func byteFromHex(b byte) (n byte, ok bool) {
	if b >= '0' && b <= '9' {
		return b - '0', true
	}
	if b >= 'A' && b <= 'F' {
		return b - 'A' + 10, true
	}
	if b >= 'a' && b <= 'f' {
		return b - 'a' + 10, true
	}
	return 0, false
}
