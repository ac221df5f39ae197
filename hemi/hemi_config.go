// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Configuration text, values, and the component base that reads them.

package hemi

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Component is the interface for all configurable components.
type Component interface {
	Name() string
	Find(name string) (value Value, ok bool)

	ConfigureBool(name string, prop *bool, defaultValue bool)
	ConfigureInt64(name string, prop *int64, check func(value int64) error, defaultValue int64)
	ConfigureInt32(name string, prop *int32, check func(value int32) error, defaultValue int32)
	ConfigureString(name string, prop *string, check func(value string) error, defaultValue string)
	ConfigureDuration(name string, prop *time.Duration, check func(value time.Duration) error, defaultValue time.Duration)
}

// Component_ is the parent for all components.
type Component_ struct {
	// States
	name     string           // http, ...
	props    map[string]Value // name1=value1, ...
	ShutChan chan struct{}    // used to notify shutdown
}

func (c *Component_) MakeComp(name string, props map[string]Value) {
	c.name = name
	if props == nil {
		props = make(map[string]Value)
	}
	c.props = props
	c.ShutChan = make(chan struct{})
}
func (c *Component_) Name() string { return c.name }

func (c *Component_) Find(name string) (value Value, ok bool) {
	value, ok = c.props[name]
	return
}

func (c *Component_) ConfigureBool(name string, prop *bool, defaultValue bool) {
	_configureProp(c, name, prop, (*Value).Bool, nil, defaultValue)
}
func (c *Component_) ConfigureInt64(name string, prop *int64, check func(value int64) error, defaultValue int64) {
	_configureProp(c, name, prop, (*Value).Int64, check, defaultValue)
}
func (c *Component_) ConfigureInt32(name string, prop *int32, check func(value int32) error, defaultValue int32) {
	_configureProp(c, name, prop, (*Value).Int32, check, defaultValue)
}
func (c *Component_) ConfigureString(name string, prop *string, check func(value string) error, defaultValue string) {
	_configureProp(c, name, prop, (*Value).String, check, defaultValue)
}
func (c *Component_) ConfigureDuration(name string, prop *time.Duration, check func(value time.Duration) error, defaultValue time.Duration) {
	_configureProp(c, name, prop, (*Value).Duration, check, defaultValue)
}
func _configureProp[T any](c *Component_, name string, prop *T, conv func(*Value) (T, bool), check func(value T) error, defaultValue T) {
	if v, ok := c.Find(name); ok {
		if value, ok := conv(&v); ok && check == nil {
			*prop = value
		} else if ok && check != nil {
			if err := check(value); err == nil {
				*prop = value
			} else {
				UseExitln(fmt.Sprintf("%s is error in %s: %s", name, c.name, err.Error()))
			}
		} else {
			UseExitln(fmt.Sprintf("invalid %s in %s", name, c.name))
		}
	} else {
		*prop = defaultValue
	}
}

// LoopRun calls callback every interval until ShutChan is closed.
func (c *Component_) LoopRun(interval time.Duration, callback func(now time.Time)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ShutChan:
			return
		case now := <-ticker.C:
			callback(now)
		}
	}
}

const ( // value kinds
	valueBool = 1 + iota
	valueInteger
	valueString
	valueDuration
	valueDict
)

// Value is a value of a property in config text.
type Value struct {
	kind  int16 // valueXXX
	value any   // bools, integers, strings, durations, and dicts
}

func (v *Value) IsBool() bool     { return v.kind == valueBool }
func (v *Value) IsInteger() bool  { return v.kind == valueInteger }
func (v *Value) IsString() bool   { return v.kind == valueString }
func (v *Value) IsDuration() bool { return v.kind == valueDuration }
func (v *Value) IsDict() bool     { return v.kind == valueDict }

func (v *Value) Bool() (b bool, ok bool) {
	b, ok = v.value.(bool)
	return
}
func (v *Value) Int64() (i64 int64, ok bool) {
	i64, ok = v.value.(int64)
	return
}
func (v *Value) Int32() (i32 int32, ok bool) {
	i64, ok := v.Int64()
	i32 = int32(i64)
	if ok && int64(i32) != i64 {
		ok = false
	}
	return
}
func (v *Value) String() (s string, ok bool) {
	s, ok = v.value.(string)
	return
}
func (v *Value) Duration() (d time.Duration, ok bool) {
	d, ok = v.value.(time.Duration)
	return
}
func (v *Value) Dict() (dict map[string]Value, ok bool) {
	dict, ok = v.value.(map[string]Value)
	return
}

// configurator parses config text into properties.
//
//	# comment
//	// comment
//	.address = ":10080"
//	.maxConns = 100
//	.bufferSize = 16K
//	.idleTimeout = 60s
//	.logConfig = ["target": "logs/access.log", "bufLen": 4K]
type configurator struct {
	// States
	text  string           // the config text
	index int              // current position in text
	line  int              // current line number
	props map[string]Value // parsed properties
}

func (c *configurator) parse(text string) (err error) {
	defer func() {
		if x := recover(); x != nil {
			if e, ok := x.(error); ok {
				err = e
			} else {
				panic(x)
			}
		}
	}()
	c.text, c.index, c.line = text, 0, 1
	c.props = make(map[string]Value)
	for {
		c.skipBlanks()
		if c.index == len(c.text) {
			return nil
		}
		if c.text[c.index] != '.' {
			c.fail("expect a .property")
		}
		c.index++
		name := c.scanName()
		c.skipBlanks()
		c.expect('=')
		c.skipBlanks()
		c.props[name] = c.scanValue()
	}
}

func (c *configurator) scanValue() Value {
	if c.index == len(c.text) {
		c.fail("expect a value")
	}
	switch b := c.text[c.index]; {
	case b == '"':
		return Value{valueString, c.scanString()}
	case b == '[':
		return c.scanDict()
	case byteIsDigit(b):
		return c.scanNumber()
	case byteIsAlpha(b):
		word := c.scanName()
		if word == "true" || word == "false" {
			return Value{valueBool, word == "true"}
		}
		c.fail("unknown word " + word)
	}
	c.fail("expect a value")
	return Value{}
}
func (c *configurator) scanDict() Value { // ["k1": v1, "k2": v2]
	c.index++ // [
	dict := make(map[string]Value)
	for {
		c.skipBlanks()
		if c.index < len(c.text) && c.text[c.index] == ']' {
			c.index++
			return Value{valueDict, dict}
		}
		if c.index == len(c.text) || c.text[c.index] != '"' {
			c.fail("expect a string key in dict")
		}
		key := c.scanString()
		c.skipBlanks()
		c.expect(':')
		c.skipBlanks()
		dict[key] = c.scanValue()
		c.skipBlanks()
		if c.index < len(c.text) && c.text[c.index] == ',' {
			c.index++
		}
	}
}
func (c *configurator) scanString() string {
	c.index++ // "
	var sb strings.Builder
	for c.index < len(c.text) {
		b := c.text[c.index]
		c.index++
		switch b {
		case '"':
			return sb.String()
		case '\\':
			if c.index == len(c.text) {
				c.fail("unterminated string")
			}
			sb.WriteByte(c.text[c.index])
			c.index++
		case '\n':
			c.fail("newline in string")
		default:
			sb.WriteByte(b)
		}
	}
	c.fail("unterminated string")
	return ""
}
func (c *configurator) scanNumber() Value {
	from := c.index
	for c.index < len(c.text) && byteIsDigit(c.text[c.index]) {
		c.index++
	}
	n, err := strconv.ParseInt(c.text[from:c.index], 10, 64)
	if err != nil {
		c.fail("bad integer " + c.text[from:c.index])
	}
	if c.index == len(c.text) {
		return Value{valueInteger, n}
	}
	switch c.text[c.index] {
	case 'K':
		c.index++
		return Value{valueInteger, n * K}
	case 'M':
		c.index++
		return Value{valueInteger, n * M}
	case 'G':
		c.index++
		return Value{valueInteger, n * G}
	case 's':
		c.index++
		return Value{valueDuration, time.Duration(n) * time.Second}
	case 'h':
		c.index++
		return Value{valueDuration, time.Duration(n) * time.Hour}
	case 'd':
		c.index++
		return Value{valueDuration, time.Duration(n) * 24 * time.Hour}
	case 'm':
		c.index++
		if c.index < len(c.text) && c.text[c.index] == 's' {
			c.index++
			return Value{valueDuration, time.Duration(n) * time.Millisecond}
		}
		return Value{valueDuration, time.Duration(n) * time.Minute}
	}
	return Value{valueInteger, n}
}
func (c *configurator) scanName() string {
	from := c.index
	for c.index < len(c.text) && (byteIsAlpha(c.text[c.index]) || byteIsDigit(c.text[c.index])) {
		c.index++
	}
	if c.index == from {
		c.fail("expect a name")
	}
	return c.text[from:c.index]
}
func (c *configurator) skipBlanks() {
	for c.index < len(c.text) {
		switch b := c.text[c.index]; b {
		case ' ', '\t', '\r':
			c.index++
		case '\n':
			c.line++
			c.index++
		case '#':
			c.skipLine()
		case '/':
			if c.index+1 < len(c.text) && c.text[c.index+1] == '/' {
				c.skipLine()
			} else {
				return
			}
		default:
			return
		}
	}
}
func (c *configurator) skipLine() {
	if i := strings.IndexByte(c.text[c.index:], '\n'); i == -1 {
		c.index = len(c.text)
	} else {
		c.index += i
	}
}
func (c *configurator) expect(b byte) {
	if c.index == len(c.text) || c.text[c.index] != b {
		c.fail(fmt.Sprintf("expect '%c'", b))
	}
	c.index++
}
func (c *configurator) fail(reason string) {
	panic(fmt.Errorf("configurator error: %s in line %d", reason, c.line))
}

func byteIsAlpha(b byte) bool { return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' }
func byteIsDigit(b byte) bool { return b >= '0' && b <= '9' }
