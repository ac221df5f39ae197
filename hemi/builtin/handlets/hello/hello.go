// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Hello handlets greet clients. They show how handlets are written outside of the engine.

package hello

import (
	. "github.com/diogin/tinox/hemi"
)

func init() {
	RegisterHandlet("hello", func(name string, webapp *Webapp) Handlet {
		h := new(helloHandlet)
		h.onCreate(name, webapp)
		return h
	})
}

// helloHandlet
type helloHandlet struct {
	// Parent
	Handlet_
	// States
	greeting string
}

func (h *helloHandlet) onCreate(name string, webapp *Webapp) {
	h.Handlet_.OnCreate(name, webapp)
	h.greeting = "hello, world\n"
}

func (h *helloHandlet) Handle(req *Request, resp *Response) (handled bool) {
	h.Dispatch(h, req, resp)
	return true
}

func (h *helloHandlet) GET(req *Request, resp *Response) {
	resp.SetStatus(StatusOK)
	resp.SetHeader("Content-Type", "text/plain; charset=UTF-8")
	resp.SetText(h.greeting)
}
func (h *helloHandlet) POST(req *Request, resp *Response) {
	resp.SetStatus(StatusOK)
	resp.SetHeader("Content-Type", "text/plain; charset=UTF-8")
	resp.SetText("hello, " + string(req.Body()) + "\n")
}
