// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package hello

import (
	"io"
	"net"
	"strings"
	"testing"
	"time"

	. "github.com/diogin/tinox/hemi"
)

func TestHelloHandlet(t *testing.T) {
	server, err := ServerFromText(`
.address = "127.0.0.1:0"
.useLogger = "noop"
.useErrorLogger = "noop"
.webRoot = "` + t.TempDir() + `"
.routes = ["/hello": "hello", "/test": "echo"]
`)
	if err != nil {
		t.Fatal(err)
	}
	if err := server.Open(); err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() { done <- server.Serve() }()
	defer func() {
		server.Shutdown()
		<-done
	}()

	tests := []struct {
		request string
		expect  string
	}{
		{"GET /hello HTTP/1.1\r\nHost: a\r\nConnection: close\r\n\r\n", "\r\n\r\nhello, world\n"},
		{"POST /hello HTTP/1.1\r\nHost: a\r\nConnection: close\r\nContent-Length: 5\r\n\r\ntinox", "\r\n\r\nhello, tinox\n"},
		{"PUT /hello HTTP/1.1\r\nHost: a\r\nConnection: close\r\n\r\n", "405 Method Not Allowed"},
	}
	for idx, test := range tests {
		conn, err := net.DialTimeout("tcp", server.Address(), 2*time.Second)
		if err != nil {
			t.Fatal(err)
		}
		conn.SetDeadline(time.Now().Add(3 * time.Second))
		conn.Write([]byte(test.request))
		data, err := io.ReadAll(conn)
		conn.Close()
		if err != nil || !strings.Contains(string(data), test.expect) {
			t.Errorf("#%d: data=%q err=%v", idx, data, err)
		}
	}
}
