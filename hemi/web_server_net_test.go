// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// HTTP server tests over TCP. The reactor runs in its own goroutine.

package hemi

import (
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/valyala/fasthttp"
)

func startTestServer(t *testing.T, configText string) *HTTPServer {
	t.Helper()
	server := newTestServer(t, ".address = \"127.0.0.1:0\"\n"+configText)
	if err := server.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- server.Serve() }()
	t.Cleanup(func() {
		server.Shutdown()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("serve: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("server does not shut down")
		}
	})
	return server
}

func TestServerClient(t *testing.T) {
	server := startTestServer(t, ".maxKeepaliveRequests = 3\n")
	if strings.HasSuffix(server.Address(), ":0") {
		t.Fatalf("address=%s", server.Address())
	}
	base := "http://" + server.Address()
	client := &fasthttp.Client{MaxConnsPerHost: 1}

	for i := 0; i < 7; i++ { // conns are renewed after 3 requests
		status, body, err := client.GetTimeout(nil, base+"/a.txt", 2*time.Second)
		if err != nil {
			t.Fatalf("#%d: get: %v", i, err)
		}
		if status != StatusOK || string(body) != testFileText {
			t.Errorf("#%d: status=%d body=%q", i, status, body)
		}
	}

	req, resp := fasthttp.AcquireRequest(), fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)
	req.SetRequestURI(base + "/test?x=1")
	req.Header.SetMethod("POST")
	req.SetBodyString("a & b")
	if err := client.DoTimeout(req, resp, 2*time.Second); err != nil {
		t.Fatalf("post: %v", err)
	}
	if resp.StatusCode() != StatusOK || !strings.Contains(string(resp.Body()), "<pre>a &amp; b</pre>") {
		t.Errorf("status=%d body=%q", resp.StatusCode(), resp.Body())
	}
	if string(resp.Header.Peek("Server")) != "tinox" || len(resp.Header.Peek("Date")) == 0 {
		t.Errorf("header=%s", resp.Header.String())
	}

	status, _, err := client.GetTimeout(nil, base+"/nothing/here.txt", 2*time.Second)
	if err != nil || status != StatusNotFound {
		t.Errorf("status=%d err=%v", status, err)
	}
}

func TestServerDefersAccept(t *testing.T) {
	server := startTestServer(t, ".maxConns = 2\n")
	dial := func() net.Conn {
		conn, err := net.DialTimeout("tcp", server.Address(), 2*time.Second)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		t.Cleanup(func() { conn.Close() })
		return conn
	}
	c1, c2, c3 := dial(), dial(), dial()
	request := "GET /a.txt HTTP/1.1\r\nHost: a\r\nConnection: close\r\n\r\n"
	if _, err := c3.Write([]byte(request)); err != nil {
		t.Fatal(err)
	}
	c3.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	buf := make([]byte, 1024)
	var netErr net.Error
	if n, err := c3.Read(buf); n != 0 || !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Fatalf("third conn is served when pool is full: n=%d err=%v", n, err)
	}

	c1.Close()
	c3.SetReadDeadline(time.Now().Add(3 * time.Second))
	data, err := io.ReadAll(c3)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(string(data), "HTTP/1.1 200 OK\r\n") || !strings.HasSuffix(string(data), "\r\n\r\n"+testFileText) {
		t.Errorf("data=%q", data)
	}

	if _, err := c2.Write([]byte(request)); err != nil {
		t.Fatal(err)
	}
	c2.SetReadDeadline(time.Now().Add(3 * time.Second))
	if data, err := io.ReadAll(c2); err != nil || !strings.HasPrefix(string(data), "HTTP/1.1 200 OK\r\n") {
		t.Errorf("data=%q err=%v", data, err)
	}
}

func TestServerTeardown(t *testing.T) {
	server := startTestServer(t, "")
	conn, err := net.DialTimeout("tcp", server.Address(), 2*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	// bad request with more data behind. the server must not reset the conn before the response is read
	request := "GET / HTTP/1.1\r\n\r\n" + strings.Repeat("x", 100000)
	go conn.Write([]byte(request))
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	data, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(string(data), "HTTP/1.1 400 Bad Request\r\n") || !strings.Contains(string(data), "Connection: close\r\n") {
		t.Errorf("data=%q", data)
	}
}
