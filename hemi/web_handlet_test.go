// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Handlet tests.

package hemi

import (
	"strings"
	"testing"
)

func TestStaticSplitPath(t *testing.T) {
	tests := []struct {
		path string
		file string
		ext  string
		ok   bool
	}{
		{"/", "/index.html", "html", true},
		{"/a.txt", "/a.txt", "txt", true},
		{"/A.TXT", "/A.TXT", "txt", true},
		{"/a/b/c.tar.gz", "/a/b/c.tar.gz", "gz", true},
		{"/docs", "/docs/index.html", "html", true},
		{"/docs/", "/docs/index.html", "html", true},
		{"/my-page_2.html", "/my-page_2.html", "html", true},
		{"/a/b-c/", "/a/b-c/index.html", "html", true},
		{"", "", "", false},
		{"a.txt", "", "", false},
		{"//a.txt", "", "", false},
		{"/../a.txt", "", "", false},
		{"/.hidden", "", "", false},
		{"/a..txt", "", "", false},
		{"/a.", "", "", false},
		{"/a-", "", "", false},
		{"/a--b", "", "", false},
		{"/-a", "", "", false},
		{"/a b", "", "", false},
		{"/a%20b", "", "", false},
		{"/a.txt/", "/a.txt/index.html", "html", true},
		{"/\xe4", "", "", false},
	}
	for idx, test := range tests {
		file, ext, ok := staticSplitPath(test.path)
		if ok != test.ok || file != test.file || ext != test.ext {
			t.Errorf("#%d %q: file=%q ext=%q ok=%v", idx, test.path, file, ext, ok)
		}
	}
}

func TestStaticMakeETag(t *testing.T) {
	if etag := string(staticMakeETag(123, 1436360646, 13)); etag != `"123-1436360646-13"` {
		t.Errorf("etag=%s", etag)
	}
	tags, ok := decodeETags(staticMakeETag(1, 2, 3))
	if !ok || len(tags) != 1 || tags[0].weak {
		t.Errorf("tags=%v ok=%v", tags, ok)
	}
}

func TestSendError(t *testing.T) {
	tests := []struct {
		status   int16
		method   string
		expect   int16
		close    bool
		contains string
	}{
		{StatusBadRequest, "GET", 400, true, "could not understand"},
		{StatusNotFound, "GET", 404, false, "The requested URL /&lt;x&gt; was not found"},
		{StatusMethodNotAllowed, "DELETE", 405, false, "method DELETE is not allowed for the URL /&lt;x&gt;"},
		{StatusRequestTimeout, "GET", 408, true, "timeout"},
		{StatusLengthRequired, "POST", 411, true, "method POST requires"},
		{StatusPreconditionFailed, "GET", 412, false, "evaluated to false"},
		{StatusContentTooLarge, "GET", 413, true, "data with GET requests"},
		{StatusUnsupportedMediaType, "POST", 415, true, "not in a format"},
		{StatusInternalServerError, "GET", 500, false, "internal error"},
		{418, "GET", 500, false, "<h1>Internal Server Error</h1>"},
	}
	for idx, test := range tests {
		req := newTestRequest(test.method)
		req.setLine([]byte(test.method), []byte("/<x>"), []byte(stringHTTP1_1))
		resp := new(Response)
		resp.onUse(req)
		resp.SetHeader("X-Before", "1")
		resp.SendError(test.status)
		if resp.status != test.expect {
			t.Errorf("#%d: status=%d", idx, resp.status)
		}
		if resp.header.Has("x-before") {
			t.Errorf("#%d: fields set before are kept", idx)
		}
		if close := resp.header.Get(fieldConnection) == stringClose; close != test.close {
			t.Errorf("#%d: close=%v", idx, close)
		}
		if resp.header.Get(fieldContentType) != string(bytesTypeHTMLUTF8) {
			t.Errorf("#%d: content-type=%s", idx, resp.header.Get(fieldContentType))
		}
		page := string(resp.body)
		if !strings.Contains(page, test.contains) || !strings.Contains(page, "<title>"+httpStatusLine(test.expect)+"</title>") {
			t.Errorf("#%d: page=%q", idx, page)
		}
		if resp.contentLength != int64(len(resp.body)) {
			t.Errorf("#%d: contentLength=%d", idx, resp.contentLength)
		}
	}
}

func TestSendNotModified(t *testing.T) {
	resp := newTestResponse("GET", StatusOK, fieldETag, `"x"`)
	resp.SetText("body")
	resp.SendNotModified()
	if resp.status != StatusNotModified || resp.body != nil || resp.header.Get(fieldETag) != `"x"` {
		t.Errorf("status=%d body=%q header=%v", resp.status, resp.body, resp.header)
	}
}

// testMethods records which method handle is called.
type testMethods struct {
	Handlet_
	called string
}

func (h *testMethods) Handle(req *Request, resp *Response) (handled bool) {
	h.Dispatch(h, req, resp)
	return true
}
func (h *testMethods) GET(req *Request, resp *Response) { h.called = "GET" }

func TestHandletDispatch(t *testing.T) {
	tests := []struct {
		method string
		called string
		status int16
	}{
		{"GET", "GET", 500},
		{"HEAD", "GET", 500},
		{"POST", "", StatusMethodNotAllowed},
		{"PUT", "", StatusMethodNotAllowed},
		{"DELETE", "", StatusMethodNotAllowed},
		{"BREW", "", StatusMethodNotAllowed},
	}
	for idx, test := range tests {
		h := new(testMethods)
		resp := newTestResponse(test.method, 500)
		h.Handle(resp.request, resp)
		if h.called != test.called || resp.status != test.status {
			t.Errorf("#%d: called=%q status=%d", idx, h.called, resp.status)
		}
	}
}

func TestEchoHandlet(t *testing.T) {
	h := new(echoHandlet)
	h.onCreate("echo", nil)
	req := newTestRequest("POST")
	req.setLine([]byte("POST"), []byte(`/test?q="<b>"`), []byte(stringHTTP1_1))
	req.body = []byte("1 < 2 & 3 > 2")
	resp := new(Response)
	resp.onUse(req)
	h.Handle(req, resp)
	page := string(resp.body)
	if resp.status != StatusOK || !strings.Contains(page, "URI /test?q=&quot;&lt;b&gt;&quot;.") || !strings.Contains(page, "<pre>1 &lt; 2 &amp; 3 &gt; 2</pre>") {
		t.Errorf("status=%d page=%q", resp.status, page)
	}
	req.setLine([]byte("GET"), []byte("/test"), []byte(stringHTTP1_1))
	resp.onUse(req)
	h.Handle(req, resp)
	if strings.Contains(string(resp.body), "<pre>") {
		t.Errorf("GET page has content: %q", resp.body)
	}
}

func TestHandletRegistry(t *testing.T) {
	for _, sign := range []string{"static", "echo"} {
		if !handletRegistered(sign) {
			t.Errorf("%s is not registered", sign)
		}
	}
	if handletRegistered("missing") || createHandlet("missing", "x", nil) != nil {
		t.Error("unknown handlet is created")
	}
}

func TestWebappRouteBeforePrepare(t *testing.T) {
	server := new(HTTPServer)
	server.onCreate("http", nil)
	h := new(testMethods)
	server.Webapp().Route("/test", h)
	server.Webapp().Route("/m", h)
	server.OnConfigure()
	server.OnPrepare()
	routes := server.Webapp().routes
	if routes["/test"] != Handlet(h) || routes["/m"] != Handlet(h) {
		t.Errorf("routes=%v", routes)
	}
	req := newTestRequest("GET")
	req.setLine([]byte("GET"), []byte("/m"), []byte(stringHTTP1_1))
	resp := new(Response)
	resp.onUse(req)
	server.Webapp().dispatch(req, resp)
	if h.called != "GET" {
		t.Errorf("called=%q", h.called)
	}
}
