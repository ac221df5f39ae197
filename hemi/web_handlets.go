// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Builtin handlets: static serves files under the web root, echo shows the request.

package hemi

import (
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

func init() {
	RegisterHandlet("static", func(name string, webapp *Webapp) Handlet {
		h := new(staticHandlet)
		h.onCreate(name, webapp)
		return h
	})
	RegisterHandlet("echo", func(name string, webapp *Webapp) Handlet {
		h := new(echoHandlet)
		h.onCreate(name, webapp)
		return h
	})
}

// staticHandlet serves regular files under the web root of its webapp.
type staticHandlet struct {
	// Parent
	Handlet_
	// States
	webRoot     string            // root dir for web files
	mimeTypes   map[string]string // ext -> mime type
	defaultType string            // for exts that are not in mimeTypes
}

func (h *staticHandlet) onCreate(name string, webapp *Webapp) {
	h.Handlet_.OnCreate(name, webapp)
	h.webRoot = webapp.WebRoot()
	h.mimeTypes = staticDefaultMimeTypes
	h.defaultType = string(bytesTypePlainUTF8)
}

func (h *staticHandlet) Handle(req *Request, resp *Response) (handled bool) {
	h.Dispatch(h, req, resp)
	return true
}

func (h *staticHandlet) GET(req *Request, resp *Response) {
	file, ext, ok := staticSplitPath(req.path)
	if !ok {
		resp.SendNotFound()
		return
	}
	filePath := h.webRoot + file
	var info unix.Stat_t
	if err := unix.Stat(filePath, &info); err != nil || info.Mode&unix.S_IFMT != unix.S_IFREG {
		resp.SendNotFound()
		return
	}
	mtime, size := int64(info.Mtim.Sec), info.Size
	etag := staticMakeETag(uint64(info.Ino), mtime, size)
	status := req.EvalPreconditions(mtime, etag)
	if status == StatusPreconditionFailed {
		resp.SendPreconditionFailed()
		return
	}
	resp.SetStatus(StatusOK)
	resp.header.Set(fieldContentLength, strconv.FormatInt(size, 10))
	resp.header.Set(fieldContentType, h.mimeType(ext))
	resp.header.Set(fieldETag, string(etag))
	resp.header.Set(fieldLastModified, clockHTTPDate(mtime))
	if status == StatusNotModified {
		resp.SendNotModified()
		return
	}
	if req.IsHEAD() {
		return
	}
	f, err := os.Open(filePath)
	if err != nil {
		resp.SendNotFound()
		return
	}
	resp.SetFile(f, size)
}

func (h *staticHandlet) mimeType(ext string) string {
	if mimeType, ok := h.mimeTypes[ext]; ok {
		return mimeType
	}
	return h.defaultType
}

// staticMakeETag makes "ino-mtime-size".
func staticMakeETag(ino uint64, mtime int64, size int64) []byte {
	etag := make([]byte, 0, 48)
	etag = append(etag, '"')
	etag = strconv.AppendUint(etag, ino, 10)
	etag = append(etag, '-')
	etag = strconv.AppendInt(etag, mtime, 10)
	etag = append(etag, '-')
	etag = strconv.AppendInt(etag, size, 10)
	return append(etag, '"')
}

var staticDefaultMimeTypes = map[string]string{
	"html":  "text/html; charset=UTF-8",
	"css":   "text/css",
	"md":    "text/markdown",
	"jpeg":  "image/jpeg",
	"png":   "image/png",
	"gif":   "image/gif",
	"js":    "application/javascript",
	"json":  "application/json",
	"pdf":   "application/pdf",
	"xml":   "application/xml",
	"xhtml": "application/xhtml+xml",
	"atom":  "application/atom+xml",
	"ico":   "image/vnd.microsoft.icon",
	"txt":   "text/plain; charset=UTF-8",
}

// S1: '/' S2
// S2: alnum S3 A{name}
// S3: alnum S3 A{name} | '/' S2 A{dir} | [-_] S4 A{name} | '.' S5 A{name}
// S4: alnum S3 A{name}
// S5: alnum S6 A{name, ext}
// S6: alnum S6 A{name, ext} | '/' S2 A{dir} | [-_] S7 A{name} | '.' S5 A{name}
// S7: alnum S6 A{name, ext}
//
// Column 0 holds flags of a state: 1 for accepting, 2 for appending to name, 4 for appending to ext.
var staticPathShift = [8][5]int8{
	//  '/' '.' -_ alnum
	{0, 0, 0, 0, 0},
	{0, 2, 0, 0, 0}, // S1
	{1, 0, 0, 0, 3}, // S2
	{3, 2, 5, 4, 3}, // S3
	{2, 0, 0, 0, 3}, // S4
	{2, 0, 0, 0, 6}, // S5
	{7, 2, 5, 7, 6}, // S6
	{6, 0, 0, 0, 6}, // S7
}

// staticSplitPath checks path and maps it to a file under the web root. Paths ending in a directory or in a name
// without extension map to index.html of that directory. ext is lower-cased.
func staticSplitPath(path string) (file string, ext string, ok bool) {
	var dir, name, extBuf []byte
	state := int8(1)
	for i := 0; i < len(path); i++ {
		b := path[i]
		var class int8
		switch {
		case b == '/':
			class = 1
		case b == '.':
			class = 2
		case b == '-' || b == '_':
			class = 3
		case byteIsAlpha(b) || byteIsDigit(b):
			class = 4
		default:
			return "", "", false
		}
		if state = staticPathShift[state][class]; state == 0 {
			return "", "", false
		}
		switch state {
		case 2:
			dir = append(dir, name...)
			dir = append(dir, '/')
			name, extBuf = name[:0], extBuf[:0]
		case 5:
			extBuf = extBuf[:0]
		}
		flags := staticPathShift[state][0]
		if flags&2 != 0 {
			name = append(name, b)
		}
		if flags&4 != 0 {
			extBuf = append(extBuf, lowerTable[b])
		}
	}
	if state == 3 {
		dir = append(dir, name...)
		dir = append(dir, '/')
		state = 2
	}
	if state == 2 {
		name, extBuf = []byte("index.html"), []byte("html")
	}
	if staticPathShift[state][0]&1 == 0 {
		return "", "", false
	}
	return string(dir) + string(name), string(extBuf), true
}

// echoHandlet shows method, uri and content of the request in an HTML page.
type echoHandlet struct {
	// Parent
	Handlet_
}

func (h *echoHandlet) onCreate(name string, webapp *Webapp) {
	h.Handlet_.OnCreate(name, webapp)
}

func (h *echoHandlet) Handle(req *Request, resp *Response) (handled bool) {
	h.Dispatch(h, req, resp)
	return true
}

func (h *echoHandlet) GET(req *Request, resp *Response) {
	h.echo(req, resp, false)
}
func (h *echoHandlet) POST(req *Request, resp *Response) {
	h.echo(req, resp, true)
}

func (h *echoHandlet) echo(req *Request, resp *Response, withBody bool) {
	page := make([]byte, 0, 256+len(req.body))
	page = append(page, "<!DOCTYPE html>\n<html>\n<head>\n<title>test</title>\n</head>\n<body>\n<h1>test</h1>\n"...)
	page = append(page, "<p>method "...)
	page = append(page, htmlEscape(req.method)...)
	page = append(page, " URI "...)
	page = append(page, htmlEscape(req.uri)...)
	page = append(page, ".</p>\n"...)
	if withBody {
		page = append(page, "<pre>"...)
		page = append(page, htmlEscape(string(req.body))...)
		page = append(page, "</pre>\n"...)
	}
	page = append(page, "</body>\n</html>\n"...)
	resp.SetStatus(StatusOK)
	resp.header.Set(fieldContentType, string(bytesTypeHTMLUTF8))
	resp.SetBody(page)
}
