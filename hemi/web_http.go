// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// HTTP request and response for HTTP/1.x servers.

package hemi

import (
	"bytes"
	"os"
	"strconv"
	"strings"
	"time"
)

// Request is the request received by a server1Conn.
type Request struct {
	// States (non-zeros)
	header        Header // lower-cased names
	contentLength int64  // -1 if no content
	// States (zeros)
	method      string // GET, POST, ...
	methodCode  uint32 // MethodGET, MethodPOST, ...
	uri         string // the request-target
	path        string // uri without query
	version     string // HTTP/1.0, HTTP/1.1, ...
	versionCode uint8  // Version1_0, Version1_1
	body        []byte // received content
}

func (r *Request) onUse() {
	if r.header == nil {
		r.header = make(Header)
	}
	r.contentLength = -1
}
func (r *Request) onEnd() {
	r.header.reset()
	r.contentLength = -1
	r.method, r.methodCode = "", 0
	r.uri, r.path = "", ""
	r.version, r.versionCode = "", 0
	r.body = nil
}

// setLine sets fields from a decoded request-line.
func (r *Request) setLine(method []byte, uri []byte, version []byte) {
	r.method = string(method)
	r.methodCode = httpMethodCode(r.method)
	r.uri = string(uri)
	if i := strings.IndexByte(r.uri, '?'); i >= 0 {
		r.path = r.uri[:i]
	} else {
		r.path = r.uri
	}
	r.version = string(version)
	r.versionCode = httpVersionCode(r.version)
}

func (r *Request) Method() string       { return r.method }
func (r *Request) MethodCode() uint32   { return r.methodCode }
func (r *Request) IsGET() bool          { return r.methodCode == MethodGET }
func (r *Request) IsHEAD() bool         { return r.methodCode == MethodHEAD }
func (r *Request) IsPOST() bool         { return r.methodCode == MethodPOST }
func (r *Request) IsPUT() bool          { return r.methodCode == MethodPUT }
func (r *Request) URI() string          { return r.uri }
func (r *Request) Path() string         { return r.path }
func (r *Request) Version() string      { return r.version }
func (r *Request) VersionCode() uint8   { return r.versionCode }
func (r *Request) Header() Header       { return r.header }
func (r *Request) H(name string) string { return r.header.Get(name) }
func (r *Request) ContentLength() int64 { return r.contentLength }
func (r *Request) Body() []byte         { return r.body }
func (r *Request) HasBody() bool        { return r.contentLength >= 0 }
func (r *Request) lineParsed() bool     { return r.method != "" }
func (r *Request) wantsKeepalive() bool { return r.header.hasToken(fieldConnection, stringKeepAlive) }
func (r *Request) wantsClose() bool     { return r.header.hasToken(fieldConnection, stringClose) }
func (r *Request) hostMissing() bool    { return r.versionCode >= Version1_1 && !r.header.Has(fieldHost) }

// EvalPreconditions evaluates conditional fields against the representation's mtime (unix seconds) and etag.
// It returns StatusOK, StatusNotModified, or StatusPreconditionFailed. An empty etag means there is no etag.
func (r *Request) EvalPreconditions(mtime int64, tag []byte) (status int16) {
	current := etag{opaque: string(tag)}
	if bytes.HasPrefix(tag, []byte("W/")) {
		current.weak, current.opaque = true, string(tag[2:])
	}
	// RFC 9110 (section 13.2.2):
	if value, ok := r.header[fieldIfMatch]; ok { // if-match is present
		if !_evalIfMatch(value, current) {
			return StatusPreconditionFailed
		}
	} else if value, ok := r.header[fieldIfUnmodifiedSince]; ok { // if-match is not present and if-unmodified-since is present
		if !_evalIfUnmodifiedSince(value, mtime) {
			return StatusPreconditionFailed
		}
	}
	getOrHead := r.methodCode&(MethodGET|MethodHEAD) != 0
	if value, ok := r.header[fieldIfNoneMatch]; ok { // if-none-match is present
		if !_evalIfNoneMatch(value, current) {
			if getOrHead {
				return StatusNotModified
			} else {
				return StatusPreconditionFailed
			}
		}
	} else if value, ok := r.header[fieldIfModifiedSince]; ok && getOrHead { // if-none-match is not present and if-modified-since is present
		if !_evalIfModifiedSince(value, mtime) {
			return StatusNotModified
		}
	}
	return StatusOK
}
func _evalIfMatch(value string, current etag) (pass bool) {
	tags, ok := decodeETags([]byte(value))
	if !ok { // malformed, ignored
		return true
	}
	for _, tag := range tags {
		if tag.opaque == "*" {
			// If the field value is "*", the condition is true if the origin server has a current representation for the target resource.
			return current.opaque != ""
		}
		if tag.equalStrong(current) {
			return true
		}
	}
	return false
}
func _evalIfNoneMatch(value string, current etag) (pass bool) {
	tags, ok := decodeETags([]byte(value))
	if !ok { // malformed, ignored
		return true
	}
	for _, tag := range tags {
		if tag.opaque == "*" {
			// If the field value is "*", the condition is false if the origin server has a current representation for the target resource.
			return current.opaque == ""
		}
		if tag.equalWeak(current) {
			return false
		}
	}
	return true
}
func _evalIfModifiedSince(value string, mtime int64) (pass bool) {
	since, ok := clockParseHTTPDate([]byte(value))
	if !ok { // invalid date, ignored
		return true
	}
	// If the selected representation's last modification date is earlier than or equal to the date provided in the field value, the condition is false.
	return mtime > since
}
func _evalIfUnmodifiedSince(value string, mtime int64) (pass bool) {
	since, ok := clockParseHTTPDate([]byte(value))
	if !ok {
		return true
	}
	// If the selected representation's last modification date is earlier than or equal to the date provided in the field value, the condition is true.
	return mtime <= since
}

// Response is the response sent by a server1Conn.
type Response struct {
	// Assocs
	request *Request // the request this response answers
	// States (non-zeros)
	version       string // HTTP/1.0, HTTP/1.1
	status        int16  // 200, 404, ...
	header        Header // lower-cased names
	contentLength int64  // size of content. after sending, number of content bytes sent
	// States (zeros)
	body      []byte   // content in memory
	bodyFile  *os.File // content in file
	bodySize  int64    // size of bodyFile
	chunked   bool     // send content with chunked transfer coding?
	hasBody   bool     // send content at all?
	chunkSize int64    // size of current chunk
}

func (r *Response) onUse(request *Request) {
	r.request = request
	r.version = stringHTTP1_1
	r.status = StatusInternalServerError
	if r.header == nil {
		r.header = make(Header)
	}
	r.contentLength = -1
}
func (r *Response) onEnd() {
	r.header.reset()
	r.version = stringHTTP1_1
	r.status = StatusInternalServerError
	r.contentLength = -1
	r.body = nil
	if r.bodyFile != nil {
		r.bodyFile.Close()
		r.bodyFile = nil
	}
	r.bodySize = 0
	r.chunked = false
	r.hasBody = false
	r.chunkSize = 0
}

func (r *Response) Request() *Request { return r.request }
func (r *Response) Version() string   { return r.version }
func (r *Response) Status() int16     { return r.status }
func (r *Response) Header() Header    { return r.header }
func (r *Response) Body() []byte      { return r.body }

func (r *Response) SetStatus(status int16)              { r.status = status }
func (r *Response) SetHeader(name string, value string) { r.header.Set(strings.ToLower(name), value) }
func (r *Response) DelHeader(name string)               { r.header.Del(strings.ToLower(name)) }

// SetBody makes body the content and sets content-length.
func (r *Response) SetBody(body []byte) {
	r.body = body
	r.contentLength = int64(len(body))
	r.header.Set(fieldContentLength, strconv.FormatInt(r.contentLength, 10))
}

// SetText is like SetBody but takes a string.
func (r *Response) SetText(text string) { r.SetBody([]byte(text)) }

// SetFile makes an opened file of size bytes the content. The response takes ownership of file.
// File content is always sent with content-length.
func (r *Response) SetFile(file *os.File, size int64) {
	if r.bodyFile != nil {
		r.bodyFile.Close()
	}
	r.bodyFile = file
	r.bodySize = size
	r.contentLength = size
	r.header.Set(fieldContentLength, strconv.FormatInt(size, 10))
	r.header.Del(fieldTransferEncoding)
}

// decideTransferEncoding makes transfer-encoding and content-length consistent with each other and with the version.
func (r *Response) decideTransferEncoding() {
	if value, ok := r.header[fieldTransferEncoding]; ok {
		if tokens, ok := decodeTokens([]byte(value), true); !ok || len(tokens) != 1 || tokens[0] != stringChunked {
			r.header.Del(fieldTransferEncoding)
		}
	}
	if value, ok := r.header[fieldContentLength]; ok {
		if status, length := decodeContentLength([]byte(value)); status != StatusOK {
			r.header.Del(fieldContentLength)
		} else {
			r.header.Set(fieldContentLength, strconv.FormatInt(length, 10))
		}
	}
	r.chunked = false
	if httpVersionCode(r.version) < Version1_1 {
		r.header.Del(fieldTransferEncoding)
	} else if r.header.Has(fieldTransferEncoding) {
		r.chunked = true
		r.header.Del(fieldContentLength)
	}
	if !r.header.Has(fieldTransferEncoding) && !r.header.Has(fieldContentLength) {
		r.header.Set(fieldConnection, stringClose)
	}
}

// prepare decides how content is framed and whether it is sent at all.
func (r *Response) prepare() {
	r.decideTransferEncoding()
	r.hasBody = !r.request.IsHEAD() && r.status != StatusNotModified && r.status != StatusNoContent && (r.status < 100 || r.status >= 200)
	if !r.hasBody { // framing fields are never sent without content
		r.chunked = false
		r.header.Del(fieldTransferEncoding)
		r.header.Del(fieldContentLength)
	}
}

// appendHead appends the status-line and fields to dst. date and server are added if absent.
func (r *Response) appendHead(dst []byte, date string, serverName string) []byte {
	if !r.header.Has(fieldDate) {
		r.header.Set(fieldDate, date)
	}
	if !r.header.Has(fieldServer) {
		r.header.Set(fieldServer, serverName)
	}
	dst = append(dst, r.version...)
	dst = append(dst, ' ')
	dst = append(dst, httpStatusLine(r.status)...)
	dst = append(dst, bytesCRLF...)
	for _, name := range r.header.sortedNames() {
		dst = httpAppendCanonicalName(dst, name)
		dst = append(dst, bytesColonSpace...)
		dst = append(dst, r.header[name]...)
		dst = append(dst, bytesCRLF...)
	}
	return append(dst, bytesCRLF...)
}

// wantsClose reports whether the response asks to close the connection.
func (r *Response) wantsClose() bool { return r.header.hasToken(fieldConnection, stringClose) }

// httpAccessLine formats one access log line for a completed response.
//
//	127.0.0.1 - - [02/Jan/2006:15:04:05 -0700] "GET / HTTP/1.1" 200 612
func httpAccessLine(remoteAddr string, req *Request, resp *Response, now time.Time) string {
	line := make([]byte, 0, 128)
	line = append(line, remoteAddr...)
	line = append(line, " - - ["...)
	line = append(line, clockAccessTime(now)...)
	line = append(line, "] "...)
	if req.lineParsed() {
		line = append(line, '"')
		line = httpAppendQuoted(line, req.method)
		line = append(line, ' ')
		line = httpAppendQuoted(line, req.uri)
		line = append(line, ' ')
		line = httpAppendQuoted(line, req.version)
		line = append(line, '"')
	} else {
		line = append(line, '-')
	}
	line = append(line, ' ')
	line = strconv.AppendInt(line, int64(resp.status), 10)
	line = append(line, ' ')
	line = strconv.AppendInt(line, resp.contentLength, 10)
	line = append(line, '\n')
	return string(line)
}

// httpAppendQuoted appends s to dst, escaping octets that are not printable.
func httpAppendQuoted(dst []byte, s string) []byte {
	for i := 0; i < len(s); i++ {
		switch b := s[i]; b {
		case '"':
			dst = append(dst, '\\', '"')
		case '\r':
			dst = append(dst, '\\', 'r')
		case '\n':
			dst = append(dst, '\\', 'n')
		case '\t':
			dst = append(dst, '\\', 't')
		default:
			if b > 0x20 && b < 0x7f {
				dst = append(dst, b)
			} else {
				dst = append(dst, '\\', 'x', hexDigits[b>>4], hexDigits[b&0x0f])
			}
		}
	}
	return dst
}
