// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// HTTP/1.x server connection. A connection never blocks: each step is a continuation which is resumed when the
// multiplexer reports the socket ready again.

package hemi

import (
	"time"

	"github.com/diogin/tinox/hemi/library/system"

	"golang.org/x/sys/unix"
)

const ( // continuations. *Read ones read input and then resume the parse one at the same offset
	kontRequestLineRead = 1 + iota
	kontRequestHeaderRead
	kontRequestChunkedRead
	kontRequestLengthRead
	kontRequestLine
	kontRequestHeader
	kontRequestChunked
	kontRequestLength
	kontDispatch
	kontResponse
	kontResponseHeader
	kontResponseChunkHeader
	kontResponseChunkBody
	kontResponseChunkCRLF
	kontResponseFile
	kontResponseBody
	kontResponseEnd
	kontTeardown
)

const kontReadToParse = kontRequestLine - kontRequestLineRead

const ( // conn rings. ring heads are also the state of a conn
	connFree = 0
	connBusy = 1

	connFirstID = 2 // ids of real conns start here
)

// server1Conn is a slot in the connection pool of HTTPServer. It is used by the reactor goroutine only.
type server1Conn struct {
	// Assocs
	server *HTTPServer
	// Conn states (controlled)
	id    int32
	prev  int32
	next  int32
	state int8 // connFree, connBusy
	// Conn states (non-zeros)
	handle   int32  // handle id in mplex, -1 if none
	fd       int    // socket, -1 if none
	input    []byte // [rdPos:rdSize] is not consumed yet
	output   []byte // response head, chunk size line, or CRLF. [outPos:] is not sent yet
	kont     int8   // what to do next
	waitMask uint32 // events that kont waits for
	regMask  uint32 // events registered in mplex
	// Conn states (zeros)
	rdPos             int
	rdSize            int
	outPos            int
	bodyPos           int64  // content bytes sent
	bodyEdge          int64  // end of current chunk in content
	ioMask            uint32 // mplexRead or mplexWrite, the last io
	ioResult          int    // result of the last io
	ioErr             error  // error of the last io
	keepaliveRequests int32
	remoteAddr        string
	request           Request
	response          Response
	lineDecoder       lineDecoder
	headerDecoder     headerDecoder
	chunkDecoder      chunkDecoder
}

func (c *server1Conn) onCreate(id int32, server *HTTPServer) {
	c.server = server
	c.id, c.prev, c.next = id, id, id
	c.handle, c.fd = -1, -1
	c.input = make([]byte, server.bufferSize)
	c.output = make([]byte, 0, server.bufferSize)
	c.headerDecoder.init(server.maxRequestFields, server.maxRequestFieldSize)
	c.request.onUse()
	c.response.onUse(&c.request)
}

// onAccept takes the accepted socket and waits for the request-line.
func (c *server1Conn) onAccept(fd int, remoteAddr string) error {
	handle, err := c.server.mplex.add(mplexRead|mplexEdge, fd, c.id)
	if err != nil {
		return err
	}
	c.handle, c.fd = handle, fd
	c.remoteAddr = remoteAddr
	c.regMask = mplexRead
	c.server.mplex.resetTimer(c.server.deadline(), handle)
	c.clear()
	return nil
}

// clear prepares the conn for its first request.
func (c *server1Conn) clear() {
	c.keepaliveRequests = 0
	c.rdPos, c.rdSize = 0, 0
	c.outPos = 0
	c.bodyPos, c.bodyEdge = 0, 0
	c.output = c.output[:0]
	c.clearExchan()
	c.ioResult, c.ioErr = 0, nil
	c.iocontinue(mplexRead, kontRequestLineRead)
}

// clearExchan clears the request, the response and the decoders for the next request.
func (c *server1Conn) clearExchan() {
	c.response.onEnd()
	c.request.onEnd()
	c.lineDecoder.reset()
	c.headerDecoder.reset(c.request.header)
	c.chunkDecoder.reset()
}

// onClose releases everything except the slot itself.
func (c *server1Conn) onClose() {
	if c.handle >= 0 {
		c.server.mplex.remove(c.handle)
		c.handle = -1
	}
	if c.fd >= 0 {
		unix.Close(c.fd)
		c.fd = -1
	}
	c.clearExchan()
	c.remoteAddr = ""
	c.ioErr = nil
}

// onEvents handles events reported by mplex. It returns false if the conn must be closed.
func (c *server1Conn) onEvents(events uint32) (alive bool) {
	if events&mplexTimer != 0 { // idle timeout
		if DebugLevel() >= 2 {
			Printf("conn=%d timeout, kont=%d\n", c.id, c.kont)
		}
		return false
	}
	if events&(mplexRead|mplexWrite) == 0 {
		return true
	}
	mplex := c.server.mplex
	n, err := c.iotransfer()
	if n > 0 {
		mplex.resetTimer(c.server.deadline(), c.handle)
		if c.waitMask != c.regMask {
			if err := mplex.modify(c.waitMask|mplexEdge, c.handle); err != nil {
				c.server.logError("modify", err)
				return false
			}
			c.regMask = c.waitMask
		}
		return true
	}
	switch {
	case err == unix.EINTR:
		return true
	case err == unix.EAGAIN:
		mplex.drop(c.ioMask, c.handle)
		return true
	case err == nil: // end of stream
		return false
	case err == unix.EPIPE && c.ioMask == mplexWrite:
		return false
	case c.ioMask == mplexWrite:
		c.server.logError("write", err)
	default:
		c.server.logError("read", err)
	}
	return false
}

func (c *server1Conn) iocontinue(mask uint32, kont int8) (int, error) {
	c.waitMask = mask
	c.kont = kont
	return c.ioResult, nil
}

func (c *server1Conn) read(p []byte) {
	c.ioMask = mplexRead
	c.ioResult, c.ioErr = unix.Read(c.fd, p)
}
func (c *server1Conn) write(p []byte) {
	c.ioMask = mplexWrite
	c.ioResult, c.ioErr = unix.Write(c.fd, p)
}
func (c *server1Conn) sendfile(count int64) {
	c.ioMask = mplexWrite
	c.ioResult, c.ioErr = system.Sendfile(c.fd, int(c.response.bodyFile.Fd()), int(count))
}

// iotransfer runs continuations until one of them suspends, or an io fails or reaches end of stream.
// It returns the result of the last io, with the error if the io failed.
func (c *server1Conn) iotransfer() (int, error) {
	req, resp := &c.request, &c.response
	for {
		if DebugLevel() >= 3 {
			Printf("conn=%d kont=%d\n", c.id, c.kont)
		}
		switch c.kont {
		case kontRequestLineRead, kontRequestHeaderRead, kontRequestChunkedRead, kontRequestLengthRead:
			if c.read(c.input); c.ioResult <= 0 {
				return c.ioResult, c.ioErr
			}
			c.rdPos, c.rdSize = 0, c.ioResult
			c.kont += kontReadToParse
		case kontRequestLine:
			c.rdPos += c.lineDecoder.feed(c.input[c.rdPos:c.rdSize])
			if c.lineDecoder.partial() {
				return c.iocontinue(mplexRead, kontRequestLineRead)
			}
			if c.lineDecoder.bad() {
				c.prepareRequestBody()
				break
			}
			d := &c.lineDecoder
			req.setLine(d.method, d.uri, d.version)
			c.kont = kontRequestHeader
		case kontRequestHeader:
			c.rdPos += c.headerDecoder.feed(c.input[c.rdPos:c.rdSize])
			if c.headerDecoder.partial() {
				return c.iocontinue(mplexRead, kontRequestHeaderRead)
			}
			c.prepareRequestBody()
		case kontRequestChunked:
			c.rdPos += c.chunkDecoder.feed(c.input[c.rdPos:c.rdSize])
			if c.chunkDecoder.partial() {
				return c.iocontinue(mplexRead, kontRequestChunkedRead)
			}
			c.finalizeRequestChunked()
		case kontRequestLength:
			n := int64(c.rdSize - c.rdPos)
			if left := req.contentLength - int64(len(req.body)); n > left {
				n = left
			}
			req.body = append(req.body, c.input[c.rdPos:c.rdPos+int(n)]...)
			c.rdPos += int(n)
			if int64(len(req.body)) < req.contentLength {
				return c.iocontinue(mplexRead, kontRequestLengthRead)
			}
			c.kont = kontDispatch
		case kontDispatch:
			c.server.webapp.dispatch(req, resp)
			c.kont = kontResponse
		case kontResponse:
			c.prepareResponse()
			return c.iocontinue(mplexWrite, kontResponseHeader)
		case kontResponseHeader:
			if c.write(c.output[c.outPos:]); c.ioResult <= 0 {
				return c.ioResult, c.ioErr
			}
			if c.outPos += c.ioResult; c.outPos < len(c.output) {
				return c.iocontinue(mplexWrite, kontResponseHeader)
			}
			if c.prepareResponseBody() {
				return c.iocontinue(mplexWrite, c.kont)
			}
			c.kont = kontResponseEnd
		case kontResponseChunkHeader:
			system.SetBuffered(c.fd, true)
			if c.write(c.output[c.outPos:]); c.ioResult <= 0 {
				return c.ioResult, c.ioErr
			}
			if c.outPos += c.ioResult; c.outPos < len(c.output) {
				return c.iocontinue(mplexWrite, kontResponseChunkHeader)
			}
			if resp.chunkSize > 0 {
				c.bodyEdge = c.bodyPos + resp.chunkSize
				return c.iocontinue(mplexWrite, kontResponseChunkBody)
			}
			c.output, c.outPos = append(c.output[:0], bytesCRLF...), 0
			return c.iocontinue(mplexWrite, kontResponseChunkCRLF)
		case kontResponseChunkBody:
			if resp.bodyFile == nil {
				c.write(resp.body[c.bodyPos:c.bodyEdge])
			} else {
				c.sendfile(c.bodyEdge - c.bodyPos)
			}
			if c.ioResult <= 0 {
				return c.ioResult, c.ioErr
			}
			if c.bodyPos += int64(c.ioResult); c.bodyPos < c.bodyEdge {
				return c.iocontinue(mplexWrite, kontResponseChunkBody)
			}
			c.output, c.outPos = append(c.output[:0], bytesCRLF...), 0
			return c.iocontinue(mplexWrite, kontResponseChunkCRLF)
		case kontResponseChunkCRLF:
			if c.write(c.output[c.outPos:]); c.ioResult <= 0 {
				return c.ioResult, c.ioErr
			}
			if c.outPos += c.ioResult; c.outPos < len(c.output) {
				return c.iocontinue(mplexWrite, kontResponseChunkCRLF)
			}
			system.SetBuffered(c.fd, false)
			if resp.chunkSize > 0 {
				c.nextChunk()
				return c.iocontinue(mplexWrite, kontResponseChunkHeader)
			}
			c.kont = kontResponseEnd
		case kontResponseFile: // exactly bodySize bytes, even if the file changed after stat
			if c.bodyPos < resp.bodySize {
				if c.sendfile(min(sendfileCap, resp.bodySize-c.bodyPos)); c.ioResult <= 0 {
					return c.ioResult, c.ioErr // 0 if the file is shorter than content-length
				}
				if c.bodyPos += int64(c.ioResult); c.bodyPos < resp.bodySize {
					return c.iocontinue(mplexWrite, kontResponseFile)
				}
			}
			c.kont = kontResponseEnd
		case kontResponseBody:
			if c.write(resp.body[c.bodyPos:]); c.ioResult <= 0 {
				return c.ioResult, c.ioErr
			}
			if c.bodyPos += int64(c.ioResult); c.bodyPos < int64(len(resp.body)) {
				return c.iocontinue(mplexWrite, kontResponseBody)
			}
			c.kont = kontResponseEnd
		case kontResponseEnd:
			if c.finalizeResponse() {
				system.ShutdownWrite(c.fd)
				return c.iocontinue(mplexRead, kontTeardown)
			}
			c.kont = kontRequestLine
		case kontTeardown:
			// RFC 9112 (section 9.6):
			// To avoid the TCP reset problem, servers typically close a connection
			// in stages. First, the server performs a half-close by closing only
			// the write side of the read/write connection. The server then
			// continues to read from the connection until it receives a
			// corresponding close by the client.
			if c.read(c.input); c.ioResult > 0 {
				return c.iocontinue(mplexRead, kontTeardown)
			}
			return c.ioResult, c.ioErr
		default:
			BugExitln("unknown kont")
		}
	}
}

// prepareRequestBody checks the head of request and decides how to receive its content.
func (c *server1Conn) prepareRequestBody() {
	req, resp := &c.request, &c.response
	c.kont = kontResponse
	if c.lineDecoder.bad() || c.headerDecoder.bad() || req.hostMissing() {
		resp.SendBadRequest()
		return
	}
	if req.versionCode < Version1_1 {
		resp.version = stringHTTP1_0
	} else {
		resp.version = stringHTTP1_1
	}
	if value, ok := req.header[fieldTransferEncoding]; ok {
		tokens, ok := decodeTokens([]byte(value), true)
		if !ok {
			resp.SendBadRequest()
		} else if len(tokens) != 1 || tokens[0] != stringChunked {
			resp.SendUnsupportedMediaType()
		} else {
			c.chunkDecoder.reset()
			c.kont = kontRequestChunked
		}
	} else if value, ok := req.header[fieldContentLength]; ok {
		status, length := decodeContentLength([]byte(value))
		if status == StatusBadRequest {
			resp.SendBadRequest()
		} else if status == StatusContentTooLarge || req.methodCode&(MethodPOST|MethodPUT) == 0 {
			resp.SendContentTooLarge()
		} else {
			req.header.Set(fieldContentLength, i64ToString(length))
			req.contentLength = length
			req.body = make([]byte, 0, min(length, int64(c.server.bufferSize)))
			c.kont = kontRequestLength
		}
	} else {
		c.kont = kontDispatch
	}
}

// finalizeRequestChunked takes the decoded content.
func (c *server1Conn) finalizeRequestChunked() {
	req := &c.request
	if c.chunkDecoder.bad() {
		c.response.SendBadRequest()
		c.kont = kontResponse
		return
	}
	req.body = c.chunkDecoder.body
	req.contentLength = c.chunkDecoder.size
	req.header.Set(fieldContentLength, i64ToString(req.contentLength))
	c.kont = kontDispatch
}

// prepareResponse encodes the response head into output.
func (c *server1Conn) prepareResponse() {
	resp := &c.response
	resp.prepare()
	c.output = resp.appendHead(c.output[:0], c.server.clock.date(), c.server.serverName)
	c.outPos = 0
}

// prepareResponseBody chooses how to send the content. It returns false if there is no content to send.
func (c *server1Conn) prepareResponseBody() bool {
	resp := &c.response
	c.bodyPos, c.bodyEdge = 0, 0
	if !resp.hasBody {
		return false
	}
	if resp.chunked {
		if resp.bodyFile == nil {
			resp.contentLength = int64(len(resp.body))
		} else {
			resp.contentLength = resp.bodySize
		}
		c.nextChunk()
		c.kont = kontResponseChunkHeader
	} else if resp.bodyFile != nil {
		c.kont = kontResponseFile
	} else {
		c.kont = kontResponseBody
	}
	return true
}

// nextChunk puts the size line of the next chunk into output. The last chunk has a size of 0.
func (c *server1Conn) nextChunk() {
	resp := &c.response
	resp.chunkSize = min(resp.contentLength-c.bodyPos, int64(c.server.bufferSize)-16)
	var hex [16]byte
	n := i64ToHex(resp.chunkSize, hex[:])
	c.output = append(c.output[:0], hex[:n]...)
	c.output = append(c.output, bytesCRLF...)
	c.outPos = 0
}

// finalizeResponse logs the exchange and clears it. It returns true if the connection must be torn down.
func (c *server1Conn) finalizeResponse() (teardown bool) {
	req, resp := &c.request, &c.response
	resp.contentLength = c.bodyPos
	c.server.Logf("%s", httpAccessLine(c.remoteAddr, req, resp, time.Now()))
	teardown = c.doneConnection()
	c.clearExchan()
	c.bodyPos, c.bodyEdge = 0, 0
	return teardown
}

// doneConnection reports whether the connection is not persistent after current exchan.
func (c *server1Conn) doneConnection() bool {
	req, resp := &c.request, &c.response
	if c.keepaliveRequests++; c.keepaliveRequests >= c.server.maxKeepaliveRequests {
		return true
	}
	if req.wantsClose() || resp.wantsClose() {
		return true
	}
	if httpVersionCode(resp.version) < Version1_1 {
		return !req.wantsKeepalive()
	}
	return false
}

func i64ToString(i64 int64) string {
	var dec [20]byte
	n := i64ToDec(i64, dec[:])
	return string(dec[:n])
}
