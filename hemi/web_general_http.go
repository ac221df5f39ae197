// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// General HTTP elements: versions, methods, status codes, field names and octet tables.

package hemi

import (
	"sort"
	"strconv"
)

const ( // basic http constants
	// version codes
	Version1_0 = 0 // must be 0, default value. versions below HTTP/1.1
	Version1_1 = 1 // HTTP/1.1 and above

	// best known http method codes
	MethodGET     = 0x00000001
	MethodHEAD    = 0x00000002
	MethodPOST    = 0x00000004
	MethodPUT     = 0x00000008
	MethodDELETE  = 0x00000010
	MethodCONNECT = 0x00000020
	MethodOPTIONS = 0x00000040
	MethodTRACE   = 0x00000080
	MethodUnknown = 0x80000000

	// status codes
	// 1XX
	StatusContinue           = 100
	StatusSwitchingProtocols = 101
	StatusProcessing         = 102
	StatusEarlyHints         = 103
	// 2XX
	StatusOK                         = 200
	StatusCreated                    = 201
	StatusAccepted                   = 202
	StatusNonAuthoritativeInfomation = 203
	StatusNoContent                  = 204
	StatusResetContent               = 205
	StatusPartialContent             = 206
	StatusMultiStatus                = 207
	StatusAlreadyReported            = 208
	StatusIMUsed                     = 226
	// 3XX
	StatusMultipleChoices   = 300
	StatusMovedPermanently  = 301
	StatusFound             = 302
	StatusSeeOther          = 303
	StatusNotModified       = 304
	StatusUseProxy          = 305
	StatusTemporaryRedirect = 307
	StatusPermanentRedirect = 308
	// 4XX
	StatusBadRequest                  = 400
	StatusUnauthorized                = 401
	StatusPaymentRequired             = 402
	StatusForbidden                   = 403
	StatusNotFound                    = 404
	StatusMethodNotAllowed            = 405
	StatusNotAcceptable               = 406
	StatusProxyAuthenticationRequired = 407
	StatusRequestTimeout              = 408
	StatusConflict                    = 409
	StatusGone                        = 410
	StatusLengthRequired              = 411
	StatusPreconditionFailed          = 412
	StatusContentTooLarge             = 413
	StatusURITooLong                  = 414
	StatusUnsupportedMediaType        = 415
	StatusRangeNotSatisfiable         = 416
	StatusExpectationFailed           = 417
	StatusMisdirectedRequest          = 421
	StatusUnprocessableEntity         = 422
	StatusLocked                      = 423
	StatusFailedDependency            = 424
	StatusTooEarly                    = 425
	StatusUpgradeRequired             = 426
	StatusPreconditionRequired        = 428
	StatusTooManyRequests             = 429
	StatusRequestHeaderFieldsTooLarge = 431
	StatusUnavailableForLegalReasons  = 451
	// 5XX
	StatusInternalServerError           = 500
	StatusNotImplemented                = 501
	StatusBadGateway                    = 502
	StatusServiceUnavailable            = 503
	StatusGatewayTimeout                = 504
	StatusHTTPVersionNotSupported       = 505
	StatusVariantAlsoNegotiates         = 506
	StatusInsufficientStorage           = 507
	StatusLoopDetected                  = 508
	StatusNotExtended                   = 510
	StatusNetworkAuthenticationRequired = 511
)

var httpMethodCodes = map[string]uint32{
	"GET":     MethodGET,
	"HEAD":    MethodHEAD,
	"POST":    MethodPOST,
	"PUT":     MethodPUT,
	"DELETE":  MethodDELETE,
	"CONNECT": MethodCONNECT,
	"OPTIONS": MethodOPTIONS,
	"TRACE":   MethodTRACE,
}

func httpMethodCode(method string) uint32 {
	if code, ok := httpMethodCodes[method]; ok {
		return code
	}
	return MethodUnknown
}

// httpVersionCode maps "HTTP/x.y" to a version code.
func httpVersionCode(version string) uint8 {
	if version >= stringHTTP1_1 {
		return Version1_1
	}
	return Version1_0
}

var httpVersionStrings = [...]string{
	Version1_0: stringHTTP1_0,
	Version1_1: stringHTTP1_1,
}

var httpStatusTexts = [...]string{
	// 1XX
	StatusContinue:           "Continue",
	StatusSwitchingProtocols: "Switching Protocols",
	StatusProcessing:         "Processing",
	StatusEarlyHints:         "Early Hints",
	// 2XX
	StatusOK:                         "OK",
	StatusCreated:                    "Created",
	StatusAccepted:                   "Accepted",
	StatusNonAuthoritativeInfomation: "Non-Authoritative Information",
	StatusNoContent:                  "No Content",
	StatusResetContent:               "Reset Content",
	StatusPartialContent:             "Partial Content",
	StatusMultiStatus:                "Multi-Status",
	StatusAlreadyReported:            "Already Reported",
	StatusIMUsed:                     "IM Used",
	// 3XX
	StatusMultipleChoices:   "Multiple Choices",
	StatusMovedPermanently:  "Moved Permanently",
	StatusFound:             "Found",
	StatusSeeOther:          "See Other",
	StatusNotModified:       "Not Modified",
	StatusUseProxy:          "Use Proxy",
	StatusTemporaryRedirect: "Temporary Redirect",
	StatusPermanentRedirect: "Permanent Redirect",
	// 4XX
	StatusBadRequest:                  "Bad Request",
	StatusUnauthorized:                "Unauthorized",
	StatusPaymentRequired:             "Payment Required",
	StatusForbidden:                   "Forbidden",
	StatusNotFound:                    "Not Found",
	StatusMethodNotAllowed:            "Method Not Allowed",
	StatusNotAcceptable:               "Not Acceptable",
	StatusProxyAuthenticationRequired: "Proxy Authentication Required",
	StatusRequestTimeout:              "Request Timeout",
	StatusConflict:                    "Conflict",
	StatusGone:                        "Gone",
	StatusLengthRequired:              "Length Required",
	StatusPreconditionFailed:          "Precondition Failed",
	StatusContentTooLarge:             "Content Too Large",
	StatusURITooLong:                  "URI Too Long",
	StatusUnsupportedMediaType:        "Unsupported Media Type",
	StatusRangeNotSatisfiable:         "Range Not Satisfiable",
	StatusExpectationFailed:           "Expectation Failed",
	StatusMisdirectedRequest:          "Misdirected Request",
	StatusUnprocessableEntity:         "Unprocessable Entity",
	StatusLocked:                      "Locked",
	StatusFailedDependency:            "Failed Dependency",
	StatusTooEarly:                    "Too Early",
	StatusUpgradeRequired:             "Upgrade Required",
	StatusPreconditionRequired:        "Precondition Required",
	StatusTooManyRequests:             "Too Many Requests",
	StatusRequestHeaderFieldsTooLarge: "Request Header Fields Too Large",
	StatusUnavailableForLegalReasons:  "Unavailable For Legal Reasons",
	// 5XX
	StatusInternalServerError:           "Internal Server Error",
	StatusNotImplemented:                "Not Implemented",
	StatusBadGateway:                    "Bad Gateway",
	StatusServiceUnavailable:            "Service Unavailable",
	StatusGatewayTimeout:                "Gateway Timeout",
	StatusHTTPVersionNotSupported:       "HTTP Version Not Supported",
	StatusVariantAlsoNegotiates:         "Variant Also Negotiates",
	StatusInsufficientStorage:           "Insufficient Storage",
	StatusLoopDetected:                  "Loop Detected",
	StatusNotExtended:                   "Not Extended",
	StatusNetworkAuthenticationRequired: "Network Authentication Required",
}

// httpStatusLine returns "code reason". Unknown codes are reported as 500.
func httpStatusLine(status int16) string {
	if status >= 0 && int(status) < len(httpStatusTexts) && httpStatusTexts[status] != "" {
		return strconv.Itoa(int(status)) + " " + httpStatusTexts[status]
	}
	return "500 " + httpStatusTexts[StatusInternalServerError]
}

const ( // strings
	stringHTTP1_0 = "HTTP/1.0"
	stringHTTP1_1 = "HTTP/1.1"

	stringChunked   = "chunked"
	stringClose     = "close"
	stringKeepAlive = "keep-alive"
)

const ( // field names, lower-cased
	fieldConnection        = "connection"
	fieldContentLength     = "content-length"
	fieldContentType       = "content-type"
	fieldDate              = "date"
	fieldETag              = "etag"
	fieldHost              = "host"
	fieldIfMatch           = "if-match"
	fieldIfModifiedSince   = "if-modified-since"
	fieldIfNoneMatch       = "if-none-match"
	fieldIfUnmodifiedSince = "if-unmodified-since"
	fieldLastModified      = "last-modified"
	fieldServer            = "server"
	fieldTransferEncoding  = "transfer-encoding"
)

var ( // byteses
	bytesCRLF          = []byte("\r\n")
	bytesColonSpace    = []byte(": ")
	bytesZeroCRLFCRLF  = []byte("0\r\n\r\n")
	bytesTypeHTMLUTF8  = []byte("text/html; charset=UTF-8")
	bytesTypePlainUTF8 = []byte("text/plain; charset=UTF-8")
)

// Header holds fields of a request or a response. Names are lower-cased.
type Header map[string]string

func (h Header) Get(name string) string { return h[name] }
func (h Header) Has(name string) bool {
	_, ok := h[name]
	return ok
}
func (h Header) Set(name string, value string) { h[name] = value }
func (h Header) Del(name string)               { delete(h, name) }

// Add appends value to name. Values of a repeated name are joined with ",".
func (h Header) Add(name string, value string) {
	if old, ok := h[name]; ok {
		h[name] = old + "," + value
	} else {
		h[name] = value
	}
}

// reset removes all fields and keeps the map.
func (h Header) reset() {
	for name := range h {
		delete(h, name)
	}
}

// sortedNames returns field names in order.
func (h Header) sortedNames() []string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// hasToken reports whether the token list in field name contains token.
func (h Header) hasToken(name string, token string) bool {
	value, ok := h[name]
	if !ok {
		return false
	}
	tokens, _ := decodeTokens([]byte(value), true)
	for _, t := range tokens {
		if t == token {
			return true
		}
	}
	return false
}

var httpCanonicalNames = map[string]string{
	"content-md5":      "Content-MD5",
	"etag":             "ETag",
	"te":               "TE",
	"www-authenticate": "WWW-Authenticate",
}

// httpAppendCanonicalName appends the canonical form of a lower-cased field name to dst.
func httpAppendCanonicalName(dst []byte, name string) []byte {
	if canonical, ok := httpCanonicalNames[name]; ok {
		return append(dst, canonical...)
	}
	upper := true
	for i := 0; i < len(name); i++ {
		b := name[i]
		if upper && b >= 'a' && b <= 'z' {
			b -= 'a' - 'A'
		}
		dst = append(dst, b)
		upper = b == '-'
	}
	return dst
}

var lowerTable = [256]byte{
	0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f,
	0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18, 0x19, 0x1a, 0x1b, 0x1c, 0x1d, 0x1e, 0x1f,
	0x20, 0x21, 0x22, 0x23, 0x24, 0x25, 0x26, 0x27, 0x28, 0x29, 0x2a, 0x2b, 0x2c, 0x2d, 0x2e, 0x2f,
	0x30, 0x31, 0x32, 0x33, 0x34, 0x35, 0x36, 0x37, 0x38, 0x39, 0x3a, 0x3b, 0x3c, 0x3d, 0x3e, 0x3f,
	0x40, 0x61, 0x62, 0x63, 0x64, 0x65, 0x66, 0x67, 0x68, 0x69, 0x6a, 0x6b, 0x6c, 0x6d, 0x6e, 0x6f,
	0x70, 0x71, 0x72, 0x73, 0x74, 0x75, 0x76, 0x77, 0x78, 0x79, 0x7a, 0x5b, 0x5c, 0x5d, 0x5e, 0x5f,
	0x60, 0x61, 0x62, 0x63, 0x64, 0x65, 0x66, 0x67, 0x68, 0x69, 0x6a, 0x6b, 0x6c, 0x6d, 0x6e, 0x6f,
	0x70, 0x71, 0x72, 0x73, 0x74, 0x75, 0x76, 0x77, 0x78, 0x79, 0x7a, 0x7b, 0x7c, 0x7d, 0x7e, 0x7f,
	0x80, 0x81, 0x82, 0x83, 0x84, 0x85, 0x86, 0x87, 0x88, 0x89, 0x8a, 0x8b, 0x8c, 0x8d, 0x8e, 0x8f,
	0x90, 0x91, 0x92, 0x93, 0x94, 0x95, 0x96, 0x97, 0x98, 0x99, 0x9a, 0x9b, 0x9c, 0x9d, 0x9e, 0x9f,
	0xa0, 0xa1, 0xa2, 0xa3, 0xa4, 0xa5, 0xa6, 0xa7, 0xa8, 0xa9, 0xaa, 0xab, 0xac, 0xad, 0xae, 0xaf,
	0xb0, 0xb1, 0xb2, 0xb3, 0xb4, 0xb5, 0xb6, 0xb7, 0xb8, 0xb9, 0xba, 0xbb, 0xbc, 0xbd, 0xbe, 0xbf,
	0xc0, 0xc1, 0xc2, 0xc3, 0xc4, 0xc5, 0xc6, 0xc7, 0xc8, 0xc9, 0xca, 0xcb, 0xcc, 0xcd, 0xce, 0xcf,
	0xd0, 0xd1, 0xd2, 0xd3, 0xd4, 0xd5, 0xd6, 0xd7, 0xd8, 0xd9, 0xda, 0xdb, 0xdc, 0xdd, 0xde, 0xdf,
	0xe0, 0xe1, 0xe2, 0xe3, 0xe4, 0xe5, 0xe6, 0xe7, 0xe8, 0xe9, 0xea, 0xeb, 0xec, 0xed, 0xee, 0xef,
	0xf0, 0xf1, 0xf2, 0xf3, 0xf4, 0xf5, 0xf6, 0xf7, 0xf8, 0xf9, 0xfa, 0xfb, 0xfc, 0xfd, 0xfe, 0xff,
}
