// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Decoder tests.

package hemi

import (
	"bytes"
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"golang.org/x/net/http/httpguts"
)

// splitInput returns several ways to cut p into pieces: whole, one octet per piece, every 2-way split, and some random splits.
func splitInput(p []byte) [][][]byte {
	var splits [][][]byte
	splits = append(splits, [][]byte{p})
	var octets [][]byte
	for i := range p {
		octets = append(octets, p[i:i+1])
	}
	splits = append(splits, octets)
	for i := 1; i < len(p); i++ {
		splits = append(splits, [][]byte{p[:i], p[i:]})
	}
	r := rand.New(rand.NewSource(int64(len(p))))
	for n := 0; n < 32; n++ {
		var pieces [][]byte
		for rest := p; len(rest) > 0; {
			size := 1 + r.Intn(len(rest))
			if size > 7 {
				size = 1 + size%7
			}
			pieces = append(pieces, rest[:size])
			rest = rest[size:]
		}
		splits = append(splits, pieces)
	}
	return splits
}

type decodedHead struct {
	lineOK   bool
	headerOK bool
	method   string
	uri      string
	version  string
	header   Header
	rest     string
}

// decodeHead drives a line decoder and a header decoder over pieces the way a connection does.
func decodeHead(pieces [][]byte) decodedHead {
	var line lineDecoder
	var head headerDecoder
	head.init(100, 8190)
	header := make(Header)
	line.reset()
	head.reset(header)
	var rest []byte
	for _, piece := range pieces {
		if line.partial() {
			n := line.feed(piece)
			piece = piece[n:]
		}
		if line.good() && head.partial() {
			n := head.feed(piece)
			piece = piece[n:]
		}
		rest = append(rest, piece...)
	}
	return decodedHead{line.good(), head.good(), string(line.method), string(line.uri), string(line.version), header, string(rest)}
}

func TestRequestHeadSplits(t *testing.T) {
	tests := []struct {
		input  string
		expect decodedHead
	}{
		{
			"GET /example.html HTTP/1.1\r\n" +
				"Host: example.net:10080  \r\n" +
				"Connection: close  \r\n" +
				"Accept-Language:   ,ja, en  ,  \r\n" +
				"\r\n",
			decodedHead{true, true, "GET", "/example.html", "HTTP/1.1", Header{
				"host":            "example.net:10080",
				"connection":      "close",
				"accept-language": ",ja, en  ,",
			}, ""},
		},
		{
			"OPTION * HTTP/1.0\r\n\r\n",
			decodedHead{true, true, "OPTION", "*", "HTTP/1.0", Header{}, ""},
		},
		{
			"POST /a/b?c=d&e=(f);g HTTP/1.1\r\n" +
				"X-Long:  first\r\n" +
				"   second  \r\n" +
				"\tthird\r\n" +
				"Accept: a\r\n" +
				"ACCEPT: b\r\n" +
				"Empty:\r\n" +
				"\r\n" +
				"body",
			decodedHead{true, true, "POST", "/a/b?c=d&e=(f);g", "HTTP/1.1", Header{
				"x-long": "first second third",
				"accept": "a,b",
				"empty":  "",
			}, "body"},
		},
	}
	for idx, test := range tests {
		for n, pieces := range splitInput([]byte(test.input)) {
			got := decodeHead(pieces)
			if !reflect.DeepEqual(got, test.expect) {
				t.Fatalf("#%d split#%d: got=%+v expect=%+v", idx, n, got, test.expect)
			}
		}
	}
}

func TestLineDecoderBad(t *testing.T) {
	tests := []string{
		"GET  / HTTP/1.1\r\n",
		"GET /a b HTTP/1.1\r\n",
		"GET a HTTP/1.1\r\n",
		"GET /<> HTTP/1.1\r\n",
		"GET /\x80 HTTP/1.1\r\n",
		"GET * x HTTP/1.1\r\n",
		"(GET) / HTTP/1.1\r\n",
		"GET / http/1.1\r\n",
		"GET / HTTP/1.x\r\n",
		"GET / HTTP/1.1\n",
		" GET / HTTP/1.1\r\n",
		"GET /" + strings.Repeat("a", lineSizeLimit) + " HTTP/1.1\r\n",
	}
	for idx, test := range tests {
		var d lineDecoder
		d.reset()
		d.feed([]byte(test))
		if !d.bad() {
			t.Errorf("#%d: %q is not bad", idx, test)
		}
		if d.put('G') {
			t.Errorf("#%d: put after error returns true", idx)
		}
	}
}

func TestLineDecoderVersion(t *testing.T) {
	var d lineDecoder
	d.reset()
	if n := d.feed([]byte("GET / HTTP/2.0\r\nrest")); n != 16 || !d.good() {
		t.Fatalf("n=%d good=%v", n, d.good())
	}
	if string(d.version) != "HTTP/2.0" {
		t.Errorf("version=%s", d.version)
	}
	if !d.put('x') {
		t.Error("put after match returns false")
	}
}

func TestHeaderDecoderBad(t *testing.T) {
	tests := []string{
		"Host : a\r\n\r\n",
		"Host: a\r\nb\r\n\r\n",
		"Host: a\x01b\r\n\r\n",
		"Host: a\r\n:b\r\n\r\n",
		": a\r\n\r\n",
		"Host: a\n\r\n",
		"Hö: a\r\n\r\n",
		"Host: a\r\n\r\r",
	}
	for idx, test := range tests {
		var d headerDecoder
		d.init(100, 8190)
		d.reset(make(Header))
		d.feed([]byte(test))
		if !d.bad() {
			t.Errorf("#%d: %q is not bad", idx, test)
		}
	}
}

func TestHeaderDecoderLimits(t *testing.T) {
	var d headerDecoder
	d.init(3, 32)
	header := make(Header)
	d.reset(header)
	d.feed([]byte("A: 1\r\nB: 2\r\nC: 3\r\n\r\n"))
	if !d.good() || len(header) != 3 {
		t.Fatalf("3 fields: good=%v header=%v", d.good(), header)
	}
	d.reset(make(Header))
	d.feed([]byte("A: 1\r\nB: 2\r\nC: 3\r\nD: 4\r\n\r\n"))
	if !d.bad() {
		t.Error("4 fields is not bad")
	}
	d.reset(make(Header))
	d.feed([]byte("A: " + strings.Repeat("x", 26) + "\r\n\r\n")) // 31 octets with CRLF
	if !d.good() {
		t.Error("field of 31 octets is bad")
	}
	d.reset(make(Header))
	d.feed([]byte("A: " + strings.Repeat("x", 28) + "\r\n\r\n"))
	if !d.bad() {
		t.Error("field of 33 octets is not bad")
	}
	d.reset(make(Header))
	d.feed([]byte("A: v\xe4lue\r\n\r\n"))
	if !d.good() {
		t.Error("obs-text in value is bad")
	}
}

const chunkedInput = "D\r\n" +
	"Hello, world\n" +
	"\r\n" +
	"D;ignore;ignore2\r\n" +
	"Hello, world\n" +
	"\r\n" +
	"00D;ignore=ignore;ignore=\"\\\"\";ignore\r\n" +
	"Hello, world\n" +
	"\r\n" +
	"D\r\n" +
	"Hello, world\n" +
	"\r\n" +
	"000;last=\"x\";more\r\n" +
	"Ignore: Ignore\r\n" +
	"Ignore-1:\r\n" +
	"Ignore-2: Ignore\r\n" +
	" Ignore\r\n" +
	"Ignore-3: Ignore\r\n" +
	"\r\n"

func TestChunkDecoderSplits(t *testing.T) {
	expect := strings.Repeat("Hello, world\n", 4)
	input := []byte(chunkedInput + "next")
	for n, pieces := range splitInput(input) {
		var d chunkDecoder
		d.reset()
		var rest []byte
		for _, piece := range pieces {
			k := d.feed(piece)
			rest = append(rest, piece[k:]...)
		}
		if !d.good() {
			t.Fatalf("split#%d: not good, state=%d", n, d.state)
		}
		if string(d.body) != expect || d.size != int64(len(expect)) {
			t.Fatalf("split#%d: body=%q size=%d", n, d.body, d.size)
		}
		if string(rest) != "next" {
			t.Fatalf("split#%d: rest=%q", n, rest)
		}
	}
}

func TestChunkDecoderPut(t *testing.T) {
	var d chunkDecoder
	d.reset()
	for i := 0; i < len(chunkedInput); i++ {
		if !d.put(chunkedInput[i]) {
			t.Fatalf("put failed at %d", i)
		}
	}
	if !d.good() || d.size != 52 {
		t.Errorf("good=%v size=%d", d.good(), d.size)
	}
}

func TestChunkDecoderBad(t *testing.T) {
	tests := []string{
		"1000000\r\n",   // reaches the limit before the last digit
		"FFFFFFFFFF\r\n", // far over the limit
		"G\r\n",
		"3\r\nabcd\r\n",
		"3\r\nabc(((\r\n0\r\n\r\n", // data longer than chunk-size
		"3\r\nabc<>?@[]{}\r\n0\r\n\r\n",
		"3\r\nabc\x80\r\n0\r\n\r\n",
		"2\r\nab\"\r\n0\r\n\r\n",
		"3\r\nabc\n",
		"3;\r\nabc\r\n",
		"3;a=\"x\r\n",
		"0\r\nX : y\r\n\r\n",
		"0\r\n\r\r",
		"\r\n",
	}
	for idx, test := range tests {
		var d chunkDecoder
		d.reset()
		d.feed([]byte(test))
		if !d.bad() {
			t.Errorf("#%d: %q is not bad", idx, test)
		}
		d.reset()
		for i := 0; i < len(test) && d.put(test[i]); i++ {
		}
		if !d.bad() {
			t.Errorf("#%d: %q is not bad octet by octet", idx, test)
		}
	}
	var d chunkDecoder
	d.reset()
	d.feed([]byte("100000\r\n")) // exactly 1 MiB is allowed
	if d.bad() || d.chunkSize != chunkSizeLimit {
		t.Errorf("1 MiB chunk: bad=%v size=%d", d.bad(), d.chunkSize)
	}
}

func TestDecodeContentLength(t *testing.T) {
	tests := []struct {
		value  string
		status int16
		length int64
	}{
		{"0", 200, 0},
		{"1234", 200, 1234},
		{"12345678", 200, 12345678},
		{"128,128,128", 200, 128},
		{", 128, , 128,,   ,128, ", 200, 128},
		{"\t7\t", 200, 7},
		{"2147483647", 200, 2147483647},
		{"2147483648", 413, 0},
		{"99999999999", 413, 0},
		{"127,128,128", 400, 0},
		{"128,128,127", 400, 0},
		{"", 400, 0},
		{",  ,", 400, 0},
		{"1 2", 400, 0},
		{"-1", 400, 0},
		{"0x10", 400, 0},
	}
	for idx, test := range tests {
		status, length := decodeContentLength([]byte(test.value))
		if status != test.status || length != test.length {
			t.Errorf("#%d %q: got={%d,%d} expect={%d,%d}", idx, test.value, status, length, test.status, test.length)
		}
	}
}

func TestDecodeTokens(t *testing.T) {
	tests := []struct {
		value  string
		one    bool
		tokens []string
		ok     bool
	}{
		{"a", true, []string{"a"}, true},
		{",, , a , ,, ", true, []string{"a"}, true},
		{"a,b", true, []string{"a", "b"}, true},
		{"a ,,  , b ,  , c", true, []string{"a", "b", "c"}, true},
		{"Keep-Alive, CLOSE", true, []string{"keep-alive", "close"}, true},
		{"", true, nil, false},
		{" , ", true, nil, false},
		{"", false, nil, true},
		{" , ", false, nil, true},
		{"a b", true, nil, false},
		{"a;q=1", true, nil, false},
		{"chunked\x80", true, nil, false},
	}
	for idx, test := range tests {
		tokens, ok := decodeTokens([]byte(test.value), test.one)
		if ok != test.ok || !reflect.DeepEqual(tokens, test.tokens) {
			t.Errorf("#%d %q: got=(%q,%v) expect=(%q,%v)", idx, test.value, tokens, ok, test.tokens, test.ok)
		}
	}
}

func TestDecodeParamTokens(t *testing.T) {
	tests := []struct {
		value string
		items []paramToken
		ok    bool
	}{
		{"a", []paramToken{{"a", nil}}, true},
		{",, , a , ,, ", []paramToken{{"a", nil}}, true},
		{"a ,,  , b ,  , c", []paramToken{{"a", nil}, {"b", nil}, {"c", nil}}, true},
		{"t;q=0.8;r=R", []paramToken{{"t", []string{"q", "0.8", "r", "R"}}}, true},
		{"t;q=\"0.8\";r=\"\\\"R\"", []paramToken{{"t", []string{"q", "0.8", "r", "\"R"}}}, true},
		{"t;q=0.3,u;q=0.7", []paramToken{{"t", []string{"q", "0.3"}}, {"u", []string{"q", "0.7"}}}, true},
		{"Text ; Charset = \"UTF-8\" , x", []paramToken{{"Text", []string{"charset", "UTF-8"}}, {"x", nil}}, true},
		{"t; v=\"a b\"", []paramToken{{"t", []string{"v", "a b"}}}, true},
		{"text/html", nil, false},
		{"t;q", nil, false},
		{"t;q=\"0.8", nil, false},
		{"t;=1", nil, false},
		{"", nil, false},
	}
	for idx, test := range tests {
		items, ok := decodeParamTokens([]byte(test.value), true)
		if ok != test.ok || (ok && !reflect.DeepEqual(items, test.items)) {
			t.Errorf("#%d %q: got=(%v,%v) expect=%v", idx, test.value, items, ok, test.items)
		}
	}
	items, ok := decodeParamTokens([]byte("gzip;q=1.0, identity; Q=0.5"), true)
	if !ok || len(items) != 2 {
		t.Fatalf("items=%v ok=%v", items, ok)
	}
	if q, ok := items[1].param("q"); !ok || q != "0.5" {
		t.Errorf("q=%s ok=%v", q, ok)
	}
	if _, ok := items[0].param("x"); ok {
		t.Error("absent param found")
	}
}

func TestDecodeETags(t *testing.T) {
	tests := []struct {
		value string
		tags  []etag
		ok    bool
	}{
		{"\"W/xxxxx\",\"yyy\"", []etag{{false, "\"W/xxxxx\""}, {false, "\"yyy\""}}, true},
		{"W/\"xxxxx\",\"yyy\"", []etag{{true, "\"xxxxx\""}, {false, "\"yyy\""}}, true},
		{"*", []etag{{false, "*"}}, true},
		{" , \"a\" ,, W/\"\" ", []etag{{false, "\"a\""}, {true, "\"\""}}, true},
		{"\"a b\"", nil, false},
		{"a", nil, false},
		{"*, \"a\"", nil, false},
		{"w/\"a\"", nil, false},
		{"\"a\"\"b\"", nil, false},
		{"", nil, false},
	}
	for idx, test := range tests {
		tags, ok := decodeETags([]byte(test.value))
		if ok != test.ok || (ok && !reflect.DeepEqual(tags, test.tags)) {
			t.Errorf("#%d %q: got=(%v,%v) expect=(%v,%v)", idx, test.value, tags, ok, test.tags, test.ok)
		}
	}
	a, b, w := etag{false, "\"x\""}, etag{false, "\"x\""}, etag{true, "\"x\""}
	if !a.equalStrong(b) || a.equalStrong(w) || !a.equalWeak(w) {
		t.Error("etag comparison")
	}
}

func TestTokenClassesAgainstHttpguts(t *testing.T) {
	for i := 0; i < 256; i++ {
		b := byte(i)
		isToken := i < 0x80 && httpguts.IsTokenRune(rune(i))
		if (tokenClass[b] == 1) != isToken {
			t.Errorf("tokenClass[%#x]=%d", i, tokenClass[b])
		}
		if (headerClass[b] == 3) != isToken {
			t.Errorf("headerClass[%#x]=%d", i, headerClass[b])
		}
		if (chunkClass[b] >= 1 && chunkClass[b] <= 4) != isToken {
			t.Errorf("chunkClass[%#x]=%d", i, chunkClass[b])
		}
		if (lineClass[b] == 1 || lineClass[b] == 2 || lineClass[b] == 4) != isToken {
			t.Errorf("lineClass[%#x]=%d", i, lineClass[b])
		}
		isValue := b != '\r' && b != '\n' && httpguts.ValidHeaderFieldValue(string([]byte{b}))
		if (headerClass[b] != 0 && headerClass[b] != 5 && headerClass[b] != 6) != isValue {
			t.Errorf("headerClass[%#x]=%d value=%v", i, headerClass[b], isValue)
		}
	}
}

func TestDecoderFeedStops(t *testing.T) {
	var d lineDecoder
	d.reset()
	p := []byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n")
	n := d.feed(p)
	if !bytes.Equal(p[n:], []byte("Host: x\r\n\r\n")) {
		t.Errorf("rest=%q", p[n:])
	}
}
