// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Request-line decoder. See RFC 9112 section 3.

package hemi

// request-line = method SP request-target SP HTTP-version CRLF
// method = tchar+
// request-target = "*" / "/" *( tpchar / pochar / "*" / "/" )
//
// S1: tchar S2 A{method}
// S2: tchar S2 A{method} | SP S3
// S3: '*' S4 A{uri} | '/' S5 A{uri}
// S4: SP S6
// S5: tpchar S5 A{uri} | pochar S5 A{uri} | '*' S5 A{uri} | '/' S5 A{uri} | SP S6
// S6..S15: "HTTP/1.1" CRLF, where both '1' accept any DIGIT. A{version}
// S16: MATCH

const (
	lineStateMatch = 16
	lineSizeLimit  = 8190
)

const ( // line actions
	lineActMethod = 0x20
	lineActURI    = 0x40
)

var lineShift = [6][7]int8{
	//  tpchr tochr pochr '*'   '/'   SP
	{0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
	{0, 0x22, 0x22, 0x00, 0x22, 0x00, 0x00}, // S1
	{0, 0x22, 0x22, 0x00, 0x22, 0x00, 0x03}, // S2
	{0, 0x00, 0x00, 0x00, 0x44, 0x45, 0x00}, // S3
	{0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x06}, // S4
	{0, 0x45, 0x00, 0x45, 0x45, 0x45, 0x06}, // S5
}

const lineVersion = "HTTP/1.1\r\n" // matched by S6..S15

// lineDecoder decodes a request-line one octet a time.
type lineDecoder struct {
	state   int8
	nbyte   int32
	method  []byte
	uri     []byte
	version []byte
}

func (d *lineDecoder) reset() {
	d.state = 1
	d.nbyte = 0
	d.method = d.method[:0]
	d.uri = d.uri[:0]
	d.version = d.version[:0]
}

func (d *lineDecoder) good() bool    { return d.state == lineStateMatch }
func (d *lineDecoder) bad() bool     { return d.state == 0 }
func (d *lineDecoder) partial() bool { return d.state >= 1 && d.state < lineStateMatch }

// put feeds b and returns false if the decoder failed.
func (d *lineDecoder) put(b byte) bool {
	if !d.partial() {
		return d.good()
	}
	if d.nbyte++; d.nbyte > lineSizeLimit {
		d.state = 0
		return false
	}
	if state := d.state; state <= 5 {
		class := lineClass[b]
		if class == 0 {
			d.state = 0
			return false
		}
		shift := lineShift[state][class]
		d.state = shift & 0x1f
		switch shift & 0x60 {
		case lineActMethod:
			d.method = append(d.method, b)
		case lineActURI:
			d.uri = append(d.uri, b)
		}
	} else {
		want := lineVersion[state-6]
		if b == want || (want == '1' && byteIsDigit(b)) {
			d.state++
			if want > ' ' {
				d.version = append(d.version, b)
			}
		} else {
			d.state = 0
		}
	}
	return d.state != 0
}

// feed puts octets of p until the decoder leaves partial state. It returns the number of octets consumed.
func (d *lineDecoder) feed(p []byte) int {
	for i, b := range p {
		if !d.partial() {
			return i
		}
		d.put(b)
	}
	return len(p)
}

var lineClass = [256]int8{ // 1 tpchar, 2 tochar, 3 pochar, 4 '*', 5 '/', 6 SP
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	6, 1, 0, 2, 1, 1, 1, 1, 3, 3, 4, 1, 3, 1, 1, 5, //   !   # $ % & ' ( ) * + , - . /
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 3, 3, 0, 3, 0, 3, // 0 1 2 3 4 5 6 7 8 9 : ;   =   ?
	3, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, // @ A B C D E F G H I J K L M N O
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0, 0, 0, 2, 1, // P Q R S T U V W X Y Z       ^ _
	2, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, // ` a b c d e f g h i j k l m n o
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0, 2, 0, 1, 0, // p q r s t u v w x y z   |   ~
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}
