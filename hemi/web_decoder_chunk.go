// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Chunked body decoder. See RFC 9112 section 7.1.

package hemi

// S1: '0' S2 | HEXDIG S3 A{size}
// S2: '0' S2 | HEXDIG S3 A{size} | ';' S14 | CR S21
// S3: HEXDIG S3 A{size} | ';' S4 | CR S11
// S4: tchar S5
// S5: tchar S5 | '=' S6 | ';' S4 | CR S11
// S6: tchar S7 | '"' S9
// S7: tchar S7 | ';' S4 | CR S11
// S8: vchar S9 | HTAB/SP S9
// S9: vchar S9 | '\\' S8 | '"' S10 | HTAB/SP S9
// S10: ';' S4 | CR S11
// S11: LF S12
// S12: OCTET{size} S12 A{body} | CR S13 once size octets are taken
// S13: LF S1
// S14..S20: same as S4..S10 for the last chunk, CR S21
// S21: LF S22
// S22: tchar S23 | CR S27
// S23: tchar S23 | ':' S24
// S24: vchar S24 | HTAB/SP S24 | CR S25
// S25: LF S26
// S26: tchar S23 | HTAB/SP S24 | CR S27
// S27: LF S28
// S28: MATCH

const (
	chunkStateData  = 12
	chunkStateMatch = 28
	chunkSizeLimit  = 1 << 20
)

var chunkShift = [28][16]int8{
	//  '0' [1-9] hex tchr  vch   \\   "   =   ;   ,   :  HT  SP  CR  LF
	{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
	{0, 2, 3, 3, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},                        // S1
	{0, 2, 3, 3, 0, 0, 0, 0, 0, 14, 0, 0, 0, 0, 21, 0},                      // S2
	{0, 3, 3, 3, 0, 0, 0, 0, 0, 4, 0, 0, 0, 0, 11, 0},                       // S3
	{0, 5, 5, 5, 5, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},                        // S4
	{0, 5, 5, 5, 5, 0, 0, 0, 6, 4, 0, 0, 0, 0, 11, 0},                       // S5
	{0, 7, 7, 7, 7, 0, 0, 9, 0, 0, 0, 0, 0, 0, 0, 0},                        // S6
	{0, 7, 7, 7, 7, 0, 0, 0, 0, 4, 0, 0, 0, 0, 11, 0},                       // S7
	{0, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 0, 0},                        // S8
	{0, 9, 9, 9, 9, 9, 8, 10, 9, 9, 9, 9, 9, 9, 0, 0},                       // S9
	{0, 0, 0, 0, 0, 0, 0, 0, 0, 4, 0, 0, 0, 0, 11, 0},                       // S10
	{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 12},                       // S11
	{0, 0, 0, 0, 0, 12, 0, 0, 0, 0, 0, 0, 0, 0, 13, 0},                      // S12
	{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1},                        // S13
	{0, 15, 15, 15, 15, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},                    // S14
	{0, 15, 15, 15, 15, 0, 0, 0, 16, 14, 0, 0, 0, 0, 21, 0},                 // S15
	{0, 17, 17, 17, 17, 0, 0, 19, 0, 0, 0, 0, 0, 0, 0, 0},                   // S16
	{0, 17, 17, 17, 17, 0, 0, 0, 0, 14, 0, 0, 0, 0, 21, 0},                  // S17
	{0, 19, 19, 19, 19, 19, 19, 19, 19, 19, 19, 19, 19, 19, 0, 0},           // S18
	{0, 19, 19, 19, 19, 19, 18, 20, 19, 19, 19, 19, 19, 19, 0, 0},           // S19
	{0, 0, 0, 0, 0, 0, 0, 0, 0, 14, 0, 0, 0, 0, 21, 0},                      // S20
	{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 22},                       // S21
	{0, 23, 23, 23, 23, 0, 0, 0, 0, 0, 0, 0, 0, 0, 27, 0},                   // S22
	{0, 23, 23, 23, 23, 0, 0, 0, 0, 0, 0, 24, 0, 0, 0, 0},                   // S23
	{0, 24, 24, 24, 24, 24, 24, 24, 24, 24, 24, 24, 24, 24, 25, 0},          // S24
	{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 26},                       // S25
	{0, 23, 23, 23, 23, 0, 0, 0, 0, 0, 0, 0, 24, 24, 27, 0},                 // S26
	{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 28},                       // S27
}

// chunkDecoder decodes a chunked body one octet a time. Chunk data is appended to body.
type chunkDecoder struct {
	state     int8
	chunkSize int64 // remaining octets of current chunk data, or the chunk-size being decoded
	size      int64 // decoded body size
	body      []byte
}

func (d *chunkDecoder) reset() {
	d.state = 1
	d.chunkSize = 0
	d.size = 0
	d.body = nil
}

func (d *chunkDecoder) good() bool    { return d.state == chunkStateMatch }
func (d *chunkDecoder) bad() bool     { return d.state == 0 }
func (d *chunkDecoder) partial() bool { return d.state >= 1 && d.state < chunkStateMatch }

// put feeds b and returns false if the decoder failed.
func (d *chunkDecoder) put(b byte) bool {
	if !d.partial() {
		return d.good()
	}
	state := d.state
	class := chunkClass[b]
	if state == chunkStateData {
		if d.chunkSize--; d.chunkSize >= 0 {
			class = 5 // data octets are opaque
		} else if class != 14 { // chunk-data is followed by CRLF
			d.state = 0
			return false
		}
	}
	if class == 0 {
		d.state = 0
		return false
	}
	if d.state = chunkShift[state][class]; d.state == 0 {
		return false
	}
	if state == 1 {
		d.chunkSize = 0
	}
	if state <= 3 && class <= 3 {
		if d.chunkSize >= chunkSizeLimit {
			d.state = 0
			return false
		}
		n, _ := byteFromHex(b)
		d.chunkSize = d.chunkSize<<4 | int64(n)
	} else if state == chunkStateData && class == 5 {
		d.body = append(d.body, b)
		d.size++
	}
	return true
}

// feed puts octets of p until the decoder leaves partial state. It returns the number of octets consumed.
// Chunk data is copied in bulk.
func (d *chunkDecoder) feed(p []byte) int {
	i := 0
	for i < len(p) {
		if !d.partial() {
			return i
		}
		if d.state == chunkStateData && d.chunkSize > 0 {
			n := int64(len(p) - i)
			if n > d.chunkSize {
				n = d.chunkSize
			}
			d.body = append(d.body, p[i:i+int(n)]...)
			d.size += n
			d.chunkSize -= n
			i += int(n)
			continue
		}
		d.put(p[i])
		i++
	}
	return i
}

var chunkClass = [256]int8{ // 1 '0', 2 [1-9], 3 [A-Fa-f], 4 tchar, 5 vchar, 6 '\\', 7 '"', 8 '=', 9 ';', 10 ',', 11 ':', 12 HTAB, 13 SP, 14 CR, 15 LF
	0, 0, 0, 0, 0, 0, 0, 0, 0, 12, 15, 0, 0, 14, 0, 0, // HTAB LF CR
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	13, 4, 7, 4, 4, 4, 4, 4, 5, 5, 4, 4, 10, 4, 4, 5, //   ! " # $ % & ' ( ) * + , - . /
	1, 2, 2, 2, 2, 2, 2, 2, 2, 2, 11, 9, 5, 8, 5, 5, // 0 1 2 3 4 5 6 7 8 9 : ; < = > ?
	5, 3, 3, 3, 3, 3, 3, 4, 4, 4, 4, 4, 4, 4, 4, 4, // @ A B C D E F G H I J K L M N O
	4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 5, 6, 5, 4, 4, // P Q R S T U V W X Y Z [ \ ] ^ _
	4, 3, 3, 3, 3, 3, 3, 4, 4, 4, 4, 4, 4, 4, 4, 4, // ` a b c d e f g h i j k l m n o
	4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 5, 4, 5, 4, 0, // p q r s t u v w x y z { | } ~
	5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5,
	5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5,
	5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5,
	5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5,
	5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5,
	5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5,
	5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5,
	5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5,
}
