// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Header fields decoder. See RFC 9112 section 5.

package hemi

// S1: tchar S2 A{name} | CR S7
// S2: tchar S2 A{name} | ':' S3
// S3: vchar S4 A{value} | HTAB/SP S3 | CR S5
// S4: vchar S4 A{value} | HTAB/SP S4 A{spaces} | CR S5
// S5: LF S6
// S6: tchar S2 A{commit, name} | HTAB/SP S3 A{fold} | CR S7 A{commit}
// S7: LF S8
// S8: MATCH

const headerStateMatch = 8

const ( // header actions
	headerActName   = 0x10
	headerActValue  = 0x20
	headerActSpace  = 0x30
	headerActFold   = 0x40
	headerActCommit = 0x50
	headerActLast   = 0x60
)

var headerShift = [8][7]int8{
	//  vchar ':'   tchar WS    CR    LF
	{0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
	{0, 0x00, 0x00, 0x12, 0x00, 0x07, 0x00}, // S1
	{0, 0x00, 0x03, 0x12, 0x00, 0x00, 0x00}, // S2
	{0, 0x24, 0x24, 0x24, 0x03, 0x05, 0x00}, // S3
	{0, 0x24, 0x24, 0x24, 0x34, 0x05, 0x00}, // S4
	{0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x06}, // S5
	{0, 0x00, 0x00, 0x52, 0x43, 0x67, 0x00}, // S6
	{0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x08}, // S7
}

// headerDecoder decodes header fields into a Header one octet a time.
type headerDecoder struct {
	state        int8
	maxFields    int32 // max number of fields
	maxFieldSize int32 // max size of one field, in bytes
	nfield       int32
	nbyte        int32
	name         []byte
	value        []byte
	spaces       []byte
	header       Header // decoded fields go here
}

func (d *headerDecoder) init(maxFields int32, maxFieldSize int32) {
	d.maxFields = maxFields
	d.maxFieldSize = maxFieldSize
}

// reset prepares the decoder for a new header block which is stored in header.
func (d *headerDecoder) reset(header Header) {
	d.state = 1
	d.nfield = 0
	d.nbyte = 0
	d.name = d.name[:0]
	d.value = d.value[:0]
	d.spaces = d.spaces[:0]
	d.header = header
}

func (d *headerDecoder) good() bool    { return d.state == headerStateMatch }
func (d *headerDecoder) bad() bool     { return d.state == 0 }
func (d *headerDecoder) partial() bool { return d.state >= 1 && d.state < headerStateMatch }

// put feeds b and returns false if the decoder failed.
func (d *headerDecoder) put(b byte) bool {
	if !d.partial() {
		return d.good()
	}
	if d.nbyte++; d.nbyte > d.maxFieldSize {
		d.state = 0
		return false
	}
	class := headerClass[b]
	if class == 0 {
		d.state = 0
		return false
	}
	shift := headerShift[d.state][class]
	if d.state = shift & 0x0f; d.state == 0 {
		return false
	}
	switch shift & 0x70 {
	case headerActName:
		d.name = append(d.name, lowerTable[b])
	case headerActValue:
		d.value = append(d.value, d.spaces...)
		d.value = append(d.value, b)
		d.spaces = d.spaces[:0]
	case headerActSpace:
		d.spaces = append(d.spaces, b)
	case headerActFold:
		d.spaces = d.spaces[:0]
		if len(d.value) > 0 {
			d.spaces = append(d.spaces, ' ')
		}
	case headerActCommit, headerActLast:
		if !d.commit() {
			return false
		}
		if shift&0x70 == headerActCommit {
			d.name = append(d.name, lowerTable[b])
		}
	}
	return true
}

func (d *headerDecoder) commit() bool {
	if d.nfield++; d.nfield > d.maxFields {
		d.state = 0
		return false
	}
	d.header.Add(string(d.name), string(d.value))
	d.name = d.name[:0]
	d.value = d.value[:0]
	d.spaces = d.spaces[:0]
	d.nbyte = 1
	return true
}

// feed puts octets of p until the decoder leaves partial state. It returns the number of octets consumed.
func (d *headerDecoder) feed(p []byte) int {
	for i, b := range p {
		if !d.partial() {
			return i
		}
		d.put(b)
	}
	return len(p)
}

var headerClass = [256]int8{ // 1 vchar, 2 ':', 3 tchar, 4 HTAB SP, 5 CR, 6 LF
	0, 0, 0, 0, 0, 0, 0, 0, 0, 4, 6, 0, 0, 5, 0, 0, // HTAB LF CR
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	4, 3, 1, 3, 3, 3, 3, 3, 1, 1, 3, 3, 1, 3, 3, 1, //   ! " # $ % & ' ( ) * + , - . /
	3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 2, 1, 1, 1, 1, 1, // 0 1 2 3 4 5 6 7 8 9 : ; < = > ?
	1, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, // @ A B C D E F G H I J K L M N O
	3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 1, 1, 1, 3, 3, // P Q R S T U V W X Y Z [ \ ] ^ _
	3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, // ` a b c d e f g h i j k l m n o
	3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 1, 3, 1, 3, 0, // p q r s t u v w x y z { | } ~
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
}
