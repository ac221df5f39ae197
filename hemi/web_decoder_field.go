// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Field value decoders: content-length, entity-tag lists, token lists and parameterized token lists.
// Each decoder runs over a whole field value and feeds the end of it as class $.

package hemi

// S1: WS S1 | ',' S1 | DIGIT S2
// S2: WS S3 | ',' S4 | DIGIT S2 | $ S5
// S3: WS S3 | ',' S4 | $ S5
// S4: WS S4 | ',' S4 | DIGIT S2 | $ S5
// S5: MATCH
var contentLengthShift = [6][5]int8{
	//  WS ',' DIGIT $
	{0, 0, 0, 0, 0},
	{0, 1, 1, 2, 0}, // S1
	{0, 3, 4, 2, 5}, // S2
	{0, 3, 4, 0, 5}, // S3
	{0, 4, 4, 2, 5}, // S4
	{1, 0, 0, 0, 0}, // S5
}

// decodeContentLength canonicalizes a content-length value. All numbers in the list must be equal.
// It returns 200 and the length, 400 if v is malformed, or 413 if the length exceeds 2147483647.
func decodeContentLength(v []byte) (status int16, length int64) {
	var value int64
	length = -1
	state := int8(1)
	for i := 0; i <= len(v); i++ {
		var b byte
		class := int8(4) // $
		if i < len(v) {
			b = v[i]
			class = contentLengthClass[b]
		}
		if class == 0 {
			return 400, 0
		}
		prev := state
		if state = contentLengthShift[prev][class]; state == 0 {
			return 400, 0
		}
		if class == 3 {
			if value > 214748364 || (value == 214748364 && b > '7') { // 214748364*10+7 == 2147483647
				return 413, 0
			}
			value = value*10 + int64(b-'0')
		} else if prev == 2 {
			if length >= 0 && length != value {
				return 400, 0
			}
			length, value = value, 0
		}
	}
	if contentLengthShift[state][0]&1 == 0 {
		return 400, 0
	}
	return 200, length
}

// etag is an entity-tag. opaque keeps its quotes, or is "*".
type etag struct {
	weak   bool
	opaque string
}

func (e etag) equalStrong(x etag) bool { return !e.weak && !x.weak && e.opaque == x.opaque }
func (e etag) equalWeak(x etag) bool   { return e.opaque == x.opaque }

// S1: 'W' S3 | '"' S5 | '*' S8 | ',' S2 | WS S1
// S2: 'W' S3 | '"' S5 | ',' S2 | WS S2
// S3: '/' S4
// S4: '"' S5
// S5: etagc S5 | '"' S6
// S6: ',' S7 | WS S6 | $ S9
// S7: 'W' S3 | '"' S5 | ',' S7 | WS S7 | $ S9
// S8: WS S8 | $ S9
// S9: MATCH
const ( // etag actions
	etagActWeak   = 0x10
	etagActOpaque = 0x20
	etagActDone   = 0x30
)

var etagShift = [10][9]int8{
	//  etagc 'W'   '/'   '"'   '*'   ','   WS    $
	{0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
	{0, 0x00, 0x13, 0x00, 0x25, 0x38, 0x02, 0x01, 0x00}, // S1
	{0, 0x00, 0x13, 0x00, 0x25, 0x00, 0x02, 0x02, 0x00}, // S2
	{0, 0x00, 0x00, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00}, // S3
	{0, 0x00, 0x00, 0x00, 0x25, 0x00, 0x00, 0x00, 0x00}, // S4
	{0, 0x25, 0x25, 0x25, 0x36, 0x25, 0x25, 0x00, 0x00}, // S5
	{0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x07, 0x06, 0x09}, // S6
	{0, 0x00, 0x13, 0x00, 0x25, 0x00, 0x07, 0x07, 0x09}, // S7
	{0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x08, 0x09}, // S8
	{1, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, // S9
}

// decodeETags decodes a list of entity-tags, or "*".
func decodeETags(v []byte) (tags []etag, ok bool) {
	var tag etag
	var opaque []byte
	state := int8(1)
	for i := 0; i <= len(v); i++ {
		var b byte
		class := int8(8) // $
		if i < len(v) {
			b = v[i]
			class = etagClass[b]
		}
		if class == 0 {
			return nil, false
		}
		shift := etagShift[state][class]
		if state = shift & 0x0f; state == 0 {
			return nil, false
		}
		switch shift & 0x70 {
		case etagActWeak:
			tag.weak = true
		case etagActOpaque:
			opaque = append(opaque, b)
		case etagActDone:
			opaque = append(opaque, b)
			tag.opaque = string(opaque)
			tags = append(tags, tag)
			tag, opaque = etag{}, opaque[:0]
		}
	}
	return tags, etagShift[state][0]&1 != 0
}

// S1: tchar S2 A{token} | ',' S1 | WS S1
// S2: tchar S2 A{token} | ',' S4 A{done} | WS S3 A{done} | $ S5 A{done}
// S3: ',' S4 | WS S3 | $ S5
// S4: tchar S2 A{token} | ',' S4 | WS S4 | $ S5
// S5: MATCH
const ( // token actions
	tokenActToken = 0x10
	tokenActDone  = 0x20
)

var tokenShift = [6][5]int8{
	//  tchar ','   WS    $
	{0, 0x00, 0x00, 0x00, 0x00},
	{0, 0x12, 0x01, 0x01, 0x00}, // S1
	{0, 0x12, 0x24, 0x23, 0x25}, // S2
	{0, 0x00, 0x04, 0x03, 0x05}, // S3
	{0, 0x12, 0x04, 0x04, 0x05}, // S4
	{1, 0x00, 0x00, 0x00, 0x00}, // S5
}

// decodeTokens decodes a comma separated list of tokens, lower-cased. Empty elements are skipped.
// If atLeastOne is true, the list must have at least one token.
func decodeTokens(v []byte, atLeastOne bool) (tokens []string, ok bool) {
	var token []byte
	state := int8(4)
	if atLeastOne {
		state = 1
	}
	for i := 0; i <= len(v); i++ {
		var b byte
		class := int8(4) // $
		if i < len(v) {
			b = v[i]
			class = tokenClass[b]
		}
		if class == 0 {
			return nil, false
		}
		shift := tokenShift[state][class]
		if state = shift & 0x0f; state == 0 {
			return nil, false
		}
		switch shift & 0x70 {
		case tokenActToken:
			token = append(token, lowerTable[b])
		case tokenActDone:
			tokens = append(tokens, string(token))
			token = token[:0]
		}
	}
	return tokens, tokenShift[state][0]&1 != 0
}

// paramToken is a token with its parameters. params holds name, value, name, value, ...
type paramToken struct {
	token  string
	params []string
}

// param returns the value of parameter name.
func (t *paramToken) param(name string) (value string, ok bool) {
	for i := 0; i+1 < len(t.params); i += 2 {
		if t.params[i] == name {
			return t.params[i+1], true
		}
	}
	return "", false
}

// S1: tchar S2 A{token} | ',' S1 | WS S1
// S2: tchar S2 A{token} | WS S3 | ';' S4 | ',' S12 A{item} | $ S13 A{item}
// S3: WS S3 | ';' S4 | ',' S12 A{item} | $ S13 A{item}
// S4: tchar S5 A{name} | WS S4
// S5: tchar S5 A{name} | WS S6 | '=' S7
// S6: WS S6 | '=' S7
// S7: tchar S8 A{value} | WS S7 | '"' S10
// S8: tchar S8 A{value} | WS S11 A{param} | ';' S4 A{param} | ',' S12 A{param, item} | $ S13 A{param, item}
// S9: qdtext S10 A{value} | '\\' S10 A{value} | '"' S10 A{value}
// S10: qdtext S10 A{value} | '\\' S9 | '"' S11 A{param}
// S11: WS S11 | ';' S4 | ',' S12 A{item} | $ S13 A{item}
// S12: tchar S2 A{token} | WS S12 | ',' S12 | $ S13
// S13: MATCH
const ( // param token actions
	paramActToken = 0x10
	paramActName  = 0x20
	paramActValue = 0x30
	paramActParam = 0x40
	paramActItem  = 0x50
	paramActBoth  = 0x60
)

var paramTokenShift = [14][10]int8{
	// qdtext tchar WS    ';'   '='   ','   '\\'  '"'   $
	{0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
	{0, 0x00, 0x12, 0x01, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00}, // S1
	{0, 0x00, 0x12, 0x03, 0x04, 0x00, 0x5c, 0x00, 0x00, 0x5d}, // S2
	{0, 0x00, 0x00, 0x03, 0x04, 0x00, 0x5c, 0x00, 0x00, 0x5d}, // S3
	{0, 0x00, 0x25, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, // S4
	{0, 0x00, 0x25, 0x06, 0x00, 0x07, 0x00, 0x00, 0x00, 0x00}, // S5
	{0, 0x00, 0x00, 0x06, 0x00, 0x07, 0x00, 0x00, 0x00, 0x00}, // S6
	{0, 0x00, 0x38, 0x07, 0x00, 0x00, 0x00, 0x00, 0x0a, 0x00}, // S7
	{0, 0x00, 0x38, 0x4b, 0x44, 0x00, 0x6c, 0x00, 0x00, 0x6d}, // S8
	{0, 0x3a, 0x3a, 0x3a, 0x3a, 0x3a, 0x3a, 0x3a, 0x3a, 0x00}, // S9
	{0, 0x3a, 0x3a, 0x3a, 0x3a, 0x3a, 0x3a, 0x09, 0x4b, 0x00}, // S10
	{0, 0x00, 0x00, 0x0b, 0x04, 0x00, 0x5c, 0x00, 0x00, 0x5d}, // S11
	{0, 0x00, 0x12, 0x0c, 0x00, 0x00, 0x0c, 0x00, 0x00, 0x0d}, // S12
	{1, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, // S13
}

// decodeParamTokens decodes a comma separated list of tokens with parameters.
// Tokens and values keep their case, parameter names are lower-cased.
func decodeParamTokens(v []byte, atLeastOne bool) (items []paramToken, ok bool) {
	var item paramToken
	var token, name, value []byte
	state := int8(12)
	if atLeastOne {
		state = 1
	}
	for i := 0; i <= len(v); i++ {
		var b byte
		class := int8(9) // $
		if i < len(v) {
			b = v[i]
			class = paramTokenClass[b]
		}
		if class == 0 {
			return nil, false
		}
		shift := paramTokenShift[state][class]
		if state = shift & 0x0f; state == 0 {
			return nil, false
		}
		act := shift & 0x70
		switch act {
		case paramActToken:
			token = append(token, b)
		case paramActName:
			name = append(name, lowerTable[b])
		case paramActValue:
			value = append(value, b)
		}
		if act == paramActParam || act == paramActBoth {
			item.params = append(item.params, string(name), string(value))
			name, value = name[:0], value[:0]
		}
		if act == paramActItem || act == paramActBoth {
			item.token = string(token)
			items = append(items, item)
			item, token = paramToken{}, token[:0]
		}
	}
	return items, paramTokenShift[state][0]&1 != 0
}

var contentLengthClass = [256]int8{ // 1 HTAB SP, 2 ',', 3 DIGIT
	0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, // HTAB
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 2, 0, 0, 0, //                         ,
	3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 0, 0, 0, 0, 0, 0, // 0 1 2 3 4 5 6 7 8 9
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}
var etagClass = [256]int8{ // 1 etagc, 2 'W', 3 '/', 4 '"', 5 '*', 6 ',', 7 HTAB SP
	0, 0, 0, 0, 0, 0, 0, 0, 0, 7, 0, 0, 0, 0, 0, 0, // HTAB
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	7, 1, 4, 1, 1, 1, 1, 1, 1, 1, 5, 1, 6, 1, 1, 3, //   ! " # $ % & ' ( ) * + , - . /
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, // 0 1 2 3 4 5 6 7 8 9 : ; < = > ?
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, // @ A B C D E F G H I J K L M N O
	1, 1, 1, 1, 1, 1, 1, 2, 1, 1, 1, 1, 1, 1, 1, 1, // P Q R S T U V W X Y Z [ \ ] ^ _
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, // ` a b c d e f g h i j k l m n o
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0, // p q r s t u v w x y z { | } ~
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
}
var tokenClass = [256]int8{ // 1 tchar, 2 ',', 3 HTAB SP
	0, 0, 0, 0, 0, 0, 0, 0, 0, 3, 0, 0, 0, 0, 0, 0, // HTAB
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	3, 1, 0, 1, 1, 1, 1, 1, 0, 0, 1, 1, 2, 1, 1, 0, //   !   # $ % & '     * + , - .
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0, 0, // 0 1 2 3 4 5 6 7 8 9
	0, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, //   A B C D E F G H I J K L M N O
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0, 0, 0, 1, 1, // P Q R S T U V W X Y Z       ^ _
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, // ` a b c d e f g h i j k l m n o
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0, 1, 0, 1, 0, // p q r s t u v w x y z   |   ~
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}
var paramTokenClass = [256]int8{ // 1 qdtext, 2 tchar, 3 HTAB SP, 4 ';', 5 '=', 6 ',', 7 '\\', 8 '"'
	0, 0, 0, 0, 0, 0, 0, 0, 0, 3, 0, 0, 0, 0, 0, 0, // HTAB
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	3, 2, 8, 2, 2, 2, 2, 2, 1, 1, 2, 2, 6, 2, 2, 1, //   ! " # $ % & ' ( ) * + , - . /
	2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 1, 4, 1, 5, 1, 1, // 0 1 2 3 4 5 6 7 8 9 : ; < = > ?
	1, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, // @ A B C D E F G H I J K L M N O
	2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 1, 7, 1, 2, 2, // P Q R S T U V W X Y Z [ \ ] ^ _
	2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, // ` a b c d e f g h i j k l m n o
	2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 1, 2, 1, 2, 0, // p q r s t u v w x y z { | } ~
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
}
