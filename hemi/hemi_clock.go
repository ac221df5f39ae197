// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Clock keeps the current HTTP date and formats times for headers and logs.

package hemi

import (
	"sync/atomic"
	"time"
)

// clock caches the current unix time. It is refreshed by the tick cronjob and read by the reactor.
type clock struct {
	unixTime atomic.Int64
}

func (c *clock) update(now time.Time) { c.unixTime.Store(now.Unix()) }
func (c *clock) now() int64 {
	if t := c.unixTime.Load(); t != 0 {
		return t
	}
	return time.Now().Unix()
}

// date returns the cached time as "Sun, 06 Nov 1994 08:49:37 GMT".
func (c *clock) date() string { return clockHTTPDate(c.now()) }

// clockHTTPDate formats unixTime as an IMF-fixdate.
func clockHTTPDate(unixTime int64) string {
	var buf [clockHTTPDateSize]byte
	clockWriteHTTPDate(buf[:], time.Unix(unixTime, 0))
	return string(buf[:])
}
func clockWriteHTTPDate(dst []byte, date time.Time) int {
	if len(dst) < clockHTTPDateSize {
		BugExitln("invalid buffer for clockWriteHTTPDate")
	}
	date = date.UTC()
	i := copy(dst, clockDayString[3*date.Weekday():3*date.Weekday()+3])
	dst[i] = ','
	dst[i+1] = ' '
	year, month, day := date.Date()
	clockPut2(dst[5:], day)
	dst[7] = ' '
	copy(dst[8:], clockMonthString[3*(month-1):3*month])
	dst[11] = ' '
	clockPut2(dst[12:], year/100)
	clockPut2(dst[14:], year%100)
	dst[16] = ' '
	hour, minute, second := date.Clock()
	clockPut2(dst[17:], hour)
	dst[19] = ':'
	clockPut2(dst[20:], minute)
	dst[22] = ':'
	clockPut2(dst[23:], second)
	copy(dst[25:], " GMT")
	return clockHTTPDateSize
}
func clockPut2(dst []byte, n int) {
	dst[0] = byte(n/10%10) + '0'
	dst[1] = byte(n%10) + '0'
}

// clockParseHTTPDate parses IMF-fixdate, RFC 850 and asctime dates into unix time.
func clockParseHTTPDate(date []byte) (int64, bool) {
	s := string(date)
	for _, layout := range clockHTTPDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Unix(), true
		}
	}
	return 0, false
}

// clockAccessTime formats a time the way access logs want it.
func clockAccessTime(t time.Time) string { return t.Format("02/Jan/2006:15:04:05 -0700") }

// clockErrorTime formats a time the way error logs want it.
func clockErrorTime(t time.Time) string { return t.Format("Mon Jan _2 15:04:05 2006") }

const ( // clock related
	clockHTTPDateSize = len("Sun, 06 Nov 1994 08:49:37 GMT")
	clockDayString    = "SunMonTueWedThuFriSat"
	clockMonthString  = "JanFebMarAprMayJunJulAugSepOctNovDec"
)

var clockHTTPDateLayouts = [...]string{
	"Mon, 02 Jan 2006 15:04:05 GMT",  // IMF-fixdate
	"Monday, 02-Jan-06 15:04:05 GMT", // obsolete RFC 850
	"Mon Jan _2 15:04:05 2006",       // asctime
}
