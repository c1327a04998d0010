/**
 * Licensed to the Apache Software Foundation (ASF) under one
 * or more contributor license agreements.  See the NOTICE file
 * distributed with this work for additional information
 * regarding copyright ownership.  The ASF licenses this file
 * to you under the Apache License, Version 2.0 (the
 * "License"); you may not use this file except in compliance
 * with the License.  You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package at

import (
	"strings"

	"mynewt.apache.org/agmgr/agxact/agdefs"
)

// Returned by ParseChld when the argument is not a usable index.
const InvalidChld uint8 = 255

// Str2Int converts a decimal string to a non-negative integer no larger than
// CMD_MAX_VAL.  Leading spaces are skipped.  Returns -1 if s is empty,
// contains a non-digit, or overflows.
func Str2Int(s string) int {
	s = strings.TrimLeft(s, " ")
	if s == "" {
		return -1
	}

	val := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return -1
		}
		val = val*10 + int(c-'0')
		if val > CMD_MAX_VAL {
			return -1
		}
	}

	return val
}

// ParseCmer parses the four comma separated fields of AT+CMER.  Indicator
// reporting is enabled or disabled only when the mode field is 3 and the
// indicator field is 0 or 1; otherwise enabled is returned unchanged.  The
// second return value is false if the mode or indicator field is missing or
// invalid.
func ParseCmer(s string, enabled bool) (bool, bool) {
	fields := strings.SplitN(s, ",", 5)
	if len(fields) < 4 {
		return enabled, false
	}

	var n [4]int
	for i := range n {
		n[i] = Str2Int(fields[i])
	}

	if n[0] < 0 || n[3] < 0 {
		return enabled, false
	}

	if n[0] == 3 && (n[3] == 0 || n[3] == 1) {
		enabled = n[3] == 1
	}

	return enabled, true
}

// ParseChld returns the numeric value of an AT+CHLD argument, or
// InvalidChld if the argument does not start with a digit or is not a number
// below 255.
func ParseChld(s string) uint8 {
	if s == "" || s[0] < '0' || s[0] > '9' {
		return InvalidChld
	}

	v := Str2Int(s)
	if v < 0 || v >= int(InvalidChld) {
		return InvalidChld
	}

	return uint8(v)
}

// ChldCallIdx returns the ECC call index following the CHLD operation digit,
// or 0 if the argument is a bare operation.  The argument must already have
// passed ParseChld.
func ChldCallIdx(s string) uint8 {
	if len(s) < 2 {
		return 0
	}

	v := Str2Int(s[1:])
	if v < 0 || v >= int(InvalidChld) {
		return InvalidChld
	}
	return uint8(v)
}

// ParseBac converts the codec id list of AT+BAC into a codec mask.  Parsing
// stops at the end of the string or at an embedded NUL.  Unknown ids are
// ignored.
func ParseBac(s string) agdefs.Codec {
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}

	codecs := agdefs.CODEC_NONE
	for _, tok := range strings.Split(s, ",") {
		switch Str2Int(tok) {
		case agdefs.UUID_CODEC_CVSD:
			codecs |= agdefs.CODEC_CVSD
		case agdefs.UUID_CODEC_MSBC:
			codecs |= agdefs.CODEC_MSBC
		}
	}

	return codecs
}

// Splits on commas, dropping empty tokens.
func tokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' })
}

// ParseBindSet returns the HF indicator ids listed in AT+BIND=<a>,<b>,...
func ParseBindSet(s string) ([]uint16, bool) {
	toks := tokens(s)
	if len(toks) == 0 {
		return nil, false
	}

	ids := make([]uint16, 0, len(toks))
	for _, tok := range toks {
		v := Str2Int(tok)
		if v < 0 {
			return nil, false
		}
		ids = append(ids, uint16(v))
	}

	return ids, true
}

// ParseBiev returns the indicator id and value of AT+BIEV=<id>,<value>.
func ParseBiev(s string) (uint16, uint16, bool) {
	toks := tokens(s)
	if len(toks) < 2 {
		return 0, 0, false
	}

	id := Str2Int(toks[0])
	val := Str2Int(toks[1])
	if id < 0 || val < 0 {
		return 0, 0, false
	}

	return uint16(id), uint16(val), true
}

// ParseBia applies the AT+BIA activation list to an indicator mask.  Bit n
// set in the mask means indicator n is masked out.  An empty position leaves
// the indicator unchanged.  Returns false if the list is malformed, in which
// case the mask must not be applied.
func ParseBia(s string, masked uint32) (uint32, bool) {
	i := 0

loop:
	for id := 1; i < len(s) && id <= 20; i, id = i+1, id+1 {
		if s[i] == ',' {
			continue
		}

		switch s[i] {
		case '0':
			masked |= 1 << uint(id)
		case '1':
			masked &^= 1 << uint(id)
		default:
			break loop
		}

		i++
		if i >= len(s) || s[i] != ',' {
			break
		}
	}

	return masked, i >= len(s)
}

// Number of indicators in a +CIND read response.
const NumCind = 7

// ParseCind extracts the indicator values from a +CIND read response of the
// form "a,b,c,d,e,f,g".
func ParseCind(s string) ([NumCind]int, bool) {
	var vals [NumCind]int

	fields := strings.Split(s, ",")
	if len(fields) < NumCind {
		return vals, false
	}

	for i := range vals {
		vals[i] = Str2Int(strings.TrimSpace(fields[i]))
		if vals[i] < 0 {
			return vals, false
		}
	}

	return vals, true
}

func isDialChar(c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'A' && c <= 'C':
		return true
	}

	return strings.IndexByte("*#+;pPwW", c) >= 0
}

// IsDialString reports whether s contains only dial characters: digits,
// A-C, '*', '#', '+', ';' and the pause characters p and w.
func IsDialString(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDialChar(s[i]) {
			return false
		}
	}
	return true
}

// IsDigits reports whether s contains only digits and the ';' terminator.
func IsDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && c != ';' {
			return false
		}
	}
	return true
}

func RemoveSpaces(s string) string {
	return strings.Replace(s, " ", "", -1)
}

// TrimUnatResult strips matching leading and trailing CR LF pairs from an
// application supplied result.
func TrimUnatResult(s string) string {
	for len(s) >= 4 && strings.HasPrefix(s, "\r\n") &&
		strings.HasSuffix(s, "\r\n") {

		s = s[2 : len(s)-2]
	}
	return s
}
