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
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"mynewt.apache.org/agmgr/agxact/agdefs"
	"mynewt.apache.org/agmgr/agxact/agxutil"
)

type ResId uint8

const (
	RES_OK ResId = iota
	RES_ERROR
	RES_RING
	RES_VGS
	RES_VGM
	RES_CCWA
	RES_CHLD
	RES_CIND
	RES_CLIP
	RES_CIEV
	RES_BINP
	RES_BVRA
	RES_BRSF
	RES_BSIR
	RES_CNUM
	RES_BTRH
	RES_CLCC
	RES_COPS
	RES_CMEE
	RES_BCS
	RES_BIND
	RES_UNAT
)

type Result struct {
	Str string
	Id  ResId
	Fmt ArgFmt
}

// Result codes in match order.  The UNAT row matches anything and must
// remain last.
var Results = []Result{
	{"OK", RES_OK, FMT_NONE},
	{"ERROR", RES_ERROR, FMT_NONE},
	{"RING", RES_RING, FMT_NONE},
	{"+VGS: ", RES_VGS, FMT_INT},
	{"+VGM: ", RES_VGM, FMT_INT},
	{"+CCWA: ", RES_CCWA, FMT_STR},
	{"+CHLD: ", RES_CHLD, FMT_STR},
	{"+CIND: ", RES_CIND, FMT_STR},
	{"+CLIP: ", RES_CLIP, FMT_STR},
	{"+CIEV: ", RES_CIEV, FMT_STR},
	{"+BINP: ", RES_BINP, FMT_STR},
	{"+BVRA: ", RES_BVRA, FMT_INT},
	{"+BRSF: ", RES_BRSF, FMT_INT},
	{"+BSIR: ", RES_BSIR, FMT_INT},
	{"+CNUM: ", RES_CNUM, FMT_STR},
	{"+BTRH: ", RES_BTRH, FMT_INT},
	{"+CLCC: ", RES_CLCC, FMT_STR},
	{"+COPS: ", RES_COPS, FMT_STR},
	{"+CME ERROR: ", RES_CMEE, FMT_INT},
	{"+BCS: ", RES_BCS, FMT_INT},
	{"+BIND: ", RES_BIND, FMT_STR},
	{"", RES_UNAT, FMT_STR},
}

func ResultById(id ResId) *Result {
	for i := range Results {
		if Results[i].Id == id {
			return &Results[i]
		}
	}

	return nil
}

func (id ResId) String() string {
	r := ResultById(id)
	switch {
	case r == nil:
		return "???"
	case r.Id == RES_UNAT:
		return "unat"
	default:
		return strings.TrimRight(r.Str, ": ")
	}
}

// Template returns the result string as sent on the given service.  HSP
// volume results use '=' in place of the template's ':'.
func (r *Result) Template(svc agdefs.SvcIdx) string {
	if svc == agdefs.SVC_IDX_HSP && (r.Id == RES_VGS || r.Id == RES_VGM) {
		return strings.Replace(r.Str, ":", "=", 1)
	}
	return r.Str
}

// FormatResult builds the bytes for a result code: CR LF, the result
// string, the argument, CR LF.  Integer arguments are sent as unsigned
// 16-bit values.
func FormatResult(id ResId, svc agdefs.SvcIdx, strArg string,
	intArg int) ([]byte, error) {

	r := ResultById(id)
	if r == nil {
		return nil, fmt.Errorf("unknown result code: %d", id)
	}

	if len(strArg) >= AtMaxLen {
		return nil, agxutil.FmtAtError(agdefs.CME_TEXT_TOO_LONG,
			"result argument too long: %d", len(strArg))
	}

	var buf bytes.Buffer
	buf.WriteString("\r\n")
	buf.WriteString(r.Template(svc))

	switch r.Fmt {
	case FMT_INT:
		buf.WriteString(strconv.FormatUint(uint64(uint16(intArg)), 10))
	case FMT_STR:
		buf.WriteString(strArg)
	}

	buf.WriteString("\r\n")
	return buf.Bytes(), nil
}

// ParseResult recovers the result code and argument from bytes produced by
// FormatResult.  UNAT text carries no tag of its own, so UNAT output that
// reads like a known result (e.g. "OK") parses as that result.
func ParseResult(b []byte, svc agdefs.SvcIdx) (ResId, string, int, error) {
	s := string(b)
	if len(s) < 4 || !strings.HasPrefix(s, "\r\n") ||
		!strings.HasSuffix(s, "\r\n") {

		return RES_UNAT, "", 0, fmt.Errorf("result not framed by CR LF: %q", s)
	}
	s = s[2 : len(s)-2]

	for i := range Results {
		r := &Results[i]
		tmpl := r.Template(svc)
		if !strings.HasPrefix(s, tmpl) {
			continue
		}
		arg := s[len(tmpl):]

		switch r.Fmt {
		case FMT_NONE:
			if arg != "" {
				continue
			}
			return r.Id, "", 0, nil

		case FMT_INT:
			u, err := strconv.ParseUint(arg, 10, 16)
			if err != nil {
				continue
			}
			return r.Id, "", int(u), nil

		default:
			return r.Id, arg, 0, nil
		}
	}

	return RES_UNAT, s, 0, nil
}
