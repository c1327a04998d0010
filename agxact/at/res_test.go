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
	"testing"

	"mynewt.apache.org/agmgr/agxact/agdefs"
	"mynewt.apache.org/agmgr/agxact/agxutil"
)

func TestResultRoundTrip(t *testing.T) {
	for _, svc := range []agdefs.SvcIdx{agdefs.SVC_IDX_HSP, agdefs.SVC_IDX_HFP} {
		for _, r := range Results {
			strArg := ""
			intArg := 0

			switch r.Fmt {
			case FMT_INT:
				intArg = 12
			case FMT_STR:
				strArg = "1,2"
				if r.Id == RES_UNAT {
					strArg = "+XAPL=iPhone,2"
				}
			}

			b, err := FormatResult(r.Id, svc, strArg, intArg)
			if err != nil {
				t.Fatalf("format %s failed: %s", r.Id, err.Error())
			}

			id, s, n, err := ParseResult(b, svc)
			if err != nil {
				t.Fatalf("parse %q failed: %s", b, err.Error())
			}
			if id != r.Id || s != strArg || n != intArg {
				t.Errorf("%s/%s: round trip mismatch: got (%s, %q, %d)",
					svc, r.Id, id, s, n)
			}
		}
	}
}

func TestResultUnatMatchesKnown(t *testing.T) {
	b, err := FormatResult(RES_UNAT, agdefs.SVC_IDX_HFP, "OK", 0)
	if err != nil {
		t.Fatalf("format failed: %s", err.Error())
	}
	if string(b) != "\r\nOK\r\n" {
		t.Fatalf("unexpected unat output %q", b)
	}

	id, s, _, err := ParseResult(b, agdefs.SVC_IDX_HFP)
	if err != nil {
		t.Fatalf("parse failed: %s", err.Error())
	}
	if id != RES_OK || s != "" {
		t.Fatalf("expected plain OK, got (%s, %q)", id, s)
	}
}

func TestResultHspVolume(t *testing.T) {
	tests := []struct {
		id   ResId
		svc  agdefs.SvcIdx
		want string
	}{
		{RES_VGS, agdefs.SVC_IDX_HSP, "\r\n+VGS= 9\r\n"},
		{RES_VGM, agdefs.SVC_IDX_HSP, "\r\n+VGM= 9\r\n"},
		{RES_VGS, agdefs.SVC_IDX_HFP, "\r\n+VGS: 9\r\n"},
		{RES_BVRA, agdefs.SVC_IDX_HSP, "\r\n+BVRA: 9\r\n"},
	}

	for _, test := range tests {
		b, err := FormatResult(test.id, test.svc, "", 9)
		if err != nil {
			t.Fatalf("format failed: %s", err.Error())
		}
		if string(b) != test.want {
			t.Errorf("got %q, want %q", b, test.want)
		}
	}
}

func TestResultUnsigned(t *testing.T) {
	b, err := FormatResult(RES_BTRH, agdefs.SVC_IDX_HFP, "", -1)
	if err != nil {
		t.Fatalf("format failed: %s", err.Error())
	}
	if string(b) != "\r\n+BTRH: 65535\r\n" {
		t.Errorf("got %q", b)
	}
}

func TestResultTooLong(t *testing.T) {
	_, err := FormatResult(RES_CNUM, agdefs.SVC_IDX_HFP,
		strings.Repeat("5", AtMaxLen), 0)
	if err == nil {
		t.Fatalf("expected error for oversized argument")
	}

	ae := agxutil.ToAt(err)
	if ae == nil || ae.Cme != agdefs.CME_TEXT_TOO_LONG {
		t.Errorf("wrong error: %v", err)
	}
}

func TestParseResultUnframed(t *testing.T) {
	if _, _, _, err := ParseResult([]byte("OK"), agdefs.SVC_IDX_HFP); err == nil {
		t.Errorf("expected error for unframed result")
	}
}
