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
)

type cmdRec struct {
	id      CmdId
	argType ArgType
	arg     string
	intArg  int
}

type errRec struct {
	unknown bool
	text    string
}

type recorder struct {
	cmds []cmdRec
	errs []errRec
}

func newRecorder(tbl []Cmd) (*recorder, *Interp) {
	r := &recorder{}
	ip := NewInterp(tbl,
		func(cmd *Cmd, argType ArgType, arg string, intArg int) {
			r.cmds = append(r.cmds, cmdRec{cmd.Id, argType, arg, intArg})
		},
		func(unknown bool, text string) {
			r.errs = append(r.errs, errRec{unknown, text})
		})

	return r, ip
}

func TestLookup(t *testing.T) {
	tests := []struct {
		s  string
		id CmdId
	}{
		{"+CHLD=2", CMD_CHLD},
		{"D5551234;", CMD_D},
		{"+vgs=3", CMD_VGS},
		{"+BIND=?", CMD_BIND},
		{"+BINP=1", CMD_BINP},
		{"+BIEV=2,50", CMD_BIEV},
		{"A", CMD_A},
		{"+XAPL=1", CMD_NONE},
	}

	for _, test := range tests {
		cmd := Lookup(HfpCmds, test.s)
		if test.id == CMD_NONE {
			if cmd != nil {
				t.Errorf("lookup %q: expected no match, got %s", test.s, cmd)
			}
			continue
		}

		if cmd == nil || cmd.Id != test.id {
			t.Errorf("lookup %q: wrong match: %v", test.s, cmd)
		}
	}

	if Lookup(HspCmds, "+CHUP") != nil {
		t.Errorf("HSP table should not contain +CHUP")
	}
}

func TestClassifyArg(t *testing.T) {
	tests := []struct {
		s       string
		argType ArgType
		arg     string
	}{
		{"", ARG_NONE, ""},
		{"?", ARG_READ, ""},
		{"=?", ARG_TEST, ""},
		{"=5", ARG_SET, "5"},
		{"=", ARG_FREE, "="},
		{"123;", ARG_FREE, "123;"},
		{"?x", ARG_FREE, "?x"},
	}

	for _, test := range tests {
		argType, arg := ClassifyArg(test.s)
		if argType != test.argType || arg != test.arg {
			t.Errorf("classify %q: got (%s, %q), want (%s, %q)",
				test.s, argType, arg, test.argType, test.arg)
		}
	}
}

func TestInterpDispatch(t *testing.T) {
	r, ip := newRecorder(HfpCmds)

	ip.Parse([]byte("AT+VGS=7\r"))
	ip.Parse([]byte("AT+CIND=?\rAT+CIND?\r"))
	ip.Parse([]byte("ATD5551234;\r"))
	ip.Parse([]byte("at+chup\n"))

	want := []cmdRec{
		{CMD_VGS, ARG_SET, "7", 7},
		{CMD_CIND, ARG_TEST, "", 0},
		{CMD_CIND, ARG_READ, "", 0},
		{CMD_D, ARG_FREE, "5551234;", 0},
		{CMD_CHUP, ARG_NONE, "", 0},
	}

	if len(r.errs) != 0 {
		t.Fatalf("unexpected errors: %+v", r.errs)
	}
	if len(r.cmds) != len(want) {
		t.Fatalf("got %d commands, want %d: %+v", len(r.cmds), len(want),
			r.cmds)
	}
	for i := range want {
		if r.cmds[i] != want[i] {
			t.Errorf("command %d: got %+v, want %+v", i, r.cmds[i], want[i])
		}
	}
}

func TestInterpErrors(t *testing.T) {
	r, ip := newRecorder(HfpCmds)

	ip.Parse([]byte("AT+VGS=16\r"))   // out of range
	ip.Parse([]byte("AT+CHUP=1\r"))   // set not allowed
	ip.Parse([]byte("AT+XAPL=1\r"))   // unknown
	ip.Parse([]byte("AT+BRSF=abc\r")) // not a number
	ip.Parse([]byte("AT\r"))

	want := []errRec{
		{false, ""},
		{false, ""},
		{true, "+XAPL=1"},
		{false, ""},
		{true, ""},
	}

	if len(r.cmds) != 0 {
		t.Fatalf("unexpected commands: %+v", r.cmds)
	}
	if len(r.errs) != len(want) {
		t.Fatalf("got %d errors, want %d: %+v", len(r.errs), len(want),
			r.errs)
	}
	for i := range want {
		if r.errs[i] != want[i] {
			t.Errorf("error %d: got %+v, want %+v", i, r.errs[i], want[i])
		}
	}
}

func TestInterpPartialLines(t *testing.T) {
	r, ip := newRecorder(HfpCmds)

	ip.Parse([]byte("AT+BR"))
	if len(r.cmds) != 0 {
		t.Fatalf("partial line dispatched")
	}

	ip.Parse([]byte("SF=63\r\x00\x00AT+CMEE=1\r"))
	if len(r.cmds) != 2 {
		t.Fatalf("got %d commands, want 2", len(r.cmds))
	}
	if r.cmds[0].id != CMD_BRSF || r.cmds[0].intArg != 63 {
		t.Errorf("wrong first command: %+v", r.cmds[0])
	}
	if r.cmds[1].id != CMD_CMEE || r.cmds[1].intArg != 1 {
		t.Errorf("wrong second command: %+v", r.cmds[1])
	}

	// Lines not starting with AT are dropped silently.
	ip.Parse([]byte("OK\r"))
	if len(r.cmds) != 2 || len(r.errs) != 0 {
		t.Errorf("non-AT line was processed")
	}

	ip.Parse([]byte("AT+VG"))
	ip.Reinit()
	ip.Parse([]byte("AT+CHUP\r"))
	if len(r.cmds) != 3 || r.cmds[2].id != CMD_CHUP {
		t.Errorf("reinit did not discard partial line: %+v", r.cmds)
	}
}

func TestInterpOverflow(t *testing.T) {
	r, ip := newRecorder(HfpCmds)

	ip.Parse([]byte("AT+" + strings.Repeat("X", 600) + "\rAT+CHUP\r"))

	if len(r.cmds) != 1 || r.cmds[0].id != CMD_CHUP {
		t.Errorf("command after overflow not dispatched: %+v", r.cmds)
	}
	if len(r.errs) != 0 {
		t.Errorf("overflowed line should be dropped, got %+v", r.errs)
	}
}

func TestInterpAbort(t *testing.T) {
	r, ip := newRecorder(HfpCmds)

	ip.Parse([]byte("AT+CMGS\x1a"))
	if len(r.errs) != 1 || !r.errs[0].unknown ||
		r.errs[0].text != "AT+CMGS\x1a" {

		t.Errorf("wrong abort handling: %+v", r.errs)
	}
}

func TestInterpHsp(t *testing.T) {
	r, ip := newRecorder(HspCmds)

	ip.Parse([]byte("AT+CKPD=200\rAT+CKPD=199\rAT+VGM=15\r"))

	if len(r.cmds) != 2 {
		t.Fatalf("got %d commands, want 2", len(r.cmds))
	}
	if r.cmds[0].id != CMD_CKPD || r.cmds[1].id != CMD_VGM {
		t.Errorf("wrong commands: %+v", r.cmds)
	}
	if len(r.errs) != 1 || r.errs[0].unknown {
		t.Errorf("wrong errors: %+v", r.errs)
	}
}
