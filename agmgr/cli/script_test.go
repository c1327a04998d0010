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

package cli

import (
	"bytes"
	"io/ioutil"
	"strings"
	"testing"

	"mynewt.apache.org/agmgr/agxact/ag"
	"mynewt.apache.org/agmgr/agxact/agdefs"
)

const slcScript = `
# Incoming hands-free connection.
peer peer=00:11:22:33:44:55,svc=hfp,version=0x0107
register hfp 0
expect-evt register
accept
expect-evt open

hf AT+BRSF=0
expect +BRSF:
expect OK
hf AT+CMER=3,0,0,1
expect OK
expect-evt conn

result spk num=9
expect +VGS: 9
`

func TestScriptSlc(t *testing.T) {
	var log bytes.Buffer

	err := runScript(strings.NewReader(slcScript), &log, ioutil.Discard)
	if err != nil {
		t.Fatalf("script failed: %s\n%s", err.Error(), log.String())
	}

	if !strings.Contains(log.String(), `"Type":"conn"`) {
		t.Fatalf("conn event not logged:\n%s", log.String())
	}
}

func TestScriptCollision(t *testing.T) {
	script := `
peer peer=00:11:22:33:44:55,svc=hfp,version=0x0107
register hfp 0
expect-evt register

# Another profile connects while service discovery is outstanding.
sdp hold
open
collision
sdp release
wait 2
expect-evt open
`
	var log bytes.Buffer

	err := runScript(strings.NewReader(script), &log, nil)
	if err != nil {
		t.Fatalf("script failed: %s\n%s", err.Error(), log.String())
	}

	var opens []string
	for _, line := range strings.Split(log.String(), "\n") {
		if strings.Contains(line, `"Type":"open"`) {
			opens = append(opens, line)
		}
	}
	if len(opens) != 1 {
		t.Fatalf("expected one open event, got %d:\n%s",
			len(opens), log.String())
	}
	if !strings.Contains(opens[0], `"Status":"success"`) {
		t.Fatalf("open did not succeed after retry: %s", opens[0])
	}
}

func TestScriptBadSdpOperation(t *testing.T) {
	err := runScript(strings.NewReader("sdp pause\n"), ioutil.Discard, nil)
	if err == nil || !strings.Contains(err.Error(), "(sdp)") {
		t.Fatalf("expected sdp error, got %v", err)
	}
}

func TestScriptExpectFailure(t *testing.T) {
	script := slcScript + "expect +CIEV: 1,1\n"

	err := runScript(strings.NewReader(script), ioutil.Discard, nil)
	if err == nil {
		t.Fatalf("script with unmet expectation succeeded")
	}
	if !strings.Contains(err.Error(), "(expect)") {
		t.Fatalf("error does not name the failing command: %s", err.Error())
	}
}

func TestScriptUnknownCommand(t *testing.T) {
	err := runScript(strings.NewReader("bogus\n"), ioutil.Discard, nil)
	if err == nil || !strings.Contains(err.Error(), "line 1") {
		t.Fatalf("expected line 1 error, got %v", err)
	}
}

func TestScriptNotConnected(t *testing.T) {
	err := runScript(strings.NewReader("hf AT+BRSF=0\n"), ioutil.Discard, nil)
	if err == nil {
		t.Fatalf("hf without a connection succeeded")
	}
}

func TestParseScript(t *testing.T) {
	lines, err := parseScript(strings.NewReader(
		"# comment\n\nhf AT+CIND?  \nwait 1.5\n"))
	if err != nil {
		t.Fatalf("parse failed: %s", err.Error())
	}

	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].num != 3 || lines[0].verb != "hf" ||
		lines[0].rest != "AT+CIND?" {

		t.Fatalf("unexpected line: %+v", lines[0])
	}
	if lines[1].verb != "wait" || lines[1].rest != "1.5" {
		t.Fatalf("unexpected line: %+v", lines[1])
	}
}

func TestParseResData(t *testing.T) {
	rd, err := parseResData([]string{
		"num=3", "str=5551234", "ind=2:1", "ok=1", "audio=2", "state=true",
	})
	if err != nil {
		t.Fatalf("parse failed: %s", err.Error())
	}

	if rd.Num != 3 || rd.Str != "5551234" || rd.OkFlag != 1 ||
		rd.AudioHandle != 2 || !rd.State {

		t.Fatalf("unexpected result data: %+v", rd)
	}
	if rd.Ind.Id != 2 || rd.Ind.Value != 1 {
		t.Fatalf("unexpected indicator: %+v", rd.Ind)
	}

	bad := [][]string{
		{"num"},
		{"num=x"},
		{"ind=2"},
		{"color=red"},
	}
	for _, args := range bad {
		if _, err := parseResData(args); err == nil {
			t.Errorf("args %v accepted", args)
		}
	}
}

func TestEvtJson(t *testing.T) {
	evt := &ag.OpenEvt{
		EvtHdr: ag.EvtHdr{
			Handle: 1,
			Status: agdefs.STATUS_FAIL_SDP,
		},
		Addr:    agdefs.BdAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		Service: agdefs.SVC_IDX_HFP,
	}

	s := evtJson(evt)
	for _, want := range []string{
		`"Type":"open"`,
		`"Handle":1`,
		`"Status":"fail_sdp"`,
		`"Addr":"00:11:22:33:44:55"`,
		`"Service":"hfp"`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("%s lacks %s", s, want)
		}
	}
}

func TestParseFeatures(t *testing.T) {
	if f, err := parseFeatures(""); err != nil || f != DFLT_FEATURES {
		t.Fatalf("wrong default features: 0x%x %v", f, err)
	}
	if f, err := parseFeatures("0x201"); err != nil || f != 0x201 {
		t.Fatalf("wrong features: 0x%x %v", f, err)
	}
	if _, err := parseFeatures("lots"); err == nil {
		t.Fatalf("invalid features accepted")
	}
}
