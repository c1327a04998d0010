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

package ag

import (
	"strings"
	"testing"

	"mynewt.apache.org/agmgr/agxact/agdefs"
	"mynewt.apache.org/agmgr/agxact/xport"
)

// Connects a wide band speech capable peer that has sent AT+BAC=1,2.
func connectWbs(h *harness) (uint16, xport.Port) {
	handle := h.register(agdefs.HFP_SERVICE_MASK,
		agdefs.FEAT_CODEC|agdefs.FEAT_ESCO|agdefs.FEAT_EXTERR)
	h.addHfRecord(peerA, 5, agdefs.HFP_VERSION_1_7,
		agdefs.SDP_FEAT_WBS_SUPPORT)

	port := h.connectHfp(peerA,
		agdefs.PEER_FEAT_CODEC|agdefs.PEER_FEAT_ESCO)

	expectRsp(h.t, h.send(port, "AT+BAC=1,2"), "OK")
	h.clearEvts()

	return handle, port
}

func (h *harness) audioOpen(handle uint16, port xport.Port) string {
	h.ag.AudioOpen(handle)
	h.loop.Drain()
	return h.sim.Rfcomm.TakeSent(port)
}

func TestAudioOpenMsbc(t *testing.T) {
	h := newHarness(t, 1)
	handle, port := connectWbs(h)

	scb := h.scb(handle)
	if scb.peerCodecs != agdefs.CODEC_CVSD|agdefs.CODEC_MSBC {
		t.Fatalf("unexpected peer codecs: %s", scb.peerCodecs)
	}

	expectRsp(t, h.audioOpen(handle, port), "+BCS: 2")
	if h.ag.sco.state != SCO_STATE_CODEC {
		t.Fatalf("expected codec state, got %s", h.ag.sco.state)
	}

	expectRsp(t, h.send(port, "AT+BCS=2"), "OK")

	if len(h.evtsOfType(EVT_AUDIO_OPEN)) != 1 {
		t.Fatalf("expected one audio open event")
	}
	bcs := h.atEvts(agdefs.AT_EVT_BCS)
	if len(bcs) != 1 || agdefs.Codec(bcs[0].Num) != agdefs.CODEC_MSBC {
		t.Fatalf("unexpected bcs events: %+v", bcs)
	}

	link, ok := h.sim.Sco.Connected(peerA)
	if !ok {
		t.Fatalf("no audio link")
	}
	if !link.Orig || link.Params.Setting != xport.SCO_SETTING_MSBC_T2 {
		t.Fatalf("unexpected link: %+v", link)
	}
	if h.ag.sco.state != SCO_STATE_OPEN || !h.ag.scoIsOpen(scb) {
		t.Fatalf("expected open state, got %s", h.ag.sco.state)
	}
	if timerPending(scb.codecTmr) {
		t.Fatalf("codec timer still running")
	}

	// The codec is not negotiated again for the next link.
	h.ag.AudioClose(handle)
	h.loop.Drain()
	if rsp := h.audioOpen(handle, port); rsp != "" {
		t.Fatalf("unexpected renegotiation: %q", rsp)
	}
	if n := len(h.evtsOfType(EVT_AUDIO_OPEN)); n != 2 {
		t.Fatalf("expected two audio open events, got %d", n)
	}
}

func TestAudioOpenFallback(t *testing.T) {
	h := newHarness(t, 1)
	handle, port := connectWbs(h)

	// Both mSBC settings fail.
	h.sim.Sco.FailNext(2)

	expectRsp(t, h.audioOpen(handle, port), "+BCS: 2")

	rsp := h.send(port, "AT+BCS=2")
	expectRsp(t, rsp, "OK", "+BCS: 1")

	if len(h.evtsOfType(EVT_AUDIO_OPEN)) != 0 ||
		len(h.evtsOfType(EVT_AUDIO_CLOSE)) != 0 {

		t.Fatalf("unexpected audio events during fallback")
	}

	expectRsp(t, h.send(port, "AT+BCS=1"), "OK")

	if len(h.evtsOfType(EVT_AUDIO_OPEN)) != 1 {
		t.Fatalf("expected one audio open event")
	}

	link, ok := h.sim.Sco.Connected(peerA)
	if !ok {
		t.Fatalf("no audio link")
	}
	exp := xport.ScoParams{
		Setting:  xport.SCO_SETTING_CVSD_S3,
		PktTypes: SCO_PKT_TYPES_DFLT | SCO_PKT_NO_3_EV3,
	}
	if link.Params != exp {
		t.Fatalf("unexpected link params: %+v", link.Params)
	}

	scb := h.scb(handle)
	if scb.codecFallback || !scb.codecUpdated {
		t.Fatalf("fallback not reset; fallback=%t updated=%t",
			scb.codecFallback, scb.codecUpdated)
	}
}

func TestAudioOpenCodecTimeout(t *testing.T) {
	h := newHarness(t, 1)
	handle, port := connectWbs(h)

	expectRsp(t, h.audioOpen(handle, port), "+BCS: 2")

	h.loop.Advance(h.ag.cfg.CodecNegoTimeout)

	if len(h.evtsOfType(EVT_AUDIO_CLOSE)) != 1 {
		t.Fatalf("expected one audio close event")
	}
	if h.ag.sco.state != SCO_STATE_LISTEN {
		t.Fatalf("expected listen state, got %s", h.ag.sco.state)
	}
	if _, ok := h.sim.Sco.Connected(peerA); ok {
		t.Fatalf("audio link opened")
	}

	// A late answer does not open anything.
	h.send(port, "AT+BCS=2")
	if len(h.evtsOfType(EVT_AUDIO_OPEN)) != 0 {
		t.Fatalf("audio opened after timeout")
	}
}

func TestAudioOpenCvsdOnly(t *testing.T) {
	h := newHarness(t, 1)
	handle := h.register(agdefs.HFP_SERVICE_MASK, 0)
	port := h.connectHfp(peerA, 0)

	// No codec negotiation; the link goes straight up.
	if rsp := h.audioOpen(handle, port); rsp != "" {
		t.Fatalf("unexpected output: %q", rsp)
	}
	if len(h.evtsOfType(EVT_AUDIO_OPEN)) != 1 {
		t.Fatalf("expected one audio open event")
	}

	link, ok := h.sim.Sco.Connected(peerA)
	if !ok {
		t.Fatalf("no audio link")
	}
	if link.Params.Setting != xport.SCO_SETTING_CVSD_S3 ||
		link.Params.MaxLatencyMs != 10 {

		t.Fatalf("unexpected link params: %+v", link.Params)
	}
}

func TestAudioClose(t *testing.T) {
	h := newHarness(t, 1)
	handle, port := connectWbs(h)
	h.audioOpen(handle, port)
	h.send(port, "AT+BCS=2")

	h.ag.AudioClose(handle)
	h.loop.Drain()

	if len(h.evtsOfType(EVT_AUDIO_CLOSE)) != 1 {
		t.Fatalf("expected one audio close event")
	}
	if h.ag.sco.state != SCO_STATE_LISTEN {
		t.Fatalf("expected listen state, got %s", h.ag.sco.state)
	}

	// The gateway listens for the peer again.
	links := h.sim.Sco.Links()
	if len(links) != 1 || links[0].Orig || links[0].Connected ||
		links[0].Peer != peerA {

		t.Fatalf("unexpected links: %+v", links)
	}
	if h.scb(handle).scoIdx != links[0].Idx {
		t.Fatalf("listening link not recorded")
	}
}

func TestAudioNotAllowed(t *testing.T) {
	h := newHarness(t, 1)
	handle, port := connectWbs(h)

	h.ag.SetScoAllowed(false)
	if rsp := h.audioOpen(handle, port); rsp != "" {
		t.Fatalf("unexpected output: %q", rsp)
	}
	if len(h.evts) != 0 {
		t.Fatalf("unexpected events: %d", len(h.evts))
	}
	if h.ag.sco.state != SCO_STATE_LISTEN {
		t.Fatalf("expected listen state, got %s", h.ag.sco.state)
	}
}

func TestPeerAudioRequest(t *testing.T) {
	h := newHarness(t, 1)
	handle := h.register(agdefs.HFP_SERVICE_MASK, 0)
	h.connectHfp(peerA, 0)

	idx := h.sim.Sco.Request(peerA)
	h.loop.Drain()

	if len(h.evtsOfType(EVT_AUDIO_OPEN)) != 1 {
		t.Fatalf("expected one audio open event")
	}
	link, ok := h.sim.Sco.Connected(peerA)
	if !ok || link.Idx != idx {
		t.Fatalf("request not accepted")
	}
	if link.Params.Setting != xport.SCO_SETTING_CVSD_S3 {
		t.Fatalf("unexpected link params: %+v", link.Params)
	}

	if err := h.sim.Sco.Drop(idx); err != nil {
		t.Fatalf("drop failed: %s", err.Error())
	}
	h.loop.Drain()

	if len(h.evtsOfType(EVT_AUDIO_CLOSE)) != 1 {
		t.Fatalf("expected one audio close event")
	}
	if h.ag.sco.state != SCO_STATE_LISTEN {
		t.Fatalf("expected listen state, got %s", h.ag.sco.state)
	}
	if h.scb(handle).scoIdx == xport.SCO_IDX_INVALID {
		t.Fatalf("no listening link after peer close")
	}
}

func TestPeerAudioRequestNotActive(t *testing.T) {
	h := newHarness(t, 2)
	h.register(agdefs.HFP_SERVICE_MASK, 0)
	h.register(agdefs.HFP_SERVICE_MASK, 0)
	h.connectHfp(peerA, 0)
	h.connectHfp(peerB, 0)
	h.clearEvts()

	h.sim.Sco.Request(peerB)
	h.loop.Drain()

	if len(h.evts) != 0 {
		t.Fatalf("unexpected events: %d", len(h.evts))
	}
	for _, l := range h.sim.Sco.Links() {
		if l.Peer == peerB {
			t.Fatalf("request from %s not rejected", peerB)
		}
	}
}

func TestAudioIgnoredWhenShutdown(t *testing.T) {
	h := newHarness(t, 1)
	handle := h.register(agdefs.HFP_SERVICE_MASK, 0)

	scb := h.scb(handle)
	h.ag.scoEvent(scb, SCO_EVT_OPEN)
	h.ag.scoEvent(scb, SCO_EVT_CLOSE)
	h.ag.scoEvent(scb, SCO_EVT_CONN_CLOSE)

	if h.ag.sco.state != SCO_STATE_SHUTDOWN {
		t.Fatalf("expected shutdown state, got %s", h.ag.sco.state)
	}
	if n := len(h.sim.Sco.Links()); n != 0 {
		t.Fatalf("unexpected links: %d", n)
	}
}

func TestCloseWithAudioOpen(t *testing.T) {
	h := newHarness(t, 1)
	handle, port := connectWbs(h)
	h.audioOpen(handle, port)
	h.send(port, "AT+BCS=2")

	h.ag.Close(handle)
	h.loop.Drain()

	if len(h.evtsOfType(EVT_AUDIO_CLOSE)) != 1 {
		t.Fatalf("expected one audio close event")
	}
	if len(h.evtsOfType(EVT_CLOSE)) != 1 {
		t.Fatalf("expected one close event")
	}
	if h.ag.sco.state != SCO_STATE_SHUTDOWN {
		t.Fatalf("expected shutdown state, got %s", h.ag.sco.state)
	}
	if n := len(h.sim.Sco.Links()); n != 0 {
		t.Fatalf("unexpected links: %+v", h.sim.Sco.Links())
	}
}

func TestActiveDevice(t *testing.T) {
	h := newHarness(t, 1)

	var got agdefs.BdAddr
	query := func() agdefs.BdAddr {
		got = peerA
		h.ag.ActiveDevice(func(addr agdefs.BdAddr) { got = addr })
		h.loop.Drain()
		return got
	}

	if addr := query(); !addr.IsEmpty() {
		t.Fatalf("unexpected active device %s", addr)
	}

	h.ag.SetActiveDevice(peerB)
	if addr := query(); addr != peerB {
		t.Fatalf("expected active device %s, got %s", peerB, addr)
	}

	h.ag.ClearActiveDevice()
	if addr := query(); !addr.IsEmpty() {
		t.Fatalf("active device not cleared: %s", addr)
	}
}

func connectCodecs(h *harness, bac string) (uint16, xport.Port) {
	handle := h.register(agdefs.HFP_SERVICE_MASK,
		agdefs.FEAT_CODEC|agdefs.FEAT_ESCO|agdefs.FEAT_EXTERR)
	h.addHfRecord(peerA, 5, agdefs.HFP_VERSION_1_7,
		agdefs.SDP_FEAT_WBS_SUPPORT)
	port := h.connectHfp(peerA,
		agdefs.PEER_FEAT_CODEC|agdefs.PEER_FEAT_ESCO)

	expectRsp(h.t, h.send(port, "AT+BAC="+bac), "OK")
	h.clearEvts()

	return handle, port
}

func TestCodecMismatchFallback(t *testing.T) {
	h := newHarness(t, 1)
	handle, port := connectCodecs(h, "2")

	scb := h.scb(handle)
	if scb.peerCodecs != agdefs.CODEC_MSBC {
		t.Fatalf("unexpected peer codecs: %s", scb.peerCodecs)
	}

	expectRsp(t, h.audioOpen(handle, port), "+BCS: 2")

	// The peer confirms a codec it never listed.
	rsp := h.send(port, "AT+BCS=1")
	expectRsp(t, rsp, "OK", "+BCS: 1")
	if !scb.codecFallback {
		t.Fatalf("codec fallback not set")
	}
	if h.ag.sco.state != SCO_STATE_CODEC {
		t.Fatalf("expected codec state, got %s", h.ag.sco.state)
	}
	if len(h.evtsOfType(EVT_AUDIO_OPEN)) != 0 {
		t.Fatalf("audio opened before negotiation finished")
	}

	expectRsp(t, h.send(port, "AT+BCS=1"), "OK")

	if len(h.evtsOfType(EVT_AUDIO_OPEN)) != 1 {
		t.Fatalf("expected one audio open event")
	}
	link, ok := h.sim.Sco.Connected(peerA)
	if !ok {
		t.Fatalf("no audio link")
	}
	if link.Params.Setting != xport.SCO_SETTING_CVSD_S3 &&
		link.Params.Setting != xport.SCO_SETTING_CVSD_S4 {

		t.Fatalf("expected a cvsd link, got %s", link.Params.Setting)
	}
}

func TestCodecPeerAlternative(t *testing.T) {
	h := newHarness(t, 1)
	handle, port := connectCodecs(h, "1,2")

	expectRsp(t, h.audioOpen(handle, port), "+BCS: 2")

	// CVSD differs from the offer but is in the peer's list.
	rsp := h.send(port, "AT+BCS=1")
	expectRsp(t, rsp, "OK")
	if strings.Contains(rsp, "+BCS") {
		t.Fatalf("unexpected renegotiation: %q", rsp)
	}

	scb := h.scb(handle)
	if scb.codecFallback {
		t.Fatalf("codec fallback set for a supported codec")
	}
	if scb.scoCodec != agdefs.CODEC_CVSD {
		t.Fatalf("expected cvsd, got %s", scb.scoCodec)
	}

	bcs := h.atEvts(agdefs.AT_EVT_BCS)
	if len(bcs) != 1 || agdefs.Codec(bcs[0].Num) != agdefs.CODEC_CVSD {
		t.Fatalf("unexpected bcs events: %+v", bcs)
	}
	if len(h.evtsOfType(EVT_AUDIO_OPEN)) != 1 {
		t.Fatalf("expected one audio open event")
	}
}
