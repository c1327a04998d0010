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
	"fmt"
	"testing"

	"mynewt.apache.org/agmgr/agxact/agdefs"
	"mynewt.apache.org/agmgr/agxact/xport"
)

func openEvts(h *harness) []*OpenEvt {
	var evts []*OpenEvt
	for _, evt := range h.evtsOfType(EVT_OPEN) {
		evts = append(evts, evt.(*OpenEvt))
	}
	return evts
}

func TestOpenHfp(t *testing.T) {
	h := newHarness(t, 1)
	handle := h.register(bothServices, 0)
	h.addHfRecord(peerA, 5, agdefs.HFP_VERSION_1_7, 0)

	h.ag.Open(handle, peerA, 0)
	h.loop.Drain()

	opens := openEvts(h)
	if len(opens) != 1 {
		t.Fatalf("expected one open event, got %d", len(opens))
	}
	if opens[0].Status != agdefs.STATUS_SUCCESS ||
		opens[0].Service != agdefs.SVC_IDX_HFP || opens[0].Addr != peerA {

		t.Fatalf("unexpected open event: %s", EvtString(opens[0]))
	}

	scb := h.scb(handle)
	if scb.state != STATE_OPEN || scb.role != agdefs.ROLE_INT {
		t.Fatalf("unexpected state=%s role=%d", scb.state, scb.role)
	}
	if v, ok := h.ag.store.Version(peerA); !ok || v != agdefs.HFP_VERSION_1_7 {
		t.Fatalf("peer version not stored: %x %t", v, ok)
	}

	// Servers stay closed while connected as initiator.
	if n := h.sim.Rfcomm.NumServers(); n != 0 {
		t.Fatalf("expected no servers, got %d", n)
	}

	port, ok := h.sim.Rfcomm.PortByPeer(peerA)
	if !ok {
		t.Fatalf("no connection to %s", peerA)
	}
	if !timerPending(scb.svcTmr) {
		t.Fatalf("service level timer not armed on open")
	}

	h.send(port, "AT+BRSF=0")
	if !timerPending(scb.svcTmr) {
		t.Fatalf("service level timer stopped before the SLC is up")
	}
	if len(h.evtsOfType(EVT_CONN)) != 0 {
		t.Fatalf("conn event before AT+CMER")
	}

	h.send(port, "AT+CMER=3,0,0,1")

	if len(h.evtsOfType(EVT_CONN)) != 1 {
		t.Fatalf("expected one conn event")
	}
	if timerPending(scb.svcTmr) {
		t.Fatalf("service level timer still running")
	}
}

func TestOpenFallbackToHsp(t *testing.T) {
	h := newHarness(t, 1)
	handle := h.register(bothServices, 0)
	h.sim.Sdp.AddPeerRecord(peerA, xport.SdpRecord{
		ServiceClass: agdefs.UUID_SERVCLASS_HEADSET_HS,
		Scn:          3,
		Version:      agdefs.HSP_VERSION_1_2,
		RemoteVolume: true,
	})

	h.ag.Open(handle, peerA, 0)
	h.loop.Drain()

	opens := openEvts(h)
	if len(opens) != 1 || opens[0].Status != agdefs.STATUS_SUCCESS ||
		opens[0].Service != agdefs.SVC_IDX_HSP {

		t.Fatalf("unexpected open events: %+v", opens)
	}

	// HSP needs no AT exchange.
	conns := h.evtsOfType(EVT_CONN)
	if len(conns) != 1 {
		t.Fatalf("expected one conn event, got %d", len(conns))
	}
	ce := conns[0].(*ConnEvt)
	if ce.PeerFeatures&agdefs.PEER_FEAT_VOL == 0 {
		t.Fatalf("remote volume not picked up: 0x%x", ce.PeerFeatures)
	}
}

func TestOpenFallbackToHsp10(t *testing.T) {
	h := newHarness(t, 1)
	handle := h.register(agdefs.HSP_SERVICE_MASK, 0)
	h.sim.Sdp.AddPeerRecord(peerA, xport.SdpRecord{
		ServiceClass: agdefs.UUID_SERVCLASS_HEADSET,
		Scn:          4,
		Version:      agdefs.HSP_VERSION_1_0,
	})

	h.ag.Open(handle, peerA, 0)
	h.loop.Drain()

	opens := openEvts(h)
	if len(opens) != 1 || opens[0].Status != agdefs.STATUS_SUCCESS {
		t.Fatalf("unexpected open events: %+v", opens)
	}
	if v := h.scb(handle).hspVersion; v != agdefs.HSP_VERSION_1_0 {
		t.Fatalf("expected HSP 1.0, got %x", v)
	}
}

func TestOpenNoService(t *testing.T) {
	h := newHarness(t, 1)
	handle := h.register(agdefs.HFP_SERVICE_MASK, 0)

	h.ag.Open(handle, peerA, 0)
	h.loop.Drain()

	opens := openEvts(h)
	if len(opens) != 1 || opens[0].Status != agdefs.STATUS_FAIL_SDP {
		t.Fatalf("unexpected open events: %+v", opens)
	}

	scb := h.scb(handle)
	if scb.state != STATE_INIT || !scb.peerAddr.IsEmpty() {
		t.Fatalf("unexpected state=%s peer=%s", scb.state, scb.peerAddr)
	}
	if n := h.sim.Rfcomm.NumServers(); n != 1 {
		t.Fatalf("expected server to be restarted")
	}
}

func TestOpenDiscoveryFailure(t *testing.T) {
	h := newHarness(t, 1)
	handle := h.register(bothServices, 0)
	h.sim.Sdp.AutoComplete = false

	h.ag.Open(handle, peerA, 0)
	h.loop.Drain()
	if !h.sim.Sdp.Fail(peerA) {
		t.Fatalf("no discovery pending")
	}
	h.loop.Drain()

	// A transport failure is not retried with another service.
	if h.sim.Sdp.Pending(peerA) {
		t.Fatalf("discovery retried")
	}
	opens := openEvts(h)
	if len(opens) != 1 || opens[0].Status != agdefs.STATUS_FAIL_SDP {
		t.Fatalf("unexpected open events: %+v", opens)
	}
}

func TestOpenConnectFailure(t *testing.T) {
	h := newHarness(t, 1)
	handle := h.register(agdefs.HFP_SERVICE_MASK, 0)
	h.addHfRecord(peerA, 5, agdefs.HFP_VERSION_1_7, 0)
	h.sim.Rfcomm.ConnectErr = fmt.Errorf("page timeout")

	h.ag.Open(handle, peerA, 0)
	h.loop.Drain()

	opens := openEvts(h)
	if len(opens) != 1 || opens[0].Status != agdefs.STATUS_FAIL_RFCOMM ||
		opens[0].Addr != peerA {

		t.Fatalf("unexpected open events: %+v", opens)
	}
	if st := h.scb(handle).state; st != STATE_INIT {
		t.Fatalf("expected init state, got %s", st)
	}
}

func TestOpenWhileOpen(t *testing.T) {
	h := newHarness(t, 1)
	handle := h.register(agdefs.HFP_SERVICE_MASK, 0)
	h.connectHfp(peerA, 0)
	h.clearEvts()

	h.ag.Open(handle, peerB, 0)
	h.loop.Drain()

	opens := openEvts(h)
	if len(opens) != 1 || opens[0].Status != agdefs.STATUS_FAIL_RESOURCES ||
		opens[0].Addr != peerB {

		t.Fatalf("unexpected open events: %+v", opens)
	}
	if h.scb(handle).peerAddr != peerA {
		t.Fatalf("existing connection disturbed")
	}
}

func TestCloseConnected(t *testing.T) {
	h := newHarness(t, 1)
	handle := h.register(agdefs.HFP_SERVICE_MASK, 0)
	h.connectHfp(peerA, 0)

	if h.ag.activeDevice != peerA {
		t.Fatalf("expected %s to be the active device", peerA)
	}

	h.ag.Close(handle)
	h.loop.Drain()

	closes := h.evtsOfType(EVT_CLOSE)
	if len(closes) != 1 || closes[0].(*CloseEvt).Addr != peerA {
		t.Fatalf("unexpected close events: %+v", closes)
	}

	scb := h.scb(handle)
	if scb.state != STATE_INIT || scb.svcConn {
		t.Fatalf("unexpected state=%s svc_conn=%t", scb.state, scb.svcConn)
	}
	if !h.ag.activeDevice.IsEmpty() {
		t.Fatalf("active device not cleared")
	}
	if h.ag.sco.state != SCO_STATE_SHUTDOWN {
		t.Fatalf("expected sco shutdown, got %s", h.ag.sco.state)
	}
}

func TestPeerDisconnect(t *testing.T) {
	h := newHarness(t, 1)
	handle := h.register(agdefs.HFP_SERVICE_MASK, 0)
	port := h.connectHfp(peerA, 0)

	if err := h.sim.Rfcomm.Disconnect(port); err != nil {
		t.Fatalf("disconnect failed: %s", err.Error())
	}
	h.loop.Drain()

	if len(h.evtsOfType(EVT_CLOSE)) != 1 {
		t.Fatalf("expected one close event")
	}

	// The block accepts a new connection.
	h.clearEvts()
	h.connectHfp(peerB, 0)
	if len(h.evtsOfType(EVT_CONN)) != 1 {
		t.Fatalf("expected one conn event")
	}
	if h.scb(handle).peerAddr != peerB {
		t.Fatalf("expected peer %s", peerB)
	}
}

func TestCollisionRetry(t *testing.T) {
	h := newHarness(t, 1)
	handle := h.register(agdefs.HFP_SERVICE_MASK, 0)
	h.addHfRecord(peerA, 5, agdefs.HFP_VERSION_1_7, 0)

	// Someone else is connecting to us.
	h.sim.Rfcomm.SetOpening(peerB)

	h.ag.Open(handle, peerA, 0)
	h.loop.Drain()

	if len(openEvts(h)) != 0 {
		t.Fatalf("open should be deferred")
	}
	scb := h.scb(handle)
	if scb.state != STATE_INIT || !timerPending(scb.collisionTmr) {
		t.Fatalf("expected deferred open; state=%s", scb.state)
	}

	// The other connection went away; our open resumes.
	h.sim.Rfcomm.ClearOpening()
	h.loop.Advance(h.ag.cfg.CollisionTimeout)

	opens := openEvts(h)
	if len(opens) != 1 || opens[0].Status != agdefs.STATUS_SUCCESS ||
		opens[0].Addr != peerA {

		t.Fatalf("unexpected open events: %+v", opens)
	}
	if scb.role != agdefs.ROLE_INT {
		t.Fatalf("expected initiator role")
	}
}

func TestCollisionPeerWins(t *testing.T) {
	h := newHarness(t, 1)
	handle := h.register(agdefs.HFP_SERVICE_MASK, 0)
	h.addHfRecord(peerA, 5, agdefs.HFP_VERSION_1_7, 0)
	h.sim.Rfcomm.SetOpening(peerA)

	h.ag.Open(handle, peerA, 0)
	h.loop.Drain()

	// The peer's own connection arrives first.
	h.accept(peerA)

	scb := h.scb(handle)
	if scb.state != STATE_OPEN || scb.role != agdefs.ROLE_ACP {
		t.Fatalf("unexpected state=%s role=%d", scb.state, scb.role)
	}
	if timerPending(scb.collisionTmr) {
		t.Fatalf("collision timer still running")
	}

	h.loop.Advance(2 * h.ag.cfg.CollisionTimeout)

	if n := len(openEvts(h)); n != 1 {
		t.Fatalf("expected one open event, got %d", n)
	}
}

func TestIncomingReplacesOutgoing(t *testing.T) {
	h := newHarness(t, 2)
	h1 := h.register(agdefs.HFP_SERVICE_MASK, 0)
	h2 := h.register(agdefs.HFP_SERVICE_MASK, 0)
	h.addHfRecord(peerA, 5, agdefs.HFP_VERSION_1_7, 0)
	h.sim.Rfcomm.AutoConnect = false

	h.ag.Open(h1, peerA, 0)
	h.loop.Drain()
	if st := h.scb(h1).state; st != STATE_OPENING {
		t.Fatalf("expected opening state, got %s", st)
	}

	// h1's servers are closed, so the peer lands on h2.
	h.accept(peerA)

	opens := openEvts(h)
	if len(opens) != 2 {
		t.Fatalf("expected two open events, got %d", len(opens))
	}
	if opens[0].Handle != h1 || opens[0].Status != agdefs.STATUS_FAIL_RFCOMM {
		t.Fatalf("unexpected open event: %s", EvtString(opens[0]))
	}
	if opens[1].Handle != h2 || opens[1].Status != agdefs.STATUS_SUCCESS {
		t.Fatalf("unexpected open event: %s", EvtString(opens[1]))
	}

	if st := h.scb(h1).state; st != STATE_INIT {
		t.Fatalf("expected h1 in init state, got %s", st)
	}

	cnt := 0
	for _, scb := range h.ag.scbs {
		if scb.inUse && scb.peerAddr == peerA {
			cnt++
		}
	}
	if cnt != 1 {
		t.Fatalf("expected one block for %s, got %d", peerA, cnt)
	}
}

func TestCollisionDuringDiscovery(t *testing.T) {
	h := newHarness(t, 2)
	handle := h.register(agdefs.HFP_SERVICE_MASK, 0)
	h.register(agdefs.HFP_SERVICE_MASK, 0)
	h.addHfRecord(peerA, 5, agdefs.HFP_VERSION_1_7, 0)
	h.sim.Sdp.AutoComplete = false

	h.ag.Open(handle, peerA, 0)
	h.loop.Drain()

	scb := h.scb(handle)
	if scb.state != STATE_OPENING || !h.sim.Sdp.Pending(peerA) {
		t.Fatalf("expected discovery in progress; state=%s", scb.state)
	}
	if !h.ag.isServerClosed(scb) {
		t.Fatalf("servers still open while initiating")
	}

	h.ag.Collision(peerA)
	h.loop.Drain()

	if scb.state != STATE_INIT {
		t.Fatalf("expected init state, got %s", scb.state)
	}
	if h.sim.Sdp.Pending(peerA) || scb.discPending {
		t.Fatalf("discovery not cancelled")
	}
	if !timerPending(scb.collisionTmr) {
		t.Fatalf("collision timer not armed")
	}
	if h.ag.isServerClosed(scb) {
		t.Fatalf("servers not restarted")
	}
	if len(openEvts(h)) != 0 {
		t.Fatalf("unexpected open event")
	}

	// Nobody connected to us in the meantime; the open is retried.
	h.sim.Sdp.AutoComplete = true
	h.loop.Advance(h.ag.cfg.CollisionTimeout)

	opens := openEvts(h)
	if len(opens) != 1 || opens[0].Status != agdefs.STATUS_SUCCESS ||
		opens[0].Handle != handle || opens[0].Addr != peerA {

		t.Fatalf("unexpected open events: %+v", opens)
	}
	if scb.state != STATE_OPEN || scb.role != agdefs.ROLE_INT {
		t.Fatalf("unexpected state=%s role=%d", scb.state, scb.role)
	}
}

func TestCollisionIgnoredWhenOpen(t *testing.T) {
	h := newHarness(t, 1)
	handle := h.register(agdefs.HFP_SERVICE_MASK, 0)
	h.connectHfp(peerA, 0)

	h.ag.Collision(peerA)
	h.loop.Drain()

	scb := h.scb(handle)
	if scb.state != STATE_OPEN || timerPending(scb.collisionTmr) {
		t.Fatalf("open connection disturbed; state=%s", scb.state)
	}
}

func TestIncomingCancelsOutgoingDiscovery(t *testing.T) {
	h := newHarness(t, 2)
	h1 := h.register(agdefs.HFP_SERVICE_MASK, 0)
	h2 := h.register(agdefs.HFP_SERVICE_MASK, 0)
	h.addHfRecord(peerA, 5, agdefs.HFP_VERSION_1_7, 0)
	h.sim.Sdp.AutoComplete = false

	h.ag.Open(h1, peerA, 0)
	h.loop.Drain()
	if !h.scb(h1).discPending {
		t.Fatalf("expected discovery in progress")
	}

	h.accept(peerA)

	first := h.scb(h1)
	if first.state != STATE_INIT || first.discPending {
		t.Fatalf("outgoing block not reset; state=%s disc=%t",
			first.state, first.discPending)
	}

	// The accepting block owns the only search of the peer.
	second := h.scb(h2)
	if second.state != STATE_OPEN || !second.discPending {
		t.Fatalf("unexpected state=%s disc=%t",
			second.state, second.discPending)
	}

	if !h.sim.Sdp.Complete(peerA) {
		t.Fatalf("no discovery pending")
	}
	h.loop.Drain()

	if second.discPending {
		t.Fatalf("discovery result not delivered to handle %d", h2)
	}
	if first.state != STATE_INIT {
		t.Fatalf("late discovery result reached handle %d", h1)
	}
}
