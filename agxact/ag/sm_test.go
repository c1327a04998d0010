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
	"testing"
	"time"

	"mynewt.apache.org/agmgr/agxact/agdefs"
)

// An entry left out of a table decodes as {REGISTER, REGISTER} -> INIT.
func TestStateTablesComplete(t *testing.T) {
	for s := STATE_INIT; s < STATE_MAX; s++ {
		for e := Event(0); e < EVT_MAX; e++ {
			ent := stateTable(s, e)

			if ent.next >= STATE_MAX {
				t.Errorf("%s/%s: invalid next state %d", s, e, ent.next)
			}
			for _, act := range ent.acts {
				if act > ACT_IGNORE {
					t.Errorf("%s/%s: invalid action %d", s, e, act)
				}
			}

			if ent.acts[0] == ACT_REGISTER &&
				!(s == STATE_INIT && e == EVT_API_REGISTER) {

				t.Errorf("%s/%s: missing table entry", s, e)
			}
		}
	}
}

func TestStateNames(t *testing.T) {
	for s := STATE_INIT; s < STATE_MAX; s++ {
		if s.String() == "???" {
			t.Errorf("state %d has no name", s)
		}
	}
	for e := Event(0); e < EVT_MAX; e++ {
		if e.String() == "???" {
			t.Errorf("event %d has no name", e)
		}
	}
	for a := ACT_REGISTER; a <= ACT_IGNORE; a++ {
		if a.String() == "???" {
			t.Errorf("action %d has no name", a)
		}
	}
	for s := SCO_STATE_SHUTDOWN; s <= SCO_STATE_SHUTTING; s++ {
		if s.String() == "???" {
			t.Errorf("sco state %d has no name", s)
		}
	}
}

func TestEventForUnknownHandle(t *testing.T) {
	h := newHarness(t, 1)

	h.ag.Close(5)
	h.ag.AudioOpen(HANDLE_NONE)
	h.loop.Drain()

	if len(h.evts) != 0 {
		t.Fatalf("unexpected events: %d", len(h.evts))
	}
}

func TestRegisterOutOfBlocks(t *testing.T) {
	h := newHarness(t, 1)
	h.register(agdefs.HFP_SERVICE_MASK, 0)

	h.ag.Register(RegisterParams{Services: agdefs.HFP_SERVICE_MASK})
	h.loop.Drain()

	regs := h.evtsOfType(EVT_REGISTER)
	if len(regs) != 2 {
		t.Fatalf("expected 2 register events, got %d", len(regs))
	}
	if st := regs[1].Header().Status; st != agdefs.STATUS_FAIL_RESOURCES {
		t.Fatalf("expected fail_resources, got %s", st)
	}
}

func TestDeregister(t *testing.T) {
	h := newHarness(t, 2)
	h1 := h.register(bothServices, 0)
	h2 := h.register(agdefs.HFP_SERVICE_MASK, 0)

	h.ag.Deregister(h1)
	h.loop.Drain()

	if h.ag.scbByHandle(h1) != nil {
		t.Fatalf("scb %d still in use", h1)
	}

	// The HFP record is still needed by the other block.
	recs := h.sim.Sdp.LocalRecords()
	if len(recs) != 1 ||
		recs[0].ServiceClass != agdefs.UUID_SERVCLASS_AG_HANDSFREE {

		t.Fatalf("unexpected records after deregister: %+v", recs)
	}
	if n := h.sim.Rfcomm.NumServers(); n != 1 {
		t.Fatalf("expected 1 server, got %d", n)
	}

	h.ag.Deregister(h2)
	h.loop.Drain()

	if n := len(h.sim.Sdp.LocalRecords()); n != 0 {
		t.Fatalf("expected no records, got %d", n)
	}
	if len(h.evtsOfType(EVT_DISABLE)) != 0 {
		t.Fatalf("unexpected disable event")
	}
}

func TestDisable(t *testing.T) {
	h := newHarness(t, 2)
	h.register(bothServices, 0)

	h.ag.Disable()
	h.loop.Drain()

	if len(h.evtsOfType(EVT_DISABLE)) != 1 {
		t.Fatalf("expected one disable event")
	}
	if n := h.sim.Rfcomm.NumServers(); n != 0 {
		t.Fatalf("expected no servers, got %d", n)
	}
}

func TestDisableConnected(t *testing.T) {
	h := newHarness(t, 1)
	h.register(agdefs.HFP_SERVICE_MASK, 0)
	h.connectHfp(peerA, 0)

	h.ag.Disable()
	h.loop.Drain()

	if len(h.evtsOfType(EVT_CLOSE)) != 1 {
		t.Fatalf("expected one close event")
	}
	if len(h.evtsOfType(EVT_DISABLE)) != 1 {
		t.Fatalf("expected one disable event")
	}
	if _, ok := h.sim.Rfcomm.PortByPeer(peerA); ok {
		t.Fatalf("connection to %s still up", peerA)
	}
	if h.loop.ActiveTimers() != 0 {
		t.Fatalf("timers left running: %d", h.loop.ActiveTimers())
	}
}

func TestServiceLevelTimeout(t *testing.T) {
	h := newHarness(t, 1)
	handle := h.register(bothServices, 0)
	h.accept(peerA)

	if h.scb(handle).state != STATE_OPEN {
		t.Fatalf("expected open state, got %s", h.scb(handle).state)
	}

	h.loop.Advance(h.ag.cfg.ConnTimeout + time.Millisecond)

	scb := h.scb(handle)
	if scb.state != STATE_INIT {
		t.Fatalf("expected init state, got %s", scb.state)
	}
	if len(h.evtsOfType(EVT_CONN)) != 0 {
		t.Fatalf("unexpected conn event")
	}
	if len(h.evtsOfType(EVT_CLOSE)) != 1 {
		t.Fatalf("expected one close event")
	}

	// Both servers listen again.
	if scb.servPorts[agdefs.SVC_IDX_HSP] == 0 ||
		scb.servPorts[agdefs.SVC_IDX_HFP] == 0 {

		t.Fatalf("servers not restarted: %v", scb.servPorts)
	}
}
