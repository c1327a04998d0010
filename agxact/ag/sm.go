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
	log "github.com/sirupsen/logrus"
)

type State uint8

const (
	STATE_INIT State = iota
	STATE_OPENING
	STATE_OPEN
	STATE_CLOSING
	STATE_MAX
)

var stateNameMap = map[State]string{
	STATE_INIT:    "init",
	STATE_OPENING: "opening",
	STATE_OPEN:    "open",
	STATE_CLOSING: "closing",
}

func (s State) String() string {
	n := stateNameMap[s]
	if n == "" {
		return "???"
	}
	return n
}

type Event uint8

const (
	EVT_API_REGISTER Event = iota
	EVT_API_DEREGISTER
	EVT_API_OPEN
	EVT_API_CLOSE
	EVT_API_AUDIO_OPEN
	EVT_API_AUDIO_CLOSE
	EVT_API_RESULT
	EVT_API_SETCODEC
	EVT_RFC_OPEN
	EVT_RFC_CLOSE
	EVT_RFC_SRV_CLOSE
	EVT_RFC_DATA
	EVT_SCO_OPEN
	EVT_SCO_CLOSE
	EVT_DISC_ACP_RES
	EVT_DISC_INT_RES
	EVT_DISC_OK
	EVT_DISC_FAIL
	EVT_RING_TOUT
	EVT_SVC_TOUT
	EVT_COLLISION
	EVT_MAX
)

var eventNameMap = map[Event]string{
	EVT_API_REGISTER:    "api_register",
	EVT_API_DEREGISTER:  "api_deregister",
	EVT_API_OPEN:        "api_open",
	EVT_API_CLOSE:       "api_close",
	EVT_API_AUDIO_OPEN:  "api_audio_open",
	EVT_API_AUDIO_CLOSE: "api_audio_close",
	EVT_API_RESULT:      "api_result",
	EVT_API_SETCODEC:    "api_setcodec",
	EVT_RFC_OPEN:        "rfc_open",
	EVT_RFC_CLOSE:       "rfc_close",
	EVT_RFC_SRV_CLOSE:   "rfc_srv_close",
	EVT_RFC_DATA:        "rfc_data",
	EVT_SCO_OPEN:        "sco_open",
	EVT_SCO_CLOSE:       "sco_close",
	EVT_DISC_ACP_RES:    "disc_acp_res",
	EVT_DISC_INT_RES:    "disc_int_res",
	EVT_DISC_OK:         "disc_ok",
	EVT_DISC_FAIL:       "disc_fail",
	EVT_RING_TOUT:       "ring_tout",
	EVT_SVC_TOUT:        "svc_tout",
	EVT_COLLISION:       "collision",
}

func (e Event) String() string {
	n := eventNameMap[e]
	if n == "" {
		return "???"
	}
	return n
}

type action uint8

const (
	ACT_REGISTER action = iota
	ACT_DEREGISTER
	ACT_START_OPEN
	ACT_RFC_DO_OPEN
	ACT_RFC_DO_CLOSE
	ACT_START_DEREG
	ACT_START_CLOSE
	ACT_RFC_OPEN
	ACT_OPEN_FAIL
	ACT_RFC_ACP_OPEN
	ACT_RFC_CLOSE
	ACT_RFC_FAIL
	ACT_RFC_DATA
	ACT_DISC_INT_RES
	ACT_DISC_FAIL
	ACT_DISC_ACP_RES
	ACT_FREE_DB
	ACT_SCO_CONN_OPEN
	ACT_SCO_CONN_CLOSE
	ACT_SCO_LISTEN
	ACT_SCO_OPEN
	ACT_SCO_CLOSE
	ACT_SCO_SHUTDOWN
	ACT_POST_SCO_OPEN
	ACT_POST_SCO_CLOSE
	ACT_SVC_CONN_OPEN
	ACT_RESULT
	ACT_SETCODEC
	ACT_SEND_RING
	ACT_HANDLE_COLLISION
	ACT_IGNORE
)

var actionNameMap = map[action]string{
	ACT_REGISTER:         "register",
	ACT_DEREGISTER:       "deregister",
	ACT_START_OPEN:       "start_open",
	ACT_RFC_DO_OPEN:      "rfc_do_open",
	ACT_RFC_DO_CLOSE:     "rfc_do_close",
	ACT_START_DEREG:      "start_dereg",
	ACT_START_CLOSE:      "start_close",
	ACT_RFC_OPEN:         "rfc_open",
	ACT_OPEN_FAIL:        "open_fail",
	ACT_RFC_ACP_OPEN:     "rfc_acp_open",
	ACT_RFC_CLOSE:        "rfc_close",
	ACT_RFC_FAIL:         "rfc_fail",
	ACT_RFC_DATA:         "rfc_data",
	ACT_DISC_INT_RES:     "disc_int_res",
	ACT_DISC_FAIL:        "disc_fail",
	ACT_DISC_ACP_RES:     "disc_acp_res",
	ACT_FREE_DB:          "free_db",
	ACT_SCO_CONN_OPEN:    "sco_conn_open",
	ACT_SCO_CONN_CLOSE:   "sco_conn_close",
	ACT_SCO_LISTEN:       "sco_listen",
	ACT_SCO_OPEN:         "sco_open",
	ACT_SCO_CLOSE:        "sco_close",
	ACT_SCO_SHUTDOWN:     "sco_shutdown",
	ACT_POST_SCO_OPEN:    "post_sco_open",
	ACT_POST_SCO_CLOSE:   "post_sco_close",
	ACT_SVC_CONN_OPEN:    "svc_conn_open",
	ACT_RESULT:           "result",
	ACT_SETCODEC:         "setcodec",
	ACT_SEND_RING:        "send_ring",
	ACT_HANDLE_COLLISION: "handle_collision",
	ACT_IGNORE:           "ignore",
}

func (a action) String() string {
	n := actionNameMap[a]
	if n == "" {
		return "???"
	}
	return n
}

// Up to two actions run in order; ACT_IGNORE ends the list.
type tblEntry struct {
	acts [2]action
	next State
}

func ign(next State) tblEntry {
	return tblEntry{[2]action{ACT_IGNORE, ACT_IGNORE}, next}
}

func act1(a action, next State) tblEntry {
	return tblEntry{[2]action{a, ACT_IGNORE}, next}
}

func act2(a action, b action, next State) tblEntry {
	return tblEntry{[2]action{a, b}, next}
}

var initTbl = [EVT_MAX]tblEntry{
	EVT_API_REGISTER:    act1(ACT_REGISTER, STATE_INIT),
	EVT_API_DEREGISTER:  act1(ACT_DEREGISTER, STATE_INIT),
	EVT_API_OPEN:        act1(ACT_START_OPEN, STATE_OPENING),
	EVT_API_CLOSE:       ign(STATE_INIT),
	EVT_API_AUDIO_OPEN:  ign(STATE_INIT),
	EVT_API_AUDIO_CLOSE: ign(STATE_INIT),
	EVT_API_RESULT:      ign(STATE_INIT),
	EVT_API_SETCODEC:    ign(STATE_INIT),
	EVT_RFC_OPEN:        act2(ACT_RFC_ACP_OPEN, ACT_SCO_LISTEN, STATE_OPEN),
	EVT_RFC_CLOSE:       ign(STATE_INIT),
	EVT_RFC_SRV_CLOSE:   ign(STATE_INIT),
	EVT_RFC_DATA:        ign(STATE_INIT),
	EVT_SCO_OPEN:        act1(ACT_SCO_CONN_OPEN, STATE_INIT),
	EVT_SCO_CLOSE:       act1(ACT_SCO_CONN_CLOSE, STATE_INIT),
	EVT_DISC_ACP_RES:    act1(ACT_FREE_DB, STATE_INIT),
	EVT_DISC_INT_RES:    ign(STATE_INIT),
	EVT_DISC_OK:         ign(STATE_INIT),
	EVT_DISC_FAIL:       ign(STATE_INIT),
	EVT_RING_TOUT:       ign(STATE_INIT),
	EVT_SVC_TOUT:        ign(STATE_INIT),
	EVT_COLLISION:       ign(STATE_INIT),
}

var openingTbl = [EVT_MAX]tblEntry{
	EVT_API_REGISTER:    ign(STATE_OPENING),
	EVT_API_DEREGISTER:  act2(ACT_RFC_DO_CLOSE, ACT_START_DEREG, STATE_CLOSING),
	EVT_API_OPEN:        act1(ACT_OPEN_FAIL, STATE_OPENING),
	EVT_API_CLOSE:       act1(ACT_RFC_DO_CLOSE, STATE_CLOSING),
	EVT_API_AUDIO_OPEN:  ign(STATE_OPENING),
	EVT_API_AUDIO_CLOSE: ign(STATE_OPENING),
	EVT_API_RESULT:      ign(STATE_OPENING),
	EVT_API_SETCODEC:    ign(STATE_OPENING),
	EVT_RFC_OPEN:        act2(ACT_RFC_OPEN, ACT_SCO_LISTEN, STATE_OPEN),
	EVT_RFC_CLOSE:       act1(ACT_RFC_FAIL, STATE_INIT),
	EVT_RFC_SRV_CLOSE:   ign(STATE_OPENING),
	EVT_RFC_DATA:        ign(STATE_OPENING),
	EVT_SCO_OPEN:        act1(ACT_SCO_CONN_OPEN, STATE_OPENING),
	EVT_SCO_CLOSE:       act1(ACT_SCO_CONN_CLOSE, STATE_OPENING),
	EVT_DISC_ACP_RES:    ign(STATE_OPENING),
	EVT_DISC_INT_RES:    act1(ACT_DISC_INT_RES, STATE_OPENING),
	EVT_DISC_OK:         act1(ACT_RFC_DO_OPEN, STATE_OPENING),
	EVT_DISC_FAIL:       act1(ACT_DISC_FAIL, STATE_INIT),
	EVT_RING_TOUT:       ign(STATE_OPENING),
	EVT_SVC_TOUT:        ign(STATE_OPENING),
	EVT_COLLISION:       act1(ACT_HANDLE_COLLISION, STATE_INIT),
}

var openTbl = [EVT_MAX]tblEntry{
	EVT_API_REGISTER:    ign(STATE_OPEN),
	EVT_API_DEREGISTER:  act2(ACT_START_CLOSE, ACT_START_DEREG, STATE_CLOSING),
	EVT_API_OPEN:        act1(ACT_OPEN_FAIL, STATE_OPEN),
	EVT_API_CLOSE:       act1(ACT_START_CLOSE, STATE_CLOSING),
	EVT_API_AUDIO_OPEN:  act1(ACT_SCO_OPEN, STATE_OPEN),
	EVT_API_AUDIO_CLOSE: act1(ACT_SCO_CLOSE, STATE_OPEN),
	EVT_API_RESULT:      act1(ACT_RESULT, STATE_OPEN),
	EVT_API_SETCODEC:    act1(ACT_SETCODEC, STATE_OPEN),
	EVT_RFC_OPEN:        ign(STATE_OPEN),
	EVT_RFC_CLOSE:       act1(ACT_RFC_CLOSE, STATE_INIT),
	EVT_RFC_SRV_CLOSE:   ign(STATE_OPEN),
	EVT_RFC_DATA:        act1(ACT_RFC_DATA, STATE_OPEN),
	EVT_SCO_OPEN:        act2(ACT_SCO_CONN_OPEN, ACT_POST_SCO_OPEN, STATE_OPEN),
	EVT_SCO_CLOSE:       act2(ACT_SCO_CONN_CLOSE, ACT_POST_SCO_CLOSE, STATE_OPEN),
	EVT_DISC_ACP_RES:    act1(ACT_DISC_ACP_RES, STATE_OPEN),
	EVT_DISC_INT_RES:    ign(STATE_OPEN),
	EVT_DISC_OK:         ign(STATE_OPEN),
	EVT_DISC_FAIL:       ign(STATE_OPEN),
	EVT_RING_TOUT:       act1(ACT_SEND_RING, STATE_OPEN),
	EVT_SVC_TOUT:        act1(ACT_START_CLOSE, STATE_CLOSING),
	EVT_COLLISION:       ign(STATE_OPEN),
}

var closingTbl = [EVT_MAX]tblEntry{
	EVT_API_REGISTER:    ign(STATE_CLOSING),
	EVT_API_DEREGISTER:  act1(ACT_START_DEREG, STATE_CLOSING),
	EVT_API_OPEN:        act1(ACT_OPEN_FAIL, STATE_CLOSING),
	EVT_API_CLOSE:       ign(STATE_CLOSING),
	EVT_API_AUDIO_OPEN:  ign(STATE_CLOSING),
	EVT_API_AUDIO_CLOSE: ign(STATE_CLOSING),
	EVT_API_RESULT:      ign(STATE_CLOSING),
	EVT_API_SETCODEC:    ign(STATE_CLOSING),
	EVT_RFC_OPEN:        ign(STATE_CLOSING),
	EVT_RFC_CLOSE:       act1(ACT_RFC_CLOSE, STATE_INIT),
	EVT_RFC_SRV_CLOSE:   ign(STATE_CLOSING),
	EVT_RFC_DATA:        ign(STATE_CLOSING),
	EVT_SCO_OPEN:        act1(ACT_SCO_CONN_OPEN, STATE_CLOSING),
	EVT_SCO_CLOSE:       act2(ACT_SCO_CONN_CLOSE, ACT_POST_SCO_CLOSE, STATE_CLOSING),
	EVT_DISC_ACP_RES:    act1(ACT_FREE_DB, STATE_CLOSING),
	EVT_DISC_INT_RES:    act1(ACT_FREE_DB, STATE_INIT),
	EVT_DISC_OK:         ign(STATE_CLOSING),
	EVT_DISC_FAIL:       ign(STATE_CLOSING),
	EVT_RING_TOUT:       ign(STATE_CLOSING),
	EVT_SVC_TOUT:        ign(STATE_CLOSING),
	EVT_COLLISION:       ign(STATE_CLOSING),
}

func stateTable(state State, evt Event) tblEntry {
	switch state {
	case STATE_INIT:
		return initTbl[evt]
	case STATE_OPENING:
		return openingTbl[evt]
	case STATE_OPEN:
		return openTbl[evt]
	case STATE_CLOSING:
		return closingTbl[evt]
	default:
		return ign(state)
	}
}

// smExecute runs one event through the connection state machine.  The next
// state is committed before any action runs, so an action may itself feed
// further events to the same control block.
func (a *Ag) smExecute(scb *Scb, evt Event, data Data) {
	if evt >= EVT_MAX {
		log.Errorf("AG event out of range: %d", evt)
		return
	}

	from := scb.state
	ent := stateTable(from, evt)

	log.Debugf("AG event: handle=%d peer=%s state=%s event=%s",
		scb.handle, scb.peerAddr, from, evt)

	scb.state = ent.next
	for _, act := range ent.acts {
		if act == ACT_IGNORE {
			break
		}
		a.runAction(act, scb, data)
	}

	if scb.state != from {
		log.Debugf("AG state change: handle=%d peer=%s %s --> %s (%s)",
			scb.handle, scb.peerAddr, from, scb.state, evt)
	}
}

func (a *Ag) smExecuteByHandle(handle uint16, evt Event, data Data) {
	scb := a.scbByHandle(handle)
	if scb == nil {
		log.Debugf("AG event %s for unknown handle %d", evt, handle)
		return
	}

	a.smExecute(scb, evt, data)
}

func (a *Ag) runAction(act action, scb *Scb, data Data) {
	switch act {
	case ACT_REGISTER:
		a.register(scb, data)
	case ACT_DEREGISTER:
		a.deregister(scb)
	case ACT_START_OPEN:
		a.startOpen(scb, data)
	case ACT_RFC_DO_OPEN:
		a.rfcDoOpen(scb)
	case ACT_RFC_DO_CLOSE:
		a.rfcDoClose(scb)
	case ACT_START_DEREG:
		a.startDereg(scb)
	case ACT_START_CLOSE:
		a.startClose(scb)
	case ACT_RFC_OPEN:
		a.rfcOpen(scb)
	case ACT_OPEN_FAIL:
		a.openFail(scb, data)
	case ACT_RFC_ACP_OPEN:
		a.rfcAcpOpen(scb, data)
	case ACT_RFC_CLOSE:
		a.rfcClose(scb)
	case ACT_RFC_FAIL:
		a.rfcFail(scb)
	case ACT_RFC_DATA:
		a.rfcData(scb)
	case ACT_DISC_INT_RES:
		a.discIntRes(scb, data)
	case ACT_DISC_FAIL:
		a.discFail(scb)
	case ACT_DISC_ACP_RES:
		a.discAcpRes(scb, data)
	case ACT_FREE_DB:
		a.freeDb(scb)
	case ACT_SCO_CONN_OPEN:
		a.scoConnOpen(scb)
	case ACT_SCO_CONN_CLOSE:
		a.scoConnClose(scb)
	case ACT_SCO_LISTEN:
		a.scoListen(scb)
	case ACT_SCO_OPEN:
		a.scoOpen(scb)
	case ACT_SCO_CLOSE:
		a.scoClose(scb)
	case ACT_SCO_SHUTDOWN:
		a.scoShutdown(scb)
	case ACT_POST_SCO_OPEN:
		a.postScoOpen(scb)
	case ACT_POST_SCO_CLOSE:
		a.postScoClose(scb)
	case ACT_SVC_CONN_OPEN:
		a.svcConnOpen(scb)
	case ACT_RESULT:
		a.result(scb, data)
	case ACT_SETCODEC:
		a.setCodec(scb, data)
	case ACT_SEND_RING:
		a.sendRing(scb)
	case ACT_HANDLE_COLLISION:
		a.handleCollision(scb)
	default:
		log.Errorf("AG invalid action: %d", act)
	}
}
