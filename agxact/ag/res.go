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

	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/agmgr/agxact/agdefs"
	"mynewt.apache.org/agmgr/agxact/at"
)

// Wire result code for each application result that is sent as-is.
var resAtMap = map[agdefs.Res]at.ResId{
	agdefs.RES_SPK:          at.RES_VGS,
	agdefs.RES_MIC:          at.RES_VGM,
	agdefs.RES_INBAND_RING:  at.RES_BSIR,
	agdefs.RES_CIND:         at.RES_CIND,
	agdefs.RES_BINP:         at.RES_BINP,
	agdefs.RES_IND:          at.RES_CIEV,
	agdefs.RES_BVRA:         at.RES_BVRA,
	agdefs.RES_CNUM:         at.RES_CNUM,
	agdefs.RES_BTRH:         at.RES_BTRH,
	agdefs.RES_CLCC:         at.RES_CLCC,
	agdefs.RES_COPS:         at.RES_COPS,
	agdefs.RES_CALL_WAIT:    at.RES_CCWA,
	agdefs.RES_IN_CALL_HELD: at.RES_CHLD,
	agdefs.RES_BIND:         at.RES_BIND,
	agdefs.RES_UNAT:         at.RES_UNAT,
}

func (a *Ag) sendResult(scb *Scb, id at.ResId, str string, num int) {
	if scb.connPort == 0 {
		log.Debugf("AG dropping %s result; handle %d not connected",
			id, scb.handle)
		return
	}

	b, err := at.FormatResult(id, scb.connService, str, num)
	if err != nil {
		log.Warnf("AG failed to format %s result: %s", id, err.Error())
		return
	}

	log.Debugf("AG sending to %s: %q", scb.peerAddr, b)
	if _, err := a.rfcomm.Write(scb.connPort, b); err != nil {
		log.Warnf("AG failed to write to %s: %s", scb.peerAddr, err.Error())
	}
}

func (a *Ag) sendAppResult(scb *Scb, res agdefs.Res, str string, num int) {
	id, ok := resAtMap[res]
	if !ok {
		log.Errorf("AG no result code for %s", res)
		return
	}

	a.sendResult(scb, id, str, num)
}

func (a *Ag) sendOk(scb *Scb) {
	a.sendResult(scb, at.RES_OK, "", 0)
}

// sendError sends ERROR, or +CME ERROR with the given code if the peer
// enabled extended errors.
func (a *Ag) sendError(scb *Scb, errCode int) {
	if scb.connService == agdefs.SVC_IDX_HFP && scb.cmeeEnabled {
		a.sendResult(scb, at.RES_CMEE, "", errCode)
	} else {
		a.sendResult(scb, at.RES_ERROR, "", 0)
	}
}

// Returns a pointer to the stored value of a standard indicator.
func (scb *Scb) indicator(id int) *int {
	switch id {
	case agdefs.IND_CALL:
		return &scb.callInd
	case agdefs.IND_CALLSETUP:
		return &scb.callsetupInd
	case agdefs.IND_SERVICE:
		return &scb.serviceInd
	case agdefs.IND_SIGNAL:
		return &scb.signalInd
	case agdefs.IND_ROAM:
		return &scb.roamInd
	case agdefs.IND_BATTCHG:
		return &scb.battchgInd
	case agdefs.IND_CALLHELD:
		return &scb.callheldInd
	default:
		return nil
	}
}

// sendInd sends +CIEV for one indicator.  Unless onDemand is set, a value
// equal to the last one sent is suppressed.
func (a *Ag) sendInd(scb *Scb, id int, value int, onDemand bool) {
	mandatory := id == agdefs.IND_CALL || id == agdefs.IND_CALLSETUP ||
		id == agdefs.IND_CALLHELD
	if id >= 0 && id < 32 && scb.biaMaskedOut&(1<<uint(id)) != 0 &&
		!mandatory {

		return
	}

	if cur := scb.indicator(id); cur != nil {
		switch {
		case id == agdefs.IND_CALL:
			if value == *cur && !onDemand {
				return
			}
			*cur = value

		case onDemand:

		case id == agdefs.IND_CALLHELD:
			// A call swap may repeat callheld=1.
			if value != agdefs.CALLHELD_ACTIVE && value == *cur {
				return
			}
			*cur = value

		default:
			if value == *cur {
				return
			}
			*cur = value
		}
	}

	if scb.cmerEnabled {
		a.sendResult(scb, at.RES_CIEV, fmt.Sprintf("%d,%d", id, value), 0)
	}
}

// Sends the call and callsetup indicators implied by a call result.
func (a *Ag) sendCallInds(scb *Scb, res agdefs.Res) {
	var callsetup int
	switch res {
	case agdefs.RES_IN_CALL, agdefs.RES_CALL_WAIT:
		callsetup = agdefs.CALLSETUP_INCOMING
	case agdefs.RES_OUT_CALL_ORIG:
		callsetup = agdefs.CALLSETUP_OUTGOING
	case agdefs.RES_OUT_CALL_ALERT:
		callsetup = agdefs.CALLSETUP_ALERTING
	default:
		callsetup = agdefs.CALLSETUP_NONE
	}

	call := scb.callInd
	switch res {
	case agdefs.RES_END_CALL:
		call = agdefs.CALL_INACTIVE
	case agdefs.RES_IN_CALL_CONN, agdefs.RES_OUT_CALL_CONN,
		agdefs.RES_IN_CALL_HELD:

		call = agdefs.CALL_ACTIVE
	}

	a.sendInd(scb, agdefs.IND_CALL, call, false)
	a.sendInd(scb, agdefs.IND_CALLSETUP, callsetup, false)
}

// Sends +BCS with the codec to negotiate.
func (a *Ag) sendBcs(scb *Scb) {
	id := agdefs.UUID_CODEC_CVSD
	if !scb.codecFallback && scb.scoCodec == agdefs.CODEC_MSBC {
		id = agdefs.UUID_CODEC_MSBC
	}

	log.Debugf("AG sending +BCS: %d to %s", id, scb.peerAddr)
	a.sendResult(scb, at.RES_BCS, "", id)
}

// sendRing sends RING, and +CLIP if enabled, then arms the ring timer to
// repeat.
func (a *Ag) sendRing(scb *Scb) {
	if scb.connService == agdefs.SVC_IDX_HFP &&
		scb.callsetupInd != agdefs.CALLSETUP_INCOMING {

		log.Warnf("AG don't send RING; service=%s callsetup=%d",
			scb.connService, scb.callsetupInd)
		return
	}

	a.sendResult(scb, at.RES_RING, "", 0)

	if scb.connService == agdefs.SVC_IDX_HFP && scb.clipEnabled &&
		scb.clip != "" {

		a.sendResult(scb, at.RES_CLIP, scb.clip, 0)
	}

	handle := scb.handle
	a.startTimer(&scb.ringTmr, a.cfg.RingTimeout, func() {
		a.smExecuteByHandle(handle, EVT_RING_TOUT, nil)
	})
}

// In-band ringing is used only while no other peer is connected.
func (a *Ag) inbandEnabled(scb *Scb) bool {
	return scb.inbandEnabled && !a.otherScbOpen(scb)
}

func (a *Ag) result(scb *Scb, data Data) {
	rd, ok := data.(*ApiResultData)
	if !ok {
		return
	}

	if scb.connService == agdefs.SVC_IDX_HSP {
		a.hspResult(scb, rd)
	} else {
		a.hfpResult(scb, rd)
	}
}

// Sends the string of a response to a query, then OK or an error as the
// application requested.
func (a *Ag) sendQueryResult(scb *Scb, res agdefs.Res, str string,
	rd ResData) {

	if rd.OkFlag == agdefs.OK_ERROR {
		a.sendError(scb, rd.ErrCode)
		return
	}

	if str != "" {
		a.sendAppResult(scb, res, str, 0)
	}
	if rd.OkFlag == agdefs.OK_DONE {
		a.sendOk(scb)
	}
}

func (a *Ag) hspResult(scb *Scb, r *ApiResultData) {
	d := r.Data

	switch r.Res {
	case agdefs.RES_SPK, agdefs.RES_MIC:
		a.sendAppResult(scb, r.Res, "", d.Num)

	case agdefs.RES_IN_CALL:
		// Tell the system to stop other audio.
		a.sys.ScoUse(scb.peerAddr)

		if a.scoIsOpen(scb) || !a.inbandEnabled(scb) ||
			scb.features&agdefs.FEAT_NOSCO != 0 {

			a.sendRing(scb)
			break
		}

		// HSP 1.2 does not ring over an in-band ring tone.
		if scb.peerVersion >= agdefs.HSP_VERSION_1_2 {
			scb.postSco = POST_SCO_NONE
		} else {
			scb.postSco = POST_SCO_RING
		}
		a.scoOpen(scb)

	case agdefs.RES_IN_CALL_CONN, agdefs.RES_OUT_CALL_ORIG:
		if r.Res == agdefs.RES_IN_CALL_CONN {
			stopTimer(&scb.ringTmr)
		}

		if scb.features&agdefs.FEAT_NOSCO == 0 {
			if d.AudioHandle == scb.handle && !a.scoIsOpen(scb) {
				a.scoOpen(scb)
			} else if d.AudioHandle == HANDLE_NONE && a.scoIsOpen(scb) {
				a.scoClose(scb)
			}
		}

	case agdefs.RES_END_CALL:
		stopTimer(&scb.ringTmr)

		if (a.scoIsOpen(scb) || a.scoIsOpening(scb)) &&
			scb.features&agdefs.FEAT_NOSCO == 0 {

			a.scoClose(scb)
		} else {
			a.sys.ScoUnuse(scb.peerAddr)
		}

	case agdefs.RES_INBAND_RING:
		scb.inbandEnabled = d.State

	case agdefs.RES_UNAT:
		if d.OkFlag == agdefs.OK_ERROR {
			a.sendError(scb, agdefs.CME_INV_CHAR_IN_TSTR)
			break
		}
		if d.Str != "" {
			a.sendAppResult(scb, r.Res, d.Str, 0)
		}
		if d.OkFlag == agdefs.OK_DONE {
			a.sendOk(scb)
		}

	default:
		log.Debugf("AG result %s ignored on HSP", r.Res)
	}
}

func (a *Ag) hfpResult(scb *Scb, r *ApiResultData) {
	d := r.Data
	noSco := scb.features&agdefs.FEAT_NOSCO != 0

	switch r.Res {
	case agdefs.RES_SPK, agdefs.RES_MIC:
		a.sendAppResult(scb, r.Res, "", d.Num)

	case agdefs.RES_IN_CALL:
		a.sys.ScoUse(scb.peerAddr)
		scb.clip = d.Str

		if scb.postSco == POST_SCO_CALL_END {
			// Both the end of the old call and the new incoming call are
			// indicated once audio is down.
			scb.postSco = POST_SCO_CALL_END_INCALL
			break
		}

		a.sendCallInds(scb, r.Res)

		if a.scoIsOpen(scb) || !a.inbandEnabled(scb) || noSco ||
			d.AudioHandle != scb.handle {

			a.sendRing(scb)
		} else {
			scb.postSco = POST_SCO_RING
			a.scoOpen(scb)
		}

	case agdefs.RES_IN_CALL_CONN:
		stopTimer(&scb.ringTmr)

		// Indicators first, then audio.
		a.sendCallInds(scb, r.Res)
		if !noSco {
			if d.AudioHandle == scb.handle && !a.scoIsOpen(scb) {
				a.scoOpen(scb)
			} else if d.AudioHandle == HANDLE_NONE && a.scoIsOpen(scb) {
				a.scoClose(scb)
			}
		}

	case agdefs.RES_IN_CALL_HELD:
		stopTimer(&scb.ringTmr)
		a.sendCallInds(scb, r.Res)

	case agdefs.RES_OUT_CALL_ORIG, agdefs.RES_OUT_CALL_ALERT:
		a.sendCallInds(scb, r.Res)
		if d.AudioHandle == scb.handle && !noSco {
			a.scoOpen(scb)
		}

	case agdefs.RES_MULTI_CALL:
		if !noSco {
			if d.AudioHandle == scb.handle {
				a.scoOpen(scb)
			} else if d.AudioHandle == HANDLE_NONE {
				a.scoClose(scb)
			}
		}

	case agdefs.RES_OUT_CALL_CONN:
		a.sendCallInds(scb, r.Res)
		if !noSco {
			if d.AudioHandle == scb.handle {
				a.scoOpen(scb)
			} else if d.AudioHandle == HANDLE_NONE {
				a.scoClose(scb)
			}
		}

	case agdefs.RES_CALL_CANCEL:
		a.sendCallInds(scb, r.Res)

	case agdefs.RES_END_CALL:
		stopTimer(&scb.ringTmr)

		switch {
		case (a.scoIsOpen(scb) || a.scoIsOpening(scb)) && !noSco:
			// Indicators follow once audio is down.
			scb.postSco = POST_SCO_CALL_END
			a.scoClose(scb)

		case scb.postSco == POST_SCO_CALL_END_INCALL:
			// Audio is closing for an incoming call; only the call end
			// remains to be indicated.
			scb.postSco = POST_SCO_CALL_END

		default:
			a.sendCallInds(scb, r.Res)
			a.sys.ScoUnuse(scb.peerAddr)
		}

	case agdefs.RES_INBAND_RING:
		scb.inbandEnabled = d.State
		a.sendAppResult(scb, r.Res, "", boolToInt(d.State))

	case agdefs.RES_CIND:
		if vals, ok := at.ParseCind(d.Str); ok {
			for i, v := range vals {
				*scb.indicator(i + 1) = v
			}
		} else {
			log.Warnf("AG malformed CIND values: %q", d.Str)
		}
		log.Debugf("AG CIND call=%d callsetup=%d",
			scb.callInd, scb.callsetupInd)

		a.sendAppResult(scb, r.Res, d.Str, 0)
		a.sendOk(scb)

	case agdefs.RES_BINP, agdefs.RES_CNUM, agdefs.RES_CLCC, agdefs.RES_COPS:
		a.sendQueryResult(scb, r.Res, d.Str, d)

	case agdefs.RES_UNAT:
		a.sendQueryResult(scb, r.Res, at.TrimUnatResult(d.Str), d)

	case agdefs.RES_CALL_WAIT:
		if scb.ccwaEnabled {
			a.sendAppResult(scb, r.Res, d.Str, 0)
		}
		a.sendCallInds(scb, r.Res)

	case agdefs.RES_IND:
		a.sendInd(scb, d.Ind.Id, d.Ind.Value, false)

	case agdefs.RES_IND_ON_DEMAND:
		a.sendInd(scb, d.Ind.Id, d.Ind.Value, true)

	case agdefs.RES_BVRA:
		a.sendAppResult(scb, r.Res, "", boolToInt(d.State))

	case agdefs.RES_BTRH:
		if d.OkFlag == agdefs.OK_ERROR {
			a.sendError(scb, d.ErrCode)
			break
		}

		// Nothing to report on a read outside response and hold.
		if d.Num != agdefs.BTRH_NO_RESP {
			a.sendAppResult(scb, r.Res, "", d.Num)
		}
		if d.OkFlag == agdefs.OK_DONE {
			a.sendOk(scb)
		}

	case agdefs.RES_BIND:
		id := uint16(d.Ind.Id)

		lidx := findHfInd(scb.localHfInds[:], id)
		if lidx < 0 {
			log.Warnf("AG HF indicator %d not supported locally", id)
			return
		}
		if findHfInd(scb.peerHfInds[:], id) < 0 {
			log.Warnf("AG HF indicator %d not supported by peer", id)
			return
		}

		ind := &scb.localHfInds[lidx]
		if ind.Enabled == d.Ind.OnDemand {
			log.Debugf("AG HF indicator %d already enabled=%t",
				id, ind.Enabled)
			return
		}

		ind.Enabled = d.Ind.OnDemand
		a.sendAppResult(scb, r.Res,
			fmt.Sprintf("%d,%d", id, boolToInt(ind.Enabled)), 0)

	default:
		log.Debugf("AG result %s ignored on HFP", r.Res)
	}
}
