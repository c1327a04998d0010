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
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/agmgr/agxact/agdefs"
	"mynewt.apache.org/agmgr/agxact/at"
)

// Commands forwarded to the application, and the event each raises.
// Commands absent from the map are handled locally.
var cmdEvtMap = map[at.CmdId]agdefs.AtEvtId{
	at.CMD_CKPD: agdefs.AT_EVT_CKPD,
	at.CMD_VGS:  agdefs.AT_EVT_SPK,
	at.CMD_VGM:  agdefs.AT_EVT_MIC,
	at.CMD_A:    agdefs.AT_EVT_A,
	at.CMD_D:    agdefs.AT_EVT_D,
	at.CMD_CHLD: agdefs.AT_EVT_CHLD,
	at.CMD_CHUP: agdefs.AT_EVT_CHUP,
	at.CMD_CIND: agdefs.AT_EVT_CIND,
	at.CMD_VTS:  agdefs.AT_EVT_VTS,
	at.CMD_BINP: agdefs.AT_EVT_BINP,
	at.CMD_BLDN: agdefs.AT_EVT_BLDN,
	at.CMD_BVRA: agdefs.AT_EVT_BVRA,
	at.CMD_NREC: agdefs.AT_EVT_NREC,
	at.CMD_CNUM: agdefs.AT_EVT_CNUM,
	at.CMD_BTRH: agdefs.AT_EVT_BTRH,
	at.CMD_CLCC: agdefs.AT_EVT_CLCC,
	at.CMD_COPS: agdefs.AT_EVT_COPS,
	at.CMD_BIA:  agdefs.AT_EVT_BIA,
	at.CMD_CBC:  agdefs.AT_EVT_CBC,
	at.CMD_BCS:  agdefs.AT_EVT_BCS,
	at.CMD_BIND: agdefs.AT_EVT_BIND,
	at.CMD_BIEV: agdefs.AT_EVT_BIEV,
	at.CMD_BAC:  agdefs.AT_EVT_BAC,
}

func (a *Ag) atEvt(scb *Scb, id agdefs.AtEvtId, arg string,
	num int) *AtEvt {

	return &AtEvt{
		EvtHdr: EvtHdr{
			Handle: scb.handle,
			AppId:  scb.appId,
			Status: agdefs.STATUS_SUCCESS,
		},
		Id:   id,
		Addr: scb.peerAddr,
		Str:  arg,
		Num:  num,
	}
}

func (a *Ag) hspCmdCb(scb *Scb, cmd *at.Cmd, argType at.ArgType,
	arg string, intArg int) {

	log.Debugf("AG HSP command from %s: %s arg_type=%s arg=%q int=%d",
		scb.peerAddr, cmd, argType, arg, intArg)

	a.sendOk(scb)

	if len(arg) >= at.AtMaxLen {
		log.Warnf("AG argument too long: %d", len(arg))
		a.sendError(scb, agdefs.CME_TEXT_TOO_LONG)
		return
	}

	a.notify(a.atEvt(scb, cmdEvtMap[cmd.Id], arg, intArg))
}

func (a *Ag) hfpCmdCb(scb *Scb, cmd *at.Cmd, argType at.ArgType,
	arg string, intArg int) {

	log.Debugf("AG HFP command from %s: %s arg_type=%s arg=%q int=%d",
		scb.peerAddr, cmd, argType, arg, intArg)

	if len(arg) >= at.AtMaxLen {
		log.Warnf("AG argument too long: %d", len(arg))
		a.sendError(scb, agdefs.CME_TEXT_TOO_LONG)
		return
	}

	// A nil event means the command is not passed to the application.
	var evt *AtEvt
	if id, ok := cmdEvtMap[cmd.Id]; ok {
		evt = a.atEvt(scb, id, arg, intArg)
	}

	switch cmd.Id {
	case at.CMD_A, at.CMD_VGS, at.CMD_VGM, at.CMD_CBC:
		a.sendOk(scb)

	case at.CMD_CHUP:
		if !a.isActiveDevice(scb.peerAddr) {
			log.Warnf("AG AT+CHUP rejected; %s is not the active device",
				scb.peerAddr)
			evt = nil
			a.sendError(scb, agdefs.CME_OP_NOT_ALLOWED)
		} else {
			a.sendOk(scb)
		}

	case at.CMD_BLDN:
		// The application answers depending on whether a last number
		// exists.

	case at.CMD_D:
		// No OK; the application accepts or rejects the dial string.
		if !a.checkDialString(scb, evt) {
			evt = nil
		}

	case at.CMD_CCWA:
		scb.ccwaEnabled = intArg != 0
		a.sendOk(scb)

	case at.CMD_CHLD:
		if argType == at.ARG_TEST {
			evt = nil

			chld := a.cfg.ChldVal
			if scb.peerVersion >= agdefs.HFP_VERSION_1_5 &&
				a.eccSupported(scb) {

				chld = a.cfg.ChldValEcc
			}
			a.sendResult(scb, at.RES_CHLD, chld, 0)
			a.sendOk(scb)

			// The service level connection is complete.
			a.svcConnOpen(scb)
			break
		}

		idx := at.InvalidChld
		if at.ParseChld(arg) != at.InvalidChld {
			idx = at.ChldCallIdx(arg)
		}
		if idx == at.InvalidChld {
			evt = nil
			a.sendError(scb, agdefs.CME_OP_NOT_SUPPORTED)
			break
		}

		if idx != 0 && !a.eccSupported(scb) {
			// A call index without ECC support on both sides.
			evt = nil
			a.sendError(scb, agdefs.CME_OP_NOT_SUPPORTED)
			break
		}

		if arg[0] == '2' {
			// Mark a call swap; the application sets the indicator back
			// to 1, which is then sent to the peer.
			for _, s := range a.scbs {
				if s.inUse && s.callInd == agdefs.CALL_ACTIVE &&
					s.callsetupInd == agdefs.CALLSETUP_NONE {

					s.callheldInd = agdefs.CALLHELD_HOLD + 1
				}
			}
		}
		evt.Idx = int(idx)

	case at.CMD_BIND:
		if argType == at.ARG_SET {
			if a.bindSet(scb, arg) {
				a.sendOk(scb)
			} else {
				evt = nil
				a.sendError(scb, agdefs.CME_INVALID_INDEX)
			}
		} else {
			a.bindResponse(scb, argType)
			evt = nil
		}

	case at.CMD_BIEV:
		if a.biev(scb, arg, evt) {
			a.sendOk(scb)
		} else {
			a.sendError(scb, agdefs.CME_INVALID_INDEX)
			evt = nil
		}

	case at.CMD_CIND:
		if argType == at.ARG_TEST {
			evt = nil
			a.sendResult(scb, at.RES_CIND, a.cfg.CindInfo, 0)
			a.sendOk(scb)
		}

	case at.CMD_CLIP:
		scb.clipEnabled = intArg != 0
		a.sendOk(scb)

	case at.CMD_CMER:
		enabled, ok := at.ParseCmer(arg, scb.cmerEnabled)
		if !ok {
			a.sendError(scb, agdefs.CME_INV_CHAR_IN_TSTR)
			break
		}

		scb.cmerEnabled = enabled
		a.sendOk(scb)

		// Without three way calling the exchange ends here.
		if !scb.svcConn &&
			!(scb.features&agdefs.FEAT_3WAY != 0 &&
				scb.peerFeatures&agdefs.PEER_FEAT_3WAY != 0) {

			a.svcConnOpen(scb)
		}

	case at.CMD_VTS:
		if len(arg) == 1 {
			a.sendOk(scb)
		} else {
			evt = nil
			a.sendError(scb, agdefs.CME_INV_CHAR_IN_TSTR)
		}

	case at.CMD_BINP:
		if scb.features&agdefs.FEAT_VTAG == 0 {
			evt = nil
			a.sendError(scb, agdefs.CME_OP_NOT_SUPPORTED)
		}

	case at.CMD_BVRA:
		// The application sends OK.
		if scb.features&agdefs.FEAT_VREC == 0 {
			evt = nil
			a.sendError(scb, agdefs.CME_OP_NOT_SUPPORTED)
		}

	case at.CMD_BRSF:
		scb.peerFeatures = uint32(uint16(intArg))

		features := scb.features
		if scb.peerVersion < agdefs.HFP_VERSION_1_7 {
			features &= agdefs.HFP_1_6_FEAT_MASK
		}

		log.Debugf("AG BRSF HF: 0x%x, phone: 0x%x",
			scb.peerFeatures, features)

		a.sendResult(scb, at.RES_BRSF, "", int(features))
		a.sendOk(scb)

	case at.CMD_NREC:
		if scb.features&agdefs.FEAT_ECNR != 0 {
			a.sendOk(scb)
		} else {
			evt = nil
			a.sendError(scb, agdefs.CME_OP_NOT_SUPPORTED)
		}

	case at.CMD_BTRH:
		if scb.features&agdefs.FEAT_BTRH == 0 {
			evt = nil
			a.sendError(scb, agdefs.CME_OP_NOT_SUPPORTED)
			break
		}

		if argType == at.ARG_SET {
			for _, s := range a.scbs {
				if s.inUse {
					a.sendResult(s, at.RES_BTRH, "", intArg)
				}
			}
			a.sendOk(scb)
		} else {
			evt.Num = agdefs.BTRH_READ
		}

	case at.CMD_COPS:
		if argType == at.ARG_SET {
			evt = nil
			a.sendOk(scb)
		}

	case at.CMD_CMEE:
		evt = nil
		if scb.features&agdefs.FEAT_EXTERR != 0 {
			scb.cmeeEnabled = intArg != 0
			a.sendOk(scb)
		} else {
			a.sendError(scb, agdefs.CME_OP_NOT_SUPPORTED)
		}

	case at.CMD_BIA:
		masked, ok := at.ParseBia(arg, scb.biaMaskedOut)
		if ok {
			scb.biaMaskedOut = masked
			evt.Num = int(masked)
			a.sendOk(scb)
		} else {
			evt = nil
			a.sendError(scb, agdefs.CME_INVALID_INDEX)
		}

	case at.CMD_CNUM:

	case at.CMD_CLCC:
		if scb.features&agdefs.FEAT_ECS == 0 {
			evt = nil
			a.sendError(scb, agdefs.CME_OP_NOT_SUPPORTED)
		}

	case at.CMD_BAC:
		a.sendOk(scb)
		scb.receivedAtBac = true

		if scb.peerFeatures&agdefs.PEER_FEAT_CODEC == 0 ||
			scb.features&agdefs.FEAT_CODEC == 0 {

			log.Errorf("AG unexpected AT+BAC; codec negotiation not " +
				"supported")
			scb.peerCodecs = agdefs.CODEC_CVSD
			break
		}

		scb.peerCodecs = at.ParseBac(arg)
		scb.codecUpdated = true
		if scb.peerCodecs&agdefs.CODEC_MSBC != 0 {
			scb.scoCodec = agdefs.CODEC_MSBC
		} else {
			scb.scoCodec = agdefs.CODEC_CVSD
		}
		log.Debugf("AG received AT+BAC; sco codec %s", scb.scoCodec)

		// The application may still override the choice with SetCodec.
		evt.Num = int(scb.peerCodecs)

		if a.sco.state == SCO_STATE_CODEC && a.sco.curr == scb {
			a.codecNegotiate(scb)
		}

	case at.CMD_BCS:
		a.sendOk(scb)
		stopTimer(&scb.codecTmr)
		evt.Num = int(a.bcsReceived(scb, intArg))

	case at.CMD_BCC:
		if !a.isActiveDevice(scb.peerAddr) {
			log.Warnf("AG AT+BCC rejected; %s is not the active device",
				scb.peerAddr)
			a.sendError(scb, agdefs.CME_OP_NOT_ALLOWED)
			break
		}
		a.sendOk(scb)
		a.scoOpen(scb)

	default:
		a.sendError(scb, agdefs.CME_OP_NOT_SUPPORTED)
	}

	if evt != nil {
		a.notify(evt)
	}
}

func (a *Ag) eccSupported(scb *Scb) bool {
	return scb.features&agdefs.FEAT_ECC != 0 &&
		scb.peerFeatures&agdefs.PEER_FEAT_ECC != 0
}

// Validates the argument of ATD, stripping stray spaces that some car kits
// insert.  Returns false if an error has been sent.
func (a *Ag) checkDialString(scb *Scb, evt *AtEvt) bool {
	s := evt.Str
	if s == "" {
		return true
	}

	switch s[0] {
	case '>':
		// Memory dial.
		s = ">" + at.RemoveSpaces(s[1:])
		if !at.IsDigits(s[1:]) {
			a.sendError(scb, agdefs.CME_INV_CHAR_IN_DSTR)
			return false
		}

	case 'V':
		// VoIP dial; the number itself is not checked.
		if scb.peerFeatures&agdefs.PEER_FEAT_VOIP == 0 ||
			scb.features&agdefs.FEAT_VOIP == 0 {

			a.sendError(scb, agdefs.CME_OP_NOT_SUPPORTED)
			return false
		}

	default:
		s = at.RemoveSpaces(s)
		if !at.IsDialString(s) {
			a.sendError(scb, agdefs.CME_INV_CHAR_IN_DSTR)
			return false
		}
	}

	evt.Str = s
	return true
}

// Handles the codec the peer confirmed with AT+BCS.  Returns the codec
// reported to the application.
func (a *Ag) bcsReceived(scb *Scb, id int) agdefs.Codec {
	var codec agdefs.Codec
	switch id {
	case agdefs.UUID_CODEC_CVSD:
		codec = agdefs.CODEC_CVSD
	case agdefs.UUID_CODEC_MSBC:
		codec = agdefs.CODEC_MSBC
	default:
		log.Errorf("AG unknown codec id %d", id)
	}

	sent := scb.scoCodec
	if scb.codecFallback {
		sent = agdefs.CODEC_CVSD
	}

	switch {
	case codec == sent:
		a.scoCodecNego(scb, true)

	case codec != agdefs.CODEC_NONE && !scb.codecFallback &&
		scb.peerCodecs&codec != 0:

		// The peer picked another codec it supports.
		log.Debugf("AG peer chose %s over %s", codec, sent)
		scb.scoCodec = codec
		sent = codec
		a.scoCodecNego(scb, true)

	case !scb.codecFallback:
		log.Debugf("AG codec mismatch (sent %s, got %s); falling back "+
			"to cvsd", sent, codec)
		scb.codecFallback = true
		sent = agdefs.CODEC_CVSD
		a.codecNegotiate(scb)

	default:
		a.scoCodecNego(scb, false)
	}

	return sent
}

// Stores the HF indicator ids listed in AT+BIND=.
func (a *Ag) bindSet(scb *Scb, arg string) bool {
	ids, ok := at.ParseBindSet(arg)
	if !ok {
		return false
	}

	for _, id := range ids {
		idx := findHfInd(scb.peerHfInds[:], 0)
		if idx < 0 {
			log.Warnf("AG can't save more HF indicators")
			return false
		}
		scb.peerHfInds[idx].Id = id
	}

	return true
}

func (a *Ag) bindResponse(scb *Scb, argType at.ArgType) {
	switch argType {
	case at.ARG_TEST:
		var b strings.Builder
		b.WriteString("(")
		first := true
		for _, ind := range a.cfg.LocalHfInds {
			if !ind.Supported {
				continue
			}
			if !first {
				b.WriteString(",")
			}
			first = false
			b.WriteString(strconv.Itoa(int(ind.Id)))
		}
		b.WriteString(")")

		a.sendResult(scb, at.RES_BIND, b.String(), 0)
		a.sendOk(scb)

	case at.ARG_READ:
		for i, c := range a.cfg.LocalHfInds {
			if i == MAX_NUM_LOCAL_HF_IND {
				log.Warnf("AG no space for more HF indicators")
				break
			}

			ind := &scb.localHfInds[i]
			*ind = HfInd{Id: c.Id, Supported: c.Supported, Enabled: c.Enabled}

			if ind.Supported && findHfInd(scb.peerHfInds[:], ind.Id) >= 0 {
				a.sendResult(scb, at.RES_BIND,
					fmt.Sprintf("%d,%d", ind.Id, boolToInt(ind.Enabled)), 0)
			} else {
				ind.Enabled = false
			}
		}

		a.sendOk(scb)

		if !scb.svcConn {
			a.svcConnOpen(scb)
		}
	}
}

// Validates AT+BIEV=<id>,<value> and fills in the event.
func (a *Ag) biev(scb *Scb, arg string, evt *AtEvt) bool {
	id, val, ok := at.ParseBiev(arg)
	if !ok {
		return false
	}

	if int(id) > len(a.cfg.LocalHfInds) {
		log.Warnf("AG invalid HF indicator id %d", id)
		return false
	}

	idx := findHfInd(scb.localHfInds[:], id)
	if idx < 0 || !scb.localHfInds[idx].Supported ||
		!scb.localHfInds[idx].Enabled {

		log.Warnf("AG HF indicator %d not supported or disabled", id)
		return false
	}

	c := a.cfg.localHfInd(id)
	if c == nil || val < c.Min || val > c.Max {
		log.Warnf("AG invalid value %d for HF indicator %d", val, id)
		return false
	}

	evt.Lidx = int(id)
	evt.Num = int(val)
	return true
}

func (a *Ag) atErrCb(scb *Scb, unknown bool, text string) {
	if unknown && text == "" {
		a.sendOk(scb)
		return
	}

	if unknown && scb.features&agdefs.FEAT_UNAT != 0 {
		a.notify(a.atEvt(scb, agdefs.AT_EVT_UNAT, text, 0))
		return
	}

	a.sendError(scb, agdefs.CME_OP_NOT_SUPPORTED)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
