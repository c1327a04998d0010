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

	"mynewt.apache.org/agmgr/agxact/agdefs"
	"mynewt.apache.org/agmgr/agxact/xport"
)

// State of the single audio link shared by all control blocks.
type ScoState uint8

const (
	SCO_STATE_SHUTDOWN   ScoState = iota // no listening connections
	SCO_STATE_LISTEN                     // listening
	SCO_STATE_CODEC                      // codec negotiation
	SCO_STATE_OPENING                    // connection opening
	SCO_STATE_OPEN_CL                    // opening, close pending
	SCO_STATE_OPEN_XFER                  // opening, transfer pending
	SCO_STATE_OPEN                       // open
	SCO_STATE_CLOSING                    // closing
	SCO_STATE_CLOSE_OP                   // closing, open pending
	SCO_STATE_CLOSE_XFER                 // closing, transfer pending
	SCO_STATE_SHUTTING                   // shutting down
)

var scoStateNameMap = map[ScoState]string{
	SCO_STATE_SHUTDOWN:   "shutdown",
	SCO_STATE_LISTEN:     "listen",
	SCO_STATE_CODEC:      "codec",
	SCO_STATE_OPENING:    "opening",
	SCO_STATE_OPEN_CL:    "open_closing",
	SCO_STATE_OPEN_XFER:  "open_xfer",
	SCO_STATE_OPEN:       "open",
	SCO_STATE_CLOSING:    "closing",
	SCO_STATE_CLOSE_OP:   "close_opening",
	SCO_STATE_CLOSE_XFER: "close_xfer",
	SCO_STATE_SHUTTING:   "shutting",
}

func (s ScoState) String() string {
	n := scoStateNameMap[s]
	if n == "" {
		return "???"
	}
	return n
}

type scoEvt uint8

const (
	SCO_EVT_LISTEN     scoEvt = iota // listen request
	SCO_EVT_OPEN                     // open request
	SCO_EVT_XFER                     // transfer request
	SCO_EVT_CN_DONE                  // codec negotiation done
	SCO_EVT_REOPEN                   // retry with another codec setting
	SCO_EVT_CLOSE                    // close request
	SCO_EVT_SHUTDOWN                 // shutdown request
	SCO_EVT_CONN_OPEN                // link open
	SCO_EVT_CONN_CLOSE               // link closed
)

var scoEvtNameMap = map[scoEvt]string{
	SCO_EVT_LISTEN:     "listen",
	SCO_EVT_OPEN:       "open",
	SCO_EVT_XFER:       "xfer",
	SCO_EVT_CN_DONE:    "codec_done",
	SCO_EVT_REOPEN:     "reopen",
	SCO_EVT_CLOSE:      "close",
	SCO_EVT_SHUTDOWN:   "shutdown",
	SCO_EVT_CONN_OPEN:  "conn_open",
	SCO_EVT_CONN_CLOSE: "conn_close",
}

func (e scoEvt) String() string {
	n := scoEvtNameMap[e]
	if n == "" {
		return "???"
	}
	return n
}

type scoCb struct {
	state ScoState

	// Block that owns the link, and the block waiting to take it over.
	curr *Scb
	xfer *Scb

	curIdx  xport.ScoIdx
	isLocal bool
}

func (a *Ag) scoIsOpen(scb *Scb) bool {
	return a.sco.state == SCO_STATE_OPEN && a.sco.curr == scb
}

func (a *Ag) scoIsOpening(scb *Scb) bool {
	return a.sco.state == SCO_STATE_OPENING && a.sco.curr == scb
}

func (a *Ag) isActiveDevice(addr agdefs.BdAddr) bool {
	return !a.activeDevice.IsEmpty() && a.activeDevice == addr
}

func (a *Ag) setActiveDevice(addr agdefs.BdAddr) {
	if addr.IsEmpty() {
		log.Errorf("AG empty active device address")
		return
	}

	log.Debugf("AG active device: %s", addr)
	a.activeDevice = addr
}

func (a *Ag) clearActiveDevice() {
	log.Debugf("AG active device cleared")
	a.activeDevice = agdefs.BdAddrEmpty
}

func (a *Ag) cbackSco(scb *Scb, open bool) {
	hdr := EvtHdr{Handle: scb.handle, AppId: scb.appId}
	if open {
		a.notify(&AudioOpenEvt{EvtHdr: hdr})
	} else {
		a.notify(&AudioCloseEvt{EvtHdr: hdr})
	}
}

// Link parameters for a connection using codec.
func (a *Ag) scoParams(scb *Scb, codec agdefs.Codec) xport.ScoParams {
	if codec == agdefs.CODEC_MSBC {
		if scb.msbcSettings == agdefs.MSBC_SETTINGS_T1 {
			return xport.ScoParams{Setting: xport.SCO_SETTING_MSBC_T1}
		}
		return xport.ScoParams{Setting: xport.SCO_SETTING_MSBC_T2}
	}

	p := xport.ScoParams{
		Setting:  xport.SCO_SETTING_CVSD_S3,
		PktTypes: a.cfg.ScoPktTypes | SCO_PKT_NO_3_EV3,
	}

	// S3 latency needs eSCO on both sides; otherwise fall back to 10ms.
	if scb.features&agdefs.FEAT_ESCO == 0 ||
		scb.peerFeatures&agdefs.PEER_FEAT_ESCO == 0 {

		p.MaxLatencyMs = 10
	}

	return p
}

//////////////////////////////////////////////////////////////////////////////
// $link callbacks                                                          //
//////////////////////////////////////////////////////////////////////////////

func (a *Ag) scoConnCb(idx xport.ScoIdx) {
	handle := HANDLE_NONE

	if a.sco.curr != nil && a.sco.curr.inUse {
		handle = a.sco.curr.handle
	} else if addr, ok := a.link.ReadScoAddr(idx); ok {
		// No owner; accept only a peer with a service level connection.
		handle = a.handleByAddr(addr)
		if scb := a.scbByHandle(handle); scb != nil && !scb.svcConn {
			handle = HANDLE_NONE
		}
	}

	if handle != HANDLE_NONE {
		a.smExecuteByHandle(handle, EVT_SCO_OPEN, nil)
		return
	}

	log.Warnf("AG no control block for SCO link %d; removing", idx)
	a.sco.curr = nil
	a.sco.state = SCO_STATE_SHUTDOWN
	a.link.RemoveSco(idx)
}

func (a *Ag) scoDiscCb(idx xport.ScoIdx) {
	curr := a.sco.curr
	handle := HANDLE_NONE

	if curr != nil && curr.inUse {
		// Only the current link matters.
		if curr.scoIdx != idx && curr.scoIdx != xport.SCO_IDX_INVALID {
			return
		}
		handle = curr.handle
	}

	if handle == HANDLE_NONE {
		// The link may outlive its control block.
		if curr != nil {
			curr.scoIdx = xport.SCO_IDX_INVALID
			a.sco.curr = nil
			a.sco.state = SCO_STATE_SHUTDOWN
		}
		return
	}

	// A failed mSBC T2 attempt is retried with T1, then with CVSD.
	if curr.inuseCodec == agdefs.CODEC_MSBC && a.scoIsOpening(curr) {
		if curr.msbcSettings == agdefs.MSBC_SETTINGS_T2 {
			log.Warnf("AG SCO failed to open; falling back to mSBC T1")
			curr.msbcSettings = agdefs.MSBC_SETTINGS_T1
		} else {
			log.Warnf("AG SCO failed to open; falling back to CVSD")
			curr.codecFallback = true
		}
	}
	curr.inuseCodec = agdefs.CODEC_NONE

	a.smExecuteByHandle(handle, EVT_SCO_CLOSE, nil)
}

// escoConnReq answers a peer's request for an audio link.  Only the active
// device with a service level connection is accepted.
func (a *Ag) escoConnReq(idx xport.ScoIdx, peer agdefs.BdAddr) {
	scb := a.scbByAddr(peer)

	if !a.isActiveDevice(peer) || scb == nil || !scb.svcConn {
		log.Warnf("AG rejecting SCO request from %s", peer)
		a.link.ConnRsp(idx, false, xport.ScoParams{})
		return
	}

	scb.scoIdx = idx

	if a.sco.curr == nil {
		a.scoConnRsp(scb)
		a.sco.state = SCO_STATE_OPENING
		a.sco.curr = scb
		a.sco.curIdx = scb.scoIdx
		return
	}

	// Close the current link before answering.
	a.sco.xfer = scb
	a.sco.state = SCO_STATE_OPEN_XFER
	if !a.removeSco(a.sco.curr, true) {
		a.sco.xfer = nil
		a.sco.state = SCO_STATE_LISTEN
		a.scoConnRsp(scb)
	}
}

//////////////////////////////////////////////////////////////////////////////
// $link management                                                         //
//////////////////////////////////////////////////////////////////////////////

// removeSco removes the link of a control block.  With onlyActive set,
// only the current link is removed.  Returns true if a disconnect is in
// progress.
func (a *Ag) removeSco(scb *Scb, onlyActive bool) bool {
	if scb.scoIdx == xport.SCO_IDX_INVALID {
		return false
	}
	if onlyActive && scb.scoIdx != a.sco.curIdx {
		return false
	}

	status := a.link.RemoveSco(scb.scoIdx)
	log.Debugf("AG remove SCO %d: %s", scb.scoIdx, status)

	switch status {
	case xport.SCO_STATUS_CMD_STARTED:
		a.sco.curr = scb
		return true

	case xport.SCO_STATUS_SUCCESS, xport.SCO_STATUS_UNKNOWN_ADDR:
		scb.scoIdx = xport.SCO_IDX_INVALID
	}

	return false
}

// createSco creates an outgoing link (orig) or a listening one.
func (a *Ag) createSco(scb *Scb, orig bool) {
	if !a.isActiveDevice(scb.peerAddr) {
		log.Warnf("AG not creating SCO for %s; not the active device",
			scb.peerAddr)
		if a.sco.curr != nil && a.sco.curr.inUse && a.sco.curr == scb {
			a.post(scb.handle, EVT_SCO_CLOSE, nil)
		}
		return
	}

	if scb.scoIdx != xport.SCO_IDX_INVALID {
		return
	}

	codec := agdefs.CODEC_CVSD
	if scb.scoCodec == agdefs.CODEC_MSBC && !scb.codecFallback {
		codec = agdefs.CODEC_MSBC
	}

	if scb.codecFallback {
		scb.codecFallback = false

		// Renegotiate next time.
		scb.codecUpdated = true
		scb.msbcSettings = agdefs.MSBC_SETTINGS_T2
	}

	if orig {
		a.sco.isLocal = true
		a.sco.curr = scb
		scb.inuseCodec = codec
		a.sys.ScoUse(scb.peerAddr)
		a.createPendingSco(scb, true)
		return
	}

	idx, status := a.link.CreateSco(scb.peerAddr, false,
		a.scoParams(scb, codec))
	if status == xport.SCO_STATUS_CMD_STARTED {
		scb.scoIdx = idx
	}

	log.Debugf("AG SCO listen for %s: idx=%d status=%s",
		scb.peerAddr, idx, status)
}

func (a *Ag) createPendingSco(scb *Scb, isLocal bool) {
	a.sco.curr = scb
	a.sco.curIdx = scb.scoIdx

	if !isLocal {
		// Peer initiated links are always CVSD.
		a.link.ConnRsp(scb.scoIdx, true,
			a.scoParams(scb, agdefs.CODEC_CVSD))
		return
	}

	idx, status := a.link.CreateSco(scb.peerAddr, true,
		a.scoParams(scb, scb.inuseCodec))
	if status == xport.SCO_STATUS_CMD_STARTED {
		scb.scoIdx = idx
		a.sco.curIdx = idx
	}

	log.Debugf("AG SCO open to %s: codec=%s idx=%d status=%s",
		scb.peerAddr, scb.inuseCodec, idx, status)
}

//////////////////////////////////////////////////////////////////////////////
// $codec negotiation                                                       //
//////////////////////////////////////////////////////////////////////////////

func (a *Ag) codecNegotiate(scb *Scb) {
	a.sco.curr = scb

	transparent, ok := a.link.RemoteSupportsTransparent(scb.peerAddr)
	if !ok {
		log.Errorf("AG remote features of %s unknown", scb.peerAddr)
		a.scoCodecNego(scb, false)
		return
	}

	if !transparent ||
		scb.peerSdpFeatures&agdefs.SDP_FEAT_WBS_SUPPORT == 0 ||
		scb.peerFeatures&agdefs.PEER_FEAT_CODEC == 0 {

		log.Debugf("AG %s supports CVSD only", scb.peerAddr)
		scb.scoCodec = agdefs.CODEC_CVSD
	}

	if (scb.codecUpdated || scb.codecFallback) &&
		scb.peerFeatures&agdefs.PEER_FEAT_CODEC != 0 {

		a.sys.Busy(scb.peerAddr)
		a.sendBcs(scb)

		handle := scb.handle
		a.startTimer(&scb.codecTmr, a.cfg.CodecNegoTimeout, func() {
			if scb := a.scbByHandle(handle); scb != nil {
				a.codecNegoTimeout(scb)
			}
		})
		return
	}

	// Same codec as last time.
	a.scoCodecNego(scb, true)
}

func (a *Ag) codecNegoTimeout(scb *Scb) {
	log.Warnf("AG codec negotiation with %s timed out", scb.peerAddr)
	a.scoCodecNego(scb, false)
	a.cbackSco(scb, false)
}

func (a *Ag) scoCodecNego(scb *Scb, ok bool) {
	if ok {
		// Later links skip negotiation.
		scb.codecUpdated = false
		a.scoEvent(scb, SCO_EVT_CN_DONE)
	} else {
		a.scoEvent(scb, SCO_EVT_CLOSE)
	}
}

//////////////////////////////////////////////////////////////////////////////
// $actions                                                                 //
//////////////////////////////////////////////////////////////////////////////

func (a *Ag) scoListen(scb *Scb) {
	a.scoEvent(scb, SCO_EVT_LISTEN)
}

func (a *Ag) scoOpen(scb *Scb) {
	if !a.scoAllowed {
		log.Infof("AG not opening SCO for %s; SCO not allowed",
			scb.peerAddr)
		return
	}

	// Another block holding the link means a transfer.
	if a.sco.curr != nil && a.sco.curr != scb {
		a.scoEvent(scb, SCO_EVT_XFER)
	} else {
		a.scoEvent(scb, SCO_EVT_OPEN)
	}
}

func (a *Ag) scoClose(scb *Scb) {
	// No link exists yet during codec negotiation.
	if scb.scoIdx != xport.SCO_IDX_INVALID ||
		a.sco.state == SCO_STATE_CODEC {

		a.scoEvent(scb, SCO_EVT_CLOSE)
	}
}

func (a *Ag) scoShutdown(scb *Scb) {
	a.scoEvent(scb, SCO_EVT_SHUTDOWN)
}

func (a *Ag) scoConnOpen(scb *Scb) {
	a.scoEvent(scb, SCO_EVT_CONN_OPEN)
	a.sys.ScoOpen(scb.peerAddr)
	a.cbackSco(scb, true)

	// T2 is preferred for the next link.
	scb.msbcSettings = agdefs.MSBC_SETTINGS_T2
}

func (a *Ag) scoConnClose(scb *Scb) {
	a.sco.curr = nil
	scb.scoIdx = xport.SCO_IDX_INVALID

	// Retry a failed mSBC link with the next setting.
	if scb.svcConn && (scb.codecFallback ||
		(scb.scoCodec == agdefs.CODEC_MSBC &&
			scb.msbcSettings == agdefs.MSBC_SETTINGS_T1)) {

		a.scoEvent(scb, SCO_EVT_REOPEN)
		return
	}

	a.scoEvent(scb, SCO_EVT_CONN_CLOSE)
	a.sys.ScoClose(scb.peerAddr)

	// Resume other audio unless a call is about to use the link.
	if (scb.callInd == agdefs.CALL_INACTIVE &&
		scb.callsetupInd == agdefs.CALLSETUP_NONE) ||
		scb.postSco == POST_SCO_CALL_END {

		a.sys.ScoUnuse(scb.peerAddr)
	}

	a.cbackSco(scb, false)
	scb.msbcSettings = agdefs.MSBC_SETTINGS_T2
}

func (a *Ag) scoConnRsp(scb *Scb) {
	a.sco.isLocal = false

	switch a.sco.state {
	case SCO_STATE_LISTEN, SCO_STATE_CLOSE_XFER, SCO_STATE_OPEN_XFER:
		a.sys.ScoUse(scb.peerAddr)
	}

	scb.inuseCodec = agdefs.CODEC_NONE
	a.createPendingSco(scb, false)
}

//////////////////////////////////////////////////////////////////////////////
// $state machine                                                           //
//////////////////////////////////////////////////////////////////////////////

// Leaves the shared state after the last block shuts down, or keeps
// listening for the others.
func (a *Ag) scoShutdownState(scb *Scb) {
	if a.otherScbOpen(scb) {
		a.sco.state = SCO_STATE_LISTEN
	} else {
		a.sco.state = SCO_STATE_SHUTDOWN
	}
}

func (a *Ag) scoEvent(scb *Scb, evt scoEvt) {
	sco := &a.sco
	from := sco.state

	log.Debugf("AG SCO event: handle=%d idx=%d state=%s event=%s",
		scb.handle, scb.scoIdx, from, evt)

	ignored := false

	switch sco.state {
	case SCO_STATE_SHUTDOWN:
		switch evt {
		case SCO_EVT_LISTEN:
			a.createSco(scb, false)
			sco.state = SCO_STATE_LISTEN
		default:
			ignored = true
		}

	case SCO_STATE_LISTEN:
		switch evt {
		case SCO_EVT_LISTEN:
			// Additional channel.
			a.createSco(scb, false)

		case SCO_EVT_OPEN:
			a.removeSco(scb, false)
			sco.state = SCO_STATE_CODEC
			a.codecNegotiate(scb)

		case SCO_EVT_SHUTDOWN:
			a.removeSco(scb, false)
			if scb == sco.curr {
				sco.curr = nil
			}
			if !a.otherScbOpen(scb) {
				sco.state = SCO_STATE_SHUTDOWN
			}

		case SCO_EVT_CLOSE:
			// Keep listening for the active connection.

		case SCO_EVT_CONN_CLOSE:
			a.createSco(scb, false)
			sco.state = SCO_STATE_LISTEN

		default:
			ignored = true
		}

	case SCO_STATE_CODEC:
		switch evt {
		case SCO_EVT_LISTEN:
			a.createSco(scb, false)

		case SCO_EVT_CN_DONE:
			a.createSco(scb, true)
			sco.state = SCO_STATE_OPENING

		case SCO_EVT_XFER:
			sco.xfer = scb
			sco.state = SCO_STATE_CLOSE_XFER

		case SCO_EVT_SHUTDOWN:
			a.removeSco(scb, false)
			if scb == sco.curr {
				sco.curr = nil
			}
			if !a.otherScbOpen(scb) {
				sco.state = SCO_STATE_SHUTDOWN
			}

		case SCO_EVT_CLOSE:
			// Nothing opened yet.
			sco.state = SCO_STATE_LISTEN

		case SCO_EVT_CONN_CLOSE:
			a.createSco(scb, false)
			sco.state = SCO_STATE_LISTEN

		default:
			ignored = true
		}

	case SCO_STATE_OPENING:
		switch evt {
		case SCO_EVT_LISTEN:
			if scb != sco.curr {
				a.createSco(scb, false)
			}

		case SCO_EVT_REOPEN:
			sco.state = SCO_STATE_CODEC
			a.codecNegotiate(scb)

		case SCO_EVT_XFER:
			sco.xfer = scb
			sco.state = SCO_STATE_CLOSE_XFER

		case SCO_EVT_CLOSE:
			sco.state = SCO_STATE_OPEN_CL

		case SCO_EVT_SHUTDOWN:
			if scb != sco.curr {
				a.removeSco(scb, false)
			} else {
				sco.state = SCO_STATE_SHUTTING
			}

		case SCO_EVT_CONN_OPEN:
			sco.state = SCO_STATE_OPEN

		case SCO_EVT_CONN_CLOSE:
			a.createSco(scb, false)
			sco.state = SCO_STATE_LISTEN

		default:
			ignored = true
		}

	case SCO_STATE_OPEN_CL:
		switch evt {
		case SCO_EVT_XFER:
			sco.xfer = scb
			sco.state = SCO_STATE_CLOSE_XFER

		case SCO_EVT_OPEN:
			sco.state = SCO_STATE_OPENING

		case SCO_EVT_SHUTDOWN:
			if scb != sco.curr {
				a.removeSco(scb, false)
			} else {
				sco.state = SCO_STATE_SHUTTING
			}

		case SCO_EVT_CONN_OPEN:
			// Close now that it is open.
			a.removeSco(scb, true)
			sco.state = SCO_STATE_CLOSING

		case SCO_EVT_CONN_CLOSE:
			sco.state = SCO_STATE_LISTEN

		default:
			ignored = true
		}

	case SCO_STATE_OPEN_XFER:
		switch evt {
		case SCO_EVT_CLOSE:
			a.removeSco(scb, true)
			sco.state = SCO_STATE_CLOSING

		case SCO_EVT_SHUTDOWN:
			a.removeSco(scb, false)
			sco.state = SCO_STATE_SHUTTING

		case SCO_EVT_CONN_CLOSE:
			// The old link is down; answer the pending request.
			a.createSco(scb, false)
			xfer := sco.xfer
			if xfer == nil {
				sco.state = SCO_STATE_LISTEN
				break
			}
			a.scoConnRsp(xfer)
			sco.state = SCO_STATE_OPENING
			sco.curr = xfer
			sco.curIdx = xfer.scoIdx
			sco.xfer = nil

		default:
			ignored = true
		}

	case SCO_STATE_OPEN:
		switch evt {
		case SCO_EVT_LISTEN:
			if scb != sco.curr {
				a.createSco(scb, false)
			}

		case SCO_EVT_XFER:
			if sco.curr != nil {
				a.removeSco(sco.curr, true)
			}
			sco.xfer = scb
			sco.state = SCO_STATE_CLOSE_XFER

		case SCO_EVT_CLOSE:
			if a.removeSco(scb, true) {
				sco.state = SCO_STATE_CLOSING
			}

		case SCO_EVT_SHUTDOWN:
			a.removeSco(scb, false)
			if scb == sco.curr {
				sco.state = SCO_STATE_SHUTTING
			}

		case SCO_EVT_CONN_CLOSE:
			// Peer closed.
			a.createSco(scb, false)
			sco.state = SCO_STATE_LISTEN

		default:
			ignored = true
		}

	case SCO_STATE_CLOSING:
		switch evt {
		case SCO_EVT_LISTEN:
			if scb != sco.curr {
				a.createSco(scb, false)
			}

		case SCO_EVT_OPEN:
			sco.state = SCO_STATE_CLOSE_OP

		case SCO_EVT_XFER:
			sco.xfer = scb
			sco.state = SCO_STATE_CLOSE_XFER

		case SCO_EVT_SHUTDOWN:
			if scb != sco.curr {
				a.removeSco(scb, false)
			} else {
				sco.state = SCO_STATE_SHUTTING
			}

		case SCO_EVT_CONN_CLOSE:
			a.createSco(scb, false)
			sco.state = SCO_STATE_LISTEN

		default:
			ignored = true
		}

	case SCO_STATE_CLOSE_OP:
		switch evt {
		case SCO_EVT_CLOSE:
			sco.state = SCO_STATE_CLOSING

		case SCO_EVT_SHUTDOWN:
			sco.state = SCO_STATE_SHUTTING

		case SCO_EVT_CONN_CLOSE:
			// Closed; now open again.
			sco.state = SCO_STATE_CODEC
			a.codecNegotiate(scb)

		case SCO_EVT_LISTEN:
			if scb != sco.curr {
				a.createSco(scb, false)
			}

		default:
			ignored = true
		}

	case SCO_STATE_CLOSE_XFER:
		switch evt {
		case SCO_EVT_CONN_OPEN:
			a.removeSco(scb, true)

		case SCO_EVT_CLOSE:
			sco.xfer = nil
			sco.state = SCO_STATE_CLOSING

		case SCO_EVT_SHUTDOWN:
			sco.xfer = nil
			sco.state = SCO_STATE_SHUTTING

		case SCO_EVT_CONN_CLOSE:
			// Listen on the old link and open the new one.
			a.createSco(scb, false)
			xfer := sco.xfer
			if xfer == nil {
				sco.state = SCO_STATE_LISTEN
				break
			}
			a.removeSco(xfer, false)
			sco.state = SCO_STATE_CODEC
			sco.xfer = nil
			a.codecNegotiate(xfer)

		default:
			ignored = true
		}

	case SCO_STATE_SHUTTING:
		switch evt {
		case SCO_EVT_CONN_OPEN:
			a.removeSco(scb, true)

		case SCO_EVT_CONN_CLOSE:
			a.scoShutdownState(scb)

			// A block still connected keeps listening.
			if a.scbOpen(scb) {
				a.createSco(scb, false)
				sco.state = SCO_STATE_LISTEN
			}

			if scb == sco.curr {
				sco.curr.scoIdx = xport.SCO_IDX_INVALID
				sco.curr = nil
			}

		case SCO_EVT_LISTEN:
			if scb != sco.curr {
				a.createSco(scb, false)
			}

		case SCO_EVT_SHUTDOWN:
			a.scoShutdownState(scb)
			if scb == sco.curr {
				sco.curr.scoIdx = xport.SCO_IDX_INVALID
				sco.curr = nil
			}

		default:
			ignored = true
		}
	}

	if ignored {
		log.Debugf("AG SCO state %s ignoring event %s", from, evt)
	}

	if sco.state != from {
		log.Debugf("AG SCO state change: %s --> %s (%s)",
			from, sco.state, evt)
	}
}
