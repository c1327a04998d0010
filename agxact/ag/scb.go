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
	"mynewt.apache.org/agmgr/agxact/at"
	"mynewt.apache.org/agmgr/agxact/xport"
)

// Action to take once a pending SCO open or close completes.
type postSco uint8

const (
	POST_SCO_NONE postSco = iota
	POST_SCO_CLOSE_RFC
	POST_SCO_RING
	POST_SCO_CALL_CONN
	POST_SCO_CALL_ORIG
	POST_SCO_CALL_END
	POST_SCO_CALL_END_INCALL
)

var postScoNameMap = map[postSco]string{
	POST_SCO_NONE:            "none",
	POST_SCO_CLOSE_RFC:       "close_rfc",
	POST_SCO_RING:            "ring",
	POST_SCO_CALL_CONN:       "call_conn",
	POST_SCO_CALL_ORIG:       "call_orig",
	POST_SCO_CALL_END:        "call_end",
	POST_SCO_CALL_END_INCALL: "call_end_incall",
}

func (p postSco) String() string {
	s := postScoNameMap[p]
	if s == "" {
		return "???"
	}
	return s
}

type HfInd struct {
	Id        uint16
	Supported bool
	Enabled   bool
}

// Service control block: the state of one peer connection.
type Scb struct {
	// 1-based index into the pool; never changes.
	handle uint16

	inUse   bool
	dealloc bool
	svcConn bool
	state   State
	role    agdefs.Role
	appId   uint8

	peerAddr     agdefs.BdAddr
	cliSecMask   uint16
	servSecMask  uint16
	regServices  agdefs.SvcMask
	openServices agdefs.SvcMask
	connService  agdefs.SvcIdx
	connPort     xport.Port
	servPorts    [agdefs.SVC_IDX_NUM]xport.Port
	peerScn      uint8
	discPending  bool

	features        uint32
	peerFeatures    uint32
	peerVersion     uint16
	hspVersion      uint16
	peerSdpFeatures uint16

	peerCodecs    agdefs.Codec
	scoCodec      agdefs.Codec
	inuseCodec    agdefs.Codec
	codecUpdated  bool
	codecFallback bool
	receivedAtBac bool
	msbcSettings  agdefs.MsbcSettings
	scoIdx        xport.ScoIdx
	postSco       postSco

	callInd      int
	callsetupInd int
	serviceInd   int
	signalInd    int
	roamInd      int
	battchgInd   int
	callheldInd  int
	biaMaskedOut uint32

	clipEnabled   bool
	ccwaEnabled   bool
	cmerEnabled   bool
	cmeeEnabled   bool
	inbandEnabled bool
	clip          string

	peerHfInds  [MAX_NUM_PEER_HF_IND]HfInd
	localHfInds [MAX_NUM_LOCAL_HF_IND]HfInd

	interp *at.Interp

	ringTmr      *timer
	svcTmr       *timer
	collisionTmr *timer
	codecTmr     *timer
}

// Point-in-time view of a control block, for display.
type ScbInfo struct {
	Handle       uint16
	State        State
	PeerAddr     agdefs.BdAddr
	ConnService  agdefs.SvcIdx
	SvcConn      bool
	PeerFeatures uint32
	PeerCodecs   agdefs.Codec
	ScoCodec     agdefs.Codec
	ScoState     ScoState
	AudioOpen    bool
}

func (a *Ag) scbInfo(scb *Scb) ScbInfo {
	return ScbInfo{
		Handle:       scb.handle,
		State:        scb.state,
		PeerAddr:     scb.peerAddr,
		ConnService:  scb.connService,
		SvcConn:      scb.svcConn,
		PeerFeatures: scb.peerFeatures,
		PeerCodecs:   scb.peerCodecs,
		ScoCodec:     scb.scoCodec,
		ScoState:     a.sco.state,
		AudioOpen:    a.scoIsOpen(scb),
	}
}

func (a *Ag) scbAlloc() *Scb {
	for _, scb := range a.scbs {
		if scb.inUse {
			continue
		}

		*scb = Scb{
			handle:       scb.handle,
			inUse:        true,
			scoIdx:       xport.SCO_IDX_INVALID,
			peerCodecs:   agdefs.CODEC_CVSD,
			scoCodec:     agdefs.CODEC_CVSD,
			peerVersion:  agdefs.VERSION_UNKNOWN,
			hspVersion:   agdefs.HSP_VERSION_1_2,
			msbcSettings: agdefs.MSBC_SETTINGS_T2,
		}

		log.Debugf("AG allocated scb %d", scb.handle)
		return scb
	}

	log.Warnf("AG out of control blocks (max %d)", len(a.scbs))
	return nil
}

// scbDealloc returns a control block to the pool.  The block is reset in
// place; stale references see it as not in use.
func (a *Ag) scbDealloc(scb *Scb) {
	log.Debugf("AG deallocating scb %d", scb.handle)

	stopTimer(&scb.ringTmr)
	stopTimer(&scb.svcTmr)
	stopTimer(&scb.collisionTmr)
	stopTimer(&scb.codecTmr)

	*scb = Scb{
		handle: scb.handle,
		scoIdx: xport.SCO_IDX_INVALID,
	}

	if !a.registered {
		for _, s := range a.scbs {
			if s.inUse {
				return
			}
		}
		a.notify(&DisableEvt{})
	}
}

// Returns the in-use control block with the given handle, or nil.
func (a *Ag) scbByHandle(handle uint16) *Scb {
	if handle < 1 || int(handle) > len(a.scbs) {
		if handle != HANDLE_NONE {
			log.Debugf("AG bad scb handle: %d", handle)
		}
		return nil
	}

	scb := a.scbs[handle-1]
	if !scb.inUse {
		log.Debugf("AG scb %d not in use", handle)
		return nil
	}

	return scb
}

// Returns the handle of the in-use control block connected to addr, or
// HANDLE_NONE.
func (a *Ag) handleByAddr(addr agdefs.BdAddr) uint16 {
	for _, scb := range a.scbs {
		if scb.inUse && scb.peerAddr == addr {
			return scb.handle
		}
	}

	return HANDLE_NONE
}

func (a *Ag) scbByAddr(addr agdefs.BdAddr) *Scb {
	return a.scbByHandle(a.handleByAddr(addr))
}

// Reports whether any control block other than scb has an open
// connection.
func (a *Ag) otherScbOpen(scb *Scb) bool {
	for _, s := range a.scbs {
		if s.inUse && s != scb && s.state == STATE_OPEN {
			return true
		}
	}

	return false
}

func (a *Ag) scbOpen(scb *Scb) bool {
	return scb != nil && scb.inUse && scb.state == STATE_OPEN
}

// Returns the service index to use for a connection, preferring HFP.
func serviceToIdx(services agdefs.SvcMask) agdefs.SvcIdx {
	if services&agdefs.HFP_SERVICE_MASK != 0 {
		return agdefs.SVC_IDX_HFP
	}
	return agdefs.SVC_IDX_HSP
}

// Finds the control block owning an RFCOMM port, either as its connection
// or as one of its listening servers.
func (a *Ag) scbByPort(port xport.Port) *Scb {
	for _, scb := range a.scbs {
		if !scb.inUse {
			continue
		}
		if scb.connPort == port {
			return scb
		}
		for _, p := range scb.servPorts {
			if p == port {
				return scb
			}
		}
	}

	return nil
}

// Returns the index of the indicator with the given id, or -1.
func findHfInd(inds []HfInd, id uint16) int {
	for i, ind := range inds {
		if ind.Id == id {
			return i
		}
	}

	return -1
}
