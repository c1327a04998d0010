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

// Package ag implements the audio gateway role of the headset and hands-free
// profiles.  An Ag tracks up to Cfg.MaxNumClients peers, each in its own
// service control block, and drives call control and audio routing over the
// RFCOMM, SDP and SCO collaborators supplied in its Cfg.
//
// All state is owned by the Cfg.Exec executor.  Public methods and
// collaborator completions post jobs onto it and return immediately;
// results are delivered to the Callback passed to Enable.
package ag

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/agmgr/agxact/agdefs"
	"mynewt.apache.org/agmgr/agxact/task"
	"mynewt.apache.org/agmgr/agxact/xport"
)

// Per-service state shared by all control blocks.
type profile struct {
	sdpHandle uint32
	scn       uint8
}

type Ag struct {
	cfg    Cfg
	exec   task.Executor
	rfcomm xport.Rfcomm
	sdp    xport.Sdp
	link   xport.Sco
	sys    xport.Sys
	store  xport.PeerStore

	scbs     []*Scb
	profiles [agdefs.SVC_IDX_NUM]profile
	sco      scoCb
	cb       Callback

	activeDevice agdefs.BdAddr
	scoAllowed   bool
	registered   bool
}

func NewAg(cfg Cfg) (*Ag, error) {
	if cfg.Exec == nil {
		return nil, fmt.Errorf("AG requires an executor")
	}
	if cfg.Rfcomm == nil || cfg.Sdp == nil || cfg.Sco == nil {
		return nil, fmt.Errorf("AG requires RFCOMM, SDP and SCO services")
	}
	if cfg.MaxNumClients <= 0 {
		return nil, fmt.Errorf("invalid client count: %d", cfg.MaxNumClients)
	}

	a := &Ag{
		cfg:        cfg,
		exec:       cfg.Exec,
		rfcomm:     cfg.Rfcomm,
		sdp:        cfg.Sdp,
		link:       cfg.Sco,
		sys:        cfg.Sys,
		store:      cfg.Store,
		scoAllowed: true,
	}

	if a.sys == nil {
		a.sys = xport.NopSys{}
	}
	if a.store == nil {
		a.store = xport.NewMemPeerStore()
	}

	a.scbs = make([]*Scb, cfg.MaxNumClients)
	for i := range a.scbs {
		a.scbs[i] = &Scb{
			handle: uint16(i + 1),
			scoIdx: xport.SCO_IDX_INVALID,
		}
	}

	return a, nil
}

func (a *Ag) notify(evt Evt) {
	log.Debugf("AG event to app: %s", EvtString(evt))
	if a.cb != nil {
		a.cb(evt)
	}
}

//////////////////////////////////////////////////////////////////////////////
// $api                                                                     //
//////////////////////////////////////////////////////////////////////////////

func (a *Ag) Enable(cb Callback) {
	a.exec.Post(func() { a.enable(cb) })
}

func (a *Ag) Disable() {
	a.exec.Post(a.disable)
}

type RegisterParams struct {
	Services agdefs.SvcMask
	SecMask  uint16
	Features uint32
	Names    [agdefs.SVC_IDX_NUM]string
	AppId    uint8
}

// Register allocates a control block and starts listening for the given
// services.  The outcome, including the new handle, is reported with a
// RegisterEvt.
func (a *Ag) Register(p RegisterParams) {
	a.exec.Post(func() { a.apiRegister(p) })
}

func (a *Ag) Deregister(handle uint16) {
	a.post(handle, EVT_API_DEREGISTER, nil)
}

// Open connects to a peer using the services the control block was
// registered with.
func (a *Ag) Open(handle uint16, addr agdefs.BdAddr, secMask uint16) {
	a.post(handle, EVT_API_OPEN, &ApiOpenData{
		Addr:    addr,
		SecMask: secMask,
	})
}

func (a *Ag) Close(handle uint16) {
	a.post(handle, EVT_API_CLOSE, nil)
}

func (a *Ag) AudioOpen(handle uint16) {
	a.post(handle, EVT_API_AUDIO_OPEN, nil)
}

func (a *Ag) AudioClose(handle uint16) {
	a.post(handle, EVT_API_AUDIO_CLOSE, nil)
}

// Result sends a result or unsolicited indication to one peer, or with
// HANDLE_ALL to every peer with a service level connection.
func (a *Ag) Result(handle uint16, res agdefs.Res, data ResData) {
	a.exec.Post(func() { a.apiResult(handle, res, data) })
}

func (a *Ag) SetCodec(handle uint16, codec agdefs.Codec) {
	a.post(handle, EVT_API_SETCODEC, &ApiSetCodecData{Codec: codec})
}

// SetActiveDevice selects the peer allowed to carry audio.  An empty
// address is ignored.
func (a *Ag) SetActiveDevice(addr agdefs.BdAddr) {
	a.exec.Post(func() { a.setActiveDevice(addr) })
}

func (a *Ag) ClearActiveDevice() {
	a.exec.Post(a.clearActiveDevice)
}

func (a *Ag) SetScoAllowed(allowed bool) {
	a.exec.Post(func() { a.scoAllowed = allowed })
}

// Collision reports that another profile is connecting to peer at the
// same time as this gateway.
func (a *Ag) Collision(peer agdefs.BdAddr) {
	a.exec.Post(func() { a.collisionDetected(peer) })
}

// QueryScbs passes a snapshot of every control block in use to fn.  fn runs
// on the executor.
func (a *Ag) QueryScbs(fn func(infos []ScbInfo)) {
	a.exec.Post(func() {
		infos := []ScbInfo{}
		for _, scb := range a.scbs {
			if scb.inUse {
				infos = append(infos, a.scbInfo(scb))
			}
		}
		fn(infos)
	})
}

// ActiveDevice passes the current active device to fn, or BdAddrEmpty if
// there is none.  fn runs on the executor.
func (a *Ag) ActiveDevice(fn func(addr agdefs.BdAddr)) {
	a.exec.Post(func() { fn(a.activeDevice) })
}

func (a *Ag) post(handle uint16, evt Event, data Data) {
	a.exec.Post(func() { a.smExecuteByHandle(handle, evt, data) })
}

func (a *Ag) enable(cb Callback) {
	for _, scb := range a.scbs {
		stopTimer(&scb.ringTmr)
		stopTimer(&scb.svcTmr)
		stopTimer(&scb.collisionTmr)
		stopTimer(&scb.codecTmr)
		*scb = Scb{
			handle: scb.handle,
			scoIdx: xport.SCO_IDX_INVALID,
		}
	}

	a.cb = cb
	a.registered = true
	a.notify(&EnableEvt{})
}

func (a *Ag) disable() {
	if !a.registered {
		log.Warnf("AG already disabled")
		return
	}
	a.registered = false

	dereg := false
	for _, scb := range a.scbs {
		if scb.inUse {
			a.smExecute(scb, EVT_API_DEREGISTER, nil)
			dereg = true
		}
	}

	if !dereg {
		a.notify(&DisableEvt{})
	}
}

func (a *Ag) apiRegister(p RegisterParams) {
	scb := a.scbAlloc()
	if scb == nil {
		a.notify(&RegisterEvt{
			EvtHdr: EvtHdr{Status: agdefs.STATUS_FAIL_RESOURCES},
		})
		return
	}

	a.smExecute(scb, EVT_API_REGISTER, &ApiRegisterData{
		Services: p.Services,
		SecMask:  p.SecMask,
		Features: p.Features,
		Names:    p.Names,
		AppId:    p.AppId,
	})
}

func (a *Ag) apiResult(handle uint16, res agdefs.Res, rd ResData) {
	data := &ApiResultData{Res: res, Data: rd}

	if handle != HANDLE_ALL {
		a.smExecuteByHandle(handle, EVT_API_RESULT, data)
		return
	}

	for _, scb := range a.scbs {
		if scb.inUse && scb.svcConn {
			a.smExecute(scb, EVT_API_RESULT, data)
		}
	}
}

//////////////////////////////////////////////////////////////////////////////
// $listener                                                                //
//////////////////////////////////////////////////////////////////////////////

// Collaborators may call these from any goroutine.

func (a *Ag) RfcommOpened(port xport.Port) {
	a.exec.Post(func() { a.rfcPortEvt(port, true) })
}

func (a *Ag) RfcommClosed(port xport.Port) {
	a.exec.Post(func() { a.rfcPortEvt(port, false) })
}

func (a *Ag) RfcommData(port xport.Port) {
	a.exec.Post(func() { a.rfcDataEvt(port) })
}

func (a *Ag) DiscoveryDone(token uint16, status xport.DiscStatus) {
	a.exec.Post(func() { a.discDone(token, status) })
}

func (a *Ag) ScoConnected(idx xport.ScoIdx) {
	a.exec.Post(func() { a.scoConnCb(idx) })
}

func (a *Ag) ScoDisconnected(idx xport.ScoIdx) {
	a.exec.Post(func() { a.scoDiscCb(idx) })
}

func (a *Ag) ScoConnReq(idx xport.ScoIdx, peer agdefs.BdAddr) {
	a.exec.Post(func() { a.escoConnReq(idx, peer) })
}
