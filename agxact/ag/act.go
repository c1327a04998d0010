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

func (a *Ag) cbackOpen(scb *Scb, addr agdefs.BdAddr, status agdefs.Status) {
	a.notify(&OpenEvt{
		EvtHdr: EvtHdr{
			Handle: scb.handle,
			AppId:  scb.appId,
			Status: status,
		},
		Addr:    addr,
		Service: scb.connService,
	})
}

func (a *Ag) register(scb *Scb, data Data) {
	rd, ok := data.(*ApiRegisterData)
	if !ok {
		log.Errorf("AG register without parameters; handle=%d", scb.handle)
		return
	}

	scb.regServices = rd.Services
	scb.servSecMask = rd.SecMask
	scb.features = rd.Features
	scb.appId = rd.AppId

	a.createRecords(scb, rd)
	a.startServers(scb, scb.regServices)

	log.Infof("AG registered handle=%d services=%s features=0x%x",
		scb.handle, scb.regServices, scb.features)

	a.notify(&RegisterEvt{
		EvtHdr: EvtHdr{
			Handle: scb.handle,
			AppId:  scb.appId,
			Status: agdefs.STATUS_SUCCESS,
		},
	})
}

func (a *Ag) deregister(scb *Scb) {
	scb.dealloc = true
	a.delRecords(scb)
	a.closeServers(scb, scb.regServices)
	a.scbDealloc(scb)
}

// Deregistration of a connected block; the rest happens once RFCOMM is
// down.
func (a *Ag) startDereg(scb *Scb) {
	scb.dealloc = true
	a.delRecords(scb)
}

func (a *Ag) startOpen(scb *Scb, data Data) {
	od, ok := data.(*ApiOpenData)
	if !ok {
		log.Errorf("AG open without parameters; handle=%d", scb.handle)
		return
	}

	scb.peerAddr = od.Addr
	scb.cliSecMask = od.SecMask
	scb.openServices = scb.regServices

	// Let a connection the peer is already setting up go through; the
	// collision timer decides what happens to ours.
	if pending, opening := a.rfcomm.IsOpening(); opening {
		log.Debugf("AG incoming connection from %s in progress; "+
			"deferring open of %s", pending, scb.peerAddr)
		a.collisionDetected(scb.peerAddr)
		return
	}

	a.closeServers(scb, scb.regServices)
	scb.role = agdefs.ROLE_INT
	a.doDisc(scb, scb.openServices)
}

func (a *Ag) discIntRes(scb *Scb, data Data) {
	status := xport.DISC_STATUS_FAIL
	if dd, ok := data.(*DiscResultData); ok {
		status = dd.Status
	}

	evt := EVT_DISC_FAIL
	if status == xport.DISC_STATUS_SUCCESS {
		if a.findAttr(scb, scb.openServices) {
			scb.connService = serviceToIdx(scb.openServices)
			evt = EVT_DISC_OK
		}
	}

	a.freeDb(scb)

	if evt == EVT_DISC_FAIL && status != xport.DISC_STATUS_FAIL {
		hfp := scb.openServices&agdefs.HFP_SERVICE_MASK != 0
		hsp := scb.openServices&agdefs.HSP_SERVICE_MASK != 0

		switch {
		case hfp && hsp:
			log.Debugf("AG no HFP on %s; trying HSP", scb.peerAddr)
			scb.openServices &^= agdefs.HFP_SERVICE_MASK
			a.doDisc(scb, scb.openServices)
			return

		case hsp && scb.hspVersion == agdefs.HSP_VERSION_1_2:
			log.Debugf("AG no HSP 1.2 on %s; trying HSP 1.0", scb.peerAddr)
			scb.hspVersion = agdefs.HSP_VERSION_1_0
			a.doDisc(scb, scb.openServices)
			return
		}
	}

	a.smExecute(scb, evt, data)
}

func (a *Ag) discAcpRes(scb *Scb, data Data) {
	if dd, ok := data.(*DiscResultData); ok &&
		dd.Status == xport.DISC_STATUS_SUCCESS {

		a.findAttr(scb, agdefs.SvcMasks[scb.connService])
	}

	a.freeDb(scb)
}

func (a *Ag) discFail(scb *Scb) {
	a.startServers(scb, scb.regServices)

	peer := scb.peerAddr
	scb.peerAddr = agdefs.BdAddrEmpty

	a.cbackOpen(scb, peer, agdefs.STATUS_FAIL_SDP)
}

func (a *Ag) openFail(scb *Scb, data Data) {
	var addr agdefs.BdAddr
	if od, ok := data.(*ApiOpenData); ok {
		addr = od.Addr
	}

	a.cbackOpen(scb, addr, agdefs.STATUS_FAIL_RESOURCES)
}

func (a *Ag) rfcFail(scb *Scb) {
	peer := scb.peerAddr

	scb.connPort = 0
	scb.connService = agdefs.SVC_IDX_HSP
	scb.peerFeatures = 0
	scb.peerCodecs = agdefs.CODEC_CVSD
	scb.scoCodec = agdefs.CODEC_CVSD
	scb.role = agdefs.ROLE_NONE
	scb.svcConn = false
	scb.hspVersion = agdefs.HSP_VERSION_1_2
	scb.peerAddr = agdefs.BdAddrEmpty

	a.startServers(scb, scb.regServices)
	a.cbackOpen(scb, peer, agdefs.STATUS_FAIL_RFCOMM)
}

func (a *Ag) rfcClose(scb *Scb) {
	peer := scb.peerAddr

	scb.connService = agdefs.SVC_IDX_HSP
	scb.peerFeatures = 0
	scb.peerCodecs = agdefs.CODEC_CVSD
	scb.scoCodec = agdefs.CODEC_CVSD
	scb.codecUpdated = false
	scb.codecFallback = false
	scb.msbcSettings = agdefs.MSBC_SETTINGS_T2
	scb.role = agdefs.ROLE_NONE
	scb.postSco = POST_SCO_NONE
	scb.svcConn = false
	scb.hspVersion = agdefs.HSP_VERSION_1_2
	if scb.interp != nil {
		scb.interp.Reinit()
	}
	scb.peerHfInds = [MAX_NUM_PEER_HF_IND]HfInd{}
	scb.localHfInds = [MAX_NUM_LOCAL_HF_IND]HfInd{}

	stopTimer(&scb.ringTmr)
	stopTimer(&scb.svcTmr)
	stopTimer(&scb.codecTmr)

	a.sys.ConnClose(peer)
	if a.activeDevice == peer {
		a.clearActiveDevice()
	}

	log.Infof("AG connection closed; handle=%d peer=%s", scb.handle, peer)
	a.notify(&CloseEvt{
		EvtHdr: EvtHdr{
			Handle: scb.handle,
			AppId:  scb.appId,
		},
		Addr: peer,
	})

	if scb.dealloc {
		a.scoShutdown(scb)
		a.closeServers(scb, scb.regServices)
		a.scbDealloc(scb)
		return
	}

	scb.peerAddr = agdefs.BdAddrEmpty

	// Restart only the servers that are not still listening.
	services := scb.regServices
	for i, p := range scb.servPorts {
		if p != 0 {
			services &^= agdefs.SvcMasks[i]
		}
	}
	a.startServers(scb, services)
	scb.connPort = 0

	a.scoShutdown(scb)

	for _, s := range a.scbs {
		if s.inUse && s.svcConn {
			return
		}
	}
	a.sys.ScoUnuse(peer)
}

func (a *Ag) rfcOpen(scb *Scb) {
	scb.clipEnabled = false
	scb.ccwaEnabled = false
	scb.cmerEnabled = false
	scb.cmeeEnabled = false
	scb.inbandEnabled = scb.features&agdefs.FEAT_INBAND != 0

	if scb.connService == agdefs.SVC_IDX_HFP {
		if v, ok := a.store.Version(scb.peerAddr); ok {
			scb.peerVersion = v
		} else {
			log.Debugf("AG no stored HFP version for %s", scb.peerAddr)
			scb.peerVersion = agdefs.VERSION_UNKNOWN
		}

		if f, ok := a.store.SdpFeatures(scb.peerAddr); ok {
			scb.peerSdpFeatures = f
			if !scb.receivedAtBac && f&agdefs.SDP_FEAT_WBS_SUPPORT != 0 {
				scb.codecUpdated = true
				scb.peerCodecs = agdefs.CODEC_CVSD & agdefs.CODEC_MSBC
				scb.scoCodec = agdefs.CODEC_MSBC
			}
		}
	}

	if scb.connService == agdefs.SVC_IDX_HFP {
		scb.interp = at.NewInterp(at.HfpCmds,
			func(cmd *at.Cmd, argType at.ArgType, arg string, intArg int) {
				a.hfpCmdCb(scb, cmd, argType, arg, intArg)
			},
			func(unknown bool, text string) {
				a.atErrCb(scb, unknown, text)
			})
	} else {
		scb.interp = at.NewInterp(at.HspCmds,
			func(cmd *at.Cmd, argType at.ArgType, arg string, intArg int) {
				a.hspCmdCb(scb, cmd, argType, arg, intArg)
			},
			func(unknown bool, text string) {
				a.atErrCb(scb, unknown, text)
			})
	}

	a.sys.ConnOpen(scb.peerAddr)

	log.Infof("AG connection open; handle=%d peer=%s service=%s",
		scb.handle, scb.peerAddr, scb.connService)
	a.cbackOpen(scb, scb.peerAddr, agdefs.STATUS_SUCCESS)

	if scb.connService == agdefs.SVC_IDX_HFP {
		handle := scb.handle
		a.startTimer(&scb.svcTmr, a.cfg.ConnTimeout, func() {
			a.smExecuteByHandle(handle, EVT_SVC_TOUT, nil)
		})
	} else {
		a.svcConnOpen(scb)
	}
}

func (a *Ag) rfcAcpOpen(scb *Scb, data Data) {
	rd, ok := data.(*RfcData)
	if !ok {
		log.Errorf("AG accept without port; handle=%d", scb.handle)
		return
	}

	scb.role = agdefs.ROLE_ACP

	dev, err := a.rfcomm.CheckConnection(rd.Port)
	if err != nil {
		log.Errorf("AG port %d check failed: %s", rd.Port, err.Error())
		return
	}

	for _, other := range a.scbs {
		if other.inUse && timerPending(other.collisionTmr) {
			log.Debugf("AG cancel collision timer for %s", other.peerAddr)
			stopTimer(&other.collisionTmr)
			if other.peerAddr != dev && other != scb {
				// The incoming connection is from someone else; carry on
				// with the deferred open.
				a.resumeOpen(other)
			}
		}

		if other.inUse && other.peerAddr == dev && other != scb {
			log.Debugf("AG fail outgoing connection to %s before "+
				"accepting", dev)

			// Its search must not complete into a reused block.
			if other.discPending {
				a.sdp.CancelDiscovery(other.peerAddr)
			}
			a.freeDb(other)

			port := other.connPort
			a.rfcFail(other)
			other.state = STATE_INIT
			if port != 0 {
				if err := a.rfcomm.Close(port); err != nil {
					log.Warnf("AG failed to close port %d of %s: %s",
						port, dev, err.Error())
				}
			}
		}
	}

	scb.peerAddr = dev

	for i, p := range scb.servPorts {
		if p == rd.Port {
			scb.connService = agdefs.SvcIdx(i)
			scb.connPort = rd.Port
			break
		}
	}

	log.Debugf("AG accepted %s on port %d; service=%s",
		dev, scb.connPort, scb.connService)

	a.closeServers(scb,
		scb.regServices&^agdefs.SvcMasks[scb.connService])

	a.doDisc(scb, agdefs.SvcMasks[scb.connService])
	a.rfcOpen(scb)
}

func (a *Ag) rfcData(scb *Scb) {
	buf := make([]byte, RFC_READ_MAX)

	for {
		n, err := a.rfcomm.Read(scb.connPort, buf)
		if err != nil {
			log.Errorf("AG failed to read from %s: %s",
				scb.peerAddr, err.Error())
			return
		}
		if n == 0 {
			log.Debugf("AG no data from %s", scb.peerAddr)
			return
		}

		a.sys.Busy(scb.peerAddr)
		scb.interp.Parse(buf[:n])

		// The commands may have closed the connection.
		if !scb.inUse || scb.interp == nil {
			return
		}

		if scb.scoIdx != xport.SCO_IDX_INVALID && a.scoIsOpen(scb) {
			a.sys.ScoOpen(scb.peerAddr)
		} else {
			a.sys.Idle(scb.peerAddr)
		}

		if n < RFC_READ_MAX {
			return
		}
	}
}

func (a *Ag) startClose(scb *Scb) {
	if a.scoIsOpen(scb) {
		// Finish closing once the audio link is down.
		scb.postSco = POST_SCO_CLOSE_RFC
	} else {
		scb.postSco = POST_SCO_NONE
		a.rfcDoClose(scb)
	}

	a.scoShutdown(scb)
}

func (a *Ag) postScoOpen(scb *Scb) {
	switch scb.postSco {
	case POST_SCO_RING:
		a.sendRing(scb)
		scb.postSco = POST_SCO_NONE

	case POST_SCO_CALL_CONN:
		a.sendCallInds(scb, agdefs.RES_IN_CALL_CONN)
		scb.postSco = POST_SCO_NONE
	}
}

func (a *Ag) postScoClose(scb *Scb) {
	switch scb.postSco {
	case POST_SCO_CLOSE_RFC:
		a.rfcDoClose(scb)
		scb.postSco = POST_SCO_NONE

	case POST_SCO_CALL_CONN:
		a.sendCallInds(scb, agdefs.RES_IN_CALL_CONN)
		scb.postSco = POST_SCO_NONE

	case POST_SCO_CALL_ORIG:
		a.sendCallInds(scb, agdefs.RES_OUT_CALL_ORIG)
		scb.postSco = POST_SCO_NONE

	case POST_SCO_CALL_END:
		a.sendCallInds(scb, agdefs.RES_END_CALL)
		scb.postSco = POST_SCO_NONE

	case POST_SCO_CALL_END_INCALL:
		a.sendCallInds(scb, agdefs.RES_END_CALL)

		// The incoming call indications were held back until now.
		a.sendCallInds(scb, agdefs.RES_IN_CALL)
		if a.inbandEnabled(scb) && scb.features&agdefs.FEAT_NOSCO == 0 {
			scb.postSco = POST_SCO_RING
			a.scoOpen(scb)
		} else {
			scb.postSco = POST_SCO_NONE
			a.sendRing(scb)
		}
	}
}

// svcConnOpen marks the service level connection as up.  Only the first
// call has any effect.
func (a *Ag) svcConnOpen(scb *Scb) {
	if scb.svcConn {
		return
	}

	scb.svcConn = true
	scb.biaMaskedOut = 0
	stopTimer(&scb.ringTmr)
	stopTimer(&scb.svcTmr)

	if scb.callInd != agdefs.CALL_INACTIVE ||
		scb.callsetupInd != agdefs.CALLSETUP_NONE {

		a.sys.ScoUse(scb.peerAddr)
	}

	if a.activeDevice.IsEmpty() {
		a.setActiveDevice(scb.peerAddr)
	}

	log.Infof("AG service level connection up; handle=%d peer=%s "+
		"features=0x%x codecs=%s", scb.handle, scb.peerAddr,
		scb.peerFeatures, scb.peerCodecs)

	a.notify(&ConnEvt{
		EvtHdr: EvtHdr{
			Handle: scb.handle,
			AppId:  scb.appId,
		},
		Addr:         scb.peerAddr,
		PeerFeatures: scb.peerFeatures,
		PeerCodecs:   scb.peerCodecs,
	})
}

func (a *Ag) setCodec(scb *Scb, data Data) {
	cd, ok := data.(*ApiSetCodecData)
	if !ok {
		return
	}
	codec := cd.Codec

	evt := &WbsEvt{
		EvtHdr: EvtHdr{Handle: scb.handle, AppId: scb.appId},
		Codec:  codec,
	}

	switch {
	case codec != agdefs.CODEC_NONE && codec != agdefs.CODEC_CVSD &&
		codec != agdefs.CODEC_MSBC:

		log.Warnf("AG invalid codec requested: %s", codec)
		evt.Status = agdefs.STATUS_FAIL_RESOURCES

	case scb.peerCodecs&codec != 0 || codec == agdefs.CODEC_NONE ||
		codec == agdefs.CODEC_CVSD:

		scb.scoCodec = codec
		scb.codecUpdated = true
		evt.Status = agdefs.STATUS_SUCCESS

	default:
		log.Warnf("AG codec %s not supported by %s", codec, scb.peerAddr)
		evt.Status = agdefs.STATUS_FAIL_RESOURCES
	}

	a.notify(evt)
}
