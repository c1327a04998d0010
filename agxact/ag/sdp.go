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

// HF SupportedFeatures bits that line up with the +BRSF peer feature bits.
const HFP_SDP_BRSF_FEAT_MASK uint32 = 0x001F

// Builds the local service record for one service.
func (a *Ag) agRecord(idx agdefs.SvcIdx, name string,
	features uint32) xport.SdpRecord {

	rec := xport.SdpRecord{
		ServiceClass: agdefs.AgServiceUuids[idx],
		Name:         name,
		Scn:          a.profiles[idx].scn,
	}

	if idx == agdefs.SVC_IDX_HFP {
		// Codec negotiation is advertised as WBS in the record.
		f := uint16(features & HFP_SDP_BRSF_FEAT_MASK)
		if features&agdefs.FEAT_CODEC != 0 {
			f |= agdefs.SDP_FEAT_WBS_SUPPORT
		}
		rec.Version = a.cfg.HfpVersion
		rec.Features = f
		rec.HasFeatures = true
	} else {
		rec.Version = a.cfg.HspVersion
		rec.RemoteVolume = true
	}

	return rec
}

func (a *Ag) createRecords(scb *Scb, data *ApiRegisterData) {
	for i := agdefs.SVC_IDX_HSP; i < agdefs.SVC_IDX_NUM; i++ {
		if data.Services&agdefs.SvcMasks[i] == 0 {
			continue
		}

		p := &a.profiles[i]
		if p.sdpHandle != 0 {
			continue
		}

		p.scn = a.cfg.Scns[i]
		h, err := a.sdp.CreateRecord(a.agRecord(i, data.Names[i],
			data.Features))
		if err != nil {
			log.Errorf("AG failed to create %s record: %s", i, err.Error())
			continue
		}
		p.sdpHandle = h
	}
}

// Deletes the records of services no other active control block is
// registered for.
func (a *Ag) delRecords(scb *Scb) {
	var others agdefs.SvcMask
	for _, s := range a.scbs {
		if s != scb && s.inUse && !s.dealloc {
			others |= s.regServices
		}
	}

	services := scb.regServices &^ others
	for i := agdefs.SVC_IDX_HSP; i < agdefs.SVC_IDX_NUM; i++ {
		if services&agdefs.SvcMasks[i] == 0 {
			continue
		}

		p := &a.profiles[i]
		if p.sdpHandle == 0 {
			continue
		}

		if err := a.sdp.DeleteRecord(p.sdpHandle); err != nil {
			log.Warnf("AG failed to delete %s record: %s", i, err.Error())
		}
		*p = profile{}
	}
}

// Peer service class searched for; HFP is preferred when both services
// are requested.
func (a *Ag) discClass(scb *Scb, services agdefs.SvcMask) (uint16, bool) {
	switch {
	case services&agdefs.HFP_SERVICE_MASK != 0:
		return agdefs.PeerServiceUuid(agdefs.SVC_IDX_HFP, scb.hspVersion), true
	case services&agdefs.HSP_SERVICE_MASK != 0:
		return agdefs.PeerServiceUuid(agdefs.SVC_IDX_HSP, scb.hspVersion), true
	default:
		return 0, false
	}
}

func (a *Ag) doDisc(scb *Scb, services agdefs.SvcMask) {
	class, ok := a.discClass(scb, services)
	if !ok {
		log.Warnf("AG no service to discover on %s", scb.peerAddr)
		a.smExecute(scb, EVT_DISC_FAIL, nil)
		return
	}

	// The initiator needs the server channel to connect to.
	withScn := scb.role == agdefs.ROLE_INT

	scb.discPending = true
	err := a.sdp.StartDiscovery(scb.handle, scb.peerAddr, []uint16{class},
		withScn)
	if err != nil {
		log.Warnf("AG failed to start discovery on %s: %s",
			scb.peerAddr, err.Error())
		a.freeDb(scb)
		a.smExecute(scb, EVT_DISC_FAIL, nil)
	}
}

// Extracts what is needed from the peer's service records.  Returns true if
// a usable record was found.
func (a *Ag) findAttr(scb *Scb, services agdefs.SvcMask) bool {
	class, ok := a.discClass(scb, services)
	if !ok {
		return false
	}
	hfp := services&agdefs.HFP_SERVICE_MASK != 0

	for _, rec := range a.sdp.FindRecords(scb.peerAddr, class) {
		if scb.role == agdefs.ROLE_INT {
			if rec.Scn == 0 {
				continue
			}
			scb.peerScn = rec.Scn
		}

		if rec.Version != 0 {
			if hfp {
				a.storeVersion(scb.peerAddr, rec.Version)
			}
			scb.peerVersion = rec.Version
		}

		if hfp && rec.HasFeatures {
			a.applySdpFeatures(scb, rec.Features)
		}

		if !hfp && rec.RemoteVolume {
			scb.peerFeatures |= agdefs.PEER_FEAT_VOL
		}

		return true
	}

	return false
}

func (a *Ag) applySdpFeatures(scb *Scb, sdpFeatures uint16) {
	// A +BAC may already have arrived; it takes precedence.
	if !scb.receivedAtBac && sdpFeatures&agdefs.SDP_FEAT_WBS_SUPPORT != 0 {
		scb.codecUpdated = true
		scb.peerCodecs = agdefs.CODEC_CVSD & agdefs.CODEC_MSBC
		scb.scoCodec = agdefs.CODEC_MSBC
	}

	if sdpFeatures != scb.peerSdpFeatures {
		scb.peerSdpFeatures = sdpFeatures
		if err := a.store.SetSdpFeatures(scb.peerAddr,
			sdpFeatures); err != nil {

			log.Warnf("AG failed to store SDP features of %s: %s",
				scb.peerAddr, err.Error())
		}
	}

	if scb.peerFeatures == 0 {
		scb.peerFeatures = uint32(sdpFeatures) & HFP_SDP_BRSF_FEAT_MASK
	}
}

func (a *Ag) storeVersion(peer agdefs.BdAddr, version uint16) {
	if v, ok := a.store.Version(peer); ok && v == version {
		return
	}

	if err := a.store.SetVersion(peer, version); err != nil {
		log.Warnf("AG failed to store version of %s: %s",
			peer, err.Error())
	}
}

func (a *Ag) freeDb(scb *Scb) {
	scb.discPending = false
	a.sdp.FreeDb(scb.peerAddr)
}

// Routes a discovery completion to the control block that started it.
func (a *Ag) discDone(token uint16, status xport.DiscStatus) {
	scb := a.scbByHandle(token)
	if scb == nil || !scb.discPending {
		log.Debugf("AG stale discovery result for handle %d", token)
		return
	}

	evt := EVT_DISC_ACP_RES
	if scb.role == agdefs.ROLE_INT {
		evt = EVT_DISC_INT_RES
	}

	a.smExecute(scb, evt, &DiscResultData{Status: status})
}
