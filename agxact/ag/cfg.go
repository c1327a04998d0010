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
	"time"

	"mynewt.apache.org/agmgr/agxact/agdefs"
	"mynewt.apache.org/agmgr/agxact/task"
	"mynewt.apache.org/agmgr/agxact/xport"
)

const (
	HANDLE_NONE uint16 = 0
	HANDLE_ALL  uint16 = 0xffff
)

const (
	MAX_NUM_PEER_HF_IND  = 20
	MAX_NUM_LOCAL_HF_IND = 4
)

// SCO packet type bits.
const (
	SCO_PKT_TYPES_DFLT uint16 = 0x003f
	SCO_PKT_NO_3_EV3   uint16 = 0x0080
)

// Local configuration of one HF indicator.
type HfIndCfg struct {
	Id        uint16
	Supported bool
	Enabled   bool
	Min       uint16
	Max       uint16
}

type Cfg struct {
	// Collaborators.
	Exec   task.Executor
	Rfcomm xport.Rfcomm
	Sdp    xport.Sdp
	Sco    xport.Sco
	Sys    xport.Sys
	Store  xport.PeerStore

	MaxNumClients int

	// Service level connection setup timeout.
	ConnTimeout      time.Duration
	CollisionTimeout time.Duration
	RingTimeout      time.Duration
	CodecNegoTimeout time.Duration

	// Responses to AT+CIND=? and AT+CHLD=?.
	CindInfo   string
	ChldVal    string
	ChldValEcc string

	ScoPktTypes uint16

	// RFCOMM server channel per service.
	Scns [agdefs.SVC_IDX_NUM]uint8

	// Record versions advertised over SDP.
	HspVersion uint16
	HfpVersion uint16

	LocalHfInds []HfIndCfg
}

func NewCfg() Cfg {
	return Cfg{
		Sys: xport.NopSys{},

		MaxNumClients: 6,

		ConnTimeout:      5 * time.Second,
		CollisionTimeout: 2 * time.Second,
		RingTimeout:      5 * time.Second,
		CodecNegoTimeout: 3 * time.Second,

		CindInfo: "(\"call\",(0,1)),(\"callsetup\",(0-3)),(\"service\",(0-1))," +
			"(\"signal\",(0-5)),(\"roam\",(0,1)),(\"battchg\",(0-5))," +
			"(\"callheld\",(0-2))",
		ChldVal:    "(0,1,2,3)",
		ChldValEcc: "(0,1,1x,2,2x,3)",

		ScoPktTypes: SCO_PKT_TYPES_DFLT,

		Scns: [agdefs.SVC_IDX_NUM]uint8{
			agdefs.SVC_IDX_HSP: 2,
			agdefs.SVC_IDX_HFP: 1,
		},

		HspVersion: agdefs.HSP_VERSION_1_2,
		HfpVersion: agdefs.HFP_VERSION_1_7,

		LocalHfInds: []HfIndCfg{
			{agdefs.HF_IND_ENHANCED_SAFETY, false, false, 0, 1},
			{agdefs.HF_IND_BATTERY_LEVEL, true, true, 0, 100},
		},
	}
}

func (cfg *Cfg) localHfInd(id uint16) *HfIndCfg {
	for i := range cfg.LocalHfInds {
		if cfg.LocalHfInds[i].Id == id {
			return &cfg.LocalHfInds[i]
		}
	}

	return nil
}
