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

package agdefs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type BdAddr [6]byte

var BdAddrEmpty = BdAddr{}

func ParseBdAddr(s string) (BdAddr, error) {
	ba := BdAddr{}

	toks := strings.Split(strings.ToLower(s), ":")
	if len(toks) != 6 {
		return ba, fmt.Errorf("invalid BD addr string: %s", s)
	}

	for i, t := range toks {
		u64, err := strconv.ParseUint(t, 16, 8)
		if err != nil {
			return ba, err
		}
		ba[i] = byte(u64)
	}

	return ba, nil
}

func (ba BdAddr) String() string {
	var buf bytes.Buffer
	buf.Grow(len(ba) * 3)

	for i, b := range ba {
		if i != 0 {
			buf.WriteString(":")
		}
		fmt.Fprintf(&buf, "%02x", b)
	}

	return buf.String()
}

func (ba BdAddr) IsEmpty() bool {
	return ba == BdAddrEmpty
}

func (ba BdAddr) MarshalJSON() ([]byte, error) {
	return json.Marshal(ba.String())
}

func (ba *BdAddr) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	var err error
	*ba, err = ParseBdAddr(s)
	return err
}

// Index into the per-service arrays of a control block.
type SvcIdx int

const (
	SVC_IDX_HSP SvcIdx = iota
	SVC_IDX_HFP
	SVC_IDX_NUM
)

var svcIdxNameMap = map[SvcIdx]string{
	SVC_IDX_HSP: "hsp",
	SVC_IDX_HFP: "hfp",
}

func (i SvcIdx) String() string {
	s := svcIdxNameMap[i]
	if s == "" {
		return "???"
	}
	return s
}

type SvcMask uint32

const (
	HSP_SERVICE_ID = 5
	HFP_SERVICE_ID = 6

	HSP_SERVICE_MASK SvcMask = 1 << HSP_SERVICE_ID
	HFP_SERVICE_MASK SvcMask = 1 << HFP_SERVICE_ID
)

var SvcMasks = [SVC_IDX_NUM]SvcMask{HSP_SERVICE_MASK, HFP_SERVICE_MASK}
var SvcIds = [SVC_IDX_NUM]uint8{HSP_SERVICE_ID, HFP_SERVICE_ID}

func SvcMaskFromString(s string) (SvcMask, error) {
	var mask SvcMask
	for _, tok := range strings.Split(strings.ToLower(s), ",") {
		switch strings.TrimSpace(tok) {
		case "hsp":
			mask |= HSP_SERVICE_MASK
		case "hfp":
			mask |= HFP_SERVICE_MASK
		default:
			return 0, fmt.Errorf("invalid service: %s", tok)
		}
	}

	return mask, nil
}

func (m SvcMask) String() string {
	names := []string{}
	if m&HSP_SERVICE_MASK != 0 {
		names = append(names, "hsp")
	}
	if m&HFP_SERVICE_MASK != 0 {
		names = append(names, "hfp")
	}
	return strings.Join(names, ",")
}

type Status uint8

const (
	STATUS_SUCCESS Status = iota
	STATUS_FAIL_SDP
	STATUS_FAIL_RFCOMM
	STATUS_FAIL_RESOURCES
)

var statusNameMap = map[Status]string{
	STATUS_SUCCESS:        "success",
	STATUS_FAIL_SDP:       "fail_sdp",
	STATUS_FAIL_RFCOMM:    "fail_rfcomm",
	STATUS_FAIL_RESOURCES: "fail_resources",
}

func (s Status) String() string {
	n := statusNameMap[s]
	if n == "" {
		return "???"
	}
	return n
}

type Role uint8

const (
	ROLE_NONE Role = iota
	ROLE_INT
	ROLE_ACP
)

// Local AG features, advertised in +BRSF and SDP.
const (
	FEAT_3WAY    uint32 = 0x00000001
	FEAT_ECNR    uint32 = 0x00000002
	FEAT_VREC    uint32 = 0x00000004
	FEAT_INBAND  uint32 = 0x00000008
	FEAT_VTAG    uint32 = 0x00000010
	FEAT_REJECT  uint32 = 0x00000020
	FEAT_ECS     uint32 = 0x00000040
	FEAT_ECC     uint32 = 0x00000080
	FEAT_EXTERR  uint32 = 0x00000100
	FEAT_CODEC   uint32 = 0x00000200
	FEAT_HF_IND  uint32 = 0x00000400
	FEAT_ESCO_S4 uint32 = 0x00000800

	// Proprietary features; never sent to the peer.
	FEAT_BTRH    uint32 = 0x00010000
	FEAT_UNAT    uint32 = 0x00020000
	FEAT_NOSCO   uint32 = 0x00040000
	FEAT_NO_ESCO uint32 = 0x00080000
	FEAT_VOIP    uint32 = 0x00100000
	FEAT_ESCO    uint32 = 0x00200000
)

const BRSF_FEAT_SPEC uint32 = 0x00000FFF
const HFP_1_6_FEAT_MASK uint32 = 0x000003FF

// Peer HF features, from AT+BRSF.
const (
	PEER_FEAT_ECNR    uint32 = 0x0001
	PEER_FEAT_3WAY    uint32 = 0x0002
	PEER_FEAT_CLI     uint32 = 0x0004
	PEER_FEAT_VREC    uint32 = 0x0008
	PEER_FEAT_VOL     uint32 = 0x0010
	PEER_FEAT_ECS     uint32 = 0x0020
	PEER_FEAT_ECC     uint32 = 0x0040
	PEER_FEAT_CODEC   uint32 = 0x0080
	PEER_FEAT_HF_IND  uint32 = 0x0100
	PEER_FEAT_ESCO_S4 uint32 = 0x0200
	PEER_FEAT_VOIP    uint32 = 0x0400
	PEER_FEAT_ESCO    uint32 = 0x0800
)

// SDP SupportedFeatures bit indicating wide band speech.
const SDP_FEAT_WBS_SUPPORT uint16 = 0x0020

type Codec uint16

const (
	CODEC_NONE Codec = 0x0000
	CODEC_CVSD Codec = 0x0001
	CODEC_MSBC Codec = 0x0002
)

// Codec ids exchanged in AT+BAC / +BCS.
const (
	UUID_CODEC_CVSD = 1
	UUID_CODEC_MSBC = 2
)

func (c Codec) String() string {
	switch c {
	case CODEC_NONE:
		return "none"
	case CODEC_CVSD:
		return "cvsd"
	case CODEC_MSBC:
		return "msbc"
	case CODEC_CVSD | CODEC_MSBC:
		return "cvsd|msbc"
	default:
		return fmt.Sprintf("codec(0x%04x)", uint16(c))
	}
}

func CodecFromString(s string) (Codec, error) {
	switch strings.ToLower(s) {
	case "none":
		return CODEC_NONE, nil
	case "cvsd":
		return CODEC_CVSD, nil
	case "msbc":
		return CODEC_MSBC, nil
	default:
		return CODEC_NONE, fmt.Errorf("invalid codec: %s", s)
	}
}

type MsbcSettings uint8

const (
	MSBC_SETTINGS_T2 MsbcSettings = iota
	MSBC_SETTINGS_T1
)

const (
	HSP_VERSION_1_0 uint16 = 0x0100
	HSP_VERSION_1_2 uint16 = 0x0102

	HFP_VERSION_1_5 uint16 = 0x0105
	HFP_VERSION_1_6 uint16 = 0x0106
	HFP_VERSION_1_7 uint16 = 0x0107

	VERSION_UNKNOWN uint16 = 0
)

// Indicator values.
const (
	CALL_INACTIVE = 0
	CALL_ACTIVE   = 1

	CALLSETUP_NONE     = 0
	CALLSETUP_INCOMING = 1
	CALLSETUP_OUTGOING = 2
	CALLSETUP_ALERTING = 3

	CALLHELD_NONE   = 0
	CALLHELD_ACTIVE = 1
	CALLHELD_HOLD   = 2
)

// Indicator ids, in +CIND order.
const (
	IND_CALL      = 1
	IND_CALLSETUP = 2
	IND_SERVICE   = 3
	IND_SIGNAL    = 4
	IND_ROAM      = 5
	IND_BATTCHG   = 6
	IND_CALLHELD  = 7
)

// HF indicator ids.
const (
	HF_IND_ENHANCED_SAFETY = 1
	HF_IND_BATTERY_LEVEL   = 2
)

const BTRH_READ = 3
const BTRH_NO_RESP = 4

// CME error codes.
const (
	CME_AG_FAILURE          = 0
	CME_NO_CONN_TO_PHONE    = 1
	CME_OP_NOT_ALLOWED      = 3
	CME_OP_NOT_SUPPORTED    = 4
	CME_PH_SIM_PIN_REQUIRED = 5
	CME_SIM_NOT_INSERTED    = 10
	CME_SIM_PIN_REQUIRED    = 11
	CME_SIM_PUK_REQUIRED    = 12
	CME_SIM_FAILURE         = 13
	CME_SIM_BUSY            = 14
	CME_INCORRECT_PASSWORD  = 16
	CME_SIM_PIN2_REQUIRED   = 17
	CME_SIM_PUK2_REQUIRED   = 18
	CME_MEMORY_FULL         = 20
	CME_INVALID_INDEX       = 21
	CME_MEMORY_FAILURE      = 23
	CME_TEXT_TOO_LONG       = 24
	CME_INV_CHAR_IN_TSTR    = 25
	CME_DSTR_TOO_LONG       = 26
	CME_INV_CHAR_IN_DSTR    = 27
	CME_NO_NETWORK_SERVICE  = 30
	CME_NETWORK_TIMEOUT     = 31
	CME_NO_NET_EMG_ONLY     = 32
)

// Result codes passed by the application to Result().
type Res uint8

const (
	RES_SPK Res = iota
	RES_MIC
	RES_INBAND_RING
	RES_CIND
	RES_BINP
	RES_IND
	RES_BVRA
	RES_CNUM
	RES_BTRH
	RES_CLCC
	RES_COPS
	RES_IN_CALL
	RES_IN_CALL_CONN
	RES_CALL_WAIT
	RES_OUT_CALL_ORIG
	RES_OUT_CALL_ALERT
	RES_OUT_CALL_CONN
	RES_CALL_CANCEL
	RES_END_CALL
	RES_IN_CALL_HELD
	RES_MULTI_CALL
	RES_BIND
	RES_IND_ON_DEMAND
	RES_UNAT
	RES_MAX
)

var resNameMap = map[Res]string{
	RES_SPK:            "spk",
	RES_MIC:            "mic",
	RES_INBAND_RING:    "inband_ring",
	RES_CIND:           "cind",
	RES_BINP:           "binp",
	RES_IND:            "ind",
	RES_BVRA:           "bvra",
	RES_CNUM:           "cnum",
	RES_BTRH:           "btrh",
	RES_CLCC:           "clcc",
	RES_COPS:           "cops",
	RES_IN_CALL:        "in_call",
	RES_IN_CALL_CONN:   "in_call_conn",
	RES_CALL_WAIT:      "call_wait",
	RES_OUT_CALL_ORIG:  "out_call_orig",
	RES_OUT_CALL_ALERT: "out_call_alert",
	RES_OUT_CALL_CONN:  "out_call_conn",
	RES_CALL_CANCEL:    "call_cancel",
	RES_END_CALL:       "end_call",
	RES_IN_CALL_HELD:   "in_call_held",
	RES_MULTI_CALL:     "multi_call",
	RES_BIND:           "bind",
	RES_IND_ON_DEMAND:  "ind_on_demand",
	RES_UNAT:           "unat",
}

func (r Res) String() string {
	s := resNameMap[r]
	if s == "" {
		return "???"
	}
	return s
}

func ResFromString(s string) (Res, error) {
	for r, name := range resNameMap {
		if s == name {
			return r, nil
		}
	}

	return RES_MAX, fmt.Errorf("invalid result: %s", s)
}

// Completion flags carried with an application result.
const (
	OK_CONTINUE = 0
	OK_DONE     = 1
	OK_ERROR    = 2
)

// Application-visible events derived from AT commands.
type AtEvtId uint8

const (
	AT_EVT_NONE AtEvtId = iota
	AT_EVT_SPK
	AT_EVT_MIC
	AT_EVT_CKPD
	AT_EVT_A
	AT_EVT_D
	AT_EVT_CHLD
	AT_EVT_CHUP
	AT_EVT_CIND
	AT_EVT_VTS
	AT_EVT_BINP
	AT_EVT_BLDN
	AT_EVT_BVRA
	AT_EVT_NREC
	AT_EVT_CNUM
	AT_EVT_BTRH
	AT_EVT_CLCC
	AT_EVT_COPS
	AT_EVT_UNAT
	AT_EVT_CBC
	AT_EVT_BAC
	AT_EVT_BCS
	AT_EVT_BIND
	AT_EVT_BIEV
	AT_EVT_BIA
	AT_EVT_MAX
)

var atEvtNameMap = map[AtEvtId]string{
	AT_EVT_SPK:  "spk",
	AT_EVT_MIC:  "mic",
	AT_EVT_CKPD: "ckpd",
	AT_EVT_A:    "a",
	AT_EVT_D:    "d",
	AT_EVT_CHLD: "chld",
	AT_EVT_CHUP: "chup",
	AT_EVT_CIND: "cind",
	AT_EVT_VTS:  "vts",
	AT_EVT_BINP: "binp",
	AT_EVT_BLDN: "bldn",
	AT_EVT_BVRA: "bvra",
	AT_EVT_NREC: "nrec",
	AT_EVT_CNUM: "cnum",
	AT_EVT_BTRH: "btrh",
	AT_EVT_CLCC: "clcc",
	AT_EVT_COPS: "cops",
	AT_EVT_UNAT: "unat",
	AT_EVT_CBC:  "cbc",
	AT_EVT_BAC:  "bac",
	AT_EVT_BCS:  "bcs",
	AT_EVT_BIND: "bind",
	AT_EVT_BIEV: "biev",
	AT_EVT_BIA:  "bia",
}

func (e AtEvtId) String() string {
	s := atEvtNameMap[e]
	if s == "" {
		return "???"
	}
	return s
}
