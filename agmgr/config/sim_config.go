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

package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"mynewt.apache.org/agmgr/agxact/agdefs"
	"mynewt.apache.org/agmgr/agxact/xport"
	"mynewt.apache.org/newt/util"
)

// Peer scn advertised in the simulated hands-free record.
const simPeerScn = 3

// Describes the hands-free device that answers on the far side of a
// simulated or serial connection.
type PeerCfg struct {
	Addr         agdefs.BdAddr
	Svc          agdefs.SvcIdx
	Version      uint16
	Features     uint16
	Wbs          bool
	RemoteVolume bool
}

type SimCfg struct {
	Peer        PeerCfg
	AutoConnect bool
}

func NewPeerCfg() PeerCfg {
	return PeerCfg{
		Addr:    agdefs.BdAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		Svc:     agdefs.SVC_IDX_HFP,
		Version: agdefs.HFP_VERSION_1_7,
	}
}

// Builds the SDP record the peer exposes.
func (pc *PeerCfg) Record() xport.SdpRecord {
	if pc.Svc == agdefs.SVC_IDX_HSP {
		return xport.SdpRecord{
			ServiceClass: agdefs.PeerServiceUuid(agdefs.SVC_IDX_HSP,
				pc.Version),
			Scn:          simPeerScn,
			Version:      pc.Version,
			RemoteVolume: pc.RemoteVolume,
		}
	}

	feats := pc.Features
	if pc.Wbs {
		feats |= agdefs.SDP_FEAT_WBS_SUPPORT
	}
	return xport.SdpRecord{
		ServiceClass: agdefs.UUID_SERVCLASS_HF_HANDSFREE,
		Scn:          simPeerScn,
		Version:      pc.Version,
		Features:     feats,
		HasFeatures:  true,
	}
}

func einvalConnString(f string, args ...interface{}) error {
	suffix := fmt.Sprintf(f, args...)
	return util.FmtNewtError("Invalid connstring; %s", suffix)
}

// Splits "k1=v1,k2=v2" into a map.  Empty strings yield an empty map.
func splitConnString(cs string) (map[string]string, error) {
	m := map[string]string{}
	if strings.TrimSpace(cs) == "" {
		return m, nil
	}

	for _, p := range strings.Split(cs, ",") {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			return nil, einvalConnString("Expected key=value: %s", p)
		}
		m[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}

	return m, nil
}

// Applies a peer setting.  Returns false if k is not a peer key.
func parsePeerKv(pc *PeerCfg, k string, v string) (bool, error) {
	var err error

	switch k {
	case "peer":
		pc.Addr, err = agdefs.ParseBdAddr(v)
		if err != nil {
			return true, einvalConnString("Invalid peer address: %s", v)
		}

	case "svc":
		switch strings.ToLower(v) {
		case "hsp":
			pc.Svc = agdefs.SVC_IDX_HSP
			if pc.Version == agdefs.HFP_VERSION_1_7 {
				pc.Version = agdefs.HSP_VERSION_1_2
			}
		case "hfp":
			pc.Svc = agdefs.SVC_IDX_HFP
		default:
			return true, einvalConnString("Invalid service: %s", v)
		}

	case "version":
		pc.Version, err = cast.ToUint16E(v)
		if err != nil {
			return true, einvalConnString("Invalid version: %s", v)
		}

	case "features":
		pc.Features, err = cast.ToUint16E(v)
		if err != nil {
			return true, einvalConnString("Invalid features: %s", v)
		}

	case "wbs":
		pc.Wbs, err = cast.ToBoolE(v)
		if err != nil {
			return true, einvalConnString("Invalid wbs: %s", v)
		}

	case "volume":
		pc.RemoteVolume, err = cast.ToBoolE(v)
		if err != nil {
			return true, einvalConnString("Invalid volume: %s", v)
		}

	default:
		return false, nil
	}

	return true, nil
}

func ParseSimConnString(cs string) (*SimCfg, error) {
	sc := &SimCfg{
		Peer:        NewPeerCfg(),
		AutoConnect: true,
	}

	m, err := splitConnString(cs)
	if err != nil {
		return nil, err
	}

	for k, v := range m {
		ok, err := parsePeerKv(&sc.Peer, k, v)
		if err != nil {
			return nil, err
		}
		if ok {
			continue
		}

		switch k {
		case "autoconnect":
			sc.AutoConnect, err = cast.ToBoolE(v)
			if err != nil {
				return nil, einvalConnString("Invalid autoconnect: %s", v)
			}

		default:
			return nil, einvalConnString("Unrecognized key: %s", k)
		}
	}

	return sc, nil
}

// Parses a peer description: "peer=<addr>,svc=hfp,version=0x0107,...".
func ParsePeerString(s string) (PeerCfg, error) {
	pc := NewPeerCfg()

	m, err := splitConnString(s)
	if err != nil {
		return pc, err
	}

	for k, v := range m {
		ok, err := parsePeerKv(&pc, k, v)
		if err != nil {
			return pc, err
		}
		if !ok {
			return pc, einvalConnString("Unrecognized key: %s", k)
		}
	}

	return pc, nil
}
