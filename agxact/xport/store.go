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

package xport

import (
	"sync"

	"mynewt.apache.org/agmgr/agxact/agdefs"
)

type peerVals struct {
	version     uint16
	hasVersion  bool
	sdpFeatures uint16
	hasFeatures bool
}

// MemPeerStore is a PeerStore that forgets everything on exit.
type MemPeerStore struct {
	mtx   sync.Mutex
	peers map[agdefs.BdAddr]peerVals
}

func NewMemPeerStore() *MemPeerStore {
	return &MemPeerStore{
		peers: map[agdefs.BdAddr]peerVals{},
	}
}

func (s *MemPeerStore) Version(peer agdefs.BdAddr) (uint16, bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	v := s.peers[peer]
	return v.version, v.hasVersion
}

func (s *MemPeerStore) SdpFeatures(peer agdefs.BdAddr) (uint16, bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	v := s.peers[peer]
	return v.sdpFeatures, v.hasFeatures
}

func (s *MemPeerStore) SetVersion(peer agdefs.BdAddr, version uint16) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	v := s.peers[peer]
	v.version = version
	v.hasVersion = true
	s.peers[peer] = v
	return nil
}

func (s *MemPeerStore) SetSdpFeatures(peer agdefs.BdAddr,
	features uint16) error {

	s.mtx.Lock()
	defer s.mtx.Unlock()

	v := s.peers[peer]
	v.sdpFeatures = features
	v.hasFeatures = true
	s.peers[peer] = v
	return nil
}
