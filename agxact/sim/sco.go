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

package sim

import (
	"fmt"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"mynewt.apache.org/agmgr/agxact/agdefs"
	"mynewt.apache.org/agmgr/agxact/xport"
)

// Snapshot of a simulated audio link.
type LinkInfo struct {
	Idx       xport.ScoIdx
	Peer      agdefs.BdAddr
	Orig      bool
	Params    xport.ScoParams
	Connected bool
}

// Sco is an in-memory xport.Sco.
type Sco struct {
	mtx     sync.Mutex
	lis     xport.Listener
	nextIdx atomic.Uint32
	links   map[xport.ScoIdx]*LinkInfo

	transparent map[agdefs.BdAddr]bool
	failNext    int

	// Outgoing links and accepted requests connect immediately.
	AutoConnect bool
}

func NewSco() *Sco {
	return &Sco{
		links:       map[xport.ScoIdx]*LinkInfo{},
		transparent: map[agdefs.BdAddr]bool{},
		AutoConnect: true,
	}
}

func (s *Sco) SetListener(l xport.Listener) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.lis = l
}

func (s *Sco) CreateSco(peer agdefs.BdAddr, orig bool,
	params xport.ScoParams) (xport.ScoIdx, xport.ScoStatus) {

	var n notifier
	defer n.flush()

	s.mtx.Lock()
	defer s.mtx.Unlock()

	l := &LinkInfo{
		Idx:    xport.ScoIdx(s.nextIdx.Inc()),
		Peer:   peer,
		Orig:   orig,
		Params: params,
	}
	s.links[l.Idx] = l

	log.Debugf("sim: sco create idx=%d peer=%s orig=%t setting=%s",
		l.Idx, peer, orig, params.Setting)

	if orig && s.AutoConnect {
		if s.failNext > 0 {
			s.failNext--
			s.failLocked(l, &n)
		} else {
			s.connectLocked(l, &n)
		}
	}

	return l.Idx, xport.SCO_STATUS_CMD_STARTED
}

func (s *Sco) connectLocked(l *LinkInfo, n *notifier) {
	l.Connected = true
	if lis := s.lis; lis != nil {
		idx := l.Idx
		n.add(func() { lis.ScoConnected(idx) })
	}
}

func (s *Sco) failLocked(l *LinkInfo, n *notifier) {
	delete(s.links, l.Idx)
	if lis := s.lis; lis != nil {
		idx := l.Idx
		n.add(func() { lis.ScoDisconnected(idx) })
	}
}

func (s *Sco) RemoveSco(idx xport.ScoIdx) xport.ScoStatus {
	var n notifier
	defer n.flush()

	s.mtx.Lock()
	defer s.mtx.Unlock()

	l := s.links[idx]
	if l == nil {
		return xport.SCO_STATUS_UNKNOWN_ADDR
	}

	if !l.Connected {
		delete(s.links, idx)
		return xport.SCO_STATUS_SUCCESS
	}

	s.failLocked(l, &n)
	return xport.SCO_STATUS_CMD_STARTED
}

func (s *Sco) ConnRsp(idx xport.ScoIdx, accept bool,
	params xport.ScoParams) {

	var n notifier
	defer n.flush()

	s.mtx.Lock()
	defer s.mtx.Unlock()

	l := s.links[idx]
	if l == nil {
		log.Warnf("sim: response for unknown sco link %d", idx)
		return
	}

	if !accept {
		log.Debugf("sim: sco request %d rejected", idx)
		delete(s.links, idx)
		return
	}

	l.Params = params
	if s.AutoConnect {
		s.connectLocked(l, &n)
	}
}

func (s *Sco) ReadScoAddr(idx xport.ScoIdx) (agdefs.BdAddr, bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	l := s.links[idx]
	if l == nil {
		return agdefs.BdAddrEmpty, false
	}
	return l.Peer, true
}

func (s *Sco) RemoteSupportsTransparent(
	peer agdefs.BdAddr) (bool, bool) {

	s.mtx.Lock()
	defer s.mtx.Unlock()

	t, ok := s.transparent[peer]
	if !ok {
		// Controllers are assumed capable unless told otherwise.
		return true, true
	}
	return t, true
}

//////////////////////////////////////////////////////////////////////////////
// $peer                                                                    //
//////////////////////////////////////////////////////////////////////////////

func (s *Sco) SetTransparent(peer agdefs.BdAddr, supported bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.transparent[peer] = supported
}

// FailNext makes the next cnt outgoing links fail to connect.
func (s *Sco) FailNext(cnt int) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.failNext = cnt
}

// Request sends an eSCO connection request from peer, on its listening
// link if it has one.
func (s *Sco) Request(peer agdefs.BdAddr) xport.ScoIdx {
	var n notifier
	defer n.flush()

	s.mtx.Lock()
	defer s.mtx.Unlock()

	var l *LinkInfo
	for _, c := range s.sortedLocked() {
		if c.Peer == peer && !c.Orig && !c.Connected {
			l = c
			break
		}
	}
	if l == nil {
		l = &LinkInfo{
			Idx:  xport.ScoIdx(s.nextIdx.Inc()),
			Peer: peer,
		}
		s.links[l.Idx] = l
	}

	if lis := s.lis; lis != nil {
		idx := l.Idx
		n.add(func() { lis.ScoConnReq(idx, peer) })
	}
	return l.Idx
}

// Connect completes a link when AutoConnect is off.
func (s *Sco) Connect(idx xport.ScoIdx) error {
	var n notifier
	defer n.flush()

	s.mtx.Lock()
	defer s.mtx.Unlock()

	l := s.links[idx]
	if l == nil {
		return fmt.Errorf("no sco link %d", idx)
	}
	if l.Connected {
		return fmt.Errorf("sco link %d already connected", idx)
	}

	s.connectLocked(l, &n)
	return nil
}

// Drop disconnects a link from the peer side.
func (s *Sco) Drop(idx xport.ScoIdx) error {
	var n notifier
	defer n.flush()

	s.mtx.Lock()
	defer s.mtx.Unlock()

	l := s.links[idx]
	if l == nil || !l.Connected {
		return fmt.Errorf("sco link %d not connected", idx)
	}

	s.failLocked(l, &n)
	return nil
}

// Connected returns the connected link to peer.
func (s *Sco) Connected(peer agdefs.BdAddr) (LinkInfo, bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for _, l := range s.sortedLocked() {
		if l.Peer == peer && l.Connected {
			return *l, true
		}
	}
	return LinkInfo{}, false
}

func (s *Sco) Links() []LinkInfo {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	infos := []LinkInfo{}
	for _, l := range s.sortedLocked() {
		infos = append(infos, *l)
	}
	return infos
}

func (s *Sco) sortedLocked() []*LinkInfo {
	links := make([]*LinkInfo, 0, len(s.links))
	for _, l := range s.links {
		links = append(links, l)
	}
	sort.Slice(links, func(i, j int) bool {
		return links[i].Idx < links[j].Idx
	})

	return links
}
