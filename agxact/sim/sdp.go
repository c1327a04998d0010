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
	"sync"

	log "github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"mynewt.apache.org/agmgr/agxact/agdefs"
	"mynewt.apache.org/agmgr/agxact/xport"
)

type search struct {
	token   uint16
	classes []uint16
}

// Sdp is an in-memory xport.Sdp.  Peers advertise the records added with
// AddPeerRecord.
type Sdp struct {
	mtx        sync.Mutex
	lis        xport.Listener
	nextHandle atomic.Uint32

	local   map[uint32]xport.SdpRecord
	remote  map[agdefs.BdAddr][]xport.SdpRecord
	pending map[agdefs.BdAddr]search
	results map[agdefs.BdAddr][]xport.SdpRecord

	// Searches complete as soon as they are started.
	AutoComplete bool
}

func NewSdp() *Sdp {
	return &Sdp{
		local:        map[uint32]xport.SdpRecord{},
		remote:       map[agdefs.BdAddr][]xport.SdpRecord{},
		pending:      map[agdefs.BdAddr]search{},
		results:      map[agdefs.BdAddr][]xport.SdpRecord{},
		AutoComplete: true,
	}
}

func (s *Sdp) SetListener(l xport.Listener) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.lis = l
}

func (s *Sdp) CreateRecord(rec xport.SdpRecord) (uint32, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	h := s.nextHandle.Inc()
	s.local[h] = rec

	log.Debugf("sim: sdp record 0x%04x (%s) handle=%d",
		rec.ServiceClass, rec.Name, h)
	return h, nil
}

func (s *Sdp) DeleteRecord(handle uint32) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.local[handle]; !ok {
		return fmt.Errorf("no sdp record with handle %d", handle)
	}

	delete(s.local, handle)
	return nil
}

func (s *Sdp) StartDiscovery(token uint16, peer agdefs.BdAddr,
	classes []uint16, withScn bool) error {

	var n notifier
	defer n.flush()

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.pending[peer]; ok {
		return fmt.Errorf("discovery of %s already in progress", peer)
	}

	s.pending[peer] = search{token: token, classes: classes}
	if s.AutoComplete {
		s.completeLocked(peer, &n)
	}
	return nil
}

func (s *Sdp) completeLocked(peer agdefs.BdAddr, n *notifier) bool {
	srch, ok := s.pending[peer]
	if !ok {
		return false
	}
	delete(s.pending, peer)

	var found []xport.SdpRecord
	for _, rec := range s.remote[peer] {
		for _, c := range srch.classes {
			if rec.ServiceClass == c {
				found = append(found, rec)
			}
		}
	}
	s.results[peer] = found

	status := xport.DISC_STATUS_SUCCESS
	if len(found) == 0 {
		status = xport.DISC_STATUS_NO_MATCH
	}

	if lis := s.lis; lis != nil {
		n.add(func() { lis.DiscoveryDone(srch.token, status) })
	}
	return true
}

func (s *Sdp) CancelDiscovery(peer agdefs.BdAddr) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	delete(s.pending, peer)
}

func (s *Sdp) FindRecords(peer agdefs.BdAddr,
	class uint16) []xport.SdpRecord {

	s.mtx.Lock()
	defer s.mtx.Unlock()

	var recs []xport.SdpRecord
	for _, rec := range s.results[peer] {
		if rec.ServiceClass == class {
			recs = append(recs, rec)
		}
	}
	return recs
}

func (s *Sdp) FreeDb(peer agdefs.BdAddr) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	delete(s.results, peer)
}

//////////////////////////////////////////////////////////////////////////////
// $peer                                                                    //
//////////////////////////////////////////////////////////////////////////////

func (s *Sdp) AddPeerRecord(peer agdefs.BdAddr, rec xport.SdpRecord) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.remote[peer] = append(s.remote[peer], rec)
}

// Complete finishes a pending search of peer when AutoComplete is off.
func (s *Sdp) Complete(peer agdefs.BdAddr) bool {
	var n notifier
	defer n.flush()

	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.completeLocked(peer, &n)
}

// Fail ends a pending search of peer with a transport failure.
func (s *Sdp) Fail(peer agdefs.BdAddr) bool {
	var n notifier
	defer n.flush()

	s.mtx.Lock()
	defer s.mtx.Unlock()

	srch, ok := s.pending[peer]
	if !ok {
		return false
	}
	delete(s.pending, peer)

	if lis := s.lis; lis != nil {
		n.add(func() { lis.DiscoveryDone(srch.token, xport.DISC_STATUS_FAIL) })
	}
	return true
}

func (s *Sdp) Pending(peer agdefs.BdAddr) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	_, ok := s.pending[peer]
	return ok
}

// Locally registered records, in no particular order.
func (s *Sdp) LocalRecords() []xport.SdpRecord {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	recs := make([]xport.SdpRecord, 0, len(s.local))
	for _, rec := range s.local {
		recs = append(recs, rec)
	}
	return recs
}
