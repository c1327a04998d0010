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
	"bytes"
	"fmt"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"mynewt.apache.org/agmgr/agxact/agdefs"
	"mynewt.apache.org/agmgr/agxact/xport"
)

type rfcPort struct {
	id      xport.Port
	scn     uint8
	svc     agdefs.SvcIdx
	server  bool
	peer    agdefs.BdAddr
	connUp  bool
	pending bool

	// Peer to gateway.
	rx []byte

	// Gateway to peer.
	tx bytes.Buffer
}

// Rfcomm is an in-memory xport.Rfcomm.
type Rfcomm struct {
	mtx      sync.Mutex
	lis      xport.Listener
	nextPort atomic.Uint32
	ports    map[xport.Port]*rfcPort

	opening   agdefs.BdAddr
	isOpening bool

	// Outgoing connections complete as soon as they are requested.
	AutoConnect bool

	// Returned by the next Connect call, if set.
	ConnectErr error
}

func NewRfcomm() *Rfcomm {
	return &Rfcomm{
		ports:       map[xport.Port]*rfcPort{},
		AutoConnect: true,
	}
}

func (r *Rfcomm) SetListener(l xport.Listener) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.lis = l
}

func (r *Rfcomm) newPort() *rfcPort {
	p := &rfcPort{id: xport.Port(r.nextPort.Inc())}
	r.ports[p.id] = p
	return p
}

func (r *Rfcomm) StartServer(scn uint8, svc agdefs.SvcIdx,
	secMask uint16) (xport.Port, error) {

	r.mtx.Lock()
	defer r.mtx.Unlock()

	p := r.newPort()
	p.scn = scn
	p.svc = svc
	p.server = true

	log.Debugf("sim: rfcomm server port %d on scn %d", p.id, scn)
	return p.id, nil
}

func (r *Rfcomm) RemoveServer(port xport.Port) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	p := r.ports[port]
	if p == nil || !p.server {
		return fmt.Errorf("no server port %d", port)
	}

	delete(r.ports, port)
	return nil
}

// Drops the connection on port.  Server ports resume listening.
func (r *Rfcomm) Close(port xport.Port) error {
	var n notifier
	defer n.flush()

	r.mtx.Lock()
	defer r.mtx.Unlock()

	p := r.ports[port]
	if p == nil {
		return fmt.Errorf("no port %d", port)
	}

	r.dropLocked(p, &n)
	return nil
}

func (r *Rfcomm) dropLocked(p *rfcPort, n *notifier) {
	if p.pending && r.isOpening && r.opening == p.peer {
		r.isOpening = false
	}

	p.connUp = false
	p.pending = false
	p.rx = nil
	if p.server {
		p.peer = agdefs.BdAddrEmpty
	} else {
		delete(r.ports, p.id)
	}

	if lis := r.lis; lis != nil {
		id := p.id
		n.add(func() { lis.RfcommClosed(id) })
	}
}

func (r *Rfcomm) Connect(peer agdefs.BdAddr, scn uint8,
	secMask uint16) (xport.Port, error) {

	var n notifier
	defer n.flush()

	r.mtx.Lock()
	defer r.mtx.Unlock()

	if err := r.ConnectErr; err != nil {
		r.ConnectErr = nil
		return 0, err
	}

	p := r.newPort()
	p.scn = scn
	p.peer = peer
	p.pending = true

	log.Debugf("sim: rfcomm connect to %s scn %d on port %d", peer, scn, p.id)

	if r.AutoConnect {
		r.completeLocked(p, &n)
	}
	return p.id, nil
}

func (r *Rfcomm) completeLocked(p *rfcPort, n *notifier) {
	p.pending = false
	p.connUp = true

	if lis := r.lis; lis != nil {
		id := p.id
		n.add(func() { lis.RfcommOpened(id) })
	}
}

// Complete finishes an outgoing connection to peer when AutoConnect is off.
func (r *Rfcomm) Complete(peer agdefs.BdAddr) (xport.Port, error) {
	var n notifier
	defer n.flush()

	r.mtx.Lock()
	defer r.mtx.Unlock()

	for _, p := range r.sortedLocked() {
		if !p.server && p.pending && p.peer == peer {
			r.completeLocked(p, &n)
			return p.id, nil
		}
	}

	return 0, fmt.Errorf("no pending connection to %s", peer)
}

func (r *Rfcomm) Read(port xport.Port, b []byte) (int, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	p := r.ports[port]
	if p == nil || !p.connUp {
		return 0, fmt.Errorf("port %d not connected", port)
	}

	n := copy(b, p.rx)
	p.rx = p.rx[n:]
	return n, nil
}

func (r *Rfcomm) Write(port xport.Port, b []byte) (int, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	p := r.ports[port]
	if p == nil || !p.connUp {
		return 0, fmt.Errorf("port %d not connected", port)
	}

	return p.tx.Write(b)
}

func (r *Rfcomm) CheckConnection(port xport.Port) (agdefs.BdAddr, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	p := r.ports[port]
	if p == nil || !p.connUp {
		return agdefs.BdAddrEmpty, fmt.Errorf("port %d not connected", port)
	}

	return p.peer, nil
}

func (r *Rfcomm) IsOpening() (agdefs.BdAddr, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	return r.opening, r.isOpening
}

//////////////////////////////////////////////////////////////////////////////
// $peer                                                                    //
//////////////////////////////////////////////////////////////////////////////

// SetOpening marks an incoming connection from peer as in progress, as seen
// by IsOpening.
func (r *Rfcomm) SetOpening(peer agdefs.BdAddr) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.opening = peer
	r.isOpening = true
}

func (r *Rfcomm) ClearOpening() {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.isOpening = false
}

// Accept connects peer to the first idle server port on scn.
func (r *Rfcomm) Accept(peer agdefs.BdAddr, scn uint8) (xport.Port, error) {
	var n notifier
	defer n.flush()

	r.mtx.Lock()
	defer r.mtx.Unlock()

	for _, p := range r.sortedLocked() {
		if p.server && p.scn == scn && !p.connUp {
			p.peer = peer
			r.isOpening = false
			r.completeLocked(p, &n)
			return p.id, nil
		}
	}

	return 0, fmt.Errorf("no server listening on scn %d", scn)
}

// Send delivers a line from the peer.  A CR is appended if missing.
func (r *Rfcomm) Send(port xport.Port, line string) error {
	var n notifier
	defer n.flush()

	r.mtx.Lock()
	defer r.mtx.Unlock()

	p := r.ports[port]
	if p == nil || !p.connUp {
		return fmt.Errorf("port %d not connected", port)
	}

	if len(line) == 0 || line[len(line)-1] != '\r' {
		line += "\r"
	}
	p.rx = append(p.rx, line...)

	if lis := r.lis; lis != nil {
		n.add(func() { lis.RfcommData(port) })
	}
	return nil
}

// Disconnect drops the connection from the peer side.
func (r *Rfcomm) Disconnect(port xport.Port) error {
	return r.Close(port)
}

// TakeSent returns and clears everything the gateway wrote to port.
func (r *Rfcomm) TakeSent(port xport.Port) string {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	p := r.ports[port]
	if p == nil {
		return ""
	}

	s := p.tx.String()
	p.tx.Reset()
	return s
}

// PortByPeer returns the connected port for peer.
func (r *Rfcomm) PortByPeer(peer agdefs.BdAddr) (xport.Port, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	for _, p := range r.sortedLocked() {
		if p.connUp && p.peer == peer {
			return p.id, true
		}
	}

	return 0, false
}

// Number of server ports, connected or not.
func (r *Rfcomm) NumServers() int {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	cnt := 0
	for _, p := range r.ports {
		if p.server {
			cnt++
		}
	}
	return cnt
}

func (r *Rfcomm) sortedLocked() []*rfcPort {
	ports := make([]*rfcPort, 0, len(r.ports))
	for _, p := range r.ports {
		ports = append(ports, p)
	}
	sort.Slice(ports, func(i, j int) bool {
		return ports[i].id < ports[j].id
	})

	return ports
}
