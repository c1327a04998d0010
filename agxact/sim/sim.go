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

// Package sim provides in-memory RFCOMM, SDP and SCO services with a
// scriptable hands-free peer.  Completions are delivered to an
// xport.Listener, typically an ag.Ag, which posts them onto its executor.
package sim

import (
	"mynewt.apache.org/agmgr/agxact/xport"
)

// Sim bundles the three services around one listener.
type Sim struct {
	Rfcomm *Rfcomm
	Sdp    *Sdp
	Sco    *Sco
}

func NewSim() *Sim {
	return &Sim{
		Rfcomm: NewRfcomm(),
		Sdp:    NewSdp(),
		Sco:    NewSco(),
	}
}

func (s *Sim) SetListener(l xport.Listener) {
	s.Rfcomm.SetListener(l)
	s.Sdp.SetListener(l)
	s.Sco.SetListener(l)
}

// Runs listener callbacks after the caller has released its lock.
type notifier struct {
	fns []func()
}

func (n *notifier) add(fn func()) {
	n.fns = append(n.fns, fn)
}

func (n *notifier) flush() {
	fns := n.fns
	n.fns = nil
	for _, fn := range fns {
		fn()
	}
}
