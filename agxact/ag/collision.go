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
)

// collisionDetected is invoked when another connection to peer is being set
// up at the same time as ours.  Only a block still opening is affected.
func (a *Ag) collisionDetected(peer agdefs.BdAddr) {
	scb := a.scbByAddr(peer)
	if scb == nil || scb.state != STATE_OPENING {
		return
	}

	log.Warnf("AG found collision for handle %d device %s", scb.handle, peer)
	a.smExecute(scb, EVT_COLLISION, nil)
}

func (a *Ag) handleCollision(scb *Scb) {
	if scb.discPending {
		a.sdp.CancelDiscovery(scb.peerAddr)
		a.freeDb(scb)
	}

	// The collision may have been found before or after the servers were
	// closed for the outgoing attempt.
	if a.isServerClosed(scb) {
		a.startServers(scb, scb.regServices)
	}

	handle := scb.handle
	a.startTimer(&scb.collisionTmr, a.cfg.CollisionTimeout, func() {
		if scb := a.scbByHandle(handle); scb != nil {
			// The peer did not connect to us; try again ourselves.
			a.resumeOpen(scb)
		}
	})
}

func (a *Ag) resumeOpen(scb *Scb) {
	if scb.state != STATE_INIT {
		log.Debugf("AG device %s is already in state %s",
			scb.peerAddr, scb.state)
		return
	}

	log.Infof("AG resume connection to %s, handle %d",
		scb.peerAddr, scb.handle)
	a.smExecute(scb, EVT_API_OPEN, &ApiOpenData{
		Addr:    scb.peerAddr,
		SecMask: scb.cliSecMask,
	})
}
