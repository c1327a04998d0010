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

// Size of a single RFCOMM read.
const RFC_READ_MAX = 512

func (a *Ag) startServers(scb *Scb, services agdefs.SvcMask) {
	for i := agdefs.SVC_IDX_HSP; i < agdefs.SVC_IDX_NUM; i++ {
		if services&agdefs.SvcMasks[i] == 0 {
			continue
		}

		port, err := a.rfcomm.StartServer(a.profiles[i].scn, i,
			scb.servSecMask)
		if err != nil {
			log.Errorf("AG failed to start %s server on scn %d: %s",
				i, a.profiles[i].scn, err.Error())
			continue
		}

		log.Debugf("AG scb %d listening for %s on port %d",
			scb.handle, i, port)
		scb.servPorts[i] = port
	}
}

func (a *Ag) closeServers(scb *Scb, services agdefs.SvcMask) {
	for i := agdefs.SVC_IDX_HSP; i < agdefs.SVC_IDX_NUM; i++ {
		if services&agdefs.SvcMasks[i] == 0 || scb.servPorts[i] == 0 {
			continue
		}

		if err := a.rfcomm.RemoveServer(scb.servPorts[i]); err != nil {
			log.Warnf("AG failed to remove server port %d: %s",
				scb.servPorts[i], err.Error())
		}
		scb.servPorts[i] = 0
	}
}

func (a *Ag) isServerClosed(scb *Scb) bool {
	for _, p := range scb.servPorts {
		if p != 0 {
			return false
		}
	}

	return true
}

func (a *Ag) rfcDoOpen(scb *Scb) {
	port, err := a.rfcomm.Connect(scb.peerAddr, scb.peerScn, scb.cliSecMask)
	if err != nil {
		log.Warnf("AG failed to connect to %s scn %d: %s",
			scb.peerAddr, scb.peerScn, err.Error())
		a.smExecute(scb, EVT_RFC_CLOSE, nil)
		return
	}

	log.Debugf("AG connecting to %s on port %d", scb.peerAddr, port)
	scb.connPort = port
}

func (a *Ag) rfcDoClose(scb *Scb) {
	if scb.connPort != 0 {
		err := a.rfcomm.Close(scb.connPort)
		if err == nil {
			return
		}
		log.Warnf("AG failed to close port %d: %s",
			scb.connPort, err.Error())
	}

	// No connection to wait for; finish the close from the event loop.
	a.post(scb.handle, EVT_RFC_CLOSE, nil)

	if scb.discPending {
		a.sdp.CancelDiscovery(scb.peerAddr)
		a.freeDb(scb)
	}
}

// Maps an RFCOMM port status change to a state machine event.  Close
// reports for ports other than the connection are server side and are
// ignored by every state.
func (a *Ag) rfcPortEvt(port xport.Port, opened bool) {
	scb := a.scbByPort(port)
	if scb == nil {
		log.Debugf("AG RFCOMM event for unknown port %d", port)
		return
	}

	data := &RfcData{Port: port}

	if !opened {
		if port == scb.connPort {
			a.smExecute(scb, EVT_RFC_CLOSE, data)
		} else {
			a.smExecute(scb, EVT_RFC_SRV_CLOSE, data)
		}
		return
	}

	if scb.connPort != 0 {
		if port != scb.connPort {
			log.Debugf("AG unexpected open on port %d; conn port=%d",
				port, scb.connPort)
			return
		}
	} else {
		found := false
		for _, p := range scb.servPorts {
			if p == port {
				found = true
				break
			}
		}
		if !found {
			return
		}
	}

	a.smExecute(scb, EVT_RFC_OPEN, data)
}

func (a *Ag) rfcDataEvt(port xport.Port) {
	scb := a.scbByPort(port)
	if scb == nil || scb.connPort != port {
		log.Debugf("AG RFCOMM data on unknown port %d", port)
		return
	}

	a.smExecute(scb, EVT_RFC_DATA, &RfcData{Port: port})
}
