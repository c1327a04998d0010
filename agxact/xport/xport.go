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

// Package xport declares the lower layer services the audio gateway is
// built on: RFCOMM, SDP, SCO link management, the outer system, and the
// persistent peer store.  Completions flow back through Listener.
package xport

import (
	"mynewt.apache.org/agmgr/agxact/agdefs"
)

// RFCOMM port handle.  Zero is never a valid port.
type Port uint16

// A listening port that accepts a connection becomes that connection.  When
// the connection drops, the port resumes listening; only RemoveServer
// removes it.
type Rfcomm interface {
	// Creates a listening port on the given server channel.
	StartServer(scn uint8, svc agdefs.SvcIdx, secMask uint16) (Port, error)

	// Removes a listening port, dropping its connection if it has one.
	RemoveServer(port Port) error

	// Drops the connection on a port.  Listener.RfcommClosed reports when
	// the connection is gone.
	Close(port Port) error

	// Initiates a connection; Listener.RfcommOpened or RfcommClosed reports
	// the outcome.
	Connect(peer agdefs.BdAddr, scn uint8, secMask uint16) (Port, error)

	Read(port Port, b []byte) (int, error)
	Write(port Port, b []byte) (int, error)

	// Returns the remote address of a connected port.
	CheckConnection(port Port) (agdefs.BdAddr, error)

	// Reports whether a peer is in the middle of connecting to one of our
	// listening ports, and which peer.  An open started while this holds
	// is treated as a collision.
	IsOpening() (agdefs.BdAddr, bool)
}

// A service record, as registered locally or as found on a peer.
type SdpRecord struct {
	ServiceClass uint16
	Name         string
	Scn          uint8
	Version      uint16
	Features     uint16
	HasFeatures  bool

	// HSP only: peer supports remote volume control.
	RemoteVolume bool
}

type DiscStatus uint8

const (
	DISC_STATUS_SUCCESS DiscStatus = iota
	DISC_STATUS_NO_MATCH
	DISC_STATUS_FAIL
)

var discStatusNameMap = map[DiscStatus]string{
	DISC_STATUS_SUCCESS:  "success",
	DISC_STATUS_NO_MATCH: "no_match",
	DISC_STATUS_FAIL:     "fail",
}

func (s DiscStatus) String() string {
	n := discStatusNameMap[s]
	if n == "" {
		return "???"
	}
	return n
}

type Sdp interface {
	CreateRecord(rec SdpRecord) (uint32, error)
	DeleteRecord(handle uint32) error

	// Searches the peer for the given service classes.  Completion is
	// reported through Listener.DiscoveryDone with the same token.
	StartDiscovery(token uint16, peer agdefs.BdAddr, classes []uint16,
		withScn bool) error
	CancelDiscovery(peer agdefs.BdAddr)

	// Returns the records of the last completed search of peer that carry
	// the given service class.
	FindRecords(peer agdefs.BdAddr, class uint16) []SdpRecord

	// Discards the results of the last search of peer.
	FreeDb(peer agdefs.BdAddr)
}

type ScoStatus uint8

const (
	SCO_STATUS_SUCCESS ScoStatus = iota
	SCO_STATUS_CMD_STARTED
	SCO_STATUS_UNKNOWN_ADDR
	SCO_STATUS_NO_RESOURCES
	SCO_STATUS_BUSY
	SCO_STATUS_ILLEGAL_VALUE
)

var scoStatusNameMap = map[ScoStatus]string{
	SCO_STATUS_SUCCESS:       "success",
	SCO_STATUS_CMD_STARTED:   "cmd_started",
	SCO_STATUS_UNKNOWN_ADDR:  "unknown_addr",
	SCO_STATUS_NO_RESOURCES:  "no_resources",
	SCO_STATUS_BUSY:          "busy",
	SCO_STATUS_ILLEGAL_VALUE: "illegal_value",
}

func (s ScoStatus) String() string {
	n := scoStatusNameMap[s]
	if n == "" {
		return "???"
	}
	return n
}

// Index of a SCO link.
type ScoIdx uint16

const SCO_IDX_INVALID ScoIdx = 0xffff

type ScoSetting uint8

const (
	SCO_SETTING_CVSD_S3 ScoSetting = iota
	SCO_SETTING_CVSD_S4
	SCO_SETTING_MSBC_T1
	SCO_SETTING_MSBC_T2
)

var scoSettingNameMap = map[ScoSetting]string{
	SCO_SETTING_CVSD_S3: "cvsd_s3",
	SCO_SETTING_CVSD_S4: "cvsd_s4",
	SCO_SETTING_MSBC_T1: "msbc_t1",
	SCO_SETTING_MSBC_T2: "msbc_t2",
}

func (s ScoSetting) String() string {
	n := scoSettingNameMap[s]
	if n == "" {
		return "???"
	}
	return n
}

type ScoParams struct {
	Setting  ScoSetting
	PktTypes uint16

	// Zero means the setting's default.
	MaxLatencyMs uint16
}

type Sco interface {
	// Creates a SCO link.  With orig=false the link listens for an
	// incoming connection from peer.
	CreateSco(peer agdefs.BdAddr, orig bool, params ScoParams) (
		ScoIdx, ScoStatus)

	RemoveSco(idx ScoIdx) ScoStatus

	// Answers an incoming eSCO request.
	ConnRsp(idx ScoIdx, accept bool, params ScoParams)

	ReadScoAddr(idx ScoIdx) (agdefs.BdAddr, bool)

	// Reports whether the peer's controller supports transparent
	// (wide band) SCO.  ok is false if the remote features are unknown.
	RemoteSupportsTransparent(peer agdefs.BdAddr) (supported bool, ok bool)
}

// Outer system notifications, used to coordinate with other profiles.
type Sys interface {
	ConnOpen(peer agdefs.BdAddr)
	ConnClose(peer agdefs.BdAddr)
	ScoUse(peer agdefs.BdAddr)
	ScoUnuse(peer agdefs.BdAddr)
	ScoOpen(peer agdefs.BdAddr)
	ScoClose(peer agdefs.BdAddr)
	Busy(peer agdefs.BdAddr)
	Idle(peer agdefs.BdAddr)
}

// Persistent per-peer values.  The bool result is false if no value has
// been stored for the peer.
type PeerStore interface {
	Version(peer agdefs.BdAddr) (uint16, bool)
	SdpFeatures(peer agdefs.BdAddr) (uint16, bool)
	SetVersion(peer agdefs.BdAddr, version uint16) error
	SetSdpFeatures(peer agdefs.BdAddr, features uint16) error
}

// Receives asynchronous completions from the collaborators.  The audio
// gateway implements Listener; every method may be called from any
// goroutine.
type Listener interface {
	RfcommOpened(port Port)
	RfcommClosed(port Port)
	RfcommData(port Port)
	DiscoveryDone(token uint16, status DiscStatus)
	ScoConnected(idx ScoIdx)
	ScoDisconnected(idx ScoIdx)
	ScoConnReq(idx ScoIdx, peer agdefs.BdAddr)
}
