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
	"fmt"

	"mynewt.apache.org/agmgr/agxact/agdefs"
)

type EvtType int

const (
	EVT_ENABLE EvtType = iota
	EVT_DISABLE
	EVT_REGISTER
	EVT_OPEN
	EVT_CLOSE
	EVT_CONN
	EVT_AUDIO_OPEN
	EVT_AUDIO_CLOSE
	EVT_WBS
	EVT_AT
)

var evtTypeNameMap = map[EvtType]string{
	EVT_ENABLE:      "enable",
	EVT_DISABLE:     "disable",
	EVT_REGISTER:    "register",
	EVT_OPEN:        "open",
	EVT_CLOSE:       "close",
	EVT_CONN:        "conn",
	EVT_AUDIO_OPEN:  "audio_open",
	EVT_AUDIO_CLOSE: "audio_close",
	EVT_WBS:         "wbs",
	EVT_AT:          "at",
}

func (t EvtType) String() string {
	s := evtTypeNameMap[t]
	if s == "" {
		return "???"
	}
	return s
}

// Fields common to every application event.
type EvtHdr struct {
	Handle uint16
	AppId  uint8
	Status agdefs.Status
}

func (h *EvtHdr) Header() *EvtHdr {
	return h
}

// An event reported to the application callback.
type Evt interface {
	Type() EvtType
	Header() *EvtHdr
}

type Callback func(evt Evt)

type EnableEvt struct {
	EvtHdr
}

type DisableEvt struct {
	EvtHdr
}

type RegisterEvt struct {
	EvtHdr
}

type OpenEvt struct {
	EvtHdr
	Addr    agdefs.BdAddr
	Service agdefs.SvcIdx
}

type CloseEvt struct {
	EvtHdr
	Addr agdefs.BdAddr
}

// The service level connection is up.
type ConnEvt struct {
	EvtHdr
	Addr         agdefs.BdAddr
	PeerFeatures uint32
	PeerCodecs   agdefs.Codec
}

type AudioOpenEvt struct {
	EvtHdr
}

type AudioCloseEvt struct {
	EvtHdr
}

// Outcome of an application codec selection.
type WbsEvt struct {
	EvtHdr
	Codec agdefs.Codec
}

// A command from the peer that the application must act on.
type AtEvt struct {
	EvtHdr
	Id   agdefs.AtEvtId
	Addr agdefs.BdAddr
	Str  string
	Num  int

	// CHLD call index.
	Idx int

	// BIEV indicator id.
	Lidx int
}

func (e *EnableEvt) Type() EvtType     { return EVT_ENABLE }
func (e *DisableEvt) Type() EvtType    { return EVT_DISABLE }
func (e *RegisterEvt) Type() EvtType   { return EVT_REGISTER }
func (e *OpenEvt) Type() EvtType       { return EVT_OPEN }
func (e *CloseEvt) Type() EvtType      { return EVT_CLOSE }
func (e *ConnEvt) Type() EvtType       { return EVT_CONN }
func (e *AudioOpenEvt) Type() EvtType  { return EVT_AUDIO_OPEN }
func (e *AudioCloseEvt) Type() EvtType { return EVT_AUDIO_CLOSE }
func (e *WbsEvt) Type() EvtType        { return EVT_WBS }
func (e *AtEvt) Type() EvtType         { return EVT_AT }

func EvtString(evt Evt) string {
	h := evt.Header()
	s := fmt.Sprintf("%s handle=%d app=%d status=%s",
		evt.Type(), h.Handle, h.AppId, h.Status)

	switch e := evt.(type) {
	case *OpenEvt:
		s += fmt.Sprintf(" addr=%s service=%s", e.Addr, e.Service)
	case *CloseEvt:
		s += fmt.Sprintf(" addr=%s", e.Addr)
	case *ConnEvt:
		s += fmt.Sprintf(" addr=%s peer_feat=0x%x codecs=%s",
			e.Addr, e.PeerFeatures, e.PeerCodecs)
	case *WbsEvt:
		s += fmt.Sprintf(" codec=%s", e.Codec)
	case *AtEvt:
		s += fmt.Sprintf(" id=%s num=%d str=%q", e.Id, e.Num, e.Str)
		if e.Id == agdefs.AT_EVT_CHLD {
			s += fmt.Sprintf(" idx=%d", e.Idx)
		}
		if e.Id == agdefs.AT_EVT_BIEV {
			s += fmt.Sprintf(" lidx=%d", e.Lidx)
		}
	}

	return s
}
