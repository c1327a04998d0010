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
	"mynewt.apache.org/agmgr/agxact/agdefs"
	"mynewt.apache.org/agmgr/agxact/xport"
)

// Payload of a state machine event.  A nil Data is the empty payload.
type Data interface {
	isData()
}

type ApiRegisterData struct {
	Services agdefs.SvcMask
	SecMask  uint16
	Features uint32
	Names    [agdefs.SVC_IDX_NUM]string
	AppId    uint8
}

type ApiOpenData struct {
	Addr    agdefs.BdAddr
	SecMask uint16
}

type Ind struct {
	Id    int
	Value int

	// For RES_BIND, the requested enable state.
	OnDemand bool
}

// Arguments accompanying an application result.
type ResData struct {
	Str     string
	Num     int
	State   bool
	OkFlag  int
	ErrCode int
	Ind     Ind

	// SCB that should carry audio for the call, or HANDLE_NONE.
	AudioHandle uint16
}

type ApiResultData struct {
	Res  agdefs.Res
	Data ResData
}

type ApiSetCodecData struct {
	Codec agdefs.Codec
}

type RfcData struct {
	Port xport.Port
}

type DiscResultData struct {
	Status xport.DiscStatus
}

func (*ApiRegisterData) isData() {}
func (*ApiOpenData) isData()     {}
func (*ApiResultData) isData()   {}
func (*ApiSetCodecData) isData() {}
func (*RfcData) isData()         {}
func (*DiscResultData) isData()  {}
