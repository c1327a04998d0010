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

package agdefs

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// 16-bit service class identifiers.
const (
	UUID_SERVCLASS_HEADSET               uint16 = 0x1108
	UUID_SERVCLASS_HEADSET_AUDIO_GATEWAY uint16 = 0x1112
	UUID_SERVCLASS_HF_HANDSFREE          uint16 = 0x111E
	UUID_SERVCLASS_AG_HANDSFREE          uint16 = 0x111F
	UUID_SERVCLASS_HEADSET_HS            uint16 = 0x1131
	UUID_SERVCLASS_GENERIC_AUDIO         uint16 = 0x1203
)

// Bluetooth base UUID; 16-bit ids occupy bytes 2 and 3.
var BaseUuid = uuid.MustParse("00000000-0000-1000-8000-00805F9B34FB")

// Converts a 16-bit Bluetooth UUID to its 128-bit form.
func Uuid16To128(u16 uint16) uuid.UUID {
	u := BaseUuid
	binary.BigEndian.PutUint16(u[2:4], u16)
	return u
}

// Extracts the 16-bit id from a UUID built on the base UUID.  The second
// return value is false if u is not derived from the base UUID.
func Uuid128To16(u uuid.UUID) (uint16, bool) {
	v := u
	v[2] = 0
	v[3] = 0
	if v != BaseUuid {
		return 0, false
	}

	return binary.BigEndian.Uint16(u[2:4]), true
}

// Local service class advertised for each service index.
var AgServiceUuids = [SVC_IDX_NUM]uint16{
	UUID_SERVCLASS_HEADSET_AUDIO_GATEWAY,
	UUID_SERVCLASS_AG_HANDSFREE,
}

// Peer service classes searched for when connecting; index by SvcIdx.  HSP
// 1.0 devices only advertise the legacy headset class.
func PeerServiceUuid(idx SvcIdx, hspVersion uint16) uint16 {
	if idx == SVC_IDX_HFP {
		return UUID_SERVCLASS_HF_HANDSFREE
	}

	if hspVersion == HSP_VERSION_1_0 {
		return UUID_SERVCLASS_HEADSET
	}
	return UUID_SERVCLASS_HEADSET_HS
}
