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

package config

import (
	"sort"
	"strings"

	"mynewt.apache.org/newt/util"
)

// A connstring key accepted by a connection type.
type ConnKey struct {
	Name    string
	Help    string
	Example string
}

var peerConnKeys = []ConnKey{
	{"peer", "address of the hands-free device", "00:11:22:33:44:55"},
	{"svc", "profile the device speaks first (hsp or hfp)", "hfp"},
	{"version", "profile version the device advertises", "0x0107"},
	{"features", "SDP supported features of the device", "0x0020"},
	{"wbs", "device advertises wide band speech", "true"},
	{"volume", "HSP device has remote volume control", "false"},
}

var connKeyMap = map[ConnType][]ConnKey{
	CONN_TYPE_SIM: append([]ConnKey{
		{"autoconnect", "outgoing connections complete immediately", "true"},
	}, peerConnKeys...),

	CONN_TYPE_SERIAL: append([]ConnKey{
		{"dev", "serial device file", "/dev/ttyUSB0"},
		{"baud", "line speed", "115200"},
	}, peerConnKeys...),
}

// Returns the connstring keys understood by a connection type.
func ConnStringKeys(ct ConnType) []ConnKey {
	return connKeyMap[ct]
}

func IsConnStringKey(ct ConnType, name string) bool {
	for _, k := range connKeyMap[ct] {
		if k.Name == name {
			return true
		}
	}
	return false
}

// Builds a connstring from key=value settings.  Every key must belong to
// ct; a key given twice keeps its last value.
func BuildConnString(ct ConnType, kvs map[string]string) (string, error) {
	if _, ok := connKeyMap[ct]; !ok {
		return "", util.FmtNewtError("Unknown connection type: %d", int(ct))
	}

	names := make([]string, 0, len(kvs))
	for k := range kvs {
		if !IsConnStringKey(ct, k) {
			return "", util.FmtNewtError(
				"Key \"%s\" not valid for %s connections", k,
				ConnTypeToString(ct))
		}
		names = append(names, k)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, k := range names {
		parts[i] = k + "=" + kvs[k]
	}

	return strings.Join(parts, ","), nil
}
