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
	"strings"

	"github.com/spf13/cast"

	"mynewt.apache.org/agmgr/agxact/serial"
)

type SerialCfg struct {
	Xport *serial.XportCfg
	Peer  PeerCfg
}

func ParseSerialConnString(cs string) (*SerialCfg, error) {
	sc := &SerialCfg{
		Xport: serial.NewXportCfg(),
		Peer:  NewPeerCfg(),
	}

	for _, p := range strings.Split(cs, ",") {
		if p == "" {
			continue
		}

		kv := strings.SplitN(p, "=", 2)
		// A lone token names the device file.
		if len(kv) == 1 {
			kv = []string{"dev", kv[0]}
		}

		k := kv[0]
		v := kv[1]

		ok, err := parsePeerKv(&sc.Peer, k, v)
		if err != nil {
			return nil, err
		}
		if ok {
			continue
		}

		switch k {
		case "dev":
			sc.Xport.DevPath = v

		case "baud":
			sc.Xport.Baud, err = cast.ToIntE(v)
			if err != nil || sc.Xport.Baud <= 0 {
				return nil, einvalConnString("Invalid baud: %s", v)
			}

		default:
			return nil, einvalConnString("Unrecognized key: %s", k)
		}
	}

	if sc.Xport.DevPath == "" {
		return nil, einvalConnString("Missing dev")
	}

	sc.Xport.Peer = sc.Peer.Addr
	sc.Xport.Svc = sc.Peer.Svc
	return sc, nil
}
