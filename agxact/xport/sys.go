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

package xport

import (
	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/agmgr/agxact/agdefs"
)

// NopSys ignores system notifications.
type NopSys struct{}

func (NopSys) ConnOpen(peer agdefs.BdAddr)  {}
func (NopSys) ConnClose(peer agdefs.BdAddr) {}
func (NopSys) ScoUse(peer agdefs.BdAddr)    {}
func (NopSys) ScoUnuse(peer agdefs.BdAddr)  {}
func (NopSys) ScoOpen(peer agdefs.BdAddr)   {}
func (NopSys) ScoClose(peer agdefs.BdAddr)  {}
func (NopSys) Busy(peer agdefs.BdAddr)      {}
func (NopSys) Idle(peer agdefs.BdAddr)      {}

// LogSys logs system notifications at debug level.
type LogSys struct{}

func (LogSys) ConnOpen(peer agdefs.BdAddr) {
	log.Debugf("sys: conn open %s", peer)
}
func (LogSys) ConnClose(peer agdefs.BdAddr) {
	log.Debugf("sys: conn close %s", peer)
}
func (LogSys) ScoUse(peer agdefs.BdAddr) {
	log.Debugf("sys: sco use %s", peer)
}
func (LogSys) ScoUnuse(peer agdefs.BdAddr) {
	log.Debugf("sys: sco unuse %s", peer)
}
func (LogSys) ScoOpen(peer agdefs.BdAddr) {
	log.Debugf("sys: sco open %s", peer)
}
func (LogSys) ScoClose(peer agdefs.BdAddr) {
	log.Debugf("sys: sco close %s", peer)
}
func (LogSys) Busy(peer agdefs.BdAddr) {
	log.Debugf("sys: busy %s", peer)
}
func (LogSys) Idle(peer agdefs.BdAddr) {
	log.Debugf("sys: idle %s", peer)
}
