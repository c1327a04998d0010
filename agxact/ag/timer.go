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
	"time"

	"mynewt.apache.org/agmgr/agxact/task"
)

// A cancellable one-shot timer.  Both arming and stopping happen on the
// executor, so a stopped timer's callback never runs even if the underlying
// timer already fired and its job is queued.
type timer struct {
	t    task.Timer
	done bool
}

func (a *Ag) startTimer(slot **timer, d time.Duration, fn func()) {
	stopTimer(slot)

	tm := &timer{}
	tm.t = a.exec.AfterFunc(d, func() {
		if tm.done {
			return
		}
		tm.done = true
		fn()
	})
	*slot = tm
}

func stopTimer(slot **timer) {
	tm := *slot
	if tm == nil {
		return
	}

	if !tm.done {
		tm.done = true
		tm.t.Stop()
	}
	*slot = nil
}

func timerPending(tm *timer) bool {
	return tm != nil && !tm.done
}
