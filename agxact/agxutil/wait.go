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
package agxutil

import (
	"fmt"
	"sync"
	"time"
)

// Lets a goroutine outside the event loop wait for the first value that
// satisfies a filter.  The loop offers every value it produces; offers after
// the first match are dropped.
type Waiter struct {
	ch     chan interface{}
	filter func(v interface{}) bool
	mtx    sync.Mutex
	done   bool
}

func NewWaiter(filter func(v interface{}) bool) *Waiter {
	return &Waiter{
		ch:     make(chan interface{}, 1),
		filter: filter,
	}
}

// Returns true if the value was accepted.  Never blocks.
func (w *Waiter) Offer(v interface{}) bool {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	if w.done {
		return false
	}
	if w.filter != nil && !w.filter(v) {
		return false
	}

	w.done = true
	w.ch <- v
	return true
}

func (w *Waiter) Wait(timeout time.Duration, stopChan <-chan struct{}) (
	interface{}, error) {

	timer := time.NewTimer(timeout)
	defer StopAndDrainTimer(timer)

	select {
	case v := <-w.ch:
		return v, nil
	case <-timer.C:
		return nil, fmt.Errorf("timeout after %s", timeout.String())
	case <-stopChan:
		return nil, fmt.Errorf("aborted")
	}
}
