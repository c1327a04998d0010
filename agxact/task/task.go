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
package task

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// Runs jobs and timer callbacks serially.  Everything the AG core does
// happens inside a job posted to an Executor, so the core never needs locks.
type Executor interface {
	// Queues fn to run after all previously posted jobs.  Never blocks.
	Post(fn func())

	// Arranges for fn to be posted after d elapses.
	AfterFunc(d time.Duration, fn func()) Timer
}

type Timer interface {
	// Returns false if the timer already fired or was already stopped.
	Stop() bool
}

// A single action that runs in the main loop.
type action struct {
	fn func() error
	ch chan error
}

// A queue for running jobs serially.  Unlike a buffered channel, the backlog
// is unbounded, so a job may enqueue further jobs without deadlocking.
type TaskQueue struct {
	pending []action
	wakeCh  chan struct{}
	stopCh  chan struct{}
	active  atomic.Bool
	name    string
	mtx     sync.Mutex
	wg      sync.WaitGroup
}

func NewTaskQueue(name string) *TaskQueue {
	return &TaskQueue{
		name: name,
	}
}

var InactiveError = fmt.Errorf("inactive task queue")

// Pushes the specified function onto the task queue.  When the job completes,
// the result is sent over the returned channel
func (q *TaskQueue) Enqueue(fn func() error) chan error {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	act := action{
		fn: fn,
		ch: make(chan error, 1),
	}

	if !q.active.Load() {
		act.ch <- InactiveError
		close(act.ch)
		return act.ch
	}

	q.pending = append(q.pending, act)
	select {
	case q.wakeCh <- struct{}{}:
	default:
	}

	return act.ch
}

// Enqueues the specified function and waits for it to complete.  Calling
// this from within a job results in deadlock.
func (q *TaskQueue) Run(fn func() error) error {
	return <-q.Enqueue(fn)
}

func (q *TaskQueue) Post(fn func()) {
	q.Enqueue(func() error {
		fn()
		return nil
	})
}

func (q *TaskQueue) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, func() { q.Post(fn) })
}

func (q *TaskQueue) popAll() []action {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	acts := q.pending
	q.pending = nil
	return acts
}

// Starts the task queue.  A task queue must be started before jobs can be
// enqueued to it.  depth is a capacity hint for the backlog.
func (q *TaskQueue) Start(depth int) error {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	if q.active.Load() {
		return fmt.Errorf("Task queue started twice \"%s\"", q.name)
	}
	q.active.Store(true)

	q.pending = make([]action, 0, depth)
	wakeCh := make(chan struct{}, 1)
	q.wakeCh = wakeCh

	stopCh := make(chan struct{})
	q.stopCh = stopCh

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()

		for {
			select {
			case <-wakeCh:
				for _, act := range q.popAll() {
					select {
					case <-stopCh:
						act.ch <- InactiveError
						close(act.ch)
						continue
					default:
					}

					err := act.fn()
					act.ch <- err
					close(act.ch)
				}

			case <-stopCh:
				return
			}
		}
	}()

	return nil
}

// Stops the task queue.  If there are any queued jobs, this causes them to
// fail with the specified error.  This function blocks until the task loop
// returns, so calling this from within a job results in deadlock.  If a job
// needs to stop the task queue, it should use StopNoWait instead.
func (q *TaskQueue) Stop(cause error) error {
	if err := q.StopNoWait(cause); err != nil {
		return err
	}

	q.wg.Wait()
	return nil
}

// Stops the task queue.  If this function returns success, the stop
// procedure has successfully initiated, but not necessarily completed.
func (q *TaskQueue) StopNoWait(cause error) error {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	if !q.active.Load() {
		return fmt.Errorf("Task queue stopped twice \"%s\"", q.name)
	}

	close(q.stopCh)

	for _, act := range q.pending {
		act.ch <- cause
		close(act.ch)
	}
	q.pending = nil

	q.active.Store(false)

	return nil
}

func (q *TaskQueue) Active() bool {
	return q.active.Load()
}
