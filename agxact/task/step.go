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
	"sort"
	"time"
)

// An Executor that only makes progress when told to.  Jobs run on Drain();
// timers fire on Advance() against a fake clock.  Not safe for concurrent
// use; everything must happen on the caller's goroutine.
type StepLoop struct {
	jobs   []func()
	timers []*stepTimer
	now    time.Time
	seq    int
}

type stepTimer struct {
	when    time.Time
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

func (t *stepTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}

	t.stopped = true
	return true
}

func NewStepLoop() *StepLoop {
	return &StepLoop{
		now: time.Unix(0, 0),
	}
}

func (l *StepLoop) Post(fn func()) {
	l.jobs = append(l.jobs, fn)
}

func (l *StepLoop) AfterFunc(d time.Duration, fn func()) Timer {
	l.seq++
	t := &stepTimer{
		when: l.now.Add(d),
		seq:  l.seq,
		fn:   fn,
	}
	l.timers = append(l.timers, t)
	return t
}

// Runs queued jobs, including any they post, until the queue is empty.
// Returns the number of jobs run.
func (l *StepLoop) Drain() int {
	n := 0
	for len(l.jobs) > 0 {
		fn := l.jobs[0]
		l.jobs = l.jobs[1:]
		fn()
		n++
	}

	return n
}

// Moves the clock forward by d, firing due timers in deadline order.  Jobs
// are drained before the first and after every timer.
func (l *StepLoop) Advance(d time.Duration) {
	l.Drain()

	end := l.now.Add(d)
	for {
		t := l.nextDue(end)
		if t == nil {
			break
		}

		l.now = t.when
		t.fired = true
		l.Post(t.fn)
		l.Drain()
	}

	l.now = end
}

func (l *StepLoop) nextDue(end time.Time) *stepTimer {
	live := l.timers[:0]
	for _, t := range l.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	l.timers = live

	sort.SliceStable(l.timers, func(i, j int) bool {
		if l.timers[i].when.Equal(l.timers[j].when) {
			return l.timers[i].seq < l.timers[j].seq
		}
		return l.timers[i].when.Before(l.timers[j].when)
	})

	if len(l.timers) == 0 || l.timers[0].when.After(end) {
		return nil
	}
	return l.timers[0]
}

func (l *StepLoop) Now() time.Time {
	return l.now
}

// Number of timers that have neither fired nor been stopped.
func (l *StepLoop) ActiveTimers() int {
	n := 0
	for _, t := range l.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}
