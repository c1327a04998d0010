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
	"testing"
	"time"
)

func TestTaskQueueOrder(t *testing.T) {
	q := NewTaskQueue("test")
	if err := q.Start(4); err != nil {
		t.Fatalf("start failed: %s", err.Error())
	}
	defer q.Stop(fmt.Errorf("done"))

	var got []int
	for i := 0; i < 10; i++ {
		i := i
		q.Post(func() { got = append(got, i) })
	}

	// Run waits for everything queued before it.
	if err := q.Run(func() error { return nil }); err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}

	if len(got) != 10 {
		t.Fatalf("expected 10 jobs, got %d", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("job %d ran out of order (%d)", i, v)
		}
	}
}

func TestTaskQueueNestedPost(t *testing.T) {
	q := NewTaskQueue("nested")
	q.Start(1)
	defer q.Stop(fmt.Errorf("done"))

	done := make(chan struct{})
	q.Post(func() {
		for i := 0; i < 100; i++ {
			q.Post(func() {})
		}
		q.Post(func() { close(done) })
	})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("nested posts never completed")
	}
}

func TestTaskQueueInactive(t *testing.T) {
	q := NewTaskQueue("inactive")
	if err := q.Run(func() error { return nil }); err != InactiveError {
		t.Fatalf("expected InactiveError, got %v", err)
	}

	q.Start(1)
	if err := q.Start(1); err == nil {
		t.Fatalf("second start should fail")
	}
	q.Stop(fmt.Errorf("stopped"))

	if q.Active() {
		t.Fatalf("queue still active after stop")
	}
	if err := q.Stop(nil); err == nil {
		t.Fatalf("second stop should fail")
	}
}

func TestTaskQueueRunError(t *testing.T) {
	q := NewTaskQueue("err")
	q.Start(1)
	defer q.Stop(fmt.Errorf("done"))

	want := fmt.Errorf("job failed")
	if err := q.Run(func() error { return want }); err != want {
		t.Fatalf("expected job error, got %v", err)
	}
}

func TestStepLoopTimers(t *testing.T) {
	l := NewStepLoop()

	var fired []string
	l.AfterFunc(3*time.Second, func() { fired = append(fired, "c") })
	l.AfterFunc(1*time.Second, func() { fired = append(fired, "a") })
	stop := l.AfterFunc(2*time.Second, func() { fired = append(fired, "b") })

	if l.ActiveTimers() != 3 {
		t.Fatalf("expected 3 active timers, got %d", l.ActiveTimers())
	}

	if !stop.Stop() {
		t.Fatalf("stop of pending timer returned false")
	}
	if stop.Stop() {
		t.Fatalf("second stop returned true")
	}

	l.Advance(1500 * time.Millisecond)
	if len(fired) != 1 || fired[0] != "a" {
		t.Fatalf("unexpected fired timers: %v", fired)
	}

	l.Advance(2 * time.Second)
	if len(fired) != 2 || fired[1] != "c" {
		t.Fatalf("unexpected fired timers: %v", fired)
	}
	if l.ActiveTimers() != 0 {
		t.Fatalf("expected no active timers")
	}
}

func TestStepLoopTimerPostsJobs(t *testing.T) {
	l := NewStepLoop()

	var order []string
	l.AfterFunc(time.Second, func() {
		order = append(order, "timer")
		l.Post(func() { order = append(order, "posted") })
	})
	l.AfterFunc(time.Second, func() { order = append(order, "timer2") })

	l.Advance(time.Second)

	exp := []string{"timer", "posted", "timer2"}
	if len(order) != len(exp) {
		t.Fatalf("expected %v, got %v", exp, order)
	}
	for i := range exp {
		if order[i] != exp[i] {
			t.Fatalf("expected %v, got %v", exp, order)
		}
	}
}
