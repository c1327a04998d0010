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

package cli

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"mynewt.apache.org/agmgr/agmgr/amutil"
	"mynewt.apache.org/agmgr/agmgr/config"
	"mynewt.apache.org/agmgr/agxact/ag"
	"mynewt.apache.org/agmgr/agxact/agdefs"
	"mynewt.apache.org/agmgr/agxact/agxutil"
	"mynewt.apache.org/agmgr/agxact/xport"
)

func newSimEnv(t *testing.T, cs string) *agEnv {
	amutil.Timeout = 5

	cp := &config.ConnProfile{
		Name:       "test",
		Type:       config.CONN_TYPE_SIM,
		ConnString: cs,
	}

	env, err := buildAgEnv(cp, xport.NewMemPeerStore())
	if err != nil {
		t.Fatalf("failed to build gateway: %s", err.Error())
	}
	t.Cleanup(env.stop)

	return env
}

func TestSimEnvIncoming(t *testing.T) {
	env := newSimEnv(t, "peer=00:11:22:33:44:66")

	if err := env.register(agdefs.HFP_SERVICE_MASK, 0); err != nil {
		t.Fatalf("register failed: %s", err.Error())
	}
	if env.handle == ag.HANDLE_NONE {
		t.Fatalf("no handle assigned")
	}

	scn := env.cfg.Scns[agdefs.SVC_IDX_HFP]
	port, err := env.sim.Rfcomm.Accept(env.peer.Addr, scn)
	if err != nil {
		t.Fatalf("accept failed: %s", err.Error())
	}

	if _, err := env.waitEvt(ag.EVT_OPEN, func(ag.Evt) {}); err != nil {
		t.Fatalf("no open event: %s", err.Error())
	}

	if err := env.sim.Rfcomm.Send(port, "AT+BRSF=0"); err != nil {
		t.Fatalf("send failed: %s", err.Error())
	}
	if err := env.sync(); err != nil {
		t.Fatalf("sync failed: %s", err.Error())
	}

	sent := env.sim.Rfcomm.TakeSent(port)
	if !strings.Contains(sent, "+BRSF:") || !strings.Contains(sent, "OK") {
		t.Fatalf("unexpected response %q", sent)
	}
}

func TestBuildEnvErrors(t *testing.T) {
	amutil.Timeout = 5

	cp := &config.ConnProfile{
		Name:       "bad",
		Type:       config.CONN_TYPE_SIM,
		ConnString: "peer=zz",
	}
	if _, err := buildAgEnv(cp, xport.NewMemPeerStore()); err == nil {
		t.Fatalf("invalid connstring accepted")
	}

	cp = &config.ConnProfile{
		Name: "none",
		Type: config.CONN_TYPE_NONE,
	}
	if _, err := buildAgEnv(cp, xport.NewMemPeerStore()); err == nil {
		t.Fatalf("profile without a type accepted")
	}
}

func TestLoadCache(t *testing.T) {
	dir, err := ioutil.TempDir("", "agmgr")
	if err != nil {
		t.Fatalf("tempdir failed: %s", err.Error())
	}
	defer os.RemoveAll(dir)

	saved := amutil.CachePath
	defer func() { amutil.CachePath = saved }()

	amutil.CachePath = filepath.Join(dir, "peers.cbor")
	cache, err := loadCache()
	if err != nil {
		t.Fatalf("missing cache rejected: %s", err.Error())
	}
	if len(cache.List()) != 0 {
		t.Fatalf("new cache not empty")
	}

	bad := filepath.Join(dir, "bad.cbor")
	if err := ioutil.WriteFile(bad, []byte{0x42}, 0644); err != nil {
		t.Fatalf("write failed: %s", err.Error())
	}
	amutil.CachePath = bad

	_, err = loadCache()
	if err == nil {
		t.Fatalf("corrupt cache accepted")
	}
	if !agxutil.IsCache(errors.Cause(err)) {
		t.Fatalf("expected cache error, got %v", err)
	}
}
