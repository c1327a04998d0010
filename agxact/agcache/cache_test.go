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

package agcache

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"mynewt.apache.org/agmgr/agxact/agdefs"
	"mynewt.apache.org/agmgr/agxact/agxutil"
	"mynewt.apache.org/agmgr/agxact/xport"
)

var _ xport.PeerStore = (*Cache)(nil)

var (
	peerA = agdefs.BdAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	peerB = agdefs.BdAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x66}
)

func tempPath(t *testing.T) string {
	dir, err := ioutil.TempDir("", "agcache")
	if err != nil {
		t.Fatalf("failed to create temp dir: %s", err.Error())
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	return filepath.Join(dir, "sub", cacheFilename)
}

func TestLoadMissing(t *testing.T) {
	c, err := Load(tempPath(t))
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}

	if len(c.List()) != 0 {
		t.Fatalf("expected empty cache")
	}
	if _, ok := c.Version(peerA); ok {
		t.Fatalf("unexpected version for unknown peer")
	}
}

func TestRoundTrip(t *testing.T) {
	path := tempPath(t)

	c := NewCache(path)
	if err := c.SetVersion(peerA, 0x0107); err != nil {
		t.Fatalf("set version failed: %s", err.Error())
	}
	if err := c.SetSdpFeatures(peerA, 0x3F); err != nil {
		t.Fatalf("set features failed: %s", err.Error())
	}
	if err := c.SetVersion(peerB, 0); err != nil {
		t.Fatalf("set version failed: %s", err.Error())
	}

	c2, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %s", err.Error())
	}

	if v, ok := c2.Version(peerA); !ok || v != 0x0107 {
		t.Fatalf("wrong version: have=0x%04x,%v", v, ok)
	}
	if f, ok := c2.SdpFeatures(peerA); !ok || f != 0x3F {
		t.Fatalf("wrong features: have=0x%04x,%v", f, ok)
	}
	if v, ok := c2.Version(peerB); !ok || v != 0 {
		t.Fatalf("zero version not preserved: have=0x%04x,%v", v, ok)
	}
	if _, ok := c2.SdpFeatures(peerB); ok {
		t.Fatalf("features unexpectedly set for %s", peerB)
	}

	entries := c2.List()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Addr != peerA.String() || entries[1].Addr != peerB.String() {
		t.Fatalf("entries not sorted: %+v", entries)
	}
}

func TestBadCrc(t *testing.T) {
	path := tempPath(t)

	c := NewCache(path)
	if err := c.SetVersion(peerA, 0x0106); err != nil {
		t.Fatalf("set version failed: %s", err.Error())
	}

	b, err := ioutil.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %s", err.Error())
	}
	b[0] ^= 0xff
	if err := ioutil.WriteFile(path, b, 0644); err != nil {
		t.Fatalf("write failed: %s", err.Error())
	}

	_, err = Load(path)
	if !agxutil.IsCache(err) {
		t.Fatalf("expected cache error, got %v", err)
	}
}

func TestTruncated(t *testing.T) {
	path := tempPath(t)
	os.MkdirAll(filepath.Dir(path), 0755)
	if err := ioutil.WriteFile(path, []byte{0x01}, 0644); err != nil {
		t.Fatalf("write failed: %s", err.Error())
	}

	if _, err := Load(path); !agxutil.IsCache(err) {
		t.Fatalf("expected cache error, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	path := tempPath(t)

	c := NewCache(path)
	c.SetVersion(peerA, 0x0107)
	c.SetVersion(peerB, 0x0106)

	if err := c.Delete(peerA); err != nil {
		t.Fatalf("delete failed: %s", err.Error())
	}
	if err := c.Delete(peerA); !agxutil.IsCache(err) {
		t.Fatalf("expected cache error on second delete, got %v", err)
	}

	c2, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %s", err.Error())
	}
	if _, ok := c2.Version(peerA); ok {
		t.Fatalf("deleted peer still present")
	}
	if v, _ := c2.Version(peerB); v != 0x0106 {
		t.Fatalf("wrong version for %s: 0x%04x", peerB, v)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	path := tempPath(t)

	c := NewCache(path)
	c.SetVersion(peerA, 0x0107)
	if err := c.Save(); err != nil {
		t.Fatalf("save failed: %s", err.Error())
	}

	infos, err := ioutil.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir failed: %s", err.Error())
	}
	if len(infos) != 1 || infos[0].Name() != cacheFilename {
		for _, fi := range infos {
			t.Logf("found %s", fi.Name())
		}
		t.Fatalf("expected only %s in cache dir", cacheFilename)
	}
}
