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

// Persistent store for per-peer HFP version and SDP feature values.  The
// file is a CBOR-encoded map followed by a big-endian CRC-16 of the body.
package agcache

import (
	"encoding/binary"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/joaojeronimo/go-crc16"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/ugorji/go/codec"

	"mynewt.apache.org/agmgr/agxact/agdefs"
	"mynewt.apache.org/agmgr/agxact/agxutil"
)

const cacheDirName = ".agmgr"
const cacheFilename = "peers.cbor"

type Entry struct {
	Addr        string `codec:"-" json:"addr"`
	Version     uint16 `codec:"version,omitempty" json:"version"`
	SdpFeatures uint16 `codec:"sdp_features,omitempty" json:"sdp_features"`
	HasVersion  bool   `codec:"has_version" json:"-"`
	HasFeatures bool   `codec:"has_features" json:"-"`
}

type Cache struct {
	path    string
	entries map[string]Entry
	mtx     sync.Mutex
}

func DefaultPath() (string, error) {
	dir, err := homedir.Dir()
	if err != nil {
		return "", agxutil.FmtCacheError(
			"cannot determine home directory: %s", err.Error())
	}

	return filepath.Join(dir, cacheDirName, cacheFilename), nil
}

// Creates an empty cache backed by the given file.  Nothing is read until
// Load is called.
func NewCache(path string) *Cache {
	return &Cache{
		path:    path,
		entries: map[string]Entry{},
	}
}

// Reads a cache file.  A missing file yields an empty cache.
func Load(path string) (*Cache, error) {
	c := NewCache(path)

	b, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, errors.Wrapf(err, "error reading peer cache %s", path)
	}

	entries, err := decode(b)
	if err != nil {
		return nil, err
	}
	c.entries = entries

	log.Debugf("loaded %d peer(s) from %s", len(entries), path)
	return c, nil
}

func decode(b []byte) (map[string]Entry, error) {
	if len(b) < 2 {
		return nil, agxutil.FmtCacheError(
			"peer cache too short: %d bytes", len(b))
	}

	body := b[:len(b)-2]
	want := binary.BigEndian.Uint16(b[len(b)-2:])
	if got := crc16.Crc16(body); got != want {
		return nil, agxutil.FmtCacheError(
			"peer cache crc mismatch: have=0x%04x want=0x%04x", got, want)
	}

	entries := map[string]Entry{}
	dec := codec.NewDecoderBytes(body, new(codec.CborHandle))
	if err := dec.Decode(&entries); err != nil {
		return nil, agxutil.FmtCacheError(
			"invalid peer cache: %s", err.Error())
	}

	return entries, nil
}

func encode(entries map[string]Entry) ([]byte, error) {
	var b []byte
	enc := codec.NewEncoderBytes(&b, new(codec.CborHandle))
	if err := enc.Encode(entries); err != nil {
		return nil, errors.Wrapf(err, "failed to encode peer cache")
	}

	var crc [2]byte
	binary.BigEndian.PutUint16(crc[:], crc16.Crc16(b))
	return append(b, crc[:]...), nil
}

func (c *Cache) Path() string {
	return c.path
}

// Writes the cache to its backing file.  The new contents are written to a
// temporary file in the same directory and then renamed over the old one.
func (c *Cache) Save() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return c.saveNoLock()
}

func (c *Cache) saveNoLock() error {
	if c.path == "" {
		return nil
	}

	b, err := encode(c.entries)
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "failed to create %s", dir)
	}

	f, err := ioutil.TempFile(dir, cacheFilename+".tmp")
	if err != nil {
		return errors.Wrapf(err, "failed to create temp file in %s", dir)
	}
	tmpName := f.Name()

	if _, err := f.Write(b); err != nil {
		f.Close()
		os.Remove(tmpName)
		return errors.Wrapf(err, "failed to write %s", tmpName)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "failed to close %s", tmpName)
	}

	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "failed to rename %s", tmpName)
	}

	return nil
}

func (c *Cache) Version(peer agdefs.BdAddr) (uint16, bool) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	e := c.entries[peer.String()]
	return e.Version, e.HasVersion
}

func (c *Cache) SdpFeatures(peer agdefs.BdAddr) (uint16, bool) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	e := c.entries[peer.String()]
	return e.SdpFeatures, e.HasFeatures
}

// The setters persist immediately; an unchanged value is not rewritten.
func (c *Cache) SetVersion(peer agdefs.BdAddr, version uint16) error {
	return c.update(peer, func(e *Entry) {
		e.Version = version
		e.HasVersion = true
	})
}

func (c *Cache) SetSdpFeatures(peer agdefs.BdAddr, features uint16) error {
	return c.update(peer, func(e *Entry) {
		e.SdpFeatures = features
		e.HasFeatures = true
	})
}

func (c *Cache) update(peer agdefs.BdAddr, fn func(e *Entry)) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	key := peer.String()
	old := c.entries[key]
	e := old
	fn(&e)
	if e == old {
		return nil
	}

	c.entries[key] = e
	return c.saveNoLock()
}

// Returns every cached peer ordered by address.
func (c *Cache) List() []Entry {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	entries := make([]Entry, 0, len(c.entries))
	for addr, e := range c.entries {
		e.Addr = addr
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Addr < entries[j].Addr
	})
	return entries
}

func (c *Cache) Delete(addr agdefs.BdAddr) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	key := addr.String()
	if _, ok := c.entries[key]; !ok {
		return agxutil.FmtCacheError("no cached entry for peer %s", key)
	}

	delete(c.entries, key)
	return c.saveNoLock()
}
