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

// Package serial carries the AT command channel over a UART.  The far end
// of the line stands in for a single RFCOMM peer; there is no framing, the
// bytes on the wire are the AT text itself.
package serial

import (
	"encoding/hex"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tarm/serial"

	"mynewt.apache.org/agmgr/agxact/agdefs"
	"mynewt.apache.org/agmgr/agxact/agxutil"
	"mynewt.apache.org/agmgr/agxact/at"
	"mynewt.apache.org/agmgr/agxact/xport"
)

type XportCfg struct {
	DevPath     string
	Baud        int
	ReadTimeout time.Duration

	// Address reported for the device on the other end of the line.
	Peer agdefs.BdAddr

	// Which listening service accepts the line when the peer speaks first.
	Svc agdefs.SvcIdx
}

func NewXportCfg() *XportCfg {
	return &XportCfg{
		Baud:        115200,
		ReadTimeout: 100 * time.Millisecond,
		Svc:         agdefs.SVC_IDX_HFP,
	}
}

type server struct {
	scn uint8
	svc agdefs.SvcIdx
}

type openFn func(cfg *serial.Config) (io.ReadWriteCloser, error)

func openSerial(cfg *serial.Config) (io.ReadWriteCloser, error) {
	return serial.OpenPort(cfg)
}

// SerialXport implements xport.Rfcomm on top of a serial device.  Several
// server ports may be registered but at most one connection exists at a
// time.
type SerialXport struct {
	cfg  *XportCfg
	open openFn
	dev  io.ReadWriteCloser

	wg sync.WaitGroup
	sync.Mutex
	lis     xport.Listener
	closing bool

	nextPort xport.Port
	servers  map[xport.Port]server
	conn     xport.Port
	rx       []byte
}

func NewSerialXport(cfg *XportCfg) *SerialXport {
	return &SerialXport{
		cfg:      cfg,
		open:     openSerial,
		nextPort: 1,
		servers:  map[xport.Port]server{},
	}
}

func (sx *SerialXport) SetListener(l xport.Listener) {
	sx.Lock()
	defer sx.Unlock()

	sx.lis = l
}

func (sx *SerialXport) Start() error {
	c := &serial.Config{
		Name:        sx.cfg.DevPath,
		Baud:        sx.cfg.Baud,
		ReadTimeout: sx.cfg.ReadTimeout,
	}

	dev, err := sx.open(c)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", sx.cfg.DevPath)
	}

	if p, ok := dev.(*serial.Port); ok {
		if err := p.Flush(); err != nil {
			dev.Close()
			return errors.Wrapf(err, "failed to flush %s", sx.cfg.DevPath)
		}
	}

	sx.Lock()
	sx.dev = dev
	sx.closing = false
	sx.Unlock()

	sx.wg.Add(1)
	go func() {
		defer sx.wg.Done()
		sx.rxLoop(dev)
	}()

	return nil
}

func (sx *SerialXport) Stop() error {
	sx.Lock()
	if sx.dev == nil {
		sx.Unlock()
		return agxutil.NewXportError("serial transport not started")
	}
	sx.closing = true
	dev := sx.dev
	sx.dev = nil
	sx.Unlock()

	err := dev.Close()
	sx.wg.Wait()
	return err
}

func (sx *SerialXport) rxLoop(dev io.Reader) {
	buf := make([]byte, at.AtMaxLen)

	for {
		n, err := dev.Read(buf)
		if n > 0 {
			log.Debugf("Rx serial:\n%s", hex.Dump(buf[:n]))
			sx.rxData(buf[:n])
		}

		if err != nil {
			sx.Lock()
			closing := sx.closing
			sx.Unlock()

			if closing {
				return
			}
			if err == io.EOF {
				// Read timeout.
				continue
			}

			log.Errorf("serial read failed: %s", err.Error())
			sx.dropConn()
			return
		}
	}
}

// Queues received bytes.  If nothing is connected, the line is handed to
// the configured listening service first.
func (sx *SerialXport) rxData(b []byte) {
	sx.Lock()

	var opened xport.Port
	if sx.conn == 0 {
		for port, srv := range sx.servers {
			if srv.svc == sx.cfg.Svc {
				sx.conn = port
				opened = port
				break
			}
		}
		if sx.conn == 0 {
			sx.Unlock()
			log.Debugf("serial: discarding %d byte(s); no listener", len(b))
			return
		}
	}

	sx.rx = append(sx.rx, b...)
	port := sx.conn
	lis := sx.lis
	sx.Unlock()

	if lis == nil {
		return
	}
	if opened != 0 {
		lis.RfcommOpened(opened)
	}
	lis.RfcommData(port)
}

func (sx *SerialXport) dropConn() {
	sx.Lock()
	port := sx.conn
	sx.conn = 0
	sx.rx = nil
	lis := sx.lis
	sx.Unlock()

	if port != 0 && lis != nil {
		lis.RfcommClosed(port)
	}
}

func (sx *SerialXport) StartServer(scn uint8, svc agdefs.SvcIdx,
	secMask uint16) (xport.Port, error) {

	sx.Lock()
	defer sx.Unlock()

	for _, srv := range sx.servers {
		if srv.scn == scn {
			return 0, agxutil.FmtXportError(
				"scn %d already has a server", scn)
		}
	}

	port := sx.nextPort
	sx.nextPort++
	sx.servers[port] = server{scn: scn, svc: svc}

	return port, nil
}

func (sx *SerialXport) RemoveServer(port xport.Port) error {
	sx.Lock()
	if _, ok := sx.servers[port]; !ok {
		sx.Unlock()
		return agxutil.FmtXportError("no server port %d", port)
	}
	delete(sx.servers, port)
	connected := sx.conn == port
	sx.Unlock()

	if connected {
		sx.dropConn()
	}
	return nil
}

func (sx *SerialXport) Close(port xport.Port) error {
	sx.Lock()
	connected := sx.conn == port
	sx.Unlock()

	if !connected {
		return agxutil.FmtXportError("port %d not connected", port)
	}

	sx.dropConn()
	return nil
}

// Claims the line for an outgoing connection.  The serial device must
// already be started; the connection is reported open immediately.
func (sx *SerialXport) Connect(peer agdefs.BdAddr, scn uint8,
	secMask uint16) (xport.Port, error) {

	sx.Lock()
	if sx.dev == nil {
		sx.Unlock()
		return 0, agxutil.NewXportError("serial transport not started")
	}
	if sx.conn != 0 {
		sx.Unlock()
		return 0, agxutil.NewXportError("serial line busy")
	}
	if peer != sx.cfg.Peer {
		sx.Unlock()
		return 0, agxutil.FmtXportError("peer %s not reachable on %s",
			peer, sx.cfg.DevPath)
	}

	port := sx.nextPort
	sx.nextPort++
	sx.conn = port
	lis := sx.lis
	sx.Unlock()

	if lis != nil {
		lis.RfcommOpened(port)
	}
	return port, nil
}

func (sx *SerialXport) Read(port xport.Port, b []byte) (int, error) {
	sx.Lock()
	defer sx.Unlock()

	if sx.conn != port {
		return 0, agxutil.FmtXportError("port %d not connected", port)
	}

	n := copy(b, sx.rx)
	sx.rx = sx.rx[n:]
	return n, nil
}

func (sx *SerialXport) Write(port xport.Port, b []byte) (int, error) {
	sx.Lock()
	if sx.conn != port {
		sx.Unlock()
		return 0, agxutil.FmtXportError("port %d not connected", port)
	}
	dev := sx.dev
	sx.Unlock()

	if dev == nil {
		return 0, agxutil.NewXportError("serial transport not started")
	}

	log.Debugf("Tx serial\n%s", hex.Dump(b))
	n, err := dev.Write(b)
	if err != nil {
		return n, agxutil.NewXportError(err.Error())
	}
	return n, nil
}

func (sx *SerialXport) CheckConnection(port xport.Port) (
	agdefs.BdAddr, error) {

	sx.Lock()
	defer sx.Unlock()

	if sx.conn != port {
		return agdefs.BdAddrEmpty,
			fmt.Errorf("port %d not connected", port)
	}
	return sx.cfg.Peer, nil
}

// Connections complete synchronously, so one is never pending.
func (sx *SerialXport) IsOpening() (agdefs.BdAddr, bool) {
	return agdefs.BdAddrEmpty, false
}
