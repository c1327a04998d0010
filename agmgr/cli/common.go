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
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mynewt.apache.org/agmgr/agmgr/amutil"
	"mynewt.apache.org/agmgr/agmgr/config"
	"mynewt.apache.org/agmgr/agxact/ag"
	"mynewt.apache.org/agmgr/agxact/agcache"
	"mynewt.apache.org/agmgr/agxact/agdefs"
	"mynewt.apache.org/agmgr/agxact/serial"
	"mynewt.apache.org/agmgr/agxact/sim"
	"mynewt.apache.org/agmgr/agxact/task"
	"mynewt.apache.org/agmgr/agxact/xport"
	"mynewt.apache.org/newt/util"
)

const evtChanSize = 256

const DFLT_FEATURES = agdefs.FEAT_3WAY | agdefs.FEAT_INBAND |
	agdefs.FEAT_REJECT | agdefs.FEAT_ECS | agdefs.FEAT_ECC |
	agdefs.FEAT_EXTERR | agdefs.FEAT_CODEC | agdefs.FEAT_HF_IND |
	agdefs.FEAT_ESCO

var serviceNames = [agdefs.SVC_IDX_NUM]string{
	agdefs.SVC_IDX_HSP: "Headset Gateway",
	agdefs.SVC_IDX_HFP: "Handsfree Gateway",
}

// Everything built from a connection profile.
type agEnv struct {
	ag     *ag.Ag
	cfg    ag.Cfg
	queue  *task.TaskQueue
	sim    *sim.Sim
	serial *serial.SerialXport
	cache  *agcache.Cache
	peer   config.PeerCfg
	evtCh  chan ag.Evt
	handle uint16
}

var globalEnv *agEnv
var globalEnvMtx sync.Mutex

var onExit func()

func NmSetOnExit(cb func()) {
	onExit = cb
}

func nmUsage(cmd *cobra.Command, err error) {
	if err != nil {
		if nerr, ok := err.(*util.NewtError); ok {
			log.Debugf("%s", nerr.StackTrace)
			fmt.Fprintf(os.Stderr, "Error: %s\n", nerr.Text)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
		}
	}

	if cmd != nil {
		fmt.Printf("\n")
		fmt.Printf("%s - ", cmd.Name())
		cmd.Help()
	}

	if onExit != nil {
		onExit()
	}
	os.Exit(1)
}

func getConnProfile() (*config.ConnProfile, error) {
	if amutil.ConnType != "" {
		ct, err := config.ConnTypeFromString(amutil.ConnType)
		if err != nil {
			return nil, err
		}

		cp := config.NewConnProfile()
		cp.Name = "<cmdline>"
		cp.Type = ct
		cp.ConnString = amutil.ConnString
		return cp, nil
	}

	cp, err := config.GlobalConnProfileMgr().GetConnProfile(amutil.ConnProfile)
	if err != nil {
		return nil, err
	}

	if amutil.ConnString != "" || amutil.ConnExtra != "" {
		dup := *cp
		if amutil.ConnString != "" {
			dup.ConnString = amutil.ConnString
		}
		if amutil.ConnExtra != "" {
			if dup.ConnString != "" {
				dup.ConnString += ","
			}
			dup.ConnString += amutil.ConnExtra
		}
		cp = &dup
	}

	return cp, nil
}

func loadCache() (*agcache.Cache, error) {
	path := amutil.CachePath
	if path == "" {
		var err error
		path, err = agcache.DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	cache, err := agcache.Load(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot use peer cache")
	}
	return cache, nil
}

// Builds the gateway and its collaborators for a connection profile.  SDP
// and SCO are always simulated; RFCOMM comes from the profile.
func buildAgEnv(cp *config.ConnProfile, cache xport.PeerStore) (
	*agEnv, error) {

	env := &agEnv{
		sim:   sim.NewSim(),
		evtCh: make(chan ag.Evt, evtChanSize),
	}
	if c, ok := cache.(*agcache.Cache); ok {
		env.cache = c
	}

	cfg := ag.NewCfg()
	cfg.Sdp = env.sim.Sdp
	cfg.Sco = env.sim.Sco
	cfg.Sys = xport.LogSys{}
	cfg.Store = cache

	switch cp.Type {
	case config.CONN_TYPE_SIM:
		sc, err := config.ParseSimConnString(cp.ConnString)
		if err != nil {
			return nil, err
		}
		env.sim.Rfcomm.AutoConnect = sc.AutoConnect
		env.peer = sc.Peer
		cfg.Rfcomm = env.sim.Rfcomm

	case config.CONN_TYPE_SERIAL:
		sc, err := config.ParseSerialConnString(cp.ConnString)
		if err != nil {
			return nil, err
		}
		env.serial = serial.NewSerialXport(sc.Xport)
		env.peer = sc.Peer
		cfg.Rfcomm = env.serial

	default:
		return nil, util.FmtNewtError("Unknown connection type: %s (%d)",
			config.ConnTypeToString(cp.Type), int(cp.Type))
	}

	env.sim.Sdp.AddPeerRecord(env.peer.Addr, env.peer.Record())

	env.queue = task.NewTaskQueue("agmgr")
	if err := env.queue.Start(evtChanSize); err != nil {
		return nil, util.ChildNewtError(err)
	}
	cfg.Exec = env.queue
	env.cfg = cfg

	a, err := ag.NewAg(cfg)
	if err != nil {
		env.queue.Stop(err)
		return nil, util.ChildNewtError(err)
	}
	env.ag = a

	env.sim.SetListener(a)
	if env.serial != nil {
		env.serial.SetListener(a)
		if err := env.serial.Start(); err != nil {
			env.queue.Stop(err)
			return nil, util.ChildNewtError(err)
		}
	}

	a.Enable(env.queueEvt)
	if _, err := env.waitEvt(ag.EVT_ENABLE, nil); err != nil {
		env.stop()
		return nil, err
	}

	return env, nil
}

// Runs on the executor; must not block.
func (env *agEnv) queueEvt(evt ag.Evt) {
	select {
	case env.evtCh <- evt:
	default:
		log.Warnf("event queue full; dropping %s", ag.EvtString(evt))
	}
}

// Waits for an event of the given type.  Other events are passed to other,
// or printed if other is nil.
func (env *agEnv) waitEvt(typ ag.EvtType, other func(evt ag.Evt)) (
	ag.Evt, error) {

	timer := time.NewTimer(amutil.TimeoutDuration())
	defer timer.Stop()

	for {
		select {
		case evt := <-env.evtCh:
			if evt.Type() == typ {
				return evt, nil
			}
			if other != nil {
				other(evt)
			} else {
				printEvt(os.Stdout, evt)
			}

		case <-timer.C:
			return nil, util.FmtNewtError("timeout waiting for %s event", typ)
		}
	}
}

// Waits for every job posted so far to complete.
func (env *agEnv) sync() error {
	return env.queue.Run(func() error { return nil })
}

func (env *agEnv) register(services agdefs.SvcMask, features uint32) error {
	env.ag.Register(ag.RegisterParams{
		Services: services,
		Features: features,
		Names:    serviceNames,
	})

	evt, err := env.waitEvt(ag.EVT_REGISTER, nil)
	if err != nil {
		return err
	}

	hdr := evt.Header()
	if hdr.Status != agdefs.STATUS_SUCCESS {
		return util.FmtNewtError("registration failed: %s", hdr.Status)
	}

	env.handle = hdr.Handle
	log.Debugf("registered %s; handle=%d", services, env.handle)
	return nil
}

func (env *agEnv) stop() {
	if env.queue.Active() {
		env.ag.Disable()
		env.waitEvt(ag.EVT_DISABLE, func(ag.Evt) {})
		env.queue.Stop(util.NewNewtError("agmgr exiting"))
	}

	if env.serial != nil {
		env.serial.Stop()
	}
}

func GetAgEnv() (*agEnv, error) {
	globalEnvMtx.Lock()
	defer globalEnvMtx.Unlock()

	if globalEnv != nil {
		return globalEnv, nil
	}

	cp, err := getConnProfile()
	if err != nil {
		return nil, err
	}

	cache, err := loadCache()
	if err != nil {
		return nil, err
	}

	env, err := buildAgEnv(cp, cache)
	if err != nil {
		return nil, err
	}

	globalEnv = env
	return env, nil
}

func StopAgEnv() {
	globalEnvMtx.Lock()
	defer globalEnvMtx.Unlock()

	if globalEnv != nil {
		env := globalEnv
		globalEnv = nil
		env.stop()
	}
}
