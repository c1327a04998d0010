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
	"context"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/abiosoft/ishell.v2"

	"mynewt.apache.org/agmgr/agmgr/amutil"
	"mynewt.apache.org/agmgr/agxact/ag"
	"mynewt.apache.org/agmgr/agxact/agdefs"
	"mynewt.apache.org/agmgr/agxact/agxutil"
)

type shellWriter struct {
	shell *ishell.Shell
}

func (w shellWriter) Write(b []byte) (int, error) {
	w.shell.Print(string(b))
	return len(b), nil
}

func peerArg(c *ishell.Context, env *agEnv) (agdefs.BdAddr, bool) {
	if len(c.Args) == 0 {
		return env.peer.Addr, true
	}

	addr, err := agdefs.ParseBdAddr(c.Args[0])
	if err != nil {
		c.Println("Error:", err)
		return agdefs.BdAddrEmpty, false
	}
	return addr, true
}

// Prints whatever the gateway sent to the simulated peer.
func showSent(c *ishell.Context, env *agEnv) {
	if err := env.sync(); err != nil {
		c.Println("Error:", err)
		return
	}

	port, ok := env.sim.Rfcomm.PortByPeer(env.peer.Addr)
	if !ok {
		return
	}
	if s := env.sim.Rfcomm.TakeSent(port); s != "" {
		c.Printf("ag: %q\n", s)
	}
}

func openCmd(c *ishell.Context, env *agEnv) {
	addr, ok := peerArg(c, env)
	if ok {
		env.ag.Open(env.handle, addr, 0)
	}
}

func closeCmd(c *ishell.Context, env *agEnv) {
	env.ag.Close(env.handle)
}

func collisionCmd(c *ishell.Context, env *agEnv) {
	addr, ok := peerArg(c, env)
	if ok {
		env.ag.Collision(addr)
	}
}

func acceptCmd(c *ishell.Context, env *agEnv) {
	if env.serial != nil {
		c.Println("accept is only available on simulated connections")
		return
	}

	scn := env.cfg.Scns[env.peer.Svc]
	if _, err := env.sim.Rfcomm.Accept(env.peer.Addr, scn); err != nil {
		c.Println("Error:", err)
	}
}

func audioCmd(c *ishell.Context, env *agEnv) {
	if len(c.Args) != 1 {
		c.Println(c.HelpText())
		return
	}

	switch c.Args[0] {
	case "open":
		env.ag.AudioOpen(env.handle)
	case "close":
		env.ag.AudioClose(env.handle)
	default:
		c.Println(c.HelpText())
	}
}

func resultCmd(c *ishell.Context, env *agEnv) {
	if len(c.Args) == 0 {
		c.Println(c.HelpText())
		return
	}

	res, err := agdefs.ResFromString(c.Args[0])
	if err != nil {
		c.Println("Error:", err)
		return
	}

	rd, err := parseResData(c.Args[1:])
	if err != nil {
		c.Println("Error:", err)
		return
	}

	env.ag.Result(env.handle, res, rd)
	if env.serial == nil {
		showSent(c, env)
	}
}

func codecCmd(c *ishell.Context, env *agEnv) {
	if len(c.Args) != 1 {
		c.Println(c.HelpText())
		return
	}

	codec, err := agdefs.CodecFromString(c.Args[0])
	if err != nil {
		c.Println("Error:", err)
		return
	}
	env.ag.SetCodec(env.handle, codec)
}

func hfCmd(c *ishell.Context, env *agEnv) {
	if env.serial != nil {
		c.Println("hf is only available on simulated connections")
		return
	}
	if len(c.Args) == 0 {
		c.Println(c.HelpText())
		return
	}

	port, ok := env.sim.Rfcomm.PortByPeer(env.peer.Addr)
	if !ok {
		c.Println("peer not connected")
		return
	}

	if err := env.sim.Rfcomm.Send(port, strings.Join(c.Args, " ")); err != nil {
		c.Println("Error:", err)
		return
	}
	showSent(c, env)
}

func stateCmd(c *ishell.Context, env *agEnv) {
	w := agxutil.NewWaiter(nil)
	env.ag.QueryScbs(func(infos []ag.ScbInfo) {
		w.Offer(infos)
	})

	v, err := w.Wait(amutil.TimeoutDuration(), nil)
	if err != nil {
		c.Println("Error: querying state:", err)
		return
	}

	infos := v.([]ag.ScbInfo)
	if len(infos) == 0 {
		c.Println("no control blocks in use")
	}
	for _, info := range infos {
		c.Println(jsonString(flatMap(info)))
	}
}

func activeCmd(c *ishell.Context, env *agEnv) {
	if len(c.Args) == 0 {
		w := agxutil.NewWaiter(nil)
		env.ag.ActiveDevice(func(addr agdefs.BdAddr) { w.Offer(addr) })

		v, err := w.Wait(amutil.TimeoutDuration(), nil)
		if err != nil {
			c.Println("Error: querying active device:", err)
			return
		}

		addr := v.(agdefs.BdAddr)
		if addr.IsEmpty() {
			c.Println("no active device")
		} else {
			c.Println("active device:", addr)
		}
		return
	}

	if c.Args[0] == "none" {
		env.ag.ClearActiveDevice()
		return
	}

	addr, ok := peerArg(c, env)
	if ok {
		env.ag.SetActiveDevice(addr)
	}
}

func startInteractive(cmd *cobra.Command, args []string) {
	services, err := parseServices(args)
	if err != nil {
		nmUsage(cmd, err)
	}

	features, err := parseFeatures(runFeatures)
	if err != nil {
		nmUsage(cmd, err)
	}

	env, err := GetAgEnv()
	if err != nil {
		nmUsage(nil, err)
	}

	if err := env.register(services, features); err != nil {
		nmUsage(nil, err)
	}

	// create new shell.
	// by default, new shell includes 'exit', 'help' and 'clear' commands.
	shell := ishell.New()
	shell.SetPrompt("> ")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go printEvents(ctx, env, shellWriter{shell})

	// display welcome info.
	shell.Println()
	shell.Println(" Agmgr audio gateway shell:")
	shell.Println("	Connection profile: ", amutil.ConnProfile)
	shell.Println("	Peer: ", env.peer.Addr)
	shell.Println("	Handle: ", env.handle)
	shell.Println()

	add := func(name string, help string,
		fn func(c *ishell.Context, env *agEnv)) {

		shell.AddCmd(&ishell.Cmd{
			Name: name,
			Help: help,
			Func: func(c *ishell.Context) { fn(c, env) },
		})
	}

	add("open", "Connect to a hands-free device: open [addr]", openCmd)
	add("close", "Close the connection", closeCmd)
	add("collision", "Report another profile connecting: collision [addr]",
		collisionCmd)
	add("accept", "Have the simulated peer connect to us", acceptCmd)
	add("audio", "Open or close the audio link: audio <open|close>",
		audioCmd)
	add("result", "Send a result: result <code> [num=n] [str=s] "+
		"[ind=id:val] [ok=n] [err=n] [audio=handle]", resultCmd)
	add("codec", "Select the audio codec: codec <cvsd|msbc>", codecCmd)
	add("hf", "Inject a line from the simulated peer: hf <AT command>",
		hfCmd)
	add("state", "Show control block state", stateCmd)
	add("active", "Show or set the active device: active [addr|none]",
		activeCmd)

	shell.Run()
}

func interactiveCmd() *cobra.Command {
	shellCmd := &cobra.Command{
		Use:   "interactive [hsp,hfp]",
		Short: "Run " + amutil.ToolInfo.ShortName + " interactive mode",
		Run:   startInteractive,
	}

	shellCmd.Flags().StringVar(&runFeatures, "features", "",
		"local feature mask")

	return shellCmd
}
