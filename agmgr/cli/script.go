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
	"bufio"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"gopkg.in/cheggaaa/pb.v1"

	"mynewt.apache.org/agmgr/agmgr/config"
	"mynewt.apache.org/agmgr/agxact/ag"
	"mynewt.apache.org/agmgr/agxact/agdefs"
	"mynewt.apache.org/agmgr/agxact/sim"
	"mynewt.apache.org/agmgr/agxact/task"
	"mynewt.apache.org/agmgr/agxact/xport"
	"mynewt.apache.org/newt/util"
)

var scriptQuiet bool

type scriptLine struct {
	num  int
	verb string
	rest string
}

// Drives a gateway against a simulated hands-free peer.  Time only moves
// when the script says so.
type scriptRunner struct {
	loop   *task.StepLoop
	sim    *sim.Sim
	ag     *ag.Ag
	cfg    ag.Cfg
	peer   config.PeerCfg
	handle uint16

	// Gateway output and events not yet matched by an expect.
	out  string
	evts []ag.Evt

	log io.Writer
}

func parseScript(r io.Reader) ([]scriptLine, error) {
	var lines []scriptLine

	scanner := bufio.NewScanner(r)
	num := 0
	for scanner.Scan() {
		num++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.SplitN(text, " ", 2)
		sl := scriptLine{num: num, verb: fields[0]}
		if len(fields) > 1 {
			sl.rest = strings.TrimSpace(fields[1])
		}
		lines = append(lines, sl)
	}

	if err := scanner.Err(); err != nil {
		return nil, util.ChildNewtError(err)
	}
	return lines, nil
}

func newScriptRunner(log io.Writer) (*scriptRunner, error) {
	sr := &scriptRunner{
		loop: task.NewStepLoop(),
		sim:  sim.NewSim(),
		peer: config.NewPeerCfg(),
		log:  log,
	}

	cfg := ag.NewCfg()
	cfg.Exec = sr.loop
	cfg.Rfcomm = sr.sim.Rfcomm
	cfg.Sdp = sr.sim.Sdp
	cfg.Sco = sr.sim.Sco
	cfg.Store = xport.NewMemPeerStore()
	sr.cfg = cfg

	a, err := ag.NewAg(cfg)
	if err != nil {
		return nil, util.ChildNewtError(err)
	}
	sr.ag = a
	sr.sim.SetListener(a)

	a.Enable(func(evt ag.Evt) {
		fmt.Fprintf(sr.log, "event: %s\n", evtJson(evt))
		sr.evts = append(sr.evts, evt)
	})
	sr.loop.Drain()

	return sr, nil
}

func (sr *scriptRunner) port() (xport.Port, bool) {
	return sr.sim.Rfcomm.PortByPeer(sr.peer.Addr)
}

// Runs queued work and collects whatever the gateway sent.
func (sr *scriptRunner) settle() {
	sr.loop.Drain()

	if port, ok := sr.port(); ok {
		if s := sr.sim.Rfcomm.TakeSent(port); s != "" {
			fmt.Fprintf(sr.log, "ag: %q\n", s)
			sr.out += s
		}
	}
}

func (sr *scriptRunner) expectOutput(text string) error {
	idx := strings.Index(sr.out, text)
	if idx < 0 {
		return util.FmtNewtError("expected %q; have %q", text, sr.out)
	}

	sr.out = sr.out[idx+len(text):]
	return nil
}

func (sr *scriptRunner) expectEvt(name string) error {
	for i, evt := range sr.evts {
		if evt.Type().String() == name {
			sr.evts = sr.evts[i+1:]
			return nil
		}
	}

	return util.FmtNewtError("expected %s event", name)
}

func (sr *scriptRunner) exec(sl scriptLine) error {
	switch sl.verb {
	case "peer":
		pc, err := config.ParsePeerString(sl.rest)
		if err != nil {
			return err
		}
		sr.peer = pc
		sr.sim.Sdp.AddPeerRecord(pc.Addr, pc.Record())

	case "register":
		args := strings.Fields(sl.rest)
		services, err := parseServices(args)
		if err != nil {
			return err
		}

		featStr := ""
		if len(args) > 1 {
			featStr = args[1]
		}
		features, err := parseFeatures(featStr)
		if err != nil {
			return err
		}

		sr.ag.Register(ag.RegisterParams{
			Services: services,
			Features: features,
			Names:    serviceNames,
		})
		sr.loop.Drain()

		for _, evt := range sr.evts {
			if e, ok := evt.(*ag.RegisterEvt); ok {
				if e.Status != agdefs.STATUS_SUCCESS {
					return util.FmtNewtError("registration failed: %s",
						e.Status)
				}
				sr.handle = e.Handle
			}
		}

	case "accept":
		scn := sr.cfg.Scns[sr.peer.Svc]
		if _, err := sr.sim.Rfcomm.Accept(sr.peer.Addr, scn); err != nil {
			return util.ChildNewtError(err)
		}

	case "open":
		sr.ag.Open(sr.handle, sr.peer.Addr, 0)

	case "close":
		sr.ag.Close(sr.handle)

	case "collision":
		sr.ag.Collision(sr.peer.Addr)

	case "sdp":
		switch sl.rest {
		case "hold":
			sr.sim.Sdp.AutoComplete = false
		case "release":
			sr.sim.Sdp.AutoComplete = true
			sr.sim.Sdp.Complete(sr.peer.Addr)
		default:
			return util.FmtNewtError("invalid sdp operation: %s", sl.rest)
		}

	case "disconnect":
		port, ok := sr.port()
		if !ok {
			return util.NewNewtError("peer not connected")
		}
		if err := sr.sim.Rfcomm.Disconnect(port); err != nil {
			return util.ChildNewtError(err)
		}

	case "hf":
		port, ok := sr.port()
		if !ok {
			return util.NewNewtError("peer not connected")
		}
		if err := sr.sim.Rfcomm.Send(port, sl.rest); err != nil {
			return util.ChildNewtError(err)
		}

	case "result":
		args := strings.Fields(sl.rest)
		if len(args) == 0 {
			return util.NewNewtError("result requires a result code")
		}
		res, err := agdefs.ResFromString(args[0])
		if err != nil {
			return util.ChildNewtError(err)
		}
		rd, err := parseResData(args[1:])
		if err != nil {
			return err
		}
		sr.ag.Result(sr.handle, res, rd)

	case "audio":
		switch sl.rest {
		case "open":
			sr.ag.AudioOpen(sr.handle)
		case "close":
			sr.ag.AudioClose(sr.handle)
		default:
			return util.FmtNewtError("invalid audio operation: %s", sl.rest)
		}

	case "codec":
		c, err := agdefs.CodecFromString(sl.rest)
		if err != nil {
			return util.ChildNewtError(err)
		}
		sr.ag.SetCodec(sr.handle, c)

	case "wait":
		secs, err := cast.ToFloat64E(sl.rest)
		if err != nil {
			return util.FmtNewtError("invalid duration: %s", sl.rest)
		}
		sr.loop.Advance(time.Duration(secs * float64(time.Second)))

	case "expect":
		sr.settle()
		return sr.expectOutput(strings.Trim(sl.rest, "\""))

	case "expect-evt":
		sr.settle()
		return sr.expectEvt(sl.rest)

	default:
		return util.FmtNewtError("unknown command: %s", sl.verb)
	}

	sr.settle()
	return nil
}

// Runs every line of a script.  Progress is drawn on progress unless it is
// nil.
func runScript(r io.Reader, log io.Writer, progress io.Writer) error {
	lines, err := parseScript(r)
	if err != nil {
		return err
	}

	sr, err := newScriptRunner(log)
	if err != nil {
		return err
	}

	var bar *pb.ProgressBar
	if progress != nil {
		bar = pb.New(len(lines))
		bar.Output = progress
		bar.ShowTimeLeft = false
		bar.Start()
		defer bar.Finish()
	}

	for _, sl := range lines {
		if err := sr.exec(sl); err != nil {
			return util.FmtNewtError("line %d (%s): %s",
				sl.num, sl.verb, err.Error())
		}
		if bar != nil {
			bar.Increment()
		}
	}

	return nil
}

// Parses result arguments: num=, str=, state=, ok=, err=, ind=<id>:<value>,
// audio=<handle>.
func parseResData(args []string) (ag.ResData, error) {
	rd := ag.ResData{}

	for _, arg := range args {
		kv := strings.SplitN(arg, "=", 2)
		if len(kv) != 2 {
			return rd, util.FmtNewtError("expected key=value: %s", arg)
		}

		var err error
		switch kv[0] {
		case "num":
			rd.Num, err = cast.ToIntE(kv[1])
		case "str":
			rd.Str = kv[1]
		case "state":
			rd.State, err = cast.ToBoolE(kv[1])
		case "ok":
			rd.OkFlag, err = cast.ToIntE(kv[1])
		case "err":
			rd.ErrCode, err = cast.ToIntE(kv[1])
		case "audio":
			rd.AudioHandle, err = cast.ToUint16E(kv[1])
		case "ind":
			parts := strings.SplitN(kv[1], ":", 2)
			if len(parts) != 2 {
				return rd, util.FmtNewtError("invalid indicator: %s", kv[1])
			}
			rd.Ind.Id, err = cast.ToIntE(parts[0])
			if err == nil {
				rd.Ind.Value, err = cast.ToIntE(parts[1])
			}
		case "ondemand":
			rd.Ind.OnDemand, err = cast.ToBoolE(kv[1])
		default:
			return rd, util.FmtNewtError("unknown result key: %s", kv[0])
		}

		if err != nil {
			return rd, util.FmtNewtError("invalid %s: %s", kv[0], kv[1])
		}
	}

	return rd, nil
}

func runScriptCmd(cmd *cobra.Command, args []string) {
	if len(args) < 1 {
		nmUsage(cmd, util.NewNewtError("Need to specify a script file"))
	}

	f, err := os.Open(args[0])
	if err != nil {
		nmUsage(cmd, util.ChildNewtError(err))
	}
	defer f.Close()

	log := io.Writer(os.Stdout)
	progress := io.Writer(os.Stderr)
	if scriptQuiet {
		log = ioutil.Discard
	} else {
		progress = nil
	}

	if err := runScript(f, log, progress); err != nil {
		nmUsage(nil, err)
	}

	fmt.Printf("Done\n")
}

func scriptCmd() *cobra.Command {
	scriptEx := "  agmgr script slc.txt\n"

	cmd := &cobra.Command{
		Use:     "script <file>",
		Short:   "Replay a hands-free script against a simulated peer",
		Example: scriptEx,
		Run:     runScriptCmd,
	}

	cmd.Flags().BoolVarP(&scriptQuiet, "quiet", "q", false,
		"show a progress bar instead of the exchange")

	return cmd
}
