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
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/structs"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/ugorji/go/codec"
	"golang.org/x/sync/errgroup"

	"mynewt.apache.org/agmgr/agxact/ag"
	"mynewt.apache.org/agmgr/agxact/agdefs"
	"mynewt.apache.org/newt/util"
)

var runFeatures string
var runOpen string
var runDuration float64

// Converts a struct to a flat map.  Embedded structs are merged into the
// top level and values with a String method are replaced by their names.
func flatMap(v interface{}) map[string]interface{} {
	return flatten(structs.Map(v))
}

func flatten(src map[string]interface{}) map[string]interface{} {
	dst := map[string]interface{}{}
	for k, v := range src {
		if sub, ok := v.(map[string]interface{}); ok {
			for sk, sv := range flatten(sub) {
				dst[sk] = sv
			}
			continue
		}

		if s, ok := v.(fmt.Stringer); ok {
			v = s.String()
		}
		dst[k] = v
	}

	return dst
}

func jsonString(v interface{}) string {
	h := new(codec.JsonHandle)
	h.Canonical = true

	var b []byte
	if err := codec.NewEncoderBytes(&b, h).Encode(v); err != nil {
		return fmt.Sprintf("<encode error: %s>", err.Error())
	}
	return string(b)
}

func evtJson(evt ag.Evt) string {
	m := flatMap(evt)
	m["Type"] = evt.Type().String()
	return jsonString(m)
}

func printEvt(w io.Writer, evt ag.Evt) {
	fmt.Fprintf(w, "%s\n", evtJson(evt))
}

func printEvents(ctx context.Context, env *agEnv, w io.Writer) error {
	for {
		select {
		case evt := <-env.evtCh:
			printEvt(w, evt)

		case <-ctx.Done():
			return nil
		}
	}
}

func parseFeatures(s string) (uint32, error) {
	if s == "" {
		return DFLT_FEATURES, nil
	}

	f, err := cast.ToUint32E(s)
	if err != nil {
		return 0, util.FmtNewtError("invalid feature mask: %s", s)
	}
	return f, nil
}

func parseServices(args []string) (agdefs.SvcMask, error) {
	if len(args) == 0 {
		return agdefs.HSP_SERVICE_MASK | agdefs.HFP_SERVICE_MASK, nil
	}

	mask, err := agdefs.SvcMaskFromString(args[0])
	if err != nil {
		return 0, util.ChildNewtError(err)
	}
	return mask, nil
}

func runRunCmd(cmd *cobra.Command, args []string) {
	services, err := parseServices(args)
	if err != nil {
		nmUsage(cmd, err)
	}

	features, err := parseFeatures(runFeatures)
	if err != nil {
		nmUsage(cmd, err)
	}

	var peer agdefs.BdAddr
	if runOpen != "" {
		peer, err = agdefs.ParseBdAddr(runOpen)
		if err != nil {
			nmUsage(cmd, util.ChildNewtError(err))
		}
	}

	env, err := GetAgEnv()
	if err != nil {
		nmUsage(nil, err)
	}

	if err := env.register(services, features); err != nil {
		nmUsage(nil, err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if runDuration > 0 {
		var tcancel context.CancelFunc
		ctx, tcancel = context.WithTimeout(ctx,
			time.Duration(runDuration*float64(time.Second)))
		defer tcancel()
	}

	g, ctx := errgroup.WithContext(ctx)

	printDone := make(chan struct{})
	g.Go(func() error {
		defer close(printDone)
		return printEvents(ctx, env, os.Stdout)
	})

	// Owns the transport; tears everything down once the printer has let go
	// of the event channel.
	g.Go(func() error {
		<-ctx.Done()
		<-printDone
		StopAgEnv()
		return nil
	})

	if runOpen != "" {
		log.Infof("connecting to %s", peer)
		env.ag.Open(env.handle, peer, 0)
	}

	if err := g.Wait(); err != nil {
		nmUsage(nil, util.ChildNewtError(err))
	}
}

func runCmd() *cobra.Command {
	runEx := "  agmgr -c uart run hfp\n" +
		"  agmgr -c loop run --open 00:11:22:33:44:55 --duration 10\n"

	cmd := &cobra.Command{
		Use:     "run [hsp,hfp]",
		Short:   "Run the audio gateway and print its events",
		Example: runEx,
		Run:     runRunCmd,
	}

	cmd.Flags().StringVar(&runFeatures, "features", "",
		"local feature mask (default "+
			fmt.Sprintf("0x%x", DFLT_FEATURES)+")")
	cmd.Flags().StringVar(&runOpen, "open", "",
		"peer to connect to after registering")
	cmd.Flags().Float64Var(&runDuration, "duration", 0,
		"stop after this many seconds; 0 runs until interrupted")

	return cmd
}
