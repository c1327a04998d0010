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
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"mynewt.apache.org/agmgr/agmgr/amutil"
	"mynewt.apache.org/agmgr/agmgr/config"
	"mynewt.apache.org/agmgr/agxact/agdefs"
	"mynewt.apache.org/newt/util"
)

// Builds a profile from "type=", "connstring=" and bare connstring keys
// (e.g. "peer=..." or "baud=...").  Bare keys override the same key in
// connstring.
func buildConnProfile(name string, vdefs []string) (*config.ConnProfile, error) {
	cp := config.NewConnProfile()
	cp.Name = name
	cp.Type = config.CONN_TYPE_NONE

	kvs := map[string]string{}
	raw := ""
	for _, vdef := range vdefs {
		s := strings.SplitN(vdef, "=", 2)
		if len(s) != 2 {
			return nil, util.NewNewtError("Expected varname=value: " + vdef)
		}

		switch s[0] {
		case "type":
			var err error
			cp.Type, err = config.ConnTypeFromString(s[1])
			if err != nil {
				return nil, err
			}
		case "connstring":
			raw = s[1]
		default:
			kvs[s[0]] = s[1]
		}
	}

	if cp.Type == config.CONN_TYPE_NONE {
		return nil, util.NewNewtError("Must specify a connection type")
	}

	if raw != "" {
		for _, p := range strings.Split(raw, ",") {
			kv := strings.SplitN(p, "=", 2)
			if len(kv) == 1 && cp.Type == config.CONN_TYPE_SERIAL {
				kv = []string{"dev", kv[0]}
			}
			if len(kv) != 2 {
				return nil, util.NewNewtError("Expected key=value: " + p)
			}
			if _, ok := kvs[kv[0]]; !ok {
				kvs[kv[0]] = kv[1]
			}
		}
	}

	cs, err := config.BuildConnString(cp.Type, kvs)
	if err != nil {
		return nil, util.FmtNewtError("%s; valid keys: %s",
			err.Error(), strings.Join(connKeyNames(cp.Type), ", "))
	}
	if err := config.ValidateConnString(cp.Type, cs); err != nil {
		return nil, err
	}
	cp.ConnString = cs

	return cp, nil
}

func connKeyNames(ct config.ConnType) []string {
	keys := config.ConnStringKeys(ct)
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.Name
	}
	return names
}

func describePeer(pc config.PeerCfg) string {
	s := fmt.Sprintf("peer=%s svc=%s version=0x%04x", pc.Addr, pc.Svc,
		pc.Version)
	if pc.Svc == agdefs.SVC_IDX_HFP {
		s += fmt.Sprintf(" features=0x%04x wbs=%t", pc.Features, pc.Wbs)
	} else {
		s += fmt.Sprintf(" volume=%t", pc.RemoteVolume)
	}
	return s
}

// Summarizes what a profile connects to.
func describeConnProfile(cp *config.ConnProfile) (string, error) {
	switch cp.Type {
	case config.CONN_TYPE_SIM:
		sc, err := config.ParseSimConnString(cp.ConnString)
		if err != nil {
			return "", errors.Wrapf(err, "profile %s", cp.Name)
		}
		return fmt.Sprintf("%s autoconnect=%t",
			describePeer(sc.Peer), sc.AutoConnect), nil

	case config.CONN_TYPE_SERIAL:
		sc, err := config.ParseSerialConnString(cp.ConnString)
		if err != nil {
			return "", errors.Wrapf(err, "profile %s", cp.Name)
		}
		return fmt.Sprintf("dev=%s baud=%d %s",
			sc.Xport.DevPath, sc.Xport.Baud, describePeer(sc.Peer)), nil

	default:
		return "", util.FmtNewtError("profile %s: unknown connection type",
			cp.Name)
	}
}

func connProfileAddCmd(cmd *cobra.Command, args []string) {
	cpm := config.GlobalConnProfileMgr()

	// Connection Profile name required
	if len(args) == 0 {
		nmUsage(cmd, util.NewNewtError("Need connection profile name"))
	}

	cp, err := buildConnProfile(args[0], args[1:])
	if err != nil {
		nmUsage(cmd, err)
	}

	if err := cpm.AddConnProfile(cp); err != nil {
		nmUsage(cmd, err)
	}

	fmt.Printf("Connection profile %s successfully added: %s\n",
		cp.Name, cp.ConnString)
}

func connProfileShowCmd(cmd *cobra.Command, args []string) {
	cpm := config.GlobalConnProfileMgr()

	name := ""
	if len(args) > 0 {
		name = args[0]
	}

	cpList, err := cpm.GetConnProfileList()
	if err != nil {
		nmUsage(cmd, err)
	}

	found := false
	for _, cp := range cpList {
		if name != "" && cp.Name != name {
			continue
		}

		if !found {
			found = true
			fmt.Printf("Connection profiles: \n")
		}

		desc, err := describeConnProfile(cp)
		if err != nil {
			desc = "(" + err.Error() + ")"
		}
		fmt.Printf("  %s: type=%s, %s\n",
			cp.Name, config.ConnTypeToString(cp.Type), desc)
	}

	if !found {
		if name == "" {
			fmt.Printf("No connection profiles found!\n")
		} else {
			fmt.Printf("No connection profiles found matching %s\n", name)
		}
	}
}

func connProfileDelCmd(cmd *cobra.Command, args []string) {
	cpm := config.GlobalConnProfileMgr()

	// Connection Profile name required
	if len(args) == 0 {
		nmUsage(cmd, util.NewNewtError("Need connection profile name"))
	}

	name := args[0]
	if err := cpm.DeleteConnProfile(name); err != nil {
		nmUsage(cmd, err)
	}

	fmt.Printf("Connection profile %s successfully deleted.\n", name)
}

func connKeysCmd(cmd *cobra.Command, args []string) {
	types := []config.ConnType{config.CONN_TYPE_SIM, config.CONN_TYPE_SERIAL}
	if len(args) > 0 {
		ct, err := config.ConnTypeFromString(args[0])
		if err != nil {
			nmUsage(cmd, err)
		}
		types = []config.ConnType{ct}
	}

	for _, ct := range types {
		fmt.Printf("%s:\n", config.ConnTypeToString(ct))
		for _, k := range config.ConnStringKeys(ct) {
			fmt.Printf("  %-12s %s (e.g. %s)\n", k.Name, k.Help, k.Example)
		}
	}
}

func connProfileCmd() *cobra.Command {
	cpCmd := &cobra.Command{
		Use:   "conn",
		Short: "Manage " + amutil.ToolInfo.ShortName + " connection profiles",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	addEx := "  " + amutil.ToolInfo.ExeName +
		" conn add uart type=serial dev=/dev/ttyUSB0 baud=115200\n" +
		"  " + amutil.ToolInfo.ExeName +
		" conn add loop type=sim connstring=peer=00:11:22:33:44:55,wbs=1\n" +
		"  " + amutil.ToolInfo.ExeName +
		" conn add headset type=sim peer=00:11:22:33:44:66 svc=hsp\n"

	addHelpText := "Add a connection profile.  Besides type= and " +
		"connstring=, any connstring key\nmay be given on its own; " +
		"see \"conn keys\".\n"

	addCmd := &cobra.Command{
		Use:     "add <conn_profile> <varname=value ...> ",
		Short:   "Add an " + amutil.ToolInfo.ShortName + " connection profile",
		Long:    addHelpText,
		Example: addEx,
		Run:     connProfileAddCmd,
	}
	cpCmd.AddCommand(addCmd)

	deleCmd := &cobra.Command{
		Use:   "delete <conn_profile>",
		Short: "Delete an " + amutil.ToolInfo.ShortName + " connection profile",
		Run:   connProfileDelCmd,
	}
	cpCmd.AddCommand(deleCmd)

	connShowHelpText := "Show the peer and transport settings of the " +
		"conn_profile connection\nprofile or of all connection profiles " +
		"if conn_profile is not specified.\n"

	showCmd := &cobra.Command{
		Use:   "show [conn_profile]",
		Short: "Show " + amutil.ToolInfo.ShortName + " connection profiles",
		Long:  connShowHelpText,
		Run:   connProfileShowCmd,
	}
	cpCmd.AddCommand(showCmd)

	keysCmd := &cobra.Command{
		Use:   "keys [sim|serial]",
		Short: "List the connstring keys of each connection type",
		Run:   connKeysCmd,
	}
	cpCmd.AddCommand(keysCmd)

	return cpCmd
}
