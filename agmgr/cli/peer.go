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

	"github.com/spf13/cobra"

	"mynewt.apache.org/agmgr/agxact/agdefs"
	"mynewt.apache.org/newt/util"
)

func peerListCmd(cmd *cobra.Command, args []string) {
	cache, err := loadCache()
	if err != nil {
		nmUsage(nil, util.ChildNewtError(err))
	}

	entries := cache.List()
	if len(entries) == 0 {
		fmt.Printf("No cached peers in %s\n", cache.Path())
		return
	}

	fmt.Printf("Cached peers:\n")
	for _, e := range entries {
		version := "unknown"
		if e.HasVersion {
			version = fmt.Sprintf("0x%04x", e.Version)
		}
		features := "unknown"
		if e.HasFeatures {
			features = fmt.Sprintf("0x%04x", e.SdpFeatures)
		}

		fmt.Printf("  %s: version=%s sdp_features=%s\n",
			e.Addr, version, features)
	}
}

func peerDelCmd(cmd *cobra.Command, args []string) {
	if len(args) == 0 {
		nmUsage(cmd, util.NewNewtError("Need peer address"))
	}

	addr, err := agdefs.ParseBdAddr(args[0])
	if err != nil {
		nmUsage(cmd, util.ChildNewtError(err))
	}

	cache, err := loadCache()
	if err != nil {
		nmUsage(nil, util.ChildNewtError(err))
	}

	if err := cache.Delete(addr); err != nil {
		nmUsage(nil, util.ChildNewtError(err))
	}

	fmt.Printf("Peer %s successfully deleted.\n", addr)
}

func peerCmd() *cobra.Command {
	pCmd := &cobra.Command{
		Use:   "peer",
		Short: "Manage cached hands-free peer information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Show cached peers",
		Run:   peerListCmd,
	}
	pCmd.AddCommand(listCmd)

	delCmd := &cobra.Command{
		Use:   "delete <addr>",
		Short: "Forget a cached peer",
		Run:   peerDelCmd,
	}
	pCmd.AddCommand(delCmd)

	return pCmd
}
