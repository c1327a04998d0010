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

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mynewt.apache.org/agmgr/agmgr/amutil"
	"mynewt.apache.org/agmgr/agxact/agxutil"
	"mynewt.apache.org/newt/util"
)

var AgmgrLogLevel log.Level

func Commands() *cobra.Command {
	logLevelStr := ""
	amCmd := &cobra.Command{
		Use:   amutil.ToolInfo.ExeName,
		Short: amutil.ToolInfo.ShortName + " runs a hands-free audio gateway",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			var err error
			AgmgrLogLevel, err = log.ParseLevel(logLevelStr)
			if err != nil {
				nmUsage(nil, util.ChildNewtError(err))
			}

			err = util.Init(AgmgrLogLevel, "", util.VERBOSITY_DEFAULT)
			if err != nil {
				nmUsage(nil, err)
			}
			agxutil.SetLogLevel(AgmgrLogLevel)
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	amCmd.PersistentFlags().StringVarP(&amutil.ConnProfile, "conn", "c", "",
		"connection profile to use")

	amCmd.PersistentFlags().Float64VarP(&amutil.Timeout, "timeout", "t", 10.0,
		"timeout in seconds (partial seconds allowed)")

	amCmd.PersistentFlags().StringVarP(&logLevelStr, "loglevel", "l", "info",
		"log level to use")

	amCmd.PersistentFlags().StringVar(&amutil.ConnType, "conntype", "",
		"Connection type to use instead of using the profile's type")

	amCmd.PersistentFlags().StringVar(&amutil.ConnString, "connstring", "",
		"Connection key-value pairs to use instead of using the profile's "+
			"connstring")

	amCmd.PersistentFlags().StringVar(&amutil.ConnExtra, "connextra", "",
		"Additional key-value pair to append to the connstring")

	amCmd.PersistentFlags().StringVar(&amutil.CachePath, "cache", "",
		"peer cache file (default $HOME/.agmgr/peers.cbor)")

	versCmd := &cobra.Command{
		Use:     "version",
		Short:   "Display the " + amutil.ToolInfo.ShortName + " version number",
		Example: "  " + amutil.ToolInfo.ExeName + " version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s\n",
				amutil.ToolInfo.LongName,
				amutil.ToolInfo.VersionString)
		},
	}
	amCmd.AddCommand(versCmd)

	amCmd.AddCommand(connProfileCmd())
	amCmd.AddCommand(runCmd())
	amCmd.AddCommand(scriptCmd())
	amCmd.AddCommand(interactiveCmd())
	amCmd.AddCommand(peerCmd())

	return amCmd
}
