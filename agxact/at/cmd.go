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

package at

import (
	"strings"
)

// Argument types a command accepts; a row carries a mask of these.
type ArgType uint8

const (
	ARG_NONE ArgType = 0x01
	ARG_SET  ArgType = 0x02
	ARG_READ ArgType = 0x04
	ARG_TEST ArgType = 0x08
	ARG_FREE ArgType = 0x10
)

var argTypeNameMap = map[ArgType]string{
	ARG_NONE: "none",
	ARG_SET:  "set",
	ARG_READ: "read",
	ARG_TEST: "test",
	ARG_FREE: "free",
}

func (t ArgType) String() string {
	s := argTypeNameMap[t]
	if s == "" {
		return "???"
	}
	return s
}

type ArgFmt uint8

const (
	FMT_NONE ArgFmt = iota
	FMT_INT
	FMT_STR
)

type CmdId uint16

const (
	CMD_NONE CmdId = iota
	CMD_A
	CMD_D
	CMD_CKPD
	CMD_VGS
	CMD_VGM
	CMD_CCWA
	CMD_CHLD
	CMD_CHUP
	CMD_CIND
	CMD_CLIP
	CMD_CMER
	CMD_VTS
	CMD_BINP
	CMD_BLDN
	CMD_BVRA
	CMD_BRSF
	CMD_NREC
	CMD_CNUM
	CMD_BTRH
	CMD_CLCC
	CMD_COPS
	CMD_CMEE
	CMD_BIA
	CMD_CBC
	CMD_BCC
	CMD_BCS
	CMD_BIND
	CMD_BIEV
	CMD_BAC
)

// Largest value a 16-bit signed integer argument may carry.
const CMD_MAX_VAL = 32767

// One row of a command table.
type Cmd struct {
	Name     string
	Id       CmdId
	ArgTypes ArgType
	Fmt      ArgFmt
	Min      int
	Max      int
}

var HspCmds = []Cmd{
	{"+CKPD", CMD_CKPD, ARG_SET, FMT_INT, 200, 200},
	{"+VGS", CMD_VGS, ARG_SET, FMT_INT, 0, 15},
	{"+VGM", CMD_VGM, ARG_SET, FMT_INT, 0, 15},
}

var HfpCmds = []Cmd{
	{"A", CMD_A, ARG_NONE, FMT_STR, 0, 0},
	{"D", CMD_D, ARG_NONE | ARG_FREE, FMT_STR, 0, 0},
	{"+VGS", CMD_VGS, ARG_SET, FMT_INT, 0, 15},
	{"+VGM", CMD_VGM, ARG_SET, FMT_INT, 0, 15},
	{"+CCWA", CMD_CCWA, ARG_SET, FMT_INT, 0, 1},
	// String so that ECC call indices survive.
	{"+CHLD", CMD_CHLD, ARG_SET | ARG_TEST, FMT_STR, 0, 4},
	{"+CHUP", CMD_CHUP, ARG_NONE, FMT_STR, 0, 0},
	{"+CIND", CMD_CIND, ARG_READ | ARG_TEST, FMT_STR, 0, 0},
	{"+CLIP", CMD_CLIP, ARG_SET, FMT_INT, 0, 1},
	{"+CMER", CMD_CMER, ARG_SET, FMT_STR, 0, 0},
	{"+VTS", CMD_VTS, ARG_SET, FMT_STR, 0, 0},
	{"+BINP", CMD_BINP, ARG_SET, FMT_INT, 1, 1},
	{"+BLDN", CMD_BLDN, ARG_NONE, FMT_STR, 0, 0},
	{"+BVRA", CMD_BVRA, ARG_SET, FMT_INT, 0, 1},
	{"+BRSF", CMD_BRSF, ARG_SET, FMT_INT, 0, CMD_MAX_VAL},
	{"+NREC", CMD_NREC, ARG_SET, FMT_INT, 0, 0},
	{"+CNUM", CMD_CNUM, ARG_NONE, FMT_STR, 0, 0},
	{"+BTRH", CMD_BTRH, ARG_READ | ARG_SET, FMT_INT, 0, 2},
	{"+CLCC", CMD_CLCC, ARG_NONE, FMT_STR, 0, 0},
	{"+COPS", CMD_COPS, ARG_READ | ARG_SET, FMT_STR, 0, 0},
	{"+CMEE", CMD_CMEE, ARG_SET, FMT_INT, 0, 1},
	{"+BIA", CMD_BIA, ARG_SET, FMT_STR, 0, 20},
	{"+CBC", CMD_CBC, ARG_SET, FMT_INT, 0, 100},
	{"+BCC", CMD_BCC, ARG_NONE, FMT_STR, 0, 0},
	{"+BCS", CMD_BCS, ARG_SET, FMT_INT, 0, CMD_MAX_VAL},
	{"+BIND", CMD_BIND, ARG_SET | ARG_READ | ARG_TEST, FMT_STR, 0, 0},
	{"+BIEV", CMD_BIEV, ARG_SET, FMT_STR, 0, 0},
	{"+BAC", CMD_BAC, ARG_SET, FMT_STR, 0, 0},
}

// Lookup returns the first row whose name is a case-insensitive prefix of
// s, or nil if none matches.
func Lookup(tbl []Cmd, s string) *Cmd {
	for i := range tbl {
		n := tbl[i].Name
		if len(s) >= len(n) && strings.EqualFold(s[:len(n)], n) {
			return &tbl[i]
		}
	}

	return nil
}

func (c *Cmd) String() string {
	return c.Name
}
