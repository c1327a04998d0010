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
	log "github.com/sirupsen/logrus"
)

// Maximum length of a single command line, terminator included.
const CmdMax = 512

// Maximum length of a string argument or result payload.
const AtMaxLen = 256

// Invoked for every recognized command with a permitted argument.
type CmdCb func(cmd *Cmd, argType ArgType, arg string, intArg int)

// Invoked for unknown commands (unknown=true, text is the command) and for
// known commands with a disallowed or out of range argument (unknown=false).
type ErrCb func(unknown bool, text string)

// Interp splits an incoming byte stream into AT command lines and dispatches
// them against a command table.  An Interp is not safe for concurrent use; it
// is driven from the AG event loop.
type Interp struct {
	tbl    []Cmd
	cmdCb  CmdCb
	errCb  ErrCb
	maxLen int
	buf    []byte
}

func NewInterp(tbl []Cmd, cmdCb CmdCb, errCb ErrCb) *Interp {
	return &Interp{
		tbl:    tbl,
		cmdCb:  cmdCb,
		errCb:  errCb,
		maxLen: CmdMax,
	}
}

// Reinit discards any partially received line.
func (ip *Interp) Reinit() {
	ip.buf = ip.buf[:0]
}

func (ip *Interp) Table() []Cmd {
	return ip.tbl
}

// Parse consumes bytes received from the peer.  Complete lines are
// processed immediately; a trailing partial line is kept for the next call.
func (ip *Interp) Parse(data []byte) {
	for _, b := range data {
		if len(ip.buf) >= ip.maxLen-1 {
			log.Warnf("AT line overflow; discarding %d bytes", len(ip.buf))
			ip.buf = ip.buf[:0]
		}

		// NULs between commands are padding.
		if len(ip.buf) == 0 && b == 0 {
			continue
		}

		switch b {
		case '\r', '\n':
			line := string(ip.buf)
			ip.buf = ip.buf[:0]
			if len(line) >= 2 && (line[0] == 'A' || line[0] == 'a') &&
				(line[1] == 'T' || line[1] == 't') {

				ip.process(line[2:])
			}

		case 0x1a, 0x1b:
			ip.buf = append(ip.buf, b)
			text := string(ip.buf)
			ip.buf = ip.buf[:0]
			ip.errCb(true, text)

		default:
			ip.buf = append(ip.buf, b)
		}
	}
}

// ClassifyArg determines the argument type of the text following a command
// name and returns the argument with its type marker stripped.
func ClassifyArg(s string) (ArgType, string) {
	switch {
	case s == "":
		return ARG_NONE, s
	case s == "?":
		return ARG_READ, ""
	case len(s) > 1 && s[0] == '=':
		if s == "=?" {
			return ARG_TEST, ""
		}
		return ARG_SET, s[1:]
	default:
		return ARG_FREE, s
	}
}

func (ip *Interp) process(s string) {
	cmd := Lookup(ip.tbl, s)
	if cmd == nil {
		log.Debugf("unknown AT command: %q", s)
		ip.errCb(true, s)
		return
	}

	argType, arg := ClassifyArg(s[len(cmd.Name):])
	if argType&cmd.ArgTypes == 0 {
		log.Debugf("AT%s: %s argument not allowed", cmd.Name, argType)
		ip.errCb(false, "")
		return
	}

	intArg := 0
	if argType == ARG_SET && cmd.Fmt == FMT_INT {
		intArg = Str2Int(arg)
		if intArg < cmd.Min || intArg > cmd.Max {
			log.Debugf("AT%s: argument %q out of range [%d,%d]",
				cmd.Name, arg, cmd.Min, cmd.Max)
			ip.errCb(false, "")
			return
		}
	}

	ip.cmdCb(cmd, argType, arg, intArg)
}
