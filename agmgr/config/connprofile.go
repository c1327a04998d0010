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

package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"

	"github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
	"github.com/ugorji/go/codec"

	"mynewt.apache.org/agmgr/agmgr/amutil"
	"mynewt.apache.org/newt/util"
)

type ConnProfileMgr struct {
	filename string
	profiles map[string]*ConnProfile
}

type ConnType int

type ConnProfile struct {
	Name       string   `json:"MyName"`
	Type       ConnType `json:"MyType"`
	ConnString string   `json:"MyConnString"`
}

func (p *ConnProfile) String() string {
	return fmt.Sprintf("name=%s type=%s connstring=%s",
		p.Name, ConnTypeToString(p.Type), p.ConnString)
}

const (
	CONN_TYPE_NONE ConnType = iota
	CONN_TYPE_SIM
	CONN_TYPE_SERIAL
)

var connTypeNameMap = map[ConnType]string{
	CONN_TYPE_SIM:    "sim",
	CONN_TYPE_SERIAL: "serial",
	CONN_TYPE_NONE:   "???",
}

func ConnTypeToString(ct ConnType) string {
	return connTypeNameMap[ct]
}

func ConnTypeFromString(s string) (ConnType, error) {
	for k, v := range connTypeNameMap {
		if s == v && k != CONN_TYPE_NONE {
			return k, nil
		}
	}

	return CONN_TYPE_NONE, util.FmtNewtError("Invalid connection type: %s", s)
}

func (ct ConnType) MarshalText() ([]byte, error) {
	return []byte(ConnTypeToString(ct)), nil
}

func (ct *ConnType) UnmarshalText(data []byte) error {
	var err error
	*ct, err = ConnTypeFromString(string(data))
	if err != nil {
		*ct = CONN_TYPE_NONE
	}
	return nil
}

func jsonHandle() *codec.JsonHandle {
	h := new(codec.JsonHandle)
	h.Indent = 4
	return h
}

func connProfileCfgFilename() (string, error) {
	dir, err := homedir.Dir()
	if err != nil {
		return "", util.NewNewtError(err.Error())
	}

	return filepath.Join(dir, amutil.ToolInfo.CfgFilename), nil
}

func NewConnProfileMgr(filename string) (*ConnProfileMgr, error) {
	cpm := &ConnProfileMgr{
		filename: filename,
		profiles: map[string]*ConnProfile{},
	}

	if err := cpm.Init(); err != nil {
		return nil, err
	}

	return cpm, nil
}

func (cpm *ConnProfileMgr) Init() error {
	log.Debugf("Reading connection profiles from %s", cpm.filename)
	blob, err := ioutil.ReadFile(cpm.filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		} else {
			return util.ChildNewtError(err)
		}
	}

	var profiles []*ConnProfile
	dec := codec.NewDecoderBytes(blob, jsonHandle())
	if err := dec.Decode(&profiles); err != nil {
		return util.FmtNewtError("error reading connection profile "+
			"config (%s): %s", cpm.filename, err.Error())
	}

	for _, p := range profiles {
		cpm.profiles[p.Name] = p
	}

	return nil
}

func (cpm *ConnProfileMgr) GetConnProfileList() ([]*ConnProfile, error) {
	log.Debugf("Getting list of connection profiles")

	cpList := make([]*ConnProfile, 0, len(cpm.profiles))
	for _, p := range cpm.profiles {
		cpList = append(cpList, p)
	}

	sort.Slice(cpList, func(i, j int) bool {
		return cpList[i].Name < cpList[j].Name
	})
	return cpList, nil
}

func (cpm *ConnProfileMgr) save() error {
	list, _ := cpm.GetConnProfileList()

	var b []byte
	enc := codec.NewEncoderBytes(&b, jsonHandle())
	if err := enc.Encode(list); err != nil {
		return util.NewNewtError(err.Error())
	}

	if err := ioutil.WriteFile(cpm.filename, b, 0644); err != nil {
		return util.ChildNewtError(err)
	}

	return nil
}

func (cpm *ConnProfileMgr) DeleteConnProfile(name string) error {
	if cpm.profiles[name] == nil {
		return util.FmtNewtError("connection profile \"%s\" doesn't exist",
			name)
	}

	delete(cpm.profiles, name)

	return cpm.save()
}

func (cpm *ConnProfileMgr) AddConnProfile(cp *ConnProfile) error {
	if err := ValidateConnString(cp.Type, cp.ConnString); err != nil {
		return err
	}

	cpm.profiles[cp.Name] = cp

	return cpm.save()
}

func (cpm *ConnProfileMgr) GetConnProfile(pName string) (*ConnProfile, error) {
	p := cpm.profiles[pName]
	if p == nil {
		return nil, util.FmtNewtError("connection profile \"%s\" doesn't "+
			"exist", pName)
	}

	return p, nil
}

func NewConnProfile() *ConnProfile {
	return &ConnProfile{}
}

// Checks that a connstring parses for the given connection type.
func ValidateConnString(ct ConnType, cs string) error {
	var err error

	switch ct {
	case CONN_TYPE_SIM:
		_, err = ParseSimConnString(cs)
	case CONN_TYPE_SERIAL:
		_, err = ParseSerialConnString(cs)
	default:
		err = util.FmtNewtError("Unknown connection type: %d", int(ct))
	}

	return err
}

var globalConnProfileMgr *ConnProfileMgr

func GlobalConnProfileMgr() *ConnProfileMgr {
	if globalConnProfileMgr == nil {
		panic("connection profile manager not initialized")
	}
	return globalConnProfileMgr
}

func InitGlobalConnProfileMgr() error {
	if globalConnProfileMgr != nil {
		return util.NewNewtError("connection profile manager initialized twice")
	}

	filename, err := connProfileCfgFilename()
	if err != nil {
		return err
	}

	globalConnProfileMgr, err = NewConnProfileMgr(filename)
	if err != nil {
		return err
	}

	return nil
}
