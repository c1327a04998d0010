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

package agxutil

import (
	"fmt"
)

// Represents a failure reported by one of the RFCOMM, SDP, or SCO
// collaborators, or by the underlying transport.
type XportError struct {
	Text string
}

func NewXportError(text string) *XportError {
	return &XportError{text}
}

func FmtXportError(format string, args ...interface{}) *XportError {
	return NewXportError(fmt.Sprintf(format, args...))
}

func (e *XportError) Error() string {
	return e.Text
}

func IsXport(err error) bool {
	if err == nil {
		return false
	}

	_, ok := err.(*XportError)
	return ok
}

// A malformed or disallowed AT command.  Cme holds the extended error code
// sent to the peer when extended error reporting is enabled.
type AtError struct {
	Text string
	Cme  int
}

func NewAtError(cme int, text string) *AtError {
	return &AtError{
		Text: text,
		Cme:  cme,
	}
}

func FmtAtError(cme int, format string, args ...interface{}) *AtError {
	return NewAtError(cme, fmt.Sprintf(format, args...))
}

func (e *AtError) Error() string {
	return e.Text
}

func IsAt(err error) bool {
	_, ok := err.(*AtError)
	return ok
}

func ToAt(err error) *AtError {
	if err == nil {
		return nil
	}

	ae, _ := err.(*AtError)
	return ae
}

// Persistent peer cache could not be read or written.
type CacheError struct {
	Text string
}

func NewCacheError(text string) *CacheError {
	return &CacheError{text}
}

func FmtCacheError(format string, args ...interface{}) *CacheError {
	return NewCacheError(fmt.Sprintf(format, args...))
}

func (e *CacheError) Error() string {
	return e.Text
}

func IsCache(err error) bool {
	_, ok := err.(*CacheError)
	return ok
}
