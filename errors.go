// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

package filmography

import (
	"fmt"

	"github.com/pkg/errors"
)

// FetchError is returned when a source table could not be retrieved.
type FetchError struct {
	Source string
	URL    string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching source %s from %s: %v", e.Source, e.URL, e.Err)
}

// Cause implements the causer interface of github.com/pkg/errors.
func (e *FetchError) Cause() error { return e.Err }

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError is returned when a source table could not be decoded. Line is 0
// when the failure is not tied to a line (e.g. a broken gzip header).
type ParseError struct {
	Source string
	Line   int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parsing source %s, line %d: %v", e.Source, e.Line, e.Err)
	}
	return fmt.Sprintf("parsing source %s: %v", e.Source, e.Err)
}

// Cause implements the causer interface of github.com/pkg/errors.
func (e *ParseError) Cause() error { return e.Err }

func (e *ParseError) Unwrap() error { return e.Err }

// AsFetchError finds a *FetchError in err's chain of wrapped errors.
func AsFetchError(err error) (*FetchError, bool) {
	for err != nil {
		if fe, ok := err.(*FetchError); ok {
			return fe, true
		}
		c, ok := err.(interface{ Cause() error })
		if !ok {
			return nil, false
		}
		err = c.Cause()
	}
	return nil, false
}

// AsParseError finds a *ParseError in err's chain of wrapped errors.
func AsParseError(err error) (*ParseError, bool) {
	for err != nil {
		if pe, ok := err.(*ParseError); ok {
			return pe, true
		}
		c, ok := err.(interface{ Cause() error })
		if !ok {
			return nil, false
		}
		err = c.Cause()
	}
	return nil, false
}

// ErrNoSnapshot is returned by a store which has no snapshot and no way to
// build one.
var ErrNoSnapshot = errors.New("no snapshot available")
