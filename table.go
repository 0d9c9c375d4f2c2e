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
	"github.com/pkg/errors"
)

// Table is a decoded source table. Every column of the source is kept and
// every cell is either text or absent.
type Table struct {
	Source string
	Header []string
	Rows   [][]NullString

	cols map[string]int
}

// NewTable returns an empty table with the given header.
func NewTable(source string, header []string) *Table {
	t := &Table{
		Source: source,
		Header: header,
		cols:   make(map[string]int, len(header)),
	}
	for i, h := range header {
		t.cols[h] = i
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Column returns the index of the named column.
func (t *Table) Column(name string) (int, error) {
	if t.cols == nil {
		t.cols = make(map[string]int, len(t.Header))
		for i, h := range t.Header {
			t.cols[h] = i
		}
	}
	i, ok := t.cols[name]
	if !ok {
		return 0, errors.Errorf("table %s has no column '%s', have %v", t.Source, name, t.Header)
	}
	return i, nil
}

// Columns looks up several columns at once.
func (t *Table) Columns(names ...string) ([]int, error) {
	idx := make([]int, len(names))
	for n, name := range names {
		i, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		idx[n] = i
	}
	return idx, nil
}

// Append adds a row. It does not copy the slice.
func (t *Table) Append(row []NullString) {
	t.Rows = append(t.Rows, row)
}
