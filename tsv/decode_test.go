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

package tsv_test

import (
	"bytes"
	"compress/gzip"
	"strings"
	"testing"

	"github.com/pilosa/filmography"
	"github.com/pilosa/filmography/tsv"
)

func gzipped(t *testing.T, content string) *bytes.Buffer {
	buf := &bytes.Buffer{}
	gz := gzip.NewWriter(buf)
	if _, err := gz.Write([]byte(content)); err != nil {
		t.Fatalf("writing gzip: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("closing gzip: %v", err)
	}
	return buf
}

func TestDecode(t *testing.T) {
	data := "tconst\ttitleType\tprimaryTitle\tstartYear\tgenres\n" +
		"t1\tmovie\tFirst\t2001\tDrama,Comedy\n" +
		"\n" +
		"t2\tshort\tSecond\t\\N\t\\N\r\n"

	table, err := tsv.NewDecoder("title.basics").Decode(gzipped(t, data))
	if err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", table.Len())
	}
	if len(table.Header) != 5 {
		t.Fatalf("unexpected header: %v", table.Header)
	}
	year, err := table.Column("startYear")
	if err != nil {
		t.Fatalf("getting column: %v", err)
	}
	if table.Rows[0][year] != filmography.S("2001") {
		t.Fatalf("unexpected year in first row: %v", table.Rows[0][year])
	}
	if table.Rows[1][year].Valid {
		t.Fatalf(`\N should be absent, got %v`, table.Rows[1][year])
	}
	if g := table.Rows[1][4]; g.Valid {
		t.Fatalf("trailing carriage return should be stripped before matching the sentinel: %#v", g)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		line int
		gz   bool
	}{
		{name: "not gzip", data: "a\tb\n1\t2\n", gz: false},
		{name: "empty header field", data: "a\t\tc\n", line: 1, gz: true},
		{name: "duplicate header", data: "a\tb\ta\n", line: 1, gz: true},
		{name: "short row", data: "a\tb\tc\n1\t2\n", line: 2, gz: true},
		{name: "extra data", data: "a\tb\n1\t2\t3\n", line: 2, gz: true},
		{name: "empty", data: "", line: 1, gz: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var in *bytes.Buffer
			if test.gz {
				in = gzipped(t, test.data)
			} else {
				in = bytes.NewBufferString(test.data)
			}
			_, err := tsv.NewDecoder("src").Decode(in)
			if err == nil {
				t.Fatalf("expected error")
			}
			pe, ok := filmography.AsParseError(err)
			if !ok {
				t.Fatalf("expected ParseError, got %T: %v", err, err)
			}
			if pe.Source != "src" || pe.Line != test.line {
				t.Fatalf("unexpected error position: %#v", pe)
			}
		})
	}
}

func TestDecodeUncompressedTrailingTab(t *testing.T) {
	table, err := tsv.NewDecoder("plain", tsv.WithCompression(false)).Decode(strings.NewReader("a\tb\n1\t2\t\n"))
	if err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if table.Len() != 1 || table.Rows[0][1] != filmography.S("2") {
		t.Fatalf("unexpected table: %#v", table.Rows)
	}
}
