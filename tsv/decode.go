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

// Package tsv decodes the gzip compressed, tab separated tables the pipeline
// consumes.
package tsv

import (
	"bufio"
	"compress/gzip"
	"io"
	"os"
	"strings"

	"github.com/pilosa/filmography"
	"github.com/pkg/errors"
)

// maxLineSize bounds a single line. Some people and title rows carry long
// lists of identifiers.
const maxLineSize = 16 * 1024 * 1024

// Decoder turns a byte stream into a filmography.Table.
type Decoder struct {
	// Source names the table in errors and stats.
	Source string
	// Compressed says whether the stream is gzip compressed. Defaults to true
	// when created with NewDecoder.
	Compressed bool

	Stats filmography.Statter
	Log   filmography.Logger
}

// Option is a functional option to pass to NewDecoder.
type Option func(d *Decoder)

// WithCompression sets whether the input is expected to be gzip compressed.
func WithCompression(gz bool) Option {
	return func(d *Decoder) {
		d.Compressed = gz
	}
}

// WithStatter sets the Statter which receives the row counter.
func WithStatter(s filmography.Statter) Option {
	return func(d *Decoder) {
		d.Stats = s
	}
}

// WithLogger sets the logger.
func WithLogger(l filmography.Logger) Option {
	return func(d *Decoder) {
		d.Log = l
	}
}

// NewDecoder gets a Decoder for the named source.
func NewDecoder(source string, opts ...Option) *Decoder {
	d := &Decoder{
		Source:     source,
		Compressed: true,
		Stats:      filmography.NopStatter{},
		Log:        filmography.NopLogger{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DecodeFile opens the file at path and decodes it.
func (d *Decoder) DecodeFile(path string) (*filmography.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &filmography.ParseError{Source: d.Source, Err: errors.Wrap(err, "opening file")}
	}
	defer f.Close()
	return d.Decode(f)
}

// Decode reads a whole table from r. The first line is the header. Any error
// is returned as a *filmography.ParseError.
func (d *Decoder) Decode(r io.Reader) (*filmography.Table, error) {
	if d.Compressed {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, &filmography.ParseError{Source: d.Source, Err: errors.Wrap(err, "opening gzip stream")}
		}
		defer gz.Close()
		r = gz
	}

	scan := bufio.NewScanner(r)
	scan.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	if !scan.Scan() {
		err := scan.Err()
		if err == nil {
			err = errors.New("missing header line")
		}
		return nil, &filmography.ParseError{Source: d.Source, Line: 1, Err: err}
	}
	header := strings.Split(strings.TrimRight(scan.Text(), "\r"), "\t")
	if err := validateHeader(header); err != nil {
		return nil, &filmography.ParseError{Source: d.Source, Line: 1, Err: errors.Wrap(err, "validating header")}
	}

	table := filmography.NewTable(d.Source, header)
	line := 1
	for scan.Scan() {
		line++
		txt := strings.TrimRight(scan.Text(), "\r")
		if strings.TrimSpace(txt) == "" {
			continue // skip empty lines
		}
		row, err := parseRecord(header, strings.Split(txt, "\t"))
		if err != nil {
			return nil, &filmography.ParseError{Source: d.Source, Line: line, Err: err}
		}
		table.Append(row)
	}
	if err := scan.Err(); err != nil {
		return nil, &filmography.ParseError{Source: d.Source, Line: line, Err: errors.Wrap(err, "scanning")}
	}
	d.Stats.Count(d.Source+".rows", int64(table.Len()), 1)
	d.Log.Debugf("decoded %d rows from %s", table.Len(), d.Source)
	return table, nil
}

func parseRecord(header []string, row []string) ([]filmography.NullString, error) {
	if len(header) > len(row) {
		return nil, errors.Errorf("header/row len mismatch: %dvs%d", len(header), len(row))
	} else if len(row) > len(header) {
		for i := len(header); i < len(row); i++ {
			if strings.TrimSpace(row[i]) != "" {
				return nil, errors.Errorf("data in non headered field %d: '%s'", i, row[i])
			}
		}
	}
	ret := make([]filmography.NullString, len(header))
	for i := range header {
		if row[i] == filmography.Missing {
			continue
		}
		ret[i] = filmography.S(row[i])
	}
	return ret, nil
}

func validateHeader(header []string) error {
	fields := make(map[string]int)
	for i, h := range header {
		if h == "" {
			return errors.Errorf("header contains empty string at %d: %v", i, header)
		}
		if pos, exists := fields[h]; exists {
			return errors.Errorf("%s appeared at both %d and %d in header", h, pos, i)
		}
		fields[h] = i
	}
	return nil
}
