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

package query

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// CSVHeader is the header row written by WriteCSV.
var CSVHeader = []string{"person_id", "name", "title_id", "title", "year", "genres", "rating", "votes"}

// WriteCSV writes the credits of the result, one per line, with the name of
// the person they belong to. Absent values are written as empty cells.
func (r *Result) WriteCSV(w io.Writer) error {
	names := make(map[string]string, len(r.People))
	for _, p := range r.People {
		if p.Name.Valid {
			names[p.PersonID] = p.Name.String
		}
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return errors.Wrap(err, "writing header")
	}
	for _, c := range r.Credits {
		rating := ""
		if c.Rating.Valid {
			rating = strconv.FormatFloat(c.Rating.Float, 'f', -1, 64)
		}
		votes := ""
		if c.Votes.Valid {
			votes = strconv.FormatInt(c.Votes.Int, 10)
		}
		year := ""
		if c.Year.Valid {
			year = strconv.FormatInt(c.Year.Int, 10)
		}
		rec := []string{c.PersonID, names[c.PersonID], c.TitleID, c.Title, year, strings.Join(c.Genres, ","), rating, votes}
		if err := cw.Write(rec); err != nil {
			return errors.Wrapf(err, "writing credit %s/%s", c.PersonID, c.TitleID)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing csv")
}
