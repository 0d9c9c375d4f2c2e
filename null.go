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
	"math"
	"strconv"
	"strings"
)

// Missing is the literal token the source tables use for an absent value.
const Missing = `\N`

// NullString is a string which may be absent.
type NullString struct {
	String string
	Valid  bool
}

// NullInt is an integer which may be absent.
type NullInt struct {
	Int   int64
	Valid bool
}

// NullFloat is a float which may be absent.
type NullFloat struct {
	Float float64
	Valid bool
}

// S returns a valid NullString.
func S(s string) NullString { return NullString{String: s, Valid: true} }

// I returns a valid NullInt.
func I(i int64) NullInt { return NullInt{Int: i, Valid: true} }

// F returns a valid NullFloat.
func F(f float64) NullFloat { return NullFloat{Float: f, Valid: true} }

// Or returns the value if it is valid and def otherwise.
func (n NullInt) Or(def int64) int64 {
	if n.Valid {
		return n.Int
	}
	return def
}

// Or returns the value if it is valid and def otherwise.
func (n NullFloat) Or(def float64) float64 {
	if n.Valid {
		return n.Float
	}
	return def
}

func (n NullInt) String() string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatInt(n.Int, 10)
}

func (n NullFloat) String() string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatFloat(n.Float, 'f', -1, 64)
}

// ParseNullInt interprets a table cell as an integer. Absent cells and cells
// which do not hold an integer both yield an invalid NullInt.
func ParseNullInt(cell NullString) NullInt {
	if !cell.Valid {
		return NullInt{}
	}
	i, err := strconv.ParseInt(strings.TrimSpace(cell.String), 10, 64)
	if err != nil {
		return NullInt{}
	}
	return I(i)
}

// ParseNullFloat interprets a table cell as a float, see ParseNullInt. NaN
// and infinities are absent too.
func ParseNullFloat(cell NullString) NullFloat {
	if !cell.Valid {
		return NullFloat{}
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(cell.String), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return NullFloat{}
	}
	return F(f)
}

// SplitList splits a comma joined cell into its trimmed, non-empty parts.
func SplitList(cell NullString) []string {
	if !cell.Valid || cell.String == "" {
		return nil
	}
	parts := strings.Split(cell.String, ",")
	ret := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		ret = append(ret, p)
	}
	return ret
}
