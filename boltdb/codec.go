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

package boltdb

import (
	"github.com/linkedin/goavro/v2"
	"github.com/pilosa/filmography"
	"github.com/pkg/errors"
)

// Rows are stored as Avro binary. Optional fields are ["null", T] unions.
const (
	creditSchema = `{
	"type": "record", "name": "CreditEdge", "namespace": "filmography",
	"fields": [
		{"name": "person_id", "type": "string"},
		{"name": "title_id", "type": "string"},
		{"name": "title", "type": "string"},
		{"name": "year", "type": ["null", "long"], "default": null},
		{"name": "genres", "type": {"type": "array", "items": "string"}},
		{"name": "rating", "type": ["null", "double"], "default": null},
		{"name": "votes", "type": ["null", "long"], "default": null}
	]}`

	statsSchema = `{
	"type": "record", "name": "PersonStats", "namespace": "filmography",
	"fields": [
		{"name": "person_id", "type": "string"},
		{"name": "movie_count", "type": "long"},
		{"name": "avg_rating", "type": ["null", "double"], "default": null},
		{"name": "total_votes", "type": "long"},
		{"name": "popularity", "type": "double"}
	]}`

	personSchema = `{
	"type": "record", "name": "Person", "namespace": "filmography",
	"fields": [
		{"name": "person_id", "type": "string"},
		{"name": "name", "type": ["null", "string"], "default": null},
		{"name": "birth_year", "type": ["null", "long"], "default": null},
		{"name": "death_year", "type": ["null", "long"], "default": null},
		{"name": "professions", "type": {"type": "array", "items": "string"}}
	]}`
)

var (
	creditCodec = mustCodec(creditSchema)
	statsCodec  = mustCodec(statsSchema)
	personCodec = mustCodec(personSchema)
)

func mustCodec(schema string) *goavro.Codec {
	codec, err := goavro.NewCodec(schema)
	if err != nil {
		panic(errors.Wrap(err, "compiling avro schema"))
	}
	return codec
}

func nullInt(n filmography.NullInt) interface{} {
	if !n.Valid {
		return nil
	}
	return goavro.Union("long", n.Int)
}

func nullFloat(n filmography.NullFloat) interface{} {
	if !n.Valid {
		return nil
	}
	return goavro.Union("double", n.Float)
}

func nullString(n filmography.NullString) interface{} {
	if !n.Valid {
		return nil
	}
	return goavro.Union("string", n.String)
}

func stringList(ss []string) []interface{} {
	ret := make([]interface{}, len(ss))
	for i, s := range ss {
		ret[i] = s
	}
	return ret
}

// record is a decoded avro record with typed accessors. The first failed
// access is kept in err.
type record struct {
	m   map[string]interface{}
	err error
}

func newRecord(native interface{}) (*record, error) {
	m, ok := native.(map[string]interface{})
	if !ok {
		return nil, errors.Errorf("expected record, got %T", native)
	}
	return &record{m: m}, nil
}

func (r *record) fail(field string, v interface{}) {
	if r.err == nil {
		r.err = errors.Errorf("field %s: unexpected value %v (%T)", field, v, v)
	}
}

func (r *record) str(field string) string {
	s, ok := r.m[field].(string)
	if !ok {
		r.fail(field, r.m[field])
	}
	return s
}

func (r *record) long(field string) int64 {
	i, ok := r.m[field].(int64)
	if !ok {
		r.fail(field, r.m[field])
	}
	return i
}

func (r *record) double(field string) float64 {
	f, ok := r.m[field].(float64)
	if !ok {
		r.fail(field, r.m[field])
	}
	return f
}

// union returns the branch value of an optional field, or nil when it is
// null.
func (r *record) union(field, branch string) interface{} {
	v, ok := r.m[field]
	if !ok {
		r.fail(field, nil)
		return nil
	}
	if v == nil {
		return nil
	}
	u, ok := v.(map[string]interface{})
	if !ok {
		r.fail(field, v)
		return nil
	}
	return u[branch]
}

func (r *record) nullInt(field string) filmography.NullInt {
	v := r.union(field, "long")
	if v == nil {
		return filmography.NullInt{}
	}
	i, ok := v.(int64)
	if !ok {
		r.fail(field, v)
	}
	return filmography.I(i)
}

func (r *record) nullFloat(field string) filmography.NullFloat {
	v := r.union(field, "double")
	if v == nil {
		return filmography.NullFloat{}
	}
	f, ok := v.(float64)
	if !ok {
		r.fail(field, v)
	}
	return filmography.F(f)
}

func (r *record) nullString(field string) filmography.NullString {
	v := r.union(field, "string")
	if v == nil {
		return filmography.NullString{}
	}
	s, ok := v.(string)
	if !ok {
		r.fail(field, v)
	}
	return filmography.S(s)
}

func (r *record) strings(field string) []string {
	vs, ok := r.m[field].([]interface{})
	if !ok {
		r.fail(field, r.m[field])
		return nil
	}
	if len(vs) == 0 {
		return nil
	}
	ret := make([]string, len(vs))
	for i, v := range vs {
		s, ok := v.(string)
		if !ok {
			r.fail(field, v)
		}
		ret[i] = s
	}
	return ret
}

func encodeCredit(buf []byte, e filmography.CreditEdge) ([]byte, error) {
	return creditCodec.BinaryFromNative(buf, map[string]interface{}{
		"person_id": e.PersonID,
		"title_id":  e.TitleID,
		"title":     e.Title,
		"year":      nullInt(e.Year),
		"genres":    stringList(e.Genres),
		"rating":    nullFloat(e.Rating),
		"votes":     nullInt(e.Votes),
	})
}

func decodeCredit(data []byte, role filmography.Role) (filmography.CreditEdge, error) {
	native, _, err := creditCodec.NativeFromBinary(data)
	if err != nil {
		return filmography.CreditEdge{}, errors.Wrap(err, "decoding credit")
	}
	r, err := newRecord(native)
	if err != nil {
		return filmography.CreditEdge{}, err
	}
	e := filmography.CreditEdge{
		PersonID: r.str("person_id"),
		TitleID:  r.str("title_id"),
		Role:     role,
		Title:    r.str("title"),
		Year:     r.nullInt("year"),
		Genres:   r.strings("genres"),
		Rating:   r.nullFloat("rating"),
		Votes:    r.nullInt("votes"),
	}
	return e, errors.Wrap(r.err, "decoding credit")
}

func encodeStats(buf []byte, s filmography.PersonStats) ([]byte, error) {
	return statsCodec.BinaryFromNative(buf, map[string]interface{}{
		"person_id":   s.PersonID,
		"movie_count": int64(s.MovieCount),
		"avg_rating":  nullFloat(s.AvgRating),
		"total_votes": s.TotalVotes,
		"popularity":  s.Popularity,
	})
}

func decodeStats(data []byte, role filmography.Role) (filmography.PersonStats, error) {
	native, _, err := statsCodec.NativeFromBinary(data)
	if err != nil {
		return filmography.PersonStats{}, errors.Wrap(err, "decoding stats")
	}
	r, err := newRecord(native)
	if err != nil {
		return filmography.PersonStats{}, err
	}
	s := filmography.PersonStats{
		PersonID:   r.str("person_id"),
		Role:       role,
		MovieCount: int(r.long("movie_count")),
		AvgRating:  r.nullFloat("avg_rating"),
		TotalVotes: r.long("total_votes"),
		Popularity: r.double("popularity"),
	}
	return s, errors.Wrap(r.err, "decoding stats")
}

func encodePerson(buf []byte, p filmography.Person) ([]byte, error) {
	return personCodec.BinaryFromNative(buf, map[string]interface{}{
		"person_id":   p.ID,
		"name":        nullString(p.Name),
		"birth_year":  nullInt(p.BirthYear),
		"death_year":  nullInt(p.DeathYear),
		"professions": stringList(p.Professions),
	})
}

func decodePerson(data []byte) (filmography.Person, error) {
	native, _, err := personCodec.NativeFromBinary(data)
	if err != nil {
		return filmography.Person{}, errors.Wrap(err, "decoding person")
	}
	r, err := newRecord(native)
	if err != nil {
		return filmography.Person{}, err
	}
	p := filmography.Person{
		ID:          r.str("person_id"),
		Name:        r.nullString("name"),
		BirthYear:   r.nullInt("birth_year"),
		DeathYear:   r.nullInt("death_year"),
		Professions: r.strings("professions"),
	}
	return p, errors.Wrap(r.err, "decoding person")
}
