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
	"strings"

	"github.com/pkg/errors"
)

// Names of the five source tables.
const (
	SourceTitles     = "title.basics"
	SourceCrew       = "title.crew"
	SourceRatings    = "title.ratings"
	SourcePeople     = "name.basics"
	SourcePrincipals = "title.principals"
)

// SourceNames lists the source tables in the order the pipeline reads them.
var SourceNames = []string{SourceTitles, SourceRatings, SourceCrew, SourcePrincipals, SourcePeople}

// key returns the trimmed text of an identifier cell, or "" if it is absent.
func key(cell NullString) string {
	if !cell.Valid {
		return ""
	}
	return strings.TrimSpace(cell.String)
}

// text returns the text of a cell, or "" if it is absent.
func text(cell NullString) string {
	if !cell.Valid {
		return ""
	}
	return cell.String
}

// DecodeTitles reads the titles table. Rows without an identifier are skipped.
func DecodeTitles(t *Table) ([]Title, error) {
	idx, err := t.Columns("tconst", "titleType", "primaryTitle", "startYear", "genres")
	if err != nil {
		return nil, errors.Wrap(err, "decoding titles")
	}
	ret := make([]Title, 0, t.Len())
	for _, row := range t.Rows {
		id := key(row[idx[0]])
		if id == "" {
			continue
		}
		ret = append(ret, Title{
			ID:           id,
			Type:         text(row[idx[1]]),
			PrimaryTitle: text(row[idx[2]]),
			StartYear:    ParseNullInt(row[idx[3]]),
			Genres:       SplitList(row[idx[4]]),
		})
	}
	return ret, nil
}

// DecodeCrew reads the crew table, splitting the director list of each title.
func DecodeCrew(t *Table) ([]Crew, error) {
	idx, err := t.Columns("tconst", "directors")
	if err != nil {
		return nil, errors.Wrap(err, "decoding crew")
	}
	ret := make([]Crew, 0, t.Len())
	for _, row := range t.Rows {
		id := key(row[idx[0]])
		if id == "" {
			continue
		}
		ret = append(ret, Crew{
			TitleID:   id,
			Directors: SplitList(row[idx[1]]),
		})
	}
	return ret, nil
}

// DecodeRatings reads the ratings table.
func DecodeRatings(t *Table) ([]Rating, error) {
	idx, err := t.Columns("tconst", "averageRating", "numVotes")
	if err != nil {
		return nil, errors.Wrap(err, "decoding ratings")
	}
	ret := make([]Rating, 0, t.Len())
	for _, row := range t.Rows {
		id := key(row[idx[0]])
		if id == "" {
			continue
		}
		ret = append(ret, Rating{
			TitleID:       id,
			AverageRating: ParseNullFloat(row[idx[1]]),
			NumVotes:      ParseNullInt(row[idx[2]]),
		})
	}
	return ret, nil
}

// DecodePrincipals reads the principals table.
func DecodePrincipals(t *Table) ([]Principal, error) {
	idx, err := t.Columns("tconst", "nconst", "category")
	if err != nil {
		return nil, errors.Wrap(err, "decoding principals")
	}
	ret := make([]Principal, 0, t.Len())
	for _, row := range t.Rows {
		ret = append(ret, Principal{
			TitleID:  key(row[idx[0]]),
			PersonID: key(row[idx[1]]),
			Category: strings.TrimSpace(text(row[idx[2]])),
		})
	}
	return ret, nil
}

// DecodePeople reads the people table.
func DecodePeople(t *Table) ([]Person, error) {
	idx, err := t.Columns("nconst", "primaryName", "birthYear", "deathYear", "primaryProfession")
	if err != nil {
		return nil, errors.Wrap(err, "decoding people")
	}
	ret := make([]Person, 0, t.Len())
	for _, row := range t.Rows {
		id := key(row[idx[0]])
		if id == "" {
			continue
		}
		ret = append(ret, Person{
			ID:          id,
			Name:        row[idx[1]],
			BirthYear:   ParseNullInt(row[idx[2]]),
			DeathYear:   ParseNullInt(row[idx[3]]),
			Professions: SplitList(row[idx[4]]),
		})
	}
	return ret, nil
}
