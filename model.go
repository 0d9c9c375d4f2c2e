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
	"time"

	"github.com/pkg/errors"
)

// TitleTypeFilm is the title type tag the source uses for feature films.
const TitleTypeFilm = "movie"

// SchemaMarker identifies the layout of a persisted Snapshot. Bump it whenever
// a snapshot table is added or the row encoding changes so that artifacts
// written by an older pipeline are rebuilt rather than trusted.
const SchemaMarker = "filmography/credits+stats+people/v3"

// Role is the capacity in which a person is credited on a film.
type Role int

const (
	Director Role = iota
	Actor
)

// Roles lists every Role in a stable order.
var Roles = []Role{Director, Actor}

func (r Role) String() string {
	switch r {
	case Director:
		return "director"
	case Actor:
		return "actor"
	}
	return "unknown"
}

// ParseRole converts "director" or "actor" (case insensitive) into a Role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "director", "directors":
		return Director, nil
	case "actor", "actors":
		return Actor, nil
	}
	return 0, errors.Errorf("unknown role '%s', must be director or actor", s)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool { return r == Director || r == Actor }

// Title is a row of the titles table.
type Title struct {
	ID           string
	Type         string
	PrimaryTitle string
	StartYear    NullInt
	Genres       []string
}

// IsReleasedFilm reports whether the title is a film with a known release
// year no later than currentYear.
func (t Title) IsReleasedFilm(currentYear int) bool {
	return t.Type == TitleTypeFilm && t.StartYear.Valid && t.StartYear.Int <= int64(currentYear)
}

// Crew is a row of the crew table.
type Crew struct {
	TitleID   string
	Directors []string
}

// Principal is a row of the principal cast/crew table.
type Principal struct {
	TitleID  string
	PersonID string
	Category string
}

// IsActing reports whether the principal credit is an acting one.
func (p Principal) IsActing() bool {
	return p.Category == "actor" || p.Category == "actress"
}

// Rating is a row of the ratings table.
type Rating struct {
	TitleID       string
	AverageRating NullFloat
	NumVotes      NullInt
}

// Person is a row of the people table.
type Person struct {
	ID          string
	Name        NullString
	BirthYear   NullInt
	DeathYear   NullInt
	Professions []string
}

// CreditEdge is one (person, film, role) association carrying the film fields
// needed for display.
type CreditEdge struct {
	PersonID string
	TitleID  string
	Role     Role
	Title    string
	Year     NullInt
	Genres   []string
	Rating   NullFloat
	Votes    NullInt
}

// PersonStats holds the aggregates of one person's credits in one role.
type PersonStats struct {
	PersonID   string
	Role       Role
	MovieCount int
	AvgRating  NullFloat
	TotalVotes int64
	Popularity float64
}

// Popularity weights a mean rating by the vote volume, capping the weight at
// 100 (100,000 votes). An absent rating scores 0.
func Popularity(avgRating NullFloat, totalVotes int64) float64 {
	weight := float64(totalVotes) / 1000
	if weight > 100 {
		weight = 100
	}
	if weight < 0 {
		weight = 0
	}
	return avgRating.Or(0) * weight
}

// RoleSnapshot is the aggregated output for a single role.
type RoleSnapshot struct {
	Credits []CreditEdge
	Stats   []PersonStats
	People  []Person
}

// Snapshot is the complete output of one aggregation run.
type Snapshot struct {
	Directors RoleSnapshot
	Actors    RoleSnapshot
	CreatedAt time.Time
	Schema    string
}

// Role returns the part of the snapshot holding the given role.
func (s *Snapshot) Role(r Role) *RoleSnapshot {
	if r == Actor {
		return &s.Actors
	}
	return &s.Directors
}
