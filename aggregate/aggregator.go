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

// Package aggregate joins the source tables into per-role credit edges and
// per-person statistics.
package aggregate

import (
	"time"

	"github.com/pilosa/filmography"
	"github.com/pkg/errors"
)

// TableSource provides decoded source tables by name. *source.Provider
// implements it.
type TableSource interface {
	Fetch(name string) (*filmography.Table, error)
}

// NameIndexer receives the full people table so that names can later be
// resolved for people outside a snapshot's PersonInfo.
type NameIndexer interface {
	Reset() error
	PutNames(people []filmography.Person) error
}

// Aggregator builds Snapshots from a TableSource.
type Aggregator struct {
	src   TableSource
	names NameIndexer
	now   func() time.Time

	log   filmography.Logger
	stats filmography.Statter
}

// Option is a functional option for NewAggregator.
type Option func(a *Aggregator)

// OptNameIndexer sets an index which is refreshed with every person's name on
// each build.
func OptNameIndexer(n NameIndexer) Option {
	return func(a *Aggregator) {
		a.names = n
	}
}

// OptClock replaces time.Now. The clock determines both the snapshot's
// creation time and the current year used to drop unreleased films.
func OptClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// OptLogger sets the logger.
func OptLogger(l filmography.Logger) Option {
	return func(a *Aggregator) {
		a.log = l
	}
}

// OptStatter sets the statter.
func OptStatter(s filmography.Statter) Option {
	return func(a *Aggregator) {
		a.stats = s
	}
}

// NewAggregator gets an Aggregator reading from src.
func NewAggregator(src TableSource, opts ...Option) *Aggregator {
	a := &Aggregator{
		src:   src,
		now:   time.Now,
		log:   filmography.NopLogger{},
		stats: filmography.NopStatter{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Build runs the whole aggregation. Any fetch or parse failure aborts it.
func (a *Aggregator) Build() (*filmography.Snapshot, error) {
	start := a.now()
	titleTable, err := a.src.Fetch(filmography.SourceTitles)
	if err != nil {
		return nil, errors.Wrap(err, "fetching titles")
	}
	titles, err := filmography.DecodeTitles(titleTable)
	if err != nil {
		return nil, err
	}
	films := Films(titles, start.Year())
	a.stats.Count("films", int64(len(films)), 1)
	a.log.Printf("kept %d released films of %d titles", len(films), len(titles))

	ratingTable, err := a.src.Fetch(filmography.SourceRatings)
	if err != nil {
		return nil, errors.Wrap(err, "fetching ratings")
	}
	ratings, err := filmography.DecodeRatings(ratingTable)
	if err != nil {
		return nil, err
	}
	rated := JoinRatings(films, ratings)

	crewTable, err := a.src.Fetch(filmography.SourceCrew)
	if err != nil {
		return nil, errors.Wrap(err, "fetching crew")
	}
	crew, err := filmography.DecodeCrew(crewTable)
	if err != nil {
		return nil, err
	}
	directorEdges := DirectorEdges(rated, crew)

	principalTable, err := a.src.Fetch(filmography.SourcePrincipals)
	if err != nil {
		return nil, errors.Wrap(err, "fetching principals")
	}
	principals, err := filmography.DecodePrincipals(principalTable)
	if err != nil {
		return nil, err
	}
	actorEdges := ActorEdges(rated, principals)

	directorStats := Aggregate(filmography.Director, directorEdges)
	actorStats := Aggregate(filmography.Actor, actorEdges)
	a.stats.Count("director.edges", int64(len(directorEdges)), 1)
	a.stats.Count("actor.edges", int64(len(actorEdges)), 1)
	a.log.Printf("aggregated %d director credits for %d directors, %d acting credits for %d actors",
		len(directorEdges), len(directorStats), len(actorEdges), len(actorStats))

	peopleTable, err := a.src.Fetch(filmography.SourcePeople)
	if err != nil {
		return nil, errors.Wrap(err, "fetching people")
	}
	people, err := filmography.DecodePeople(peopleTable)
	if err != nil {
		return nil, err
	}
	if a.names != nil {
		if err := a.names.Reset(); err != nil {
			return nil, errors.Wrap(err, "resetting name index")
		}
		if err := a.names.PutNames(people); err != nil {
			return nil, errors.Wrap(err, "indexing names")
		}
	}

	snap := &filmography.Snapshot{
		Directors: filmography.RoleSnapshot{
			Credits: directorEdges,
			Stats:   directorStats,
			People:  RestrictPeople(people, directorStats),
		},
		Actors: filmography.RoleSnapshot{
			Credits: actorEdges,
			Stats:   actorStats,
			People:  RestrictPeople(people, actorStats),
		},
		CreatedAt: a.now(),
		Schema:    filmography.SchemaMarker,
	}
	a.stats.Timing("build", a.now().Sub(start), 1)
	a.log.Printf("built snapshot in %v", a.now().Sub(start))
	return snap, nil
}
