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

package aggregate_test

import (
	"strings"
	"testing"
	"time"

	"github.com/pilosa/filmography"
	"github.com/pilosa/filmography/aggregate"
	"github.com/pilosa/filmography/mock"
	"github.com/pilosa/filmography/test"
	"github.com/pilosa/filmography/tsv"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

var clock = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

// memSource serves tables from TSV text.
type memSource map[string]string

func (m memSource) Fetch(name string) (*filmography.Table, error) {
	data, ok := m[name]
	if !ok {
		return nil, &filmography.FetchError{Source: name, URL: "mem://" + name, Err: errors.New("not found")}
	}
	return tsv.NewDecoder(name, tsv.WithCompression(false)).Decode(strings.NewReader(data))
}

func fixture() memSource {
	return memSource{
		filmography.SourceTitles: test.TSV(
			[]string{"tconst", "titleType", "primaryTitle", "originalTitle", "isAdult", "startYear", "endYear", "runtimeMinutes", "genres"},
			[]string{"t1", "movie", "One", "One", "0", "2001", `\N`, "90", "Drama"},
			[]string{"t2", "movie", "Two", "Two", "0", "2005", `\N`, "100", "Comedy,Drama"},
			[]string{"t3", "movie", "Future", "Future", "0", "2031", `\N`, `\N`, `\N`},
			[]string{"t4", "movie", "Undated", "Undated", "0", `\N`, `\N`, `\N`, `\N`},
			[]string{"t5", "tvEpisode", "Episode", "Episode", "0", "2010", `\N`, "30", "Drama"},
			[]string{"t6", "movie", "Unrated", "Unrated", "0", "1999", `\N`, "80", "Horror"},
		),
		filmography.SourceRatings: test.TSV(
			[]string{"tconst", "averageRating", "numVotes"},
			[]string{"t1", "8.0", "1000"},
			[]string{"t2", "6.0", "500"},
			[]string{"t3", "9.9", "100000"},
			[]string{"t5", "7.0", "10"},
		),
		filmography.SourceCrew: test.TSV(
			[]string{"tconst", "directors", "writers"},
			[]string{"t1", "d1, d2", `\N`},
			[]string{"t2", " d1", "w1"},
			[]string{"t3", "d1", `\N`},
			[]string{"t4", "d2", `\N`},
			[]string{"t5", "d3", `\N`},
			[]string{"t6", `\N`, `\N`},
		),
		filmography.SourcePrincipals: test.TSV(
			[]string{"tconst", "ordering", "nconst", "category", "job", "characters"},
			[]string{"t1", "1", "a1", "actor", `\N`, `["A"]`},
			[]string{"t1", "2", "a2", "actress", `\N`, `["B"]`},
			[]string{"t1", "3", "d1", "director", `\N`, `\N`},
			[]string{"t1", "4", "a1", "actor", `\N`, `["A again"]`},
			[]string{"t2", "1", " a1 ", "actor", `\N`, `\N`},
			[]string{"t3", "1", "a2", "actress", `\N`, `\N`},
			[]string{"t5", "1", "a3", "actor", `\N`, `\N`},
			[]string{"t6", "1", "a3", "actor", `\N`, `\N`},
		),
		filmography.SourcePeople: test.TSV(
			[]string{"nconst", "primaryName", "birthYear", "deathYear", "primaryProfession", "knownForTitles"},
			[]string{"d1", "Dee One", "1950", `\N`, "director,writer", "t1,t2"},
			[]string{"d2", "Dee Two", `\N`, `\N`, "director", "t1"},
			[]string{"a1", "Ay One", "1970", "2020", "actor", "t1"},
			[]string{"a2", "Ay Two", "1980", `\N`, "actress", "t1"},
			[]string{"x9", "Nobody", `\N`, `\N`, `\N`, `\N`},
		),
	}
}

func statsByID(stats []filmography.PersonStats) map[string]filmography.PersonStats {
	ret := make(map[string]filmography.PersonStats, len(stats))
	for _, s := range stats {
		ret[s.PersonID] = s
	}
	return ret
}

type recordingIndex struct {
	resets int
	people []filmography.Person
}

func (r *recordingIndex) Reset() error { r.resets++; r.people = nil; return nil }
func (r *recordingIndex) PutNames(people []filmography.Person) error {
	r.people = append(r.people, people...)
	return nil
}

func TestBuildDirectors(t *testing.T) {
	idx := &recordingIndex{}
	snap, err := aggregate.NewAggregator(fixture(), aggregate.OptClock(clock), aggregate.OptNameIndexer(idx)).Build()
	require.NoError(t, err)
	require.Equal(t, filmography.SchemaMarker, snap.Schema)
	require.Equal(t, clock(), snap.CreatedAt)

	stats := statsByID(snap.Directors.Stats)
	require.Len(t, stats, 2, "t3 (future), t4 (undated) and t5 (episode) must not contribute")

	d1 := stats["d1"]
	require.Equal(t, 2, d1.MovieCount)
	require.InDelta(t, 7.0, d1.AvgRating.Float, 1e-9)
	require.True(t, d1.AvgRating.Valid)
	require.Equal(t, int64(1500), d1.TotalVotes)
	require.InDelta(t, 10.5, d1.Popularity, 1e-9)

	d2 := stats["d2"]
	require.Equal(t, 1, d2.MovieCount)
	require.InDelta(t, 8.0, d2.AvgRating.Float, 1e-9)
	require.Equal(t, int64(1000), d2.TotalVotes)
	require.InDelta(t, 8.0, d2.Popularity, 1e-9)

	// t1 has two directors and therefore exactly two director edges
	var t1 []string
	for _, e := range snap.Directors.Credits {
		if e.TitleID == "t1" {
			t1 = append(t1, e.PersonID)
		}
		require.Equal(t, filmography.Director, e.Role)
	}
	require.Equal(t, []string{"d1", "d2"}, t1)

	require.Len(t, snap.Directors.People, 2)
	require.Equal(t, 1, idx.resets)
	require.Len(t, idx.people, 5, "the name index gets the full people table")
}

func TestBuildActors(t *testing.T) {
	snap, err := aggregate.NewAggregator(fixture(), aggregate.OptClock(clock)).Build()
	require.NoError(t, err)

	stats := statsByID(snap.Actors.Stats)
	require.Len(t, stats, 3)

	a1 := stats["a1"]
	require.Equal(t, 2, a1.MovieCount, "duplicate principal rows for one film count once, ids are trimmed")
	require.InDelta(t, 7.0, a1.AvgRating.Float, 1e-9)

	a2 := stats["a2"]
	require.Equal(t, 1, a2.MovieCount, "future film t3 is excluded")

	a3 := stats["a3"]
	require.Equal(t, 1, a3.MovieCount, "episode t5 is excluded")
	require.False(t, a3.AvgRating.Valid)
	require.Equal(t, int64(0), a3.TotalVotes)
	require.Equal(t, 0.0, a3.Popularity)

	for _, p := range snap.Actors.People {
		require.Contains(t, stats, p.ID)
	}
	require.Len(t, snap.Actors.People, 2, "a3 has stats but no people record")
}

func TestMovieCountMatchesEdges(t *testing.T) {
	rec := &mock.RecordingStatter{}
	snap, err := aggregate.NewAggregator(fixture(), aggregate.OptClock(clock), aggregate.OptStatter(rec)).Build()
	require.NoError(t, err)
	require.Equal(t, int64(len(snap.Directors.Credits)), rec.Get("director.edges"))
	require.Equal(t, int64(len(snap.Actors.Credits)), rec.Get("actor.edges"))
	for _, role := range filmography.Roles {
		rs := snap.Role(role)
		counts := make(map[string]int)
		for _, e := range rs.Credits {
			counts[e.PersonID]++
		}
		require.Len(t, rs.Stats, len(counts))
		for _, s := range rs.Stats {
			require.Equal(t, counts[s.PersonID], s.MovieCount, "%s %s", role, s.PersonID)
			require.True(t, s.Popularity >= 0 && s.Popularity <= 1000)
		}
	}
}

func TestBuildPropagatesFetchErrors(t *testing.T) {
	src := fixture()
	delete(src, filmography.SourceCrew)
	_, err := aggregate.NewAggregator(src, aggregate.OptClock(clock)).Build()
	fe, ok := filmography.AsFetchError(err)
	require.True(t, ok, "expected a fetch error, got %v", err)
	require.Equal(t, filmography.SourceCrew, fe.Source)

	src = fixture()
	src[filmography.SourcePeople] = "nconst\tprimaryName\nbroken\n"
	_, err = aggregate.NewAggregator(src, aggregate.OptClock(clock)).Build()
	_, ok = filmography.AsParseError(err)
	require.True(t, ok, "expected a parse error, got %v", err)

	src = fixture()
	src[filmography.SourceRatings] = "id\tscore\n"
	_, err = aggregate.NewAggregator(src, aggregate.OptClock(clock)).Build()
	require.Error(t, err, "missing columns must fail the build")
}
