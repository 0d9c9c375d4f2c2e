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

package ingest

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pilosa/filmography"
	"github.com/pilosa/filmography/test"
	"github.com/stretchr/testify/require"
)

func testMain(t *testing.T) *Main {
	t.Helper()
	remote := test.TempDir(t)
	m := NewMain()
	m.CacheDir = filepath.Join(test.TempDir(t), "cache")
	m.log = filmography.NopLogger{}
	m.stats = filmography.NopStatter{}
	m.TitlesURL = test.WriteGzip(t, remote, "title.basics.tsv.gz", test.TSV(
		[]string{"tconst", "titleType", "primaryTitle", "originalTitle", "isAdult", "startYear", "endYear", "runtimeMinutes", "genres"},
		[]string{"t1", "movie", "One", "One", "0", "2001", `\N`, "90", "Drama"},
		[]string{"t2", "movie", "Two", "Two", "0", "2005", `\N`, "100", "Comedy,Drama"},
		[]string{"t3", "movie", "Someday", "Someday", "0", "2999", `\N`, `\N`, `\N`},
	))
	m.RatingsURL = test.WriteGzip(t, remote, "title.ratings.tsv.gz", test.TSV(
		[]string{"tconst", "averageRating", "numVotes"},
		[]string{"t1", "8.0", "1000"},
		[]string{"t2", "6.0", "500"},
		[]string{"t3", "9.9", "99999"},
	))
	m.CrewURL = test.WriteGzip(t, remote, "title.crew.tsv.gz", test.TSV(
		[]string{"tconst", "directors", "writers"},
		[]string{"t1", "d1, d2", `\N`},
		[]string{"t2", "d1", `\N`},
		[]string{"t3", "d2", `\N`},
	))
	m.PrincipalsURL = test.WriteGzip(t, remote, "title.principals.tsv.gz", test.TSV(
		[]string{"tconst", "ordering", "nconst", "category", "job", "characters"},
		[]string{"t1", "1", "a1", "actress", `\N`, `\N`},
		[]string{"t2", "1", "a1", "actress", `\N`, `\N`},
		[]string{"t2", "2", "d1", "director", `\N`, `\N`},
	))
	m.PeopleURL = test.WriteGzip(t, remote, "name.basics.tsv.gz", test.TSV(
		[]string{"nconst", "primaryName", "birthYear", "deathYear", "primaryProfession", "knownForTitles"},
		[]string{"d1", "Dee One", "1950", `\N`, "director,writer", "t1"},
		[]string{"d2", "Dee Two", `\N`, `\N`, "director", "t1"},
		[]string{"a1", "Ay One", "1970", `\N`, "actress", "t2"},
	))
	return m
}

func TestQuery(t *testing.T) {
	m := testMain(t)
	buf := &bytes.Buffer{}
	require.NoError(t, m.Query(buf, "director", 2, false))
	out := buf.String()
	require.Contains(t, out, "1 directors with exactly 2 films")
	require.Contains(t, out, "Dee One")
	require.Contains(t, out, "10.50")
	require.NotContains(t, out, "Dee Two")
	require.NotContains(t, out, "Someday")

	_, err := os.Stat(filepath.Join(m.CacheDir, m.SnapshotFile))
	require.NoError(t, err, "snapshot should be saved in the cache dir")

	buf.Reset()
	require.NoError(t, m.Query(buf, "director", 1, true))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Equal(t, []string{
		"person_id,name,title_id,title,year,genres,rating,votes",
		"d2,Dee Two,t1,One,2001,Drama,8,1000",
	}, lines)

	buf.Reset()
	require.NoError(t, m.Query(buf, "actors", 2, true))
	require.Contains(t, buf.String(), "a1,Ay One,t2,Two,2005,\"Comedy,Drama\",6,500")
}

func TestSummary(t *testing.T) {
	m := testMain(t)
	buf := &bytes.Buffer{}
	require.NoError(t, m.Summary(buf, "director"))
	out := buf.String()
	require.Contains(t, out, "directors: 2\n")
	require.Contains(t, out, "mean 1.50, median 1.5, max 2")
	require.Contains(t, out, "exactly 1 film: 1 (50.0%)")
	require.Contains(t, out, "Dee One")
}

func TestBuild(t *testing.T) {
	m := testMain(t)
	buf := &bytes.Buffer{}
	require.NoError(t, m.Build(buf))
	require.Contains(t, buf.String(), "directors: 2 people, 3 credits")
	require.Contains(t, buf.String(), "actors: 1 people, 2 credits")
}

func TestFetchFailureReachesCaller(t *testing.T) {
	m := testMain(t)
	m.CrewURL = filepath.Join(test.TempDir(t), "missing.tsv.gz")
	err := m.Query(&bytes.Buffer{}, "director", 1, false)
	fe, ok := filmography.AsFetchError(err)
	require.True(t, ok, "expected a fetch error, got %v", err)
	require.Equal(t, filmography.SourceCrew, fe.Source)
}

func TestValidation(t *testing.T) {
	m := testMain(t)
	require.Error(t, m.Query(&bytes.Buffer{}, "producer", 1, false))
	m.CacheDir = ""
	require.Error(t, m.Summary(&bytes.Buffer{}, "actor"))
}
