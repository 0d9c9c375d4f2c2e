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

package source_test

import (
	"bytes"
	"compress/gzip"
	"io"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/pilosa/filmography"
	"github.com/pilosa/filmography/mock"
	"github.com/pilosa/filmography/source"
	"github.com/pilosa/filmography/test"
	"github.com/stretchr/testify/require"
)

const ratings = "tconst\taverageRating\tnumVotes\nt1\t8.0\t1000\nt2\t\\N\t\\N\n"

func gzipBytes(t *testing.T, content string) []byte {
	buf := &bytes.Buffer{}
	gz := gzip.NewWriter(buf)
	if _, err := gz.Write([]byte(content)); err != nil {
		t.Fatalf("writing gzip: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("closing gzip: %v", err)
	}
	return buf.Bytes()
}

// countingServer serves body and counts the requests it receives.
func countingServer(t *testing.T, status int, body []byte) (*httptest.Server, *int64) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestFetchReusesFreshCopy(t *testing.T) {
	body := gzipBytes(t, ratings)
	srv, hits := countingServer(t, http.StatusOK, body)
	dir := test.TempDir(t)
	rec := &mock.RecordingStatter{}

	p, err := source.NewProvider(dir, source.OptSources(map[string]string{
		filmography.SourceRatings: srv.URL + "/title.ratings.tsv.gz",
	}), source.OptStatter(rec))
	require.NoError(t, err)

	table, err := p.Fetch(filmography.SourceRatings)
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())
	require.Equal(t, int64(1), atomic.LoadInt64(hits))

	local, err := p.Path(filmography.SourceRatings)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "title.ratings.tsv.gz"), local)

	_, err = p.Fetch(filmography.SourceRatings)
	require.NoError(t, err)
	require.Equal(t, int64(1), atomic.LoadInt64(hits), "fresh copy should be reused")
	require.Equal(t, int64(len(body)), rec.Get(filmography.SourceRatings+".bytes"))
	require.Equal(t, int64(4), rec.Get(filmography.SourceRatings+".rows"))

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.part*"))
	require.NoError(t, err)
	require.Empty(t, leftovers)
}

func TestFetchRefreshesStaleCopy(t *testing.T) {
	srv, hits := countingServer(t, http.StatusOK, gzipBytes(t, ratings))
	dir := test.TempDir(t)
	p, err := source.NewProvider(dir, source.OptSources(map[string]string{
		filmography.SourceRatings: srv.URL + "/title.ratings.tsv.gz",
	}))
	require.NoError(t, err)

	local, err := p.Path(filmography.SourceRatings)
	require.NoError(t, err)
	require.NoError(t, ioutil.WriteFile(local, []byte("stale garbage"), 0600))
	old := time.Now().Add(-8 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(local, old, old))

	table, err := p.Fetch(filmography.SourceRatings)
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())
	require.Equal(t, int64(1), atomic.LoadInt64(hits))

	// within the window a local copy is trusted as is, even a broken one
	require.NoError(t, ioutil.WriteFile(local, []byte("not gzip"), 0600))
	_, err = p.Fetch(filmography.SourceRatings)
	pe, ok := filmography.AsParseError(err)
	require.True(t, ok, "expected parse error, got %v", err)
	require.Equal(t, filmography.SourceRatings, pe.Source)
	require.Equal(t, int64(1), atomic.LoadInt64(hits))
}

func TestFetchErrors(t *testing.T) {
	srv, _ := countingServer(t, http.StatusInternalServerError, []byte("boom"))
	dir := test.TempDir(t)
	p, err := source.NewProvider(dir, source.OptSources(map[string]string{
		filmography.SourceCrew: srv.URL + "/title.crew.tsv.gz",
	}))
	require.NoError(t, err)

	_, err = p.Fetch(filmography.SourceCrew)
	fe, ok := filmography.AsFetchError(err)
	require.True(t, ok, "expected fetch error, got %v", err)
	require.Equal(t, filmography.SourceCrew, fe.Source)

	local, err := p.Path(filmography.SourceCrew)
	require.NoError(t, err)
	_, err = os.Stat(local)
	require.True(t, os.IsNotExist(err), "failed fetch must not leave a local copy")

	_, err = p.Fetch("no.such.source")
	require.Error(t, err)
}

func TestFetchUndecodable(t *testing.T) {
	srv, _ := countingServer(t, http.StatusOK, []byte("this is not gzip"))
	p, err := source.NewProvider(test.TempDir(t), source.OptSources(map[string]string{
		filmography.SourcePeople: srv.URL + "/name.basics.tsv.gz",
	}))
	require.NoError(t, err)
	_, err = p.Fetch(filmography.SourcePeople)
	_, ok := filmography.AsParseError(err)
	require.True(t, ok, "expected parse error, got %v", err)
}

type fakeS3 struct {
	s3iface.S3API
	body   []byte
	bucket string
	key    string
}

func (f *fakeS3) GetObject(in *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
	f.bucket, f.key = aws.StringValue(in.Bucket), aws.StringValue(in.Key)
	return &s3.GetObjectOutput{Body: ioutil.NopCloser(bytes.NewReader(f.body))}, nil
}

func TestFetchFromS3(t *testing.T) {
	fake := &fakeS3{body: gzipBytes(t, ratings)}
	p, err := source.NewProvider(test.TempDir(t),
		source.OptOpener(&source.URLOpener{S3: fake}),
		source.OptSources(map[string]string{
			filmography.SourceRatings: "s3://datasets/imdb/title.ratings.tsv.gz",
		}))
	require.NoError(t, err)

	table, err := p.Fetch(filmography.SourceRatings)
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())
	require.Equal(t, "datasets", fake.bucket)
	require.Equal(t, "imdb/title.ratings.tsv.gz", fake.key)
}

func TestNewProviderRequiresDir(t *testing.T) {
	if _, err := source.NewProvider(""); err == nil {
		t.Fatal("expected error for empty cache dir")
	}
}

func TestFetchLocationWithoutGzipSuffix(t *testing.T) {
	remote := test.TempDir(t)
	loc := filepath.Join(remote, "ratings")
	require.NoError(t, ioutil.WriteFile(loc, gzipBytes(t, ratings), 0600))

	dir := test.TempDir(t)
	p, err := source.NewProvider(dir, source.OptSources(map[string]string{
		filmography.SourceRatings: loc,
	}))
	require.NoError(t, err)

	local, err := p.Path(filmography.SourceRatings)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "title.ratings.tsv.gz"), local)

	table, err := p.Fetch(filmography.SourceRatings)
	require.NoError(t, err)
	require.Equal(t, []string{"tconst", "averageRating", "numVotes"}, table.Header)
	require.Equal(t, 2, table.Len())
}

// sequenceOpener returns its bodies in turn, repeating the last one.
type sequenceOpener struct {
	bodies [][]byte
	calls  int
}

func (s *sequenceOpener) Open(location string) (io.ReadCloser, error) {
	i := s.calls
	if i >= len(s.bodies) {
		i = len(s.bodies) - 1
	}
	s.calls++
	return ioutil.NopCloser(bytes.NewReader(s.bodies[i])), nil
}

func TestFetchRetriesAfterUndecodableDownload(t *testing.T) {
	opener := &sequenceOpener{bodies: [][]byte{
		[]byte("<html>service unavailable</html>"),
		gzipBytes(t, ratings),
	}}
	p, err := source.NewProvider(test.TempDir(t),
		source.OptOpener(opener),
		source.OptSources(map[string]string{
			filmography.SourceRatings: "https://example.com/title.ratings.tsv.gz",
		}))
	require.NoError(t, err)

	_, err = p.Fetch(filmography.SourceRatings)
	pe, ok := filmography.AsParseError(err)
	require.True(t, ok, "expected parse error, got %v", err)
	require.Equal(t, filmography.SourceRatings, pe.Source)

	local, err := p.Path(filmography.SourceRatings)
	require.NoError(t, err)
	_, err = os.Stat(local)
	require.True(t, os.IsNotExist(err), "undecodable download must not be kept")

	table, err := p.Fetch(filmography.SourceRatings)
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())
	require.Equal(t, 2, opener.calls)
}
