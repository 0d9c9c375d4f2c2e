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

// Package source provides the Source Table Provider: it keeps a local copy of
// each remote table in a cache directory, re-fetches copies which have gone
// stale, and decodes them into tables.
package source

import (
	"io"
	"io/ioutil"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/pilosa/filmography"
	"github.com/pilosa/filmography/tsv"
	"github.com/pkg/errors"
)

// DefaultMaxAge is how long a local copy of a source is reused before it is
// fetched again.
const DefaultMaxAge = 7 * 24 * time.Hour

// DefaultSources maps every source name to the location of the public
// dataset.
var DefaultSources = map[string]string{
	filmography.SourceTitles:     "https://datasets.imdbws.com/title.basics.tsv.gz",
	filmography.SourceCrew:       "https://datasets.imdbws.com/title.crew.tsv.gz",
	filmography.SourceRatings:    "https://datasets.imdbws.com/title.ratings.tsv.gz",
	filmography.SourcePeople:     "https://datasets.imdbws.com/name.basics.tsv.gz",
	filmography.SourcePrincipals: "https://datasets.imdbws.com/title.principals.tsv.gz",
}

// Provider fetches source tables, reusing fresh local copies.
type Provider struct {
	dir     string
	maxAge  time.Duration
	sources map[string]string
	opener  Opener
	now     func() time.Time

	log   filmography.Logger
	stats filmography.Statter
}

// Option is a functional option for NewProvider.
type Option func(p *Provider)

// OptSources overrides the locations of some or all sources. Names not in
// urls keep their default location.
func OptSources(urls map[string]string) Option {
	return func(p *Provider) {
		for name, loc := range urls {
			if loc != "" {
				p.sources[name] = loc
			}
		}
	}
}

// OptMaxAge sets the freshness window for local copies.
func OptMaxAge(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.maxAge = d
		}
	}
}

// OptOpener sets the transport used to fetch remote tables.
func OptOpener(o Opener) Option {
	return func(p *Provider) {
		p.opener = o
	}
}

// OptClock replaces time.Now, mostly for tests.
func OptClock(now func() time.Time) Option {
	return func(p *Provider) {
		p.now = now
	}
}

// OptLogger sets the logger.
func OptLogger(l filmography.Logger) Option {
	return func(p *Provider) {
		p.log = l
	}
}

// OptStatter sets the statter.
func OptStatter(s filmography.Statter) Option {
	return func(p *Provider) {
		p.stats = s
	}
}

// NewProvider gets a Provider which caches local copies under dir.
func NewProvider(dir string, opts ...Option) (*Provider, error) {
	if dir == "" {
		return nil, errors.New("a cache directory is required")
	}
	p := &Provider{
		dir:     dir,
		maxAge:  DefaultMaxAge,
		sources: make(map[string]string, len(DefaultSources)),
		opener:  &URLOpener{},
		now:     time.Now,
		log:     filmography.NopLogger{},
		stats:   filmography.NopStatter{},
	}
	for name, loc := range DefaultSources {
		p.sources[name] = loc
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.Wrap(err, "making cache directory")
	}
	return p, nil
}

// Location returns where the named source is fetched from.
func (p *Provider) Location(name string) (string, error) {
	loc, ok := p.sources[name]
	if !ok {
		return "", errors.Errorf("unknown source '%s'", name)
	}
	return loc, nil
}

// Path returns the local file holding the named source.
func (p *Provider) Path(name string) (string, error) {
	loc, err := p.Location(name)
	if err != nil {
		return "", err
	}
	base := loc
	if u, err := url.Parse(loc); err == nil && u.Path != "" {
		base = u.Path
	}
	base = path.Base(filepath.ToSlash(base))
	if !strings.HasSuffix(base, ".gz") {
		base = name + ".tsv.gz"
	}
	return filepath.Join(p.dir, base), nil
}

// Fetch returns the decoded table for the named source, fetching it first if
// there is no local copy or the local copy is stale. Transport failures are
// returned as *filmography.FetchError and decode failures as
// *filmography.ParseError. A copy downloaded by this call which fails to
// decode is removed, so the next Fetch downloads it again.
func (p *Provider) Fetch(name string) (*filmography.Table, error) {
	local, fetched, err := p.ensure(name)
	if err != nil {
		return nil, err
	}
	start := p.now()
	dec := tsv.NewDecoder(name,
		tsv.WithCompression(true),
		tsv.WithStatter(p.stats),
		tsv.WithLogger(p.log),
	)
	table, err := dec.DecodeFile(local)
	if err != nil {
		if fetched {
			p.log.Printf("discarding undecodable download of %s: %v", name, err)
			if rerr := os.Remove(local); rerr != nil && !os.IsNotExist(rerr) {
				p.log.Printf("removing %s: %v", local, rerr)
			}
		}
		return nil, err
	}
	p.stats.Timing(name+".decode", p.now().Sub(start), 1)
	p.log.Printf("loaded %s: %d rows", name, table.Len())
	return table, nil
}

// Ensure makes sure a fresh local copy of the named source exists and returns
// its path.
func (p *Provider) Ensure(name string) (string, error) {
	local, _, err := p.ensure(name)
	return local, err
}

// ensure is Ensure which also reports whether the copy was downloaded.
func (p *Provider) ensure(name string) (local string, fetched bool, err error) {
	local, err = p.Path(name)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(local)
	switch {
	case err == nil:
		age := p.now().Sub(info.ModTime())
		if age <= p.maxAge {
			p.log.Debugf("%s already exists and is up to date (age %v)", local, age)
			return local, false, nil
		}
		p.log.Printf("%s is older than %v, deleting and fetching again", local, p.maxAge)
		if err := os.Remove(local); err != nil {
			return "", false, errors.Wrapf(err, "removing stale copy of %s", name)
		}
	case os.IsNotExist(err):
	default:
		return "", false, errors.Wrapf(err, "statting local copy of %s", name)
	}
	if err := p.download(name, local); err != nil {
		return "", false, err
	}
	return local, true, nil
}

// download fetches the named source into a temporary file next to local and
// renames it into place once it is complete.
func (p *Provider) download(name, local string) error {
	loc := p.sources[name]
	fetchErr := func(err error) error {
		return &filmography.FetchError{Source: name, URL: loc, Err: err}
	}
	p.log.Printf("downloading %s from %s", name, loc)
	start := p.now()
	body, err := p.opener.Open(loc)
	if err != nil {
		return fetchErr(err)
	}
	defer body.Close()

	tmp, err := ioutil.TempFile(p.dir, filepath.Base(local)+".part")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	n, err := io.Copy(tmp, body)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fetchErr(errors.Wrap(err, "reading body"))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "closing temp file")
	}
	if err := os.Rename(tmp.Name(), local); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "moving download into place")
	}
	p.stats.Count(name+".bytes", n, 1)
	p.stats.Timing(name+".download", p.now().Sub(start), 1)
	p.log.Printf("downloaded %s: %d bytes", name, n)
	return nil
}
