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

// Package ingest wires the source provider, aggregator, snapshot store, name
// index and query engine together from a single flat configuration.
package ingest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pilosa/filmography"
	"github.com/pilosa/filmography/aggregate"
	"github.com/pilosa/filmography/boltdb"
	"github.com/pilosa/filmography/leveldb"
	"github.com/pilosa/filmography/query"
	"github.com/pilosa/filmography/source"
	"github.com/pilosa/filmography/termstat"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Main contains the configuration shared by every command.
type Main struct {
	CacheDir      string        `help:"Directory for downloaded source tables, the snapshot and the name index."`
	MaxAge        time.Duration `help:"Age after which source tables are refetched and the snapshot is rebuilt."`
	SnapshotFile  string        `help:"Snapshot file. Relative paths are inside cache-dir."`
	CacheTTL      time.Duration `help:"How long query results are memoized within a process."`
	CacheSize     int           `help:"Maximum number of memoized query results."`
	TitlesURL     string        `help:"Location of the title.basics table (http(s), s3://bucket/key, or a file path). Empty means the public dataset."`
	CrewURL       string        `help:"Location of the title.crew table."`
	RatingsURL    string        `help:"Location of the title.ratings table."`
	PeopleURL     string        `help:"Location of the name.basics table."`
	PrincipalsURL string        `help:"Location of the title.principals table."`
	S3Region      string        `help:"AWS region used for s3:// locations."`
	Progress      bool          `help:"Print row counters to stderr while building."`
	LogPath       string        `help:"Log file to write to. Empty means stderr."`
	Verbose       bool          `help:"Enable verbose logging."`

	log   filmography.Logger
	zap   *zap.Logger
	stats filmography.Statter
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	return &Main{
		CacheDir:     "filmography-cache",
		MaxAge:       source.DefaultMaxAge,
		SnapshotFile: "snapshot.db",
		CacheTTL:     query.DefaultCacheTTL,
		CacheSize:    query.DefaultCacheSize,
		S3Region:     "us-east-1",
	}
}

// Log returns the logger set up by Open.
func (m *Main) Log() filmography.Logger { return m.log }

// Pipeline holds the wired stages.
type Pipeline struct {
	Provider   *source.Provider
	Aggregator *aggregate.Aggregator
	Store      *boltdb.Store
	Names      *leveldb.NameIndex
	Engine     *query.Engine

	main *Main
}

func (m *Main) validate() error {
	if m.CacheDir == "" {
		return errors.New("cache-dir is required")
	}
	if m.SnapshotFile == "" {
		return errors.New("snapshot-file is required")
	}
	if m.MaxAge <= 0 {
		return errors.Errorf("max-age must be positive, got %v", m.MaxAge)
	}
	return nil
}

func (m *Main) setupLogging() error {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.Sampling = nil
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if m.Verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	if m.LogPath != "" {
		cfg.OutputPaths = []string{m.LogPath}
	}
	l, err := cfg.Build()
	if err != nil {
		return errors.Wrap(err, "building logger")
	}
	m.zap = l
	m.log = filmography.NewZapLogger(l)
	return nil
}

// Open validates the configuration and wires up every stage.
func (m *Main) Open() (*Pipeline, error) {
	if err := m.validate(); err != nil {
		return nil, errors.Wrap(err, "validating configuration")
	}
	if m.log == nil {
		if err := m.setupLogging(); err != nil {
			return nil, err
		}
	}
	if m.stats == nil {
		if m.Progress {
			m.stats = termstat.NewCollector(os.Stderr, 0)
		} else {
			m.stats = filmography.NopStatter{}
		}
	}

	provider, err := source.NewProvider(filepath.Join(m.CacheDir, "sources"),
		source.OptSources(map[string]string{
			filmography.SourceTitles:     m.TitlesURL,
			filmography.SourceCrew:       m.CrewURL,
			filmography.SourceRatings:    m.RatingsURL,
			filmography.SourcePeople:     m.PeopleURL,
			filmography.SourcePrincipals: m.PrincipalsURL,
		}),
		source.OptMaxAge(m.MaxAge),
		source.OptOpener(&source.URLOpener{Region: m.S3Region}),
		source.OptLogger(m.log),
		source.OptStatter(m.stats),
	)
	if err != nil {
		return nil, errors.Wrap(err, "setting up source provider")
	}

	names, err := leveldb.Open(filepath.Join(m.CacheDir, "names"))
	if err != nil {
		return nil, errors.Wrap(err, "opening name index")
	}

	agg := aggregate.NewAggregator(provider,
		aggregate.OptNameIndexer(names),
		aggregate.OptLogger(m.log),
		aggregate.OptStatter(m.stats),
	)

	snapPath := m.SnapshotFile
	if !filepath.IsAbs(snapPath) {
		snapPath = filepath.Join(m.CacheDir, snapPath)
	}
	store := boltdb.NewStore(snapPath, agg,
		boltdb.OptMaxAge(m.MaxAge),
		boltdb.OptLogger(m.log),
	)

	engine := query.NewEngine(store,
		query.OptNameLookup(names),
		query.OptCacheTTL(m.CacheTTL),
		query.OptCacheSize(m.CacheSize),
		query.OptLogger(m.log),
		query.OptStatter(m.stats),
	)
	return &Pipeline{
		Provider:   provider,
		Aggregator: agg,
		Store:      store,
		Names:      names,
		Engine:     engine,
		main:       m,
	}, nil
}

// Close releases the name index and flushes progress and log output.
func (p *Pipeline) Close() error {
	if c, ok := p.main.stats.(*termstat.Collector); ok {
		c.Flush()
	}
	err := p.Names.Close()
	if p.main.zap != nil {
		_ = p.main.zap.Sync()
	}
	return err
}

// Build forces a fresh aggregation and saves it, ignoring any existing
// snapshot.
func (m *Main) Build(w io.Writer) (err error) {
	p, err := m.Open()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := p.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	start := time.Now()
	snap, err := p.Store.Rebuild()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "built snapshot %s in %v\n", p.Store.Path(), time.Since(start).Round(time.Millisecond))
	for _, role := range filmography.Roles {
		rs := snap.Role(role)
		fmt.Fprintf(w, "%ss: %s people, %s credits\n", role,
			humanize.Comma(int64(len(rs.Stats))), humanize.Comma(int64(len(rs.Credits))))
	}
	return nil
}

// Query writes the people credited on exactly n films in role, and their
// films. With asCSV the films are written as CSV instead.
func (m *Main) Query(w io.Writer, role string, n int, asCSV bool) (err error) {
	r, err := filmography.ParseRole(role)
	if err != nil {
		return err
	}
	p, err := m.Open()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := p.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	res, err := p.Engine.Query(r, n)
	if err != nil {
		return err
	}
	if asCSV {
		return res.WriteCSV(w)
	}
	return writeResult(w, res)
}

// Summary writes the population statistics of role.
func (m *Main) Summary(w io.Writer, role string) (err error) {
	r, err := filmography.ParseRole(role)
	if err != nil {
		return err
	}
	p, err := m.Open()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := p.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	s, err := p.Engine.Summary(r)
	if err != nil {
		return err
	}
	return writeSummary(w, s)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func writeResult(w io.Writer, res *query.Result) error {
	fmt.Fprintf(w, "%s %ss with exactly %d films\n\n", humanize.Comma(int64(len(res.People))), res.Role, res.N)
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tID\tNAME\tBORN\tDIED\tAVG RATING\tVOTES\tPOPULARITY\tPROFESSIONS")
	for i, p := range res.People {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%.2f\t%s\n", i+1, p.PersonID,
			orDash(p.Name.String), orDash(p.BirthYear.String()), orDash(p.DeathYear.String()),
			orDash(p.AvgRating.String()), humanize.Comma(p.TotalVotes), p.Popularity,
			orDash(strings.Join(p.Professions, ",")))
	}
	if err := tw.Flush(); err != nil {
		return errors.Wrap(err, "writing people")
	}
	if len(res.Credits) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tYEAR\tTITLE\tGENRES\tRATING\tVOTES")
	for _, c := range res.Credits {
		votes := "-"
		if c.Votes.Valid {
			votes = humanize.Comma(c.Votes.Int)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", c.PersonID, orDash(c.Year.String()), c.Title,
			orDash(strings.Join(c.Genres, ",")), orDash(c.Rating.String()), votes)
	}
	return errors.Wrap(tw.Flush(), "writing credits")
}

func writeSummary(w io.Writer, s *query.Summary) error {
	fmt.Fprintf(w, "%ss: %s\n", s.Role, humanize.Comma(int64(s.TotalPeople)))
	fmt.Fprintf(w, "films per person: mean %.2f, median %.1f, max %d\n", s.MeanCount, s.MedianCount, s.MaxCount)
	fmt.Fprintf(w, "exactly 1 film: %s (%.1f%%)\n", humanize.Comma(int64(s.CountEq1)), 100*s.Share(1))
	fmt.Fprintf(w, "10 or more films: %s\n\n", humanize.Comma(int64(s.CountGe10)))

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "TOP\tID\tNAME\tFILMS")
	for i, l := range s.Top10 {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", i+1, l.PersonID, orDash(l.Name.String), l.MovieCount)
	}
	if err := tw.Flush(); err != nil {
		return errors.Wrap(err, "writing leaderboard")
	}
	if len(s.Distribution) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "FILMS\tPEOPLE\tSHARE")
	for _, b := range s.Distribution {
		fmt.Fprintf(tw, "%d\t%s\t%.2f%%\n", b.MovieCount, humanize.Comma(int64(b.People)), 100*s.Share(b.MovieCount))
	}
	return errors.Wrap(tw.Flush(), "writing distribution")
}
