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

// Package boltdb provides the Snapshot Store: a filmography.Snapshot persisted
// as a single BoltDB file, validated for age and schema on every load.
package boltdb

import (
	"encoding/binary"
	"os"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pilosa/filmography"
	"github.com/pkg/errors"
)

// DefaultMaxAge is the age past which a persisted snapshot is rebuilt.
const DefaultMaxAge = 7 * 24 * time.Hour

// batchSize is the number of rows written per transaction.
const batchSize = 10000

var (
	metaBucket   = []byte("meta")
	schemaKey    = []byte("schema")
	createdAtKey = []byte("created_at")
)

// Bucket names of the six snapshot tables.
func creditsBucket(r filmography.Role) []byte { return []byte(r.String() + "_credits") }
func statsBucket(r filmography.Role) []byte   { return []byte(r.String() + "_stats") }
func peopleBucket(r filmography.Role) []byte  { return []byte(r.String() + "_people") }

// errSchemaMismatch marks an artifact that does not have the shape the
// current pipeline writes.
type errSchemaMismatch struct {
	reason string
}

func (e errSchemaMismatch) Error() string { return "snapshot schema mismatch: " + e.reason }

// Builder produces a fresh Snapshot. *aggregate.Aggregator implements it.
type Builder interface {
	Build() (*filmography.Snapshot, error)
}

// Store persists snapshots in the BoltDB file at path.
type Store struct {
	path    string
	maxAge  time.Duration
	builder Builder
	now     func() time.Time
	log     filmography.Logger

	// last snapshot loaded or saved, and the mtime of the artifact it came
	// from.
	cached    *filmography.Snapshot
	cachedMod time.Time
}

// Option is a functional option for NewStore.
type Option func(s *Store)

// OptMaxAge sets the freshness window.
func OptMaxAge(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.maxAge = d
		}
	}
}

// OptClock replaces time.Now.
func OptClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// OptLogger sets the logger.
func OptLogger(l filmography.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

// NewStore gets a Store for the artifact at path which rebuilds through
// builder. builder may be nil, in which case Load fails with
// filmography.ErrNoSnapshot whenever a rebuild would be needed.
func NewStore(path string, builder Builder, opts ...Option) *Store {
	s := &Store{
		path:    path,
		maxAge:  DefaultMaxAge,
		builder: builder,
		now:     time.Now,
		log:     filmography.NopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the location of the artifact.
func (s *Store) Path() string { return s.path }

// Load returns the persisted snapshot if it is fresh and has the current
// schema, and otherwise builds, saves and returns a new one.
func (s *Store) Load() (*filmography.Snapshot, error) {
	info, err := os.Stat(s.path)
	if os.IsNotExist(err) {
		s.log.Printf("no snapshot at %s, building one", s.path)
		return s.Rebuild()
	} else if err != nil {
		return nil, errors.Wrap(err, "statting snapshot")
	}

	if age := s.now().Sub(info.ModTime()); age > s.maxAge {
		s.log.Printf("snapshot %s is %v old (max %v), rebuilding", s.path, age.Round(time.Second), s.maxAge)
		if err := s.remove(); err != nil {
			return nil, err
		}
		return s.Rebuild()
	}

	if s.cached != nil && info.ModTime().Equal(s.cachedMod) {
		return s.cached, nil
	}

	snap, err := s.read()
	if err != nil {
		if _, ok := errors.Cause(err).(errSchemaMismatch); !ok {
			return nil, errors.Wrap(err, "reading snapshot")
		}
		s.log.Printf("discarding snapshot %s: %v", s.path, err)
		if err := s.remove(); err != nil {
			return nil, err
		}
		return s.Rebuild()
	}
	s.cached, s.cachedMod = snap, info.ModTime()
	s.log.Debugf("loaded snapshot %s created at %v", s.path, snap.CreatedAt)
	return snap, nil
}

// Rebuild builds a fresh snapshot and saves it, regardless of the state of
// the current artifact.
func (s *Store) Rebuild() (*filmography.Snapshot, error) {
	if s.builder == nil {
		return nil, filmography.ErrNoSnapshot
	}
	snap, err := s.builder.Build()
	if err != nil {
		return nil, errors.Wrap(err, "building snapshot")
	}
	if err := s.Save(snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Store) remove() error {
	s.cached = nil
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing snapshot")
	}
	return nil
}

func open(path string, readOnly bool) (*bolt.DB, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second, ReadOnly: readOnly, NoGrowSync: true})
	if err != nil {
		return nil, errors.Wrapf(err, "opening db file '%v'", path)
	}
	return db, nil
}

// Save writes snap to the artifact, replacing any previous one. The snapshot
// is written to a temporary file first and renamed into place.
func (s *Store) Save(snap *filmography.Snapshot) error {
	tmp := s.path + ".tmp"
	if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing leftover temp snapshot")
	}
	db, err := open(tmp, false)
	if err != nil {
		return err
	}
	db.NoSync = true
	if err := write(db, snap); err != nil {
		db.Close()
		os.Remove(tmp)
		return err
	}
	if err := db.Sync(); err != nil {
		db.Close()
		os.Remove(tmp)
		return errors.Wrap(err, "syncing db")
	}
	if err := db.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "closing db")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "moving snapshot into place")
	}
	info, err := os.Stat(s.path)
	if err != nil {
		return errors.Wrap(err, "statting saved snapshot")
	}
	s.cached, s.cachedMod = snap, info.ModTime()
	s.log.Printf("saved snapshot to %s", s.path)
	return nil
}

func key(i int) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(i))
	return k
}

// putRows writes n rows into bucket in batches, encoding row i with enc.
func putRows(db *bolt.DB, bucket []byte, n int, enc func(buf []byte, i int) ([]byte, error)) error {
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucket(bucket)
		return err
	}); err != nil {
		return errors.Wrapf(err, "creating %s bucket", bucket)
	}
	for batch := 0; batch*batchSize < n; batch++ {
		err := db.Update(func(tx *bolt.Tx) error {
			b := tx.Bucket(bucket)
			for i := batch * batchSize; i < (batch+1)*batchSize && i < n; i++ {
				val, err := enc(nil, i)
				if err != nil {
					return errors.Wrapf(err, "encoding row %d", i)
				}
				if err := b.Put(key(i), val); err != nil {
					return errors.Wrapf(err, "putting into %s bucket", bucket)
				}
			}
			return nil
		})
		if err != nil {
			return errors.Wrap(err, "inserting batch")
		}
	}
	return nil
}

func write(db *bolt.DB, snap *filmography.Snapshot) error {
	for _, role := range filmography.Roles {
		rs := snap.Role(role)
		err := putRows(db, creditsBucket(role), len(rs.Credits), func(buf []byte, i int) ([]byte, error) {
			return encodeCredit(buf, rs.Credits[i])
		})
		if err != nil {
			return err
		}
		err = putRows(db, statsBucket(role), len(rs.Stats), func(buf []byte, i int) ([]byte, error) {
			return encodeStats(buf, rs.Stats[i])
		})
		if err != nil {
			return err
		}
		err = putRows(db, peopleBucket(role), len(rs.People), func(buf []byte, i int) ([]byte, error) {
			return encodePerson(buf, rs.People[i])
		})
		if err != nil {
			return err
		}
	}
	// meta goes last so that an artifact without it is never mistaken for a
	// complete one.
	return db.Update(func(tx *bolt.Tx) error {
		mb, err := tx.CreateBucket(metaBucket)
		if err != nil {
			return errors.Wrap(err, "creating meta bucket")
		}
		schema := snap.Schema
		if schema == "" {
			schema = filmography.SchemaMarker
		}
		if err := mb.Put(schemaKey, []byte(schema)); err != nil {
			return errors.Wrap(err, "putting schema")
		}
		created, err := snap.CreatedAt.UTC().MarshalText()
		if err != nil {
			return errors.Wrap(err, "marshaling creation time")
		}
		return errors.Wrap(mb.Put(createdAtKey, created), "putting creation time")
	})
}

// read decodes the artifact. Anything about its content which does not match
// what write produces is reported as errSchemaMismatch.
func (s *Store) read() (*filmography.Snapshot, error) {
	db, err := open(s.path, true)
	if err != nil {
		if errors.Cause(err) == bolt.ErrTimeout {
			return nil, err
		}
		return nil, errSchemaMismatch{reason: err.Error()}
	}
	defer db.Close()

	snap := &filmography.Snapshot{}
	err = db.View(func(tx *bolt.Tx) error {
		mb := tx.Bucket(metaBucket)
		if mb == nil {
			return errSchemaMismatch{reason: "no meta bucket"}
		}
		snap.Schema = string(mb.Get(schemaKey))
		if snap.Schema != filmography.SchemaMarker {
			return errSchemaMismatch{reason: "schema marker '" + snap.Schema + "' != '" + filmography.SchemaMarker + "'"}
		}
		if err := snap.CreatedAt.UnmarshalText(mb.Get(createdAtKey)); err != nil {
			return errSchemaMismatch{reason: "bad creation time: " + err.Error()}
		}
		for _, role := range filmography.Roles {
			if err := readRole(tx, role, snap.Role(role)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func bucket(tx *bolt.Tx, name []byte) (*bolt.Bucket, error) {
	b := tx.Bucket(name)
	if b == nil {
		return nil, errSchemaMismatch{reason: "missing bucket " + string(name)}
	}
	return b, nil
}

func readRole(tx *bolt.Tx, role filmography.Role, rs *filmography.RoleSnapshot) error {
	mismatch := func(err error) error {
		return errSchemaMismatch{reason: err.Error()}
	}
	cb, err := bucket(tx, creditsBucket(role))
	if err != nil {
		return err
	}
	sb, err := bucket(tx, statsBucket(role))
	if err != nil {
		return err
	}
	pb, err := bucket(tx, peopleBucket(role))
	if err != nil {
		return err
	}
	rs.Credits = make([]filmography.CreditEdge, 0, cb.Stats().KeyN)
	err = cb.ForEach(func(k, v []byte) error {
		e, err := decodeCredit(v, role)
		if err != nil {
			return mismatch(err)
		}
		rs.Credits = append(rs.Credits, e)
		return nil
	})
	if err != nil {
		return err
	}
	rs.Stats = make([]filmography.PersonStats, 0, sb.Stats().KeyN)
	err = sb.ForEach(func(k, v []byte) error {
		st, err := decodeStats(v, role)
		if err != nil {
			return mismatch(err)
		}
		rs.Stats = append(rs.Stats, st)
		return nil
	})
	if err != nil {
		return err
	}
	rs.People = make([]filmography.Person, 0, pb.Stats().KeyN)
	return pb.ForEach(func(k, v []byte) error {
		p, err := decodePerson(v)
		if err != nil {
			return mismatch(err)
		}
		rs.People = append(rs.People, p)
		return nil
	})
}
