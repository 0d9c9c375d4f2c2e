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

// Package leveldb keeps a person id to display name index in LevelDB. The
// Aggregator fills it on every build, and the Query Engine falls back to it
// for names the snapshot's people tables do not carry.
package leveldb

import (
	"os"

	"github.com/pilosa/filmography"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// batchSize is the number of names written per leveldb batch.
const batchSize = 10000

// NameIndex maps person ids to display names.
type NameIndex struct {
	dirname string
	db      *leveldb.DB
}

// Open opens (creating if needed) the name index in dirname.
func Open(dirname string) (*NameIndex, error) {
	err := os.MkdirAll(dirname, 0700)
	if err != nil {
		return nil, errors.Wrap(err, "making directory")
	}
	db, err := leveldb.OpenFile(dirname, &opt.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "opening leveldb at %v", dirname)
	}
	return &NameIndex{dirname: dirname, db: db}, nil
}

// Close closes the underlying leveldb.
func (n *NameIndex) Close() error {
	return errors.Wrap(n.db.Close(), "closing name index")
}

// Reset removes every entry.
func (n *NameIndex) Reset() error {
	iter := n.db.NewIterator(nil, nil)
	defer iter.Release()
	batch := new(leveldb.Batch)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
		if batch.Len() >= batchSize {
			if err := n.db.Write(batch, nil); err != nil {
				return errors.Wrap(err, "deleting names")
			}
			batch.Reset()
		}
	}
	if err := iter.Error(); err != nil {
		return errors.Wrap(err, "iterating names")
	}
	return errors.Wrap(n.db.Write(batch, nil), "deleting names")
}

// PutNames stores the name of every person which has one. People without a
// name are skipped, and a later entry for the same id wins.
func (n *NameIndex) PutNames(people []filmography.Person) error {
	batch := new(leveldb.Batch)
	for _, p := range people {
		if p.ID == "" || !p.Name.Valid {
			continue
		}
		batch.Put([]byte(p.ID), []byte(p.Name.String))
		if batch.Len() >= batchSize {
			if err := n.db.Write(batch, nil); err != nil {
				return errors.Wrap(err, "writing names")
			}
			batch.Reset()
		}
	}
	return errors.Wrap(n.db.Write(batch, nil), "writing names")
}

// Name looks up the name of id. ok is false if the index has no entry.
func (n *NameIndex) Name(id string) (name string, ok bool, err error) {
	data, err := n.db.Get([]byte(id), nil)
	if err == leveldb.ErrNotFound {
		return "", false, nil
	} else if err != nil {
		return "", false, errors.Wrapf(err, "fetching name of %s", id)
	}
	return string(data), true, nil
}
