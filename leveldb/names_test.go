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

package leveldb

import (
	"strconv"
	"sync"
	"testing"

	"github.com/pilosa/filmography"
	"github.com/pilosa/filmography/test"
	"github.com/pkg/errors"
)

func people(n int) []filmography.Person {
	ret := make([]filmography.Person, n)
	for i := range ret {
		ret[i] = filmography.Person{ID: "nm" + strconv.Itoa(i), Name: filmography.S("Person " + strconv.Itoa(i))}
	}
	return ret
}

func TestNameIndex(t *testing.T) {
	dir := test.TempDir(t)
	idx, err := Open(dir)
	test.ErrNil(t, err, "Open")

	err = idx.PutNames([]filmography.Person{
		{ID: "nm1", Name: filmography.S("Ann")},
		{ID: "nm2"},
		{ID: "nm3", Name: filmography.S("Cy")},
	})
	test.ErrNil(t, err, "PutNames")

	name, ok, err := idx.Name("nm1")
	test.ErrNil(t, err, "Name(nm1)")
	test.MustBe(t, true, ok, "nm1 present")
	test.MustBe(t, "Ann", name)

	_, ok, err = idx.Name("nm2")
	test.ErrNil(t, err, "Name(nm2)")
	test.MustBe(t, false, ok, "unnamed person should not be indexed")

	test.ErrNil(t, idx.Close(), "Close")

	idx, err = Open(dir)
	test.ErrNil(t, err, "reopening")
	name, ok, err = idx.Name("nm3")
	test.ErrNil(t, err, "Name(nm3) after reopen")
	if !ok || name != "Cy" {
		t.Fatalf("after reopen, unexpected name for nm3: '%s' %v", name, ok)
	}

	test.ErrNil(t, idx.Reset(), "Reset")
	_, ok, err = idx.Name("nm3")
	test.ErrNil(t, err, "Name(nm3) after reset")
	if ok {
		t.Fatalf("nm3 still present after Reset")
	}
	test.ErrNil(t, idx.Close(), "Close")
}

func TestNameIndexBatches(t *testing.T) {
	idx, err := Open(test.TempDir(t))
	test.ErrNil(t, err, "Open")
	defer idx.Close()

	ps := people(batchSize*2 + 7)
	test.ErrNil(t, idx.PutNames(ps), "PutNames")

	for _, i := range []int{0, batchSize - 1, batchSize, len(ps) - 1} {
		name, ok, err := idx.Name(ps[i].ID)
		test.ErrNil(t, err, "Name")
		if !ok || name != ps[i].Name.String {
			t.Fatalf("unexpected name for %s: '%s' %v", ps[i].ID, name, ok)
		}
	}

	test.ErrNil(t, idx.Reset(), "Reset")
	_, ok, err := idx.Name(ps[len(ps)-1].ID)
	test.ErrNil(t, err, "Name after reset")
	if ok {
		t.Fatalf("name survived Reset")
	}
}

func TestConcNameLookups(t *testing.T) {
	idx, err := Open(test.TempDir(t))
	test.ErrNil(t, err, "Open")
	defer idx.Close()
	ps := people(1000)
	test.ErrNil(t, idx.PutNames(ps), "PutNames")

	wg := &sync.WaitGroup{}
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, p := range ps {
				name, ok, err := idx.Name(p.ID)
				if err != nil {
					errs <- errors.Wrap(err, "error getting name")
					return
				}
				if !ok || name != p.Name.String {
					errs <- errors.Errorf("unexpected name for %s: '%s'", p.ID, name)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}

func BenchmarkPutNames(b *testing.B) {
	idx, err := Open(b.TempDir())
	if err != nil {
		b.Fatalf("couldn't open name index: %v", err)
	}
	defer idx.Close()
	ps := people(1000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := idx.PutNames(ps); err != nil {
			b.Fatal(err)
		}
	}
}
