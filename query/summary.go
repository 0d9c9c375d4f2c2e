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

package query

import (
	"sort"

	"github.com/pilosa/filmography"
	"github.com/pkg/errors"
)

// MaxDistributionCount is the largest movie count reported in
// Summary.Distribution.
const MaxDistributionCount = 100

// Leader is an entry of the top-10 leaderboard.
type Leader struct {
	PersonID   string
	Name       filmography.NullString
	MovieCount int
}

// CountBucket is the number of people credited on exactly MovieCount films.
type CountBucket struct {
	MovieCount int
	People     int
}

// Summary describes the whole population of a role.
type Summary struct {
	Role        filmography.Role
	TotalPeople int
	MeanCount   float64
	MedianCount float64
	MaxCount    int
	CountEq1    int
	CountGe10   int
	Top10       []Leader
	// Distribution lists the populated movie counts up to
	// MaxDistributionCount in ascending order.
	Distribution []CountBucket

	byCount map[int]int
}

// Share returns the fraction of the population credited on exactly n films.
func (s *Summary) Share(n int) float64 {
	if s.TotalPeople == 0 {
		return 0
	}
	return float64(s.byCount[n]) / float64(s.TotalPeople)
}

// Summary computes statistics over every person in role, regardless of any
// query filter.
func (e *Engine) Summary(role filmography.Role) (*Summary, error) {
	if !role.Valid() {
		return nil, errors.Errorf("invalid role %d", role)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	snap, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	if s, ok := e.summaries[role]; ok {
		return s, nil
	}
	s, err := summarize(snap.Role(role), role, e.names)
	if err != nil {
		return nil, err
	}
	e.summaries[role] = s
	return s, nil
}

func summarize(rs *filmography.RoleSnapshot, role filmography.Role, names NameLookup) (*Summary, error) {
	s := &Summary{
		Role:         role,
		TotalPeople:  len(rs.Stats),
		Top10:        []Leader{},
		Distribution: []CountBucket{},
		byCount:      make(map[int]int),
	}
	if s.TotalPeople == 0 {
		return s, nil
	}

	counts := make([]int, len(rs.Stats))
	sum := 0
	for i, st := range rs.Stats {
		c := st.MovieCount
		counts[i] = c
		sum += c
		s.byCount[c]++
		if c > s.MaxCount {
			s.MaxCount = c
		}
		if c == 1 {
			s.CountEq1++
		}
		if c >= 10 {
			s.CountGe10++
		}
	}
	s.MeanCount = float64(sum) / float64(len(counts))
	sort.Ints(counts)
	mid := len(counts) / 2
	if len(counts)%2 == 1 {
		s.MedianCount = float64(counts[mid])
	} else {
		s.MedianCount = float64(counts[mid-1]+counts[mid]) / 2
	}

	for c := 1; c <= MaxDistributionCount; c++ {
		if people := s.byCount[c]; people > 0 {
			s.Distribution = append(s.Distribution, CountBucket{MovieCount: c, People: people})
		}
	}

	top := make([]filmography.PersonStats, len(rs.Stats))
	copy(top, rs.Stats)
	sort.Slice(top, func(i, j int) bool {
		if top[i].MovieCount != top[j].MovieCount {
			return top[i].MovieCount > top[j].MovieCount
		}
		return top[i].PersonID < top[j].PersonID
	})
	if len(top) > 10 {
		top = top[:10]
	}
	known := make(map[string]filmography.NullString, len(rs.People))
	for _, p := range rs.People {
		known[p.ID] = p.Name
	}
	for _, st := range top {
		l := Leader{PersonID: st.PersonID, MovieCount: st.MovieCount}
		if name, ok := known[st.PersonID]; ok && name.Valid {
			l.Name = name
		} else if names != nil {
			name, ok, err := names.Name(st.PersonID)
			if err != nil {
				return nil, errors.Wrapf(err, "resolving name of %s", st.PersonID)
			}
			if ok {
				l.Name = filmography.S(name)
			}
		}
		s.Top10 = append(s.Top10, l)
	}
	return s, nil
}
