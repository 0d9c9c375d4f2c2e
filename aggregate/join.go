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

package aggregate

import (
	"sort"
	"strings"

	"github.com/pilosa/filmography"
)

// Film is a released film with its (optional) rating joined in.
type Film struct {
	filmography.Title
	Rating filmography.NullFloat
	Votes  filmography.NullInt
}

// Films keeps the titles which are films released no later than currentYear.
func Films(titles []filmography.Title, currentYear int) []filmography.Title {
	ret := make([]filmography.Title, 0, len(titles)/4)
	for _, t := range titles {
		if t.IsReleasedFilm(currentYear) {
			ret = append(ret, t)
		}
	}
	return ret
}

// JoinRatings left joins ratings onto films. Films without a rating keep
// absent rating and votes.
func JoinRatings(films []filmography.Title, ratings []filmography.Rating) []Film {
	byTitle := make(map[string]filmography.Rating, len(ratings))
	for _, r := range ratings {
		byTitle[r.TitleID] = r
	}
	ret := make([]Film, len(films))
	for i, f := range films {
		ret[i].Title = f
		if r, ok := byTitle[f.ID]; ok {
			ret[i].Rating = r.AverageRating
			ret[i].Votes = r.NumVotes
		}
	}
	return ret
}

func edge(personID string, role filmography.Role, f Film) filmography.CreditEdge {
	return filmography.CreditEdge{
		PersonID: personID,
		TitleID:  f.ID,
		Role:     role,
		Title:    f.PrimaryTitle,
		Year:     f.StartYear,
		Genres:   f.Genres,
		Rating:   f.Rating,
		Votes:    f.Votes,
	}
}

// DirectorEdges inner joins films with the crew table and explodes each
// film's director list into one edge per director. Films without a crew
// record or without directors produce no edges.
func DirectorEdges(films []Film, crew []filmography.Crew) []filmography.CreditEdge {
	directors := make(map[string][]string, len(crew))
	for _, c := range crew {
		if len(c.Directors) > 0 {
			directors[c.TitleID] = c.Directors
		}
	}
	ret := make([]filmography.CreditEdge, 0, len(films))
	for _, f := range films {
		ds, ok := directors[f.ID]
		if !ok {
			continue
		}
		seen := make(map[string]struct{}, len(ds))
		for _, d := range ds {
			d = strings.TrimSpace(d)
			if d == "" {
				continue
			}
			if _, dup := seen[d]; dup {
				continue
			}
			seen[d] = struct{}{}
			ret = append(ret, edge(d, filmography.Director, f))
		}
	}
	return ret
}

// ActorEdges keeps the acting principal credits on films and joins the film
// fields onto them. A person credited more than once on the same film gets a
// single edge.
func ActorEdges(films []Film, principals []filmography.Principal) []filmography.CreditEdge {
	byID := make(map[string]int, len(films))
	for i, f := range films {
		byID[f.ID] = i
	}
	type pair struct{ person, title string }
	seen := make(map[pair]struct{})
	ret := make([]filmography.CreditEdge, 0)
	for _, p := range principals {
		if !p.IsActing() {
			continue
		}
		i, ok := byID[strings.TrimSpace(p.TitleID)]
		if !ok {
			continue
		}
		person := strings.TrimSpace(p.PersonID)
		if person == "" {
			continue
		}
		k := pair{person, films[i].ID}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		ret = append(ret, edge(person, filmography.Actor, films[i]))
	}
	return ret
}

// Aggregate groups edges by person and computes their stats. The result is
// ordered by person id.
func Aggregate(role filmography.Role, edges []filmography.CreditEdge) []filmography.PersonStats {
	type acc struct {
		count     int
		ratingSum float64
		rated     int
		votes     int64
	}
	accs := make(map[string]*acc)
	for _, e := range edges {
		a, ok := accs[e.PersonID]
		if !ok {
			a = &acc{}
			accs[e.PersonID] = a
		}
		a.count++
		if e.Rating.Valid {
			a.ratingSum += e.Rating.Float
			a.rated++
		}
		a.votes += e.Votes.Or(0)
	}
	ret := make([]filmography.PersonStats, 0, len(accs))
	for id, a := range accs {
		st := filmography.PersonStats{
			PersonID:   id,
			Role:       role,
			MovieCount: a.count,
			TotalVotes: a.votes,
		}
		if a.rated > 0 {
			st.AvgRating = filmography.F(a.ratingSum / float64(a.rated))
		}
		st.Popularity = filmography.Popularity(st.AvgRating, st.TotalVotes)
		ret = append(ret, st)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].PersonID < ret[j].PersonID })
	return ret
}

// RestrictPeople keeps the people who appear in stats.
func RestrictPeople(people []filmography.Person, stats []filmography.PersonStats) []filmography.Person {
	want := make(map[string]struct{}, len(stats))
	for _, s := range stats {
		want[s.PersonID] = struct{}{}
	}
	ret := make([]filmography.Person, 0, len(stats))
	for _, p := range people {
		if _, ok := want[p.ID]; ok {
			ret = append(ret, p)
		}
	}
	return ret
}
