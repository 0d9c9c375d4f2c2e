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

// Package filmography answers questions like "which directors have exactly
// 12 films, and which are the most popular of them" over the public title,
// crew, rating, principal and people tables.
//
// The work is split into stages, each living in its own package:
//
// 1. Source (package source, package tsv)
//
//    A source.Provider turns a source name into a Table. It keeps a local
//    copy of every remote table in an explicit cache directory and only
//    re-fetches a copy once it is older than the freshness window (7 days).
//    The tables are gzip compressed, tab separated, and use `\N` for absent
//    values. Decoding keeps every column; nothing is filtered at this stage.
//
// 2. Aggregator (package aggregate)
//
//    The Aggregator joins the five tables into CreditEdges, one per
//    (person, film, role), and folds them into PersonStats: number of films,
//    mean rating, total votes, and a popularity score. This is the expensive
//    stage, which is why its output is cached.
//
// 3. Snapshot Store (package boltdb)
//
//    The Store persists a Snapshot in a single BoltDB file. On load it checks
//    the age of the artifact and its schema marker, and transparently
//    rebuilds through the Aggregator if either is off.
//
// 4. Query Engine (package query)
//
//    The Engine filters a role's stats to an exact film count, joins the
//    people's biographical fields, ranks by popularity, and returns the
//    matching credits alongside. It also summarizes the whole population.
//
// The cmd package wires all of this into a command line tool.
package filmography
