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

// Package termstat provides a filmography.Statter which prints counters to a
// terminal line while a build runs. Output is rate limited and driven by the
// calls themselves; Flush prints the final state.
package termstat

import (
	"fmt"
	"io"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// DefaultInterval is the minimum time between two writes.
const DefaultInterval = 2 * time.Second

// Collector collects stats and prints them to the terminal
type Collector struct {
	lock     sync.Mutex
	indexes  map[string]int
	names    []string
	stats    []int64
	timings  map[string]time.Duration
	timed    []string
	changed  bool
	out      io.Writer
	interval time.Duration
	now      func() time.Time
	last     time.Time
}

// NewCollector initializes and returns a new Collector writing to out at most
// once per interval. A non-positive interval means DefaultInterval.
func NewCollector(out io.Writer, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Collector{
		indexes:  make(map[string]int),
		timings:  make(map[string]time.Duration),
		out:      out,
		interval: interval,
		now:      time.Now,
	}
}

// Count adds value to the named stat at the specified rate.
func (t *Collector) Count(name string, value int64, rate float64, tags ...string) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.changed = true

	idx, ok := t.indexes[name]
	if !ok {
		idx = len(t.stats)
		t.stats = append(t.stats, 0)
		t.names = append(t.names, name)
		t.indexes[name] = idx
	}
	if rate < 1 {
		if rand.Float64() > rate {
			return
		}
	}
	t.stats[idx] += value
	t.maybeWrite()
}

// Timing records the latest duration of the named operation.
func (t *Collector) Timing(name string, value time.Duration, rate float64, tags ...string) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if _, ok := t.timings[name]; !ok {
		t.timed = append(t.timed, name)
	}
	t.timings[name] = value
	t.changed = true
	t.maybeWrite()
}

// Flush writes the current state if anything changed since the last write,
// ending the line.
func (t *Collector) Flush() {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.write() {
		fmt.Fprintln(t.out)
	}
}

// Value returns the current value of a counter.
func (t *Collector) Value(name string) int64 {
	t.lock.Lock()
	defer t.lock.Unlock()
	if idx, ok := t.indexes[name]; ok {
		return t.stats[idx]
	}
	return 0
}

// maybeWrite writes if the interval has passed. t.lock must be held.
func (t *Collector) maybeWrite() {
	if now := t.now(); now.Sub(t.last) >= t.interval {
		t.write()
		t.last = now
	}
}

// write prints all stats on one line. t.lock must be held.
func (t *Collector) write() bool {
	if !t.changed {
		return false
	}
	sb := strings.Builder{}
	for i := 0; i < len(t.stats); i++ {
		_, _ = sb.WriteString(fmt.Sprintf("%s: %s ", t.names[i], humanize.Comma(t.stats[i])))
	}
	for _, name := range t.timed {
		_, _ = sb.WriteString(fmt.Sprintf("%s: %v ", name, t.timings[name].Round(time.Millisecond)))
	}
	t.changed = false
	fmt.Fprint(t.out, "\r"+sb.String())
	return true
}

// Gauge does nothing.
func (t *Collector) Gauge(name string, value float64, rate float64, tags ...string) {}

// Histogram does nothing.
func (t *Collector) Histogram(name string, value float64, rate float64, tags ...string) {}

// Set does nothing.
func (t *Collector) Set(name string, value string, rate float64, tags ...string) {}
