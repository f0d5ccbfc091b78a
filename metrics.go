// Copyright 2011 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package anvil

import (
	"sort"
	"sync"
	"time"
)

// metric is a single measurement we're tracking, like ".ninja parse".
type metric struct {
	name  string
	count int
	sum   time.Duration
}

var (
	metricsMu      sync.Mutex
	metricsEnabled bool
	metricsByName  = map[string]*metric{}
)

// enableMetrics turns on metric collection; used by "-d stats".
func enableMetrics() {
	metricsMu.Lock()
	metricsEnabled = true
	metricsMu.Unlock()
}

// metricRecord starts timing the code path named name and returns a func to
// stop the timer and record the sample. Call at the top of a function via
// defer metricRecord("name")().
func metricRecord(name string) func() {
	if !metricsEnabled {
		return func() {}
	}
	start := time.Now()
	return func() {
		dt := time.Since(start)
		metricsMu.Lock()
		m, ok := metricsByName[name]
		if !ok {
			m = &metric{name: name}
			metricsByName[name] = m
		}
		m.count++
		m.sum += dt
		metricsMu.Unlock()
	}
}

// DumpMetrics prints a summary report of every recorded metric to stdout,
// sorted by name, with the name column as wide as the longest name.
func DumpMetrics() {
	metricsMu.Lock()
	defer metricsMu.Unlock()

	names := make([]string, 0, len(metricsByName))
	width := len("metric")
	for name := range metricsByName {
		names = append(names, name)
		if len(name) > width {
			width = len(name)
		}
	}
	sort.Strings(names)

	printf("%-*s\t%-6s\t%-9s\t%s\n", width, "metric", "count", "avg (us)", "total (ms)")
	for _, name := range names {
		m := metricsByName[name]
		avgMicros := float64(0)
		if m.count > 0 {
			avgMicros = float64(m.sum.Microseconds()) / float64(m.count)
		}
		totalMillis := float64(m.sum.Microseconds()) / 1000
		printf("%-*s\t%-6d\t%-8.1f\t%.1f\n", width, m.name, m.count, avgMicros, totalMillis)
	}
}

// GetTimeMillis returns the current time as milliseconds since some
// unspecified epoch; only useful for measuring elapsed time within a
// process, e.g. to timestamp command start/end for the build log.
func GetTimeMillis() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}
