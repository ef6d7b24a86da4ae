// Package profiling keeps per-frame timing buckets keyed by subsystem name.
package profiling

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type bucket struct {
	total time.Duration
	calls int
}

var (
	mu      sync.Mutex
	buckets = make(map[string]*bucket)
)

// Track returns a stop function that adds the elapsed time to the named bucket.
// Usage: defer profiling.Track("grass.Regenerate")()
func Track(name string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		mu.Lock()
		b, ok := buckets[name]
		if !ok {
			b = &bucket{}
			buckets[name] = b
		}
		b.total += d
		b.calls++
		mu.Unlock()
	}
}

// ResetFrame clears all buckets. Call it at the start of each frame.
func ResetFrame() {
	mu.Lock()
	clear(buckets)
	mu.Unlock()
}

// Snapshot returns a copy of the current totals.
func Snapshot() map[string]time.Duration {
	mu.Lock()
	defer mu.Unlock()
	out := make(map[string]time.Duration, len(buckets))
	for k, b := range buckets {
		out[k] = b.total
	}
	return out
}

// Calls returns how many times the named bucket was tracked this frame.
func Calls(name string) int {
	mu.Lock()
	defer mu.Unlock()
	if b, ok := buckets[name]; ok {
		return b.calls
	}
	return 0
}

// SumWithPrefix adds up every bucket whose name starts with prefix.
func SumWithPrefix(prefix string) time.Duration {
	mu.Lock()
	defer mu.Unlock()
	var sum time.Duration
	for k, b := range buckets {
		if strings.HasPrefix(k, prefix) {
			sum += b.total
		}
	}
	return sum
}

// TopN formats the n slowest buckets, slowest first.
// Example: "grass.Regenerate:4.2ms, culling.Cull:0.3ms"
func TopN(n int) string {
	ss := Snapshot()
	names := make([]string, 0, len(ss))
	for k := range ss {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool {
		if ss[names[i]] == ss[names[j]] {
			return names[i] < names[j]
		}
		return ss[names[i]] > ss[names[j]]
	})
	n = min(n, len(names))

	parts := make([]string, 0, n)
	for _, name := range names[:n] {
		ms := float64(ss[name].Microseconds()) / 1000.0
		parts = append(parts, name+":"+strconv.FormatFloat(ms, 'f', 1, 64)+"ms")
	}
	return strings.Join(parts, ", ")
}
