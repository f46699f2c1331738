// Package benchmark measures decode throughput and memory behavior for
// synthetic workloads.
package benchmark

import (
	"fmt"
	"runtime"
	"sync"
	"time"
)

// Timer provides simple timing utilities for benchmarking.
type Timer struct {
	start    time.Time
	name     string
	duration time.Duration
}

// NewTimer creates a new timer with the given name.
func NewTimer(name string) *Timer {
	return &Timer{
		name:  name,
		start: time.Now(),
	}
}

// Stop stops the timer and returns the elapsed duration.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.start)
	return t.duration
}

// Duration returns the recorded duration (only valid after Stop()).
func (t *Timer) Duration() time.Duration {
	return t.duration
}

// String returns a formatted string representation of the timer.
func (t *Timer) String() string {
	return fmt.Sprintf("%s: %v", t.name, t.duration)
}

// MemoryStats holds memory usage statistics.
type MemoryStats struct {
	AllocBytes      uint64  // Currently allocated bytes
	TotalAllocBytes uint64  // Total allocated bytes (cumulative)
	SysBytes        uint64  // Total bytes from system
	NumGC           uint32  // Number of GC runs
	GCCPUFraction   float64 // Fraction of CPU time spent in GC
}

// GetMemoryStats returns current memory statistics.
func GetMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return MemoryStats{
		AllocBytes:      m.Alloc,
		TotalAllocBytes: m.TotalAlloc,
		SysBytes:        m.Sys,
		NumGC:           m.NumGC,
		GCCPUFraction:   m.GCCPUFraction,
	}
}

// String returns a formatted string representation of memory stats.
func (m MemoryStats) String() string {
	return fmt.Sprintf("Alloc: %d KB, Total: %d KB, Sys: %d KB, GC: %d (%.2f%% CPU)",
		m.AllocBytes/1024,
		m.TotalAllocBytes/1024,
		m.SysBytes/1024,
		m.NumGC,
		m.GCCPUFraction*100)
}

// Result holds the result of a benchmark run.
type Result struct {
	Name         string
	Duration     time.Duration
	MemoryBefore MemoryStats
	MemoryAfter  MemoryStats
	Iterations   int
	Error        error
}

// String returns a formatted string representation of the benchmark result.
func (r Result) String() string {
	if r.Error != nil {
		return fmt.Sprintf("%s: ERROR - %v", r.Name, r.Error)
	}

	memDiff := int64(r.MemoryAfter.AllocBytes) - int64(r.MemoryBefore.AllocBytes)
	avgDuration := r.Duration / time.Duration(r.Iterations)

	return fmt.Sprintf("%s: %d iterations, avg: %v, total: %v, mem: %+d KB",
		r.Name, r.Iterations, avgDuration, r.Duration, memDiff/1024)
}

// Case represents a benchmark function.
type Case struct {
	Name string
	Func func() error
}

// Suite manages multiple benchmarks.
type Suite struct {
	cases   []Case
	results []Result
	mu      sync.Mutex
}

// NewSuite creates a new benchmark suite.
func NewSuite() *Suite {
	return &Suite{}
}

// Add adds a benchmark to the suite.
func (s *Suite) Add(name string, fn func() error) {
	s.cases = append(s.cases, Case{Name: name, Func: fn})
}

// Run runs a single named benchmark with the specified number of iterations.
func (s *Suite) Run(name string, iterations int) Result {
	for _, c := range s.cases {
		if c.Name == name {
			return s.run(c, iterations)
		}
	}
	return Result{Name: name, Error: fmt.Errorf("benchmark %q not found", name)}
}

// RunAll runs every benchmark in the suite.
func (s *Suite) RunAll(iterations int) []Result {
	results := make([]Result, 0, len(s.cases))
	for _, c := range s.cases {
		results = append(results, s.run(c, iterations))
	}
	return results
}

// Results returns the results recorded so far.
func (s *Suite) Results() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Result, len(s.results))
	copy(out, s.results)
	return out
}

func (s *Suite) run(c Case, iterations int) Result {
	if iterations < 1 {
		iterations = 1
	}

	runtime.GC()
	before := GetMemoryStats()

	timer := NewTimer(c.Name)
	var err error
	for it := 0; it < iterations; it++ {
		if err = c.Func(); err != nil {
			break
		}
	}
	timer.Stop()

	result := Result{
		Name:         c.Name,
		Duration:     timer.Duration(),
		MemoryBefore: before,
		MemoryAfter:  GetMemoryStats(),
		Iterations:   iterations,
		Error:        err,
	}

	s.mu.Lock()
	s.results = append(s.results, result)
	s.mu.Unlock()
	return result
}
