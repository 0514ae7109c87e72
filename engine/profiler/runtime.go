package profiler

import "runtime"

// RuntimeStats is a cheap summary of the Go runtime for on-screen display.
type RuntimeStats struct {
	HeapAlloc  uint64
	Mallocs    uint64
	NumGC      uint32
	Goroutines int
	CPUs       int
}

// Runtime reads the current runtime counters. It stops the world briefly;
// call it at most a few times per second.
func Runtime() RuntimeStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return RuntimeStats{
		HeapAlloc:  m.HeapAlloc,
		Mallocs:    m.Mallocs,
		NumGC:      m.NumGC,
		Goroutines: runtime.NumGoroutine(),
		CPUs:       runtime.NumCPU(),
	}
}
