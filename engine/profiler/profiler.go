//go:build profile

// Package profiler records nested timing scopes into a ring buffer and dumps
// them as a speedscope evented profile. Without the "profile" build tag every
// call compiles to a no-op.
package profiler

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// Enabled reports whether the binary was built with the profile tag.
const Enabled = true

// Init allocates room for capacity scope events. Older events are overwritten
// once the ring is full. Scopes started before Init are dropped.
func Init(capacity int) {
	if capacity <= 0 {
		capacity = 1 << 20
	}
	ring.init(capacity)
}

// Start opens a scope and returns the function that closes it:
//
//	defer profiler.Start("uirender.Render")()
func Start(name string) func() {
	if !ring.ready.Load() {
		return func() {}
	}
	id := names.intern(name)
	start := time.Now().UnixNano()
	ring.push(event{at: start, name: id, open: true})
	return func() {
		end := max(time.Now().UnixNano(), start)
		ring.push(event{at: end, name: id})
	}
}

// Dump writes everything recorded so far to path.
func Dump(path string) error {
	evs := ring.snapshot()
	if len(evs) == 0 {
		return errors.New("profiler: no events recorded")
	}
	return writeSpeedscope(path, names.all(), evs)
}

// Open dumps the profile to the temp directory and launches the speedscope
// viewer on it. The path is returned even if the viewer fails to start.
func Open() (string, error) {
	path := filepath.Join(os.TempDir(), fmt.Sprintf("overlay-%d.speedscope.json", os.Getpid()))
	if err := Dump(path); err != nil {
		return "", err
	}
	cmd := exec.Command("speedscope", path)
	hideConsole(cmd)
	if err := cmd.Start(); err != nil {
		slog.Warn("profiler: speedscope not started", "path", path, "err", err)
	}
	return path, nil
}

type event struct {
	at   int64
	name int
	open bool
}

type eventRing struct {
	ready atomic.Bool
	size  uint64
	next  atomic.Uint64
	evs   []event
}

var ring eventRing

func (r *eventRing) init(capacity int) {
	r.size = uint64(capacity)
	r.evs = make([]event, capacity)
	r.next.Store(0)
	r.ready.Store(true)
}

func (r *eventRing) push(e event) {
	i := r.next.Add(1) - 1
	r.evs[i%r.size] = e
}

// snapshot returns the retained events in the order they were pushed.
func (r *eventRing) snapshot() []event {
	n := r.next.Load()
	var first uint64
	if n > r.size {
		first = n - r.size
	}
	out := make([]event, 0, n-first)
	for k := first; k < n; k++ {
		out = append(out, r.evs[k%r.size])
	}
	return out
}

type nameTable struct {
	mu   sync.Mutex
	ids  map[string]int
	list []string
}

var names = nameTable{ids: map[string]int{}}

func (t *nameTable) intern(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.ids[name]; ok {
		return id
	}
	id := len(t.list)
	t.ids[name] = id
	t.list = append(t.list, name)
	return id
}

func (t *nameTable) all() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.list...)
}
