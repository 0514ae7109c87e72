//go:build profile

package profiler

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestBalance(t *testing.T) {
	tests := []struct {
		name string
		in   []event
		want []ssEvent
	}{
		{
			name: "nested",
			in: []event{
				{at: 0, name: 0, open: true},
				{at: 1000, name: 1, open: true},
				{at: 3000, name: 1},
				{at: 4000, name: 0},
			},
			want: []ssEvent{{"O", 0, 0}, {"O", 1, 1}, {"C", 3, 1}, {"C", 4, 0}},
		},
		{
			name: "orphan close dropped",
			in: []event{
				{at: 0, name: 1},
				{at: 1000, name: 0, open: true},
				{at: 2000, name: 0},
			},
			want: []ssEvent{{"O", 1, 0}, {"C", 2, 0}},
		},
		{
			name: "unclosed scopes closed at end",
			in: []event{
				{at: 0, name: 0, open: true},
				{at: 5000, name: 1, open: true},
			},
			want: []ssEvent{{"O", 0, 0}, {"O", 5, 1}, {"C", 5, 1}, {"C", 5, 0}},
		},
		{
			name: "time never goes backwards",
			in: []event{
				{at: 5000, name: 0, open: true},
				{at: 4000, name: 0},
			},
			want: []ssEvent{{"O", 0, 0}, {"C", 0, 0}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := balance(tt.in)
			if !slices.Equal(got, tt.want) {
				t.Errorf("balance = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDumpWritesSpeedscope(t *testing.T) {
	Init(16)
	end := Start("outer")
	Start("inner")()
	end()

	path := filepath.Join(t.TempDir(), "p.json")
	if err := Dump(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc ssFile
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Profiles) != 1 || len(doc.Profiles[0].Events) != 4 {
		t.Fatalf("profiles = %+v", doc.Profiles)
	}
	if !slices.ContainsFunc(doc.Shared.Frames, func(f ssFrame) bool { return f.Name == "inner" }) {
		t.Error("frame names missing")
	}
}
