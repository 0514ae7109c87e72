//go:build profile

package profiler

import (
	"encoding/json"
	"errors"
	"os"
)

type ssFile struct {
	Schema   string      `json:"$schema"`
	Shared   ssShared    `json:"shared"`
	Profiles []ssProfile `json:"profiles"`
	Exporter string      `json:"exporter,omitempty"`
	Name     string      `json:"name,omitempty"`
}

type ssShared struct {
	Frames []ssFrame `json:"frames"`
}

type ssFrame struct {
	Name string `json:"name"`
}

type ssProfile struct {
	Type       string    `json:"type"`
	Name       string    `json:"name"`
	Unit       string    `json:"unit"`
	StartValue int64     `json:"startValue"`
	EndValue   int64     `json:"endValue"`
	Events     []ssEvent `json:"events"`
}

type ssEvent struct {
	Type  string `json:"type"` // "O" or "C"
	At    int64  `json:"at"`   // µs since the first event
	Frame int    `json:"frame"`
}

// balance converts raw events to speedscope events. Closes without a matching
// open (their open fell out of the ring) are dropped, and scopes still open at
// the end are closed at the last timestamp.
func balance(evs []event) (out []ssEvent, endUS int64) {
	if len(evs) == 0 {
		return nil, 0
	}
	base := evs[0].at
	stack := make([]int, 0, 64)
	last := int64(0)
	for _, e := range evs {
		at := max((e.at-base)/1000, last)
		if e.open {
			stack = append(stack, e.name)
			out = append(out, ssEvent{Type: "O", At: at, Frame: e.name})
		} else {
			if len(stack) == 0 || stack[len(stack)-1] != e.name {
				continue
			}
			stack = stack[:len(stack)-1]
			out = append(out, ssEvent{Type: "C", At: at, Frame: e.name})
		}
		last = at
	}
	for i := len(stack) - 1; i >= 0; i-- {
		out = append(out, ssEvent{Type: "C", At: last, Frame: stack[i]})
	}
	return out, last
}

func writeSpeedscope(path string, frameNames []string, evs []event) error {
	out, end := balance(evs)
	if len(out) == 0 {
		return errors.New("profiler: no balanced scopes")
	}
	frames := make([]ssFrame, len(frameNames))
	for i, n := range frameNames {
		frames[i] = ssFrame{Name: n}
	}
	doc := ssFile{
		Schema: "https://www.speedscope.app/file-format-schema.json",
		Shared: ssShared{Frames: frames},
		Profiles: []ssProfile{{
			Type:     "evented",
			Name:     "overlay",
			Unit:     "microseconds",
			EndValue: end,
			Events:   out,
		}},
		Exporter: "overlay-profiler",
		Name:     "overlay capture",
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&doc); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
