//go:build overlay_idx32

package gui

// Index is a draw-list index.
type Index = uint32
