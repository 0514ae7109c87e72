//go:build !overlay_idx32

package gui

// Index is a draw-list index. Build with -tags overlay_idx32 for 32-bit indices.
type Index = uint16
