//go:build windows

package platform

import "unsafe"

// NativeHandle returns the window's HWND for devices that present to it
// directly.
func (g *GLFWWindow) NativeHandle() uintptr {
	return uintptr(unsafe.Pointer(g.w.GetWin32Window()))
}
