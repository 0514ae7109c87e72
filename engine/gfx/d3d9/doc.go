// Package d3d9backend adapts a Direct3D 9 device to core.Device and provides
// a Host that creates and presents one. The state enums of core.Device are
// Direct3D 9's own, so calls pass straight through. On platforms other than
// Windows the package is empty.
package d3d9backend
