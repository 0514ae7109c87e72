package uirender

import (
	"errors"
	"fmt"
)

var (
	// ErrInitialization means New could not build a renderer: nil device or
	// context, or the font texture or buffers could not be created.
	ErrInitialization = errors.New("uirender: initialization failed")

	// ErrBuffer means growing or writing the vertex/index buffers failed.
	// Only the current frame is lost; the renderer stays usable.
	ErrBuffer = errors.New("uirender: buffer update failed")

	// ErrDeviceLost means a device call failed while capturing, drawing or
	// restoring. The host must recreate the device and the renderer.
	ErrDeviceLost = errors.New("uirender: device lost")

	// ErrInvalidTexture means a draw command named a texture id the renderer
	// does not know. Drawing stops at that command.
	ErrInvalidTexture = errors.New("uirender: unknown texture id")

	// ErrInvalidDrawData means index validation found an index outside its list.
	ErrInvalidDrawData = errors.New("uirender: invalid draw data")

	// ErrClosed is returned by Render after Close.
	ErrClosed = errors.New("uirender: renderer closed")
)

func deviceLost(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDeviceLost, op, err)
}

func bufferErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrBuffer, op, err)
}
