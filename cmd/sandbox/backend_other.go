//go:build !windows

package main

import (
	"fmt"

	"github.com/hubastard/overlay/engine/core"
	glbackend "github.com/hubastard/overlay/engine/gfx/gl"
)

const defaultBackend = "gl"

func newHost(win core.Window, cfg core.Config) (core.Host, error) {
	if cfg.Backend != "gl" {
		return nil, fmt.Errorf("backend %q is not available on this platform", cfg.Backend)
	}
	return glbackend.NewHost(win, cfg)
}
