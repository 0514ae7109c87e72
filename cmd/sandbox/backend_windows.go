//go:build windows

package main

import (
	"github.com/hubastard/overlay/engine/core"
	d3d9backend "github.com/hubastard/overlay/engine/gfx/d3d9"
	glbackend "github.com/hubastard/overlay/engine/gfx/gl"
)

const defaultBackend = "d3d9"

func newHost(win core.Window, cfg core.Config) (core.Host, error) {
	if cfg.Backend == "gl" {
		return glbackend.NewHost(win, cfg)
	}
	return d3d9backend.NewHost(win, cfg)
}
