package core

import (
	"log/slog"
	"runtime"
	"time"
)

// Run wires the platform window + host device and executes the main loop.
func Run(app App, cfg Config, newWindow func(Config) (Window, error), newHost func(Window, Config) (Host, error)) error {
	// Graphics devices are bound to the thread that created them.
	runtime.LockOSThread()

	win, err := newWindow(cfg)
	if err != nil {
		return err
	}
	if d, ok := win.(interface{ Destroy() }); ok {
		defer d.Destroy()
	}

	host, err := newHost(win, cfg)
	if err != nil {
		return err
	}
	defer host.Shutdown()

	w, h := win.FramebufferSize()
	host.Resize(w, h)

	eng := &Engine{Window: win, Host: host, Input: NewInput(), start: time.Now()}
	win.SetEventCallback(func(ev Event) {
		eng.Input.Handle(ev)
		app.OnEvent(eng, ev)
		if _, ok := ev.(EventResize); ok {
			fw, fh := win.FramebufferSize()
			if fw < 1 || fh < 1 {
				return
			}
			host.Resize(fw, fh)
		}
		eng.Layers.ForEachReverse(func(l Layer) bool { return l.OnEvent(eng, ev) })
	})

	app.OnStart(eng)
	eng.Layers.ForEach(func(l Layer) { l.OnAttach(eng) })

	// Fixed-timestep (60 Hz) with interpolation
	const tick = time.Second / 60
	var (
		accum   time.Duration
		prev    = time.Now()
		maxStep = 10 // prevent spiral of death
	)

	for !win.ShouldClose() {
		now := time.Now()
		accum += now.Sub(prev)
		prev = now

		win.PollEvents()

		steps := 0
		for accum >= tick && steps < maxStep {
			dt := float64(tick) / float64(time.Second)
			app.OnUpdate(eng, dt)
			eng.Layers.ForEach(func(l Layer) { l.OnUpdate(eng, dt) })
			accum -= tick
			steps++
		}
		alpha := float64(accum) / float64(tick)

		if err := host.BeginFrame(cfg.ClearColor); err != nil {
			// Lost devices keep failing until the host recreates them; skip the frame.
			slog.Warn("begin frame", "err", err)
			win.SwapBuffers()
			continue
		}
		app.OnRender(eng, alpha)
		eng.Layers.ForEach(func(l Layer) { l.OnRender(eng, alpha) })
		if err := host.EndFrame(); err != nil {
			slog.Warn("end frame", "err", err)
		}

		win.SwapBuffers()
	}

	eng.Layers.ForEachReverse(func(l Layer) bool { l.OnDetach(eng); return false })
	app.OnShutdown(eng)
	slog.Info("engine exit", "uptime", eng.Uptime())
	return nil
}
